package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/storage"
)

const maxPayloadBytes = 1 << 20

var (
	tickerRe   = regexp.MustCompile(`\$[A-Za-z][A-Za-z0-9]{1,9}`)
	contractRe = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
)

// SignalStore persists accepted casts
type SignalStore interface {
	InsertSocialSignal(ctx context.Context, signal *storage.SocialSignal) error
}

// Handler ingests Neynar cast webhooks. Payloads must carry a valid
// HMAC-SHA256 signature over the raw body; casts without token mentions or
// from low-score authors are acknowledged but not stored.
type Handler struct {
	secret   string
	minScore float64
	store    SignalStore
	log      *logrus.Logger
}

// NewHandler creates a webhook handler
func NewHandler(secret string, minScore float64, store SignalStore, log *logrus.Logger) *Handler {
	return &Handler{
		secret:   secret,
		minScore: minScore,
		store:    store,
		log:      log,
	}
}

type castPayload struct {
	Cast struct {
		Hash      string `json:"hash"`
		Text      string `json:"text"`
		Timestamp int64  `json:"timestamp"`
		Author    struct {
			FID      int64    `json:"fid"`
			Username string   `json:"username"`
			Score    *float64 `json:"score"`
		} `json:"author"`
	} `json:"cast"`
}

// ServeHTTP verifies, filters and stores one webhook delivery
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.log.Warn("Webhook received but no signing secret is configured")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "webhook intake not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		metrics.WebhookPayloads.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Neynar-Signature")) {
		metrics.WebhookPayloads.WithLabelValues("rejected_signature").Inc()
		h.log.Warn("Webhook signature mismatch")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var payload castPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Cast.Hash == "" {
		metrics.WebhookPayloads.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}

	cast := payload.Cast

	if cast.Author.Score == nil || *cast.Author.Score < h.minScore {
		metrics.WebhookPayloads.WithLabelValues("dropped_low_score").Inc()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "dropped"})
		return
	}

	tickers := tickerRe.FindAllString(cast.Text, -1)
	contracts := contractRe.FindAllString(cast.Text, -1)
	if len(tickers) == 0 && len(contracts) == 0 {
		metrics.WebhookPayloads.WithLabelValues("dropped_no_match").Inc()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "dropped"})
		return
	}

	signal := &storage.SocialSignal{
		CastHash:         cast.Hash,
		AuthorFID:        cast.Author.FID,
		AuthorUsername:   cast.Author.Username,
		AuthorScore:      *cast.Author.Score,
		Text:             cast.Text,
		TickerMentions:   strings.Join(tickers, ","),
		ContractMentions: strings.ToLower(strings.Join(contracts, ",")),
		CastTS:           cast.Timestamp,
	}

	if err := h.store.InsertSocialSignal(r.Context(), signal); err != nil {
		h.log.WithError(err).WithField("cast_hash", cast.Hash).Error("Failed to store social signal")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store signal"})
		return
	}

	metrics.WebhookPayloads.WithLabelValues("stored").Inc()
	h.log.WithFields(logrus.Fields{
		"cast_hash": cast.Hash,
		"author":    cast.Author.Username,
		"tickers":   len(tickers),
		"contracts": len(contracts),
	}).Info("Social signal stored")

	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
