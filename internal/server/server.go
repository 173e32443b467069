package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/alerting"
	"github.com/tom1k77/hatchr/internal/config"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/neynar"
	"github.com/tom1k77/hatchr/internal/score"
	"github.com/tom1k77/hatchr/internal/storage"
)

// TokenRegistrar persists push subscription tokens
type TokenRegistrar interface {
	UpsertNotificationToken(ctx context.Context, tok *storage.NotificationToken) error
}

// Server exposes the API: score queries, the webhook intake, the manual
// scan trigger, plus health and metrics.
type Server struct {
	cfg       *config.Config
	scores    *score.Service
	scanner   *alerting.Scanner
	webhook   http.Handler
	registrar TokenRegistrar
	log       *logrus.Logger
	httpSrv   *http.Server
}

// New creates the API server
func New(
	cfg *config.Config,
	scores *score.Service,
	scanner *alerting.Scanner,
	webhook http.Handler,
	registrar TokenRegistrar,
	log *logrus.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		scores:    scores,
		scanner:   scanner,
		webhook:   webhook,
		registrar: registrar,
		log:       log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/score", s.handleScore).Methods("GET")
	r.Handle("/api/webhook/neynar", webhook).Methods("POST")
	r.HandleFunc("/api/notify/scan", s.handleScan).Methods("POST")
	r.HandleFunc("/api/notify/token", s.handleRegisterToken).Methods("POST")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until Shutdown or a listener error
func (s *Server) Start() error {
	s.log.WithField("port", s.cfg.HTTPPort).Info("Starting HTTP server")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if s.cfg.NeynarAPIKey == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "social graph lookups are not configured"})
		return
	}

	q := r.URL.Query()
	req := score.Request{
		Username:     q.Get("username"),
		TokenAddress: q.Get("address"),
		TokenName:    q.Get("name"),
		TokenSymbol:  q.Get("symbol"),
	}
	if raw := q.Get("fid"); raw != "" {
		fid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || fid <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fid"})
			return
		}
		req.FID = fid
	}
	if raw := q.Get("createdAt"); raw != "" {
		created, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid createdAt, want RFC3339"})
			return
		}
		req.TokenCreatedAt = created
	}
	if req.FID == 0 && req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fid or username is required"})
		return
	}

	resp, err := s.scores.Query(r.Context(), req)
	if err != nil {
		if errors.Is(err, neynar.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "creator not found"})
			return
		}
		s.log.WithError(err).Warn("Score query failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "score lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	summary, err := s.scanner.Scan(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Manual scan failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type registerTokenRequest struct {
	Token  string `json:"token"`
	FID    int64  `json:"fid"`
	Active *bool  `json:"active"`
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	tok := &storage.NotificationToken{Token: req.Token, FID: req.FID, Active: active}
	if err := s.registrar.UpsertNotificationToken(r.Context(), tok); err != nil {
		s.log.WithError(err).Error("Failed to register notification token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "register token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
