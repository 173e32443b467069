package sources

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/metrics"
	"github.com/tom1k77/hatchr/internal/token"
	"golang.org/x/sync/errgroup"
)

// Adapter translates one launch platform's listing format into canonical
// tokens. Implementations normalize at their own boundary: no provider
// shape leaves the adapter.
type Adapter interface {
	Name() token.Source
	Fetch(ctx context.Context) ([]token.Token, error)
}

// FetchAll queries every adapter concurrently and concatenates their
// normalized output in adapter order. A failing adapter contributes an
// empty list; the failure is logged and counted, never propagated, so one
// platform being down cannot abort the pipeline.
func FetchAll(ctx context.Context, log *logrus.Logger, adapters ...Adapter) []token.Token {
	results := make([][]token.Token, len(adapters))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			tokens, err := a.Fetch(gctx)
			if err != nil {
				metrics.AdapterErrors.WithLabelValues(string(a.Name())).Inc()
				log.WithError(err).WithField("source", a.Name()).Warn("Adapter fetch failed, continuing without it")
				return nil
			}
			metrics.TokensDiscovered.WithLabelValues(string(a.Name())).Add(float64(len(tokens)))
			mu.Lock()
			results[i] = tokens
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines only ever return nil

	var out []token.Token
	for _, list := range results {
		out = append(out, list...)
	}
	return out
}
