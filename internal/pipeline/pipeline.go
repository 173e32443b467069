package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/tom1k77/hatchr/internal/enrich"
	"github.com/tom1k77/hatchr/internal/sources"
	"github.com/tom1k77/hatchr/internal/token"
)

// Pipeline assembles the discovery snapshot: fan out to the launch
// platform adapters, merge duplicates into canonical records, then enrich.
// A failing adapter degrades the snapshot, it never fails it.
type Pipeline struct {
	adapters []sources.Adapter
	enricher *enrich.Enricher
	log      *logrus.Logger
}

// New creates a pipeline over the given adapters
func New(enricher *enrich.Enricher, log *logrus.Logger, adapters ...sources.Adapter) *Pipeline {
	return &Pipeline{
		adapters: adapters,
		enricher: enricher,
		log:      log,
	}
}

// Snapshot returns the current enriched candidate set
func (p *Pipeline) Snapshot(ctx context.Context) []token.Token {
	fetched := sources.FetchAll(ctx, p.log, p.adapters...)
	merged := token.Merge(fetched)

	p.log.WithFields(logrus.Fields{
		"fetched": len(fetched),
		"merged":  len(merged),
	}).Debug("Discovery snapshot assembled")

	return p.enricher.Enrich(ctx, merged)
}
