// Package poller runs the single background loop that drives the
// system: fetch the monitored application's call trees, skip the ones
// already seen, flatten the new ones, and commit the cycle's latencies
// to the aggregate.
package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tobert/reactmon/internal/aggregate"
	"github.com/tobert/reactmon/internal/calltree"
	"github.com/tobert/reactmon/internal/fetch"
)

// DefaultInterval is the delay between the end of one poll cycle and
// the start of the next.
const DefaultInterval = 5 * time.Second

// Exporter forwards the flattened spans of a newly seen tree to an
// external sink. Export failures never affect the cycle.
type Exporter interface {
	ExportTree(ctx context.Context, tree *calltree.Tree, spans []calltree.Span) error
}

// Poller sequences fetch, parse, dedup, flatten, and aggregate on a
// fixed interval. Exactly one Poller goroutine runs per process.
type Poller struct {
	target   *fetch.Target
	fetcher  *fetch.Fetcher
	registry *calltree.Registry
	agg      *aggregate.Aggregator
	exporter Exporter // optional
	interval time.Duration
	logger   *zap.Logger
}

// Config carries the poller's collaborators and tuning.
type Config struct {
	Target   *fetch.Target
	Fetcher  *fetch.Fetcher
	Registry *calltree.Registry
	Agg      *aggregate.Aggregator
	Exporter Exporter      // nil disables export
	Interval time.Duration // <= 0 uses DefaultInterval
	Logger   *zap.Logger   // nil uses zap.NewNop()
}

// New creates a poller. It does not start polling; call Run.
func New(cfg Config) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		target:   cfg.Target,
		fetcher:  cfg.Fetcher,
		registry: cfg.Registry,
		agg:      cfg.Agg,
		exporter: cfg.Exporter,
		interval: interval,
		logger:   logger,
	}
}

// Run executes poll cycles until ctx is cancelled. The interval is
// measured from the end of one cycle to the start of the next, not
// wall-clock aligned. No failure inside a cycle stops the loop.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(0) // first cycle runs immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.cycle(ctx)
		timer.Reset(p.interval)
	}
}

// cycle runs one fetch → parse → dedup → flatten → aggregate → commit
// pass. Network and parse failures downgrade the cycle to zero trees;
// anything else, a panic included, is logged and swallowed so the loop
// keeps its durability guarantee.
func (p *Poller) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("poll cycle panicked", zap.Any("panic", r))
		}
	}()

	// The address is re-read every cycle; a Set between cycles takes
	// effect here.
	address := p.target.Address()

	raw, err := p.fetcher.Fetch(ctx, address)
	if err != nil {
		p.logCycleError("fetch failed, skipping cycle", address, err)
		return
	}

	trees, err := calltree.Parse(raw)
	if err != nil {
		p.logCycleError("parse failed, skipping cycle", address, err)
		return
	}

	batch := aggregate.NewBatch()
	for _, tree := range trees {
		if !p.registry.Register(tree.ID) {
			continue
		}
		p.agg.RecordTree(tree)

		spans, err := calltree.Flatten(tree)
		if err != nil {
			p.logger.Warn("skipping malformed tree",
				zap.String("tree_id", tree.ID), zap.Error(err))
			continue
		}
		batch.Add(spans)

		if p.exporter != nil {
			if err := p.exporter.ExportTree(ctx, tree, spans); err != nil {
				p.logger.Warn("span export failed",
					zap.String("tree_id", tree.ID), zap.Error(err))
			}
		}
	}

	p.agg.Commit(batch, time.Now())

	p.logger.Debug("poll cycle committed",
		zap.String("address", address),
		zap.Int("trees", len(trees)),
		zap.Int("trees_seen", p.agg.Current().TreesSeen))
}

// logCycleError classifies a cycle failure: expected transport and
// document problems log at warn, anything unclassified at error. Either
// way the loop continues.
func (p *Poller) logCycleError(msg, address string, err error) {
	var nerr *fetch.NetworkError
	var perr *calltree.ParseError

	switch {
	case errors.As(err, &nerr):
		p.logger.Warn(msg, zap.String("address", address),
			zap.String("class", "network"), zap.Error(err))
	case errors.As(err, &perr):
		p.logger.Warn(msg, zap.String("address", address),
			zap.String("class", "parse"), zap.Error(err))
	default:
		p.logger.Error(msg, zap.String("address", address), zap.Error(err))
	}
}
