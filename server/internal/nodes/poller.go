package nodes

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// maxConcurrentScrapes bounds the fan-out of one poll round.
const maxConcurrentScrapes = 8

// NodeScraper turns one target into a node descriptor.
type NodeScraper interface {
	Scrape(ctx context.Context, t Target) (types.NodeDescriptor, error)
}

// Poller refreshes a Registry by scraping every target on a fixed interval.
type Poller struct {
	reg      *Registry
	scraper  NodeScraper
	interval time.Duration
}

// NewPoller creates a Poller that feeds reg.
func NewPoller(reg *Registry, scraper NodeScraper, interval time.Duration) *Poller {
	return &Poller{reg: reg, scraper: scraper, interval: interval}
}

// Poll runs one scrape round over the registry's current targets. A failed
// scrape is logged and leaves that node's previous entry to age out.
// It returns how many nodes were refreshed and how many failed.
func (p *Poller) Poll(ctx context.Context) (ok, failed int) {
	targets := p.reg.Targets()
	results := make([]bool, len(targets))

	var g errgroup.Group
	g.SetLimit(maxConcurrentScrapes)
	for i, t := range targets {
		g.Go(func() error {
			node, err := p.scraper.Scrape(ctx, t)
			if err != nil {
				slog.Warn("nodes: scrape failed", "node", t.Address, "role", t.Role, "err", err)
				return nil
			}
			if prev, ok := p.reg.Get(t.Address); ok && !prev.Node.StartedAt.Equal(node.StartedAt) {
				slog.Info("nodes: node restarted", "node", t.Address, "role", t.Role,
					"previous_start", prev.Node.StartedAt, "start", node.StartedAt)
			}
			results[i] = p.reg.Put(t.Role, node)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ok, failed := p.Poll(ctx)
	slog.Info("nodes: initial scrape complete", "ok", ok, "failed", failed, "held", p.reg.Count())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, failed := p.Poll(ctx)
			slog.Debug("nodes: scrape round", "ok", ok, "failed", failed, "held", p.reg.Count())
		}
	}
}
