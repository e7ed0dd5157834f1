package nodes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/obsidianstack/clusterstats/pkg/types"
	"github.com/obsidianstack/clusterstats/server/internal/config"
)

// Role distinguishes coordinator nodes from executor nodes.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleExecutor    Role = "executor"
)

// Target is one node the poller scrapes.
type Target struct {
	Address    string
	MetricsURL string
	Role       Role
}

// TargetsFromConfig flattens the configured nodes into scrape targets,
// coordinators first, each group in file order.
func TargetsFromConfig(cfg config.NodesConfig) []Target {
	out := make([]Target, 0, len(cfg.Coordinators)+len(cfg.Executors))
	for _, n := range cfg.Coordinators {
		out = append(out, Target{Address: n.Address, MetricsURL: n.EffectiveMetricsURL(), Role: RoleCoordinator})
	}
	for _, n := range cfg.Executors {
		out = append(out, Target{Address: n.Address, MetricsURL: n.EffectiveMetricsURL(), Role: RoleExecutor})
	}
	return out
}

// Entry is a node descriptor together with the time it was last scraped.
type Entry struct {
	Node      types.NodeDescriptor
	Role      Role
	UpdatedAt time.Time
}

// Registry is a thread-safe in-memory node store keyed by address.
// A background goroutine (Run) periodically evicts entries that have not
// been refreshed within the configured TTL.
type Registry struct {
	mu      sync.RWMutex
	data    map[string]*Entry
	targets []Target
	ttl     time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// NewRegistry creates a Registry with the given TTL.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// SetTargets replaces the configured target list. Entries for addresses that
// are no longer targeted, or whose role changed, are dropped immediately.
func (r *Registry) SetTargets(targets []Target) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.targets = append([]Target(nil), targets...)
	roles := make(map[string]Role, len(targets))
	for _, t := range targets {
		roles[t.Address] = t.Role
	}
	for addr, e := range r.data {
		if role, ok := roles[addr]; !ok || role != e.Role {
			delete(r.data, addr)
		}
	}
}

// Targets returns a copy of the configured target list.
func (r *Registry) Targets() []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Target(nil), r.targets...)
}

// Put stores or replaces the descriptor for node.Address. It reports false and
// stores nothing when the address is not a current target with that role, so
// a scrape that raced a reload cannot resurrect a removed node.
func (r *Registry) Put(role Role, node types.NodeDescriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.targeted(node.Address, role) {
		return false
	}
	r.data[node.Address] = &Entry{Node: node, Role: role, UpdatedAt: r.now()}
	return true
}

func (r *Registry) targeted(addr string, role Role) bool {
	for _, t := range r.targets {
		if t.Address == addr {
			return t.Role == role
		}
	}
	return false
}

// Get returns the Entry for addr and whether one was found. The entry may be
// stale if the TTL has elapsed.
func (r *Registry) Get(addr string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.data[addr]
	return e, ok
}

// List returns the live descriptors for role in configured target order.
// Stale entries that have not yet been evicted are excluded.
func (r *Registry) List(role Role) []types.NodeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := r.now().Add(-r.ttl)
	out := make([]types.NodeDescriptor, 0, len(r.targets))
	for _, t := range r.targets {
		if t.Role != role {
			continue
		}
		if e, ok := r.data[t.Address]; ok && e.UpdatedAt.After(cutoff) {
			out = append(out, e.Node)
		}
	}
	return out
}

// Coordinators returns the live coordinator nodes.
func (r *Registry) Coordinators(context.Context) ([]types.NodeDescriptor, error) {
	return r.List(RoleCoordinator), nil
}

// Executors returns the live executor nodes.
func (r *Registry) Executors(context.Context) ([]types.NodeDescriptor, error) {
	return r.List(RoleExecutor), nil
}

// Count returns the total number of entries currently held, including stale ones.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := now.Add(-r.ttl)
	removed := 0
	for addr, e := range r.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(r.data, addr)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := r.Evict(now); n > 0 {
				slog.Debug("nodes: evicted stale nodes", "count", n)
			}
		}
	}
}
