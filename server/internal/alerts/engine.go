package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/clusterstats/server/internal/config"
	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1

	// clusterScope is the scope of rules over cluster-wide fields.
	clusterScope = "cluster"
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Scope      string     `json:"scope"` // "cluster" or a source ID
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against cluster snapshots and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:scope"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time

	// ctx scopes webhook posts; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Engine from the server alert configuration. Rules whose
// condition does not parse are logged and skipped; an Engine with no rules
// is valid and Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	for _, r := range cfg.Rules {
		c, ok := parseCondition(r.Condition)
		if !ok {
			slog.Warn("alerts: invalid rule condition, skipping", "rule", r.Name, "condition", r.Condition)
			continue
		}
		if r.Cooldown <= 0 {
			r.Cooldown = defaultCooldown
		}
		if r.Severity == "" {
			r.Severity = "warning"
		}
		e.rules = append(e.rules, rule{AlertRule: r, cond: c})
	}
	return e
}

// observation is one rule evaluated in one scope.
type observation struct {
	scope string
	fires bool
	value float64
}

func (r rule) observe(snap stats.ClusterSnapshot) []observation {
	if !r.cond.perSource() {
		v, _ := clusterField(r.cond.field, snap)
		return []observation{{scope: clusterScope, fires: compareFloat(v, r.cond.op, r.cond.threshold), value: v}}
	}
	out := make([]observation, 0, len(snap.Sources))
	for _, s := range snap.Sources {
		v, _ := sourceField(r.cond.field, s)
		out = append(out, observation{scope: s.ID, fires: compareFloat(v, r.cond.op, r.cond.threshold), value: v})
	}
	return out
}

// Evaluate tests all configured rules against snap. Firing alerts are stored
// and webhook delivery runs asynchronously. Alerts that were firing but whose
// condition is now false are resolved, including per-source alerts whose
// source no longer appears in the snapshot.
func (e *Engine) Evaluate(snap stats.ClusterSnapshot) {
	if len(e.rules) == 0 {
		return
	}

	e.mu.Lock()
	now := e.now()
	var outbox []Alert
	for _, r := range e.rules {
		seen := make(map[string]bool)
		for _, o := range r.observe(snap) {
			key := r.Name + ":" + o.scope
			seen[key] = true
			if o.fires {
				if a, ok := e.fire(r, o, key, now); ok {
					outbox = append(outbox, a)
				}
			} else if a, ok := e.resolve(key, now); ok {
				outbox = append(outbox, a)
			}
		}
		for key, a := range e.active {
			if a.RuleName == r.Name && !seen[key] {
				if ra, ok := e.resolve(key, now); ok {
					outbox = append(outbox, ra)
				}
			}
		}
	}
	e.mu.Unlock()

	for i := range outbox {
		a := outbox[i]
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.deliver(e.ctx, &a)
		}()
	}
}

// fire records a firing alert unless the rule is already firing in that scope
// or still cooling down. Caller holds e.mu.
func (e *Engine) fire(r rule, o observation, key string, now time.Time) (Alert, bool) {
	if _, firing := e.active[key]; firing {
		return Alert{}, false
	}
	if now.Sub(e.lastFire[key]) <= r.Cooldown {
		return Alert{}, false
	}
	a := &Alert{
		ID:       fmt.Sprintf("%s:%s:%d", r.Name, o.scope, now.UnixNano()),
		RuleName: r.Name,
		Scope:    o.scope,
		Severity: r.Severity,
		Value:    o.value,
		Message:  fmt.Sprintf("[%s] %s fired on %s: %s = %g", r.Severity, r.Name, o.scope, r.Condition, o.value),
		FiredAt:  now,
		State:    StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now

	slog.Warn("alerts: alert fired", "rule", r.Name, "scope", o.scope, "value", o.value, "severity", r.Severity)
	return *a, true
}

// resolve moves a firing alert into history. Caller holds e.mu.
func (e *Engine) resolve(key string, now time.Time) (Alert, bool) {
	a, ok := e.active[key]
	if !ok {
		return Alert{}, false
	}
	resolved := now
	a.State = StateResolved
	a.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}

	slog.Info("alerts: alert resolved", "rule", a.RuleName, "scope", a.Scope)
	return *a, true
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return latest(out[i]).After(latest(out[j])) })
	return out
}

func latest(a Alert) time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}

// Close cancels in-flight webhook deliveries and waits for them to return.
// Alerts fired after Close are still recorded but not delivered.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// wait blocks until queued deliveries finish without cancelling them.
func (e *Engine) wait() {
	e.wg.Wait()
}
