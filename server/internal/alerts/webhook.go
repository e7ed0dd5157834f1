package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// sourceScopePrefix labels per-source scopes in notification text.
const sourceScopePrefix = "source "

// notifier renders one alert for one kind of webhook receiver.
type notifier func(a *Alert) any

var notifiers = map[string]notifier{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  httpPayload,
}

// deliver posts a to every configured webhook. Failures are logged per target.
// Posts are abandoned when ctx is cancelled.
func (e *Engine) deliver(ctx context.Context, a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		render, ok := notifiers[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		body, err := json.Marshal(render(a))
		if err == nil {
			err = e.post(ctx, url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"scope", a.Scope,
				"err", err,
			)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type,
			"rule", a.RuleName,
			"scope", a.Scope,
			"state", a.State,
		)
	}
}

// scopeLabel names where the alert applies in human-readable text.
func scopeLabel(scope string) string {
	if scope == clusterScope {
		return clusterScope
	}
	return sourceScopePrefix + strconv.Quote(scope)
}

func headline(a *Alert) string {
	if a.State == StateResolved {
		return fmt.Sprintf("%s resolved on %s", a.RuleName, scopeLabel(a.Scope))
	}
	return fmt.Sprintf("%s firing on %s", a.RuleName, scopeLabel(a.Scope))
}

func slackPayload(a *Alert) any {
	return map[string]string{
		"text": fmt.Sprintf("*%s* %s (value %g)\n%s", severityLabel(a.Severity), headline(a), a.Value, a.Message),
	}
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func teamsPayload(a *Alert) any {
	facts := []teamsFact{
		{Name: "Rule", Value: a.RuleName},
		{Name: "Scope", Value: a.Scope},
		{Name: "Value", Value: strconv.FormatFloat(a.Value, 'g', -1, 64)},
		{Name: "State", Value: a.State},
		{Name: "Fired at", Value: a.FiredAt.UTC().Format(time.RFC3339)},
	}
	if a.ResolvedAt != nil {
		facts = append(facts, teamsFact{Name: "Resolved at", Value: a.ResolvedAt.UTC().Format(time.RFC3339)})
	}
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity, a.State),
		"summary":    headline(a),
		"title":      "Cluster alert: " + headline(a),
		"sections": []map[string]any{{
			"text":  a.Message,
			"facts": facts,
		}},
	}
}

func httpPayload(a *Alert) any {
	return map[string]any{"alert": a}
}

func (e *Engine) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

// severityColor is green for resolved alerts regardless of severity.
func severityColor(severity, state string) string {
	if state == StateResolved {
		return "2EB67D"
	}
	switch severity {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
