package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLowTrustRate      AlertType = "low_trust_rate"
	AlertLowConfidenceRate AlertType = "low_confidence_rate"
)

// Alert is one breached threshold, posted to the webhook as JSON.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// rateRule fires when the share of assessments under a score cutoff
// exceeds a rate threshold. A zero threshold disables the rule.
type rateRule struct {
	typ       AlertType
	severity  string
	score     string // label of the score compared against cutoff
	countKey  string
	cutoff    float64
	threshold float64
	pick      func(s *Snapshot) (count int, rate, mean float64)
}

func (r rateRule) eval(s *Snapshot, now time.Time) (Alert, bool) {
	count, rate, mean := r.pick(s)
	if r.threshold <= 0 || rate <= r.threshold {
		return Alert{}, false
	}
	details := map[string]any{
		"threshold":   r.threshold,
		"assessments": s.Assessments,
	}
	details[string(r.typ)] = rate
	details[r.countKey] = count
	details["mean_"+r.score] = mean

	return Alert{
		Type:     r.typ,
		Severity: r.severity,
		Message: fmt.Sprintf("%d of %d assessments scored %s below %.0f in the last %dh (%.1f%%, threshold %.1f%%)",
			count, s.Assessments, r.score, r.cutoff, s.LookbackHours, rate*100, r.threshold*100),
		Details:   details,
		Timestamp: now,
	}, true
}

// Alerter turns snapshots into alerts and posts them to a webhook.
type Alerter struct {
	rules      []rateRule
	minSample  int
	webhookURL string
	client     *http.Client
}

// NewAlerter builds the low-trust and low-confidence rules from cfg.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		rules: []rateRule{
			{
				typ:       AlertLowTrustRate,
				severity:  "high",
				score:     "dis",
				countKey:  "low_trust",
				cutoff:    cfg.LowTrustScore,
				threshold: cfg.LowTrustRateThreshold,
				pick: func(s *Snapshot) (int, float64, float64) {
					return s.LowTrust, s.LowTrustRate, s.DISOption1.Mean
				},
			},
			{
				typ:       AlertLowConfidenceRate,
				severity:  "medium",
				score:     "cs",
				countKey:  "low_confidence",
				cutoff:    cfg.LowConfidenceScore,
				threshold: cfg.LowConfidenceRateThreshold,
				pick: func(s *Snapshot) (int, float64, float64) {
					return s.LowConfidence, s.LowConfidenceRate, s.CS.Mean
				},
			},
		},
		minSample:  cfg.MinAssessments,
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns the alerts snap breaches, in rule order. Windows smaller
// than the configured minimum sample never alert.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	if snap == nil || snap.Assessments == 0 || snap.Assessments < a.minSample {
		return nil
	}

	now := time.Now().UTC()
	var out []Alert
	for _, r := range a.rules {
		if al, ok := r.eval(snap, now); ok {
			out = append(out, al)
		}
	}
	return out
}

// SendAlerts posts each alert to the webhook and returns how many were
// accepted. Without a webhook nothing is sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.webhookURL == "" {
		return 0
	}

	sent := 0
	for _, al := range alerts {
		log := zap.L().With(zap.String("type", string(al.Type)), zap.String("severity", al.Severity))
		if err := a.post(ctx, al); err != nil {
			log.Error("monitoring: alert delivery failed", zap.Error(err))
			continue
		}
		log.Info("monitoring: alert delivered")
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, al Alert) error {
	body, err := json.Marshal(al)
	if err != nil {
		return eris.Wrap(err, "monitoring: encode alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: post webhook")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusBadRequest {
		return eris.Errorf("monitoring: webhook answered %s", resp.Status)
	}
	return nil
}
