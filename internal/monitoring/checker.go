package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

type snapshotter interface {
	Collect(ctx context.Context, lookbackHours int) (*Snapshot, error)
}

type notifier interface {
	Evaluate(snap *Snapshot) []Alert
	SendAlerts(ctx context.Context, alerts []Alert) int
}

// Checker evaluates the lookback window on a timer and notifies on
// breaches. An alert type already delivered is held back until the
// lookback window has passed, so one bad batch pages once.
type Checker struct {
	snaps    snapshotter
	notify   notifier
	interval time.Duration
	lookback int
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[AlertType]time.Time
}

// NewChecker creates a background alert checker.
func NewChecker(snaps snapshotter, notify notifier, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		snaps:    snaps,
		notify:   notify,
		interval: interval,
		lookback: cfg.LookbackWindowHours,
		now:      time.Now,
		lastSent: make(map[AlertType]time.Time),
	}
}

// Run checks once per interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("alert checker started", zap.Duration("interval", c.interval), zap.Int("lookback_hours", c.lookback))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check evaluates one snapshot and delivers the alerts not recently sent.
// It returns every alert that fired, delivered or not.
func (c *Checker) Check(ctx context.Context) []Alert {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.snaps.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect snapshot", zap.Error(err))
		return nil
	}

	fired := c.notify.Evaluate(snap)
	if len(fired) == 0 {
		log.Debug("monitoring: window healthy", zap.Int("assessments", snap.Assessments))
		return nil
	}

	due := c.due(fired)
	sent := 0
	if len(due) > 0 {
		sent = c.notify.SendAlerts(ctx, due)
	}
	log.Info("monitoring: thresholds breached",
		zap.Int("fired", len(fired)),
		zap.Int("suppressed", len(fired)-len(due)),
		zap.Int("sent", sent),
	)
	return fired
}

// due filters out alert types delivered within the lookback window and
// records the rest as sent.
func (c *Checker) due(fired []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	quiet := time.Duration(c.lookback) * time.Hour
	var out []Alert
	for _, al := range fired {
		if last, ok := c.lastSent[al.Type]; ok && now.Sub(last) < quiet {
			continue
		}
		c.lastSent[al.Type] = now
		out = append(out, al)
	}
	return out
}
