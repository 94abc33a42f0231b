package sessionmon

import (
	"context"
	"log/slog"
	"time"

	"callsight/internal/auth"
)

// Tokens is the slice of the token manager the monitor needs
type Tokens interface {
	AccessToken() string
	ValidToken(ctx context.Context) (string, error)
}

// Notifier receives terminal session failures
type Notifier interface {
	NotifySessionExpired(ctx context.Context, reason string) error
}

// Monitor periodically checks that the stored session is still viable,
// refreshing proactively through ValidToken. The check is best effort: a
// terminal refresh failure means the session is gone, which is logged and
// forwarded to the notifier; everything else is left for the request path
// to handle.
type Monitor struct {
	tokens   Tokens
	notifier Notifier
	interval time.Duration
	stopChan chan struct{}
	logger   *slog.Logger
}

// NewMonitor creates a session monitor. notifier may be nil.
func NewMonitor(tokens Tokens, notifier Notifier, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		tokens:   tokens,
		notifier: notifier,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logger.With("component", "sessionmon"),
	}
}

// Start begins the monitor loop
func (m *Monitor) Start() {
	m.logger.Info("Session monitor started", "interval", m.interval.String())
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-m.stopChan:
			m.logger.Info("Session monitor stopped")
			return
		}
	}
}

// Stop stops the monitor
func (m *Monitor) Stop() {
	close(m.stopChan)
}

// tick performs one validity check
func (m *Monitor) tick() {
	if m.tokens.AccessToken() == "" {
		// Nothing to watch until someone signs in.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := m.tokens.ValidToken(ctx)
	if err == nil {
		m.logger.Debug("session check passed")
		return
	}

	if !auth.IsTerminal(err) {
		m.logger.Warn("session check failed, will retry next tick", "error", err)
		return
	}

	m.logger.Warn("session terminated, tokens cleared", "error", err)
	if m.notifier != nil {
		if notifyErr := m.notifier.NotifySessionExpired(ctx, err.Error()); notifyErr != nil {
			m.logger.Error("failed to send session-expired notification", "error", notifyErr)
		}
	}
}
