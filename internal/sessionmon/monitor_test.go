package sessionmon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"callsight/internal/auth"
)

type fakeTokens struct {
	mu       sync.Mutex
	token    string
	validErr error
	checks   int
}

func (f *fakeTokens) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokens) ValidToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.validErr != nil {
		f.token = ""
		return "", f.validErr
	}
	return f.token, nil
}

func (f *fakeTokens) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

type fakeNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeNotifier) NotifySessionExpired(ctx context.Context, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reasons)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMonitor_SkipsWhenSignedOut(t *testing.T) {
	tokens := &fakeTokens{}
	monitor := NewMonitor(tokens, nil, time.Hour, testLogger())

	monitor.tick()
	assert.Equal(t, 0, tokens.checkCount(), "no validity check without a session")
}

func TestMonitor_ChecksLiveSession(t *testing.T) {
	tokens := &fakeTokens{token: "A1"}
	monitor := NewMonitor(tokens, nil, time.Hour, testLogger())

	monitor.tick()
	assert.Equal(t, 1, tokens.checkCount())
	assert.Equal(t, "A1", tokens.AccessToken())
}

func TestMonitor_NotifiesOnTerminalFailure(t *testing.T) {
	tokens := &fakeTokens{
		token:    "A1",
		validErr: &auth.Error{Kind: auth.KindRefreshFailure, Message: "revoked"},
	}
	notifier := &fakeNotifier{}
	monitor := NewMonitor(tokens, notifier, time.Hour, testLogger())

	monitor.tick()
	assert.Equal(t, 1, notifier.count())
	assert.Empty(t, tokens.AccessToken())

	// Subsequent ticks see no session and stay quiet.
	monitor.tick()
	assert.Equal(t, 1, notifier.count())
}

func TestMonitor_NonTerminalFailureIsRetried(t *testing.T) {
	tokens := &fakeTokens{token: "A1", validErr: context.DeadlineExceeded}
	notifier := &fakeNotifier{}
	monitor := NewMonitor(tokens, notifier, time.Hour, testLogger())

	monitor.tick()
	assert.Equal(t, 0, notifier.count(), "transient failures must not page anyone")
}

func TestMonitor_StartStop(t *testing.T) {
	tokens := &fakeTokens{token: "A1"}
	monitor := NewMonitor(tokens, nil, 10*time.Millisecond, testLogger())

	done := make(chan struct{})
	go func() {
		monitor.Start()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	monitor.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Greater(t, tokens.checkCount(), 0)
}
