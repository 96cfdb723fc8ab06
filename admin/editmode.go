package admin

import (
	"context"
	"sync"
	"time"

	"cravings/auth"
	"cravings/content"
)

// Toggle is the page-wide edit-mode flag. It only changes how edit
// affordances render; the data contract underneath is untouched.
// Entering edit mode is gated by a session-health check bounded by a
// timeout, so a hung check reads as a failure instead of a stuck
// toggle.
type Toggle struct {
	authState *auth.State
	svc       *auth.Service
	token     func() string
	tracker   *content.Tracker

	HealthTimeout time.Duration

	mu      sync.Mutex
	enabled bool
	lastErr string
}

const defaultHealthTimeout = 5 * time.Second

func NewToggle(authState *auth.State, svc *auth.Service, token func() string, tracker *content.Tracker) *Toggle {
	return &Toggle{
		authState:     authState,
		svc:           svc,
		token:         token,
		tracker:       tracker,
		HealthTimeout: defaultHealthTimeout,
	}
}

// Visible reports whether the toggle should render at all.
func (t *Toggle) Visible() bool {
	return t.authState.IsAdmin()
}

func (t *Toggle) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// LastError returns the dismissible error from a failed enable, "" when
// there is none.
func (t *Toggle) LastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Toggle) DismissError() {
	t.mu.Lock()
	t.lastErr = ""
	t.mu.Unlock()
}

// Enable runs the pre-flight session-health check and flips the toggle
// on only if it passes. A check that neither resolves nor rejects
// within HealthTimeout counts as a failure; the toggle is never left
// half enabled.
func (t *Toggle) Enable(ctx context.Context) error {
	if !t.authState.IsAdmin() {
		return content.ErrNotAdmin
	}

	healthy := auth.CheckWithTimeout(ctx, t.HealthTimeout, func(ctx context.Context) bool {
		return t.svc.EnsurePersisted(ctx, t.token())
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	if !healthy {
		t.enabled = false
		t.lastErr = "Session check failed. Please refresh the page and try again."
		return content.ErrSessionCheck
	}
	t.enabled = true
	t.lastErr = ""
	return nil
}

// Disable flips the toggle off. When tracked operations are still
// pending, confirm is consulted first; declining keeps edit mode on.
// The pending operations themselves run to completion either way.
func (t *Toggle) Disable(confirm func(pending int) bool) bool {
	if pending := t.tracker.Pending(); pending > 0 && confirm != nil {
		if !confirm(pending) {
			return false
		}
	}
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()
	return true
}
