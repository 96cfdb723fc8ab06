package auth

import (
	"context"
	"time"

	"cravings/common"
)

// EnsurePersisted reports whether the session behind a token is stable
// enough to proceed with an edit: present and not expired. It waits
// briefly first so that an in-flight auth transition can settle.
func (s *Service) EnsurePersisted(ctx context.Context, token string) bool {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return false
	}

	session, err := s.GetCurrentSession(token)
	if err != nil {
		common.Log.Warn().Err(err).Msg("auth session error")
		return false
	}
	if session == nil {
		common.Log.Warn().Msg("no active session found")
		return false
	}
	if session.Expired() {
		common.Log.Warn().Msg("session expired")
		return false
	}
	return true
}

// CheckWithTimeout races a health check against a timer. A check that
// neither resolves nor rejects within the timeout is treated identically
// to a negative result.
func CheckWithTimeout(ctx context.Context, timeout time.Duration, check func(context.Context) bool) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- check(ctx)
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	}
}

// RetryPolicy makes retry behavior explicit at each mutating call site:
// how many attempts, how long to wait between them, and what must hold
// before each attempt is allowed to run.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	PreCheck    func(ctx context.Context) error
}

// DefaultRetryPolicy mirrors the save-with-auth-retry behavior: three
// attempts with linear backoff, each gated on a session pre-check.
func DefaultRetryPolicy(svc *Service, token func() string) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		PreCheck: func(ctx context.Context) error {
			if !svc.EnsurePersisted(ctx, token()) {
				return ErrNotAuthenticated
			}
			return nil
		},
	}
}

// Run executes op under the policy. Attempts failing the pre-check or
// the operation itself are retried after the backoff delay; the last
// error is returned once attempts are exhausted.
func (p RetryPolicy) Run(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.PreCheck != nil {
			if err := p.PreCheck(ctx); err != nil {
				lastErr = err
				if attempt == attempts {
					break
				}
				if !p.wait(ctx, attempt) {
					return ctx.Err()
				}
				continue
			}
		}

		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
		common.Log.Warn().Err(lastErr).Int("attempt", attempt).Msg("save attempt failed")

		if attempt < attempts && !p.wait(ctx, attempt) {
			return ctx.Err()
		}
	}
	return lastErr
}

func (p RetryPolicy) wait(ctx context.Context, attempt int) bool {
	if p.Backoff == nil {
		return true
	}
	select {
	case <-time.After(p.Backoff(attempt)):
		return true
	case <-ctx.Done():
		return false
	}
}
