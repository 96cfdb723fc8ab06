package auth

import (
	"sync"
	"time"

	"cravings/common"
)

// Snapshot is the reactive auth view consumed by the editable
// components: who is signed in, whether they are admin, and whether the
// initial resolution is still in flight.
type Snapshot struct {
	User      *Session
	IsAdmin   bool
	IsLoading bool
}

// State tracks the current session and role. It resolves once on
// construction, re-resolves on every session-change notification
// (debounced so rapid auth churn collapses into one role lookup), and
// re-validates when a backgrounded tab becomes visible again. No
// failure here may ever block page rendering: errors resolve to
// non-admin.
type State struct {
	svc      *Service
	token    func() string
	debounce time.Duration

	mu          sync.Mutex
	snap        Snapshot
	timer       *time.Timer
	visible     bool
	unsubscribe func()
}

func NewState(svc *Service, token func() string) *State {
	s := &State{
		svc:      svc,
		token:    token,
		debounce: 100 * time.Millisecond,
		snap:     Snapshot{IsLoading: true},
		visible:  true,
	}
	s.unsubscribe = svc.OnSessionChange(func(*Session) {
		s.scheduleResolve()
	})
	s.resolve()
	return s
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *State) IsAdmin() bool {
	return s.Snapshot().IsAdmin
}

// SetVisible reports tab visibility. A hidden-to-visible transition
// re-validates the session, since it may have silently expired while
// the tab was backgrounded.
func (s *State) SetVisible(visible bool) {
	s.mu.Lock()
	wasVisible := s.visible
	s.visible = visible
	s.mu.Unlock()

	if visible && !wasVisible {
		s.resolve()
	}
}

// Refresh forces an immediate re-resolution.
func (s *State) Refresh() {
	s.resolve()
}

func (s *State) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
}

// scheduleResolve collapses notifications arriving within the debounce
// window into a single resolution pass.
func (s *State) scheduleResolve() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.resolve)
}

func (s *State) resolve() {
	session, err := s.svc.GetCurrentSession(s.token())
	if err != nil {
		common.Log.Warn().Err(err).Msg("session fetch failed, resolving to anonymous")
		session = nil
	}

	isAdmin := false
	if session != nil {
		role, err := s.svc.GetRole(session.UserID)
		if err != nil {
			common.Log.Warn().Err(err).Msg("role fetch failed, resolving to non-admin")
		} else {
			isAdmin = role == "admin"
		}
	}

	s.mu.Lock()
	s.snap = Snapshot{User: session, IsAdmin: isAdmin, IsLoading: false}
	s.mu.Unlock()
}
