package content

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Tracker is the scoped pending-operations set that replaces ambient
// global mutation: every tracked mutation registers on start and settles
// on completion, success or failure. The count is advisory: it feeds
// "you have unsaved changes" warnings, it does not block anything.
type Tracker struct {
	mu  sync.Mutex
	ops map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{ops: make(map[string]struct{})}
}

// Begin registers an operation and returns its settle func. Settling
// twice is harmless.
func (t *Tracker) Begin(name string) func() {
	id := name + ":" + uuid.NewString()
	t.mu.Lock()
	t.ops[id] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.ops, id)
			t.mu.Unlock()
		})
	}
}

func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// RevertStrategy selects how a failed mutation rolls back local state.
type RevertStrategy int

const (
	// FieldRestore puts back the specific prior value; used for leaf
	// edits where precise, instant rollback matters.
	FieldRestore RevertStrategy = iota
	// FullRefetch re-reads the whole owning collection from the
	// repository; used for structural edits where partial local
	// patching risks divergence from server truth.
	FullRefetch
)

// Mutation is the explicit applyLocal/commitRemote/revertLocal triad.
// ApplyLocal runs first so the UI reflects the edit immediately; if
// CommitRemote fails, rollback follows the chosen strategy.
type Mutation struct {
	Name         string
	Strategy     RevertStrategy
	ApplyLocal   func()
	CommitRemote func(ctx context.Context) error
	RevertLocal  func()
	Refetch      func(ctx context.Context) error
}

// Run executes the triad, registering with the tracker for its
// duration. The commit error is returned after rollback completes.
func (m Mutation) Run(ctx context.Context, tracker *Tracker) error {
	var settle func()
	if tracker != nil {
		settle = tracker.Begin(m.Name)
		defer settle()
	}

	if m.ApplyLocal != nil {
		m.ApplyLocal()
	}

	err := m.CommitRemote(ctx)
	if err == nil {
		return nil
	}

	switch m.Strategy {
	case FieldRestore:
		if m.RevertLocal != nil {
			m.RevertLocal()
		}
	case FullRefetch:
		if m.RevertLocal != nil {
			m.RevertLocal()
		}
		if m.Refetch != nil {
			// Rollback by re-reading server truth; a refetch failure
			// leaves the next successful fetch to reconcile.
			_ = m.Refetch(ctx)
		}
	}
	return err
}

// TempIDPrefix marks client-generated placeholder ids used by
// optimistic inserts, distinguishable from server ids.
const TempIDPrefix = "tmp-"

func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
