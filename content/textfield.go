package content

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"cravings/auth"
	"cravings/common"
)

// FieldKind is the tagged variant choosing how a text field renders and
// behaves: which semantic element it occupies when viewing, and whether
// Enter commits (single-line) or inserts a newline (multi-line).
type FieldKind int

const (
	Heading FieldKind = iota
	Paragraph
	Span
	SingleLineInput
	MultiLineInput
)

func (k FieldKind) MultiLine() bool {
	return k == MultiLineInput
}

// renderers maps each kind to its concrete view-mode render function.
// Text is always escaped; content blocks are plain text, not HTML.
var renderers = map[FieldKind]func(string) string{
	Heading:         func(s string) string { return "<h2>" + html.EscapeString(s) + "</h2>" },
	Paragraph:       func(s string) string { return "<p>" + html.EscapeString(s) + "</p>" },
	Span:            func(s string) string { return "<span>" + html.EscapeString(s) + "</span>" },
	SingleLineInput: func(s string) string { return "<span>" + html.EscapeString(s) + "</span>" },
	MultiLineInput:  func(s string) string { return "<p>" + html.EscapeString(s) + "</p>" },
}

// FieldState is the text field's editing state machine position.
type FieldState int

const (
	Viewing FieldState = iota
	Editing
	Saving
	// Failed is terminal: saving failed repeatedly and the field asks
	// for a page refresh instead of retrying silently.
	Failed
)

var (
	ErrNotAdmin     = errors.New("editing requires admin")
	ErrSaveInFlight = errors.New("a save is already in flight")
	ErrFieldFailed  = errors.New("field failed, refresh the page")
)

const (
	defaultBlurDelay   = 150 * time.Millisecond
	defaultMaxFailures = 3
)

// TextField is one inline-editable text block bound to a
// (componentName, blockKey) pair. Visitors see the persisted text (or
// the default); an admin can edit in place. Saves are serialized per
// field: a new save attempt while one is in flight is dropped, not
// queued.
type TextField struct {
	repo    Repository
	auth    *auth.State
	tracker *Tracker

	// Retry drives each commit: session pre-check, bounded attempts,
	// backoff between them.
	Retry auth.RetryPolicy

	component   string
	key         string
	defaultText string
	kind        FieldKind

	mu        sync.Mutex
	text      string
	draft     string
	state     FieldState
	lastErr   string
	failures  int
	maxFails  int
	blurDelay time.Duration
	blurTimer *time.Timer
}

func NewTextField(repo Repository, authState *auth.State, svc *auth.Service, token func() string, tracker *Tracker, componentName, blockKey, defaultText string, kind FieldKind) *TextField {
	return &TextField{
		repo:        repo,
		auth:        authState,
		tracker:     tracker,
		Retry:       auth.DefaultRetryPolicy(svc, token),
		component:   componentName,
		key:         blockKey,
		defaultText: defaultText,
		kind:        kind,
		text:        defaultText,
		maxFails:    defaultMaxFailures,
		blurDelay:   defaultBlurDelay,
	}
}

// Load fetches the persisted content. A missing row or a fetch failure
// silently falls back to the default text; this is expected steady
// state for blocks that were never edited.
func (f *TextField) Load(ctx context.Context) {
	content, err := f.repo.FetchBlock(f.component, f.key)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil || content == "" {
		f.text = f.defaultText
		return
	}
	f.text = content
}

func (f *TextField) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

func (f *TextField) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *TextField) State() FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *TextField) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// RenderHTML is the visitor-facing view: the kind's semantic element
// with the current text escaped into it.
func (f *TextField) RenderHTML() string {
	return renderers[f.kind](f.Text())
}

// StartEdit moves viewing -> editing. Blocked entirely for non-admins
// and while a save is in flight.
func (f *TextField) StartEdit() error {
	if !f.auth.IsAdmin() {
		return ErrNotAdmin
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Saving:
		return ErrSaveInFlight
	case Failed:
		return ErrFieldFailed
	case Editing:
		return nil
	}
	f.state = Editing
	f.draft = f.text
	f.lastErr = ""
	return nil
}

func (f *TextField) SetDraft(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Editing {
		f.draft = text
	}
}

// Cancel is the Escape path: the draft is discarded and the
// last-persisted text restored, no save.
func (f *TextField) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blurTimer != nil {
		f.blurTimer.Stop()
	}
	if f.state != Editing {
		return
	}
	f.state = Viewing
	f.draft = ""
	f.lastErr = ""
}

// SubmitEnter handles the Enter key. In single-line kinds it commits
// the draft, winning the race against any pending blur save; in
// multi-line kinds Enter is just a newline and does nothing here.
func (f *TextField) SubmitEnter(ctx context.Context) error {
	if f.kind.MultiLine() {
		return nil
	}
	f.mu.Lock()
	if f.blurTimer != nil {
		f.blurTimer.Stop()
	}
	f.mu.Unlock()
	return f.save(ctx)
}

// Save is the explicit save action.
func (f *TextField) Save(ctx context.Context) error {
	return f.save(ctx)
}

// Blur schedules a save after a short delay so that an Enter-triggered
// save from the same interaction wins. If the field has left editing
// state by the time the timer fires, the blur save is dropped.
func (f *TextField) Blur() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Editing || f.lastErr != "" {
		return
	}
	if f.blurTimer != nil {
		f.blurTimer.Stop()
	}
	f.blurTimer = time.AfterFunc(f.blurDelay, func() {
		_ = f.save(context.Background())
	})
}

func (f *TextField) save(ctx context.Context) error {
	f.mu.Lock()
	if f.state != Editing {
		// Dropped, not queued.
		f.mu.Unlock()
		return nil
	}
	draft := f.draft
	if strings.TrimSpace(draft) == "" {
		// Empty drafts exit edit mode without writing.
		f.state = Viewing
		f.draft = ""
		f.mu.Unlock()
		return nil
	}
	f.state = Saving
	f.lastErr = ""
	f.mu.Unlock()

	var settle func()
	if f.tracker != nil {
		settle = f.tracker.Begin("content-block:" + f.component + "." + f.key)
		defer settle()
	}

	// The commit runs under the retry policy: each attempt is gated on
	// a session pre-check, since a session can lapse between opening the
	// editor and committing.
	err := f.Retry.Run(ctx, func(ctx context.Context) error {
		return f.repo.UpsertBlock(f.component, f.key, draft)
	})
	if errors.Is(err, auth.ErrNotAuthenticated) {
		f.recordFailure("Not authenticated. Please log in again.")
		return err
	}
	if err != nil {
		common.Log.Error().Err(err).Str("block", f.component+"."+f.key).Msg("content save failed")
		f.recordFailure(err.Error())
		return err
	}

	f.mu.Lock()
	f.text = draft
	f.draft = ""
	f.state = Viewing
	f.failures = 0
	f.mu.Unlock()
	return nil
}

// recordFailure keeps edit mode open with the draft intact so the admin
// can retry without retyping, until the bounded retry counter trips and
// the field goes terminal.
func (f *TextField) recordFailure(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	if f.failures >= f.maxFails {
		f.state = Failed
		f.lastErr = fmt.Sprintf("Save failed %d times. Please refresh the page and try again.", f.failures)
		return
	}
	f.state = Editing
	f.lastErr = msg
}
