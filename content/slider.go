package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cravings/auth"
	"cravings/common"
	"cravings/models"
	"cravings/storage"
)

// ErrSessionCheck means a mutating slider operation was aborted before
// any network write because the session-health pre-flight failed.
var ErrSessionCheck = errors.New("session check failed, refresh and retry")

const (
	defaultRotateEvery   = 5 * time.Second
	defaultTransition    = 300 * time.Millisecond
	defaultHealthTimeout = 5 * time.Second
)

// Slider is a multi-image carousel bound to one component name.
// Visitors get auto-rotation with hover pause and manual navigation;
// admins can add, re-caption, and delete images. Navigation is disabled
// while a transition animation is in flight so state changes cannot
// overlap.
type Slider struct {
	repo    Repository
	blobs   storage.Blob
	auth    *auth.State
	svc     *auth.Service
	token   func() string
	tracker *Tracker

	component string

	RotateEvery   time.Duration
	Transition    time.Duration
	HealthTimeout time.Duration

	mu         sync.Mutex
	images     []models.SliderImage
	current    int
	animating  bool
	hovering   bool
	uploading  bool
	progress   int
	stopRotate chan struct{}
}

func NewSlider(repo Repository, blobs storage.Blob, authState *auth.State, svc *auth.Service, token func() string, tracker *Tracker, componentName string) *Slider {
	return &Slider{
		repo:          repo,
		blobs:         blobs,
		auth:          authState,
		svc:           svc,
		token:         token,
		tracker:       tracker,
		component:     componentName,
		RotateEvery:   defaultRotateEvery,
		Transition:    defaultTransition,
		HealthTimeout: defaultHealthTimeout,
	}
}

func (s *Slider) Load(ctx context.Context) error {
	images, err := s.repo.FetchImages(s.component)
	if err != nil {
		common.Log.Error().Err(err).Str("component", s.component).Msg("error fetching slider images")
		return err
	}
	s.mu.Lock()
	s.images = images
	s.current = 0
	s.mu.Unlock()
	return nil
}

func (s *Slider) Images() []models.SliderImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SliderImage, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Slider) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Slider) Current() (models.SliderImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) == 0 {
		return models.SliderImage{}, false
	}
	return s.images[s.current], true
}

func (s *Slider) Uploading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploading
}

// Progress is the simulated upload percentage. It is a UX affordance
// driven by a local timer, not a transport signal, and is only jumped
// to 100 on actual completion.
func (s *Slider) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Slider) SetHovering(h bool) {
	s.mu.Lock()
	s.hovering = h
	s.mu.Unlock()
}

// Next advances the slider. Returns false when the move was dropped
// because a transition is still animating or there are no images.
func (s *Slider) Next() bool {
	return s.step(func(cur, n int) int { return (cur + 1) % n })
}

func (s *Slider) Prev() bool {
	return s.step(func(cur, n int) int { return (cur - 1 + n) % n })
}

func (s *Slider) GoTo(index int) bool {
	return s.step(func(cur, n int) int {
		if index < 0 || index >= n {
			return cur
		}
		return index
	})
}

func (s *Slider) step(move func(cur, n int) int) bool {
	s.mu.Lock()
	if s.animating || len(s.images) == 0 {
		s.mu.Unlock()
		return false
	}
	s.animating = true
	s.current = move(s.current, len(s.images))
	s.mu.Unlock()

	time.AfterFunc(s.Transition, func() {
		s.mu.Lock()
		s.animating = false
		s.mu.Unlock()
	})
	return true
}

// StartAutoRotate begins the visitor-facing rotation loop. Rotation
// pauses while the pointer hovers the slider.
func (s *Slider) StartAutoRotate() {
	s.mu.Lock()
	if s.stopRotate != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stopRotate = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.RotateEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				paused := s.hovering || len(s.images) == 0
				s.mu.Unlock()
				if !paused {
					s.Next()
				}
			case <-stop:
				return
			}
		}
	}()
}

func (s *Slider) StopAutoRotate() {
	s.mu.Lock()
	if s.stopRotate != nil {
		close(s.stopRotate)
		s.stopRotate = nil
	}
	s.mu.Unlock()
}

// preflight gates every mutating operation: admin only, and the session
// must pass a health check bounded by a timeout. A check that hangs is
// a failure, not a wait.
func (s *Slider) preflight(ctx context.Context) error {
	if !s.auth.IsAdmin() {
		return ErrNotAdmin
	}
	ok := auth.CheckWithTimeout(ctx, s.HealthTimeout, func(ctx context.Context) bool {
		return s.svc.EnsurePersisted(ctx, s.token())
	})
	if !ok {
		return ErrSessionCheck
	}
	return nil
}

// AddImage validates, uploads to blob storage, inserts the row, then
// refetches the full list. Validation failures happen before any
// network write; a row-insert failure triggers best-effort cleanup of
// the uploaded blob.
func (s *Slider) AddImage(ctx context.Context, contentType string, size int64, r io.Reader) error {
	if err := storage.ValidateImage(contentType, size); err != nil {
		return err
	}
	if err := s.preflight(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.uploading {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.uploading = true
	s.progress = 0
	position := len(s.images) + 1
	s.mu.Unlock()

	var settle func()
	if s.tracker != nil {
		settle = s.tracker.Begin("slider-upload:" + s.component)
		defer settle()
	}

	stopProgress := s.simulateProgress()
	defer stopProgress()

	finish := func(p int) {
		s.mu.Lock()
		s.progress = p
		s.uploading = false
		s.mu.Unlock()
	}

	path := storage.ImagePath(s.component, contentType)
	url, err := s.blobs.Upload(path, r, contentType)
	if err != nil {
		common.Log.Error().Err(err).Str("component", s.component).Msg("slider upload failed")
		finish(0)
		return err
	}

	img := models.SliderImage{
		ComponentName: s.component,
		ImageURL:      url,
		AltText:       fmt.Sprintf("Event Catering Setup %d", position),
		DisplayOrder:  position,
	}
	if err := s.repo.InsertImage(&img); err != nil {
		// The blob is already in storage; clean it up so no orphan
		// reference survives the failed insert.
		if rmErr := s.blobs.Remove(path); rmErr != nil {
			common.Log.Warn().Err(rmErr).Str("path", path).Msg("could not clean up blob after failed insert")
		}
		finish(0)
		return err
	}

	if err := s.Load(ctx); err != nil {
		finish(100)
		return err
	}
	finish(100)
	return nil
}

// simulateProgress advances the percentage toward a cap on a local
// timer; actual completion jumps it to 100 elsewhere.
func (s *Slider) simulateProgress() func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if s.uploading && s.progress < 90 {
					s.progress += 10
				}
				s.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// UpdateAlt edits one image's caption with an optimistic local patch
// and a field-restore rollback.
func (s *Slider) UpdateAlt(ctx context.Context, imageID, altText string) error {
	if err := s.preflight(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	prev, found := "", false
	for i := range s.images {
		if s.images[i].ID == imageID {
			prev, found = s.images[i].AltText, true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return ErrNotFound
	}

	m := Mutation{
		Name:     "slider-caption:" + imageID,
		Strategy: FieldRestore,
		ApplyLocal: func() {
			s.patchAlt(imageID, altText)
		},
		CommitRemote: func(ctx context.Context) error {
			return s.repo.UpdateImageAlt(imageID, altText)
		},
		RevertLocal: func() {
			s.patchAlt(imageID, prev)
		},
	}
	return m.Run(ctx, s.tracker)
}

func (s *Slider) patchAlt(imageID, altText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.images {
		if s.images[i].ID == imageID {
			s.images[i].AltText = altText
			return
		}
	}
}

// Delete removes the row, then best-effort deletes the blob (a failed
// storage cleanup only warns), then updates the local list, clamping
// the current index if the deleted image was at or past the new end.
func (s *Slider) Delete(ctx context.Context, imageID string) error {
	if err := s.preflight(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	var url string
	found := false
	for i := range s.images {
		if s.images[i].ID == imageID {
			url, found = s.images[i].ImageURL, true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return ErrNotFound
	}

	var settle func()
	if s.tracker != nil {
		settle = s.tracker.Begin("slider-delete:" + imageID)
		defer settle()
	}

	if err := s.repo.DeleteImage(imageID); err != nil {
		return err
	}

	storage.RemoveURL(s.blobs, url)

	s.mu.Lock()
	kept := s.images[:0]
	for _, img := range s.images {
		if img.ID != imageID {
			kept = append(kept, img)
		}
	}
	s.images = kept
	if s.current >= len(s.images) {
		s.current = 0
		if len(s.images) > 0 {
			s.current = len(s.images) - 1
		}
	}
	s.mu.Unlock()
	return nil
}
