package content

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cravings/auth"
	"cravings/models"
	"cravings/storage"
)

// fakeBlob records uploads and removals in memory.
type fakeBlob struct {
	mu       sync.Mutex
	objects  map[string][]byte
	removals []string
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (b *fakeBlob) Upload(path string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.objects[path] = data
	b.mu.Unlock()
	return "https://blobs.test/" + path, nil
}

func (b *fakeBlob) Remove(path string) error {
	b.mu.Lock()
	delete(b.objects, path)
	b.removals = append(b.removals, path)
	b.mu.Unlock()
	return nil
}

func (b *fakeBlob) PathFromURL(url string) string {
	return strings.TrimPrefix(url, "https://blobs.test/")
}

func (b *fakeBlob) stored() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func newAdminSlider(t *testing.T, repo Repository, blobs storage.Blob) (*Slider, *auth.Service, *auth.Session) {
	t.Helper()
	db := setupTestDB()
	svc := auth.NewService(db, time.Hour)
	session := createAdminSession(t, db, svc)
	state := auth.NewState(svc, func() string { return session.Token })
	t.Cleanup(state.Close)

	if repo == nil {
		repo = NewRepository(db)
	}
	slider := NewSlider(repo, blobs, state, svc, func() string { return session.Token },
		NewTracker(), "events")
	slider.Transition = 20 * time.Millisecond
	return slider, svc, session
}

func seedSliderImages(t *testing.T, repo Repository, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		img := models.SliderImage{
			ComponentName: "events",
			ImageURL:      "https://blobs.test/events/seed.jpg",
			DisplayOrder:  i,
		}
		require.NoError(t, repo.InsertImage(&img))
	}
}

func TestSlider_OversizedUploadRejectedBeforeAnyWrite(t *testing.T) {
	blobs := newFakeBlob()
	slider, _, _ := newAdminSlider(t, nil, blobs)
	require.NoError(t, slider.Load(context.Background()))
	before := len(slider.Images())

	err := slider.AddImage(context.Background(), "image/jpeg", 6*1024*1024, bytes.NewReader(nil))

	var verr *storage.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "5MB")
	assert.Equal(t, before, len(slider.Images()))
	assert.Zero(t, blobs.stored())
}

func TestSlider_DisallowedTypeRejected(t *testing.T) {
	blobs := newFakeBlob()
	slider, _, _ := newAdminSlider(t, nil, blobs)

	err := slider.AddImage(context.Background(), "application/pdf", 1024, bytes.NewReader(nil))

	var verr *storage.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Zero(t, blobs.stored())
}

func TestSlider_AddImage(t *testing.T) {
	blobs := newFakeBlob()
	slider, _, _ := newAdminSlider(t, nil, blobs)
	require.NoError(t, slider.Load(context.Background()))

	err := slider.AddImage(context.Background(), "image/jpeg", 1024, bytes.NewReader([]byte("jpegdata")))

	require.NoError(t, err)
	images := slider.Images()
	require.Len(t, images, 1)
	assert.Equal(t, "Event Catering Setup 1", images[0].AltText)
	assert.Equal(t, 1, images[0].DisplayOrder)
	assert.Equal(t, 1, blobs.stored())
	assert.Equal(t, 100, slider.Progress())
	assert.False(t, slider.Uploading())
}

func TestSlider_FailedInsertCleansUpBlob(t *testing.T) {
	db := setupTestDB()
	repo := &failingRepo{Repository: NewRepository(db), insertErr: assert.AnError}
	blobs := newFakeBlob()
	slider, _, _ := newAdminSlider(t, repo, blobs)
	require.NoError(t, slider.Load(context.Background()))

	err := slider.AddImage(context.Background(), "image/png", 1024, bytes.NewReader([]byte("pngdata")))

	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, slider.Images())
	assert.Zero(t, blobs.stored())
	assert.NotEmpty(t, blobs.removals)
}

func TestSlider_ExpiredSessionFailsPreflight(t *testing.T) {
	blobs := newFakeBlob()
	slider, svc, session := newAdminSlider(t, nil, blobs)
	require.NoError(t, slider.Load(context.Background()))

	svc.Expire(session.Token)

	err := slider.AddImage(context.Background(), "image/jpeg", 1024, bytes.NewReader([]byte("jpegdata")))

	assert.ErrorIs(t, err, ErrSessionCheck)
	assert.Zero(t, blobs.stored())
}

func TestSlider_UpdateAltRevertsOnFailure(t *testing.T) {
	db := setupTestDB()
	real := NewRepository(db)
	repo := &failingUpdateRepo{Repository: real}
	blobs := newFakeBlob()
	slider, _, _ := newAdminSlider(t, repo, blobs)

	img := models.SliderImage{ComponentName: "events", ImageURL: "u", AltText: "old caption"}
	require.NoError(t, real.InsertImage(&img))
	require.NoError(t, slider.Load(context.Background()))

	repo.updateErr = assert.AnError
	err := slider.UpdateAlt(context.Background(), img.ID, "new caption")

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "old caption", slider.Images()[0].AltText)
}

type failingUpdateRepo struct {
	Repository
	updateErr error
}

func (r *failingUpdateRepo) UpdateImageAlt(id, altText string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.Repository.UpdateImageAlt(id, altText)
}

func TestSlider_UpdateAlt(t *testing.T) {
	db := setupTestDB()
	repo := NewRepository(db)
	slider, _, _ := newAdminSlider(t, repo, newFakeBlob())

	img := models.SliderImage{ComponentName: "events", ImageURL: "u", AltText: "old"}
	require.NoError(t, repo.InsertImage(&img))
	require.NoError(t, slider.Load(context.Background()))

	require.NoError(t, slider.UpdateAlt(context.Background(), img.ID, "new"))

	assert.Equal(t, "new", slider.Images()[0].AltText)
	stored, err := repo.FetchImage(img.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AltText)
}

func TestSlider_DeleteClampsCurrentIndex(t *testing.T) {
	db := setupTestDB()
	repo := NewRepository(db)
	blobs := newFakeBlob()
	slider, _, _ := newAdminSlider(t, repo, blobs)
	seedSliderImages(t, repo, 3)
	require.NoError(t, slider.Load(context.Background()))

	// Move to the last image, then delete it.
	require.True(t, slider.GoTo(2))
	time.Sleep(50 * time.Millisecond)
	images := slider.Images()
	last := images[2]

	require.NoError(t, slider.Delete(context.Background(), last.ID))

	assert.Len(t, slider.Images(), 2)
	assert.Equal(t, 1, slider.CurrentIndex())
}

func TestSlider_DeleteRemovesBlobBestEffort(t *testing.T) {
	db := setupTestDB()
	repo := NewRepository(db)
	blobs := newFakeBlob()
	slider, _, _ := newAdminSlider(t, repo, blobs)

	url, err := blobs.Upload("events/one.jpg", bytes.NewReader([]byte("x")), "image/jpeg")
	require.NoError(t, err)
	img := models.SliderImage{ComponentName: "events", ImageURL: url}
	require.NoError(t, repo.InsertImage(&img))
	require.NoError(t, slider.Load(context.Background()))

	require.NoError(t, slider.Delete(context.Background(), img.ID))

	assert.Empty(t, slider.Images())
	assert.Zero(t, blobs.stored())
	remaining, err := repo.FetchImages("events")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSlider_NavigationGuardedDuringTransition(t *testing.T) {
	db := setupTestDB()
	repo := NewRepository(db)
	slider, _, _ := newAdminSlider(t, repo, newFakeBlob())
	seedSliderImages(t, repo, 3)
	require.NoError(t, slider.Load(context.Background()))

	assert.True(t, slider.Next())
	// A second step during the transition animation is dropped.
	assert.False(t, slider.Next())
	assert.Equal(t, 1, slider.CurrentIndex())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, slider.Next())
	assert.Equal(t, 2, slider.CurrentIndex())
}

func TestSlider_NextWrapsAround(t *testing.T) {
	db := setupTestDB()
	repo := NewRepository(db)
	slider, _, _ := newAdminSlider(t, repo, newFakeBlob())
	seedSliderImages(t, repo, 2)
	require.NoError(t, slider.Load(context.Background()))

	require.True(t, slider.Next())
	time.Sleep(50 * time.Millisecond)
	require.True(t, slider.Next())
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, slider.CurrentIndex())
}
