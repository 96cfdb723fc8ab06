package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cravings/auth"
	"cravings/content"
	"cravings/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.Profile{})
	return db
}

func newTestToggle(t *testing.T) (*Toggle, *auth.Service, *auth.Session, *content.Tracker) {
	t.Helper()
	db := setupTestDB()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Profile{
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         "admin",
	}).Error)

	svc := auth.NewService(db, time.Hour)
	session, err := svc.SignIn("admin@example.com", "secret")
	require.NoError(t, err)

	state := auth.NewState(svc, func() string { return session.Token })
	t.Cleanup(state.Close)

	tracker := content.NewTracker()
	return NewToggle(state, svc, func() string { return session.Token }, tracker), svc, session, tracker
}

func TestToggle_EnableWithHealthySession(t *testing.T) {
	toggle, _, _, _ := newTestToggle(t)

	assert.True(t, toggle.Visible())
	require.NoError(t, toggle.Enable(context.Background()))
	assert.True(t, toggle.Enabled())
	assert.Empty(t, toggle.LastError())
}

func TestToggle_EnableFailsWhenSessionGone(t *testing.T) {
	toggle, svc, session, _ := newTestToggle(t)
	require.NoError(t, toggle.Enable(context.Background()))
	require.True(t, toggle.Disable(nil))

	svc.Expire(session.Token)

	err := toggle.Enable(context.Background())

	assert.ErrorIs(t, err, content.ErrSessionCheck)
	assert.False(t, toggle.Enabled())
	assert.Contains(t, toggle.LastError(), "refresh the page")
}

func TestToggle_EnableTreatsSlowCheckAsFailure(t *testing.T) {
	toggle, _, _, _ := newTestToggle(t)

	// The persistence check waits out its settle delay before looking at
	// the session, so a timeout shorter than that always loses the race.
	toggle.HealthTimeout = 20 * time.Millisecond

	err := toggle.Enable(context.Background())

	assert.ErrorIs(t, err, content.ErrSessionCheck)
	assert.False(t, toggle.Enabled())
	assert.Contains(t, toggle.LastError(), "Session check failed")
}

func TestToggle_ErrorIsDismissible(t *testing.T) {
	toggle, svc, session, _ := newTestToggle(t)
	svc.Expire(session.Token)

	require.Error(t, toggle.Enable(context.Background()))
	require.NotEmpty(t, toggle.LastError())

	toggle.DismissError()
	assert.Empty(t, toggle.LastError())
}

func TestToggle_NonAdminCannotEnable(t *testing.T) {
	db := setupTestDB()
	svc := auth.NewService(db, time.Hour)
	state := auth.NewState(svc, func() string { return "" })
	defer state.Close()

	toggle := NewToggle(state, svc, func() string { return "" }, content.NewTracker())

	assert.False(t, toggle.Visible())
	assert.ErrorIs(t, toggle.Enable(context.Background()), content.ErrNotAdmin)
	assert.False(t, toggle.Enabled())
}

func TestToggle_DisableConsultsConfirmWhenOpsPending(t *testing.T) {
	toggle, _, _, tracker := newTestToggle(t)
	require.NoError(t, toggle.Enable(context.Background()))

	settle := tracker.Begin("field-save")

	var asked int
	declined := toggle.Disable(func(pending int) bool {
		asked = pending
		return false
	})

	assert.False(t, declined)
	assert.Equal(t, 1, asked)
	assert.True(t, toggle.Enabled(), "declining keeps edit mode on")

	accepted := toggle.Disable(func(pending int) bool { return true })
	assert.True(t, accepted)
	assert.False(t, toggle.Enabled())

	settle()
}

func TestToggle_DisableWithoutPendingSkipsConfirm(t *testing.T) {
	toggle, _, _, _ := newTestToggle(t)
	require.NoError(t, toggle.Enable(context.Background()))

	called := false
	ok := toggle.Disable(func(pending int) bool {
		called = true
		return false
	})

	assert.True(t, ok)
	assert.False(t, called)
	assert.False(t, toggle.Enabled())
}
