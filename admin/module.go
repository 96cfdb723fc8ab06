package admin

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"cravings/auth"
	"cravings/common"
	"cravings/content"
)

// Module handles admin sign-in/out and the edit-mode toggle endpoints.
type Module struct {
	svc     *auth.Service
	tracker *content.Tracker

	mu      sync.Mutex
	toggles map[string]*Toggle
	states  map[string]*auth.State
}

func NewModule(svc *auth.Service, tracker *content.Tracker) *Module {
	return &Module{
		svc:     svc,
		tracker: tracker,
		toggles: make(map[string]*Toggle),
		states:  make(map[string]*auth.State),
	}
}

func (m *Module) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/auth/login", m.login)
	router.POST("/api/auth/logout", m.logout)
	router.GET("/api/auth/session", m.session)

	adminGroup := router.Group("/api/edit-mode")
	adminGroup.Use(auth.RequireAdmin(m.svc))
	{
		adminGroup.GET("", m.editModeStatus)
		adminGroup.POST("/enable", m.enableEditMode)
		adminGroup.POST("/disable", m.disableEditMode)
		adminGroup.POST("/dismiss-error", m.dismissEditModeError)
	}
}

// toggleFor returns the per-session toggle, creating it on first use.
// Each admin session carries its own edit-mode state. Entries whose
// session has silently expired are evicted on the way, so the maps
// only ever hold live sessions.
func (m *Module) toggleFor(token string) *Toggle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictStaleLocked()
	if t, ok := m.toggles[token]; ok {
		return t
	}
	state := auth.NewState(m.svc, func() string { return token })
	toggle := NewToggle(state, m.svc, func() string { return token }, m.tracker)
	m.toggles[token] = toggle
	m.states[token] = state
	return toggle
}

// evictStaleLocked drops toggles whose token no longer resolves to a
// live session. Caller holds m.mu.
func (m *Module) evictStaleLocked() {
	for token := range m.toggles {
		session, err := m.svc.GetCurrentSession(token)
		if err == nil && session != nil {
			continue
		}
		if state, ok := m.states[token]; ok {
			state.Close()
			delete(m.states, token)
		}
		delete(m.toggles, token)
	}
}

func (m *Module) dropToggle(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[token]; ok {
		state.Close()
		delete(m.states, token)
	}
	delete(m.toggles, token)
}

func (m *Module) login(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	session, err := m.svc.SignIn(request.Email, request.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		common.Log.Error().Err(err).Msg("error signing in")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign in failed"})
		return
	}

	if err := auth.StoreToken(c, session.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist session"})
		return
	}

	role, _ := m.svc.GetRole(session.UserID)
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    session.UserID,
			"email": session.Email,
			"role":  role,
		},
	})
}

func (m *Module) logout(c *gin.Context) {
	token := auth.SessionToken(c)
	if token != "" {
		if err := m.svc.SignOut(token); err != nil {
			common.Log.Warn().Err(err).Msg("error signing out")
		}
		m.dropToggle(token)
	}
	if err := auth.ClearToken(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// session reports who the caller is. Auth failures resolve to an
// anonymous view, never an error; the site stays publicly viewable
// whatever state the session is in.
func (m *Module) session(c *gin.Context) {
	token := auth.SessionToken(c)
	session, err := m.svc.GetCurrentSession(token)
	if err != nil || session == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil, "is_admin": false})
		return
	}

	role, err := m.svc.GetRole(session.UserID)
	if err != nil {
		role = "user"
	}
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    session.UserID,
			"email": session.Email,
			"role":  role,
		},
		"is_admin": role == "admin",
	})
}

func (m *Module) editModeStatus(c *gin.Context) {
	toggle := m.toggleFor(auth.SessionToken(c))
	c.JSON(http.StatusOK, gin.H{
		"enabled": toggle.Enabled(),
		"error":   toggle.LastError(),
		"pending": m.tracker.Pending(),
	})
}

func (m *Module) enableEditMode(c *gin.Context) {
	toggle := m.toggleFor(auth.SessionToken(c))
	if err := toggle.Enable(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"enabled": false,
			"error":   toggle.LastError(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

func (m *Module) disableEditMode(c *gin.Context) {
	var request struct {
		Confirm bool `json:"confirm"`
	}
	// An absent body means no confirmation was given.
	_ = c.ShouldBindJSON(&request)

	toggle := m.toggleFor(auth.SessionToken(c))
	disabled := toggle.Disable(func(pending int) bool {
		return request.Confirm
	})
	if !disabled {
		c.JSON(http.StatusConflict, gin.H{
			"enabled": true,
			"pending": m.tracker.Pending(),
			"error":   "operations still pending; confirm to leave edit mode",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}

func (m *Module) dismissEditModeError(c *gin.Context) {
	m.toggleFor(auth.SessionToken(c)).DismissError()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
