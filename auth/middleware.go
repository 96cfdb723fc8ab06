package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionTokenKey = "session_token"

// SessionToken extracts the auth token carried by the cookie session.
func SessionToken(c *gin.Context) string {
	session := sessions.Default(c)
	token, _ := session.Get(sessionTokenKey).(string)
	return token
}

// StoreToken persists the auth token into the cookie session.
func StoreToken(c *gin.Context, token string) error {
	session := sessions.Default(c)
	session.Set(sessionTokenKey, token)
	return session.Save()
}

// ClearToken drops the cookie session.
func ClearToken(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// RequireAdmin gates mutating routes. Admin status is re-checked
// against the profiles table per request, independently of any client
// state.
func RequireAdmin(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		session, err := svc.GetCurrentSession(token)
		if err != nil || session == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			c.Abort()
			return
		}
		if !svc.IsAdmin(token) {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Set("user_id", session.UserID)
		c.Next()
	}
}
