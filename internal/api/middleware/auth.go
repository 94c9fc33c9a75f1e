package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shopneo/console/internal/core/session"
)

const ContextSessionState = "session_state"

type AuthMiddleware struct {
	loginPath string
}

func NewAuthMiddleware(loginPath string) *AuthMiddleware {
	if loginPath == "" {
		loginPath = session.DefaultLoginPath
	}
	return &AuthMiddleware{loginPath: loginPath}
}

func (m *AuthMiddleware) LoginPath() string { return m.loginPath }

// Guard judges the credential of the workspace resolved for this request.
// A request without one is anonymous.
func (m *AuthMiddleware) Guard(c *gin.Context) *session.Guard {
	if ws, ok := GetWorkspace(c); ok {
		return session.NewGuard(ws.Sessions, m.loginPath)
	}
	return session.NewGuard(anonymous{}, m.loginPath)
}

// RequireSession gates a route on the caller's own session. It is evaluated
// on every request: JSON clients get 401, browsers are sent to the login page
// with a return_to pointing back here.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := m.Guard(c).Check(c.Request.URL.RequestURI())
		if decision.Allow {
			ws, _ := GetWorkspace(c)
			c.Set(ContextSessionState, ws.Sessions.State())
			c.Next()
			return
		}

		if WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "authentication required",
				"login":      decision.Redirect,
				"request_id": GetRequestID(c),
			})
			return
		}

		c.Redirect(http.StatusFound, decision.Redirect)
		c.Abort()
	}
}

// WantsJSON reports whether the client asked for JSON rather than a page.
func WantsJSON(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

func GetSessionState(c *gin.Context) (session.State, bool) {
	val, exists := c.Get(ContextSessionState)
	if !exists {
		return session.State{}, false
	}
	st, ok := val.(session.State)
	return st, ok
}

type anonymous struct{}

func (anonymous) IsAuthenticated() bool { return false }
