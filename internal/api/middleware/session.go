package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/console"
)

const (
	ContextWorkspace  = "workspace"
	DefaultCookieName = "console_session"
)

// SessionCfg holds configuration for the session cookie.
type SessionCfg struct {
	Workspaces *console.Workspaces
	CookieName string
	Secure     bool
	TTL        time.Duration
	Log        zerolog.Logger
}

func (cfg SessionCfg) cookieName() string {
	if cfg.CookieName == "" {
		return DefaultCookieName
	}
	return cfg.CookieName
}

// SessionMiddleware resolves the workspace named by the session cookie and
// stores it in the context. Unknown or expired ids clear the cookie.
func SessionMiddleware(cfg SessionCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cfg.cookieName())
		if err != nil || id == "" {
			c.Next()
			return
		}

		ws, err := cfg.Workspaces.Lookup(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, console.ErrUnknownWorkspace) {
				cfg.Log.Warn().Err(err).Str("request_id", GetRequestID(c)).Msg("restoring workspace failed")
			}
			ClearSessionCookie(c, cfg)
			c.Next()
			return
		}

		c.Set(ContextWorkspace, ws)
		c.Next()
	}
}

// SetSessionCookie hands the workspace id to the client. The cookie is not
// readable from scripts.
func SetSessionCookie(c *gin.Context, cfg SessionCfg, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.cookieName(), id, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
}

func ClearSessionCookie(c *gin.Context, cfg SessionCfg) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.cookieName(), "", -1, "/", "", cfg.Secure, true)
}

// GetWorkspace returns the workspace resolved for this request, if any.
func GetWorkspace(c *gin.Context) (*console.Workspace, bool) {
	val, exists := c.Get(ContextWorkspace)
	if !exists {
		return nil, false
	}
	ws, ok := val.(*console.Workspace)
	return ws, ok
}
