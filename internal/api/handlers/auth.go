package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shopneo/console/internal/api/middleware"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/core/session"
	"github.com/shopneo/console/internal/transport"
)

const defaultLanding = "/app/session"

type AuthHandler struct {
	cfg  middleware.SessionCfg
	auth *middleware.AuthMiddleware
}

func NewAuthHandler(cfg middleware.SessionCfg, auth *middleware.AuthMiddleware) *AuthHandler {
	return &AuthHandler{cfg: cfg, auth: auth}
}

type entitySummary struct {
	Name     string   `json:"name"`
	Singular string   `json:"singular"`
	Children []string `json:"children,omitempty"`
}

// LoginPage describes the login form. An operator who is already signed in
// is sent on to return_to.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	returnTo := safeReturnTo(c.Query("return_to"))
	st := stateOf(c)
	if st.Status == session.StatusAuthenticated && !middleware.WantsJSON(c) {
		c.Redirect(http.StatusFound, returnTo)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":   st,
		"action":    h.auth.LoginPath(),
		"fields":    []string{"email", "password"},
		"return_to": returnTo,
	})
}

// Login always signs in to a fresh workspace, so an id planted in the
// browser beforehand never becomes authenticated. The previous workspace of
// this client is logged out on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req session.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": session.ErrMissingCredentials.Error()})
		return
	}

	ctx := c.Request.Context()
	ws, err := h.cfg.Workspaces.Create(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if err := ws.Sessions.Login(ctx, &req); err != nil {
		h.cfg.Workspaces.Drop(ws.ID)
		if errors.Is(err, session.ErrMissingCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, session.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": transport.PublicMessage(err, "Invalid credentials")})
			return
		}
		var he *transport.HTTPError
		if errors.As(err, &he) && he.Status < http.StatusInternalServerError {
			c.JSON(http.StatusUnauthorized, gin.H{"error": transport.PublicMessage(err, "Login failed")})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Login failed"})
		return
	}

	if prev, ok := middleware.GetWorkspace(c); ok {
		if err := prev.Sessions.Logout(ctx); err != nil {
			h.cfg.Log.Warn().Err(err).Str("workspace", prev.ID).Msg("logging out replaced workspace failed")
		}
		h.cfg.Workspaces.Drop(prev.ID)
	}
	middleware.SetSessionCookie(c, h.cfg, ws.ID)

	if !middleware.WantsJSON(c) {
		c.Redirect(http.StatusSeeOther, safeReturnTo(c.Query("return_to")))
		return
	}
	c.JSON(http.StatusOK, ws.Sessions.State())
}

// Logout drops the caller's credential and every console cached for it.
// It sits behind the gate, so it can only end the caller's own session.
func (h *AuthHandler) Logout(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := ws.Sessions.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	h.cfg.Workspaces.Drop(ws.ID)
	middleware.ClearSessionCookie(c, h.cfg)

	if !middleware.WantsJSON(c) {
		c.Redirect(http.StatusSeeOther, h.auth.LoginPath())
		return
	}
	c.JSON(http.StatusOK, ws.Sessions.State())
}

func (h *AuthHandler) Session(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	st, ok := middleware.GetSessionState(c)
	if !ok {
		st = ws.Sessions.State()
	}
	c.JSON(http.StatusOK, gin.H{
		"session":  st,
		"entities": summarize(ws.Consoles.Registry()),
	})
}

// summarize lists the top-level entities with the sub-entities reachable
// under each of their records.
func summarize(reg *resource.Registry) []entitySummary {
	var out []entitySummary
	for _, def := range reg.Children("") {
		sum := entitySummary{Name: def.Name, Singular: def.Singular}
		for _, child := range reg.Children(def.Name) {
			sum.Children = append(sum.Children, child.Name)
		}
		out = append(out, sum)
	}
	return out
}

func stateOf(c *gin.Context) session.State {
	if ws, ok := middleware.GetWorkspace(c); ok {
		return ws.Sessions.State()
	}
	return session.State{Status: session.StatusAnonymous}
}

// safeReturnTo only accepts local paths, so a crafted link cannot bounce the
// operator to another host after login.
func safeReturnTo(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return defaultLanding
	}
	return target
}
