package session

import "net/url"

const DefaultLoginPath = "/login"

type Authenticator interface {
	IsAuthenticated() bool
}

// Decision is the outcome of a gate check: render the target, or redirect.
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard decides whether a gated route may render. It holds no state of its
// own, so every navigation is judged against the session as it is now.
type Guard struct {
	auth      Authenticator
	loginPath string
}

func NewGuard(auth Authenticator, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Guard{auth: auth, loginPath: loginPath}
}

func (g *Guard) Check(path string) Decision {
	if g.auth.IsAuthenticated() {
		return Decision{Allow: true}
	}
	if path == "" {
		return Decision{Redirect: g.loginPath}
	}
	return Decision{Redirect: g.loginPath + "?return_to=" + url.QueryEscape(path)}
}
