package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/transport"
)

const loginPath = "/admin/login"

// Sender is the slice of the transport client the service needs.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
}

type Service struct {
	session *Session
	store   Store
	api     Sender
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(session *Session, store Store, api Sender, log zerolog.Logger) *Service {
	return &Service{
		session: session,
		store:   store,
		api:     api,
		log:     log,
		now:     time.Now,
	}
}

// Restore loads a persisted credential into the session, if any.
func (s *Service) Restore(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	if token == "" {
		return nil
	}
	if s.expired(token) {
		s.log.Info().Msg("stored session has expired")
		return s.store.Clear(ctx)
	}
	s.session.set(token)
	s.log.Info().Msg("session restored")
	return nil
}

// Login exchanges credentials for a token: Anonymous -> Authenticated.
func (s *Service) Login(ctx context.Context, req *LoginRequest) error {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return ErrMissingCredentials
	}

	resp, err := s.api.Send(ctx, transport.Request{
		Method:   http.MethodPost,
		Path:     loginPath,
		Body:     req,
		Encoding: transport.EncodingJSON,
	})
	if err != nil {
		s.log.Warn().Str("email", req.Email).Err(err).Msg("login failed")
		if transport.IsUnauthorized(err) {
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return err
	}

	var out LoginResponse
	if err := resp.Decode(loginPath, &out); err != nil {
		return err
	}
	if out.Token == "" {
		return &transport.DecodeError{Path: loginPath, Err: ErrEmptyToken}
	}

	if err := s.store.Save(ctx, out.Token); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	s.session.set(out.Token)
	s.log.Info().Str("email", req.Email).Msg("logged in")
	return nil
}

// Logout clears the credential: Authenticated -> Anonymous.
func (s *Service) Logout(ctx context.Context) error {
	s.session.clear()
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.log.Info().Msg("logged out")
	return nil
}

// Invalidate forces Anonymous after the server rejected the credential.
func (s *Service) Invalidate() {
	if s.session.Token() == "" {
		return
	}
	s.session.clear()
	if err := s.store.Clear(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("clearing rejected session")
	}
	s.log.Warn().Msg("session rejected by server")
}

// IsAuthenticated is a pure read of the current state. It is evaluated on
// every call; an expired JWT counts as no credential.
func (s *Service) IsAuthenticated() bool {
	token := s.session.Token()
	return token != "" && !s.expired(token)
}

func (s *Service) State() State {
	if !s.IsAuthenticated() {
		return State{Status: StatusAnonymous}
	}
	st := State{Status: StatusAuthenticated}
	if exp, ok := expiry(s.session.Token()); ok {
		unix := exp.Unix()
		st.ExpiresAt = &unix
	}
	return st
}

func (s *Service) expired(token string) bool {
	exp, ok := expiry(token)
	return ok && !s.now().Before(exp)
}

// expiry reads the exp claim without verifying the signature; the console
// never holds the signing key. Opaque tokens report no expiry.
func expiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
