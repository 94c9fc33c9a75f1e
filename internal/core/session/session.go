package session

import "sync/atomic"

// Session holds one operator's credential. Every write replaces the
// stored token atomically so readers never need a lock.
type Session struct {
	token atomic.Value
}

func New() *Session {
	s := &Session{}
	s.token.Store("")
	return s
}

// Token implements transport.TokenSource.
func (s *Session) Token() string {
	return s.token.Load().(string)
}

func (s *Session) set(token string) {
	s.token.Store(token)
}

func (s *Session) clear() {
	s.token.Store("")
}
