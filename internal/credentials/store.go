// Package credentials passively collects the short-lived auth headers the
// host front-end sends with its own requests, so the gateway can authenticate
// the requests it issues on its own behalf.
package credentials

import (
	"net/textproto"
	"sync"
)

// Header names the host uses for its session credentials.
const (
	HeaderAuthorization = "Authorization"
	HeaderSessionID     = "X-SessionId"
)

// Store holds the latest observed value per credential header. Values are
// opaque pass-throughs; the host rotates tokens mid-session and each new
// observation overwrites the last. One Store lives for the process lifetime.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Capture records a header value, last write wins. Names are stored in
// canonical form, so values captured off an http.Header map read back under
// the constant names above.
func (s *Store) Capture(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[textproto.CanonicalMIMEHeaderKey(name)] = value
}

// Get returns the latest captured value for name, or "" when never seen.
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[textproto.CanonicalMIMEHeaderKey(name)]
}

// Recognized reports whether name is one of the credential headers worth
// capturing. Comparison is canonical, so the http.Header map form of
// HeaderSessionID matches too.
func Recognized(name string) bool {
	switch textproto.CanonicalMIMEHeaderKey(name) {
	case textproto.CanonicalMIMEHeaderKey(HeaderAuthorization),
		textproto.CanonicalMIMEHeaderKey(HeaderSessionID):
		return true
	}
	return false
}
