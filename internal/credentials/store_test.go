package credentials

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureLastWriteWins(t *testing.T) {
	s := NewStore()

	assert.Empty(t, s.Get(HeaderAuthorization))

	s.Capture(HeaderAuthorization, "Bearer one")
	s.Capture(HeaderAuthorization, "Bearer two")
	assert.Equal(t, "Bearer two", s.Get(HeaderAuthorization))

	s.Capture(HeaderSessionID, "sess-1")
	assert.Equal(t, "sess-1", s.Get(HeaderSessionID))
	// Values are opaque; no validation applies.
	s.Capture(HeaderSessionID, "")
	assert.Equal(t, "", s.Get(HeaderSessionID))
}

func TestRecognized(t *testing.T) {
	assert.True(t, Recognized(HeaderAuthorization))
	assert.True(t, Recognized(HeaderSessionID))
	// http.Header stores keys canonicalized; the map form must match too.
	assert.True(t, Recognized("X-Sessionid"))
	assert.True(t, Recognized("authorization"))
	assert.False(t, Recognized("Request-Id"))
	assert.False(t, Recognized("Accept"))
}

func TestCaptureNormalizesHeaderNames(t *testing.T) {
	s := NewStore()
	// Captured under the canonicalized http.Header map key, read back under
	// the constant name.
	s.Capture("X-Sessionid", "sess-9")
	assert.Equal(t, "sess-9", s.Get(HeaderSessionID))
}

func TestConcurrentCapture(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Capture(HeaderAuthorization, fmt.Sprintf("Bearer %d", n))
			_ = s.Get(HeaderAuthorization)
		}(i)
	}
	wg.Wait()
	assert.NotEmpty(t, s.Get(HeaderAuthorization))
}
