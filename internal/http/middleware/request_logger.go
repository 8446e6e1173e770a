package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtsidehq/courtgate/pkg/logging"
)

// RequestLogger emits structured logs for every HTTP request. Proxied host
// traffic logs at debug: the host application polls constantly and would
// drown the gateway's own control-plane entries at info.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}

			log := logger.Info
			if !strings.HasPrefix(r.URL.Path, "/gateway") {
				log = logger.Debug
			}

			next.ServeHTTP(w, r)
			log("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"remote_ip", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
