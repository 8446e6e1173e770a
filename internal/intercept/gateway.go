// Package intercept is the gateway's seam into the host's own API traffic.
// Every request the host application makes flows through the Gateway, which
// forwards it to the upstream backend untouched except at three points:
// credential headers are captured, an observed availability exchange triggers
// the cross-club fan-out and gets its response shaped, and an outgoing
// booking submission may have its body replaced or be suppressed as a
// duplicate.
package intercept

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/courtsidehq/courtgate/internal/availability"
	"github.com/courtsidehq/courtgate/internal/credentials"
	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/internal/shaping"
	"github.com/courtsidehq/courtgate/internal/substitution"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// BookingPathSuffix marks a booking submission. The suffix match is exact:
// the temporary-hold variant lives under a longer path and must pass through
// untouched.
const BookingPathSuffix = "/courtbookings"

// HeaderRequestID is the host's own correlation header.
const HeaderRequestID = "Request-Id"

// AvailabilityStarter kicks off a fan-out cycle. Satisfied by
// *availability.Fetcher.
type AvailabilityStarter interface {
	FetchAll(params availability.Params)
}

// Gateway is the proxying http.Handler.
type Gateway struct {
	upstream    *url.URL
	proxy       *httputil.ReverseProxy
	creds       *credentials.Store
	fetcher     AvailabilityStarter
	shaper      *shaping.Adapter
	substitutor *substitution.Substitutor
	logger      *logging.Logger
	metrics     *metrics.GatewayMetrics
}

// Option is a functional option for configuring the Gateway.
type Option func(*Gateway)

// WithTransport sets the upstream round tripper, for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.proxy.Transport = rt
	}
}

// NewGateway builds the proxy against upstreamBaseURL. fetcher and
// substitutor may be nil, leaving pure pass-through behavior for the paths
// they would serve.
func NewGateway(
	upstreamBaseURL string,
	creds *credentials.Store,
	fetcher AvailabilityStarter,
	shaper *shaping.Adapter,
	substitutor *substitution.Substitutor,
	logger *logging.Logger,
	m *metrics.GatewayMetrics,
	opts ...Option,
) (*Gateway, error) {
	upstream, err := url.Parse(upstreamBaseURL)
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		upstream:    upstream,
		creds:       creds,
		fetcher:     fetcher,
		shaper:      shaper,
		substitutor: substitutor,
		logger:      logger.Component("intercept"),
		metrics:     m,
	}
	g.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.Host = upstream.Host
		},
		ModifyResponse: g.modifyResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.logger.Error("upstream proxy error", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.captureHeaders(r)

	switch {
	case isAvailabilityRequest(r):
		g.observeAvailability(r)
	case isBookingSubmission(r):
		if g.handleBooking(w, r) {
			return
		}
	}

	g.proxy.ServeHTTP(w, r)
}

// captureHeaders siphons the credential headers off the host's request. The
// values are opaque: captured and replayed, never validated.
func (g *Gateway) captureHeaders(r *http.Request) {
	for name, values := range r.Header {
		if !credentials.Recognized(name) || len(values) == 0 || values[0] == "" {
			continue
		}
		g.creds.Capture(name, values[0])
	}
}

func isAvailabilityRequest(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		strings.Contains(r.URL.Path, availability.AvailabilityPath)
}

func isBookingSubmission(r *http.Request) bool {
	return r.Method == http.MethodPost &&
		strings.HasSuffix(r.URL.Path, BookingPathSuffix)
}

// observeAvailability parses the host's own availability query and starts
// the fan-out with it. Fire and forget: the host's request proceeds
// regardless, and a malformed query simply means no cycle.
func (g *Gateway) observeAvailability(r *http.Request) {
	// Ask upstream for an uncompressed body so the response can be shaped.
	r.Header.Del("Accept-Encoding")

	if g.fetcher == nil {
		return
	}
	params, err := availability.ParseParams(r.URL.String())
	if err != nil {
		g.logger.Warn("availability request not parseable, no cycle started", "error", err)
		return
	}
	g.fetcher.FetchAll(params)
}

// handleBooking reports true when it wrote the response itself (the swallow
// case); otherwise the possibly-rewritten request continues to the proxy.
func (g *Gateway) handleBooking(w http.ResponseWriter, r *http.Request) bool {
	if g.substitutor == nil {
		return false
	}
	decision, body := g.substitutor.Decide(r.Header.Get(HeaderRequestID))
	switch decision {
	case substitution.Swallow:
		// The retry never reaches upstream; the host sees success and
		// carries on with its confirmation flow.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
		return true
	case substitution.Substitute:
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		r.Header.Set("Content-Type", "application/json")
		return false
	default:
		return false
	}
}

// modifyResponse shapes successful availability responses so the host's
// booking state machine always has a slot to render. Everything else passes
// through untouched.
func (g *Gateway) modifyResponse(resp *http.Response) error {
	if g.shaper == nil || resp.Request == nil || !isAvailabilityRequest(resp.Request) {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	shaped, rewritten := g.shaper.ShapeBody(raw)
	if rewritten {
		g.logger.Debug("availability response shaped", "path", resp.Request.URL.Path)
	}
	resp.Body = io.NopCloser(bytes.NewReader(shaped))
	resp.ContentLength = int64(len(shaped))
	resp.Header.Set("Content-Length", strconv.Itoa(len(shaped)))
	return nil
}
