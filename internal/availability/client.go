package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/courtsidehq/courtgate/internal/credentials"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// AvailabilityPath is the backend availability endpoint.
const AvailabilityPath = "/court-booking/api/1.0/availability"

const defaultTimeout = 20 * time.Second

// ErrBadPayload marks a response whose shape we do not understand. Unlike a
// transport failure it is fatal to the whole cycle: if one payload is
// unparseable the response contract itself is suspect.
var ErrBadPayload = errors.New("availability: unrecognized payload shape")

// Client issues the gateway's own availability requests, authenticated with
// the credentials captured off the host's traffic.
type Client struct {
	baseURL         string
	subscriptionKey string
	creds           *credentials.Store
	httpClient      *http.Client
	logger          *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an availability client against baseURL.
func NewClient(baseURL, subscriptionKey string, creds *credentials.Store, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:         baseURL,
		subscriptionKey: subscriptionKey,
		creds:           creds,
		httpClient:      &http.Client{Timeout: defaultTimeout},
		logger:          logging.Default().Component("availability"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchClub queries one club's availability using the shared params with the
// club's own id and (possibly capped) slot-length id substituted in.
func (c *Client) FetchClub(ctx context.Context, clubID, slotID string, p Params) (*RawResponse, error) {
	q := url.Values{}
	q.Set("clubId", clubID)
	q.Set("date", p.Date)
	q.Set("categoryCode", p.CategoryCode)
	q.Set("categoryOptionsId", p.CategoryOptionID)
	q.Set("timeSlotId", slotID)

	reqURL := c.baseURL + AvailabilityPath + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("availability: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Request-Id", uuid.NewString())
	if c.subscriptionKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	}
	if auth := c.creds.Get(credentials.HeaderAuthorization); auth != "" {
		req.Header.Set(credentials.HeaderAuthorization, auth)
	}
	if sess := c.creds.Get(credentials.HeaderSessionID); sess != "" {
		req.Header.Set(credentials.HeaderSessionID, sess)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability: fetch club %s: %w", clubID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("availability: read response for club %s: %w", clubID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, fmt.Errorf("availability: club %s: status %d: %s", clubID, resp.StatusCode, msg)
	}

	var out RawResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: club %s: %v", ErrBadPayload, clubID, err)
	}
	if out.ClubsAvailabilities == nil {
		return nil, fmt.Errorf("%w: club %s: no clubsAvailabilities field", ErrBadPayload, clubID)
	}
	return &out, nil
}
