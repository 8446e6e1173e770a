// Package shaping rewrites the host's own availability response so the host
// front-end always has at least one selectable slot to render. The host's
// selection-advancement logic only arms its "next" control after the user
// clicks one of its own rendered slots; when true availability is zero there
// is nothing to click and the substitution protocol has no target. Splicing
// in one synthetic slot keeps that flow reachable. The synthetic values
// never reach a submitted booking: substitution always builds its body from
// the pending selection.
package shaping

import (
	"bytes"
	"encoding/json"

	"github.com/courtsidehq/courtgate/internal/availability"
	"github.com/courtsidehq/courtgate/internal/observability/metrics"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// Placeholder window for the synthetic slot: 7:00-7:30 in the morning.
const (
	syntheticFrom = 420
	syntheticTo   = 450
)

// Adapter shapes host availability responses in place.
type Adapter struct {
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics
}

func NewAdapter(logger *logging.Logger, m *metrics.GatewayMetrics) *Adapter {
	return &Adapter{logger: logger.Component("shaping"), metrics: m}
}

// ShapeBody inspects one availability response body and returns the body the
// host should read instead, plus whether a rewrite happened. Any body it
// cannot or need not rewrite is returned unchanged: shaping is strictly
// best-effort and must never break the host's own flow.
//
// Only the club the host itself is viewing is considered, assumed to be the
// first entry of the response. That one-sample-of-one heuristic matches
// observed host behavior and is preserved as-is.
func (a *Adapter) ShapeBody(body []byte) ([]byte, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return body, false
	}

	var data availability.RawResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return body, false
	}
	if len(data.ClubsAvailabilities) == 0 {
		return body, false
	}

	clubAvail := &data.ClubsAvailabilities[0]
	if len(clubAvail.AvailableTimeSlots) > 0 {
		// The club really has availability; nothing to do.
		return body, false
	}
	if len(clubAvail.Courts) == 0 {
		// No real court to reference; a slot pointing nowhere would break
		// the host's rendering.
		return body, false
	}

	court := clubAvail.Courts[0]
	versionID := court.CourtSetupVersionID
	if versionID == "" {
		versionID = court.CourtID
	}
	clubAvail.AvailableTimeSlots = []availability.RawSlot{{
		TimeOfDay:        string(availability.Morning),
		FromInMinutes:    syntheticFrom,
		ToInMinutes:      syntheticTo,
		CourtID:          court.CourtID,
		CourtsVersionIDs: []string{versionID},
	}}

	shaped, err := json.Marshal(&data)
	if err != nil {
		a.logger.Error("re-encode shaped response", "error", err)
		return body, false
	}

	a.metrics.ObserveResponseShaped()
	a.logger.Debug("synthesized slot for empty club", "club", clubAvail.Club.ID, "court", court.CourtID)
	return shaped, true
}
