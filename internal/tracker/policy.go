package tracker

import (
	"time"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

// Policy maps distance to work onto a sampling delay.
type Policy struct {
	Default     time.Duration
	Critical    time.Duration
	Approaching time.Duration
	Far         time.Duration

	// BoundaryBuffer widens the critical zone beyond the radius so entries and
	// exits are sampled tightly.
	BoundaryBuffer float64
	ApproachLimit  float64
}

func DefaultPolicy() Policy {
	return Policy{
		Default:        60 * time.Second,
		Critical:       20 * time.Second,
		Approaching:    120 * time.Second,
		Far:            300 * time.Second,
		BoundaryBuffer: 500,
		ApproachLimit:  5000,
	}
}

// Classify places distance d into a zone for radius r.
func (p Policy) Classify(d, r float64) string {
	switch {
	case d <= r+p.BoundaryBuffer:
		return model.ZoneCritical
	case d <= p.ApproachLimit:
		return model.ZoneApproaching
	default:
		return model.ZoneFar
	}
}

func (p Policy) DelayFor(zone string) time.Duration {
	switch zone {
	case model.ZoneCritical:
		return p.Critical
	case model.ZoneApproaching:
		return p.Approaching
	case model.ZoneFar:
		return p.Far
	default:
		return p.Default
	}
}

// Next picks the zone and delay. A nil distance means either the current fix
// or the work location is missing.
func (p Policy) Next(distance *float64, radius float64) (string, time.Duration) {
	if distance == nil {
		return model.ZoneUnknown, p.Default
	}
	zone := p.Classify(*distance, radius)
	return zone, p.DelayFor(zone)
}
