package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

func TestPolicy_ZoneBoundaries(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		distance float64
		radius   float64
		zone     string
		delay    time.Duration
	}{
		{distance: 0, radius: 200, zone: model.ZoneCritical, delay: 20 * time.Second},
		{distance: 700, radius: 200, zone: model.ZoneCritical, delay: 20 * time.Second},
		{distance: 700.5, radius: 200, zone: model.ZoneApproaching, delay: 120 * time.Second},
		{distance: 5000, radius: 200, zone: model.ZoneApproaching, delay: 120 * time.Second},
		{distance: 5001, radius: 200, zone: model.ZoneFar, delay: 300 * time.Second},
		{distance: 5200, radius: 4800, zone: model.ZoneCritical, delay: 20 * time.Second},
	}

	for _, tc := range cases {
		zone, delay := p.Next(&tc.distance, tc.radius)
		assert.Equal(t, tc.zone, zone, "distance %v radius %v", tc.distance, tc.radius)
		assert.Equal(t, tc.delay, delay, "distance %v radius %v", tc.distance, tc.radius)
	}
}

func TestPolicy_ExactlyOneZone(t *testing.T) {
	p := DefaultPolicy()
	for d := 0.0; d <= 8000; d += 37.5 {
		for _, r := range []float64{50, 200, 1000} {
			zone := p.Classify(d, r)
			matches := 0
			if d <= r+500 {
				matches++
				assert.Equal(t, model.ZoneCritical, zone)
			}
			if d > r+500 && d <= 5000 {
				matches++
				assert.Equal(t, model.ZoneApproaching, zone)
			}
			if d > 5000 && d > r+500 {
				matches++
				assert.Equal(t, model.ZoneFar, zone)
			}
			assert.Equal(t, 1, matches, "distance %v radius %v", d, r)
		}
	}
}

func TestPolicy_NoDistanceUsesDefault(t *testing.T) {
	zone, delay := DefaultPolicy().Next(nil, 200)
	assert.Equal(t, model.ZoneUnknown, zone)
	assert.Equal(t, 60*time.Second, delay)
}
