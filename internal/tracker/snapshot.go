package tracker

import (
	"time"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

// Snapshot is the read-only view rendered by the API.
type Snapshot struct {
	Status          string             `json:"status"`
	SessionID       string             `json:"sessionId,omitempty"`
	StartedAt       *time.Time         `json:"startedAt,omitempty"`
	ElapsedSeconds  float64            `json:"elapsedSeconds"`
	Location        *model.Coordinate  `json:"location,omitempty"`
	LocationFresh   bool               `json:"locationFresh"`
	LastSampleAt    *time.Time         `json:"lastSampleAt,omitempty"`
	LastSampleError string             `json:"lastSampleError,omitempty"`
	DistanceMeters  *float64           `json:"distanceMeters,omitempty"`
	Zone            string             `json:"zone"`
	AtWork          bool               `json:"atWork"`
	NextSampleMs    int64              `json:"nextSampleMs"`
	NextSampleAt    *time.Time         `json:"nextSampleAt,omitempty"`
	Settings        model.UserSettings `json:"settings"`
}

func (s *Scheduler) Snapshot() Snapshot {
	settings := s.settings.Current()
	active := s.machine.Active()
	now := s.clock.Now()

	snap := Snapshot{
		Status:   model.StatusIdle,
		Settings: settings,
	}
	if active != nil {
		start := active.StartTime
		snap.Status = model.StatusWorking
		snap.SessionID = active.ID
		snap.StartedAt = &start
		snap.ElapsedSeconds = now.Sub(start).Seconds()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastLocation != nil {
		loc := *s.lastLocation
		snap.Location = &loc
	}
	snap.LocationFresh = s.fresh
	if !s.lastSampleAt.IsZero() {
		at := s.lastSampleAt
		snap.LastSampleAt = &at
	}
	if s.lastErr != nil {
		snap.LastSampleError = s.lastErr.Error()
	}
	if s.distance != nil {
		d := *s.distance
		snap.DistanceMeters = &d
		snap.AtWork = d <= settings.RadiusMeters
	}
	snap.Zone = s.zone
	snap.NextSampleMs = s.nextDelay.Milliseconds()
	if !s.nextAt.IsZero() {
		at := s.nextAt
		snap.NextSampleAt = &at
	}
	return snap
}
