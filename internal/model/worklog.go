package model

import "time"

const (
	StatusIdle    = "idle"
	StatusWorking = "working"
)

const (
	ZoneUnknown     = "unknown"
	ZoneCritical    = "critical"
	ZoneApproaching = "approaching"
	ZoneFar         = "far"
)

const (
	DefaultRadiusMeters = 200
	MinRadiusMeters     = 50
	MaxRadiusMeters     = 1000
)

// Persistence gateway keys.
const (
	KeySessions         = "awl_sessions"
	KeySettings         = "awl_settings"
	KeyCurrentSessionID = "awl_currentSessionId"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

type WorkSession struct {
	ID              string     `json:"id"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	DurationMinutes float64    `json:"durationMinutes"`
}

// Open reports whether the session has not been stopped yet.
func (s WorkSession) Open() bool {
	return s.EndTime == nil
}

type UserSettings struct {
	WorkLocation *Coordinate `json:"workLocation" yaml:"workLocation"`
	RadiusMeters float64     `json:"radiusMeters" yaml:"radiusMeters"`
	AutoLog      bool        `json:"autoLog" yaml:"autoLog"`
}

func DefaultSettings() UserSettings {
	return UserSettings{
		WorkLocation: nil,
		RadiusMeters: DefaultRadiusMeters,
		AutoLog:      true,
	}
}
