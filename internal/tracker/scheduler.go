package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Thrusbalda/auto-work-log/internal/clock"
	"github.com/Thrusbalda/auto-work-log/internal/geo"
	"github.com/Thrusbalda/auto-work-log/internal/metrics"
	"github.com/Thrusbalda/auto-work-log/internal/model"
)

// SettingsSource supplies the latest settings and signals changes.
type SettingsSource interface {
	Current() model.UserSettings
	Subscribe() (<-chan struct{}, func())
}

// Cycle is the result of one completed sample.
type Cycle struct {
	Location   *model.Coordinate
	Err        error
	Distance   *float64
	Zone       string
	Delay      time.Duration
	Transition Transition
}

// Scheduler samples location on an adaptive cadence and feeds fresh
// distances to the Machine. Samples never overlap: the next one is armed only
// after the current one has been fully processed.
type Scheduler struct {
	sampler  geo.Sampler
	machine  *Machine
	settings SettingsSource
	policy   Policy
	clock    clock.Clock
	logger   *zap.Logger
	metrics  metrics.Recorder

	mu           sync.RWMutex
	lastLocation *model.Coordinate
	lastSampleAt time.Time
	lastErr      error
	fresh        bool
	distance     *float64
	zone         string
	nextDelay    time.Duration
	nextAt       time.Time
}

func NewScheduler(sampler geo.Sampler, machine *Machine, settings SettingsSource, policy Policy, clk clock.Clock, logger *zap.Logger, rec metrics.Recorder) *Scheduler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Scheduler{
		sampler:  sampler,
		machine:  machine,
		settings: settings,
		policy:   policy,
		clock:    clk,
		logger:   logger,
		metrics:  rec,
		zone:     model.ZoneUnknown,
	}
}

// Run samples immediately, then keeps exactly one pending timer until ctx is
// done. A settings change supersedes the pending timer.
func (s *Scheduler) Run(ctx context.Context) error {
	changes, unsubscribe := s.settings.Subscribe()
	defer unsubscribe()

	timer := time.NewTimer(0)
	defer timer.Stop()

	s.logger.Info("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-changes:
			s.rearm(timer, s.Replan())
		case <-timer.C:
			cycle := s.Step(ctx)
			if ctx.Err() != nil {
				s.logger.Info("scheduler stopped")
				return nil
			}
			s.rearm(timer, cycle.Delay)
		}
	}
}

func (s *Scheduler) rearm(timer *time.Timer, delay time.Duration) {
	timer.Stop()
	timer.Reset(delay)

	s.mu.Lock()
	s.nextAt = s.clock.Now().Add(delay)
	s.mu.Unlock()

	s.logger.Debug("next sample armed", zap.Duration("delay", delay))
}

// Step takes one sample, updates the observation, runs the geofence check
// and returns the delay before the next sample.
func (s *Scheduler) Step(ctx context.Context) Cycle {
	coord, err := s.sampler.Sample(ctx)
	now := s.clock.Now()
	settings := s.settings.Current()

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return Cycle{Err: err, Zone: model.ZoneUnknown, Delay: s.policy.Default}
		}
		return s.recordFailure(now, err)
	}

	distance := distanceTo(&coord, settings.WorkLocation)
	zone, delay := s.policy.Next(distance, settings.RadiusMeters)

	s.mu.Lock()
	loc := coord
	s.lastLocation = &loc
	s.lastSampleAt = now
	s.lastErr = nil
	s.fresh = true
	s.distance = distance
	s.zone = zone
	s.nextDelay = delay
	s.mu.Unlock()

	s.metrics.RecordSample("success")
	s.metrics.RecordNextDelay(zone, delay)
	if distance != nil {
		s.metrics.RecordDistance(*distance)
	}

	cycle := Cycle{Location: &loc, Distance: distance, Zone: zone, Delay: delay}
	if settings.AutoLog && distance != nil {
		cycle.Transition = s.machine.Evaluate(*distance, settings.RadiusMeters)
	}

	fields := []zap.Field{
		zap.Float64("latitude", coord.Latitude),
		zap.Float64("longitude", coord.Longitude),
		zap.String("zone", zone),
		zap.Duration("next_delay", delay),
	}
	if distance != nil {
		fields = append(fields, zap.Float64("distance_meters", *distance))
	}
	s.logger.Debug("location sampled", fields...)
	return cycle
}

func (s *Scheduler) recordFailure(now time.Time, err error) Cycle {
	delay := s.policy.Default

	s.mu.Lock()
	s.lastSampleAt = now
	s.lastErr = err
	s.fresh = false
	s.distance = nil
	s.zone = model.ZoneUnknown
	s.nextDelay = delay
	s.mu.Unlock()

	s.metrics.RecordSample(sampleOutcome(err))
	s.metrics.RecordNextDelay(model.ZoneUnknown, delay)
	s.logger.Warn("location sample failed", zap.Error(err), zap.Duration("next_delay", delay))

	return Cycle{Err: err, Zone: model.ZoneUnknown, Delay: delay}
}

// Replan recomputes the next delay from the latest settings. The last fix
// only counts when the most recent sample succeeded.
func (s *Scheduler) Replan() time.Duration {
	settings := s.settings.Current()

	s.mu.Lock()
	defer s.mu.Unlock()

	var distance *float64
	if s.fresh {
		distance = distanceTo(s.lastLocation, settings.WorkLocation)
	}
	zone, delay := s.policy.Next(distance, settings.RadiusMeters)
	s.distance = distance
	s.zone = zone
	s.nextDelay = delay

	s.metrics.RecordNextDelay(zone, delay)
	return delay
}

// LastLocation returns the most recent successful fix.
func (s *Scheduler) LastLocation() (model.Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastLocation == nil {
		return model.Coordinate{}, false
	}
	return *s.lastLocation, true
}

func distanceTo(current, work *model.Coordinate) *float64 {
	if current == nil || work == nil {
		return nil
	}
	d := geo.Distance(*current, *work)
	return &d
}

func sampleOutcome(err error) string {
	switch {
	case errors.Is(err, geo.ErrTimeout):
		return "timeout"
	case errors.Is(err, geo.ErrPermissionDenied):
		return "permission_denied"
	default:
		return "unavailable"
	}
}
