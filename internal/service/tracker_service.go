package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Thrusbalda/auto-work-log/internal/clock"
	apperrors "github.com/Thrusbalda/auto-work-log/internal/errors"
	"github.com/Thrusbalda/auto-work-log/internal/geo"
	"github.com/Thrusbalda/auto-work-log/internal/insight"
	"github.com/Thrusbalda/auto-work-log/internal/model"
	"github.com/Thrusbalda/auto-work-log/internal/report"
	"github.com/Thrusbalda/auto-work-log/internal/settings"
	"github.com/Thrusbalda/auto-work-log/internal/tracker"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// LocationPusher accepts fixes pushed by the device.
type LocationPusher interface {
	Push(c model.Coordinate) (int, error)
}

type TrackerService struct {
	machine    *tracker.Machine
	scheduler  *tracker.Scheduler
	settings   *settings.Provider
	pusher     LocationPusher
	summarizer insight.Summarizer
	clock      clock.Clock
	loc        *time.Location
	logger     *zap.Logger
}

type TrackerDeps struct {
	Machine    *tracker.Machine
	Scheduler  *tracker.Scheduler
	Settings   *settings.Provider
	Pusher     LocationPusher
	Summarizer insight.Summarizer
	Clock      clock.Clock
	Location   *time.Location
	Logger     *zap.Logger
}

func NewTrackerService(deps TrackerDeps) *TrackerService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &TrackerService{
		machine:    deps.Machine,
		scheduler:  deps.Scheduler,
		settings:   deps.Settings,
		pusher:     deps.Pusher,
		summarizer: deps.Summarizer,
		clock:      deps.Clock,
		loc:        loc,
		logger:     deps.Logger,
	}
}

type ToggleResult struct {
	Changed bool               `json:"changed"`
	Session *model.WorkSession `json:"session,omitempty"`
	State   tracker.Snapshot   `json:"state"`
}

type PushResult struct {
	Delivered int `json:"delivered"`
}

func (s *TrackerService) GetState(_ context.Context) (*tracker.Snapshot, *apperrors.APIError) {
	snap := s.scheduler.Snapshot()
	return &snap, nil
}

func (s *TrackerService) Toggle(_ context.Context) (*ToggleResult, *apperrors.APIError) {
	tr := s.machine.Toggle(tracker.TriggerManual)
	return &ToggleResult{
		Changed: tr.Changed,
		Session: tr.Session,
		State:   s.scheduler.Snapshot(),
	}, nil
}

// History returns up to limit sessions, newest first.
func (s *TrackerService) History(_ context.Context, limit int) ([]model.WorkSession, *apperrors.APIError) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	sessions := s.machine.History()
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *TrackerService) GetSettings(_ context.Context) (*model.UserSettings, *apperrors.APIError) {
	current := s.settings.Current()
	return &current, nil
}

func (s *TrackerService) UpdateSettings(_ context.Context, input model.UserSettings) (*model.UserSettings, *apperrors.APIError) {
	updated, err := s.settings.Update(input)
	if errors.Is(err, settings.ErrInvalid) {
		return nil, apperrors.BadRequest("invalid_settings", err.Error())
	}
	if err != nil {
		s.logger.Error("update settings", zap.Error(err))
		return nil, apperrors.Internal("failed to update settings")
	}
	return &updated, nil
}

// SetWorkLocationFromCurrent pins the work location to the last fix.
func (s *TrackerService) SetWorkLocationFromCurrent(ctx context.Context) (*model.UserSettings, *apperrors.APIError) {
	loc, ok := s.scheduler.LastLocation()
	if !ok {
		return nil, apperrors.Conflict("no_location", "no location fix has been acquired yet", nil)
	}
	next := s.settings.Current()
	next.WorkLocation = &loc
	return s.UpdateSettings(ctx, next)
}

func (s *TrackerService) PushLocation(_ context.Context, c model.Coordinate) (*PushResult, *apperrors.APIError) {
	if s.pusher == nil {
		return nil, apperrors.Conflict("push_disabled", "location push is not enabled for this server", nil)
	}
	delivered, err := s.pusher.Push(c)
	if errors.Is(err, geo.ErrInvalidCoordinate) {
		return nil, apperrors.BadRequest("invalid_coordinate", "latitude or longitude out of range")
	}
	if err != nil {
		s.logger.Error("push location", zap.Error(err))
		return nil, apperrors.Internal("failed to accept location")
	}
	return &PushResult{Delivered: delivered}, nil
}

func (s *TrackerService) Report(_ context.Context) (*report.Report, *apperrors.APIError) {
	r := report.Build(s.machine.History(), s.clock.Now(), s.loc)
	return &r, nil
}

func (s *TrackerService) Insight(ctx context.Context) (string, *apperrors.APIError) {
	if s.summarizer == nil {
		return "", apperrors.Unavailable("insight_disabled", "AI insight is not configured")
	}
	return s.summarizer.Summarize(ctx, s.machine.History()), nil
}
