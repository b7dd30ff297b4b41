// Package settings owns the user's tracker settings: work location, detection
// radius and the automatic mode flag.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Thrusbalda/auto-work-log/internal/geo"
	"github.com/Thrusbalda/auto-work-log/internal/model"
	"github.com/Thrusbalda/auto-work-log/internal/persist"
)

var ErrInvalid = errors.New("invalid settings")

// Provider holds the current settings and tells subscribers when they change.
type Provider struct {
	store  persist.Store
	writer persist.Writer
	logger *zap.Logger

	mu      sync.RWMutex
	current model.UserSettings
	nextSub int
	subs    map[int]chan struct{}
}

func NewProvider(store persist.Store, writer persist.Writer, logger *zap.Logger) *Provider {
	return &Provider{
		store:   store,
		writer:  writer,
		logger:  logger,
		current: model.DefaultSettings(),
		subs:    make(map[int]chan struct{}),
	}
}

// Load reads persisted settings. Missing or unreadable settings fall back to
// the defaults; only a failing store is reported.
func (p *Provider) Load(ctx context.Context) error {
	raw, ok, err := p.store.Get(ctx, model.KeySettings)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	loaded := model.DefaultSettings()
	if ok {
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			p.logger.Warn("stored settings unreadable, using defaults", zap.Error(err))
			loaded = model.DefaultSettings()
		}
		if loaded.RadiusMeters <= 0 {
			p.logger.Warn("stored radius not positive, using default",
				zap.Float64("radius_meters", loaded.RadiusMeters))
			loaded.RadiusMeters = model.DefaultRadiusMeters
		}
		if loaded.WorkLocation != nil && !geo.ValidCoordinate(*loaded.WorkLocation) {
			p.logger.Warn("stored work location out of range, clearing it")
			loaded.WorkLocation = nil
		}
	}

	p.mu.Lock()
	p.current = loaded
	p.mu.Unlock()
	return nil
}

// Current returns a copy of the settings in effect.
func (p *Provider) Current() model.UserSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return clone(p.current)
}

// Update validates and stores s, persists it and notifies subscribers.
func (p *Provider) Update(s model.UserSettings) (model.UserSettings, error) {
	if err := Validate(s); err != nil {
		return model.UserSettings{}, err
	}
	s = clone(s)

	payload, err := json.Marshal(s)
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("encode settings: %w", err)
	}

	p.mu.Lock()
	p.current = s
	subs := make([]chan struct{}, 0, len(p.subs))
	for _, ch := range p.subs {
		subs = append(subs, ch)
	}
	// Enqueue under the lock so the store sees updates in commit order.
	p.writer.Set(model.KeySettings, string(payload))
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	p.logger.Info("settings updated",
		zap.Bool("work_location_set", s.WorkLocation != nil),
		zap.Float64("radius_meters", s.RadiusMeters),
		zap.Bool("auto_log", s.AutoLog),
	)
	return clone(s), nil
}

// Subscribe returns a channel signalled after every Update. Signals coalesce:
// a receiver should read Current after waking up.
func (p *Provider) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func Validate(s model.UserSettings) error {
	if s.RadiusMeters < model.MinRadiusMeters || s.RadiusMeters > model.MaxRadiusMeters {
		return fmt.Errorf("%w: radius must be between %d and %d meters", ErrInvalid, model.MinRadiusMeters, model.MaxRadiusMeters)
	}
	if s.WorkLocation != nil && !geo.ValidCoordinate(*s.WorkLocation) {
		return fmt.Errorf("%w: work location out of range", ErrInvalid)
	}
	return nil
}

func clone(s model.UserSettings) model.UserSettings {
	if s.WorkLocation != nil {
		loc := *s.WorkLocation
		s.WorkLocation = &loc
	}
	return s
}
