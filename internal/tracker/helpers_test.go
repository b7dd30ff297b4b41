package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Thrusbalda/auto-work-log/internal/model"
	"github.com/Thrusbalda/auto-work-log/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// syncWriter applies writes straight to the store.
type syncWriter struct {
	store *repository.MemoryKV
}

func (w syncWriter) Set(key, value string) {
	_ = w.store.Set(context.Background(), key, value)
}

func (w syncWriter) Remove(key string) {
	_ = w.store.Remove(context.Background(), key)
}

type sampleResult struct {
	coord model.Coordinate
	err   error
}

// scriptedSampler replays results in order and repeats the last one.
type scriptedSampler struct {
	mu      sync.Mutex
	results []sampleResult
	calls   int
}

func (s *scriptedSampler) Sample(ctx context.Context) (model.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return model.Coordinate{}, err
	}
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	r := s.results[idx]
	return r.coord, r.err
}

func (s *scriptedSampler) set(results ...sampleResult) {
	s.mu.Lock()
	s.results = results
	s.calls = 0
	s.mu.Unlock()
}

func (s *scriptedSampler) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeSettings struct {
	mu      sync.Mutex
	current model.UserSettings
	changes chan struct{}
}

func newFakeSettings(s model.UserSettings) *fakeSettings {
	return &fakeSettings{current: s, changes: make(chan struct{}, 1)}
}

func (f *fakeSettings) Current() model.UserSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSettings) Subscribe() (<-chan struct{}, func()) {
	return f.changes, func() {}
}

func (f *fakeSettings) set(s model.UserSettings) {
	f.mu.Lock()
	f.current = s
	f.mu.Unlock()
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

type fixture struct {
	store    *repository.MemoryKV
	clock    *fakeClock
	machine  *Machine
	sampler  *scriptedSampler
	settings *fakeSettings
	sched    *Scheduler
}

func newFixture(t *testing.T, settings model.UserSettings, policy Policy) *fixture {
	t.Helper()
	store := repository.NewMemoryKV()
	clk := newFakeClock()
	machine := NewMachine(store, syncWriter{store: store}, clk, zap.NewNop(), nil)
	if err := machine.Init(context.Background()); err != nil {
		t.Fatalf("init machine: %v", err)
	}
	sampler := &scriptedSampler{}
	fs := newFakeSettings(settings)
	return &fixture{
		store:    store,
		clock:    clk,
		machine:  machine,
		sampler:  sampler,
		settings: fs,
		sched:    NewScheduler(sampler, machine, fs, policy, clk, zap.NewNop(), nil),
	}
}

func origin() *model.Coordinate {
	return &model.Coordinate{Latitude: 0, Longitude: 0}
}

func fix(lat, lon float64) sampleResult {
	return sampleResult{coord: model.Coordinate{Latitude: lat, Longitude: lon}}
}
