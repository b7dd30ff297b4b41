package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Thrusbalda/auto-work-log/internal/geo"
	"github.com/Thrusbalda/auto-work-log/internal/model"
)

func workSettings(autoLog bool) model.UserSettings {
	return model.UserSettings{WorkLocation: origin(), RadiusMeters: 200, AutoLog: autoLog}
}

func TestScheduler_AutoStartAtWork(t *testing.T) {
	f := newFixture(t, workSettings(true), DefaultPolicy())
	f.sampler.set(fix(0, 0))

	cycle := f.sched.Step(context.Background())

	require.NoError(t, cycle.Err)
	require.NotNil(t, cycle.Distance)
	assert.Zero(t, *cycle.Distance)
	assert.Equal(t, model.ZoneCritical, cycle.Zone)
	assert.Equal(t, 20*time.Second, cycle.Delay)
	assert.True(t, cycle.Transition.Changed)
	assert.Equal(t, model.StatusWorking, f.machine.Status())

	history := f.machine.History()
	require.Len(t, history, 1)
	assert.Nil(t, history[0].EndTime)
}

func TestScheduler_MovingFarAwayStopsSession(t *testing.T) {
	f := newFixture(t, workSettings(true), DefaultPolicy())
	f.sampler.set(fix(0, 0), fix(0.054, 0))

	f.sched.Step(context.Background())
	f.clock.Advance(3 * time.Hour)
	cycle := f.sched.Step(context.Background())

	require.NotNil(t, cycle.Distance)
	assert.Greater(t, *cycle.Distance, 5001.0)
	assert.Equal(t, model.ZoneFar, cycle.Zone)
	assert.Equal(t, 300*time.Second, cycle.Delay)
	assert.True(t, cycle.Transition.Changed)
	assert.Equal(t, model.StatusIdle, f.machine.Status())

	history := f.machine.History()
	require.Len(t, history, 1)
	require.NotNil(t, history[0].EndTime)
	assert.Equal(t, 180.0, history[0].DurationMinutes)
}

func TestScheduler_NoWorkLocationUsesDefault(t *testing.T) {
	for _, autoLog := range []bool{true, false} {
		f := newFixture(t, model.UserSettings{RadiusMeters: 200, AutoLog: autoLog}, DefaultPolicy())
		f.sampler.set(fix(0, 0), fix(10, 10), fix(-45, 120))

		for i := 0; i < 3; i++ {
			cycle := f.sched.Step(context.Background())
			assert.Nil(t, cycle.Distance)
			assert.Equal(t, model.ZoneUnknown, cycle.Zone)
			assert.Equal(t, 60*time.Second, cycle.Delay)
			assert.False(t, cycle.Transition.Changed)
		}
		assert.Equal(t, model.StatusIdle, f.machine.Status())
		assert.Empty(t, f.machine.History())
	}
}

func TestScheduler_ConsecutiveFailuresUseDefault(t *testing.T) {
	f := newFixture(t, workSettings(true), DefaultPolicy())
	f.sampler.set(
		sampleResult{err: geo.ErrTimeout},
		sampleResult{err: geo.ErrTimeout},
		sampleResult{err: geo.ErrTimeout},
	)

	for i := 0; i < 3; i++ {
		cycle := f.sched.Step(context.Background())
		assert.ErrorIs(t, cycle.Err, geo.ErrTimeout)
		assert.Equal(t, 60*time.Second, cycle.Delay)
		assert.False(t, cycle.Transition.Changed)
	}
	assert.Equal(t, 3, f.sampler.Calls())
	assert.Equal(t, model.StatusIdle, f.machine.Status())
	assert.Empty(t, f.machine.History())

	snap := f.sched.Snapshot()
	assert.Equal(t, model.ZoneUnknown, snap.Zone)
	assert.Equal(t, int64(60000), snap.NextSampleMs)
	assert.Contains(t, snap.LastSampleError, "timed out")
}

func TestScheduler_FailureAfterFixDropsStaleDistance(t *testing.T) {
	f := newFixture(t, workSettings(true), DefaultPolicy())
	f.sampler.set(fix(0, 0), sampleResult{err: geo.ErrUnavailable})

	f.sched.Step(context.Background())
	cycle := f.sched.Step(context.Background())

	assert.Equal(t, 60*time.Second, cycle.Delay)
	assert.Equal(t, model.StatusWorking, f.machine.Status())

	snap := f.sched.Snapshot()
	assert.False(t, snap.LocationFresh)
	assert.NotNil(t, snap.Location)
	assert.Nil(t, snap.DistanceMeters)
}

func TestScheduler_AutoLogOffLeavesStateToManualControl(t *testing.T) {
	f := newFixture(t, workSettings(false), DefaultPolicy())
	f.sampler.set(fix(0, 0), fix(0.054, 0))

	cycle := f.sched.Step(context.Background())
	assert.Equal(t, 20*time.Second, cycle.Delay)
	assert.False(t, cycle.Transition.Changed)
	assert.Equal(t, model.StatusIdle, f.machine.Status())

	f.machine.Toggle(TriggerManual)
	cycle = f.sched.Step(context.Background())
	assert.Equal(t, 300*time.Second, cycle.Delay)
	assert.False(t, cycle.Transition.Changed)
	assert.Equal(t, model.StatusWorking, f.machine.Status())
}

func TestScheduler_ReplanUsesLatestSettings(t *testing.T) {
	f := newFixture(t, model.UserSettings{RadiusMeters: 200, AutoLog: true}, DefaultPolicy())
	f.sampler.set(fix(0, 0.01))

	assert.Equal(t, 60*time.Second, f.sched.Step(context.Background()).Delay)

	f.settings.set(workSettings(true))
	assert.Equal(t, 120*time.Second, f.sched.Replan())

	wide := workSettings(true)
	wide.RadiusMeters = 1000
	f.settings.set(wide)
	assert.Equal(t, 20*time.Second, f.sched.Replan())

	// Settings changes alone never trigger a transition.
	assert.Equal(t, model.StatusIdle, f.machine.Status())
}

func TestScheduler_SnapshotReportsActiveSession(t *testing.T) {
	f := newFixture(t, workSettings(true), DefaultPolicy())
	f.sampler.set(fix(0, 0))

	f.sched.Step(context.Background())
	f.clock.Advance(5 * time.Minute)

	snap := f.sched.Snapshot()
	assert.Equal(t, model.StatusWorking, snap.Status)
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, 300.0, snap.ElapsedSeconds)
	assert.True(t, snap.AtWork)
	assert.True(t, snap.LocationFresh)
	assert.Equal(t, model.ZoneCritical, snap.Zone)

	loc, ok := f.sched.LastLocation()
	assert.True(t, ok)
	assert.Equal(t, model.Coordinate{}, loc)
}

func fastPolicy(def time.Duration) Policy {
	p := DefaultPolicy()
	p.Default = def
	p.Critical = 5 * time.Millisecond
	p.Approaching = 5 * time.Millisecond
	p.Far = 5 * time.Millisecond
	return p
}

func TestScheduler_RunSamplesRepeatedly(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, workSettings(true), fastPolicy(5*time.Millisecond))
	f.sampler.set(fix(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()

	require.Eventually(t, func() bool { return f.sampler.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, model.StatusWorking, f.machine.Status())
	assert.Len(t, f.machine.History(), 1)
}

func TestScheduler_RunSettingsChangeSupersedesPendingTimer(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, model.UserSettings{RadiusMeters: 200, AutoLog: true}, fastPolicy(time.Hour))
	f.sampler.set(fix(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()

	require.Eventually(t, func() bool { return f.sampler.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.sched.Snapshot().NextSampleAt != nil }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(time.Hour/time.Millisecond), f.sched.Snapshot().NextSampleMs)

	f.settings.set(workSettings(true))

	require.Eventually(t, func() bool { return f.sampler.Calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.machine.Status() == model.StatusWorking }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
