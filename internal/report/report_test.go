package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

func closedSession(id string, start time.Time, d time.Duration) model.WorkSession {
	end := start.Add(d)
	return model.WorkSession{ID: id, StartTime: start, EndTime: &end, DurationMinutes: d.Minutes()}
}

func TestBuild_Empty(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	r := Build(nil, now, time.UTC)

	assert.Zero(t, r.TodayMinutes)
	assert.Zero(t, r.TodaySessions)
	assert.Zero(t, r.MonthHours)
	require.Len(t, r.LastSevenDays, 7)
	assert.Equal(t, "2025-03-04", r.LastSevenDays[0].Date)
	assert.Equal(t, "2025-03-10", r.LastSevenDays[6].Date)
}

func TestBuild_Totals(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	sessions := []model.WorkSession{
		closedSession("feb", time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC), 8*time.Hour),
		closedSession("mon-prev", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), 7*time.Hour+30*time.Minute),
		closedSession("sun", time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC), 2*time.Hour+5*time.Minute),
		closedSession("today", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), 4*time.Hour),
		{ID: "open", StartTime: time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
	}

	r := Build(sessions, now, time.UTC)

	assert.Equal(t, 300.0, r.TodayMinutes)
	assert.Equal(t, 2, r.TodaySessions)
	assert.Equal(t, 3, r.MonthSessions)
	assert.Equal(t, 13.6, r.MonthHours)

	byDate := make(map[string]float64)
	for _, d := range r.LastSevenDays {
		byDate[d.Date] = d.Hours
	}
	assert.Equal(t, 7.5, byDate["2025-03-04"])
	assert.Equal(t, 2.1, byDate["2025-03-09"])
	assert.Equal(t, 4.0, byDate["2025-03-10"])
	assert.NotContains(t, byDate, "2025-02-28")
}

func TestBuild_UsesLocalDayBoundaries(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	// 23:30 UTC on the 9th is already the 10th at UTC+2.
	s := closedSession("late", time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC), time.Hour)

	r := Build([]model.WorkSession{s}, now, loc)

	assert.Equal(t, 1, r.TodaySessions)
	assert.Equal(t, 60.0, r.TodayMinutes)
	assert.Equal(t, 1.0, r.LastSevenDays[6].Hours)
}
