// Package report aggregates session history into daily, weekly and monthly
// totals.
package report

import (
	"math"
	"time"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

const dayLayout = "2006-01-02"

type Day struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

type Report struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	TodayMinutes  float64   `json:"todayMinutes"`
	TodaySessions int       `json:"todaySessions"`
	LastSevenDays []Day     `json:"lastSevenDays"`
	MonthHours    float64   `json:"monthHours"`
	MonthSessions int       `json:"monthSessions"`
}

// Build computes the report at now. Days are calendar days in loc; closed
// sessions are attributed to the day they started on.
func Build(sessions []model.WorkSession, now time.Time, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := startOfDay(now)

	r := Report{GeneratedAt: now}

	var todayClosed time.Duration
	var monthClosed time.Duration
	perDay := make(map[string]time.Duration)

	for _, s := range sessions {
		start := s.StartTime.In(loc)
		startedToday := !start.Before(today)

		if s.Open() {
			if startedToday {
				r.TodaySessions++
			}
			r.TodayMinutes += now.Sub(start).Minutes()
			continue
		}

		worked := s.EndTime.Sub(s.StartTime)
		if startedToday {
			r.TodaySessions++
			todayClosed += worked
		}
		perDay[start.Format(dayLayout)] += worked
		if start.Year() == now.Year() && start.Month() == now.Month() {
			monthClosed += worked
			r.MonthSessions++
		}
	}

	r.TodayMinutes += todayClosed.Minutes()
	r.MonthHours = roundTenth(monthClosed.Hours())

	r.LastSevenDays = make([]Day, 0, 7)
	for i := 6; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(dayLayout)
		r.LastSevenDays = append(r.LastSevenDays, Day{Date: key, Hours: roundTenth(perDay[key].Hours())})
	}
	return r
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
