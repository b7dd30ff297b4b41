// Package tracker holds the work session state machine and the adaptive
// location sampling scheduler that drives it.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Thrusbalda/auto-work-log/internal/clock"
	"github.com/Thrusbalda/auto-work-log/internal/metrics"
	"github.com/Thrusbalda/auto-work-log/internal/model"
	"github.com/Thrusbalda/auto-work-log/internal/persist"
)

const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// Transition is the outcome of a start, stop or toggle request.
type Transition struct {
	Changed bool
	Status  string
	Session *model.WorkSession
}

// Machine owns the session history and the active session pointer. All
// transitions are serialized.
type Machine struct {
	store   persist.Store
	writer  persist.Writer
	clock   clock.Clock
	logger  *zap.Logger
	metrics metrics.Recorder
	newID   func() string

	mu       sync.RWMutex
	sessions []model.WorkSession
	activeID string
}

func NewMachine(store persist.Store, writer persist.Writer, clk clock.Clock, logger *zap.Logger, rec metrics.Recorder) *Machine {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Machine{
		store:   store,
		writer:  writer,
		clock:   clk,
		logger:  logger,
		metrics: rec,
		newID:   uuid.NewString,
	}
}

// Init loads history and the active pointer from the store and repairs any
// inconsistency between them.
func (m *Machine) Init(ctx context.Context) error {
	var sessions []model.WorkSession
	raw, ok, err := m.store.Get(ctx, model.KeySessions)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
			return fmt.Errorf("decode sessions: %w", err)
		}
	}

	pointer, _, err := m.store.Get(ctx, model.KeyCurrentSessionID)
	if err != nil {
		return fmt.Errorf("load active session id: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = sessions
	m.activeID = pointer
	if m.repair() {
		m.persistLocked()
	}

	m.logger.Info("session state loaded",
		zap.Int("sessions", len(m.sessions)),
		zap.String("status", m.statusLocked()),
		zap.String("active_session_id", m.activeID),
	)
	return nil
}

// repair makes the pointer and the set of open sessions agree. It reports
// whether anything changed.
func (m *Machine) repair() bool {
	changed := false

	if m.activeID != "" {
		idx := m.indexOf(m.activeID)
		if idx < 0 || !m.sessions[idx].Open() {
			m.logger.Warn("clearing active session id with no open session", zap.String("session_id", m.activeID))
			m.activeID = ""
			changed = true
		}
	}

	if m.activeID == "" {
		latest := -1
		for i, s := range m.sessions {
			if s.Open() && (latest < 0 || s.StartTime.After(m.sessions[latest].StartTime)) {
				latest = i
			}
		}
		if latest >= 0 {
			m.activeID = m.sessions[latest].ID
			m.logger.Warn("re-adopting open session", zap.String("session_id", m.activeID))
			changed = true
		}
	}

	for i := range m.sessions {
		s := &m.sessions[i]
		if !s.Open() || s.ID == m.activeID {
			continue
		}
		end := s.StartTime
		s.EndTime = &end
		s.DurationMinutes = 0
		m.logger.Warn("closing stray open session", zap.String("session_id", s.ID))
		changed = true
	}

	return changed
}

func (m *Machine) Start(trigger string) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(trigger)
}

func (m *Machine) Stop(trigger string) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(trigger)
}

// Toggle starts a session when idle and stops the open one when working.
func (m *Machine) Toggle(trigger string) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeID == "" {
		return m.startLocked(trigger)
	}
	return m.stopLocked(trigger)
}

// Evaluate applies the geofence rule for a fresh distance reading.
func (m *Machine) Evaluate(distance, radius float64) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	atWork := distance <= radius
	switch {
	case atWork && m.activeID == "":
		return m.startLocked(TriggerAuto)
	case !atWork && m.activeID != "":
		return m.stopLocked(TriggerAuto)
	default:
		return Transition{Status: m.statusLocked(), Session: m.activeLocked()}
	}
}

func (m *Machine) startLocked(trigger string) Transition {
	if m.activeID != "" {
		return Transition{Status: model.StatusWorking, Session: m.activeLocked()}
	}

	session := model.WorkSession{
		ID:        m.newID(),
		StartTime: m.clock.Now(),
	}
	m.sessions = append(m.sessions, session)
	m.activeID = session.ID
	m.persistLocked()

	m.metrics.RecordTransition("start", trigger)
	m.logger.Info("work session started",
		zap.String("session_id", session.ID),
		zap.String("trigger", trigger),
	)
	return Transition{Changed: true, Status: model.StatusWorking, Session: &session}
}

func (m *Machine) stopLocked(trigger string) Transition {
	if m.activeID == "" {
		return Transition{Status: model.StatusIdle}
	}

	idx := m.indexOf(m.activeID)
	m.activeID = ""
	if idx < 0 {
		// Unreachable after Init; keep the pointer consistent anyway.
		m.persistLocked()
		return Transition{Changed: true, Status: model.StatusIdle}
	}

	s := &m.sessions[idx]
	now := m.clock.Now()
	s.EndTime = &now
	s.DurationMinutes = now.Sub(s.StartTime).Minutes()
	closed := cloneSession(*s)
	m.persistLocked()

	m.metrics.RecordTransition("stop", trigger)
	m.logger.Info("work session stopped",
		zap.String("session_id", closed.ID),
		zap.String("trigger", trigger),
		zap.Float64("duration_minutes", closed.DurationMinutes),
	)
	return Transition{Changed: true, Status: model.StatusIdle, Session: &closed}
}

// persistLocked hands history and the pointer to the write-behind writer.
func (m *Machine) persistLocked() {
	payload, err := json.Marshal(m.sessionsOrEmpty())
	if err != nil {
		m.logger.Error("encode sessions", zap.Error(err))
	} else {
		m.writer.Set(model.KeySessions, string(payload))
	}

	if m.activeID != "" {
		m.writer.Set(model.KeyCurrentSessionID, m.activeID)
	} else {
		m.writer.Remove(model.KeyCurrentSessionID)
	}
}

func (m *Machine) sessionsOrEmpty() []model.WorkSession {
	if m.sessions == nil {
		return []model.WorkSession{}
	}
	return m.sessions
}

func (m *Machine) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Machine) statusLocked() string {
	if m.activeID == "" {
		return model.StatusIdle
	}
	return model.StatusWorking
}

// Active returns a copy of the open session, or nil when idle.
func (m *Machine) Active() *model.WorkSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked()
}

func (m *Machine) activeLocked() *model.WorkSession {
	if m.activeID == "" {
		return nil
	}
	idx := m.indexOf(m.activeID)
	if idx < 0 {
		return nil
	}
	s := cloneSession(m.sessions[idx])
	return &s
}

// History returns a copy of every session in start order.
func (m *Machine) History() []model.WorkSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.WorkSession, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = cloneSession(s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (m *Machine) indexOf(id string) int {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneSession(s model.WorkSession) model.WorkSession {
	if s.EndTime != nil {
		end := *s.EndTime
		s.EndTime = &end
	}
	return s
}
