package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/persist"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/roster"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/schedule"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/selection"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/undo"
)

var ErrSessionNotFound = errors.New("session: not found")

// Config carries the per-deployment knobs for new sessions.
type Config struct {
	Week        timegrid.WeekSchedule
	DayStart    timegrid.TimeOfDay
	DayEnd      timegrid.TimeOfDay
	SlotMinutes int
	ArmDelay    time.Duration
	UndoDepth   int
	// TTL evicts sessions idle for longer; SweepInterval is how often the
	// sweeper looks.
	TTL           time.Duration
	SweepInterval time.Duration
	// MaxDays caps how wide a window one session may open.
	MaxDays int
}

func (c *Config) applyDefaults() {
	if c.DayStart == 0 && c.DayEnd == 0 {
		c.DayStart = timegrid.DefaultDayStart
		c.DayEnd = timegrid.DefaultDayEnd
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = timegrid.DefaultSlotMinutes
	}
	if c.ArmDelay <= 0 {
		c.ArmDelay = selection.DefaultArmDelay
	}
	if c.UndoDepth <= 0 {
		c.UndoDepth = undo.DefaultDepth
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.MaxDays <= 0 {
		c.MaxDays = 7
	}
}

// Manager opens, tracks and expires sessions.
type Manager struct {
	syncer *persist.Syncer
	roster roster.Provider
	logger *slog.Logger
	cfg    Config

	mu       sync.Mutex
	sessions map[string]*Session

	now func() time.Time
}

func NewManager(syncer *persist.Syncer, rosterProvider roster.Provider, logger *slog.Logger, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		syncer:   syncer,
		roster:   rosterProvider,
		logger:   logger,
		cfg:      cfg,
		sessions: map[string]*Session{},
		now:      time.Now,
	}
}

// SetClock overrides the manager's clock. Test helper.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

type OpenInput struct {
	StartDate model.Date
	Days      int
	Category  string
}

// Open builds a session: reads the roster once, hydrates the appointment
// store for the window, and wires a fresh selection machine and undo stack.
func (m *Manager) Open(ctx context.Context, in OpenInput) (*Session, error) {
	if _, err := model.ParseDate(in.StartDate.String()); err != nil {
		return nil, err
	}
	if in.Days <= 0 {
		in.Days = 1
	}
	if in.Days > m.cfg.MaxDays {
		return nil, fmt.Errorf("session: window of %d days exceeds limit %d", in.Days, m.cfg.MaxDays)
	}

	staff, err := m.roster.ListStaff(ctx, in.Category)
	if err != nil {
		return nil, fmt.Errorf("session: load roster: %w", err)
	}

	grid, err := timegrid.New(m.cfg.DayStart, m.cfg.DayEnd, m.cfg.SlotMinutes)
	if err != nil {
		return nil, err
	}

	from := in.StartDate
	to := in.StartDate.AddDays(in.Days - 1)
	store := schedule.NewStore(m.syncer, undo.NewStack(m.cfg.UndoDepth), m.logger, from, to)
	if err := store.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("session: hydrate window: %w", err)
	}

	s := &Session{
		id:       uuid.NewString(),
		lastSeen: m.now(),
		dates:    model.DatesBetween(from, to),
		staff:    staff,
		week:     m.cfg.Week,
		grid:     grid,
		store:    store,
		now:      m.now,
	}
	s.machine = selection.NewMachine(m.cfg.ArmDelay, s.interactable)
	s.extendGridFor(s.Appointments())

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("session opened",
		"session_id", s.id, "from", from, "to", to,
		"staff", len(staff), "slots", grid.SlotCount())
	return s, nil
}

// Get returns the session and marks it seen.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// Close tears the session down. Closing an unknown id reports false.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Info("expired idle sessions", "count", n)
			}
		}
	}
}

func (m *Manager) sweep() int {
	cutoff := m.now().Add(-m.cfg.TTL)

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.seen().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return len(expired)
}
