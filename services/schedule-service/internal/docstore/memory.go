package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store for tests and the offline pointer simulator.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: map[string]Record{},
		now:     time.Now,
	}
}

// SetClock overrides the timestamp source; tests use a fixed clock.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) QueryRange(_ context.Context, dateFrom, dateTo string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, rec := range m.records {
		if rec.Deleted {
			continue
		}
		if rec.Date < dateFrom || rec.Date > dateTo {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Insert(_ context.Context, rec Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if existing, ok := m.records[rec.ID]; ok && !existing.Deleted {
		return "", fmt.Errorf("docstore: duplicate id %s", rec.ID)
	}
	now := m.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Deleted = false
	rec.DeletedAt = nil
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *Memory) MergeUpdate(_ context.Context, id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.Deleted {
		return ErrNotFound
	}
	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&rec.Date, p.Date)
	applyString(&rec.StartTime, p.StartTime)
	applyString(&rec.EndTime, p.EndTime)
	applyString(&rec.StaffID, p.StaffID)
	applyString(&rec.StaffName, p.StaffName)
	applyString(&rec.StaffColor, p.StaffColor)
	applyString(&rec.Title, p.Title)
	applyString(&rec.Notes, p.Notes)
	applyString(&rec.Type, p.Type)
	rec.UpdatedAt = m.now().UTC()
	m.records[id] = rec
	return nil
}

func (m *Memory) MarkDeleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Deleted {
		return nil
	}
	now := m.now().UTC()
	rec.Deleted = true
	rec.DeletedAt = &now
	rec.UpdatedAt = now
	m.records[id] = rec
	return nil
}

// Get returns a record by id, tombstoned or not. Test helper.
func (m *Memory) Get(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

var _ Store = (*Memory)(nil)
