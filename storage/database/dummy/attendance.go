package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/attendance"
	"github.com/jckckids/backend/core/roster"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) query() []attendance.Event {
	events := make([]attendance.Event, 0, len(repo.db.table))
	for _, evt := range repo.db.table {
		events = append(events, *evt)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.After(events[j].Date) })
	return events
}

func (repo *attendanceRepository) CreateEvent(ctx context.Context, evt attendance.Event) (attendance.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt.ID = uuid.NewString()
	repo.db.table[evt.ID] = &evt
	return evt, nil
}

func (repo *attendanceRepository) GetEventByID(ctx context.Context, id string) (attendance.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.table[id]; ok {
		return *evt, nil
	}
	return attendance.Event{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) GetEventInWindow(ctx context.Context, kind roster.Kind, targetID string, from, to time.Time) (attendance.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, evt := range repo.query() {
		if evt.Kind != kind || evt.TargetID != targetID {
			continue
		}
		if !evt.Date.Before(from) && evt.Date.Before(to) {
			return evt, nil
		}
	}
	return attendance.Event{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) UpdateEvent(ctx context.Context, id string, records []attendance.Record, notes string) (attendance.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt, ok := repo.db.table[id]
	if !ok {
		return attendance.Event{}, attendance.ErrNotFound
	}
	evt.Records = records
	evt.Notes = notes
	evt.UpdatedAt = time.Now().UTC()
	return *evt, nil
}

func (repo *attendanceRepository) FilterEvents(ctx context.Context, kind roster.Kind, targetID string, dr core.DateRange, page core.PageQuery) ([]attendance.Event, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []attendance.Event
	for _, evt := range repo.query() {
		if evt.Kind != kind || evt.TargetID != targetID {
			continue
		}
		if !dr.IsZero() && !dr.Contains(evt.Date) {
			continue
		}
		events = append(events, evt)
	}

	total := len(events)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return events[start:end], total, nil
}

func (repo *attendanceRepository) EventsWithChild(ctx context.Context, childID string, kind roster.Kind, dr core.DateRange) ([]attendance.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []attendance.Event
	for _, evt := range repo.query() {
		if kind != "" && evt.Kind != kind {
			continue
		}
		if !dr.IsZero() && !dr.Contains(evt.Date) {
			continue
		}
		for _, rec := range evt.Records {
			if rec.ChildID == childID {
				events = append(events, evt)
				break
			}
		}
	}
	return events, nil
}

func (repo *attendanceRepository) QueryEvents(ctx context.Context, filter attendance.ReportFilter) ([]attendance.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []attendance.Event
	for _, evt := range repo.query() {
		if filter.Kind != "" && evt.Kind != filter.Kind {
			continue
		}
		if filter.ClassID != "" && !(evt.Kind == roster.KindClass && evt.TargetID == filter.ClassID) {
			continue
		}
		if filter.GroupID != "" && !(evt.Kind == roster.KindGroup && evt.TargetID == filter.GroupID) {
			continue
		}
		if !filter.DateRange.IsZero() && !filter.DateRange.Contains(evt.Date) {
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}
