package gormdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/attendance"
	"github.com/jckckids/backend/core/roster"
)

type attendanceRepository struct {
	db *gorm.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *gorm.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateEvent(ctx context.Context, evt attendance.Event) (attendance.Event, error) {
	evt.ID = uuid.NewString()
	m := newAttendanceEvent(evt)
	if err := repo.db.WithContext(ctx).Create(&m).Error; err != nil {
		return attendance.Event{}, errors.Wrap(err, "creating attendance event")
	}
	return evt, nil
}

func (repo *attendanceRepository) GetEventByID(ctx context.Context, id string) (attendance.Event, error) {
	var m attendanceEvent
	err := repo.db.WithContext(ctx).Preload("Records", recordOrder).
		Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return attendance.Event{}, attendance.ErrNotFound
		}
		return attendance.Event{}, errors.Wrap(err, "getting attendance event")
	}
	return m.toDomain(), nil
}

func (repo *attendanceRepository) GetEventInWindow(ctx context.Context, kind roster.Kind, targetID string, from, to time.Time) (attendance.Event, error) {
	var m attendanceEvent
	err := repo.db.WithContext(ctx).Preload("Records", recordOrder).
		Where("kind = ? AND target_id = ? AND date >= ? AND date < ?", string(kind), targetID, from, to).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return attendance.Event{}, attendance.ErrNotFound
		}
		return attendance.Event{}, errors.Wrap(err, "getting attendance event")
	}
	return m.toDomain(), nil
}

func (repo *attendanceRepository) UpdateEvent(ctx context.Context, id string, records []attendance.Record, notes string) (attendance.Event, error) {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&attendanceEvent{}).Where("id = ?", id).
			Updates(map[string]interface{}{"notes": notes, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return attendance.ErrNotFound
		}
		if err := tx.Where("event_id = ?", id).Delete(&attendanceRecord{}).Error; err != nil {
			return err
		}
		for i, rec := range records {
			r := attendanceRecord{EventID: id, Position: i, ChildID: rec.ChildID, Status: rec.Status, Notes: rec.Notes}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if err == attendance.ErrNotFound {
			return attendance.Event{}, err
		}
		return attendance.Event{}, errors.Wrap(err, "updating attendance event")
	}
	return repo.GetEventByID(ctx, id)
}

func (repo *attendanceRepository) FilterEvents(ctx context.Context, kind roster.Kind, targetID string, dr core.DateRange, page core.PageQuery) ([]attendance.Event, int, error) {
	q := repo.db.WithContext(ctx).Model(&attendanceEvent{}).
		Where("kind = ? AND target_id = ?", string(kind), targetID)
	q = applyDateRange(q, dr)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting attendance events")
	}

	var models []attendanceEvent
	err := q.Preload("Records", recordOrder).Order("date DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering attendance events")
	}
	return toEvents(models), int(total), nil
}

func (repo *attendanceRepository) EventsWithChild(ctx context.Context, childID string, kind roster.Kind, dr core.DateRange) ([]attendance.Event, error) {
	q := repo.db.WithContext(ctx).Model(&attendanceEvent{}).
		Joins("JOIN attendance_records ON attendance_records.event_id = attendance_events.id").
		Where("attendance_records.child_id = ?", childID)
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	q = applyDateRange(q, dr)

	var models []attendanceEvent
	err := q.Preload("Records", recordOrder).Order("date DESC").Distinct("attendance_events.*").Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying child attendance events")
	}
	return toEvents(models), nil
}

func (repo *attendanceRepository) QueryEvents(ctx context.Context, filter attendance.ReportFilter) ([]attendance.Event, error) {
	q := repo.db.WithContext(ctx).Model(&attendanceEvent{})
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.ClassID != "" {
		q = q.Where("kind = ? AND target_id = ?", string(roster.KindClass), filter.ClassID)
	}
	if filter.GroupID != "" {
		q = q.Where("kind = ? AND target_id = ?", string(roster.KindGroup), filter.GroupID)
	}
	q = applyDateRange(q, filter.DateRange)

	var models []attendanceEvent
	if err := q.Preload("Records", recordOrder).Order("date DESC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "querying attendance events")
	}
	return toEvents(models), nil
}

func recordOrder(db *gorm.DB) *gorm.DB {
	return db.Order("attendance_records.position")
}

func applyDateRange(q *gorm.DB, dr core.DateRange) *gorm.DB {
	if !dr.From.IsZero() {
		q = q.Where("date >= ?", dr.From)
	}
	if !dr.To.IsZero() {
		q = q.Where("date <= ?", dr.To)
	}
	return q
}

func toEvents(models []attendanceEvent) []attendance.Event {
	events := make([]attendance.Event, 0, len(models))
	for i := range models {
		events = append(events, models[i].toDomain())
	}
	return events
}
