package attendance

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/notification"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

var ErrNotFound = errors.New("attendance event not found")

type (
	// Notifier dispatches parent notifications after a roll call is stored.
	// eventID identifies the stored event so notifications can link back to it.
	Notifier interface {
		NotifyAttendance(ctx context.Context, kind, eventID string, entries []notification.AttendanceEntry)
	}

	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEventByID(ctx context.Context, id string) (Event, error)
		// GetEventInWindow returns the event for (kind, target) whose date falls
		// in [from, to), or ErrNotFound.
		GetEventInWindow(ctx context.Context, kind roster.Kind, targetID string, from, to time.Time) (Event, error)
		// UpdateEvent replaces the event's records and notes wholesale.
		UpdateEvent(ctx context.Context, id string, records []Record, notes string) (Event, error)
		// FilterEvents returns the target's page ordered by date descending plus
		// the unpaged total. A zero DateRange means no date filtering.
		FilterEvents(ctx context.Context, kind roster.Kind, targetID string, dr core.DateRange, page core.PageQuery) ([]Event, int, error)
		// EventsWithChild returns events containing the child, any target,
		// ordered by date descending. Empty kind matches all kinds.
		EventsWithChild(ctx context.Context, childID string, kind roster.Kind, dr core.DateRange) ([]Event, error)
		// QueryEvents returns events matching the report filter, date descending.
		QueryEvents(ctx context.Context, filter ReportFilter) ([]Event, error)
	}

	Service struct {
		repo       Repository
		chdRepo    child.Repository
		rosterRepo roster.Repository
		usrRepo    user.Repository
		notifier   Notifier
		conf       *core.Config

		// syncNotify runs the fan-out inline; tests flip it on.
		syncNotify bool
	}
)

func NewService(repo Repository, chdRepo child.Repository, rosterRepo roster.Repository, usrRepo user.Repository, notifier Notifier, conf *core.Config) *Service {
	return &Service{
		repo:       repo,
		chdRepo:    chdRepo,
		rosterRepo: rosterRepo,
		usrRepo:    usrRepo,
		notifier:   notifier,
		conf:       conf,
	}
}

// dayWindow returns [start of day, start of next day) around t in the
// reference timezone.
func (svc *Service) dayWindow(t time.Time) (time.Time, time.Time) {
	t = t.In(svc.conf.Timezone)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, svc.conf.Timezone)
	return start, start.AddDate(0, 0, 1)
}

// Take records a roll call for the target on the submitted day. A second
// submission for the same target and day fails with DuplicateError carrying
// the existing event's id. The parent fan-out runs after the write and its
// failures never surface to the caller.
func (svc *Service) Take(ctx context.Context, kind roster.Kind, ta TakeAttendance, recorderID string) (Detail, error) {
	target, err := svc.rosterRepo.GetEntityByID(ctx, kind, ta.TargetID)
	if err != nil {
		if err == roster.ErrNotFound {
			return Detail{}, core.NewValidationError(nil, core.FieldError{Field: "targetId", Error: "invalid " + string(kind)})
		}
		return Detail{}, errors.Wrapf(err, "finding %s", kind)
	}

	date := ta.EventDate(svc.conf.Timezone)
	from, to := svc.dayWindow(date)
	if existing, err := svc.repo.GetEventInWindow(ctx, kind, target.ID, from, to); err == nil {
		return Detail{}, DuplicateError{EventID: existing.ID}
	} else if err != ErrNotFound {
		return Detail{}, errors.Wrap(err, "checking for existing attendance")
	}

	now := time.Now().UTC()
	evt := Event{
		Kind:       kind,
		TargetID:   target.ID,
		Date:       date,
		Records:    toRecords(ta.Records),
		Notes:      ta.Notes,
		RecorderID: recorderID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	evt, err = svc.repo.CreateEvent(ctx, evt)
	if err != nil {
		return Detail{}, err
	}

	entries := make([]notification.AttendanceEntry, len(evt.Records))
	for i, rec := range evt.Records {
		entries[i] = notification.AttendanceEntry{ChildID: rec.ChildID, Status: rec.Status}
	}
	if svc.syncNotify {
		svc.notifier.NotifyAttendance(ctx, string(kind), evt.ID, entries)
	} else {
		go svc.notifier.NotifyAttendance(context.Background(), string(kind), evt.ID, entries)
	}

	return svc.populate(ctx, evt)
}

// Update swaps out the event's records and notes. Parents are not re-notified.
func (svc *Service) Update(ctx context.Context, id string, ua UpdateAttendance) (Detail, error) {
	if _, err := svc.repo.GetEventByID(ctx, id); err != nil {
		return Detail{}, err
	}
	evt, err := svc.repo.UpdateEvent(ctx, id, toRecords(ua.Records), ua.Notes)
	if err != nil {
		return Detail{}, err
	}
	return svc.populate(ctx, evt)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Detail, error) {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return svc.populate(ctx, evt)
}

// History pages through a target's events, newest first.
func (svc *Service) History(ctx context.Context, kind roster.Kind, targetID string, dr core.DateRange, page core.PageQuery) ([]Detail, core.Pagination, error) {
	events, total, err := svc.repo.FilterEvents(ctx, kind, targetID, dr, page)
	if err != nil {
		return nil, core.Pagination{}, err
	}
	details := make([]Detail, 0, len(events))
	for _, evt := range events {
		det, err := svc.populate(ctx, evt)
		if err != nil {
			return nil, core.Pagination{}, err
		}
		details = append(details, det)
	}
	return details, core.NewPagination(page.Page, page.Limit, total), nil
}

// ChildHistory projects each event the child appears in down to that child's
// own status and notes, newest first. Other children on the same event stay
// hidden.
func (svc *Service) ChildHistory(ctx context.Context, childID string, kind roster.Kind, dr core.DateRange) ([]ChildEntry, error) {
	if _, err := svc.chdRepo.GetChildByID(ctx, childID); err != nil {
		return nil, err
	}
	events, err := svc.repo.EventsWithChild(ctx, childID, kind, dr)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	entries := make([]ChildEntry, 0, len(events))
	for _, evt := range events {
		for _, rec := range evt.Records {
			if rec.ChildID != childID {
				continue
			}
			key := string(evt.Kind) + ":" + evt.TargetID
			name, ok := names[key]
			if !ok {
				if target, err := svc.rosterRepo.GetEntityByID(ctx, evt.Kind, evt.TargetID); err == nil {
					name = target.Name
				}
				names[key] = name
			}
			entries = append(entries, ChildEntry{
				EventID:    evt.ID,
				Date:       evt.Date,
				Kind:       evt.Kind,
				TargetID:   evt.TargetID,
				TargetName: name,
				Status:     rec.Status,
				Notes:      rec.Notes,
			})
			break
		}
	}
	return entries, nil
}

// Report tallies every record in the filtered events globally and per child.
// Children without a single record in the range are left out.
func (svc *Service) Report(ctx context.Context, filter ReportFilter) (Report, error) {
	events, err := svc.repo.QueryEvents(ctx, filter)
	if err != nil {
		return Report{}, err
	}

	rpt := Report{Events: events, ChildrenStats: []ChildStats{}}
	rpt.Summary.TotalSessions = len(events)

	perChild := map[string]*ChildStats{}
	for _, evt := range events {
		for _, rec := range evt.Records {
			rpt.Summary.TotalRecords++
			stats, ok := perChild[rec.ChildID]
			if !ok {
				stats = &ChildStats{ChildID: rec.ChildID}
				if chd, err := svc.chdRepo.GetChildByID(ctx, rec.ChildID); err == nil {
					stats.Code = chd.Code
					stats.FirstName = chd.FirstName
					stats.LastName = chd.LastName
				}
				perChild[rec.ChildID] = stats
			}
			stats.Total++
			switch rec.Status {
			case StatusPresent:
				rpt.Summary.Present++
				stats.Present++
			case StatusAbsent:
				rpt.Summary.Absent++
				stats.Absent++
			case StatusLate:
				rpt.Summary.Late++
				stats.Late++
			case StatusExcused:
				rpt.Summary.Excused++
				stats.Excused++
			}
		}
	}

	for _, stats := range perChild {
		if stats.Total > 0 {
			stats.AttendanceRate = int(math.Round(float64(stats.Present+stats.Late) * 100 / float64(stats.Total)))
		}
		rpt.ChildrenStats = append(rpt.ChildrenStats, *stats)
	}
	return rpt, nil
}

func toRecords(recs []NewRecord) []Record {
	records := make([]Record, len(recs))
	for i, rec := range recs {
		records[i] = Record{ChildID: rec.ChildID, Status: rec.Status, Notes: core.CleanString(rec.Notes)}
	}
	return records
}

func (svc *Service) populate(ctx context.Context, evt Event) (Detail, error) {
	det := Detail{Event: evt, Records: make([]RecordDetail, 0, len(evt.Records))}

	if target, err := svc.rosterRepo.GetEntityByID(ctx, evt.Kind, evt.TargetID); err == nil {
		det.Target = &target
	}
	for _, rec := range evt.Records {
		rd := RecordDetail{Record: rec}
		if chd, err := svc.chdRepo.GetChildByID(ctx, rec.ChildID); err == nil {
			rd.Child = &ChildRef{ID: chd.ID, Code: chd.Code, FirstName: chd.FirstName, LastName: chd.LastName}
		}
		det.Records = append(det.Records, rd)
	}
	if rec, err := svc.usrRepo.GetUserByID(ctx, evt.RecorderID); err == nil {
		det.Recorder = &RecorderRef{ID: rec.ID, FirstName: rec.FirstName, LastName: rec.LastName}
	}
	return det, nil
}
