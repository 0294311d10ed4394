package attendance

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/roster"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// Record is one child's outcome within an event.
type Record struct {
	ChildID string `json:"childId"`
	Status  string `json:"status"`
	Notes   string `json:"notes,omitempty"`
}

// Event is a roll call taken for one class or group on one day. At most one
// event exists per (kind, target, calendar day).
type Event struct {
	ID         string      `json:"id"`
	Kind       roster.Kind `json:"type"`
	TargetID   string      `json:"targetId"`
	Date       time.Time   `json:"date"`
	Records    []Record    `json:"records"`
	Notes      string      `json:"notes,omitempty"`
	RecorderID string      `json:"recordedBy"`
	CreatedAt  time.Time   `json:"createdAt"` // UTC
	UpdatedAt  time.Time   `json:"updatedAt"` // UTC
}

// ChildCount returns how many records carry the given status.
func (e *Event) ChildCount(status string) int {
	n := 0
	for _, rec := range e.Records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// RecordDetail is a Record with the child resolved for display.
type RecordDetail struct {
	Record
	Child *ChildRef `json:"child,omitempty"`
}

// ChildRef is the slice of a Child exposed on populated events.
type ChildRef struct {
	ID        string `json:"id"`
	Code      string `json:"uniqueId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// RecorderRef is the slice of the recording User exposed on populated events.
type RecorderRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Detail is an Event with its target, children and recorder resolved.
type Detail struct {
	Event
	Target   *roster.Entity `json:"target,omitempty"`
	Records  []RecordDetail `json:"records"`
	Recorder *RecorderRef   `json:"recorder,omitempty"`
}

// NewRecord is one child's outcome as submitted by a teacher.
type NewRecord struct {
	ChildID string `json:"childId" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=present absent late excused"`
	Notes   string `json:"notes"`
}

// TakeAttendance contains information needed to record a roll call.
// An empty Date means today; both bare dates and full timestamps are accepted.
type TakeAttendance struct {
	TargetID string      `json:"targetId" validate:"required"`
	Date     string      `json:"date"`
	Records  []NewRecord `json:"records" validate:"required,min=1,dive"`
	Notes    string      `json:"notes"`
}

func (ta *TakeAttendance) Validate(validate *validator.Validate) error {
	ta.Notes = core.CleanString(ta.Notes)
	if ta.Date != "" {
		if _, err := parseEventDate(ta.Date, time.UTC); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be YYYY-MM-DD or RFC 3339"})
		}
	}
	return validate.Struct(ta)
}

// EventDate resolves the submitted date in the given location, defaulting to
// the current time. Bare dates land at midnight in loc.
func (ta *TakeAttendance) EventDate(loc *time.Location) time.Time {
	if ta.Date == "" {
		return time.Now().In(loc)
	}
	t, _ := parseEventDate(ta.Date, loc)
	return t
}

func parseEventDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// UpdateAttendance replaces an event's records and notes wholesale.
type UpdateAttendance struct {
	Records []NewRecord `json:"records" validate:"required,min=1,dive"`
	Notes   string      `json:"notes"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	ua.Notes = core.CleanString(ua.Notes)
	return validate.Struct(ua)
}

// ChildEntry is one event projected down to a single child's outcome.
type ChildEntry struct {
	EventID    string      `json:"eventId"`
	Date       time.Time   `json:"date"`
	Kind       roster.Kind `json:"type"`
	TargetID   string      `json:"targetId"`
	TargetName string      `json:"targetName,omitempty"`
	Status     string      `json:"status"`
	Notes      string      `json:"notes,omitempty"`
}

// ReportFilter narrows a report down by kind, target and date range.
type ReportFilter struct {
	Kind      roster.Kind `query:"type"`
	ClassID   string      `query:"classId"`
	GroupID   string      `query:"groupId"`
	DateRange core.DateRange
}

// Summary tallies sessions and statuses across every matching record.
type Summary struct {
	TotalSessions int `json:"totalSessions"`
	TotalRecords  int `json:"totalRecords"`
	Present       int `json:"present"`
	Absent        int `json:"absent"`
	Late          int `json:"late"`
	Excused       int `json:"excused"`
}

// ChildStats is one child's tally across the filtered events.
type ChildStats struct {
	ChildID        string `json:"childId"`
	Code           string `json:"uniqueId,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Present        int    `json:"present"`
	Absent         int    `json:"absent"`
	Late           int    `json:"late"`
	Excused        int    `json:"excused"`
	Total          int    `json:"total"`
	AttendanceRate int    `json:"attendanceRate"`
}

// Report is the aggregate view plus the raw events for drill-down.
type Report struct {
	Summary       Summary      `json:"summary"`
	ChildrenStats []ChildStats `json:"childrenStats"`
	Events        []Event      `json:"events"`
}

// DuplicateError says a roll call already exists for the same target and day.
// EventID identifies the conflicting event so callers can amend it instead.
type DuplicateError struct {
	EventID string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("attendance already recorded for this day (event %s)", e.EventID)
}
