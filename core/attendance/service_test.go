package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/attendance"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/notification"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
	dummydb "github.com/jckckids/backend/storage/database/dummy"
)

type fakeNotifier struct {
	kinds    []string
	eventIDs []string
	entries  [][]notification.AttendanceEntry
}

func (n *fakeNotifier) NotifyAttendance(ctx context.Context, kind, eventID string, entries []notification.AttendanceEntry) {
	n.kinds = append(n.kinds, kind)
	n.eventIDs = append(n.eventIDs, eventID)
	n.entries = append(n.entries, entries)
}

type testEnv struct {
	svc      *attendance.Service
	repo     attendance.Repository
	chdRepo  child.Repository
	notifier *fakeNotifier
	class    roster.Entity
	group    roster.Entity
	children []child.Child
	teacher  user.User
}

func setup(t *testing.T, childCount int) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() error = %v", err)
	}
	repo := dummydb.NewAttendanceRepository(db)
	chdRepo := dummydb.NewChildRepository(db)
	rosterRepo := dummydb.NewRosterRepository(db)
	usrRepo := dummydb.NewUserRepository(db)

	loc, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		t.Fatalf("time.LoadLocation() error = %v", err)
	}
	conf := &core.Config{Timezone: loc}

	env := &testEnv{repo: repo, chdRepo: chdRepo, notifier: &fakeNotifier{}}
	env.svc = attendance.NewServiceMock(repo, chdRepo, rosterRepo, usrRepo, env.notifier, conf)

	now := time.Now().UTC()
	env.class, err = rosterRepo.CreateEntity(ctx, roster.Entity{Kind: roster.KindClass, Name: "Nasareth Gem", IsActive: true, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating class: %v", err)
	}
	env.group, err = rosterRepo.CreateEntity(ctx, roster.Entity{Kind: roster.KindGroup, Name: "Kingdom Choir", IsActive: true, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating group: %v", err)
	}

	env.teacher, err = usrRepo.CreateUser(ctx, user.User{FirstName: "Grace", LastName: "Obi", Email: "grace@test.test", Role: user.RoleTeacher, IsActive: true, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating teacher: %v", err)
	}

	parent, err := usrRepo.CreateUser(ctx, user.User{FirstName: "Ada", LastName: "Obi", Email: "ada@test.test", Role: user.RoleParent, IsActive: true, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("creating parent: %v", err)
	}

	names := []string{"Zara", "Kemi", "Tobi", "Seun", "Bola", "Dayo"}
	for i := 0; i < childCount; i++ {
		chd, err := chdRepo.CreateChild(ctx, child.Child{
			Code:      child.FormatCode(now, int64(i+1)),
			FirstName: names[i%len(names)],
			LastName:  "Obi",
			ClassID:   env.class.ID,
			GroupIDs:  []string{env.group.ID},
			ParentID:  parent.ID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("creating child: %v", err)
		}
		env.children = append(env.children, chd)
	}
	return env
}

func (env *testEnv) take(t *testing.T, kind roster.Kind, targetID, date string, recs ...attendance.NewRecord) attendance.Detail {
	t.Helper()
	det, err := env.svc.Take(context.Background(), kind, attendance.TakeAttendance{TargetID: targetID, Date: date, Records: recs}, env.teacher.ID)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	return det
}

func TestTakeAttendanceDuplicateDay(t *testing.T) {
	env := setup(t, 2)
	ctx := context.Background()

	rec := attendance.NewRecord{ChildID: env.children[0].ID, Status: attendance.StatusPresent}
	det := env.take(t, roster.KindClass, env.class.ID, "2026-03-01", rec)
	if det.ID == "" {
		t.Fatal("Take() returned event without id")
	}

	// same target, same day
	_, err := env.svc.Take(ctx, roster.KindClass, attendance.TakeAttendance{TargetID: env.class.ID, Date: "2026-03-01", Records: []attendance.NewRecord{rec}}, env.teacher.ID)
	dup, ok := err.(attendance.DuplicateError)
	if !ok {
		t.Fatalf("Take() error = %v, want DuplicateError", err)
	}
	if dup.EventID != det.ID {
		t.Errorf("DuplicateError.EventID = %v, want %v", dup.EventID, det.ID)
	}

	// same day, different target kind is fine
	env.take(t, roster.KindGroup, env.group.ID, "2026-03-01", rec)

	// next day is fine
	env.take(t, roster.KindClass, env.class.ID, "2026-03-02", rec)
}

func TestTakeAttendanceTimestampDates(t *testing.T) {
	env := setup(t, 1)
	ctx := context.Background()

	rec := attendance.NewRecord{ChildID: env.children[0].ID, Status: attendance.StatusPresent}

	// a full timestamp is as good as a bare date
	det := env.take(t, roster.KindClass, env.class.ID, "2026-03-01T10:30:00+01:00", rec)
	in := attendance.TakeAttendance{Date: "2026-03-01T10:30:00+01:00"}
	if got := in.EventDate(time.UTC); !got.Equal(det.Date) {
		t.Errorf("EventDate() = %v, want %v", got, det.Date)
	}

	// and occupies the same day as the bare form
	_, err := env.svc.Take(ctx, roster.KindClass, attendance.TakeAttendance{TargetID: env.class.ID, Date: "2026-03-01", Records: []attendance.NewRecord{rec}}, env.teacher.ID)
	if _, ok := err.(attendance.DuplicateError); !ok {
		t.Fatalf("Take() error = %v, want DuplicateError", err)
	}

	bad := attendance.TakeAttendance{TargetID: env.class.ID, Date: "not-a-date", Records: []attendance.NewRecord{rec}}
	vErr, ok := bad.Validate(validator.New()).(*core.ValidationError)
	if !ok || len(vErr.Fields) == 0 || vErr.Fields[0].Field != "date" {
		t.Errorf("Validate() = %v, want validation error on date", vErr)
	}
}

func TestTakeAttendanceDayBoundary(t *testing.T) {
	env := setup(t, 1)
	ctx := context.Background()
	loc, _ := time.LoadLocation("Africa/Lagos")

	rec := attendance.NewRecord{ChildID: env.children[0].ID, Status: attendance.StatusPresent}

	// an event at 23:59:59 still occupies that day
	lastSecond := time.Date(2026, 3, 1, 23, 59, 59, 0, loc)
	if _, err := env.repo.CreateEvent(ctx, attendance.Event{Kind: roster.KindClass, TargetID: env.class.ID, Date: lastSecond, Records: []attendance.Record{{ChildID: rec.ChildID, Status: rec.Status}}}); err != nil {
		t.Fatalf("seeding event: %v", err)
	}
	_, err := env.svc.Take(ctx, roster.KindClass, attendance.TakeAttendance{TargetID: env.class.ID, Date: "2026-03-01", Records: []attendance.NewRecord{rec}}, env.teacher.ID)
	if _, ok := err.(attendance.DuplicateError); !ok {
		t.Fatalf("Take() error = %v, want DuplicateError", err)
	}

	// midnight belongs to the next day
	if _, err = env.svc.Take(ctx, roster.KindClass, attendance.TakeAttendance{TargetID: env.class.ID, Date: "2026-03-02", Records: []attendance.NewRecord{rec}}, env.teacher.ID); err != nil {
		t.Fatalf("Take() next day error = %v", err)
	}
}

func TestTakeAttendanceFanOut(t *testing.T) {
	env := setup(t, 3)

	det := env.take(t, roster.KindClass, env.class.ID, "2026-03-01",
		attendance.NewRecord{ChildID: env.children[0].ID, Status: attendance.StatusPresent},
		attendance.NewRecord{ChildID: env.children[1].ID, Status: attendance.StatusLate},
		attendance.NewRecord{ChildID: env.children[2].ID, Status: attendance.StatusAbsent},
	)

	if len(env.notifier.entries) != 1 {
		t.Fatalf("fan-out calls = %d, want 1", len(env.notifier.entries))
	}
	if env.notifier.kinds[0] != "class" {
		t.Errorf("fan-out kind = %v, want class", env.notifier.kinds[0])
	}
	if env.notifier.eventIDs[0] != det.ID {
		t.Errorf("fan-out event id = %v, want %v", env.notifier.eventIDs[0], det.ID)
	}
	if got := len(env.notifier.entries[0]); got != 3 {
		t.Errorf("fan-out entries = %d, want 3", got)
	}
}

func TestUpdateAttendance(t *testing.T) {
	env := setup(t, 2)
	ctx := context.Background()

	det := env.take(t, roster.KindClass, env.class.ID, "2026-03-01",
		attendance.NewRecord{ChildID: env.children[0].ID, Status: attendance.StatusAbsent},
	)
	fanOuts := len(env.notifier.entries)

	// records are replaced wholesale
	updated, err := env.svc.Update(ctx, det.ID, attendance.UpdateAttendance{
		Records: []attendance.NewRecord{
			{ChildID: env.children[0].ID, Status: attendance.StatusPresent},
			{ChildID: env.children[1].ID, Status: attendance.StatusLate, Notes: "arrived 10:15"},
		},
		Notes: "corrected",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(updated.Records) != 2 {
		t.Errorf("Update() records = %d, want 2", len(updated.Records))
	}
	if updated.Notes != "corrected" {
		t.Errorf("Update() notes = %q, want %q", updated.Notes, "corrected")
	}
	if updated.Records[0].Status != attendance.StatusPresent {
		t.Errorf("Update() record status = %v, want present", updated.Records[0].Status)
	}

	// amendments stay silent to parents
	if len(env.notifier.entries) != fanOuts {
		t.Errorf("fan-out calls after update = %d, want %d", len(env.notifier.entries), fanOuts)
	}

	if _, err = env.svc.Update(ctx, "nope", attendance.UpdateAttendance{Records: []attendance.NewRecord{{ChildID: env.children[0].ID, Status: attendance.StatusPresent}}}); err != attendance.ErrNotFound {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestChildHistoryProjection(t *testing.T) {
	env := setup(t, 2)
	ctx := context.Background()
	me, other := env.children[0], env.children[1]

	env.take(t, roster.KindClass, env.class.ID, "2026-03-01",
		attendance.NewRecord{ChildID: me.ID, Status: attendance.StatusPresent},
		attendance.NewRecord{ChildID: other.ID, Status: attendance.StatusAbsent},
	)
	env.take(t, roster.KindGroup, env.group.ID, "2026-03-08",
		attendance.NewRecord{ChildID: me.ID, Status: attendance.StatusLate, Notes: "traffic"},
	)
	// an event without the child never shows up
	env.take(t, roster.KindClass, env.class.ID, "2026-03-15",
		attendance.NewRecord{ChildID: other.ID, Status: attendance.StatusPresent},
	)

	entries, err := env.svc.ChildHistory(ctx, me.ID, "", core.DateRange{})
	if err != nil {
		t.Fatalf("ChildHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ChildHistory() entries = %d, want 2", len(entries))
	}
	// newest first
	if entries[0].Kind != roster.KindGroup || entries[0].Status != attendance.StatusLate || entries[0].Notes != "traffic" {
		t.Errorf("ChildHistory()[0] = %+v, want group/late/traffic", entries[0])
	}
	if entries[1].Kind != roster.KindClass || entries[1].Status != attendance.StatusPresent {
		t.Errorf("ChildHistory()[1] = %+v, want class/present", entries[1])
	}
	if entries[0].TargetName != env.group.Name {
		t.Errorf("ChildHistory()[0].TargetName = %q, want %q", entries[0].TargetName, env.group.Name)
	}

	// kind filter
	entries, err = env.svc.ChildHistory(ctx, me.ID, roster.KindClass, core.DateRange{})
	if err != nil {
		t.Fatalf("ChildHistory(class) error = %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != roster.KindClass {
		t.Errorf("ChildHistory(class) = %+v, want 1 class entry", entries)
	}

	if _, err = env.svc.ChildHistory(ctx, "nope", "", core.DateRange{}); err != child.ErrNotFound {
		t.Errorf("ChildHistory() error = %v, want child.ErrNotFound", err)
	}
}

func TestReport(t *testing.T) {
	env := setup(t, 3)
	ctx := context.Background()
	kid, other, absent := env.children[0], env.children[1], env.children[2]

	// 5 sessions: kid has 3 present, 1 late, 1 absent => rate 80
	statuses := []string{
		attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent,
		attendance.StatusLate, attendance.StatusAbsent,
	}
	for i, status := range statuses {
		date := time.Date(2026, 3, 1+i*7, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		env.take(t, roster.KindClass, env.class.ID, date,
			attendance.NewRecord{ChildID: kid.ID, Status: status},
			attendance.NewRecord{ChildID: other.ID, Status: attendance.StatusPresent},
		)
	}
	_ = absent // never recorded, must not appear in stats

	rpt, err := env.svc.Report(ctx, attendance.ReportFilter{Kind: roster.KindClass, ClassID: env.class.ID})
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	if rpt.Summary.TotalSessions != 5 {
		t.Errorf("Summary.TotalSessions = %d, want 5", rpt.Summary.TotalSessions)
	}
	if rpt.Summary.TotalRecords != 10 {
		t.Errorf("Summary.TotalRecords = %d, want 10", rpt.Summary.TotalRecords)
	}
	if rpt.Summary.Present != 8 || rpt.Summary.Late != 1 || rpt.Summary.Absent != 1 || rpt.Summary.Excused != 0 {
		t.Errorf("Summary tallies = %+v", rpt.Summary)
	}

	if len(rpt.ChildrenStats) != 2 {
		t.Fatalf("ChildrenStats = %d children, want 2", len(rpt.ChildrenStats))
	}
	byID := map[string]attendance.ChildStats{}
	for _, stats := range rpt.ChildrenStats {
		byID[stats.ChildID] = stats
	}
	if _, ok := byID[absent.ID]; ok {
		t.Error("child with zero records appeared in stats")
	}
	kidStats := byID[kid.ID]
	if kidStats.Present != 3 || kidStats.Late != 1 || kidStats.Absent != 1 || kidStats.Total != 5 {
		t.Errorf("kid stats = %+v", kidStats)
	}
	if kidStats.AttendanceRate != 80 {
		t.Errorf("kid AttendanceRate = %d, want 80", kidStats.AttendanceRate)
	}
	if kidStats.Code != kid.Code || kidStats.FirstName != kid.FirstName {
		t.Errorf("kid identity not resolved: %+v", kidStats)
	}
	otherStats := byID[other.ID]
	if otherStats.AttendanceRate != 100 {
		t.Errorf("other AttendanceRate = %d, want 100", otherStats.AttendanceRate)
	}

	if len(rpt.Events) != 5 {
		t.Errorf("Events = %d, want 5", len(rpt.Events))
	}

	// reads never mutate: a second run reports the same numbers
	again, err := env.svc.Report(ctx, attendance.ReportFilter{Kind: roster.KindClass, ClassID: env.class.ID})
	if err != nil {
		t.Fatalf("Report() second run error = %v", err)
	}
	if again.Summary != rpt.Summary {
		t.Errorf("Report() second run summary = %+v, want %+v", again.Summary, rpt.Summary)
	}
}

func TestHistoryPagination(t *testing.T) {
	env := setup(t, 1)
	ctx := context.Background()
	rec := attendance.NewRecord{ChildID: env.children[0].ID, Status: attendance.StatusPresent}

	for i := 0; i < 5; i++ {
		date := time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		env.take(t, roster.KindClass, env.class.ID, date, rec)
	}

	page := core.PageQuery{Page: 2, Limit: 2}
	events, pagination, err := env.svc.History(ctx, roster.KindClass, env.class.ID, core.DateRange{}, page)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("History() events = %d, want 2", len(events))
	}
	if pagination.Total != 5 || pagination.Pages != 3 || pagination.Page != 2 {
		t.Errorf("History() pagination = %+v", pagination)
	}
	// newest first: page 2 of limit 2 holds days 3 and 2
	if !events[0].Date.After(events[1].Date) {
		t.Errorf("History() not date descending: %v then %v", events[0].Date, events[1].Date)
	}

	// date range filter, bounds in the reference timezone
	loc, _ := time.LoadLocation("Africa/Lagos")
	dr := core.DateRange{
		From: time.Date(2026, 3, 2, 0, 0, 0, 0, loc),
		To:   time.Date(2026, 3, 4, 23, 59, 59, 0, loc),
	}
	events, pagination, err = env.svc.History(ctx, roster.KindClass, env.class.ID, dr, core.PageQuery{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("History() range error = %v", err)
	}
	if pagination.Total != 3 {
		t.Errorf("History() range total = %d, want 3", pagination.Total)
	}
}
