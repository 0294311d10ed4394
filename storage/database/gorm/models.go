package gormdb

import (
	"time"

	"gorm.io/gorm"

	"github.com/jckckids/backend/core/attendance"
	"github.com/jckckids/backend/core/child"
	"github.com/jckckids/backend/core/notification"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

// AutoMigrate creates or updates the tables backing every repository.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userModel{},
		&userAssignment{},
		&userChild{},
		&rosterEntity{},
		&rosterTeacher{},
		&childModel{},
		&childGroup{},
		&attendanceEvent{},
		&attendanceRecord{},
		&notificationModel{},
	)
}

type userModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	FirstName    string `gorm:"size:100"`
	LastName     string `gorm:"size:100"`
	Email        string `gorm:"size:254;uniqueIndex"`
	PhoneNumber  string `gorm:"size:20;index"`
	Role         string `gorm:"size:20;index"`
	PasswordHash []byte
	IsActive     bool `gorm:"index"`
	LastLogin    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Assignments []userAssignment `gorm:"foreignKey:UserID"`
	Children    []userChild      `gorm:"foreignKey:UserID"`
}

func (userModel) TableName() string { return "users" }

type userAssignment struct {
	UserID   string `gorm:"primaryKey;size:36"`
	Kind     string `gorm:"primaryKey;size:10"`
	EntityID string `gorm:"primaryKey;size:36"`
}

func (userAssignment) TableName() string { return "user_assignments" }

type userChild struct {
	UserID  string `gorm:"primaryKey;size:36"`
	ChildID string `gorm:"primaryKey;size:36"`
}

func (userChild) TableName() string { return "user_children" }

func (m *userModel) toDomain() user.User {
	usr := user.User{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		PhoneNumber:  m.PhoneNumber,
		Role:         m.Role,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		LastLogin:    m.LastLogin,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, a := range m.Assignments {
		switch a.Kind {
		case "class":
			usr.AssignedClassIDs = append(usr.AssignedClassIDs, a.EntityID)
		case "group":
			usr.AssignedGroupIDs = append(usr.AssignedGroupIDs, a.EntityID)
		case "session":
			usr.AssignedSessionIDs = append(usr.AssignedSessionIDs, a.EntityID)
		}
	}
	for _, c := range m.Children {
		usr.ChildIDs = append(usr.ChildIDs, c.ChildID)
	}
	return usr
}

func newUserModel(usr user.User) userModel {
	return userModel{
		ID:           usr.ID,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Email:        usr.Email,
		PhoneNumber:  usr.PhoneNumber,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		IsActive:     usr.IsActive,
		LastLogin:    usr.LastLogin,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
}

type rosterEntity struct {
	ID          string `gorm:"primaryKey;size:36"`
	Kind        string `gorm:"size:10;uniqueIndex:idx_roster_kind_name"`
	Name        string `gorm:"size:100;uniqueIndex:idx_roster_kind_name"`
	Description string
	AgeMin      int
	AgeMax      int
	IsActive    bool `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Teachers []rosterTeacher `gorm:"foreignKey:EntityID"`
}

func (rosterEntity) TableName() string { return "roster_entities" }

type rosterTeacher struct {
	EntityID  string `gorm:"primaryKey;size:36"`
	TeacherID string `gorm:"primaryKey;size:36"`
}

func (rosterTeacher) TableName() string { return "roster_teachers" }

func (m *rosterEntity) toDomain() roster.Entity {
	ent := roster.Entity{
		ID:          m.ID,
		Kind:        roster.Kind(m.Kind),
		Name:        m.Name,
		Description: m.Description,
		AgeRange:    roster.AgeRange{Min: m.AgeMin, Max: m.AgeMax},
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, t := range m.Teachers {
		ent.TeacherIDs = append(ent.TeacherIDs, t.TeacherID)
	}
	return ent
}

func newRosterEntity(ent roster.Entity) rosterEntity {
	return rosterEntity{
		ID:          ent.ID,
		Kind:        string(ent.Kind),
		Name:        ent.Name,
		Description: ent.Description,
		AgeMin:      ent.AgeRange.Min,
		AgeMax:      ent.AgeRange.Max,
		IsActive:    ent.IsActive,
		CreatedAt:   ent.CreatedAt,
		UpdatedAt:   ent.UpdatedAt,
	}
}

type childModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	Code           string `gorm:"size:12;uniqueIndex"`
	FirstName      string `gorm:"size:100"`
	LastName       string `gorm:"size:100"`
	DateOfBirth    time.Time
	Gender         string `gorm:"size:10"`
	Photo          string
	ClassID        string `gorm:"size:36;index"`
	ParentID       string `gorm:"size:36;index"`
	Allergies      string
	MedicalNotes   string
	ECName         string `gorm:"column:emergency_contact_name"`
	ECPhone        string `gorm:"column:emergency_contact_phone"`
	ECRelationship string `gorm:"column:emergency_contact_relationship"`
	IsActive       bool   `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Groups []childGroup `gorm:"foreignKey:ChildID"`
}

func (childModel) TableName() string { return "children" }

type childGroup struct {
	ChildID string `gorm:"primaryKey;size:36"`
	GroupID string `gorm:"primaryKey;size:36"`
}

func (childGroup) TableName() string { return "child_groups" }

func (m *childModel) toDomain() child.Child {
	chd := child.Child{
		ID:           m.ID,
		Code:         m.Code,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		DateOfBirth:  m.DateOfBirth,
		Gender:       m.Gender,
		Photo:        m.Photo,
		ClassID:      m.ClassID,
		ParentID:     m.ParentID,
		Allergies:    m.Allergies,
		MedicalNotes: m.MedicalNotes,
		EmergencyContact: child.EmergencyContact{
			Name:         m.ECName,
			Phone:        m.ECPhone,
			Relationship: m.ECRelationship,
		},
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, g := range m.Groups {
		chd.GroupIDs = append(chd.GroupIDs, g.GroupID)
	}
	return chd
}

func newChildModel(chd child.Child) childModel {
	return childModel{
		ID:             chd.ID,
		Code:           chd.Code,
		FirstName:      chd.FirstName,
		LastName:       chd.LastName,
		DateOfBirth:    chd.DateOfBirth,
		Gender:         chd.Gender,
		Photo:          chd.Photo,
		ClassID:        chd.ClassID,
		ParentID:       chd.ParentID,
		Allergies:      chd.Allergies,
		MedicalNotes:   chd.MedicalNotes,
		ECName:         chd.EmergencyContact.Name,
		ECPhone:        chd.EmergencyContact.Phone,
		ECRelationship: chd.EmergencyContact.Relationship,
		IsActive:       chd.IsActive,
		CreatedAt:      chd.CreatedAt,
		UpdatedAt:      chd.UpdatedAt,
	}
}

type attendanceEvent struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Kind       string    `gorm:"size:10;index:idx_attendance_target"`
	TargetID   string    `gorm:"size:36;index:idx_attendance_target"`
	Date       time.Time `gorm:"index"`
	Notes      string
	RecorderID string `gorm:"size:36"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Records []attendanceRecord `gorm:"foreignKey:EventID"`
}

func (attendanceEvent) TableName() string { return "attendance_events" }

type attendanceRecord struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	EventID  string `gorm:"size:36;index"`
	Position int    // preserves submission order
	ChildID  string `gorm:"size:36;index"`
	Status   string `gorm:"size:10"`
	Notes    string
}

func (attendanceRecord) TableName() string { return "attendance_records" }

func (m *attendanceEvent) toDomain() attendance.Event {
	evt := attendance.Event{
		ID:         m.ID,
		Kind:       roster.Kind(m.Kind),
		TargetID:   m.TargetID,
		Date:       m.Date,
		Notes:      m.Notes,
		RecorderID: m.RecorderID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	for _, rec := range m.Records {
		evt.Records = append(evt.Records, attendance.Record{ChildID: rec.ChildID, Status: rec.Status, Notes: rec.Notes})
	}
	return evt
}

func newAttendanceEvent(evt attendance.Event) attendanceEvent {
	m := attendanceEvent{
		ID:         evt.ID,
		Kind:       string(evt.Kind),
		TargetID:   evt.TargetID,
		Date:       evt.Date,
		Notes:      evt.Notes,
		RecorderID: evt.RecorderID,
		CreatedAt:  evt.CreatedAt,
		UpdatedAt:  evt.UpdatedAt,
	}
	for i, rec := range evt.Records {
		m.Records = append(m.Records, attendanceRecord{
			EventID:  evt.ID,
			Position: i,
			ChildID:  rec.ChildID,
			Status:   rec.Status,
			Notes:    rec.Notes,
		})
	}
	return m
}

type notificationModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	RecipientID  string `gorm:"size:36;index"`
	ChildID      string `gorm:"size:36"`
	AttendanceID string `gorm:"size:36"`
	Type         string `gorm:"size:20"`
	Title        string `gorm:"size:200"`
	Body         string
	IsRead       bool `gorm:"index"`
	ReadAt       *time.Time
	CreatedAt    time.Time
}

func (notificationModel) TableName() string { return "notifications" }

func (m *notificationModel) toDomain() notification.Notification {
	return notification.Notification{
		ID:           m.ID,
		RecipientID:  m.RecipientID,
		ChildID:      m.ChildID,
		AttendanceID: m.AttendanceID,
		Type:         m.Type,
		Title:        m.Title,
		Body:         m.Body,
		IsRead:       m.IsRead,
		ReadAt:       m.ReadAt,
		CreatedAt:    m.CreatedAt,
	}
}

func newNotificationModel(ntf notification.Notification) notificationModel {
	return notificationModel{
		ID:           ntf.ID,
		RecipientID:  ntf.RecipientID,
		ChildID:      ntf.ChildID,
		AttendanceID: ntf.AttendanceID,
		Type:         ntf.Type,
		Title:        ntf.Title,
		Body:         ntf.Body,
		IsRead:       ntf.IsRead,
		ReadAt:       ntf.ReadAt,
		CreatedAt:    ntf.CreatedAt,
	}
}
