package child

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/roster"
)

// Genders
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// codePrefix starts every generated child code, e.g. JCKC250001.
const codePrefix = "JCKC"

// FormatCode renders the human-readable child code for sequence number n.
func FormatCode(t time.Time, n int64) string {
	return fmt.Sprintf("%s%02d%04d", codePrefix, t.Year()%100, n)
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type Child struct {
	ID               string           `json:"id"`
	Code             string           `json:"uniqueId"` // assigned once at creation, never reassigned
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	DateOfBirth      time.Time        `json:"dateOfBirth"`
	Gender           string           `json:"gender"`
	Photo            string           `json:"photo,omitempty"`
	ClassID          string           `json:"classId"`
	GroupIDs         []string         `json:"groupIds"`
	ParentID         string           `json:"parentId"`
	Allergies        string           `json:"allergies,omitempty"`
	MedicalNotes     string           `json:"medicalNotes,omitempty"`
	EmergencyContact EmergencyContact `json:"emergencyContact,omitempty"`
	IsActive         bool             `json:"isActive"`
	CreatedAt        time.Time        `json:"createdAt"` // UTC
	UpdatedAt        time.Time        `json:"updatedAt"` // UTC
}

func (c *Child) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Age returns full years since date of birth, or -1 when unknown.
func (c *Child) Age() int {
	if c.DateOfBirth.IsZero() {
		return -1
	}
	now := time.Now()
	age := now.Year() - c.DateOfBirth.Year()
	if now.YearDay() < c.DateOfBirth.YearDay() {
		age--
	}
	return age
}

func (c *Child) InGroup(groupID string) bool {
	for _, id := range c.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// ParentRef is the slice of a parent User exposed on populated children.
type ParentRef struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
}

// Detail is a Child with its class, groups and parent resolved for display.
type Detail struct {
	Child
	Age    int             `json:"age"`
	Class  *roster.Entity  `json:"class,omitempty"`
	Groups []roster.Entity `json:"groups"`
	Parent *ParentRef      `json:"parent,omitempty"`
}

// NewChild contains information needed to register a Child.
type NewChild struct {
	FirstName        string           `json:"firstName" validate:"required"`
	LastName         string           `json:"lastName" validate:"required"`
	DateOfBirth      string           `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Gender           string           `json:"gender" validate:"required,oneof=male female"`
	ClassID          string           `json:"classId" validate:"required"`
	GroupIDs         []string         `json:"groupIds"`
	ParentID         string           `json:"parentId"` // required unless the caller is the parent
	Allergies        string           `json:"allergies"`
	MedicalNotes     string           `json:"medicalNotes"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
}

func (nc *NewChild) Validate(validate *validator.Validate) error {
	nc.FirstName = core.CleanString(nc.FirstName)
	nc.LastName = core.CleanString(nc.LastName)
	return validate.Struct(nc)
}

func (nc *NewChild) BirthDate() time.Time {
	t, _ := time.Parse("2006-01-02", nc.DateOfBirth)
	return t
}

// UpdateChild defines the fields a parent or staff member may modify.
// The code, parent link and active flag are out of reach here.
type UpdateChild struct {
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	DateOfBirth      string            `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender           string            `json:"gender" validate:"omitempty,oneof=male female"`
	ClassID          string            `json:"classId"`
	GroupIDs         *[]string         `json:"groupIds"`
	Allergies        *string           `json:"allergies"`
	MedicalNotes     *string           `json:"medicalNotes"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

func (uc *UpdateChild) Validate(validate *validator.Validate) error {
	uc.FirstName = core.CleanString(uc.FirstName)
	uc.LastName = core.CleanString(uc.LastName)
	return validate.Struct(uc)
}

type QueryFilter struct {
	ClassID  string `query:"classId"`
	GroupID  string `query:"groupId"`
	Search   string `query:"search"`
	IsActive *bool  `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
