package roster

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jckckids/backend/core"
)

// Kind discriminates the three roster entity families.
type Kind string

const (
	KindClass   Kind = "class"
	KindGroup   Kind = "group"
	KindSession Kind = "session"
)

// Canonical name sets. Roster names form a closed world: creating an entity
// with a name outside its kind's set is a validation error.
var (
	ClassNames = []string{
		"Nasareth Gem",
		"Holy Innocent Junior",
		"Holy Innocent Senior",
		"Future Glory Junior",
		"Future Glory Senior",
	}
	GroupNames   = []string{"Kingdom Choir", "Kingdom Dancers"}
	SessionNames = []string{"Technical Team", "Welfare Team"}
)

func NamesFor(kind Kind) []string {
	switch kind {
	case KindClass:
		return ClassNames
	case KindGroup:
		return GroupNames
	case KindSession:
		return SessionNames
	}
	return nil
}

func ValidName(kind Kind, name string) bool {
	for _, n := range NamesFor(kind) {
		if n == name {
			return true
		}
	}
	return false
}

type AgeRange struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

// Entity is a Class, Group or Session, depending on Kind.
type Entity struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeacherIDs  []string  `json:"teachers"`
	AgeRange    AgeRange  `json:"ageRange,omitempty"` // classes only
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"` // UTC
	UpdatedAt   time.Time `json:"updatedAt"` // UTC
}

func (e *Entity) HasTeacher(teacherID string) bool {
	for _, id := range e.TeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}

// NewEntity contains information needed to create a roster entity.
type NewEntity struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	AgeRange    AgeRange `json:"ageRange"`
}

func (ne *NewEntity) Validate(validate *validator.Validate, kind Kind, svc *Service) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Description = core.CleanString(ne.Description)

	if err := validate.Struct(ne); err != nil {
		return err
	}
	if !ValidName(kind, ne.Name) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "name",
			Error: "not a recognised " + string(kind) + " name",
		})
	}
	return svc.CheckUniqueness(kind, ne.Name)
}

// UpdateEntity modifies an existing roster entity. The name is immutable:
// it identifies the entity within its closed set.
type UpdateEntity struct {
	Description string   `json:"description"`
	AgeRange    AgeRange `json:"ageRange"`
}

func (ue *UpdateEntity) Validate(validate *validator.Validate) error {
	ue.Description = core.CleanString(ue.Description)
	return validate.Struct(ue)
}

// AssignTeacher names the teacher for assign/remove operations.
type AssignTeacher struct {
	TeacherID string `json:"teacherId" validate:"required"`
}

func (at *AssignTeacher) Validate(validate *validator.Validate) error {
	return validate.Struct(at)
}
