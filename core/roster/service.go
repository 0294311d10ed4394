package roster

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("roster entity not found")
	ErrNameExists = errors.New("an entity with this name already exists")
)

type (
	Repository interface {
		// CheckNameUniqueness fails with ErrNameExists when the name is taken
		// within the kind.
		CheckNameUniqueness(ctx context.Context, kind Kind, name string) error
		CreateEntity(ctx context.Context, ent Entity) (Entity, error)
		GetEntityByID(ctx context.Context, kind Kind, id string) (Entity, error)
		GetEntityByName(ctx context.Context, kind Kind, name string) (Entity, error)
		// QueryEntities returns active entities of a kind ordered by name.
		QueryEntities(ctx context.Context, kind Kind) ([]Entity, error)
		UpdateEntity(ctx context.Context, ent Entity, isActive *bool) (Entity, error)
		// AddTeacher / RemoveTeacher are idempotent / no-op-safe.
		AddTeacher(ctx context.Context, kind Kind, entityID, teacherID string) error
		RemoveTeacher(ctx context.Context, kind Kind, entityID, teacherID string) error
		// CountChildren counts active children attached to the entity
		// (by class for classes, by group membership for groups).
		CountChildren(ctx context.Context, kind Kind, entityID string) (int, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

func NewService(repo Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, usrRepo: usrRepo}
}

func (svc *Service) CheckUniqueness(kind Kind, name string) error {
	if err := svc.repo.CheckNameUniqueness(context.Background(), kind, name); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, kind Kind, ne NewEntity) (Entity, error) {
	now := time.Now().UTC()
	ent := Entity{
		Kind:        kind,
		Name:        ne.Name,
		Description: ne.Description,
		AgeRange:    ne.AgeRange,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateEntity(ctx, ent)
}

func (svc *Service) GetByID(ctx context.Context, kind Kind, id string) (Entity, error) {
	return svc.repo.GetEntityByID(ctx, kind, id)
}

func (svc *Service) Query(ctx context.Context, kind Kind) ([]Entity, error) {
	return svc.repo.QueryEntities(ctx, kind)
}

// ChildrenCount resolves the number of active children attached to an entity.
func (svc *Service) ChildrenCount(ctx context.Context, kind Kind, id string) (int, error) {
	return svc.repo.CountChildren(ctx, kind, id)
}

func (svc *Service) Update(ctx context.Context, kind Kind, id string, ue UpdateEntity) (Entity, error) {
	ent := Entity{
		ID:          id,
		Kind:        kind,
		Description: ue.Description,
		AgeRange:    ue.AgeRange,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateEntity(ctx, ent, nil)
}

// Deactivate tombstones the entity; attendance history keeps referencing it.
func (svc *Service) Deactivate(ctx context.Context, kind Kind, id string) (Entity, error) {
	inactive := false
	return svc.repo.UpdateEntity(ctx, Entity{ID: id, Kind: kind, UpdatedAt: time.Now().UTC()}, &inactive)
}

// Init seeds all canonical entities of a kind that do not exist yet.
func (svc *Service) Init(ctx context.Context, kind Kind) ([]Entity, error) {
	created := make([]Entity, 0)
	for _, name := range NamesFor(kind) {
		if _, err := svc.repo.GetEntityByName(ctx, kind, name); err == nil {
			continue
		} else if err != ErrNotFound {
			return nil, errors.Wrapf(err, "checking %s %q", kind, name)
		}
		ent, err := svc.Create(ctx, kind, NewEntity{Name: name, Description: name})
		if err != nil {
			return nil, errors.Wrapf(err, "seeding %s %q", kind, name)
		}
		created = append(created, ent)
	}
	return created, nil
}

// AssignTeacher attaches a teacher to the entity and mirrors the assignment
// into the teacher's own assigned collection. Both sides are idempotent.
func (svc *Service) AssignTeacher(ctx context.Context, kind Kind, entityID, teacherID string) (Entity, error) {
	usr, err := svc.usrRepo.GetUserByID(ctx, teacherID)
	if err != nil {
		if err == user.ErrNotFound {
			return Entity{}, core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: "invalid teacher"})
		}
		return Entity{}, errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return Entity{}, core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: "invalid teacher"})
	}

	if err = svc.repo.AddTeacher(ctx, kind, entityID, teacherID); err != nil {
		return Entity{}, err
	}
	if err = svc.usrRepo.AddAssignment(ctx, teacherID, string(kind), entityID); err != nil {
		return Entity{}, errors.Wrap(err, "mirroring assignment")
	}
	return svc.repo.GetEntityByID(ctx, kind, entityID)
}

// RemoveTeacher detaches a teacher from the entity; both sides are no-op-safe.
func (svc *Service) RemoveTeacher(ctx context.Context, kind Kind, entityID, teacherID string) (Entity, error) {
	if err := svc.repo.RemoveTeacher(ctx, kind, entityID, teacherID); err != nil {
		return Entity{}, err
	}
	if err := svc.usrRepo.RemoveAssignment(ctx, teacherID, string(kind), entityID); err != nil {
		return Entity{}, errors.Wrap(err, "mirroring removal")
	}
	return svc.repo.GetEntityByID(ctx, kind, entityID)
}
