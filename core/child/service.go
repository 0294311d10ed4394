package child

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/roster"
	"github.com/jckckids/backend/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("child not found")
	ErrAlreadyInGroup = errors.New("child is already in this group")
	ErrNotInGroup     = errors.New("child is not in this group")
)

type (
	Repository interface {
		// NextCodeNumber atomically increments and returns the child code
		// sequence. Two concurrent registrations never see the same number.
		NextCodeNumber(ctx context.Context) (int64, error)
		CreateChild(ctx context.Context, chd Child) (Child, error)
		GetChildByID(ctx context.Context, id string) (Child, error)
		GetChildByCode(ctx context.Context, code string) (Child, error)
		// FilterChildren applies AND on available filter fields and returns the
		// requested page (newest first) plus the unpaged total.
		FilterChildren(ctx context.Context, filter QueryFilter, page core.PageQuery) ([]Child, int, error)
		// ChildrenByClass / ChildrenByGroup / ChildrenByParent return active
		// children ordered by first name.
		ChildrenByClass(ctx context.Context, classID string) ([]Child, error)
		ChildrenByGroup(ctx context.Context, groupID string) ([]Child, error)
		ChildrenByParent(ctx context.Context, parentID string) ([]Child, error)
		// UpdateChild ignores zero-valued fields except via the explicit args.
		UpdateChild(ctx context.Context, chd Child, isActive *bool) (Child, error)
		SetGroups(ctx context.Context, childID string, groupIDs []string) error
		SetClass(ctx context.Context, childID, classID string) error
		SetPhoto(ctx context.Context, childID, path string) error
	}

	Service struct {
		repo       Repository
		rosterRepo roster.Repository
		usrRepo    user.Repository
	}
)

func NewService(repo Repository, rosterRepo roster.Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, rosterRepo: rosterRepo, usrRepo: usrRepo}
}

// Register creates a child under the given parent, assigns its code from the
// store sequence and links it into the parent's children collection.
func (svc *Service) Register(ctx context.Context, nc NewChild, parentID string) (Detail, error) {
	if _, err := svc.usrRepo.GetUserByID(ctx, parentID); err != nil {
		if err == user.ErrNotFound {
			return Detail{}, core.NewValidationError(nil, core.FieldError{Field: "parentId", Error: "please select a parent for the child"})
		}
		return Detail{}, errors.Wrap(err, "finding parent")
	}
	if _, err := svc.rosterRepo.GetEntityByID(ctx, roster.KindClass, nc.ClassID); err != nil {
		if err == roster.ErrNotFound {
			return Detail{}, core.NewValidationError(nil, core.FieldError{Field: "classId", Error: "invalid class"})
		}
		return Detail{}, errors.Wrap(err, "finding class")
	}

	n, err := svc.repo.NextCodeNumber(ctx)
	if err != nil {
		return Detail{}, errors.Wrap(err, "generating child code")
	}

	now := time.Now().UTC()
	chd := Child{
		Code:             FormatCode(now, n),
		FirstName:        nc.FirstName,
		LastName:         nc.LastName,
		DateOfBirth:      nc.BirthDate(),
		Gender:           nc.Gender,
		ClassID:          nc.ClassID,
		GroupIDs:         nc.GroupIDs,
		ParentID:         parentID,
		Allergies:        nc.Allergies,
		MedicalNotes:     nc.MedicalNotes,
		EmergencyContact: nc.EmergencyContact,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	chd, err = svc.repo.CreateChild(ctx, chd)
	if err != nil {
		return Detail{}, err
	}

	if err = svc.usrRepo.AddChild(ctx, parentID, chd.ID); err != nil {
		return Detail{}, errors.Wrap(err, "linking child to parent")
	}
	return svc.populate(ctx, chd)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Detail, error) {
	chd, err := svc.repo.GetChildByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return svc.populate(ctx, chd)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Detail, error) {
	chd, err := svc.repo.GetChildByCode(ctx, code)
	if err != nil {
		return Detail{}, err
	}
	return svc.populate(ctx, chd)
}

// SearchByParentPhone returns the active children of the parent holding the
// given phone number.
func (svc *Service) SearchByParentPhone(ctx context.Context, phone string) ([]Detail, error) {
	parent, err := svc.usrRepo.GetUserByPhone(ctx, core.CleanString(phone))
	if err != nil {
		if err == user.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "finding parent by phone")
	}
	children, err := svc.repo.ChildrenByParent(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, ErrNotFound
	}
	return svc.populateAll(ctx, children)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, page core.PageQuery) ([]Detail, core.Pagination, error) {
	children, total, err := svc.repo.FilterChildren(ctx, filter, page)
	if err != nil {
		return nil, core.Pagination{}, err
	}
	details, err := svc.populateAll(ctx, children)
	if err != nil {
		return nil, core.Pagination{}, err
	}
	return details, core.NewPagination(page.Page, page.Limit, total), nil
}

func (svc *Service) ByClass(ctx context.Context, classID string) ([]Detail, error) {
	children, err := svc.repo.ChildrenByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return svc.populateAll(ctx, children)
}

func (svc *Service) ByGroup(ctx context.Context, groupID string) ([]Detail, error) {
	children, err := svc.repo.ChildrenByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return svc.populateAll(ctx, children)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateChild) (Detail, error) {
	chd := Child{
		ID:        id,
		FirstName: uc.FirstName,
		LastName:  uc.LastName,
		Gender:    uc.Gender,
		ClassID:   uc.ClassID,
		UpdatedAt: time.Now().UTC(),
	}
	if uc.DateOfBirth != "" {
		t, _ := time.Parse("2006-01-02", uc.DateOfBirth)
		chd.DateOfBirth = t
	}
	if uc.Allergies != nil {
		chd.Allergies = *uc.Allergies
	}
	if uc.MedicalNotes != nil {
		chd.MedicalNotes = *uc.MedicalNotes
	}
	if uc.EmergencyContact != nil {
		chd.EmergencyContact = *uc.EmergencyContact
	}
	chd, err := svc.repo.UpdateChild(ctx, chd, nil)
	if err != nil {
		return Detail{}, err
	}
	if uc.GroupIDs != nil {
		if err = svc.repo.SetGroups(ctx, id, *uc.GroupIDs); err != nil {
			return Detail{}, err
		}
		chd.GroupIDs = *uc.GroupIDs
	}
	return svc.populate(ctx, chd)
}

// Deactivate tombstones the child; attendance history keeps referencing them.
func (svc *Service) Deactivate(ctx context.Context, id string) error {
	inactive := false
	_, err := svc.repo.UpdateChild(ctx, Child{ID: id, UpdatedAt: time.Now().UTC()}, &inactive)
	return err
}

func (svc *Service) SetPhoto(ctx context.Context, id, path string) error {
	if _, err := svc.repo.GetChildByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.SetPhoto(ctx, id, path)
}

// TransferClass moves the child to another class and returns the previous class id.
func (svc *Service) TransferClass(ctx context.Context, id, newClassID string) (Detail, string, error) {
	chd, err := svc.repo.GetChildByID(ctx, id)
	if err != nil {
		return Detail{}, "", err
	}
	if _, err = svc.rosterRepo.GetEntityByID(ctx, roster.KindClass, newClassID); err != nil {
		if err == roster.ErrNotFound {
			return Detail{}, "", core.NewValidationError(nil, core.FieldError{Field: "newClassId", Error: "invalid class"})
		}
		return Detail{}, "", errors.Wrap(err, "finding class")
	}
	oldClassID := chd.ClassID
	if err = svc.repo.SetClass(ctx, id, newClassID); err != nil {
		return Detail{}, "", err
	}
	chd.ClassID = newClassID
	det, err := svc.populate(ctx, chd)
	return det, oldClassID, err
}

func (svc *Service) JoinGroup(ctx context.Context, id, groupID string) (Detail, error) {
	chd, err := svc.repo.GetChildByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if chd.InGroup(groupID) {
		return Detail{}, core.NewValidationError(ErrAlreadyInGroup)
	}
	if _, err = svc.rosterRepo.GetEntityByID(ctx, roster.KindGroup, groupID); err != nil {
		if err == roster.ErrNotFound {
			return Detail{}, core.NewValidationError(nil, core.FieldError{Field: "groupId", Error: "invalid group"})
		}
		return Detail{}, errors.Wrap(err, "finding group")
	}
	chd.GroupIDs = append(chd.GroupIDs, groupID)
	if err = svc.repo.SetGroups(ctx, id, chd.GroupIDs); err != nil {
		return Detail{}, err
	}
	return svc.populate(ctx, chd)
}

func (svc *Service) LeaveGroup(ctx context.Context, id, groupID string) (Detail, error) {
	chd, err := svc.repo.GetChildByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if !chd.InGroup(groupID) {
		return Detail{}, core.NewValidationError(ErrNotInGroup)
	}
	groups := make([]string, 0, len(chd.GroupIDs)-1)
	for _, gid := range chd.GroupIDs {
		if gid != groupID {
			groups = append(groups, gid)
		}
	}
	chd.GroupIDs = groups
	if err = svc.repo.SetGroups(ctx, id, groups); err != nil {
		return Detail{}, err
	}
	return svc.populate(ctx, chd)
}

func (svc *Service) populate(ctx context.Context, chd Child) (Detail, error) {
	det := Detail{Child: chd, Age: chd.Age(), Groups: make([]roster.Entity, 0, len(chd.GroupIDs))}

	if cls, err := svc.rosterRepo.GetEntityByID(ctx, roster.KindClass, chd.ClassID); err == nil {
		det.Class = &cls
	}
	for _, gid := range chd.GroupIDs {
		if grp, err := svc.rosterRepo.GetEntityByID(ctx, roster.KindGroup, gid); err == nil {
			det.Groups = append(det.Groups, grp)
		}
	}
	if parent, err := svc.usrRepo.GetUserByID(ctx, chd.ParentID); err == nil {
		det.Parent = &ParentRef{
			ID:          parent.ID,
			FirstName:   parent.FirstName,
			LastName:    parent.LastName,
			PhoneNumber: parent.PhoneNumber,
			Email:       parent.Email,
		}
	}
	return det, nil
}

func (svc *Service) populateAll(ctx context.Context, children []Child) ([]Detail, error) {
	details := make([]Detail, 0, len(children))
	for _, chd := range children {
		det, err := svc.populate(ctx, chd)
		if err != nil {
			return nil, err
		}
		details = append(details, det)
	}
	return details, nil
}
