package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/child"
)

type childRepository struct {
	db *childTable
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *DB) child.Repository {
	return &childRepository{db: db.child}
}

func (repo *childRepository) query() []child.Child {
	children := make([]child.Child, 0, len(repo.db.table))
	for _, chd := range repo.db.table {
		children = append(children, *chd)
	}
	return children
}

func (repo *childRepository) NextCodeNumber(ctx context.Context) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.codeSeq++
	return repo.db.codeSeq, nil
}

func (repo *childRepository) CreateChild(ctx context.Context, chd child.Child) (child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	chd.ID = uuid.NewString()
	repo.db.table[chd.ID] = &chd
	return chd, nil
}

func (repo *childRepository) GetChildByID(ctx context.Context, id string) (child.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if chd, ok := repo.db.table[id]; ok {
		return *chd, nil
	}
	return child.Child{}, child.ErrNotFound
}

func (repo *childRepository) GetChildByCode(ctx context.Context, code string) (child.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, chd := range repo.query() {
		if chd.Code == code {
			return chd, nil
		}
	}
	return child.Child{}, child.ErrNotFound
}

func (repo *childRepository) FilterChildren(ctx context.Context, filter child.QueryFilter, page core.PageQuery) ([]child.Child, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	children := repo.query()

	if filter.ClassID != "" {
		var filtered []child.Child
		for _, chd := range children {
			if chd.ClassID == filter.ClassID {
				filtered = append(filtered, chd)
			}
		}
		children = filtered
	}
	if children != nil && filter.GroupID != "" {
		var filtered []child.Child
		for _, chd := range children {
			if chd.InGroup(filter.GroupID) {
				filtered = append(filtered, chd)
			}
		}
		children = filtered
	}
	// children with search keyword matching name or code ?
	if children != nil && filter.Search != "" {
		var filtered []child.Child
		search := strings.ToLower(filter.Search)
		for _, chd := range children {
			if strings.Contains(strings.ToLower(chd.FullName()), search) ||
				strings.Contains(strings.ToLower(chd.Code), search) {
				filtered = append(filtered, chd)
			}
		}
		children = filtered
	}
	if children != nil && filter.IsActive != nil {
		var filtered []child.Child
		for _, chd := range children {
			if chd.IsActive == *filter.IsActive {
				filtered = append(filtered, chd)
			}
		}
		children = filtered
	}

	sort.Slice(children, func(i, j int) bool { return children[i].CreatedAt.After(children[j].CreatedAt) })

	total := len(children)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return children[start:end], total, nil
}

func (repo *childRepository) childrenWhere(match func(child.Child) bool) []child.Child {
	var children []child.Child
	for _, chd := range repo.query() {
		if chd.IsActive && match(chd) {
			children = append(children, chd)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].FirstName < children[j].FirstName })
	return children
}

func (repo *childRepository) ChildrenByClass(ctx context.Context, classID string) ([]child.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.childrenWhere(func(chd child.Child) bool { return chd.ClassID == classID }), nil
}

func (repo *childRepository) ChildrenByGroup(ctx context.Context, groupID string) ([]child.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.childrenWhere(func(chd child.Child) bool { return chd.InGroup(groupID) }), nil
}

func (repo *childRepository) ChildrenByParent(ctx context.Context, parentID string) ([]child.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.childrenWhere(func(chd child.Child) bool { return chd.ParentID == parentID }), nil
}

func (repo *childRepository) UpdateChild(ctx context.Context, chd child.Child, isActive *bool) (child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origChd, ok := repo.db.table[chd.ID]
	if !ok {
		return child.Child{}, child.ErrNotFound
	}
	if chd.FirstName != "" {
		origChd.FirstName = chd.FirstName
	}
	if chd.LastName != "" {
		origChd.LastName = chd.LastName
	}
	if !chd.DateOfBirth.IsZero() {
		origChd.DateOfBirth = chd.DateOfBirth
	}
	if chd.Gender != "" {
		origChd.Gender = chd.Gender
	}
	if chd.ClassID != "" {
		origChd.ClassID = chd.ClassID
	}
	if chd.Allergies != "" {
		origChd.Allergies = chd.Allergies
	}
	if chd.MedicalNotes != "" {
		origChd.MedicalNotes = chd.MedicalNotes
	}
	if chd.EmergencyContact != (child.EmergencyContact{}) {
		origChd.EmergencyContact = chd.EmergencyContact
	}
	if isActive != nil {
		origChd.IsActive = *isActive
	}
	origChd.UpdatedAt = chd.UpdatedAt

	repo.db.table[origChd.ID] = origChd
	return *origChd, nil
}

func (repo *childRepository) SetGroups(ctx context.Context, childID string, groupIDs []string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	chd, ok := repo.db.table[childID]
	if !ok {
		return child.ErrNotFound
	}
	chd.GroupIDs = groupIDs
	return nil
}

func (repo *childRepository) SetClass(ctx context.Context, childID, classID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	chd, ok := repo.db.table[childID]
	if !ok {
		return child.ErrNotFound
	}
	chd.ClassID = classID
	return nil
}

func (repo *childRepository) SetPhoto(ctx context.Context, childID, path string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	chd, ok := repo.db.table[childID]
	if !ok {
		return child.ErrNotFound
	}
	chd.Photo = path
	return nil
}
