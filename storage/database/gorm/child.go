package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/child"
)

type childRepository struct {
	db *gorm.DB
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *gorm.DB) child.Repository {
	return &childRepository{db: db}
}

func (repo *childRepository) NextCodeNumber(ctx context.Context) (int64, error) {
	var n int64
	err := repo.db.WithContext(ctx).Raw("SELECT nextval('child_code_seq')").Scan(&n).Error
	if err != nil {
		return 0, errors.Wrap(err, "advancing child code sequence")
	}
	return n, nil
}

func (repo *childRepository) CreateChild(ctx context.Context, chd child.Child) (child.Child, error) {
	chd.ID = uuid.NewString()
	m := newChildModel(chd)
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		for _, gid := range chd.GroupIDs {
			if err := tx.Create(&childGroup{ChildID: chd.ID, GroupID: gid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return child.Child{}, errors.Wrap(err, "creating child")
	}
	chd.ID = m.ID
	return chd, nil
}

func (repo *childRepository) getChild(ctx context.Context, column, value string) (child.Child, error) {
	var m childModel
	err := repo.db.WithContext(ctx).Preload("Groups").
		Where(column+" = ?", value).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return child.Child{}, child.ErrNotFound
		}
		return child.Child{}, errors.Wrap(err, "getting child")
	}
	return m.toDomain(), nil
}

func (repo *childRepository) GetChildByID(ctx context.Context, id string) (child.Child, error) {
	return repo.getChild(ctx, "id", id)
}

func (repo *childRepository) GetChildByCode(ctx context.Context, code string) (child.Child, error) {
	return repo.getChild(ctx, "code", code)
}

func (repo *childRepository) FilterChildren(ctx context.Context, filter child.QueryFilter, page core.PageQuery) ([]child.Child, int, error) {
	q := repo.db.WithContext(ctx).Model(&childModel{})

	if filter.ClassID != "" {
		q = q.Where("class_id = ?", filter.ClassID)
	}
	if filter.GroupID != "" {
		q = q.Joins("JOIN child_groups ON child_groups.child_id = children.id").
			Where("child_groups.group_id = ?", filter.GroupID)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		q = q.Where("first_name ILIKE ? OR last_name ILIKE ? OR code ILIKE ?", search, search, search)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting children")
	}

	var models []childModel
	err := q.Preload("Groups").Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering children")
	}
	children := make([]child.Child, 0, len(models))
	for i := range models {
		children = append(children, models[i].toDomain())
	}
	return children, int(total), nil
}

func (repo *childRepository) childrenWhere(ctx context.Context, q *gorm.DB) ([]child.Child, error) {
	var models []childModel
	err := q.Preload("Groups").Where("is_active = ?", true).Order("first_name").Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	children := make([]child.Child, 0, len(models))
	for i := range models {
		children = append(children, models[i].toDomain())
	}
	return children, nil
}

func (repo *childRepository) ChildrenByClass(ctx context.Context, classID string) ([]child.Child, error) {
	q := repo.db.WithContext(ctx).Model(&childModel{}).Where("class_id = ?", classID)
	return repo.childrenWhere(ctx, q)
}

func (repo *childRepository) ChildrenByGroup(ctx context.Context, groupID string) ([]child.Child, error) {
	q := repo.db.WithContext(ctx).Model(&childModel{}).
		Joins("JOIN child_groups ON child_groups.child_id = children.id").
		Where("child_groups.group_id = ?", groupID)
	return repo.childrenWhere(ctx, q)
}

func (repo *childRepository) ChildrenByParent(ctx context.Context, parentID string) ([]child.Child, error) {
	q := repo.db.WithContext(ctx).Model(&childModel{}).Where("parent_id = ?", parentID)
	return repo.childrenWhere(ctx, q)
}

func (repo *childRepository) UpdateChild(ctx context.Context, chd child.Child, isActive *bool) (child.Child, error) {
	// only save set fields
	updates := map[string]interface{}{"updated_at": chd.UpdatedAt}
	if chd.FirstName != "" {
		updates["first_name"] = chd.FirstName
	}
	if chd.LastName != "" {
		updates["last_name"] = chd.LastName
	}
	if !chd.DateOfBirth.IsZero() {
		updates["date_of_birth"] = chd.DateOfBirth
	}
	if chd.Gender != "" {
		updates["gender"] = chd.Gender
	}
	if chd.ClassID != "" {
		updates["class_id"] = chd.ClassID
	}
	if chd.Allergies != "" {
		updates["allergies"] = chd.Allergies
	}
	if chd.MedicalNotes != "" {
		updates["medical_notes"] = chd.MedicalNotes
	}
	if chd.EmergencyContact != (child.EmergencyContact{}) {
		updates["emergency_contact_name"] = chd.EmergencyContact.Name
		updates["emergency_contact_phone"] = chd.EmergencyContact.Phone
		updates["emergency_contact_relationship"] = chd.EmergencyContact.Relationship
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	res := repo.db.WithContext(ctx).Model(&childModel{}).Where("id = ?", chd.ID).Updates(updates)
	if res.Error != nil {
		return child.Child{}, errors.Wrap(res.Error, "updating child")
	}
	if res.RowsAffected == 0 {
		return child.Child{}, child.ErrNotFound
	}
	return repo.GetChildByID(ctx, chd.ID)
}

func (repo *childRepository) SetGroups(ctx context.Context, childID string, groupIDs []string) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("child_id = ?", childID).Delete(&childGroup{}).Error; err != nil {
			return err
		}
		for _, gid := range groupIDs {
			g := childGroup{ChildID: childID, GroupID: gid}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&g).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "setting child groups")
}

func (repo *childRepository) SetClass(ctx context.Context, childID, classID string) error {
	res := repo.db.WithContext(ctx).Model(&childModel{}).Where("id = ?", childID).Update("class_id", classID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "setting child class")
	}
	if res.RowsAffected == 0 {
		return child.ErrNotFound
	}
	return nil
}

func (repo *childRepository) SetPhoto(ctx context.Context, childID, path string) error {
	res := repo.db.WithContext(ctx).Model(&childModel{}).Where("id = ?", childID).Update("photo", path)
	if res.Error != nil {
		return errors.Wrap(res.Error, "setting child photo")
	}
	if res.RowsAffected == 0 {
		return child.ErrNotFound
	}
	return nil
}
