package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jckckids/backend/core/roster"
)

type rosterRepository struct {
	db *gorm.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *gorm.DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) CheckNameUniqueness(ctx context.Context, kind roster.Kind, name string) error {
	var count int64
	err := repo.db.WithContext(ctx).Model(&rosterEntity{}).
		Where("kind = ? AND name = ?", string(kind), name).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "counting entities")
	}
	if count > 0 {
		return roster.ErrNameExists
	}
	return nil
}

func (repo *rosterRepository) CreateEntity(ctx context.Context, ent roster.Entity) (roster.Entity, error) {
	ent.ID = uuid.NewString()
	m := newRosterEntity(ent)
	if err := repo.db.WithContext(ctx).Create(&m).Error; err != nil {
		return roster.Entity{}, errors.Wrap(err, "creating entity")
	}
	return m.toDomain(), nil
}

func (repo *rosterRepository) getEntity(ctx context.Context, kind roster.Kind, column, value string) (roster.Entity, error) {
	var m rosterEntity
	err := repo.db.WithContext(ctx).Preload("Teachers").
		Where("kind = ? AND "+column+" = ?", string(kind), value).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return roster.Entity{}, roster.ErrNotFound
		}
		return roster.Entity{}, errors.Wrap(err, "getting entity")
	}
	return m.toDomain(), nil
}

func (repo *rosterRepository) GetEntityByID(ctx context.Context, kind roster.Kind, id string) (roster.Entity, error) {
	return repo.getEntity(ctx, kind, "id", id)
}

func (repo *rosterRepository) GetEntityByName(ctx context.Context, kind roster.Kind, name string) (roster.Entity, error) {
	return repo.getEntity(ctx, kind, "name", name)
}

func (repo *rosterRepository) QueryEntities(ctx context.Context, kind roster.Kind) ([]roster.Entity, error) {
	var models []rosterEntity
	err := repo.db.WithContext(ctx).Preload("Teachers").
		Where("kind = ? AND is_active = ?", string(kind), true).
		Order("name").Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying entities")
	}
	ents := make([]roster.Entity, 0, len(models))
	for i := range models {
		ents = append(ents, models[i].toDomain())
	}
	return ents, nil
}

func (repo *rosterRepository) UpdateEntity(ctx context.Context, ent roster.Entity, isActive *bool) (roster.Entity, error) {
	// only save set fields
	updates := map[string]interface{}{"updated_at": ent.UpdatedAt}
	if ent.Description != "" {
		updates["description"] = ent.Description
	}
	if ent.AgeRange.Min != 0 || ent.AgeRange.Max != 0 {
		updates["age_min"] = ent.AgeRange.Min
		updates["age_max"] = ent.AgeRange.Max
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	res := repo.db.WithContext(ctx).Model(&rosterEntity{}).Where("id = ?", ent.ID).Updates(updates)
	if res.Error != nil {
		return roster.Entity{}, errors.Wrap(res.Error, "updating entity")
	}
	if res.RowsAffected == 0 {
		return roster.Entity{}, roster.ErrNotFound
	}
	return repo.getEntity(ctx, ent.Kind, "id", ent.ID)
}

func (repo *rosterRepository) AddTeacher(ctx context.Context, kind roster.Kind, entityID, teacherID string) error {
	if _, err := repo.GetEntityByID(ctx, kind, entityID); err != nil {
		return err
	}
	t := rosterTeacher{EntityID: entityID, TeacherID: teacherID}
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&t).Error
	return errors.Wrap(err, "adding teacher")
}

func (repo *rosterRepository) RemoveTeacher(ctx context.Context, kind roster.Kind, entityID, teacherID string) error {
	if _, err := repo.GetEntityByID(ctx, kind, entityID); err != nil {
		return err
	}
	err := repo.db.WithContext(ctx).
		Where("entity_id = ? AND teacher_id = ?", entityID, teacherID).
		Delete(&rosterTeacher{}).Error
	return errors.Wrap(err, "removing teacher")
}

func (repo *rosterRepository) CountChildren(ctx context.Context, kind roster.Kind, entityID string) (int, error) {
	var count int64
	q := repo.db.WithContext(ctx).Model(&childModel{}).Where("is_active = ?", true)
	if kind == roster.KindGroup {
		q = q.Joins("JOIN child_groups ON child_groups.child_id = children.id").
			Where("child_groups.group_id = ?", entityID)
	} else {
		q = q.Where("class_id = ?", entityID)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "counting children")
	}
	return int(count), nil
}
