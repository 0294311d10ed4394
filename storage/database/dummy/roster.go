package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jckckids/backend/core/roster"
)

type rosterRepository struct {
	db    *rosterTable
	chdDB *childTable
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db.roster, chdDB: db.child}
}

func (repo *rosterRepository) query(kind roster.Kind) []roster.Entity {
	ents := make([]roster.Entity, 0, len(repo.db.table))
	for _, ent := range repo.db.table {
		if ent.Kind == kind {
			ents = append(ents, *ent)
		}
	}
	return ents
}

func (repo *rosterRepository) CheckNameUniqueness(ctx context.Context, kind roster.Kind, name string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ent := range repo.query(kind) {
		if ent.Name == name {
			return roster.ErrNameExists
		}
	}
	return nil
}

func (repo *rosterRepository) CreateEntity(ctx context.Context, ent roster.Entity) (roster.Entity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ent.ID = uuid.NewString()
	repo.db.table[ent.ID] = &ent
	return ent, nil
}

func (repo *rosterRepository) GetEntityByID(ctx context.Context, kind roster.Kind, id string) (roster.Entity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ent, ok := repo.db.table[id]; ok && ent.Kind == kind {
		return *ent, nil
	}
	return roster.Entity{}, roster.ErrNotFound
}

func (repo *rosterRepository) GetEntityByName(ctx context.Context, kind roster.Kind, name string) (roster.Entity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ent := range repo.query(kind) {
		if ent.Name == name {
			return ent, nil
		}
	}
	return roster.Entity{}, roster.ErrNotFound
}

func (repo *rosterRepository) QueryEntities(ctx context.Context, kind roster.Kind) ([]roster.Entity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ents []roster.Entity
	for _, ent := range repo.query(kind) {
		if ent.IsActive {
			ents = append(ents, ent)
		}
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].Name < ents[j].Name })
	return ents, nil
}

func (repo *rosterRepository) UpdateEntity(ctx context.Context, ent roster.Entity, isActive *bool) (roster.Entity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origEnt, ok := repo.db.table[ent.ID]
	if !ok {
		return roster.Entity{}, roster.ErrNotFound
	}
	if ent.Description != "" {
		origEnt.Description = ent.Description
	}
	if ent.AgeRange.Min != 0 || ent.AgeRange.Max != 0 {
		origEnt.AgeRange = ent.AgeRange
	}
	if isActive != nil {
		origEnt.IsActive = *isActive
	}
	origEnt.UpdatedAt = ent.UpdatedAt

	repo.db.table[origEnt.ID] = origEnt
	return *origEnt, nil
}

func (repo *rosterRepository) AddTeacher(ctx context.Context, kind roster.Kind, entityID, teacherID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ent, ok := repo.db.table[entityID]
	if !ok || ent.Kind != kind {
		return roster.ErrNotFound
	}
	for _, id := range ent.TeacherIDs {
		if id == teacherID {
			return nil
		}
	}
	ent.TeacherIDs = append(ent.TeacherIDs, teacherID)
	return nil
}

func (repo *rosterRepository) RemoveTeacher(ctx context.Context, kind roster.Kind, entityID, teacherID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ent, ok := repo.db.table[entityID]
	if !ok || ent.Kind != kind {
		return roster.ErrNotFound
	}
	for i, id := range ent.TeacherIDs {
		if id == teacherID {
			ent.TeacherIDs = append(ent.TeacherIDs[:i], ent.TeacherIDs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (repo *rosterRepository) CountChildren(ctx context.Context, kind roster.Kind, entityID string) (int, error) {
	repo.chdDB.RLock()
	defer repo.chdDB.RUnlock()

	count := 0
	for _, chd := range repo.chdDB.table {
		if !chd.IsActive {
			continue
		}
		if kind == roster.KindClass && chd.ClassID == entityID {
			count++
		} else if kind == roster.KindGroup && chd.InGroup(entityID) {
			count++
		}
	}
	return count, nil
}
