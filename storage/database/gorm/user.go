package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jckckids/backend/core/user"
)

type userRepository struct {
	db *gorm.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, phone string, excludedUsers ...user.User) error {
	excludedIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excludedIDs = append(excludedIDs, usr.ID)
	}

	check := func(column, value string, dupErr error) error {
		if value == "" {
			return nil
		}
		q := repo.db.WithContext(ctx).Model(&userModel{}).Where(column+" = ?", value)
		if len(excludedIDs) > 0 {
			q = q.Where("id NOT IN ?", excludedIDs)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return errors.Wrap(err, "counting users")
		}
		if count > 0 {
			return dupErr
		}
		return nil
	}

	if err := check("email", email, user.ErrEmailExists); err != nil {
		return err
	}
	return check("phone_number", phone, user.ErrPhoneExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	m := newUserModel(usr)
	if err := repo.db.WithContext(ctx).Create(&m).Error; err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return m.toDomain(), nil
}

func (repo *userRepository) getUser(ctx context.Context, column, value string) (user.User, error) {
	var m userModel
	err := repo.db.WithContext(ctx).
		Preload("Assignments").Preload("Children").
		Where(column+" = ?", value).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return m.toDomain(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email", email)
}

func (repo *userRepository) GetUserByPhone(ctx context.Context, phone string) (user.User, error) {
	return repo.getUser(ctx, "phone_number", phone)
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := repo.db.WithContext(ctx).Model(&userModel{}).Preload("Assignments").Preload("Children")

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		q = q.Where(
			"first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR phone_number LIKE ?",
			search, search, search, search,
		)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var models []userModel
	if err := q.Order("first_name").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].toDomain())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	updates := map[string]interface{}{"updated_at": usr.UpdatedAt}
	if usr.FirstName != "" {
		updates["first_name"] = usr.FirstName
	}
	if usr.LastName != "" {
		updates["last_name"] = usr.LastName
	}
	if usr.PhoneNumber != "" {
		updates["phone_number"] = usr.PhoneNumber
	}
	if usr.PasswordHash != nil {
		updates["password_hash"] = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		updates["last_login"] = usr.LastLogin
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	res := repo.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", usr.ID).Updates(updates)
	if res.Error != nil {
		return user.User{}, errors.Wrap(res.Error, "updating user")
	}
	if res.RowsAffected == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) AddAssignment(ctx context.Context, userID, kind, entityID string) error {
	a := userAssignment{UserID: userID, Kind: kind, EntityID: entityID}
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&a).Error
	return errors.Wrap(err, "adding assignment")
}

func (repo *userRepository) RemoveAssignment(ctx context.Context, userID, kind, entityID string) error {
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND entity_id = ?", userID, kind, entityID).
		Delete(&userAssignment{}).Error
	return errors.Wrap(err, "removing assignment")
}

func (repo *userRepository) AddChild(ctx context.Context, parentID, childID string) error {
	c := userChild{UserID: parentID, ChildID: childID}
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error
	return errors.Wrap(err, "linking child")
}
