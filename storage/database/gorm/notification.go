package gormdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/notification"
)

type notificationRepository struct {
	db *gorm.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, ntf notification.Notification) (notification.Notification, error) {
	ntf.ID = uuid.NewString()
	m := newNotificationModel(ntf)
	if err := repo.db.WithContext(ctx).Create(&m).Error; err != nil {
		return notification.Notification{}, errors.Wrap(err, "creating notification")
	}
	return ntf, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var m notificationModel
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return m.toDomain(), nil
}

func (repo *notificationRepository) FilterNotifications(ctx context.Context, recipientID string, unreadOnly bool, page core.PageQuery) ([]notification.Notification, int, error) {
	q := repo.db.WithContext(ctx).Model(&notificationModel{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting notifications")
	}

	var models []notificationModel
	err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&models).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering notifications")
	}
	ntfs := make([]notification.Notification, 0, len(models))
	for i := range models {
		ntfs = append(ntfs, models[i].toDomain())
	}
	return ntfs, int(total), nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&notificationModel{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return int(count), nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error {
	res := repo.db.WithContext(ctx).Model(&notificationModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	if res.Error != nil {
		return errors.Wrap(res.Error, "marking notification read")
	}
	if res.RowsAffected == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, recipientID string, readAt time.Time) error {
	err := repo.db.WithContext(ctx).Model(&notificationModel{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt}).Error
	return errors.Wrap(err, "marking notifications read")
}

func (repo *notificationRepository) DeleteNotification(ctx context.Context, id string) error {
	res := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&notificationModel{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting notification")
	}
	if res.RowsAffected == 0 {
		return notification.ErrNotFound
	}
	return nil
}
