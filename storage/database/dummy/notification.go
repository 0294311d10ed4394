package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) query(recipientID string) []notification.Notification {
	var ntfs []notification.Notification
	for _, ntf := range repo.db.table {
		if recipientID == "" || ntf.RecipientID == recipientID {
			ntfs = append(ntfs, *ntf)
		}
	}
	sort.Slice(ntfs, func(i, j int) bool { return ntfs[i].CreatedAt.After(ntfs[j].CreatedAt) })
	return ntfs
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, ntf notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ntf.ID = uuid.NewString()
	repo.db.table[ntf.ID] = &ntf
	return ntf, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ntf, ok := repo.db.table[id]; ok {
		return *ntf, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) FilterNotifications(ctx context.Context, recipientID string, unreadOnly bool, page core.PageQuery) ([]notification.Notification, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ntfs := repo.query(recipientID)
	if unreadOnly {
		var filtered []notification.Notification
		for _, ntf := range ntfs {
			if !ntf.IsRead {
				filtered = append(filtered, ntf)
			}
		}
		ntfs = filtered
	}

	total := len(ntfs)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return ntfs[start:end], total, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	count := 0
	for _, ntf := range repo.query(recipientID) {
		if !ntf.IsRead {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ntf, ok := repo.db.table[id]
	if !ok {
		return notification.ErrNotFound
	}
	ntf.IsRead = true
	ntf.ReadAt = &readAt
	return nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, recipientID string, readAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, ntf := range repo.db.table {
		if ntf.RecipientID == recipientID && !ntf.IsRead {
			ntf.IsRead = true
			at := readAt
			ntf.ReadAt = &at
		}
	}
	return nil
}

func (repo *notificationRepository) DeleteNotification(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return notification.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
