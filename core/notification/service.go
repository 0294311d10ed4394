package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/child"
)

var ErrNotFound = errors.New("notification not found")

// AttendanceEntry is one child's outcome in a roll call being fanned out.
type AttendanceEntry struct {
	ChildID string
	Status  string
}

type (
	Repository interface {
		CreateNotification(ctx context.Context, ntf Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// FilterNotifications returns the recipient's page (newest first) plus
		// the unpaged total.
		FilterNotifications(ctx context.Context, recipientID string, unreadOnly bool, page core.PageQuery) ([]Notification, int, error)
		CountUnread(ctx context.Context, recipientID string) (int, error)
		MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error
		MarkAllNotificationsRead(ctx context.Context, recipientID string, readAt time.Time) error
		DeleteNotification(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		chdRepo child.Repository
		logger  core.Logger
	}
)

func NewService(repo Repository, chdRepo child.Repository, logger core.Logger) *Service {
	return &Service{repo: repo, chdRepo: chdRepo, logger: logger}
}

func (svc *Service) Send(ctx context.Context, nn NewNotification) (Notification, error) {
	ntf := Notification{
		RecipientID: nn.RecipientID,
		Type:        nn.Type,
		Title:       nn.Title,
		Body:        nn.Body,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateNotification(ctx, ntf)
}

// SendBulk delivers the same message to every recipient. A failed delivery
// does not block the remaining ones.
func (svc *Service) SendBulk(ctx context.Context, bn BulkNotification) (int, error) {
	sent := 0
	for _, rid := range bn.RecipientIDs {
		_, err := svc.Send(ctx, NewNotification{RecipientID: rid, Title: bn.Title, Body: bn.Body, Type: bn.Type})
		if err != nil {
			svc.logger.Error(errors.Wrapf(err, "notifying user %s", rid).Error())
			continue
		}
		sent++
	}
	return sent, nil
}

// NotifyAttendance composes and stores one attendance notification per entry,
// addressed to the child's parent and linked back to the originating event.
// Children without a linked parent are skipped, and a failure on one entry
// never blocks the rest.
func (svc *Service) NotifyAttendance(ctx context.Context, kind, eventID string, entries []AttendanceEntry) {
	for _, entry := range entries {
		chd, err := svc.chdRepo.GetChildByID(ctx, entry.ChildID)
		if err != nil {
			svc.logger.Error(errors.Wrapf(err, "resolving child %s for attendance notification", entry.ChildID).Error())
			continue
		}
		if chd.ParentID == "" {
			continue
		}
		body := fmt.Sprintf("%s was %s for %s today.", chd.FullName(), statusPhrase(entry.Status), kind)
		ntf := Notification{
			RecipientID:  chd.ParentID,
			ChildID:      chd.ID,
			AttendanceID: eventID,
			Type:         TypeAttendance,
			Title:        "Attendance Update - " + chd.FirstName,
			Body:         body,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err = svc.repo.CreateNotification(ctx, ntf); err != nil {
			svc.logger.Error(errors.Wrapf(err, "notifying parent %s", chd.ParentID).Error())
		}
	}
}

func statusPhrase(status string) string {
	switch status {
	case "present":
		return "marked present"
	case "absent":
		return "marked absent"
	case "late":
		return "marked late"
	case "excused":
		return "excused"
	}
	return "marked " + status
}

// List returns the recipient's inbox page with the outstanding unread count.
func (svc *Service) List(ctx context.Context, recipientID string, unreadOnly bool, page core.PageQuery) (Inbox, error) {
	ntfs, total, err := svc.repo.FilterNotifications(ctx, recipientID, unreadOnly, page)
	if err != nil {
		return Inbox{}, err
	}
	unread, err := svc.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return Inbox{}, err
	}
	return Inbox{
		Notifications: ntfs,
		UnreadCount:   unread,
		Pagination:    core.NewPagination(page.Page, page.Limit, total),
	}, nil
}

// MarkRead flips the notification to read on behalf of its recipient. Other
// users' notifications stay out of reach.
func (svc *Service) MarkRead(ctx context.Context, recipientID, id string) (Notification, error) {
	ntf, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if ntf.RecipientID != recipientID {
		return Notification{}, ErrNotFound
	}
	if ntf.IsRead {
		return ntf, nil
	}
	now := time.Now().UTC()
	if err = svc.repo.MarkNotificationRead(ctx, id, now); err != nil {
		return Notification{}, err
	}
	ntf.IsRead = true
	ntf.ReadAt = &now
	return ntf, nil
}

func (svc *Service) MarkAllRead(ctx context.Context, recipientID string) error {
	return svc.repo.MarkAllNotificationsRead(ctx, recipientID, time.Now().UTC())
}

func (svc *Service) Delete(ctx context.Context, recipientID, id string) error {
	ntf, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return err
	}
	if ntf.RecipientID != recipientID {
		return ErrNotFound
	}
	return svc.repo.DeleteNotification(ctx, id)
}
