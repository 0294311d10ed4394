package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jckckids/backend/core"
)

// Notification types
const (
	TypeAttendance   = "attendance"
	TypeAnnouncement = "announcement"
	TypeSystem       = "system"
)

type Notification struct {
	ID           string     `json:"id"`
	RecipientID  string     `json:"recipientId"`
	ChildID      string     `json:"childId,omitempty"`
	AttendanceID string     `json:"attendanceId,omitempty"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	IsRead       bool       `json:"isRead"`
	ReadAt       *time.Time `json:"readAt,omitempty"` // set iff IsRead
	CreatedAt    time.Time  `json:"createdAt"`        // UTC
}

// NewNotification contains information needed to send a direct notification.
type NewNotification struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Body        string `json:"body" validate:"required"`
	Type        string `json:"type" validate:"omitempty,oneof=attendance announcement system"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Body = core.CleanString(nn.Body)
	if nn.Type == "" {
		nn.Type = TypeAnnouncement
	}
	return validate.Struct(nn)
}

// BulkNotification fans the same message out to several recipients.
type BulkNotification struct {
	RecipientIDs []string `json:"recipientIds" validate:"required,min=1,dive,required"`
	Title        string   `json:"title" validate:"required"`
	Body         string   `json:"body" validate:"required"`
	Type         string   `json:"type" validate:"omitempty,oneof=attendance announcement system"`
}

func (bn *BulkNotification) Validate(validate *validator.Validate) error {
	bn.Title = core.CleanString(bn.Title)
	bn.Body = core.CleanString(bn.Body)
	if bn.Type == "" {
		bn.Type = TypeAnnouncement
	}
	return validate.Struct(bn)
}

// Inbox is a recipient's notification page with the outstanding unread count.
type Inbox struct {
	Notifications []Notification  `json:"notifications"`
	UnreadCount   int             `json:"unreadCount"`
	Pagination    core.Pagination `json:"pagination"`
}
