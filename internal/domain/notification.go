package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeTask    NotificationType = "task"
	NotificationTypeMessage NotificationType = "message"
)

type NotificationStatus string

const (
	NotificationStatusWaiting NotificationStatus = "waiting"
	NotificationStatusActive  NotificationStatus = "active"
	NotificationStatusDone    NotificationStatus = "done"
)

// Notification is a task or message surfaced to a participant through the
// external notification channel.
type Notification struct {
	NotificationID  uuid.UUID
	SubjectID       string
	Type            NotificationType
	Status          NotificationStatus
	Text            string
	ActiveFrom      time.Time
	ActiveTil       *time.Time
	ExternalChannel bool
	// ExternallySent is set once a create command for this notification has
	// been handed to the outbox; it decides whether deactivation must emit
	// an inactivate command.
	ExternallySent bool
	RenotifyAt     *time.Time
	EventIDs       []uuid.UUID
	ResendOf       *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Open reports whether the notification still occupies the single
// waiting-or-active slot for its (subject, type) pair.
func (n Notification) Open() bool {
	return n.Status == NotificationStatusWaiting || n.Status == NotificationStatusActive
}

// Expired reports whether an active notification's window has elapsed.
func (n Notification) Expired(now time.Time) bool {
	return n.Status == NotificationStatusActive && n.ActiveTil != nil && !n.ActiveTil.After(now)
}
