package application

import (
	"time"

	"github.com/google/uuid"
)

type Config struct {
	ServiceName string
	// MessageValidity is the activation window length for message-type
	// notifications.
	MessageValidity time.Duration
	// RenotifyInterval is how long an unacknowledged external notification
	// waits before a repeat delivery is scheduled.
	RenotifyInterval time.Duration
	// GraceWindow is how long a subject's event stream must stay quiet
	// before its unarchived events are consolidated into one document.
	GraceWindow     time.Duration
	SweepBatchSize  int
	ChannelCacheTTL time.Duration
}

// Outbox event types; the kafka publisher maps them to topics.
const (
	EventTypeNotificationCreate     = "notification.create"
	EventTypeNotificationInactivate = "notification.inactivate"
	EventTypeNotificationState      = "followup.notification_state"
)

// NotificationCommand matches the external notification service's schema.
type NotificationCommand struct {
	CommandID       string     `json:"command_id"`
	Command         string     `json:"command"`
	NotificationID  string     `json:"notification_id"`
	SubjectID       string     `json:"subject_id"`
	Type            string     `json:"type,omitempty"`
	Text            string     `json:"text,omitempty"`
	ActiveFrom      *time.Time `json:"active_from,omitempty"`
	ActiveTil       *time.Time `json:"active_til,omitempty"`
	ExternalChannel bool       `json:"external_channel,omitempty"`
	ResendOf        string     `json:"resend_of,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// NotificationStateEvent is the flattened DTO published for downstream
// display systems when a notification becomes active or expires.
type NotificationStateEvent struct {
	NotificationID  string     `json:"notification_id"`
	SubjectID       string     `json:"subject_id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Text            string     `json:"text"`
	ActiveFrom      time.Time  `json:"active_from"`
	ActiveTil       *time.Time `json:"active_til,omitempty"`
	ExternalChannel bool       `json:"external_channel"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// NotificationLifecycleUpdate is the decoded inbound notification-lifecycle
// record; only terminal transitions matter to the engine.
type NotificationLifecycleUpdate struct {
	NotificationID uuid.UUID
	EventName      string
	ExternalStatus string
}

const (
	LifecycleCreated               = "created"
	LifecycleInactivated           = "inactivated"
	LifecycleDeleted               = "deleted"
	LifecycleExternalStatusUpdated = "external_status_updated"
)

// ProviderMessage is the decoded inbound provider-message record. Only the
// proposal kind is translated into a synthetic internal event.
type ProviderMessage struct {
	MessageID   uuid.UUID
	MessageKind string
	SubjectID   string
	ProviderID  string
	Summary     string
	SentAt      time.Time
}

const ProviderMessageKindProposal = "proposal"

type ChannelResponse struct {
	SubjectID string `json:"subject_id"`
	Channel   string `json:"channel"`
}
