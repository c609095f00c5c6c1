package postgres

import (
	"time"

	"github.com/google/uuid"
)

type eventModel struct {
	EventID        uuid.UUID  `gorm:"column:event_id;type:uuid;primaryKey"`
	SubjectID      string     `gorm:"column:subject_id"`
	ActorRole      string     `gorm:"column:actor_role"`
	ActorID        string     `gorm:"column:actor_id"`
	Kind           string     `gorm:"column:kind"`
	Payload        string     `gorm:"column:payload"`
	Timestamp      time.Time  `gorm:"column:timestamp"`
	Channel        string     `gorm:"column:channel"`
	ManualFollowUp bool       `gorm:"column:manual_follow_up"`
	ProcessedAt    *time.Time `gorm:"column:processed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

func (eventModel) TableName() string { return "followup_events" }

type archivalStatusModel struct {
	EventID          uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	DocumentID       *string   `gorm:"column:document_id"`
	DistributionID   *string   `gorm:"column:distribution_id"`
	CannotArchive    bool      `gorm:"column:cannot_archive"`
	CannotDistribute bool      `gorm:"column:cannot_distribute"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (archivalStatusModel) TableName() string { return "followup_archival_status" }

type notificationModel struct {
	NotificationID  uuid.UUID  `gorm:"column:notification_id;type:uuid;primaryKey"`
	SubjectID       string     `gorm:"column:subject_id"`
	Type            string     `gorm:"column:type"`
	Status          string     `gorm:"column:status"`
	Text            string     `gorm:"column:text"`
	ActiveFrom      time.Time  `gorm:"column:active_from"`
	ActiveTil       *time.Time `gorm:"column:active_til"`
	ExternalChannel bool       `gorm:"column:external_channel"`
	ExternallySent  bool       `gorm:"column:externally_sent"`
	RenotifyAt      *time.Time `gorm:"column:renotify_at"`
	EventIDs        string     `gorm:"column:event_ids"`
	ResendOf        *uuid.UUID `gorm:"column:resend_of"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (notificationModel) TableName() string { return "followup_notifications" }

type outboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	ClaimToken   *string    `gorm:"column:claim_token"`
	ClaimedUntil *time.Time `gorm:"column:claimed_until"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
}

func (outboxModel) TableName() string { return "followup_outbox" }
