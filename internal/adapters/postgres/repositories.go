package postgres

import (
	"gorm.io/gorm"

	"github.com/caseflow/followup-service/internal/ports"
)

// Repositories bundles the postgres-backed stores sharing one connection pool.
type Repositories struct {
	Events        ports.EventRepository
	Notifications ports.NotificationRepository
	Outbox        ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Events:        &eventRepository{db: db},
		Notifications: &notificationRepository{db: db},
		Outbox:        &outboxRepository{db: db},
	}
}
