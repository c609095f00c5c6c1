package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	return enqueueOutbox(r.db.WithContext(ctx), &event)
}

// enqueueOutbox writes an outbox record on the given handle, which may be a
// transaction shared with a domain state change. A nil event is a no-op.
func enqueueOutbox(tx *gorm.DB, event *ports.OutboxEvent) error {
	if event == nil {
		return nil
	}
	return tx.Create(&outboxModel{
		OutboxID:     event.OutboxID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt.UTC(),
	}).Error
}

// ClaimUnpublished stamps a batch of unpublished records with the caller's
// claim token and lease deadline. Records whose previous claim lapsed are
// fair game again, so a crashed relay never strands its batch.
func (r *outboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	var claimed []outboxModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []outboxModel
		now := time.Now().UTC()
		err := tx.Raw(`
			SELECT * FROM followup_outbox
			WHERE published_at IS NULL
			  AND (claim_token IS NULL OR claimed_until < ?)
			ORDER BY created_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED`, now, limit).Scan(&candidates).Error
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.OutboxID)
		}
		err = tx.Model(&outboxModel{}).
			Where("outbox_id IN ?", ids).
			Updates(map[string]any{
				"claim_token":   claimToken,
				"claimed_until": claimUntil.UTC(),
			}).Error
		if err != nil {
			return err
		}
		claimed = candidates
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(claimed))
	for _, row := range claimed {
		out = append(out, ports.OutboxRecord{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      []byte(row.Payload),
			RetryCount:   row.RetryCount,
			PublishedAt:  row.PublishedAt,
			LastError:    row.LastError,
			LastErrorAt:  row.LastErrorAt,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"published_at":  at.UTC(),
			"claim_token":   nil,
			"claimed_until": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed releases the claim so the next relay pass retries the record.
// Failed records stay in the table; the outbox never drops a committed
// message.
func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_error":    errMsg,
			"last_error_at": at.UTC(),
			"claim_token":   nil,
			"claimed_until": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ ports.OutboxRepository = (*outboxRepository)(nil)
