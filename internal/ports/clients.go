package ports

import (
	"context"

	"github.com/caseflow/followup-service/internal/domain"
)

// ArchivalClient hands one subject's settled events to the archival pipeline
// as a single batch and returns the archived document id.
type ArchivalClient interface {
	ArchiveBatch(ctx context.Context, subjectID string, events []domain.Event) (documentID string, err error)
}

// PersonRegistryClient resolves how a subject receives mail.
type PersonRegistryClient interface {
	ChannelClassification(ctx context.Context, subjectID string) (domain.ChannelClassification, error)
}

// CaseClient answers whether the subject currently has an active case period.
type CaseClient interface {
	HasActiveCasePeriod(ctx context.Context, subjectID string) (bool, error)
}

// TokenSource issues machine-to-machine tokens for outbound collaborator
// calls. Implementations cache tokens until shortly before expiry.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}
