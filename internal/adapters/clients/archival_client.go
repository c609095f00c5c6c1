package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type ArchivalClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     ports.TokenSource
}

// ArchivalClient submits one subject's settled events to the archival
// pipeline as a single consolidated document.
type ArchivalClient struct {
	baseURL string
	client  *http.Client
	tokens  ports.TokenSource
}

func NewArchivalClient(cfg ArchivalClientConfig) *ArchivalClient {
	return &ArchivalClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  defaultHTTPClient(cfg.HTTPClient),
		tokens:  cfg.Tokens,
	}
}

type archiveEntry struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor_role"`
	Timestamp time.Time `json:"timestamp"`
	Payload   string    `json:"payload"`
}

type archiveBatchRequest struct {
	SubjectID string         `json:"subject_id"`
	Entries   []archiveEntry `json:"entries"`
}

type archiveBatchResponse struct {
	DocumentID string `json:"document_id"`
}

func (c *ArchivalClient) ArchiveBatch(ctx context.Context, subjectID string, events []domain.Event) (string, error) {
	if len(events) == 0 {
		return "", fmt.Errorf("%w: empty archive batch", domain.ErrInvalidInput)
	}
	req := archiveBatchRequest{
		SubjectID: subjectID,
		Entries:   make([]archiveEntry, 0, len(events)),
	}
	for _, ev := range events {
		payload, err := domain.EncodePayload(ev.Payload)
		if err != nil {
			return "", err
		}
		req.Entries = append(req.Entries, archiveEntry{
			EventID:   ev.ID.String(),
			Kind:      string(ev.Payload.Kind()),
			Actor:     string(ev.Actor.Role),
			Timestamp: ev.Timestamp,
			Payload:   string(payload),
		})
	}
	var resp archiveBatchResponse
	err := doJSON(ctx, c.client, c.tokens, http.MethodPost, c.baseURL+"/v1/archive-batches", req, &resp)
	if err != nil {
		return "", err
	}
	if resp.DocumentID == "" {
		return "", fmt.Errorf("%w: archival returned empty document id", domain.ErrDependencyUnavailable)
	}
	return resp.DocumentID, nil
}

var _ ports.ArchivalClient = (*ArchivalClient)(nil)
