package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestArchivalStatusMergeNeverRegresses(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	base := ArchivalStatus{EventID: id, DocumentID: strPtr("doc-1")}

	merged := base.Merge(ArchivalStatus{EventID: id})
	if merged.DocumentID == nil || *merged.DocumentID != "doc-1" {
		t.Fatalf("merge with empty status cleared document id")
	}

	merged = base.Merge(ArchivalStatus{EventID: id, DocumentID: strPtr("doc-2"), DistributionID: strPtr("dist-1")})
	if *merged.DocumentID != "doc-1" {
		t.Fatalf("merge replaced an already set document id")
	}
	if merged.DistributionID == nil || *merged.DistributionID != "dist-1" {
		t.Fatalf("merge did not adopt new distribution id")
	}

	merged = merged.Merge(ArchivalStatus{EventID: id, CannotDistribute: true})
	if !merged.CannotDistribute {
		t.Fatalf("merge did not keep cannot_distribute flag")
	}
}

func TestArchivalStatusArchived(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	if (ArchivalStatus{EventID: id}).Archived() {
		t.Fatalf("fresh status should not be archived")
	}
	if (ArchivalStatus{EventID: id, DocumentID: strPtr("d")}).Archived() {
		t.Fatalf("document without distribution should not count as archived")
	}
	if !(ArchivalStatus{EventID: id, DocumentID: strPtr("d"), DistributionID: strPtr("x")}).Archived() {
		t.Fatalf("document plus distribution should be archived")
	}
	if !(ArchivalStatus{EventID: id, DocumentID: strPtr("d"), CannotDistribute: true}).Archived() {
		t.Fatalf("permanently undistributable document should count as archived")
	}
	if !(ArchivalStatus{EventID: id, CannotArchive: true}).Archived() {
		t.Fatalf("permanently blocked event should count as archived")
	}
}

func TestPayloadCodecRoundTrip(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := EncodePayload(DraftCreatedPayload{DraftID: "d-1", CaseID: "c-1", Deadline: &deadline})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p, ok := decoded.(DraftCreatedPayload)
	if !ok {
		t.Fatalf("decoded wrong variant %T", decoded)
	}
	if p.DraftID != "d-1" || p.CaseID != "c-1" || p.Deadline == nil || !p.Deadline.Equal(deadline) {
		t.Fatalf("round trip lost fields: %+v", p)
	}
}

func TestPayloadCodecRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := DecodePayload([]byte(`{"type":"mystery_event"}`)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown discriminator, got %v", err)
	}
}
