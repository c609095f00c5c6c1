package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChannelClassification says how the subject receives mail from the program.
type ChannelClassification string

const (
	ChannelDigital ChannelClassification = "digital"
	ChannelPaper   ChannelClassification = "paper"
)

type ActorRole string

const (
	ActorCaseworker  ActorRole = "caseworker"
	ActorParticipant ActorRole = "participant"
	ActorProvider    ActorRole = "provider"
)

// Actor is the party responsible for the change the event describes.
type Actor struct {
	Role ActorRole
	ID   string
}

type EventKind string

const (
	EventKindDraftCreated       EventKind = "draft_created"
	EventKindDraftCancelled     EventKind = "draft_cancelled"
	EventKindDecisionApproved   EventKind = "decision_approved"
	EventKindEnrollmentExtended EventKind = "enrollment_extended"
	EventKindEnrollmentEnded    EventKind = "enrollment_ended"
	EventKindParticipantUpdated EventKind = "participant_updated"
	EventKindProviderProposal   EventKind = "provider_proposal"
)

// AllEventKinds is the closed set of payload variants. Dispatch over event
// kinds must cover exactly this set.
var AllEventKinds = []EventKind{
	EventKindDraftCreated,
	EventKindDraftCancelled,
	EventKindDecisionApproved,
	EventKindEnrollmentExtended,
	EventKindEnrollmentEnded,
	EventKindParticipantUpdated,
	EventKindProviderProposal,
}

// EventPayload is the closed tagged union of event kinds.
type EventPayload interface {
	Kind() EventKind
}

type DraftCreatedPayload struct {
	DraftID  string     `json:"draft_id"`
	CaseID   string     `json:"case_id"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

func (DraftCreatedPayload) Kind() EventKind { return EventKindDraftCreated }

type DraftCancelledPayload struct {
	DraftID string `json:"draft_id"`
	Reason  string `json:"reason,omitempty"`
}

func (DraftCancelledPayload) Kind() EventKind { return EventKindDraftCancelled }

type DecisionApprovedPayload struct {
	DecisionID string     `json:"decision_id"`
	CaseID     string     `json:"case_id"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidTo    *time.Time `json:"valid_to,omitempty"`
}

func (DecisionApprovedPayload) Kind() EventKind { return EventKindDecisionApproved }

type EnrollmentExtendedPayload struct {
	EnrollmentID string    `json:"enrollment_id"`
	NewEndDate   time.Time `json:"new_end_date"`
}

func (EnrollmentExtendedPayload) Kind() EventKind { return EventKindEnrollmentExtended }

type EnrollmentEndedPayload struct {
	EnrollmentID string    `json:"enrollment_id"`
	EndedAt      time.Time `json:"ended_at"`
	Reason       string    `json:"reason,omitempty"`
}

func (EnrollmentEndedPayload) Kind() EventKind { return EventKindEnrollmentEnded }

type ParticipantUpdatedPayload struct {
	ChangedFields []string `json:"changed_fields,omitempty"`
}

func (ParticipantUpdatedPayload) Kind() EventKind { return EventKindParticipantUpdated }

// ProviderProposalPayload is synthesized from the provider-message log; it is
// never delivered on the participant event log directly.
type ProviderProposalPayload struct {
	ProposalID string `json:"proposal_id"`
	ProviderID string `json:"provider_id"`
	Summary    string `json:"summary,omitempty"`
}

func (ProviderProposalPayload) Kind() EventKind { return EventKindProviderProposal }

// Event is an immutable fact about a participant's case state change.
// Inserted once with ignore-if-present semantics, never mutated.
type Event struct {
	ID             uuid.UUID
	SubjectID      string
	Actor          Actor
	Payload        EventPayload
	Timestamp      time.Time
	Channel        ChannelClassification
	ManualFollowUp bool
}

// ArchivalStatus tracks the archival pipeline's progress for one event.
// Fields move monotonically forward; a set value is never cleared.
type ArchivalStatus struct {
	EventID          uuid.UUID
	DocumentID       *string
	DistributionID   *string
	CannotArchive    bool
	CannotDistribute bool
}

// Archived reports whether the event needs no further archival work, either
// because the pipeline completed or because it is permanently blocked.
func (s ArchivalStatus) Archived() bool {
	if s.CannotArchive {
		return true
	}
	if s.DocumentID == nil {
		return false
	}
	return s.DistributionID != nil || s.CannotDistribute
}

// Merge folds a newer status into the receiver without regressing any field.
func (s ArchivalStatus) Merge(next ArchivalStatus) ArchivalStatus {
	out := s
	if out.DocumentID == nil && next.DocumentID != nil {
		out.DocumentID = next.DocumentID
	}
	if out.DistributionID == nil && next.DistributionID != nil {
		out.DistributionID = next.DistributionID
	}
	out.CannotArchive = out.CannotArchive || next.CannotArchive
	out.CannotDistribute = out.CannotDistribute || next.CannotDistribute
	return out
}
