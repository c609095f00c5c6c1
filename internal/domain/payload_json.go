package domain

import (
	"encoding/json"
	"fmt"
)

// EncodePayload serializes a payload with its discriminator, matching the
// wire envelope's `payload` object: {"type": <kind>, ...kind fields}.
func EncodePayload(p EventPayload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(p.Kind())
	if err != nil {
		return nil, err
	}
	fields["type"] = kind
	return json.Marshal(fields)
}

// DecodePayload parses a discriminated payload object back into its concrete
// variant. Unknown discriminators are rejected; the union is closed.
func DecodePayload(raw []byte) (EventPayload, error) {
	var head struct {
		Type EventKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: payload discriminator: %v", ErrInvalidInput, err)
	}

	var (
		payload EventPayload
		err     error
	)
	switch head.Type {
	case EventKindDraftCreated:
		var p DraftCreatedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventKindDraftCancelled:
		var p DraftCancelledPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventKindDecisionApproved:
		var p DecisionApprovedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventKindEnrollmentExtended:
		var p EnrollmentExtendedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventKindEnrollmentEnded:
		var p EnrollmentEndedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventKindParticipantUpdated:
		var p ParticipantUpdatedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case EventKindProviderProposal:
		var p ProviderProposalPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("%w: unknown event kind %q", ErrInvalidInput, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrInvalidInput, head.Type, err)
	}
	return payload, nil
}
