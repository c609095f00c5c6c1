package application

import (
	"context"
	"strings"

	"github.com/caseflow/followup-service/internal/domain"
)

// SubjectChannel resolves how a subject receives mail, caching the person
// registry's answer. A cache failure degrades to a registry lookup.
func (s *Service) SubjectChannel(ctx context.Context, subjectID string) (ChannelResponse, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return ChannelResponse{}, domain.ErrInvalidInput
	}

	key := cacheKeyChannel(subjectID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		return ChannelResponse{SubjectID: subjectID, Channel: cached}, nil
	}

	channel, err := s.personRegistry.ChannelClassification(ctx, subjectID)
	if err != nil {
		return ChannelResponse{}, err
	}
	_ = s.cache.Set(ctx, key, string(channel), s.cfg.ChannelCacheTTL)
	return ChannelResponse{SubjectID: subjectID, Channel: string(channel)}, nil
}

func cacheKeyChannel(subjectID string) string {
	return "followup:channel:" + subjectID
}
