package verify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/legendx/enhancebot/common/model"
)

// StatusFetcher is the one collaborator capability this module needs:
// the raw membership status string of a user in a channel. May error.
type StatusFetcher interface {
	GetMemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}

// allowedStatuses is the fixed vocabulary of statuses that count as verified.
// Matching is loose case-insensitive substring matching ("admin" also matches
// "administrator"), which over-matches by design of the original behavior.
// TODO: replace with an enumerated status type once the platform vocabulary
// is pinned down.
var allowedStatuses = []string{"creator", "owner", "administrator", "admin", "member"}

// Service is the membership oracle adapter: it asks the collaborator for a
// user's status and normalizes the answer into a tagged MembershipCheck.
type Service struct {
	fetcher StatusFetcher
	log     zerolog.Logger
}

// NewService constructs a membership oracle over the given fetcher.
func NewService(fetcher StatusFetcher, log zerolog.Logger) *Service {
	return &Service{fetcher: fetcher, log: log}
}

// CheckMembership performs a single lookup, fail-soft. A collaborator error
// is mapped to MembershipCheckFailed and never propagates; there is no retry.
func (s *Service) CheckMembership(ctx context.Context, channel string, userID int64) model.MembershipCheck {
	status, err := s.fetcher.GetMemberStatus(ctx, channel, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Str("channel", channel).
			Msg("membership check failed")
		return model.MembershipCheck{State: model.MembershipCheckFailed, Reason: err.Error()}
	}
	if statusAllowed(status) {
		return model.MembershipCheck{State: model.MembershipVerified}
	}
	return model.MembershipCheck{State: model.MembershipNotMember}
}

func statusAllowed(status string) bool {
	status = strings.ToLower(status)
	for _, allowed := range allowedStatuses {
		if strings.Contains(status, allowed) {
			return true
		}
	}
	return false
}
