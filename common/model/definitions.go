package model

import (
	"encoding/json"
	"errors"
)

// JSONUnmarshal is the central JSON helper so callers do not import
// encoding/json everywhere.
func JSONUnmarshal(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

// ----------------------------------------------------------------------
// Membership verification
// ----------------------------------------------------------------------

// MembershipState is the normalized answer of a channel membership lookup.
type MembershipState int

const (
	// MembershipVerified means the user's status is in the allow-set.
	MembershipVerified MembershipState = iota
	// MembershipNotMember means the lookup succeeded but the status is not allowed.
	MembershipNotMember
	// MembershipCheckFailed means the lookup itself failed (network, permission).
	// Callers must treat it as "not verified"; it is kept distinct for logging.
	MembershipCheckFailed
)

func (s MembershipState) String() string {
	switch s {
	case MembershipVerified:
		return "verified"
	case MembershipNotMember:
		return "not_member"
	case MembershipCheckFailed:
		return "check_failed"
	default:
		return "unknown"
	}
}

// MembershipCheck is the tagged result of a membership lookup.
// Reason is only set for MembershipCheckFailed.
type MembershipCheck struct {
	State  MembershipState
	Reason string
}

// Verified reports whether the check allows access. A failed check never does.
func (c MembershipCheck) Verified() bool {
	return c.State == MembershipVerified
}

// ----------------------------------------------------------------------
// Enhancement
// ----------------------------------------------------------------------

// EnhancementSource records which path produced the enhanced bytes.
type EnhancementSource string

const (
	// SourceLocal means the local pipeline ran and no remote provider was configured.
	SourceLocal EnhancementSource = "local"
	// SourceRemote means the remote provider produced the result.
	SourceRemote EnhancementSource = "remote"
	// SourceLocalFallback means the remote provider was tried and failed,
	// and the local pipeline produced the result.
	SourceLocalFallback EnhancementSource = "local_fallback"
)

// EnhancementOutcome is the tagged result of an enhancement request, making
// the remote-vs-local decision visible to the orchestrator instead of hiding
// it behind a catch-all.
type EnhancementOutcome struct {
	Data   []byte
	Source EnhancementSource
	// RemoteErr holds the remote failure when Source is SourceLocalFallback.
	RemoteErr error
}

// ----------------------------------------------------------------------
// Telegram references
// ----------------------------------------------------------------------

// MessageRef identifies a sent message so it can be edited or deleted later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// PhotoSubmission carries everything the orchestrator needs about one
// inbound photo message.
type PhotoSubmission struct {
	ChatID    int64
	UserID    int64
	FileID    string
	MessageID int
}

// ----------------------------------------------------------------------
// Error taxonomy
// ----------------------------------------------------------------------

var (
	// ErrDownload marks a failed file retrieval from the collaborator.
	ErrDownload = errors.New("download failed")
	// ErrDecode marks input bytes that are not a valid or supported image.
	ErrDecode = errors.New("image decode failed")
	// ErrPipeline marks a failure inside the transform chain.
	ErrPipeline = errors.New("enhancement pipeline failed")
	// ErrDelivery marks a failed attempt to send the result back.
	ErrDelivery = errors.New("delivery failed")
)
