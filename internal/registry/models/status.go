package models

import dErrors "agriproof/pkg/domain-errors"

// ClaimStatus is the lifecycle state of a claim.
//
// Transitions: Pending → Approved or Pending → Rejected. Both targets are
// terminal; no transition leaves a terminal state.
type ClaimStatus string

const (
	StatusPending  ClaimStatus = "pending"
	StatusApproved ClaimStatus = "approved"
	StatusRejected ClaimStatus = "rejected"
)

// ParseClaimStatus validates a stored status at the deserialization boundary.
// Stored blobs are never trusted implicitly.
func ParseClaimStatus(s string) (ClaimStatus, error) {
	switch ClaimStatus(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return ClaimStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown claim status %q", s)
	}
}

// Terminal reports whether no further transition is allowed.
func (s ClaimStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the transition s → next is allowed.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	if s != StatusPending {
		return false
	}
	return next == StatusApproved || next == StatusRejected
}

func (s ClaimStatus) String() string { return string(s) }
