package models

import (
	"strings"
	"time"

	id "agriproof/pkg/domain"
	dErrors "agriproof/pkg/domain-errors"
)

// DeadlineDay is the deadline unit: enroll(deadlineDays) grants the farmer
// deadlineDays * 86400 seconds from enrollment to submit a claim.
const DeadlineDay = 24 * time.Hour

// Enrollment establishes a farmer's claim-submission window.
//
// Invariants:
//   - ClaimDeadline > EnrolledAt
//   - created once per farmer, never mutated or deleted afterwards
type Enrollment struct {
	FarmerID      id.Address `json:"farmer_id"`
	EnrolledAt    time.Time  `json:"enrolled_at"`
	ClaimDeadline time.Time  `json:"claim_deadline"`
}

// NewEnrollment builds an enrollment effective at now with a deadline of
// deadlineDays days. Rejects non-positive deadlines.
func NewEnrollment(farmerID id.Address, deadlineDays int64, now time.Time) (*Enrollment, error) {
	if deadlineDays <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidDeadline, "deadline days must be positive")
	}
	return &Enrollment{
		FarmerID:      farmerID,
		EnrolledAt:    now,
		ClaimDeadline: now.Add(time.Duration(deadlineDays) * DeadlineDay),
	}, nil
}

// Open reports whether the submission window is still open at now. The
// deadline itself is exclusive: a submission at exactly ClaimDeadline is late.
func (e *Enrollment) Open(now time.Time) bool {
	return now.Before(e.ClaimDeadline)
}

// Clone returns a copy so stores can hand out snapshots without aliasing
// their internal state.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// Claim records a farmer's damage assertion and its verification outcome.
//
// Invariants:
//   - at most one claim per farmer
//   - ProofHash is write-once
//   - Status starts Pending and moves exactly once to Approved or Rejected
//   - VerifierID and VerifiedAt are absent until verification, then set
//     together
type Claim struct {
	FarmerID    id.Address  `json:"farmer_id"`
	ProofHash   string      `json:"proof_hash"`
	Status      ClaimStatus `json:"status"`
	SubmittedAt time.Time   `json:"submitted_at"`
	VerifierID  *id.Address `json:"verifier_id,omitempty"`
	VerifiedAt  *time.Time  `json:"verified_at,omitempty"`
}

// NewClaim builds a pending claim submitted at now. The proof hash is opaque
// but must carry content.
func NewClaim(farmerID id.Address, proofHash string, now time.Time) (*Claim, error) {
	if strings.TrimSpace(proofHash) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidProofHash, "proof hash must not be empty")
	}
	return &Claim{
		FarmerID:    farmerID,
		ProofHash:   proofHash,
		Status:      StatusPending,
		SubmittedAt: now,
	}, nil
}

// CanVerify checks that the claim is still pending. Use with
// ApplyVerification inside a store's atomic execute callback.
func (c *Claim) CanVerify() error {
	if c.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeClaimNotPending, "claim is %s", c.Status)
	}
	return nil
}

// ApplyVerification transitions the claim to its terminal state. VerifierID
// and VerifiedAt are set in the same step so the pair is never half-written.
// Call CanVerify first to validate the transition.
func (c *Claim) ApplyVerification(verifierID id.Address, approve bool, now time.Time) {
	if approve {
		c.Status = StatusApproved
	} else {
		c.Status = StatusRejected
	}
	c.VerifierID = &verifierID
	c.VerifiedAt = &now
}

// Verify validates and applies the transition in one call. Prefer
// CanVerify + ApplyVerification when the store owns the lock.
func (c *Claim) Verify(verifierID id.Address, approve bool, now time.Time) error {
	if err := c.CanVerify(); err != nil {
		return err
	}
	c.ApplyVerification(verifierID, approve, now)
	return nil
}

// Clone returns a deep copy of the claim.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	out := *c
	if c.VerifierID != nil {
		v := *c.VerifierID
		out.VerifierID = &v
	}
	if c.VerifiedAt != nil {
		t := *c.VerifiedAt
		out.VerifiedAt = &t
	}
	return &out
}
