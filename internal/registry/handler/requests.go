package handler

import (
	"strings"

	id "agriproof/pkg/domain"
	dErrors "agriproof/pkg/domain-errors"
)

// EnrollRequest is the HTTP request body for POST /registry/enrollments.
// The farmer identity comes from the authenticated caller, not the body.
type EnrollRequest struct {
	DeadlineDays int64 `json:"deadline_days"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
// The deadline range is validated by the domain model so a zero or negative
// value classifies as invalid_deadline, not a decode failure.
func (r *EnrollRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// SubmitClaimRequest is the HTTP request body for POST /registry/claims.
type SubmitClaimRequest struct {
	ProofHash string `json:"proof_hash"`
}

// Validate validates the request.
func (r *SubmitClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.ProofHash) == "" {
		return dErrors.New(dErrors.CodeInvalidProofHash, "proof_hash is required")
	}
	return nil
}

// VerifyClaimRequest is the HTTP request body for
// POST /registry/claims/{farmerID}/verify.
type VerifyClaimRequest struct {
	Approve *bool `json:"approve"`
}

// Validate validates the request. The approve flag must be explicit; an
// absent field is not a rejection.
func (r *VerifyClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Approve == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "approve is required")
	}
	return nil
}

// AddVerifierRequest is the HTTP request body for POST /registry/verifiers.
type AddVerifierRequest struct {
	VerifierID string `json:"verifier_id"`

	parsedVerifierID id.Address
}

// Validate validates and parses the request.
func (r *AddVerifierRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.VerifierID = strings.TrimSpace(r.VerifierID)
	if r.VerifierID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "verifier_id is required")
	}
	verifierID, err := id.ParseAddress(r.VerifierID)
	if err != nil {
		return err
	}
	r.parsedVerifierID = verifierID

	return nil
}

// ParsedVerifierID returns the validated verifier address.
func (r *AddVerifierRequest) ParsedVerifierID() id.Address {
	return r.parsedVerifierID
}
