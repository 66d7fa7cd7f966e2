package handler

import (
	"time"

	"agriproof/internal/registry/models"
	"agriproof/internal/registry/service"
)

// EnrollmentResponse is the HTTP representation of an enrollment.
type EnrollmentResponse struct {
	FarmerID      string    `json:"farmer_id"`
	EnrolledAt    time.Time `json:"enrolled_at"`
	ClaimDeadline time.Time `json:"claim_deadline"`
}

// FromEnrollment converts a domain enrollment to an HTTP response.
func FromEnrollment(e *models.Enrollment) *EnrollmentResponse {
	return &EnrollmentResponse{
		FarmerID:      e.FarmerID.String(),
		EnrolledAt:    e.EnrolledAt,
		ClaimDeadline: e.ClaimDeadline,
	}
}

// ClaimResponse is the HTTP representation of a claim.
type ClaimResponse struct {
	FarmerID    string     `json:"farmer_id"`
	ProofHash   string     `json:"proof_hash"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	VerifierID  *string    `json:"verifier_id,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
}

// FromClaim converts a domain claim to an HTTP response.
func FromClaim(c *models.Claim) *ClaimResponse {
	resp := &ClaimResponse{
		FarmerID:    c.FarmerID.String(),
		ProofHash:   c.ProofHash,
		Status:      c.Status.String(),
		SubmittedAt: c.SubmittedAt,
		VerifiedAt:  c.VerifiedAt,
	}
	if c.VerifierID != nil {
		v := c.VerifierID.String()
		resp.VerifierID = &v
	}
	return resp
}

// ListClaimsResponse is the HTTP response for GET /registry/claims.
type ListClaimsResponse struct {
	Claims []*ClaimResponse `json:"claims"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

// FromClaims converts a claim page to an HTTP response.
func FromClaims(claims []*models.Claim, offset, limit int) *ListClaimsResponse {
	out := make([]*ClaimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, FromClaim(c))
	}
	return &ListClaimsResponse{Claims: out, Offset: offset, Limit: limit}
}

// VerifierStatusResponse is the HTTP response for GET /registry/verifiers/{id}.
type VerifierStatusResponse struct {
	VerifierID string `json:"verifier_id"`
	IsVerifier bool   `json:"is_verifier"`
}

// AdminResponse is the HTTP response for GET /registry/admin.
type AdminResponse struct {
	Admin string `json:"admin"`
}

// ExportResponse is the HTTP response for GET /registry/export.
type ExportResponse struct {
	Admin       string                `json:"admin"`
	Verifiers   []string              `json:"verifiers"`
	Enrollments []*EnrollmentResponse `json:"enrollments"`
	Claims      []*ClaimResponse      `json:"claims"`
}

// FromSnapshot converts a registry snapshot to an HTTP response.
func FromSnapshot(s *service.Snapshot) *ExportResponse {
	resp := &ExportResponse{
		Admin:       s.Admin.String(),
		Verifiers:   make([]string, 0, len(s.Verifiers)),
		Enrollments: make([]*EnrollmentResponse, 0, len(s.Enrollments)),
		Claims:      make([]*ClaimResponse, 0, len(s.Claims)),
	}
	for _, v := range s.Verifiers {
		resp.Verifiers = append(resp.Verifiers, v.String())
	}
	for _, e := range s.Enrollments {
		resp.Enrollments = append(resp.Enrollments, FromEnrollment(e))
	}
	for _, c := range s.Claims {
		resp.Claims = append(resp.Claims, FromClaim(c))
	}
	return resp
}
