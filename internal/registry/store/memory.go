package store

import (
	"context"
	"sort"
	"sync"

	"agriproof/internal/registry/models"
	id "agriproof/pkg/domain"
	"agriproof/pkg/platform/sentinel"
)

// InMemory keeps the four registry collections (admin, verifiers,
// enrollments, claims) behind a single mutex. Write volume is low and every
// operation touches at most one record, so one lock is enough; this is also
// the offline/demo deployment target.
//
// Claims remember insertion order so ListClaims enumerates deterministically.
type InMemory struct {
	mu          sync.RWMutex
	admin       id.Address
	adminSet    bool
	verifiers   map[id.Address]struct{}
	enrollments map[id.Address]*models.Enrollment
	claims      map[id.Address]*models.Claim
	claimOrder  []id.Address
}

// NewInMemory creates an empty in-memory registry store.
func NewInMemory() *InMemory {
	return &InMemory{
		verifiers:   make(map[id.Address]struct{}),
		enrollments: make(map[id.Address]*models.Enrollment),
		claims:      make(map[id.Address]*models.Claim),
	}
}

// InitAdmin records the admin identity. Set-once: re-initializing with the
// same identity is a no-op, a different identity is a conflict.
func (s *InMemory) InitAdmin(_ context.Context, admin id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adminSet {
		if s.admin.Equal(admin) {
			return nil
		}
		return sentinel.ErrConflict
	}
	s.admin = admin
	s.adminSet = true
	return nil
}

// Admin returns the registry admin, or ErrNotFound before initialization.
func (s *InMemory) Admin(_ context.Context) (id.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.adminSet {
		return "", sentinel.ErrNotFound
	}
	return s.admin, nil
}

func (s *InMemory) CreateEnrollment(_ context.Context, enrollment *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.enrollments[enrollment.FarmerID]; exists {
		return sentinel.ErrConflict
	}
	s.enrollments[enrollment.FarmerID] = enrollment.Clone()
	return nil
}

func (s *InMemory) GetEnrollment(_ context.Context, farmerID id.Address) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enrollment, ok := s.enrollments[farmerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return enrollment.Clone(), nil
}

func (s *InMemory) ListEnrollments(_ context.Context) ([]*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].FarmerID < out[j].FarmerID
		}
		return out[i].EnrolledAt.Before(out[j].EnrolledAt)
	})
	return out, nil
}

func (s *InMemory) CreateClaim(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[claim.FarmerID]; exists {
		return sentinel.ErrConflict
	}
	s.claims[claim.FarmerID] = claim.Clone()
	s.claimOrder = append(s.claimOrder, claim.FarmerID)
	return nil
}

func (s *InMemory) GetClaim(_ context.Context, farmerID id.Address) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[farmerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return claim.Clone(), nil
}

// MutateClaim runs validate-then-mutate on the stored claim while holding the
// store lock, so the one-time status transition cannot race. Either both
// callbacks succeed and the stored claim is updated, or nothing changes.
func (s *InMemory) MutateClaim(
	_ context.Context,
	farmerID id.Address,
	validate func(*models.Claim) error,
	mutate func(*models.Claim),
) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[farmerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(claim); err != nil {
		return nil, err
	}
	mutate(claim)
	return claim.Clone(), nil
}

// ListClaims returns claims in insertion order, skipping offset and returning
// at most limit items. limit < 0 returns the remainder; an offset beyond the
// collection returns an empty slice.
func (s *InMemory) ListClaims(_ context.Context, offset, limit int) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.claimOrder) {
		return []*models.Claim{}, nil
	}
	ids := s.claimOrder[offset:]
	if limit >= 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]*models.Claim, 0, len(ids))
	for _, farmerID := range ids {
		out = append(out, s.claims[farmerID].Clone())
	}
	return out, nil
}

func (s *InMemory) AddVerifier(_ context.Context, verifierID id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.verifiers[verifierID]; exists {
		return sentinel.ErrConflict
	}
	s.verifiers[verifierID] = struct{}{}
	return nil
}

func (s *InMemory) RemoveVerifier(_ context.Context, verifierID id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.verifiers[verifierID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.verifiers, verifierID)
	return nil
}

func (s *InMemory) IsVerifier(_ context.Context, verifierID id.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.verifiers[verifierID]
	return ok, nil
}

func (s *InMemory) ListVerifiers(_ context.Context) ([]id.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.Address, 0, len(s.verifiers))
	for v := range s.verifiers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
