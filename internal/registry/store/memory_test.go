package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agriproof/internal/registry/models"
	id "agriproof/pkg/domain"
	"agriproof/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) newEnrollment(farmer string) *models.Enrollment {
	e, err := models.NewEnrollment(id.MustAddress(farmer), 30, s.now)
	s.Require().NoError(err)
	return e
}

func (s *InMemoryStoreSuite) newClaim(farmer, hash string) *models.Claim {
	c, err := models.NewClaim(id.MustAddress(farmer), hash, s.now)
	s.Require().NoError(err)
	return c
}

func (s *InMemoryStoreSuite) TestAdminSetOnce() {
	s.Run("unset admin is not found", func() {
		_, err := s.store.Admin(s.ctx)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("first init wins", func() {
		s.Require().NoError(s.store.InitAdmin(s.ctx, id.MustAddress("A1")))
		admin, err := s.store.Admin(s.ctx)
		s.Require().NoError(err)
		s.Equal(id.MustAddress("A1"), admin)
	})

	s.Run("re-init with same identity is a no-op", func() {
		s.Require().NoError(s.store.InitAdmin(s.ctx, id.MustAddress("A1")))
	})

	s.Run("re-init with different identity conflicts", func() {
		err := s.store.InitAdmin(s.ctx, id.MustAddress("A2"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		admin, err := s.store.Admin(s.ctx)
		s.Require().NoError(err)
		s.Equal(id.MustAddress("A1"), admin, "admin unchanged after rejected init")
	})
}

func (s *InMemoryStoreSuite) TestEnrollments() {
	s.Run("creates and finds enrollment", func() {
		e := s.newEnrollment("F1")
		s.Require().NoError(s.store.CreateEnrollment(s.ctx, e))

		found, err := s.store.GetEnrollment(s.ctx, id.MustAddress("F1"))
		s.Require().NoError(err)
		s.Equal(e, found)
	})

	s.Run("rejects duplicate enrollment", func() {
		err := s.store.CreateEnrollment(s.ctx, s.newEnrollment("F1"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown farmer", func() {
		_, err := s.store.GetEnrollment(s.ctx, id.MustAddress("F9"))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("handed-out records do not alias store state", func() {
		found, err := s.store.GetEnrollment(s.ctx, id.MustAddress("F1"))
		s.Require().NoError(err)
		found.ClaimDeadline = found.ClaimDeadline.Add(time.Hour)

		again, err := s.store.GetEnrollment(s.ctx, id.MustAddress("F1"))
		s.Require().NoError(err)
		s.NotEqual(found.ClaimDeadline, again.ClaimDeadline)
	})
}

func (s *InMemoryStoreSuite) TestClaims() {
	s.Run("creates and finds claim", func() {
		c := s.newClaim("F1", "hash123")
		s.Require().NoError(s.store.CreateClaim(s.ctx, c))

		found, err := s.store.GetClaim(s.ctx, id.MustAddress("F1"))
		s.Require().NoError(err)
		s.Equal(c, found)
	})

	s.Run("rejects duplicate claim", func() {
		err := s.store.CreateClaim(s.ctx, s.newClaim("F1", "other"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown claim", func() {
		_, err := s.store.GetClaim(s.ctx, id.MustAddress("F9"))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestMutateClaim() {
	s.Require().NoError(s.store.CreateClaim(s.ctx, s.newClaim("F1", "hash123")))
	verifier := id.MustAddress("V1")
	verifiedAt := s.now.Add(time.Hour)

	s.Run("validate failure leaves claim untouched", func() {
		_, err := s.store.MutateClaim(s.ctx, id.MustAddress("F1"),
			func(*models.Claim) error { return sentinel.ErrInvalidState },
			func(c *models.Claim) { c.ApplyVerification(verifier, true, verifiedAt) },
		)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.GetClaim(s.ctx, id.MustAddress("F1"))
		s.Require().NoError(err)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("mutation persists atomically", func() {
		updated, err := s.store.MutateClaim(s.ctx, id.MustAddress("F1"),
			func(c *models.Claim) error { return c.CanVerify() },
			func(c *models.Claim) { c.ApplyVerification(verifier, true, verifiedAt) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, updated.Status)

		found, err := s.store.GetClaim(s.ctx, id.MustAddress("F1"))
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, found.Status)
		s.Require().NotNil(found.VerifierID)
		s.Require().NotNil(found.VerifiedAt)
	})

	s.Run("unknown claim is not found", func() {
		_, err := s.store.MutateClaim(s.ctx, id.MustAddress("F9"),
			func(c *models.Claim) error { return c.CanVerify() },
			func(c *models.Claim) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestListClaims() {
	for _, farmer := range []string{"F1", "F2", "F3", "F4", "F5"} {
		s.Require().NoError(s.store.CreateClaim(s.ctx, s.newClaim(farmer, "hash-"+farmer)))
	}

	s.Run("enumerates in insertion order", func() {
		claims, err := s.store.ListClaims(s.ctx, 0, -1)
		s.Require().NoError(err)
		s.Require().Len(claims, 5)
		for i, farmer := range []string{"F1", "F2", "F3", "F4", "F5"} {
			s.Equal(id.MustAddress(farmer), claims[i].FarmerID)
		}
	})

	s.Run("applies offset and limit", func() {
		claims, err := s.store.ListClaims(s.ctx, 1, 2)
		s.Require().NoError(err)
		s.Require().Len(claims, 2)
		s.Equal(id.MustAddress("F2"), claims[0].FarmerID)
		s.Equal(id.MustAddress("F3"), claims[1].FarmerID)
	})

	s.Run("returns short page at the end", func() {
		claims, err := s.store.ListClaims(s.ctx, 4, 10)
		s.Require().NoError(err)
		s.Require().Len(claims, 1)
	})

	s.Run("offset beyond collection returns empty", func() {
		claims, err := s.store.ListClaims(s.ctx, 99, 10)
		s.Require().NoError(err)
		s.Empty(claims)
	})
}

func (s *InMemoryStoreSuite) TestVerifierSet() {
	v := id.MustAddress("V1")

	s.Run("membership round-trip", func() {
		ok, err := s.store.IsVerifier(s.ctx, v)
		s.Require().NoError(err)
		s.False(ok)

		s.Require().NoError(s.store.AddVerifier(s.ctx, v))
		ok, err = s.store.IsVerifier(s.ctx, v)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("duplicate add conflicts", func() {
		s.Require().ErrorIs(s.store.AddVerifier(s.ctx, v), sentinel.ErrConflict)
	})

	s.Run("remove then absent", func() {
		s.Require().NoError(s.store.RemoveVerifier(s.ctx, v))
		ok, err := s.store.IsVerifier(s.ctx, v)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("removing unknown verifier is not found", func() {
		s.Require().ErrorIs(s.store.RemoveVerifier(s.ctx, v), sentinel.ErrNotFound)
	})

	s.Run("list is sorted", func() {
		s.Require().NoError(s.store.AddVerifier(s.ctx, id.MustAddress("V3")))
		s.Require().NoError(s.store.AddVerifier(s.ctx, id.MustAddress("V2")))
		verifiers, err := s.store.ListVerifiers(s.ctx)
		s.Require().NoError(err)
		s.Equal([]id.Address{"V2", "V3"}, verifiers)
	})
}
