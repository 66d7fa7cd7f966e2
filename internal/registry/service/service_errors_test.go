package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"agriproof/internal/registry/service/mocks"
	dErrors "agriproof/pkg/domain-errors"
	"agriproof/pkg/platform/sentinel"
)

// Store failures must surface as internal_error, not leak raw driver errors
// or get misreported as precondition failures.
func TestStoreFailuresSurfaceAsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := mocks.NewMockStore(ctrl)
	verifierMock := mocks.NewMockVerifierStore(ctrl)
	svc := New(storeMock, verifierMock)

	boom := errors.New("connection reset by peer")

	t.Run("enroll creation", func(t *testing.T) {
		storeMock.EXPECT().CreateEnrollment(gomock.Any(), gomock.Any()).Return(boom)

		_, err := svc.Enroll(as(farmer, t0), 30)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("submit claim enrollment lookup", func(t *testing.T) {
		storeMock.EXPECT().GetEnrollment(gomock.Any(), farmer).Return(nil, boom)

		_, err := svc.SubmitClaim(as(farmer, t0), "hash123")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("verify claim membership check", func(t *testing.T) {
		verifierMock.EXPECT().IsVerifier(gomock.Any(), verifier).Return(false, boom)

		_, err := svc.VerifyClaim(as(verifier, t0), farmer, true)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("list claims", func(t *testing.T) {
		storeMock.EXPECT().ListClaims(gomock.Any(), 0, DefaultPageSize).Return(nil, boom)

		_, err := svc.ListClaims(context.Background(), 0, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("export aborts on any failure", func(t *testing.T) {
		storeMock.EXPECT().Admin(gomock.Any()).Return(admin, nil)
		storeMock.EXPECT().ListEnrollments(gomock.Any()).Return(nil, nil)
		storeMock.EXPECT().ListClaims(gomock.Any(), 0, -1).Return(nil, nil)
		verifierMock.EXPECT().ListVerifiers(gomock.Any()).Return(nil, boom)

		_, err := svc.Export(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// ListClaims clamps the page size before hitting the store.
func TestListClaimsClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := mocks.NewMockStore(ctrl)
	svc := New(storeMock, mocks.NewMockVerifierStore(ctrl))

	storeMock.EXPECT().ListClaims(gomock.Any(), 0, MaxPageSize).Return(nil, nil)

	_, err := svc.ListClaims(context.Background(), 0, MaxPageSize+1)
	require.NoError(t, err)
}

// A verifier-set race between the membership check and the conflict from the
// store is reported with the registry code, not the raw sentinel.
func TestAddVerifierConflictTranslated(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := mocks.NewMockStore(ctrl)
	verifierMock := mocks.NewMockVerifierStore(ctrl)
	svc := New(storeMock, verifierMock)

	storeMock.EXPECT().Admin(gomock.Any()).Return(admin, nil)
	verifierMock.EXPECT().AddVerifier(gomock.Any(), verifier).Return(sentinel.ErrConflict)

	err := svc.AddVerifier(as(admin, t0), verifier)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeVerifierExists))
}
