package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	base := New(CodeDeadlinePassed, "submission window closed")

	assert.True(t, HasCode(base, CodeDeadlinePassed))
	assert.False(t, HasCode(base, CodeNotEnrolled))

	wrapped := Wrap(base, CodeInternal, "submit claim")
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.True(t, HasCode(wrapped, CodeDeadlinePassed))

	stdWrapped := fmt.Errorf("handler: %w", base)
	assert.True(t, HasCode(stdWrapped, CodeDeadlinePassed))

	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotVerifier, CodeOf(New(CodeNotVerifier, "caller is not a verifier")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	// Outermost code wins.
	inner := New(CodeClaimNotFound, "no claim")
	outer := Wrap(inner, CodeInternal, "lookup")
	assert.Equal(t, CodeInternal, CodeOf(outer))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeAlreadyEnrolled, http.StatusConflict},
		{CodeDuplicateClaim, http.StatusConflict},
		{CodeVerifierExists, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeInvalidDeadline, http.StatusBadRequest},
		{CodeInvalidProofHash, http.StatusBadRequest},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeInvariantViolation, http.StatusBadRequest},
		{CodeNotEnrolled, http.StatusNotFound},
		{CodeClaimNotFound, http.StatusNotFound},
		{CodeVerifierNotFound, http.StatusNotFound},
		{CodeEnrollmentNotFound, http.StatusNotFound},
		{CodeNotFound, http.StatusNotFound},
		{CodeDeadlinePassed, http.StatusUnprocessableEntity},
		{CodeClaimNotPending, http.StatusUnprocessableEntity},
		{CodeNotAdmin, http.StatusForbidden},
		{CodeNotVerifier, http.StatusForbidden},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(New(tt.code, "x")))
		})
	}

	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	err := Wrap(errors.New("connection reset"), CodeInternal, "list claims")
	require.EqualError(t, err, "internal_error: list claims: connection reset")

	bare := New(CodeNotAdmin, "caller is not the admin")
	require.EqualError(t, bare, "not_admin: caller is not the admin")
}
