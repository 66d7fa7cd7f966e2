package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"agriproof/internal/registry/service"
	"agriproof/internal/registry/store"
	id "agriproof/pkg/domain"
	"agriproof/pkg/requestcontext"
)

// The handler suite runs against the real service on the in-memory store so
// routing, decoding, and error translation are exercised end to end.
type RegistryHandlerSuite struct {
	suite.Suite

	router chi.Router
	admin  id.Address
	now    time.Time
}

func TestRegistryHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistryHandlerSuite))
}

func (s *RegistryHandlerSuite) SetupTest() {
	mem := store.NewInMemory()
	svc := service.New(mem, mem)

	s.admin = id.MustAddress("A1")
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(svc.Initialize(context.Background(), s.admin))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func (s *RegistryHandlerSuite) do(method, path string, caller id.Address, body any) *httptest.ResponseRecorder {
	s.T().Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	ctx := requestcontext.WithTime(req.Context(), s.now)
	if !caller.IsZero() {
		ctx = requestcontext.WithCaller(ctx, caller)
	}
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RegistryHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	s.T().Helper()
	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *RegistryHandlerSuite) enrollFarmer(farmerID string, days int64) {
	s.T().Helper()
	w := s.do(http.MethodPost, "/registry/enrollments", id.MustAddress(farmerID),
		map[string]any{"deadline_days": days})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *RegistryHandlerSuite) TestEnroll() {
	// The enrolled farmer is the authenticated caller, not a body field.
	w := s.do(http.MethodPost, "/registry/enrollments", id.MustAddress("F1"),
		map[string]any{"deadline_days": 30})

	s.Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal("F1", body["farmer_id"])

	deadline, err := time.Parse(time.RFC3339, body["claim_deadline"].(string))
	s.Require().NoError(err)
	s.Equal(s.now.Add(30*24*time.Hour), deadline.UTC())
}

func (s *RegistryHandlerSuite) TestEnroll_Errors() {
	s.enrollFarmer("F1", 30)

	tests := []struct {
		name       string
		caller     id.Address
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "duplicate",
			caller:     id.MustAddress("F1"),
			body:       map[string]any{"deadline_days": 30},
			wantStatus: http.StatusConflict,
			wantCode:   "already_enrolled",
		},
		{
			name:       "negative deadline",
			caller:     id.MustAddress("F2"),
			body:       map[string]any{"deadline_days": -1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_deadline",
		},
		{
			name:       "zero deadline",
			caller:     id.MustAddress("F2"),
			body:       map[string]any{"deadline_days": 0},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_deadline",
		},
		{
			name:       "missing caller",
			caller:     "",
			body:       map[string]any{"deadline_days": 30},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/registry/enrollments", tt.caller, tt.body)
			s.Equal(tt.wantStatus, w.Code)
			s.Equal(tt.wantCode, s.decode(w)["error"])
		})
	}
}

func (s *RegistryHandlerSuite) TestSubmitClaim() {
	s.enrollFarmer("F1", 30)

	w := s.do(http.MethodPost, "/registry/claims", id.MustAddress("F1"),
		map[string]any{"proof_hash": "hash123"})

	s.Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal("F1", body["farmer_id"])
	s.Equal("hash123", body["proof_hash"])
	s.Equal("pending", body["status"])
	s.NotContains(body, "verifier_id")
}

func (s *RegistryHandlerSuite) TestSubmitClaim_Errors() {
	s.enrollFarmer("F1", 30)

	s.Run("not enrolled", func() {
		w := s.do(http.MethodPost, "/registry/claims", id.MustAddress("F9"),
			map[string]any{"proof_hash": "hash123"})
		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("not_enrolled", s.decode(w)["error"])
	})

	s.Run("empty proof hash", func() {
		w := s.do(http.MethodPost, "/registry/claims", id.MustAddress("F1"),
			map[string]any{"proof_hash": "  "})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("invalid_proof_hash", s.decode(w)["error"])
	})

	s.Run("duplicate", func() {
		w := s.do(http.MethodPost, "/registry/claims", id.MustAddress("F1"),
			map[string]any{"proof_hash": "hash123"})
		s.Require().Equal(http.StatusCreated, w.Code)

		w = s.do(http.MethodPost, "/registry/claims", id.MustAddress("F1"),
			map[string]any{"proof_hash": "hash456"})
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("duplicate_claim", s.decode(w)["error"])
	})
}

func (s *RegistryHandlerSuite) TestVerifyClaim() {
	s.enrollFarmer("F1", 30)
	w := s.do(http.MethodPost, "/registry/claims", id.MustAddress("F1"),
		map[string]any{"proof_hash": "hash123"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/registry/verifiers", s.admin,
		map[string]any{"verifier_id": "V1"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/registry/claims/F1/verify", id.MustAddress("V1"),
		map[string]any{"approve": true})
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("approved", body["status"])
	s.Equal("V1", body["verifier_id"])

	s.Run("second verification rejected", func() {
		w := s.do(http.MethodPost, "/registry/claims/F1/verify", id.MustAddress("V1"),
			map[string]any{"approve": false})
		s.Equal(http.StatusUnprocessableEntity, w.Code)
		s.Equal("claim_not_pending", s.decode(w)["error"])
	})

	s.Run("missing approve flag rejected", func() {
		w := s.do(http.MethodPost, "/registry/claims/F1/verify", id.MustAddress("V1"), map[string]any{})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("invalid_input", s.decode(w)["error"])
	})

	s.Run("non-verifier rejected", func() {
		w := s.do(http.MethodPost, "/registry/claims/F1/verify", id.MustAddress("F1"),
			map[string]any{"approve": true})
		s.Equal(http.StatusForbidden, w.Code)
		s.Equal("not_verifier", s.decode(w)["error"])
	})
}

func (s *RegistryHandlerSuite) TestVerifierLifecycle() {
	w := s.do(http.MethodPost, "/registry/verifiers", s.admin,
		map[string]any{"verifier_id": "V1"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/registry/verifiers/V1", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["is_verifier"])

	w = s.do(http.MethodDelete, "/registry/verifiers/V1", s.admin, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/registry/verifiers/V1", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["is_verifier"])

	w = s.do(http.MethodDelete, "/registry/verifiers/V1", s.admin, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("verifier_not_found", s.decode(w)["error"])
}

func (s *RegistryHandlerSuite) TestGetEndpoints() {
	s.enrollFarmer("F1", 30)

	s.Run("enrollment", func() {
		w := s.do(http.MethodGet, "/registry/enrollments/F1", "", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("F1", s.decode(w)["farmer_id"])

		w = s.do(http.MethodGet, "/registry/enrollments/F9", "", nil)
		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("enrollment_not_found", s.decode(w)["error"])
	})

	s.Run("claim not found", func() {
		w := s.do(http.MethodGet, "/registry/claims/F1", "", nil)
		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("claim_not_found", s.decode(w)["error"])
	})

	s.Run("admin", func() {
		w := s.do(http.MethodGet, "/registry/admin", "", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("A1", s.decode(w)["admin"])
	})
}

func (s *RegistryHandlerSuite) TestListClaims() {
	for _, farmer := range []string{"F1", "F2", "F3"} {
		s.enrollFarmer(farmer, 30)
		w := s.do(http.MethodPost, "/registry/claims", id.MustAddress(farmer),
			map[string]any{"proof_hash": "hash-" + farmer})
		s.Require().Equal(http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/registry/claims?offset=1&limit=1", "", nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	claims := body["claims"].([]any)
	s.Require().Len(claims, 1)
	s.Equal("F2", claims[0].(map[string]any)["farmer_id"])

	s.Run("bad offset", func() {
		w := s.do(http.MethodGet, "/registry/claims?offset=-1", "", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("non-numeric limit", func() {
		w := s.do(http.MethodGet, "/registry/claims?limit=abc", "", nil)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("bad_request", s.decode(w)["error"])
	})
}

func (s *RegistryHandlerSuite) TestExport() {
	s.enrollFarmer("F1", 30)
	w := s.do(http.MethodPost, "/registry/claims", id.MustAddress("F1"),
		map[string]any{"proof_hash": "hash123"})
	s.Require().Equal(http.StatusCreated, w.Code)
	w = s.do(http.MethodPost, "/registry/verifiers", s.admin,
		map[string]any{"verifier_id": "V1"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/registry/export", "", nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("A1", body["admin"])
	s.Len(body["verifiers"].([]any), 1)
	s.Len(body["enrollments"].([]any), 1)
	s.Len(body["claims"].([]any), 1)
}
