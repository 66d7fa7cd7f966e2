package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agriproof/internal/registry/models"
	id "agriproof/pkg/domain"
	"agriproof/pkg/platform/sentinel"
)

// Postgres is the authoritative registry store. It is pure I/O — role checks
// and lifecycle rules live in the service; the store only guarantees
// uniqueness and the atomicity of the one-time claim transition.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// schema is applied idempotently at startup. claims.position preserves
// insertion order for ListClaims.
const schema = `
CREATE TABLE IF NOT EXISTS registry_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS enrollments (
	farmer_id      TEXT PRIMARY KEY,
	enrolled_at    TIMESTAMPTZ NOT NULL,
	claim_deadline TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS claims (
	farmer_id    TEXT PRIMARY KEY,
	proof_hash   TEXT NOT NULL,
	status       TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	verifier_id  TEXT,
	verified_at  TIMESTAMPTZ,
	position     BIGSERIAL
);
CREATE TABLE IF NOT EXISTS verifiers (
	verifier_id TEXT PRIMARY KEY,
	added_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the registry tables if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

const adminKey = "admin"

func (s *Postgres) InitAdmin(ctx context.Context, admin id.Address) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, adminKey, admin.String())
	if err != nil {
		return fmt.Errorf("init admin: %w", err)
	}

	current, err := s.Admin(ctx)
	if err != nil {
		return err
	}
	if !current.Equal(admin) {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) Admin(ctx context.Context) (id.Address, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM registry_meta WHERE key = $1`, adminKey).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("get admin: %w", err)
	}
	return id.Address(value), nil
}

func (s *Postgres) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollments (farmer_id, enrolled_at, claim_deadline)
		VALUES ($1, $2, $3)
		ON CONFLICT (farmer_id) DO NOTHING
	`, enrollment.FarmerID.String(), enrollment.EnrolledAt, enrollment.ClaimDeadline)
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create enrollment rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) GetEnrollment(ctx context.Context, farmerID id.Address) (*models.Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT farmer_id, enrolled_at, claim_deadline
		FROM enrollments
		WHERE farmer_id = $1
	`, farmerID.String())

	enrollment, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return enrollment, nil
}

func (s *Postgres) ListEnrollments(ctx context.Context) ([]*models.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT farmer_id, enrolled_at, claim_deadline
		FROM enrollments
		ORDER BY enrolled_at, farmer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*models.Enrollment
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return out, nil
}

func (s *Postgres) CreateClaim(ctx context.Context, claim *models.Claim) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (farmer_id, proof_hash, status, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (farmer_id) DO NOTHING
	`, claim.FarmerID.String(), claim.ProofHash, claim.Status.String(), claim.SubmittedAt)
	if err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create claim rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) GetClaim(ctx context.Context, farmerID id.Address) (*models.Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT farmer_id, proof_hash, status, submitted_at, verifier_id, verified_at
		FROM claims
		WHERE farmer_id = $1
	`, farmerID.String())

	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

// MutateClaim locks the claim row (SELECT ... FOR UPDATE), runs
// validate-then-mutate, and writes the result in the same transaction. This
// prevents TOCTOU races on the one-time status transition: concurrent
// verifiers serialize on the row lock and the loser sees a terminal status.
func (s *Postgres) MutateClaim(
	ctx context.Context,
	farmerID id.Address,
	validate func(*models.Claim) error,
	mutate func(*models.Claim),
) (*models.Claim, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mutate claim: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT farmer_id, proof_hash, status, submitted_at, verifier_id, verified_at
		FROM claims
		WHERE farmer_id = $1
		FOR UPDATE
	`, farmerID.String())

	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock claim: %w", err)
	}

	if err := validate(claim); err != nil {
		return nil, err
	}
	mutate(claim)

	var verifierID sql.NullString
	if claim.VerifierID != nil {
		verifierID = sql.NullString{String: claim.VerifierID.String(), Valid: true}
	}
	var verifiedAt sql.NullTime
	if claim.VerifiedAt != nil {
		verifiedAt = sql.NullTime{Time: *claim.VerifiedAt, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE claims
		SET status = $2, verifier_id = $3, verified_at = $4
		WHERE farmer_id = $1
	`, claim.FarmerID.String(), claim.Status.String(), verifierID, verifiedAt); err != nil {
		return nil, fmt.Errorf("update claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutate claim: %w", err)
	}
	return claim, nil
}

func (s *Postgres) ListClaims(ctx context.Context, offset, limit int) ([]*models.Claim, error) {
	query := `
		SELECT farmer_id, proof_hash, status, submitted_at, verifier_id, verified_at
		FROM claims
		ORDER BY position
		OFFSET $1
	`
	args := []any{offset}
	if limit >= 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	claims := []*models.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

func (s *Postgres) AddVerifier(ctx context.Context, verifierID id.Address) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO verifiers (verifier_id) VALUES ($1)
		ON CONFLICT (verifier_id) DO NOTHING
	`, verifierID.String())
	if err != nil {
		return fmt.Errorf("add verifier: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add verifier rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) RemoveVerifier(ctx context.Context, verifierID id.Address) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM verifiers WHERE verifier_id = $1`, verifierID.String())
	if err != nil {
		return fmt.Errorf("remove verifier: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove verifier rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) IsVerifier(ctx context.Context, verifierID id.Address) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM verifiers WHERE verifier_id = $1)`,
		verifierID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is verifier: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListVerifiers(ctx context.Context) ([]id.Address, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT verifier_id FROM verifiers ORDER BY verifier_id`)
	if err != nil {
		return nil, fmt.Errorf("list verifiers: %w", err)
	}
	defer rows.Close()

	var out []id.Address
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan verifier: %w", err)
		}
		out = append(out, id.Address(v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifiers: %w", err)
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEnrollment(row scannable) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	var farmerID string
	if err := row.Scan(&farmerID, &enrollment.EnrolledAt, &enrollment.ClaimDeadline); err != nil {
		return nil, err
	}
	enrollment.FarmerID = id.Address(farmerID)
	return &enrollment, nil
}

func scanClaim(row scannable) (*models.Claim, error) {
	var claim models.Claim
	var farmerID, status string
	var verifierID sql.NullString
	var verifiedAt sql.NullTime
	if err := row.Scan(&farmerID, &claim.ProofHash, &status, &claim.SubmittedAt, &verifierID, &verifiedAt); err != nil {
		return nil, err
	}
	claim.FarmerID = id.Address(farmerID)

	parsed, err := models.ParseClaimStatus(status)
	if err != nil {
		return nil, err
	}
	claim.Status = parsed

	if verifierID.Valid {
		v := id.Address(verifierID.String)
		claim.VerifierID = &v
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		claim.VerifiedAt = &t
	}
	return &claim, nil
}
