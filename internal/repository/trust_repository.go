package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// TrustRepository persists secure-browser trust assertions.
type TrustRepository struct {
	pool *pgxpool.Pool
}

// NewTrustRepository creates a new TrustRepository.
func NewTrustRepository(pool *pgxpool.Pool) *TrustRepository {
	return &TrustRepository{pool: pool}
}

// CreateExpected seeds the assertion row with the session's expected
// configuration key and the exported secure-browser config document at
// session creation time, before any client claim.
func (r *TrustRepository) CreateExpected(ctx context.Context, sessionID uuid.UUID, expectedConfigKey string, configDocument []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trust_assertions (session_id, expected_config_key, config_document, verified)
		 VALUES ($1, $2, $3, false)`,
		sessionID, expectedConfigKey, configDocument)
	return err
}

// GetDocument loads the exported secure-browser config document.
func (r *TrustRepository) GetDocument(ctx context.Context, sessionID uuid.UUID) ([]byte, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT config_document FROM trust_assertions WHERE session_id = $1`, sessionID,
	).Scan(&doc)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get loads the trust assertion for a session.
func (r *TrustRepository) Get(ctx context.Context, sessionID uuid.UUID) (*model.TrustAssertion, error) {
	t := &model.TrustAssertion{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, expected_config_key, asserted_config_key, asserted_exam_key,
		        verified, discrepancies, verified_at
		 FROM trust_assertions
		 WHERE session_id = $1`, sessionID,
	).Scan(&t.SessionID, &t.ExpectedConfigKey, &t.AssertedConfigKey, &t.AssertedExamKey,
		&t.Verified, &t.Discrepancies, &t.VerifiedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// RecordOutcome stores the result of one verification round.
func (r *TrustRepository) RecordOutcome(ctx context.Context, sessionID uuid.UUID, assertedConfigKey, assertedExamKey string, verified bool, discrepancies []string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trust_assertions
		 SET asserted_config_key = $1, asserted_exam_key = $2, verified = $3,
		     discrepancies = $4, verified_at = $5
		 WHERE session_id = $6`,
		assertedConfigKey, assertedExamKey, verified, discrepancies, at, sessionID)
	return err
}
