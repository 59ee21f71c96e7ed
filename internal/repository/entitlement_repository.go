package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntitlementRepository reads the payment platform's entitlement records.
// The engine consumes these rows, it never writes them: the checkout flow
// owns the table and inserts a row once payment is confirmed.
type EntitlementRepository struct {
	pool *pgxpool.Pool
}

// NewEntitlementRepository creates a new EntitlementRepository.
func NewEntitlementRepository(pool *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{pool: pool}
}

// IsEntitled reports whether the user has a confirmed entitlement for the
// course's exam and how many attempts they have used so far.
func (r *EntitlementRepository) IsEntitled(ctx context.Context, userID int, courseID uuid.UUID) (bool, int, error) {
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM exam_entitlements
		 WHERE user_id = $1 AND course_id = $2`, userID, courseID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, nil
		}
		return false, 0, err
	}
	if status != "PAID" {
		return false, 0, nil
	}

	var attemptsUsed int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions
		 WHERE user_id = $1 AND course_id = $2`, userID, courseID,
	).Scan(&attemptsUsed)
	if err != nil {
		return false, 0, err
	}

	return true, attemptsUsed, nil
}
