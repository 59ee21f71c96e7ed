package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// ResultRepository persists immutable exam results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert stores a result if none exists yet for the session. Returns
// inserted=false when a concurrent or earlier finalize already won; callers
// must then read back the stored row instead of using their own computation.
func (r *ResultRepository) Insert(ctx context.Context, res *model.ExamResult) (bool, error) {
	violations, err := json.Marshal(res.Violations)
	if err != nil {
		return false, fmt.Errorf("marshal violation summary: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO exam_results
		   (session_id, user_id, course_id, correct_count, total_questions,
		    score_percent, passed, reason, violations, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO NOTHING`,
		res.SessionID, res.UserID, res.CourseID, res.CorrectCount, res.TotalQuestions,
		res.ScorePercent, res.Passed, res.Reason, violations, res.FinalizedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Get retrieves the stored result for a session.
func (r *ResultRepository) Get(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	var violations []byte
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, user_id, course_id, correct_count, total_questions,
		        score_percent, passed, reason, violations, finalized_at
		 FROM exam_results
		 WHERE session_id = $1`, sessionID,
	).Scan(&res.SessionID, &res.UserID, &res.CourseID, &res.CorrectCount,
		&res.TotalQuestions, &res.ScorePercent, &res.Passed, &res.Reason,
		&violations, &res.FinalizedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(violations, &res.Violations); err != nil {
		return nil, fmt.Errorf("unmarshal violation summary: %w", err)
	}
	return res, nil
}
