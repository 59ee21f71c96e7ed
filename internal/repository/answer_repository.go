package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// AnswerRepository handles answer record persistence.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert writes or replaces the answer for (session, question). The row with
// the latest submitted_at wins, so a requeued older write cannot roll back a
// newer one.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.AnswerRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answer_records (session_id, question_id, selected_option, time_spent_seconds, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, question_id)
		 DO UPDATE SET selected_option = EXCLUDED.selected_option,
		               time_spent_seconds = EXCLUDED.time_spent_seconds,
		               submitted_at = EXCLUDED.submitted_at
		 WHERE answer_records.submitted_at <= EXCLUDED.submitted_at`,
		a.SessionID, a.QuestionID, a.SelectedOption, a.TimeSpentSeconds, a.SubmittedAt)
	return err
}

// ListBySession returns all answers on record for a session.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, selected_option, time_spent_seconds, submitted_at
		 FROM answer_records
		 WHERE session_id = $1
		 ORDER BY submitted_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AnswerRecord
	for rows.Next() {
		var a model.AnswerRecord
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.SelectedOption,
			&a.TimeSpentSeconds, &a.SubmittedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// SelectedOptions returns question id -> selected option for scoring.
// Used as the PostgreSQL fallback when the Redis answer hash is gone.
func (r *AnswerRepository) SelectedOptions(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error) {
	answers, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	selected := make(map[uuid.UUID]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedOption
	}
	return selected, nil
}
