package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// SnapshotRepository persists the immutable per-session question snapshot.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Create bulk-inserts all snapshot rows for a session.
func (r *SnapshotRepository) Create(ctx context.Context, snap *model.QuestionSnapshot) error {
	rows := make([][]interface{}, 0, len(snap.Questions))
	for _, q := range snap.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		rows = append(rows, []interface{}{
			snap.SessionID, q.QuestionID, q.OrderNum, q.QuestionText,
			options, q.CorrectOption, q.Points,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"snapshot_questions"},
		[]string{"session_id", "question_id", "order_num", "question_text", "options", "correct_option", "points"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// GetBySession loads the ordered snapshot for a session.
func (r *SnapshotRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.QuestionSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sq.question_id, sq.order_num, sq.question_text, sq.options,
		        sq.correct_option, sq.points, es.course_id
		 FROM snapshot_questions sq
		 JOIN exam_sessions es ON es.id = sq.session_id
		 WHERE sq.session_id = $1
		 ORDER BY sq.order_num ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &model.QuestionSnapshot{SessionID: sessionID}
	for rows.Next() {
		var q model.SnapshotQuestion
		var options []byte
		if err := rows.Scan(&q.QuestionID, &q.OrderNum, &q.QuestionText, &options,
			&q.CorrectOption, &q.Points, &snap.CourseID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		snap.Questions = append(snap.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snap.Questions) == 0 {
		return nil, pgx.ErrNoRows
	}
	return snap, nil
}
