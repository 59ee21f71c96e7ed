package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// CourseExamSettings is the slice of course metadata the engine needs to
// parameterize a session. The rest of the course record belongs to the
// catalog and stays out of scope.
type CourseExamSettings struct {
	CourseID            uuid.UUID
	DurationMinutes     int
	PassingScorePercent float64
	AllowedAttempts     int
}

// CourseRepository reads the catalog's course and question tables. Like the
// entitlement table, these rows are owned by the outer platform.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetExamSettings loads the exam parameters for a course.
func (r *CourseRepository) GetExamSettings(ctx context.Context, courseID uuid.UUID) (*CourseExamSettings, error) {
	s := &CourseExamSettings{CourseID: courseID}
	err := r.pool.QueryRow(ctx,
		`SELECT exam_duration_minutes, passing_score_percent, allowed_attempts
		 FROM courses
		 WHERE id = $1`, courseID,
	).Scan(&s.DurationMinutes, &s.PassingScorePercent, &s.AllowedAttempts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the ordered, fixed question set for a course, ready to be
// bound to a session. The snapshot is taken once at session creation; later
// question-bank edits never reach a bound session.
func (r *CourseRepository) Snapshot(ctx context.Context, courseID uuid.UUID) (*model.QuestionSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_text, options, correct_option, points, order_num
		 FROM questions
		 WHERE course_id = $1
		 ORDER BY order_num ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &model.QuestionSnapshot{CourseID: courseID}
	for rows.Next() {
		var q model.SnapshotQuestion
		var options []byte
		if err := rows.Scan(&q.QuestionID, &q.QuestionText, &options,
			&q.CorrectOption, &q.Points, &q.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		snap.Questions = append(snap.Questions, q)
	}
	return snap, rows.Err()
}
