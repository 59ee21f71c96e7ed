package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// SessionRepository handles exam session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, course_id, state, created_at, started_at, deadline_at,
	duration_minutes, total_questions, passing_score_percent, allowed_attempts,
	attempt_number, last_heartbeat_at`

func scanSession(row interface{ Scan(...any) error }) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(&s.ID, &s.UserID, &s.CourseID, &s.State, &s.CreatedAt, &s.StartedAt,
		&s.DeadlineAt, &s.DurationMinutes, &s.TotalQuestions, &s.PassingScorePercent,
		&s.AllowedAttempts, &s.AttemptNumber, &s.LastHeartbeatAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new session in CREATED state together with its quit
// password hash.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession, quitPasswordHash string) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions
		   (user_id, course_id, state, duration_minutes, total_questions,
		    passing_score_percent, allowed_attempts, attempt_number, quit_password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		s.UserID, s.CourseID, model.SessionStateCreated, s.DurationMinutes,
		s.TotalQuestions, s.PassingScorePercent, s.AllowedAttempts, s.AttemptNumber,
		quitPasswordHash,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// Start stamps started_at and deadline_at and moves the session to ACTIVE.
// The WHERE clause makes the deadline write once-only: a second start call
// matches no row and reports applied=false.
func (r *SessionRepository) Start(ctx context.Context, id uuid.UUID, startedAt, deadlineAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET state = $1, started_at = $2, deadline_at = $3
		 WHERE id = $4 AND state = $5 AND started_at IS NULL`,
		model.SessionStateActive, startedAt, deadlineAt, id, model.SessionStateCreated)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// TransitionTerminal moves a session into the given terminal state. Only
// non-terminal sessions match, so terminal states are absorbing: a second
// transition reports applied=false and changes nothing.
func (r *SessionRepository) TransitionTerminal(ctx context.Context, id uuid.UUID, terminal model.SessionState) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET state = $1
		 WHERE id = $2 AND state IN ($3, $4)`,
		terminal, id, model.SessionStateCreated, model.SessionStateActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateHeartbeat records the latest liveness signal.
func (r *SessionRepository) UpdateHeartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET last_heartbeat_at = $1 WHERE id = $2`, at, id)
	return err
}

// CountByUserAndCourse returns how many attempts a user has on record for a
// course, used to number the next attempt.
func (r *SessionRepository) CountByUserAndCourse(ctx context.Context, userID int, courseID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE user_id = $1 AND course_id = $2`,
		userID, courseID).Scan(&count)
	return count, err
}

// GetQuitPasswordHash retrieves the stored quit password hash for a session.
func (r *SessionRepository) GetQuitPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx,
		`SELECT quit_password_hash FROM exam_sessions WHERE id = $1`, id).Scan(&hash)
	return hash, err
}

// ListOverdue returns ACTIVE sessions whose deadline has elapsed. Used by
// the expiry sweeper so sessions that go silent are still finalized promptly.
func (r *SessionRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE state = $1 AND deadline_at <= $2
		 ORDER BY deadline_at ASC
		 LIMIT $3`,
		model.SessionStateActive, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListSilent returns ACTIVE sessions whose last heartbeat is older than the
// cutoff (and that have heartbeated at least once). The sweeper turns these
// into connectivity-loss signals.
func (r *SessionRepository) ListSilent(ctx context.Context, cutoff time.Time, limit int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE state = $1 AND last_heartbeat_at IS NOT NULL AND last_heartbeat_at < $2
		 ORDER BY last_heartbeat_at ASC
		 LIMIT $3`,
		model.SessionStateActive, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
