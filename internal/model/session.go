package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates exam session states.
type SessionState string

const (
	SessionStateCreated    SessionState = "CREATED"
	SessionStateActive     SessionState = "ACTIVE"
	SessionStateCompleted  SessionState = "COMPLETED"
	SessionStateTerminated SessionState = "TERMINATED"
	SessionStateExpired    SessionState = "EXPIRED"
)

// IsTerminal reports whether the state is absorbing. Sessions in a terminal
// state accept no further answers, heartbeats, or violations.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionStateCompleted, SessionStateTerminated, SessionStateExpired:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal step of the
// session state machine. Terminal states never transition.
func (s SessionState) CanTransition(next SessionState) bool {
	switch s {
	case SessionStateCreated:
		// A session that never starts can still expire or be terminated
		// by an operator-level decision; completion requires a start.
		return next == SessionStateActive || next == SessionStateExpired || next == SessionStateTerminated
	case SessionStateActive:
		return next.IsTerminal()
	}
	return false
}

// ExamSession represents one attempt by one user at one course's exam.
// DeadlineAt is stamped exactly once, at start, and is never recomputed
// from client-supplied time.
type ExamSession struct {
	ID                  uuid.UUID    `json:"id"`
	UserID              int          `json:"user_id"`
	CourseID            uuid.UUID    `json:"course_id"`
	State               SessionState `json:"state"`
	CreatedAt           time.Time    `json:"created_at"`
	StartedAt           *time.Time   `json:"started_at,omitempty"`
	DeadlineAt          *time.Time   `json:"deadline_at,omitempty"`
	DurationMinutes     int          `json:"duration_minutes"`
	TotalQuestions      int          `json:"total_questions"`
	PassingScorePercent float64      `json:"passing_score_percent"`
	AllowedAttempts     int          `json:"allowed_attempts"`
	AttemptNumber       int          `json:"attempt_number"`
	LastHeartbeatAt     *time.Time   `json:"last_heartbeat_at,omitempty"`
}

// Remaining returns the time left until the session deadline at the given
// instant, clamped to zero. A session that has not started has no deadline
// and reports zero.
func (s *ExamSession) Remaining(now time.Time) time.Duration {
	if s.DeadlineAt == nil {
		return 0
	}
	remaining := s.DeadlineAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpiredAt reports whether the deadline has elapsed at the given instant.
// Sessions without a deadline (never started) cannot expire by clock.
func (s *ExamSession) ExpiredAt(now time.Time) bool {
	return s.DeadlineAt != nil && !now.Before(*s.DeadlineAt)
}

// CreateSessionRequest is the payload for creating a new exam session.
type CreateSessionRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
}

// StartSessionRequest carries the client-reported environment at start.
type StartSessionRequest struct {
	ClientEnvironment ClientEnvironment `json:"client_environment"`
}

// ClientEnvironment is the self-reported state of the candidate's machine
// at session start. Advisory only: when a secure browser is verified, the
// camera/microphone/fullscreen requirements are treated as satisfied
// regardless of what the client reports here.
type ClientEnvironment struct {
	SecureBrowser bool   `json:"secure_browser"`
	CameraReady   bool   `json:"camera_ready"`
	MicReady      bool   `json:"mic_ready"`
	Fullscreen    bool   `json:"fullscreen"`
	UserAgent     string `json:"user_agent,omitempty"`
}

// HeartbeatResponse is returned on every heartbeat.
type HeartbeatResponse struct {
	State            SessionState `json:"state"`
	RemainingSeconds int64        `json:"remaining_seconds"`
	// TrustRecheckDue asks the client to re-assert its browser keys. A
	// re-assertion that no longer matches is recorded as a violation.
	TrustRecheckDue bool `json:"trust_recheck_due,omitempty"`
	// Result is present only when the heartbeat found the deadline elapsed
	// and the session was finalized in response.
	Result *ExamResult `json:"result,omitempty"`
}
