package model

import (
	"time"

	"github.com/google/uuid"
)

// FinalizeReason tags why a session reached its terminal state.
type FinalizeReason string

const (
	ReasonUserSubmit         FinalizeReason = "user-submit"
	ReasonTimeExpired        FinalizeReason = "time-expired"
	ReasonSecurityTerminated FinalizeReason = "security-terminated"
)

// TerminalState maps a finalize reason to the session state it produces.
func (r FinalizeReason) TerminalState() SessionState {
	switch r {
	case ReasonTimeExpired:
		return SessionStateExpired
	case ReasonSecurityTerminated:
		return SessionStateTerminated
	default:
		return SessionStateCompleted
	}
}

// ExamResult is the immutable outcome of a finalized session. Computed
// exactly once; repeated finalize calls return the stored row unchanged.
type ExamResult struct {
	SessionID      uuid.UUID      `json:"session_id"`
	UserID         int            `json:"user_id"`
	CourseID       uuid.UUID      `json:"course_id"`
	CorrectCount   int            `json:"correct_count"`
	TotalQuestions int            `json:"total_questions"`
	ScorePercent   float64        `json:"score_percent"`
	Passed         bool           `json:"passed"`
	Reason         FinalizeReason `json:"reason"`
	Violations     ViolationTally `json:"violations"`
	FinalizedAt    time.Time      `json:"finalized_at"`
}

// FinalizeRequest is the payload for an explicit finalize call.
type FinalizeRequest struct {
	Reason FinalizeReason `json:"reason" binding:"omitempty,oneof=user-submit time-expired security-terminated"`
}
