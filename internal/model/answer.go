package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord maps a (session, question) pair to the selected option.
// Unique per (SessionID, QuestionID); the last write for a question wins.
// Insertion order is irrelevant for scoring but kept for audit via
// SubmittedAt.
type AnswerRecord struct {
	SessionID        uuid.UUID `json:"session_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedOption   int       `json:"selected_option"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// SubmitAnswerRequest is the payload for submitting one answer.
type SubmitAnswerRequest struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption   int       `json:"selected_option" binding:"min=0"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"min=0"`
}
