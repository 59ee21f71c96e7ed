package service

import (
	"math"

	"github.com/google/uuid"
)

// ScoreSheet is the server-side grading material derived from a session's
// question snapshot. It is cached in Redis at start and never leaves the
// server.
type ScoreSheet struct {
	AnswerKey    map[uuid.UUID]int `json:"answer_key"`
	OptionCounts map[uuid.UUID]int `json:"option_counts"`
	Total        int               `json:"total"`
}

// HasQuestion reports whether qid is part of the bound snapshot.
func (s *ScoreSheet) HasQuestion(qid uuid.UUID) bool {
	_, ok := s.AnswerKey[qid]
	return ok
}

// ValidOption reports whether the option index is in range for the question.
func (s *ScoreSheet) ValidOption(qid uuid.UUID, option int) bool {
	count, ok := s.OptionCounts[qid]
	return ok && option >= 0 && option < count
}

// Score grades the selected answers against the sheet. Missing answers count
// as incorrect; answers for questions outside the snapshot are ignored. The
// percentage is rounded to two decimals, matching what certificates display.
func Score(sheet *ScoreSheet, selected map[uuid.UUID]int) (correctCount int, scorePercent float64) {
	for qid, correct := range sheet.AnswerKey {
		picked, ok := selected[qid]
		if ok && picked == correct {
			correctCount++
		}
	}
	if sheet.Total > 0 {
		scorePercent = float64(correctCount) / float64(sheet.Total) * 100
		scorePercent = math.Round(scorePercent*100) / 100
	}
	return correctCount, scorePercent
}
