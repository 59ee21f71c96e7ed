package model

import (
	"github.com/google/uuid"
)

// SnapshotQuestion is a single question reference frozen into a session's
// snapshot. CorrectOption and Points never leave the server.
type SnapshotQuestion struct {
	QuestionID    uuid.UUID `json:"question_id"`
	OrderNum      int       `json:"order_num"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"-"`
	Points        float64   `json:"-"`
}

// QuestionSnapshot is the immutable, ordered question set bound to a session
// at creation time. It is never re-fetched after binding, so mid-exam edits
// to the course question bank cannot affect a running attempt.
type QuestionSnapshot struct {
	SessionID uuid.UUID          `json:"session_id"`
	CourseID  uuid.UUID          `json:"course_id"`
	Questions []SnapshotQuestion `json:"questions"`
}

// QuestionForCandidate is a question as served to the client: no answer key,
// no point value, only what is needed to render and answer it.
type QuestionForCandidate struct {
	QuestionID   uuid.UUID `json:"question_id"`
	OrderNum     int       `json:"order_num"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
}

// ForCandidate returns the snapshot stripped of server-side fields.
func (s *QuestionSnapshot) ForCandidate() []QuestionForCandidate {
	out := make([]QuestionForCandidate, 0, len(s.Questions))
	for _, q := range s.Questions {
		out = append(out, QuestionForCandidate{
			QuestionID:   q.QuestionID,
			OrderNum:     q.OrderNum,
			QuestionText: q.QuestionText,
			Options:      q.Options,
		})
	}
	return out
}

// AnswerKey returns question id -> correct option index for scoring.
func (s *QuestionSnapshot) AnswerKey() map[uuid.UUID]int {
	key := make(map[uuid.UUID]int, len(s.Questions))
	for _, q := range s.Questions {
		key[q.QuestionID] = q.CorrectOption
	}
	return key
}

// OptionCounts returns question id -> number of options, used to validate
// submitted option indexes.
func (s *QuestionSnapshot) OptionCounts() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(s.Questions))
	for _, q := range s.Questions {
		counts[q.QuestionID] = len(q.Options)
	}
	return counts
}
