package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func sampleSnapshot() *QuestionSnapshot {
	return &QuestionSnapshot{
		SessionID: uuid.New(),
		CourseID:  uuid.New(),
		Questions: []SnapshotQuestion{
			{QuestionID: uuid.New(), OrderNum: 1, QuestionText: "2+2?", Options: []string{"3", "4", "5"}, CorrectOption: 1, Points: 1},
			{QuestionID: uuid.New(), OrderNum: 2, QuestionText: "3*3?", Options: []string{"6", "9"}, CorrectOption: 1, Points: 1},
		},
	}
}

func TestForCandidateStripsAnswerKey(t *testing.T) {
	snap := sampleSnapshot()
	paper := snap.ForCandidate()

	if len(paper) != 2 {
		t.Fatalf("paper has %d questions, want 2", len(paper))
	}

	raw, err := json.Marshal(paper)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "correct") {
		t.Errorf("candidate payload leaks the answer key: %s", raw)
	}
}

func TestSnapshotQuestionJSONHidesServerFields(t *testing.T) {
	raw, err := json.Marshal(sampleSnapshot().Questions[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "correct_option") || strings.Contains(string(raw), "points") {
		t.Errorf("serialized snapshot question leaks server fields: %s", raw)
	}
}

func TestAnswerKeyAndOptionCounts(t *testing.T) {
	snap := sampleSnapshot()
	key := snap.AnswerKey()
	counts := snap.OptionCounts()

	for _, q := range snap.Questions {
		if key[q.QuestionID] != q.CorrectOption {
			t.Errorf("answer key for %s = %d, want %d", q.QuestionID, key[q.QuestionID], q.CorrectOption)
		}
		if counts[q.QuestionID] != len(q.Options) {
			t.Errorf("option count for %s = %d, want %d", q.QuestionID, counts[q.QuestionID], len(q.Options))
		}
	}
}
