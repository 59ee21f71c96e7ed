package service

import (
	"testing"

	"github.com/google/uuid"
)

func buildSheet(n int) (*ScoreSheet, []uuid.UUID) {
	sheet := &ScoreSheet{
		AnswerKey:    make(map[uuid.UUID]int, n),
		OptionCounts: make(map[uuid.UUID]int, n),
		Total:        n,
	}
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		ids[i] = id
		sheet.AnswerKey[id] = i % 4
		sheet.OptionCounts[id] = 4
	}
	return sheet, ids
}

func TestScoreSevenOfTen(t *testing.T) {
	sheet, ids := buildSheet(10)

	selected := make(map[uuid.UUID]int)
	for i, id := range ids {
		if i < 7 {
			selected[id] = sheet.AnswerKey[id]
		} else {
			selected[id] = (sheet.AnswerKey[id] + 1) % 4
		}
	}

	correct, pct := Score(sheet, selected)
	if correct != 7 {
		t.Errorf("correct = %d, want 7", correct)
	}
	if pct != 70 {
		t.Errorf("pct = %v, want 70", pct)
	}
}

func TestScoreMissingAnswersAreIncorrect(t *testing.T) {
	sheet, ids := buildSheet(4)

	// Answer only half of the questions, all correctly.
	selected := map[uuid.UUID]int{
		ids[0]: sheet.AnswerKey[ids[0]],
		ids[1]: sheet.AnswerKey[ids[1]],
	}

	correct, pct := Score(sheet, selected)
	if correct != 2 {
		t.Errorf("correct = %d, want 2", correct)
	}
	if pct != 50 {
		t.Errorf("pct = %v, want 50", pct)
	}
}

func TestScoreRoundsToTwoDecimals(t *testing.T) {
	cases := []struct {
		name    string
		total   int
		correct int
		want    float64
	}{
		{"one third", 3, 1, 33.33},
		{"two thirds", 3, 2, 66.67},
		{"one seventh", 7, 1, 14.29},
		{"exact", 4, 3, 75},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sheet, ids := buildSheet(tc.total)
			selected := make(map[uuid.UUID]int)
			for i := 0; i < tc.correct; i++ {
				selected[ids[i]] = sheet.AnswerKey[ids[i]]
			}
			if _, pct := Score(sheet, selected); pct != tc.want {
				t.Errorf("pct = %v, want %v", pct, tc.want)
			}
		})
	}
}

func TestScoreNoAnswers(t *testing.T) {
	sheet, _ := buildSheet(5)

	correct, pct := Score(sheet, map[uuid.UUID]int{})
	if correct != 0 || pct != 0 {
		t.Errorf("got %d/%v, want 0/0", correct, pct)
	}
}

func TestScoreIgnoresForeignQuestions(t *testing.T) {
	sheet, ids := buildSheet(2)

	selected := map[uuid.UUID]int{
		ids[0]:     sheet.AnswerKey[ids[0]],
		uuid.New(): 0, // not part of the snapshot
	}

	correct, _ := Score(sheet, selected)
	if correct != 1 {
		t.Errorf("correct = %d, want 1", correct)
	}
}

func TestScoreEmptySheet(t *testing.T) {
	sheet := &ScoreSheet{AnswerKey: map[uuid.UUID]int{}, OptionCounts: map[uuid.UUID]int{}}
	correct, pct := Score(sheet, map[uuid.UUID]int{})
	if correct != 0 || pct != 0 {
		t.Errorf("got %d/%v, want 0/0 for empty sheet", correct, pct)
	}
}

func TestMergeAnswersKeepsPersistedRecords(t *testing.T) {
	hashOnly := uuid.New()
	recordOnly := uuid.New()
	both := uuid.New()

	persisted := map[uuid.UUID]int{
		recordOnly: 2,
		both:       0,
	}
	cached := map[string]string{
		hashOnly.String(): "1",
		both.String():     "3",
		"not-a-uuid":      "1",
		uuid.NewString():  "not-a-number",
	}

	merged := mergeAnswers(persisted, cached)

	if got := merged[recordOnly]; got != 2 {
		t.Errorf("record-only answer = %d, want 2", got)
	}
	if got := merged[hashOnly]; got != 1 {
		t.Errorf("hash-only answer = %d, want 1", got)
	}
	if got := merged[both]; got != 3 {
		t.Errorf("overlapping answer = %d, want the cached 3", got)
	}
	if len(merged) != 3 {
		t.Errorf("merged has %d answers, want 3", len(merged))
	}
}

func TestSheetValidation(t *testing.T) {
	sheet, ids := buildSheet(1)

	if !sheet.HasQuestion(ids[0]) {
		t.Error("HasQuestion rejected a snapshot question")
	}
	if sheet.HasQuestion(uuid.New()) {
		t.Error("HasQuestion accepted a foreign question")
	}
	if !sheet.ValidOption(ids[0], 0) || !sheet.ValidOption(ids[0], 3) {
		t.Error("ValidOption rejected an in-range index")
	}
	if sheet.ValidOption(ids[0], 4) {
		t.Error("ValidOption accepted an out-of-range index")
	}
	if sheet.ValidOption(ids[0], -1) {
		t.Error("ValidOption accepted a negative index")
	}
}
