package service

import (
	"testing"

	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

func defaultPolicy() EscalationPolicy {
	return EscalationPolicy{
		TerminateHigh:  3,
		TerminateTotal: 6,
		WarnHigh:       1,
		WarnTotal:      3,
	}
}

func TestEvaluateThresholds(t *testing.T) {
	p := defaultPolicy()

	cases := []struct {
		name  string
		tally model.ViolationTally
		want  model.EscalationAction
	}{
		{"empty log", model.ViolationTally{}, model.ActionContinue},
		{"one low", model.ViolationTally{Total: 1, Low: 1}, model.ActionContinue},
		{"two medium", model.ViolationTally{Total: 2, Medium: 2}, model.ActionContinue},
		{"one high warns", model.ViolationTally{Total: 1, High: 1}, model.ActionWarn},
		{"three low warns", model.ViolationTally{Total: 3, Low: 3}, model.ActionWarn},
		{"five mixed below high limit", model.ViolationTally{Total: 5, High: 2, Low: 3}, model.ActionWarn},
		{"three high terminates", model.ViolationTally{Total: 3, High: 3}, model.ActionTerminate},
		{"six total terminates", model.ViolationTally{Total: 6, Low: 6}, model.ActionTerminate},
		{"seven low terminates", model.ViolationTally{Total: 7, Low: 7}, model.ActionTerminate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Evaluate(tc.tally); got != tc.want {
				t.Errorf("Evaluate(%+v) = %s, want %s", tc.tally, got, tc.want)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	p := defaultPolicy()
	tally := model.ViolationTally{Total: 4, High: 2, Medium: 1, Low: 1}

	first := p.Evaluate(tally)
	for i := 0; i < 100; i++ {
		if got := p.Evaluate(tally); got != first {
			t.Fatalf("iteration %d: Evaluate returned %s after %s", i, got, first)
		}
	}
}

func TestEvaluateTerminatePrecedesWarn(t *testing.T) {
	p := defaultPolicy()
	// Satisfies both the warn and terminate conditions at once.
	tally := model.ViolationTally{Total: 6, High: 3, Medium: 3}
	if got := p.Evaluate(tally); got != model.ActionTerminate {
		t.Errorf("Evaluate = %s, want TERMINATE", got)
	}
}

func TestEvaluateCustomThresholds(t *testing.T) {
	strict := EscalationPolicy{TerminateHigh: 1, TerminateTotal: 2, WarnHigh: 1, WarnTotal: 1}

	if got := strict.Evaluate(model.ViolationTally{Total: 1, High: 1}); got != model.ActionTerminate {
		t.Errorf("strict policy with one high: got %s, want TERMINATE", got)
	}
	if got := strict.Evaluate(model.ViolationTally{Total: 1, Low: 1}); got != model.ActionWarn {
		t.Errorf("strict policy with one low: got %s, want WARN", got)
	}
}

func TestTallyAddAggregates(t *testing.T) {
	var tally model.ViolationTally
	tally.Add(model.SignalTabSwitch, model.SeverityHigh)
	tally.Add(model.SignalTabSwitch, model.SeverityHigh)
	tally.Add(model.SignalContextMenu, model.SeverityLow)
	tally.Add(model.SignalFullscreenExit, model.SeverityMedium)

	if tally.Total != 4 {
		t.Errorf("Total = %d, want 4", tally.Total)
	}
	if tally.High != 2 || tally.Medium != 1 || tally.Low != 1 {
		t.Errorf("severity split = %d/%d/%d, want 2/1/1", tally.High, tally.Medium, tally.Low)
	}
	if tally.ByKind[model.SignalTabSwitch] != 2 {
		t.Errorf("ByKind[TAB_SWITCH] = %d, want 2", tally.ByKind[model.SignalTabSwitch])
	}
}
