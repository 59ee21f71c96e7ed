package service

import (
	"github.com/khaliqhussainn/certexam-engine/internal/config"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// EscalationPolicy converts an accumulated violation tally into an action.
// Thresholds are configuration, not constants, so operators can tune
// strictness per course risk profile.
type EscalationPolicy struct {
	TerminateHigh  int
	TerminateTotal int
	WarnHigh       int
	WarnTotal      int
}

// NewEscalationPolicy builds the policy from configured thresholds.
func NewEscalationPolicy(cfg *config.Config) EscalationPolicy {
	return EscalationPolicy{
		TerminateHigh:  cfg.TerminateHighCount,
		TerminateTotal: cfg.TerminateTotalCount,
		WarnHigh:       cfg.WarnHighCount,
		WarnTotal:      cfg.WarnTotalCount,
	}
}

// Evaluate is a pure function of the tally: the same violation log always
// yields the same decision. Terminate takes precedence over warn.
func (p EscalationPolicy) Evaluate(t model.ViolationTally) model.EscalationAction {
	if t.High >= p.TerminateHigh || t.Total >= p.TerminateTotal {
		return model.ActionTerminate
	}
	if t.High >= p.WarnHigh || t.Total >= p.WarnTotal {
		return model.ActionWarn
	}
	return model.ActionContinue
}
