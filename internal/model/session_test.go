package model

import (
	"testing"
	"time"
)

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	terminal := []SessionState{SessionStateCompleted, SessionStateTerminated, SessionStateExpired}
	all := []SessionState{SessionStateCreated, SessionStateActive,
		SessionStateCompleted, SessionStateTerminated, SessionStateExpired}

	for _, from := range terminal {
		if !from.IsTerminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range all {
			if from.CanTransition(to) {
				t.Errorf("terminal state %s must not transition to %s", from, to)
			}
		}
	}
}

func TestCreatedTransitions(t *testing.T) {
	if !SessionStateCreated.CanTransition(SessionStateActive) {
		t.Error("CREATED -> ACTIVE should be legal")
	}
	if !SessionStateCreated.CanTransition(SessionStateTerminated) {
		t.Error("CREATED -> TERMINATED should be legal")
	}
	if SessionStateCreated.CanTransition(SessionStateCompleted) {
		t.Error("CREATED -> COMPLETED requires a start")
	}
}

func TestActiveTransitions(t *testing.T) {
	for _, to := range []SessionState{SessionStateCompleted, SessionStateTerminated, SessionStateExpired} {
		if !SessionStateActive.CanTransition(to) {
			t.Errorf("ACTIVE -> %s should be legal", to)
		}
	}
	if SessionStateActive.CanTransition(SessionStateCreated) {
		t.Error("ACTIVE -> CREATED must be illegal")
	}
}

func TestRemainingClampsToZero(t *testing.T) {
	now := time.Now()
	deadline := now.Add(-time.Minute)
	s := &ExamSession{DeadlineAt: &deadline}

	if got := s.Remaining(now); got != 0 {
		t.Errorf("Remaining past deadline = %v, want 0", got)
	}
}

func TestRemainingBeforeDeadline(t *testing.T) {
	now := time.Now()
	deadline := now.Add(30 * time.Minute)
	s := &ExamSession{DeadlineAt: &deadline}

	if got := s.Remaining(now); got != 30*time.Minute {
		t.Errorf("Remaining = %v, want 30m", got)
	}
}

func TestRemainingWithoutDeadline(t *testing.T) {
	s := &ExamSession{}
	if got := s.Remaining(time.Now()); got != 0 {
		t.Errorf("Remaining without deadline = %v, want 0", got)
	}
}

func TestExpiredAt(t *testing.T) {
	now := time.Now()
	deadline := now.Add(time.Minute)
	s := &ExamSession{DeadlineAt: &deadline}

	if s.ExpiredAt(now) {
		t.Error("not expired before the deadline")
	}
	if !s.ExpiredAt(deadline) {
		t.Error("expired exactly at the deadline")
	}
	if !s.ExpiredAt(deadline.Add(time.Second)) {
		t.Error("expired after the deadline")
	}

	unstarted := &ExamSession{}
	if unstarted.ExpiredAt(now.Add(time.Hour * 24)) {
		t.Error("session without a deadline cannot expire by clock")
	}
}
