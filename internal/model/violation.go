package model

import (
	"time"

	"github.com/google/uuid"
)

// SignalKind enumerates the client-reported integrity signals the monitor
// understands. Classification is table-driven (see service.Classify) so new
// kinds can be added without touching escalation logic.
type SignalKind string

const (
	SignalTabSwitch         SignalKind = "TAB_SWITCH"
	SignalFullscreenExit    SignalKind = "FULLSCREEN_EXIT"
	SignalForbiddenShortcut SignalKind = "FORBIDDEN_SHORTCUT"
	SignalContextMenu       SignalKind = "CONTEXT_MENU"
	SignalInactivity        SignalKind = "INACTIVITY"
	SignalNavigationAway    SignalKind = "NAVIGATION_AWAY"
	SignalConnectivityLoss  SignalKind = "CONNECTIVITY_LOSS"
	SignalWindowResize      SignalKind = "WINDOW_RESIZE"
	SignalVMDetected        SignalKind = "VM_DETECTED"
	SignalTrustMismatch     SignalKind = "TRUST_MISMATCH"
)

// Severity is the fixed low/medium/high classification attached to a
// violation kind.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ViolationRecord is one append-only integrity log entry. Records are never
// deleted, only accumulated.
type ViolationRecord struct {
	ID         int64      `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	Kind       SignalKind `json:"kind"`
	Severity   Severity   `json:"severity"`
	Detail     string     `json:"detail,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// ViolationTally is the running per-session aggregate the escalation policy
// evaluates. It is maintained incrementally as records are appended, and is
// a pure function of the ordered violation log.
type ViolationTally struct {
	Total  int                `json:"total"`
	High   int                `json:"high"`
	Medium int                `json:"medium"`
	Low    int                `json:"low"`
	ByKind map[SignalKind]int `json:"by_kind,omitempty"`
}

// Add folds one record into the tally.
func (t *ViolationTally) Add(kind SignalKind, sev Severity) {
	t.Total++
	switch sev {
	case SeverityHigh:
		t.High++
	case SeverityMedium:
		t.Medium++
	case SeverityLow:
		t.Low++
	}
	if t.ByKind == nil {
		t.ByKind = make(map[SignalKind]int)
	}
	t.ByKind[kind]++
}

// EscalationAction is the decision the policy returns for a violation log.
type EscalationAction string

const (
	ActionContinue  EscalationAction = "CONTINUE"
	ActionWarn      EscalationAction = "WARN"
	ActionTerminate EscalationAction = "TERMINATE"
)

// RecordViolationRequest is the payload for reporting one integrity signal.
type RecordViolationRequest struct {
	Kind   SignalKind `json:"kind" binding:"required"`
	Detail string     `json:"detail" binding:"max=2000"`
}

// RecordViolationResponse carries the escalation decision back to the client.
type RecordViolationResponse struct {
	Action EscalationAction `json:"action"`
	// Result is present only when the report tipped the session into
	// termination and it was finalized in response.
	Result *ExamResult `json:"result,omitempty"`
}
