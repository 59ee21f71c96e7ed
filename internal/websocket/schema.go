package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionHeartbeat Action = "heartbeat"
	ActionSignal    Action = "signal"
	ActionTrust     Action = "trust"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest is sent by the client to record a single answer.
type AnswerRequest struct {
	Action           Action `json:"action"`
	QuestionID       string `json:"question_id"`
	SelectedOption   int    `json:"selected_option"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// SignalRequest is sent by the client to report an integrity signal.
type SignalRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// TrustRequest carries the secure browser's key assertion.
type TrustRequest struct {
	Action         Action `json:"action"`
	ConfigKey      string `json:"config_key"`
	BrowserExamKey string `json:"browser_exam_key"`
}

// HeartbeatRequest is the periodic liveness report.
type HeartbeatRequest struct {
	Action Action `json:"action"`
}

// SubmitRequest is sent by the client to finish and grade the exam.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventHeartbeat Event = "heartbeat"
	EventAction    Event = "action"
	EventTrust     Event = "trust"
	EventGraded    Event = "graded"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// HeartbeatResponse reports the authoritative remaining time. The client
// renders this value; it never computes its own.
type HeartbeatResponse struct {
	Event            Event  `json:"event"`
	State            string `json:"state"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	TrustRecheckDue  bool   `json:"trust_recheck_due,omitempty"`
}

// ActionResponse carries the escalation decision after a signal report.
type ActionResponse struct {
	Event  Event  `json:"event"`
	Action string `json:"action"`
}

type TrustResponse struct {
	Event         Event    `json:"event"`
	Verified      bool     `json:"verified"`
	Discrepancies []string `json:"discrepancies,omitempty"`
}

// GradedResponse closes the exam: sent on submit, expiry, or termination.
type GradedResponse struct {
	Event        Event   `json:"event"`
	Status       string  `json:"status"`
	Reason       string  `json:"reason"`
	ScorePercent float64 `json:"score_percent"`
	Passed       bool    `json:"passed"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
