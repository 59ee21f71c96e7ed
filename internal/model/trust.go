package model

import (
	"time"

	"github.com/google/uuid"
)

// TrustAssertion records the outcome of secure-browser trust negotiation for
// a session. Present only when the client claims SEB mode. Verification
// raises confidence; it is not a cryptographic guarantee.
type TrustAssertion struct {
	SessionID         uuid.UUID  `json:"session_id"`
	ExpectedConfigKey string     `json:"-"`
	AssertedConfigKey string     `json:"asserted_config_key,omitempty"`
	AssertedExamKey   string     `json:"asserted_exam_key,omitempty"`
	Verified          bool       `json:"verified"`
	Discrepancies     []string   `json:"discrepancies,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
}

// VerifyTrustRequest carries the keys the secure browser reports.
type VerifyTrustRequest struct {
	ConfigKey      string `json:"config_key" binding:"required,max=128"`
	BrowserExamKey string `json:"browser_exam_key" binding:"required,max=128"`
}

// VerifyTrustResponse is the negotiation outcome returned to the client.
type VerifyTrustResponse struct {
	Verified      bool     `json:"verified"`
	Discrepancies []string `json:"discrepancies,omitempty"`
}

// QuitSessionRequest carries the quit password the secure browser must
// present to unlock its exit flow.
type QuitSessionRequest struct {
	QuitPassword string `json:"quit_password" binding:"required,max=64"`
}
