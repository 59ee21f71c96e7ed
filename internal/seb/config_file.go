package seb

import (
	"fmt"
	"math/rand"
)

// ConfigDocument is the structured document the external locked-down browser
// consumes. Its schema is an external contract: the ConfigKey and
// BrowserExamKey fields must match byte-for-byte what the trust negotiator
// expects back from the client.
type ConfigDocument struct {
	StartURL       string `json:"start_url"`
	QuitURL        string `json:"quit_url"`
	ConfigKey      string `json:"config_key"`
	BrowserExamKey string `json:"browser_exam_key"`
	// QuitPassword unlocks the browser's exit flow. Generated per session;
	// only its bcrypt hash is kept server-side.
	QuitPassword  string   `json:"quit_password"`
	Lockdown      Lockdown `json:"lockdown"`
	SchemaVersion int      `json:"schema_version"`
}

// Lockdown is the fixed set of restriction toggles applied by the browser.
type Lockdown struct {
	DisableCopyPaste    bool     `json:"disable_copy_paste"`
	DisableWindowSwitch bool     `json:"disable_window_switch"`
	BlockedProcesses    []string `json:"blocked_processes"`
	RequireFullscreen   bool     `json:"require_fullscreen"`
	DisableContextMenu  bool     `json:"disable_context_menu"`
	DisableSpellCheck   bool     `json:"disable_spell_check"`
}

const quitPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewQuitPassword returns an 8-character code a human proctor can read out.
// Ambiguous characters (0/O, 1/I) are excluded.
func NewQuitPassword() string {
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = quitPasswordAlphabet[rand.Intn(len(quitPasswordAlphabet))]
	}
	return string(buf)
}

// BuildConfig assembles the exported document for one session. startURL is
// the exam attempt URL including the session id, so the derived browser exam
// key is unique per session.
func BuildConfig(baseURL, quitURL, sessionID, configKey, quitPassword string, blockedProcesses []string) ConfigDocument {
	startURL := fmt.Sprintf("%s/%s", baseURL, sessionID)
	return ConfigDocument{
		StartURL:       startURL,
		QuitURL:        quitURL,
		ConfigKey:      configKey,
		BrowserExamKey: BrowserExamKey(startURL, configKey),
		QuitPassword:   quitPassword,
		Lockdown: Lockdown{
			DisableCopyPaste:    true,
			DisableWindowSwitch: true,
			BlockedProcesses:    blockedProcesses,
			RequireFullscreen:   true,
			DisableContextMenu:  true,
			DisableSpellCheck:   true,
		},
		SchemaVersion: 1,
	}
}
