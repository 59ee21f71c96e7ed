// Package seb implements the trust contract with the external Safe Exam
// Browser: key derivation, exact-match verification, and the exported
// configuration document the browser consumes.
package seb

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of s.
func SHA256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// NewConfigKey generates a random per-session configuration key. The same
// value is embedded in the exported config document and expected back from
// the browser on verifyTrust, so it must be generated once and stored.
func NewConfigKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is not recoverable at this layer.
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// BrowserExamKey derives the browser exam key the locked-down browser is
// expected to report for a given start URL and configuration key. The
// derivation must stay byte-for-byte identical to what the exported config
// document implies, since verification is an exact string match.
func BrowserExamKey(startURL, configKey string) string {
	return SHA256Hex(startURL + configKey)
}

// Discrepancy labels for failed verification. These are stable identifiers
// stored on the trust assertion and surfaced in violation details.
const (
	DiscrepancyConfigKey      = "config_key_mismatch"
	DiscrepancyBrowserExamKey = "browser_exam_key_mismatch"
)

// VerifyKeys compares client-asserted keys against session expectations.
// Returns verified=true only if both match exactly; every mismatch is
// reported as a discrepancy.
func VerifyKeys(expectedConfigKey, expectedExamKey, assertedConfigKey, assertedExamKey string) (bool, []string) {
	var discrepancies []string
	if assertedConfigKey != expectedConfigKey {
		discrepancies = append(discrepancies, DiscrepancyConfigKey)
	}
	if assertedExamKey != expectedExamKey {
		discrepancies = append(discrepancies, DiscrepancyBrowserExamKey)
	}
	return len(discrepancies) == 0, discrepancies
}
