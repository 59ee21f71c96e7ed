package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionAnswersKey returns the cache key for a session's answer hash
// (question id -> selected option index).
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionScoreSheetKey returns the cache key for a session's grading sheet
// (correct options and per-question option counts). Never served to clients.
func (r *CacheKeyStruct) SessionScoreSheetKey(sessionID string) string {
	return fmt.Sprintf("session:%s:score_sheet", sessionID)
}

// SessionPaperKey returns the cache key for the candidate-facing question
// payload (answer key stripped).
func (r *CacheKeyStruct) SessionPaperKey(sessionID string) string {
	return fmt.Sprintf("session:%s:paper", sessionID)
}

// SessionViolationTallyKey returns the cache key for a session's running
// violation tally hash (per-severity and per-kind counters).
func (r *CacheKeyStruct) SessionViolationTallyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:violation_tally", sessionID)
}

// UserActiveSessionKey returns the cache key for a user's currently active session.
func (r *CacheKeyStruct) UserActiveSessionKey(userID int) string {
	return fmt.Sprintf("user:%d:active_session", userID)
}

var CacheKey = NewCacheKeyStruct()
