package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/khaliqhussainn/certexam-engine/internal/config"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
	"github.com/khaliqhussainn/certexam-engine/internal/repository"
	"github.com/khaliqhussainn/certexam-engine/internal/seb"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionService owns the exam session lifecycle. Every mutating operation
// for one session id is serialized through a per-session lock; different
// sessions proceed fully in parallel. The deadline check runs server-side on
// every mutating call, so expiry is detected lazily on the next interaction
// and by the background sweeper for sessions that go silent.
type SessionService struct {
	cfg          *config.Config
	sessionRepo  *repository.SessionRepository
	snapshotRepo *repository.SnapshotRepository
	answerRepo   *repository.AnswerRepository
	resultRepo   *repository.ResultRepository
	trustRepo    *repository.TrustRepository
	entitlements EntitlementGate
	questions    QuestionProvider
	monitor      *MonitorService
	rdb          *redis.Client
	locks        *sessionLocks
	log          zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	sessionRepo *repository.SessionRepository,
	snapshotRepo *repository.SnapshotRepository,
	answerRepo *repository.AnswerRepository,
	resultRepo *repository.ResultRepository,
	trustRepo *repository.TrustRepository,
	entitlements EntitlementGate,
	questions QuestionProvider,
	monitor *MonitorService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:          cfg,
		sessionRepo:  sessionRepo,
		snapshotRepo: snapshotRepo,
		answerRepo:   answerRepo,
		resultRepo:   resultRepo,
		trustRepo:    trustRepo,
		entitlements: entitlements,
		questions:    questions,
		monitor:      monitor,
		rdb:          rdb,
		locks:        newSessionLocks(),
		log:          log.With().Str("component", "session_service").Logger(),
	}
}

// StartSessionResult is what a successful start returns: the session with
// its stamped deadline and the candidate-facing questions (no answer key).
type StartSessionResult struct {
	Session            *model.ExamSession           `json:"session"`
	Questions          []model.QuestionForCandidate `json:"questions"`
	RequirementsWaived bool                         `json:"requirements_waived"`
}

func (s *SessionService) startURL(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", s.cfg.ExamBaseURL, sessionID)
}

// ----------------------------------------------------------------
// Session creation
// ----------------------------------------------------------------

// CreateSession checks the entitlement gate, binds the question snapshot,
// and creates the session in CREATED state. No timer runs yet.
func (s *SessionService) CreateSession(ctx context.Context, userID int, courseID uuid.UUID) (*model.ExamSession, error) {
	entitled, attemptsUsed, err := s.entitlements.IsEntitled(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("check entitlement: %w", err)
	}
	if !entitled {
		return nil, ErrNotEntitled
	}

	settings, err := s.questions.GetExamSettings(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course settings: %w", err)
	}
	if settings.AllowedAttempts > 0 && attemptsUsed >= settings.AllowedAttempts {
		return nil, fmt.Errorf("%w: %d of %d attempts used", ErrNotEntitled, attemptsUsed, settings.AllowedAttempts)
	}

	snap, err := s.questions.Snapshot(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("snapshot questions: %w", err)
	}
	if len(snap.Questions) == 0 {
		return nil, fmt.Errorf("course %s has no questions", courseID)
	}

	quitPassword := seb.NewQuitPassword()
	quitHash, err := seb.HashQuitPassword(quitPassword, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash quit password: %w", err)
	}

	session := &model.ExamSession{
		UserID:              userID,
		CourseID:            courseID,
		State:               model.SessionStateCreated,
		DurationMinutes:     settings.DurationMinutes,
		TotalQuestions:      len(snap.Questions),
		PassingScorePercent: settings.PassingScorePercent,
		AllowedAttempts:     settings.AllowedAttempts,
		AttemptNumber:       attemptsUsed + 1,
	}
	if err := s.sessionRepo.Create(ctx, session, quitHash); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	snap.SessionID = session.ID
	if err := s.snapshotRepo.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("bind snapshot: %w", err)
	}

	// Seed the trust expectation and the exported SEB document together so
	// the keys the negotiator checks are byte-identical to the document.
	configKey := seb.NewConfigKey()
	doc := seb.BuildConfig(s.cfg.ExamBaseURL, s.cfg.ExamQuitURL, session.ID.String(),
		configKey, quitPassword, s.cfg.BlockedProcesses)
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal seb config: %w", err)
	}
	if err := s.trustRepo.CreateExpected(ctx, session.ID, configKey, docJSON); err != nil {
		return nil, fmt.Errorf("seed trust assertion: %w", err)
	}

	s.cacheSnapshot(ctx, session.ID, snap)

	activeKey := config.CacheKey.UserActiveSessionKey(userID)
	if err := s.rdb.Set(ctx, activeKey, session.ID.String(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache active session pointer")
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("user_id", userID).
		Str("course_id", courseID.String()).
		Int("attempt", session.AttemptNumber).
		Msg("Session created")

	return session, nil
}

// ----------------------------------------------------------------
// Start
// ----------------------------------------------------------------

// StartSession stamps startedAt, derives the deadline, and moves the session
// to ACTIVE. This is the only place the deadline is computed: repeated start
// calls cannot move it.
func (s *SessionService) StartSession(ctx context.Context, sessionID uuid.UUID, userID int, env model.ClientEnvironment) (*StartSessionResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	switch session.State {
	case model.SessionStateActive:
		return nil, ErrAlreadyStarted
	case model.SessionStateExpired:
		return nil, ErrSessionExpired
	case model.SessionStateCompleted, model.SessionStateTerminated:
		return nil, ErrSessionNotActive
	}

	now := time.Now()
	deadline := now.Add(time.Duration(session.DurationMinutes) * time.Minute)

	applied, err := s.sessionRepo.Start(ctx, sessionID, now, deadline)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if !applied {
		return nil, ErrAlreadyStarted
	}

	session.State = model.SessionStateActive
	session.StartedAt = &now
	session.DeadlineAt = &deadline

	// A verified secure browser substitutes its own lockdown for the
	// camera/microphone/fullscreen checks the client just reported.
	waived := false
	if trust, err := s.trustRepo.Get(ctx, sessionID); err == nil {
		waived = trust.Verified
	}

	paper, err := s.loadPaper(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load paper: %w", err)
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Time("deadline_at", deadline).
		Bool("secure_browser", env.SecureBrowser).
		Bool("requirements_waived", waived).
		Msg("Session started")

	return &StartSessionResult{Session: session, Questions: paper, RequirementsWaived: waived}, nil
}

// ----------------------------------------------------------------
// Answers
// ----------------------------------------------------------------

// SubmitAnswer records one answer. Last write per question wins. If the
// deadline elapsed, the session is finalized first and the result returned
// alongside ErrSessionExpired.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, userID int, req model.SubmitAnswerRequest) (*model.ExamResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if session.State != model.SessionStateActive {
		return nil, ErrSessionNotActive
	}
	if session.ExpiredAt(time.Now()) {
		result, ferr := s.finalizeLocked(ctx, session, model.ReasonTimeExpired)
		if ferr != nil {
			return nil, ferr
		}
		return result, ErrSessionExpired
	}

	sheet, err := s.loadScoreSheet(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load score sheet: %w", err)
	}
	if !sheet.HasQuestion(req.QuestionID) || !sheet.ValidOption(req.QuestionID, req.SelectedOption) {
		return nil, ErrInvalidAnswer
	}

	now := time.Now()
	answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())
	if err := s.rdb.HSet(ctx, answersKey, req.QuestionID.String(), req.SelectedOption).Err(); err != nil {
		// The answer hash missed this write, so the persisted record is the
		// only copy scoring can find. Write it through before acking.
		s.log.Warn().Err(err).Msg("Answer cache write failed, persisting directly")
		record := &model.AnswerRecord{
			SessionID:        sessionID,
			QuestionID:       req.QuestionID,
			SelectedOption:   req.SelectedOption,
			TimeSpentSeconds: req.TimeSpentSeconds,
			SubmittedAt:      now,
		}
		if err := s.answerRepo.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("persist answer: %w", err)
		}
		return nil, nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"session_id":      sessionID.String(),
		"question_id":     req.QuestionID.String(),
		"selected_option": req.SelectedOption,
		"time_spent":      req.TimeSpentSeconds,
		"timestamp":       now.Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		// Queue down: write through synchronously so the record survives.
		record := &model.AnswerRecord{
			SessionID:        sessionID,
			QuestionID:       req.QuestionID,
			SelectedOption:   req.SelectedOption,
			TimeSpentSeconds: req.TimeSpentSeconds,
			SubmittedAt:      now,
		}
		if err := s.answerRepo.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("persist answer: %w", err)
		}
	}

	return nil, nil
}

// ----------------------------------------------------------------
// Heartbeat
// ----------------------------------------------------------------

// Heartbeat is an advisory liveness signal: it updates lastHeartbeatAt and
// reports remaining time. On an elapsed deadline it finalizes and reports
// expiry with the scored result rather than failing.
func (s *SessionService) Heartbeat(ctx context.Context, sessionID uuid.UUID, userID int) (*model.HeartbeatResponse, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if session.State.IsTerminal() {
		resp := &model.HeartbeatResponse{State: session.State}
		if result, err := s.resultRepo.Get(ctx, sessionID); err == nil {
			resp.Result = result
		}
		return resp, nil
	}

	now := time.Now()
	if session.State == model.SessionStateActive && session.ExpiredAt(now) {
		result, ferr := s.finalizeLocked(ctx, session, model.ReasonTimeExpired)
		if ferr != nil {
			return nil, ferr
		}
		return &model.HeartbeatResponse{State: session.State, Result: result}, nil
	}

	if err := s.sessionRepo.UpdateHeartbeat(ctx, sessionID, now); err != nil {
		return nil, fmt.Errorf("update heartbeat: %w", err)
	}

	return &model.HeartbeatResponse{
		State:            session.State,
		RemainingSeconds: int64(session.Remaining(now).Seconds()),
		TrustRecheckDue:  s.trustRecheckDue(ctx, sessionID, now),
	}, nil
}

// trustRecheckDue reports whether the session's last verified trust
// assertion is older than the configured re-check interval. A zero interval
// disables periodic re-verification.
func (s *SessionService) trustRecheckDue(ctx context.Context, sessionID uuid.UUID, now time.Time) bool {
	if s.cfg.TrustRecheckInterval <= 0 {
		return false
	}
	trust, err := s.trustRepo.Get(ctx, sessionID)
	if err != nil || !trust.Verified || trust.VerifiedAt == nil {
		return false
	}
	return now.Sub(*trust.VerifiedAt) >= s.cfg.TrustRecheckInterval
}

// ----------------------------------------------------------------
// Violations
// ----------------------------------------------------------------

// RecordViolation classifies the reported signal, appends it to the log, and
// applies the escalation decision. On TERMINATE the session is finalized
// with a security-terminated reason.
func (s *SessionService) RecordViolation(ctx context.Context, sessionID uuid.UUID, userID int, kind model.SignalKind, detail string) (*model.RecordViolationResponse, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if session.State != model.SessionStateActive {
		// Rejected, but kept for audit. Late signals are never dropped.
		s.monitor.RecordAudit(ctx, sessionID, kind, detail)
		return nil, ErrSessionNotActive
	}
	if session.ExpiredAt(time.Now()) {
		result, ferr := s.finalizeLocked(ctx, session, model.ReasonTimeExpired)
		if ferr != nil {
			return nil, ferr
		}
		return &model.RecordViolationResponse{Result: result}, ErrSessionExpired
	}

	action, err := s.monitor.Record(ctx, sessionID, kind, detail)
	if err != nil {
		return nil, err
	}

	resp := &model.RecordViolationResponse{Action: action}
	if action == model.ActionTerminate {
		result, ferr := s.finalizeLocked(ctx, session, model.ReasonSecurityTerminated)
		if ferr != nil {
			return nil, ferr
		}
		resp.Result = result
	}
	return resp, nil
}

// ----------------------------------------------------------------
// Trust negotiation
// ----------------------------------------------------------------

// VerifyTrust compares client-asserted secure-browser keys with the
// session's expectations. A mismatch is recorded as a high-severity
// violation, never a hard rejection. A misconfigured but honest client
// still gets a graded attempt.
func (s *SessionService) VerifyTrust(ctx context.Context, sessionID uuid.UUID, userID int, assertedConfigKey, assertedExamKey string) (*model.VerifyTrustResponse, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() {
		return nil, ErrSessionNotActive
	}

	trust, err := s.trustRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load trust assertion: %w", err)
	}

	expectedExamKey := seb.BrowserExamKey(s.startURL(sessionID), trust.ExpectedConfigKey)
	verified, discrepancies := seb.VerifyKeys(trust.ExpectedConfigKey, expectedExamKey, assertedConfigKey, assertedExamKey)

	now := time.Now()
	if err := s.trustRepo.RecordOutcome(ctx, sessionID, assertedConfigKey, assertedExamKey, verified, discrepancies, now); err != nil {
		return nil, fmt.Errorf("record trust outcome: %w", err)
	}

	if !verified {
		action, err := s.monitor.Record(ctx, sessionID, model.SignalTrustMismatch, strings.Join(discrepancies, ", "))
		if err != nil {
			return nil, err
		}
		if action == model.ActionTerminate {
			if _, ferr := s.finalizeLocked(ctx, session, model.ReasonSecurityTerminated); ferr != nil {
				return nil, ferr
			}
		}
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Bool("verified", verified).
		Strs("discrepancies", discrepancies).
		Msg("Trust negotiation")

	return &model.VerifyTrustResponse{Verified: verified, Discrepancies: discrepancies}, nil
}

// ----------------------------------------------------------------
// Finalization
// ----------------------------------------------------------------

// Finalize computes the final score exactly once. Repeated calls return the
// stored result unchanged.
func (s *SessionService) Finalize(ctx context.Context, sessionID uuid.UUID, userID int, reason model.FinalizeReason) (*model.ExamResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if result, err := s.resultRepo.Get(ctx, sessionID); err == nil {
		return result, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load result: %w", err)
	}

	switch session.State {
	case model.SessionStateCreated:
		return nil, ErrSessionNotActive
	case model.SessionStateCompleted, model.SessionStateTerminated, model.SessionStateExpired:
		// Terminal without a result: an earlier finalize crashed between
		// the transition and the insert. Recover with the state's reason.
		reason = reasonForState(session.State)
	default:
		if reason == "" {
			reason = model.ReasonUserSubmit
		}
		if session.ExpiredAt(time.Now()) {
			reason = model.ReasonTimeExpired
		}
	}

	return s.finalizeLocked(ctx, session, reason)
}

func reasonForState(state model.SessionState) model.FinalizeReason {
	switch state {
	case model.SessionStateExpired:
		return model.ReasonTimeExpired
	case model.SessionStateTerminated:
		return model.ReasonSecurityTerminated
	default:
		return model.ReasonUserSubmit
	}
}

// finalizeLocked performs the one-time terminal transition and scoring.
// Callers must hold the session lock.
func (s *SessionService) finalizeLocked(ctx context.Context, session *model.ExamSession, reason model.FinalizeReason) (*model.ExamResult, error) {
	terminal := reason.TerminalState()

	applied, err := s.sessionRepo.TransitionTerminal(ctx, session.ID, terminal)
	if err != nil {
		return nil, fmt.Errorf("transition to %s: %w", terminal, err)
	}
	if !applied {
		// Someone else moved the session to a terminal state. Their result
		// wins if it exists; otherwise fall through and compete on insert.
		if result, err := s.resultRepo.Get(ctx, session.ID); err == nil {
			session.State = result.Reason.TerminalState()
			return result, nil
		}
	} else {
		session.State = terminal
	}

	sheet, err := s.loadScoreSheet(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load score sheet: %w", err)
	}
	selected, err := s.loadAnswers(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	correct, pct := Score(sheet, selected)

	tally, err := s.monitor.Tally(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load violation tally: %w", err)
	}

	result := &model.ExamResult{
		SessionID:      session.ID,
		UserID:         session.UserID,
		CourseID:       session.CourseID,
		CorrectCount:   correct,
		TotalQuestions: sheet.Total,
		ScorePercent:   pct,
		Passed:         pct >= session.PassingScorePercent,
		Reason:         reason,
		Violations:     tally,
		FinalizedAt:    time.Now(),
	}

	inserted, err := s.resultRepo.Insert(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}
	if !inserted {
		stored, err := s.resultRepo.Get(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("load stored result: %w", err)
		}
		return stored, nil
	}

	// Exactly one completion event per passed result: only the caller whose
	// insert won enqueues it.
	if result.Passed {
		payload, _ := json.Marshal(result)
		if err := s.rdb.RPush(ctx, config.WorkerKey.IssueCertificatesQueue, payload).Err(); err != nil {
			s.log.Error().Err(err).
				Str("session_id", session.ID.String()).
				Msg("CRITICAL: certificate event enqueue failed")
		}
	}

	s.cleanupHotState(ctx, session)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("reason", string(reason)).
		Float64("score", pct).
		Bool("passed", result.Passed).
		Msg("Session finalized")

	return result, nil
}

// ----------------------------------------------------------------
// Reads
// ----------------------------------------------------------------

// GetSession returns the current session status.
func (s *SessionService) GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	return s.getOwned(ctx, sessionID, userID)
}

// GetActiveSessionID returns the user's active session pointer, if any.
func (s *SessionService) GetActiveSessionID(ctx context.Context, userID int) (*uuid.UUID, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.UserActiveSessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read active session pointer: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}
	return &id, nil
}

// GetResult returns the stored result for a finalized session.
func (s *SessionService) GetResult(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamResult, error) {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	result, err := s.resultRepo.Get(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFinalized
	}
	return result, err
}

// GetSEBConfig returns the exported secure-browser configuration document.
func (s *SessionService) GetSEBConfig(ctx context.Context, sessionID uuid.UUID, userID int) (*seb.ConfigDocument, error) {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	raw, err := s.trustRepo.GetDocument(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load seb config: %w", err)
	}
	doc := &seb.ConfigDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode seb config: %w", err)
	}
	return doc, nil
}

// Quit verifies the secure browser's quit password for a session.
func (s *SessionService) Quit(ctx context.Context, sessionID uuid.UUID, userID int, password string) error {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return err
	}
	hash, err := s.sessionRepo.GetQuitPasswordHash(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load quit password hash: %w", err)
	}
	return seb.CheckQuitPassword(hash, password)
}

// ----------------------------------------------------------------
// Sweeps (called by the expiry worker)
// ----------------------------------------------------------------

// ExpireOverdue finalizes ACTIVE sessions whose deadline elapsed without any
// client interaction. Returns how many sessions were finalized.
func (s *SessionService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.sessionRepo.ListOverdue(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue: %w", err)
	}

	finalized := 0
	for i := range overdue {
		session := overdue[i]
		unlock := s.locks.Lock(session.ID)

		// Re-read under the lock: a concurrent call may have finalized it.
		current, err := s.sessionRepo.GetByID(ctx, session.ID)
		if err == nil && current.State == model.SessionStateActive && current.ExpiredAt(time.Now()) {
			if _, err := s.finalizeLocked(ctx, current, model.ReasonTimeExpired); err != nil {
				s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Sweep finalize failed")
			} else {
				finalized++
			}
		}
		unlock()
	}
	return finalized, nil
}

// SweepSilentHeartbeats turns prolonged heartbeat silence into
// connectivity-loss signals, applying escalation like any other violation.
func (s *SessionService) SweepSilentHeartbeats(ctx context.Context, limit int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(s.cfg.MissedHeartbeats) * s.cfg.HeartbeatInterval)
	silent, err := s.sessionRepo.ListSilent(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list silent: %w", err)
	}

	flagged := 0
	for i := range silent {
		session := silent[i]
		unlock := s.locks.Lock(session.ID)

		current, err := s.sessionRepo.GetByID(ctx, session.ID)
		if err == nil && current.State == model.SessionStateActive && !current.ExpiredAt(time.Now()) {
			detail := fmt.Sprintf("no heartbeat since %s", current.LastHeartbeatAt.Format(time.RFC3339))
			action, err := s.monitor.Record(ctx, session.ID, model.SignalConnectivityLoss, detail)
			if err == nil {
				flagged++
				// Reset the clock so one gap yields one signal, not one
				// per sweep.
				_ = s.sessionRepo.UpdateHeartbeat(ctx, session.ID, time.Now())
				if action == model.ActionTerminate {
					if _, ferr := s.finalizeLocked(ctx, current, model.ReasonSecurityTerminated); ferr != nil {
						s.log.Error().Err(ferr).Str("session_id", session.ID.String()).Msg("Sweep terminate failed")
					}
				}
			}
		}
		unlock()
	}
	return flagged, nil
}

// ----------------------------------------------------------------
// Internal helpers
// ----------------------------------------------------------------

func (s *SessionService) getOwned(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

// cacheSnapshot primes the candidate paper and the grading sheet in Redis.
func (s *SessionService) cacheSnapshot(ctx context.Context, sessionID uuid.UUID, snap *model.QuestionSnapshot) {
	paper, err := json.Marshal(snap.ForCandidate())
	if err == nil {
		if err := s.rdb.Set(ctx, config.CacheKey.SessionPaperKey(sessionID.String()), paper, 0).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Paper cache write failed")
		}
	}

	sheet := &ScoreSheet{
		AnswerKey:    snap.AnswerKey(),
		OptionCounts: snap.OptionCounts(),
		Total:        len(snap.Questions),
	}
	raw, err := json.Marshal(sheet)
	if err == nil {
		if err := s.rdb.Set(ctx, config.CacheKey.SessionScoreSheetKey(sessionID.String()), raw, 0).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Score sheet cache write failed")
		}
	}
}

// loadPaper returns the candidate-facing questions, rebuilding the cache
// from the persisted snapshot on a miss.
func (s *SessionService) loadPaper(ctx context.Context, sessionID uuid.UUID) ([]model.QuestionForCandidate, error) {
	key := config.CacheKey.SessionPaperKey(sessionID.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var paper []model.QuestionForCandidate
		if jsonErr := json.Unmarshal([]byte(raw), &paper); jsonErr == nil {
			return paper, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	snap, err := s.snapshotRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.cacheSnapshot(ctx, sessionID, snap)
	return snap.ForCandidate(), nil
}

// loadScoreSheet returns the grading sheet, falling back to PostgreSQL with
// cache self-heal.
func (s *SessionService) loadScoreSheet(ctx context.Context, sessionID uuid.UUID) (*ScoreSheet, error) {
	key := config.CacheKey.SessionScoreSheetKey(sessionID.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		sheet := &ScoreSheet{}
		if jsonErr := json.Unmarshal([]byte(raw), sheet); jsonErr == nil {
			return sheet, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	snap, err := s.snapshotRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.cacheSnapshot(ctx, sessionID, snap)
	return &ScoreSheet{
		AnswerKey:    snap.AnswerKey(),
		OptionCounts: snap.OptionCounts(),
		Total:        len(snap.Questions),
	}, nil
}

// loadAnswers returns question id -> selected option for scoring. The
// persisted records are loaded first and the Redis hash is overlaid on top:
// the hash holds the latest accepted write per question, but an answer that
// missed the hash still counts through its record.
func (s *SessionService) loadAnswers(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error) {
	persisted, err := s.answerRepo.SelectedOptions(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		s.log.Warn().Err(err).
			Str("session_id", sessionID.String()).
			Msg("Answer cache unreadable, scoring from records only")
		return persisted, nil
	}
	return mergeAnswers(persisted, fields), nil
}

// mergeAnswers overlays cached hash fields onto the persisted answer map.
// The cache wins per question; unparseable fields are skipped.
func mergeAnswers(persisted map[uuid.UUID]int, cached map[string]string) map[uuid.UUID]int {
	selected := make(map[uuid.UUID]int, len(persisted)+len(cached))
	for qid, option := range persisted {
		selected[qid] = option
	}
	for rawQID, rawOption := range cached {
		qid, err := uuid.Parse(rawQID)
		if err != nil {
			continue
		}
		option, err := strconv.Atoi(rawOption)
		if err != nil {
			continue
		}
		selected[qid] = option
	}
	return selected
}

// cleanupHotState drops the per-session Redis keys a finalized session no
// longer needs. The tally stays encoded in the stored result.
func (s *SessionService) cleanupHotState(ctx context.Context, session *model.ExamSession) {
	sid := session.ID.String()
	keys := []string{
		config.CacheKey.SessionAnswersKey(sid),
		config.CacheKey.SessionScoreSheetKey(sid),
		config.CacheKey.SessionPaperKey(sid),
		config.CacheKey.SessionViolationTallyKey(sid),
		config.CacheKey.UserActiveSessionKey(session.UserID),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Hot state cleanup failed")
	}
}
