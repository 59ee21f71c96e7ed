package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khaliqhussainn/certexam-engine/internal/config"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
	"github.com/khaliqhussainn/certexam-engine/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// severityTable maps each signal kind to its fixed default severity.
// Table-driven so new kinds can be added without touching escalation logic.
var severityTable = map[model.SignalKind]model.Severity{
	model.SignalTabSwitch:         model.SeverityHigh,
	model.SignalForbiddenShortcut: model.SeverityHigh,
	model.SignalVMDetected:        model.SeverityHigh,
	model.SignalTrustMismatch:     model.SeverityHigh,
	model.SignalFullscreenExit:    model.SeverityMedium,
	model.SignalNavigationAway:    model.SeverityMedium,
	model.SignalConnectivityLoss:  model.SeverityMedium,
	model.SignalInactivity:        model.SeverityMedium,
	model.SignalWindowResize:      model.SeverityLow,
	model.SignalContextMenu:       model.SeverityLow,
}

// Classify maps a signal kind to its severity. ok=false for kinds outside
// the table; those are rejected, not guessed at.
func Classify(kind model.SignalKind) (model.Severity, bool) {
	sev, ok := severityTable[kind]
	return sev, ok
}

// violationPayload is the queue wire format consumed by the violation worker.
type violationPayload struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	Detail    string `json:"detail"`
	Timestamp int64  `json:"timestamp"`
}

// MonitorService classifies client-reported signals into violation records,
// maintains the running tally, and reports the escalation decision. It never
// terminates a session itself; that is the session service acting on the
// returned decision.
type MonitorService struct {
	violationRepo *repository.ViolationRepository
	rdb           *redis.Client
	policy        EscalationPolicy
	log           zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(violationRepo *repository.ViolationRepository, rdb *redis.Client, policy EscalationPolicy, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		violationRepo: violationRepo,
		rdb:           rdb,
		policy:        policy,
		log:           log.With().Str("component", "integrity_monitor").Logger(),
	}
}

// Record appends one violation, folds it into the tally, and returns the
// escalation decision for the updated cumulative log.
func (m *MonitorService) Record(ctx context.Context, sessionID uuid.UUID, kind model.SignalKind, detail string) (model.EscalationAction, error) {
	sev, ok := Classify(kind)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSignal, kind)
	}

	now := time.Now()
	m.append(ctx, sessionID, kind, sev, detail, now)

	tally, err := m.bumpTally(ctx, sessionID, kind, sev)
	if err != nil {
		return "", fmt.Errorf("update tally: %w", err)
	}

	action := m.policy.Evaluate(tally)

	m.log.Info().
		Str("session_id", sessionID.String()).
		Str("kind", string(kind)).
		Str("severity", string(sev)).
		Int("total", tally.Total).
		Int("high", tally.High).
		Str("action", string(action)).
		Msg("Violation recorded")

	return action, nil
}

// RecordAudit appends a violation without tallying or policy evaluation.
// Used for signals arriving after a session reached a terminal state: the
// caller still rejects them, but they are never silently dropped.
func (m *MonitorService) RecordAudit(ctx context.Context, sessionID uuid.UUID, kind model.SignalKind, detail string) {
	sev, ok := Classify(kind)
	if !ok {
		return
	}
	m.append(ctx, sessionID, kind, sev, detail, time.Now())
}

// Tally returns the session's running aggregate, rebuilding it from
// PostgreSQL (and self-healing the cache) when Redis lost it.
func (m *MonitorService) Tally(ctx context.Context, sessionID uuid.UUID) (model.ViolationTally, error) {
	key := config.CacheKey.SessionViolationTallyKey(sessionID.String())

	fields, err := m.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return model.ViolationTally{}, fmt.Errorf("read tally: %w", err)
	}
	if len(fields) > 0 {
		return parseTally(fields), nil
	}

	// Cache miss. The queue-drained PostgreSQL log is the source of truth.
	tally, err := m.violationRepo.TallyBySession(ctx, sessionID)
	if err != nil {
		return model.ViolationTally{}, fmt.Errorf("rebuild tally: %w", err)
	}
	m.healTally(ctx, key, tally)
	return tally, nil
}

// append queues the record for batch persistence, falling back to a direct
// insert if Redis is unavailable. The log is append-only either way.
func (m *MonitorService) append(ctx context.Context, sessionID uuid.UUID, kind model.SignalKind, sev model.Severity, detail string, at time.Time) {
	payload, _ := json.Marshal(violationPayload{
		SessionID: sessionID.String(),
		Kind:      string(kind),
		Severity:  string(sev),
		Detail:    detail,
		Timestamp: at.Unix(),
	})

	if err := m.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		m.log.Warn().Err(err).Msg("Queue push failed, inserting violation directly")
		record := &model.ViolationRecord{
			SessionID:  sessionID,
			Kind:       kind,
			Severity:   sev,
			Detail:     detail,
			RecordedAt: at,
		}
		if err := m.violationRepo.Insert(ctx, record); err != nil {
			m.log.Error().Err(err).
				Str("session_id", sessionID.String()).
				Str("kind", string(kind)).
				Msg("CRITICAL: violation lost on both paths")
		}
	}
}

// bumpTally increments the counters atomically and returns the new totals.
// A missing key is reseeded from the persisted log first, so earlier
// violations keep counting toward escalation after Redis loses the hash.
func (m *MonitorService) bumpTally(ctx context.Context, sessionID uuid.UUID, kind model.SignalKind, sev model.Severity) (model.ViolationTally, error) {
	key := config.CacheKey.SessionViolationTallyKey(sessionID.String())

	exists, err := m.rdb.Exists(ctx, key).Result()
	if err != nil {
		return model.ViolationTally{}, err
	}
	if exists == 0 {
		tally, err := m.violationRepo.TallyBySession(ctx, sessionID)
		if err != nil {
			return model.ViolationTally{}, fmt.Errorf("rebuild tally: %w", err)
		}
		if tally.Total > 0 {
			m.healTally(ctx, key, tally)
		}
	}

	pipe := m.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, "total", 1)
	pipe.HIncrBy(ctx, key, strings.ToLower(string(sev)), 1)
	pipe.HIncrBy(ctx, key, "kind:"+string(kind), 1)
	getAll := pipe.HGetAll(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.ViolationTally{}, err
	}

	return parseTally(getAll.Val()), nil
}

func (m *MonitorService) healTally(ctx context.Context, key string, tally model.ViolationTally) {
	fields := map[string]interface{}{
		"total":  tally.Total,
		"high":   tally.High,
		"medium": tally.Medium,
		"low":    tally.Low,
	}
	for kind, n := range tally.ByKind {
		fields["kind:"+string(kind)] = n
	}
	if err := m.rdb.HSet(ctx, key, fields).Err(); err != nil {
		m.log.Warn().Err(err).Msg("Tally self-heal failed")
	}
}

func parseTally(fields map[string]string) model.ViolationTally {
	tally := model.ViolationTally{}
	for field, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		switch field {
		case "total":
			tally.Total = n
		case "high":
			tally.High = n
		case "medium":
			tally.Medium = n
		case "low":
			tally.Low = n
		default:
			if kind, ok := strings.CutPrefix(field, "kind:"); ok {
				if tally.ByKind == nil {
					tally.ByKind = make(map[model.SignalKind]int)
				}
				tally.ByKind[model.SignalKind(kind)] = n
			}
		}
	}
	return tally
}
