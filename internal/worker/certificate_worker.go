package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/khaliqhussainn/certexam-engine/internal/config"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
	"github.com/khaliqhussainn/certexam-engine/internal/service"
)

// CertificateWorker consumes issue_certificates_queue and hands each passed
// result to the issuer exactly once per session. The queue only ever holds
// one event per session because finalization inserts the result row once,
// so delivery retries are the only source of repeats and the issuer side
// keys on session id.
type CertificateWorker struct {
	issuer service.CertificateIssuer
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewCertificateWorker creates a new CertificateWorker.
func NewCertificateWorker(issuer service.CertificateIssuer, rdb *redis.Client, log zerolog.Logger) *CertificateWorker {
	return &CertificateWorker{
		issuer: issuer,
		rdb:    rdb,
		log:    log.With().Str("component", "certificate_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *CertificateWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CertificateWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("CertificateWorker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *CertificateWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.IssueCertificatesQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var examResult model.ExamResult
	if err := json.Unmarshal([]byte(result[1]), &examResult); err != nil {
		w.log.Error().Err(err).Msg("Discarding malformed certificate event")
		return
	}

	if err := w.issuer.OnPassed(ctx, &examResult); err != nil {
		w.log.Error().Err(err).
			Str("session_id", examResult.SessionID.String()).
			Msg("Certificate delivery failed, retrying in 10s")
		// Push back for retry; the issuer deduplicates by session id.
		w.rdb.RPush(ctx, config.WorkerKey.IssueCertificatesQueue, result[1])
		time.Sleep(10 * time.Second)
		return
	}

	w.log.Info().
		Str("session_id", examResult.SessionID.String()).
		Int("user_id", examResult.UserID).
		Msg("Certificate event delivered")
}
