package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/khaliqhussainn/certexam-engine/internal/config"
	"github.com/khaliqhussainn/certexam-engine/internal/service"
)

// sweepBatchSize bounds how many sessions one sweep pass touches.
const sweepBatchSize = 100

// ExpiryWorker is the out-of-band deadline sweeper. Lazy expiry already
// catches sessions whose clients keep interacting; this worker catches the
// rest, so an abandoned session still reaches EXPIRED within one sweep
// interval of its deadline. It also turns prolonged heartbeat silence into
// connectivity-loss signals.
type ExpiryWorker struct {
	sessions *service.SessionService
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(sessions *service.SessionService, cfg *config.Config, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sessions: sessions,
		interval: cfg.ExpirySweepInterval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	expired, err := w.sessions.ExpireOverdue(ctx, sweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("Overdue sweep failed")
	} else if expired > 0 {
		w.log.Info().Int("count", expired).Msg("Expired overdue sessions")
	}

	flagged, err := w.sessions.SweepSilentHeartbeats(ctx, sweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("Silent heartbeat sweep failed")
	} else if flagged > 0 {
		w.log.Info().Int("count", flagged).Msg("Flagged silent sessions")
	}
}
