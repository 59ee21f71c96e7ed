package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
)

// ViolationRepository handles the append-only violation log.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// Insert appends a single violation record.
func (r *ViolationRepository) Insert(ctx context.Context, v *model.ViolationRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO violation_records (session_id, kind, severity, detail, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		v.SessionID, v.Kind, v.Severity, v.Detail, v.RecordedAt,
	).Scan(&v.ID)
}

// BulkInsert appends a batch of violation records in one COPY.
func (r *ViolationRepository) BulkInsert(ctx context.Context, batch []*model.ViolationRecord) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, v := range batch {
		rows = append(rows, []interface{}{
			v.SessionID, v.Kind, v.Severity, v.Detail, v.RecordedAt,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violation_records"},
		[]string{"session_id", "kind", "severity", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// ListBySession returns the ordered violation log for a session.
func (r *ViolationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ViolationRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, kind, severity, detail, recorded_at
		 FROM violation_records
		 WHERE session_id = $1
		 ORDER BY recorded_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ViolationRecord
	for rows.Next() {
		var v model.ViolationRecord
		if err := rows.Scan(&v.ID, &v.SessionID, &v.Kind, &v.Severity, &v.Detail, &v.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, v)
	}
	return records, rows.Err()
}

// TallyBySession rebuilds the aggregate tally from persisted records.
// PostgreSQL fallback for when the Redis tally hash is gone.
func (r *ViolationRepository) TallyBySession(ctx context.Context, sessionID uuid.UUID) (model.ViolationTally, error) {
	records, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return model.ViolationTally{}, err
	}
	var tally model.ViolationTally
	for _, v := range records {
		tally.Add(v.Kind, v.Severity)
	}
	return tally, nil
}
