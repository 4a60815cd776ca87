package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// SnapshotRepository stores named explorer snapshots as JSONB rows.
type SnapshotRepository struct {
	db      queryExecutor
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

var _ explorer.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a SnapshotRepository over conn.
func NewSnapshotRepository(conn *postgres.Connection, logger logging.Logger) *SnapshotRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SnapshotRepository{db: conn.DB(), logger: logger}
}

// WithMetrics records query latency in m.
func (r *SnapshotRepository) WithMetrics(m *prometheus.AppMetrics) *SnapshotRepository {
	r.metrics = m
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────────────────

// Save inserts rec, replacing the name and payload of an existing id.
func (r *SnapshotRepository) Save(ctx context.Context, rec *explorer.SnapshotRecord) (err error) {
	if rec == nil || rec.ID == "" || rec.SessionID == "" {
		return errors.InvalidParam("snapshot id and session id are required")
	}
	defer r.observe("save_snapshot", time.Now(), &err)

	payload, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode snapshot")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, session_id, name, version, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, payload = EXCLUDED.payload`,
		rec.ID, rec.SessionID, rec.Name, rec.Snapshot.Version, payload, rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("SnapshotRepository.Save", logging.String("id", rec.ID), logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to save snapshot")
	}
	r.logger.Debug("snapshot saved", logging.String("id", rec.ID), logging.String("session_id", rec.SessionID))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// Get loads one snapshot by id.
func (r *SnapshotRepository) Get(ctx context.Context, id string) (rec *explorer.SnapshotRecord, err error) {
	defer r.observe("get_snapshot", time.Now(), &err)

	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, payload, created_at
		FROM snapshots WHERE id = $1`, id)
	rec, err = scanSnapshot(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.CodeSnapshotNotFound, "snapshot not found").WithDetail("id=" + id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns a session's snapshots, newest first.
func (r *SnapshotRepository) List(ctx context.Context, sessionID string, limit int) (out []*explorer.SnapshotRecord, err error) {
	defer r.observe("list_snapshots", time.Now(), &err)

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, name, payload, created_at
		FROM snapshots WHERE session_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list snapshots")
	}
	defer rows.Close()

	out = make([]*explorer.SnapshotRecord, 0)
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to iterate snapshots")
	}
	return out, nil
}

// Delete removes a snapshot.
func (r *SnapshotRepository) Delete(ctx context.Context, id string) (err error) {
	defer r.observe("delete_snapshot", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to delete snapshot")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to delete snapshot")
	}
	if n == 0 {
		return errors.New(errors.CodeSnapshotNotFound, "snapshot not found").WithDetail("id=" + id)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanSnapshot(s scanner) (*explorer.SnapshotRecord, error) {
	var (
		rec     explorer.SnapshotRecord
		payload []byte
	)
	if err := s.Scan(&rec.ID, &rec.SessionID, &rec.Name, &payload, &rec.CreatedAt); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan snapshot")
	}
	if err := json.Unmarshal(payload, &rec.Snapshot); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotIncomplete, "stored snapshot is unreadable").WithDetail("id=" + rec.ID)
	}
	return &rec, nil
}

func (r *SnapshotRepository) observe(op string, start time.Time, err *error) {
	if r.metrics == nil {
		return
	}
	var e error
	if err != nil && !errors.IsNotFound(*err) {
		e = *err
	}
	prometheus.RecordDBQuery(r.metrics, "postgres", op, time.Since(start), e)
}
