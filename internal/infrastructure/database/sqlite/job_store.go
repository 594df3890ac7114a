// Package sqlite keeps enrichment job state in a local SQLite file for
// single-node deployments that run without Redis.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// JobStore persists jobs as JSON rows. Rows older than the retention window
// are pruned on every Save.
type JobStore struct {
	db        *sql.DB
	retention time.Duration
	logger    logging.Logger
	now       func() time.Time
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string, retention time.Duration, log logging.Logger) (*JobStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "opening job database")
	}
	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	version, _, _ := MigrationStatus(db)
	log.Info("SQLite job store opened", logging.String("path", path), logging.Int("schema_version", int(version)))
	return &JobStore{db: db, retention: retention, logger: log, now: time.Now}, nil
}

// Save upserts job.
func (s *JobStore) Save(ctx context.Context, job *enrichment.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding job")
	}
	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs (id, status, payload, updated_at) VALUES (?, ?, ?, ?)`,
		job.ID, string(job.Status), string(payload), now.Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "saving job")
	}

	cutoff := now.Add(-s.retention).Format(time.RFC3339Nano)
	if res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE updated_at < ?`, cutoff); err != nil {
		s.logger.Warn("Failed to prune expired jobs", logging.Err(err))
	} else if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("Pruned expired jobs", logging.Int64("count", n))
	}
	return nil
}

// Get loads a job by ID. Jobs past the retention window are reported missing.
func (s *JobStore) Get(ctx context.Context, id string) (*enrichment.Job, error) {
	var payload, updated string
	err := s.db.QueryRowContext(ctx, `SELECT payload, updated_at FROM jobs WHERE id = ?`, id).Scan(&payload, &updated)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeJobNotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading job")
	}
	if ts, perr := time.Parse(time.RFC3339Nano, updated); perr == nil && s.now().Sub(ts) > s.retention {
		return nil, errors.Newf(errors.ErrCodeJobNotFound, "job %s not found", id)
	}

	var job enrichment.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding job")
	}
	return &job, nil
}

// Close closes the database.
func (s *JobStore) Close() error {
	return s.db.Close()
}
