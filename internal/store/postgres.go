package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadfunnel/internal/db"
	"github.com/sells-group/leadfunnel/internal/model"
)

// PostgresStore implements Store on a pgx pool. Per-conversation errors are
// also copied into sync_run_errors for querying.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status       TEXT NOT NULL DEFAULT 'running',
	teams        JSONB NOT NULL,
	summary      JSONB,
	processed    INTEGER NOT NULL DEFAULT 0,
	created_opps INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sync_run_errors (
	run_id  TEXT NOT NULL REFERENCES sync_runs(id),
	message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_sync_run_errors_run_id ON sync_run_errors(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, teams []string) (*model.SyncRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if teams == nil {
		teams = []string{}
	}

	teamsJSON, err := json.Marshal(teams)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal teams")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, status, teams, started_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.SyncStatusRunning), teamsJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.SyncRun{
		ID:        id,
		Status:    model.SyncStatusRunning,
		Teams:     teams,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.SyncStatus, summary *model.SyncSummary) error {
	var summaryJSON []byte
	var processed, created int
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = b
		processed, created = summary.Processed, summary.CreatedOpps
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, summary = $2, processed = $3, created_opps = $4, finished_at = $5 WHERE id = $6`,
		string(status), summaryJSON, processed, created, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}

	if summary == nil || len(summary.Errors) == 0 {
		return nil
	}
	rows := make([][]any, len(summary.Errors))
	for i, msg := range summary.Errors {
		rows[i] = []any{runID, msg}
	}
	if _, err := db.CopyFrom(ctx, s.pool, "sync_run_errors", []string{"run_id", "message"}, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy errors for run %s", runID)
	}
	return nil
}

const selectRun = `SELECT id, status, teams, summary, started_at, finished_at FROM sync_runs`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.SyncRun, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, selectRun+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run %s: run not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.SyncRun, error) {
	query := selectRun + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.SyncRun, error) {
	var r model.SyncRun
	var status string
	var teamsJSON, summaryJSON []byte
	var finishedAt *time.Time

	if err := row.Scan(&r.ID, &status, &teamsJSON, &summaryJSON, &r.StartedAt, &finishedAt); err != nil {
		return nil, err
	}

	r.Status = model.SyncStatus(status)
	r.FinishedAt = finishedAt
	if err := json.Unmarshal(teamsJSON, &r.Teams); err != nil {
		return nil, eris.Wrap(err, "unmarshal teams")
	}
	if summaryJSON != nil {
		r.Summary = &model.SyncSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "unmarshal summary")
		}
	}
	return &r, nil
}
