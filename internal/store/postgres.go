package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/db"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	retry   resilience.RetryConfig
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"load_profile": `SELECT data FROM profiles WHERE subject_id = $1`,
	"save_profile": pgUpsertProfile,
	"get_profile":  `SELECT subject_id, data, completeness, updated_at FROM profiles WHERE subject_id = $1`,
	"insert_run":   `INSERT INTO enrichment_runs (id, subject_id, result, errors, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

const pgUpsertProfile = `INSERT INTO profiles (subject_id, data, completeness, updated_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (subject_id) DO UPDATE SET data = EXCLUDED.data, completeness = EXCLUDED.completeness, updated_at = EXCLUDED.updated_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close), nil
}

func newPostgresStore(pool db.Pool, closeFn func()) *PostgresStore {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = pgconn.SafeToRetry
	retry.OnRetry = resilience.RetryLogger("postgres", "save_profile")
	return &PostgresStore{pool: pool, retry: retry, closeFn: closeFn}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	subject_id   TEXT PRIMARY KEY,
	data         JSONB NOT NULL,
	completeness DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject_id TEXT NOT NULL,
	result     JSONB NOT NULL,
	errors     INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_profiles_completeness ON profiles(completeness);
CREATE INDEX IF NOT EXISTS idx_enrichment_runs_subject ON enrichment_runs(subject_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadProfile(ctx context.Context, subjectID string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM profiles WHERE subject_id = $1`, subjectID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load profile %s", subjectID)
	}
	return data, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, subjectID string, p model.Profile, completeness float64) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}
	now := time.Now().UTC()
	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, pgUpsertProfile, subjectID, data, completeness, now)
		return err
	})
	return eris.Wrapf(err, "postgres: save profile %s", subjectID)
}

var profileUpsert = db.UpsertConfig{
	Table:        "profiles",
	Columns:      []string{"subject_id", "data", "completeness", "updated_at"},
	ConflictKeys: []string{"subject_id"},
	NewerColumn:  "updated_at",
}

// SaveProfiles bulk-upserts records through COPY. A record older than the
// stored row for its subject is skipped.
func (s *PostgresStore) SaveProfiles(ctx context.Context, records []ProfileRecord) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		updated := r.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		rows = append(rows, []any{r.SubjectID, []byte(r.Data), r.Completeness, updated})
	}
	n, err := db.BulkUpsert(ctx, s.pool, profileUpsert, rows)
	return n, eris.Wrap(err, "postgres: save profiles")
}

func (s *PostgresStore) GetProfile(ctx context.Context, subjectID string) (*ProfileRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT subject_id, data, completeness, updated_at FROM profiles WHERE subject_id = $1`, subjectID,
	)
	var r ProfileRecord
	var data []byte
	err := row.Scan(&r.SubjectID, &data, &r.Completeness, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", subjectID)
	}
	r.Data = data
	return &r, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]ProfileRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT subject_id, data, completeness, updated_at FROM profiles
		 WHERE completeness >= $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		filter.MinCompleteness, listLimit(filter.Limit), max(filter.Offset, 0),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var out []ProfileRecord
	for rows.Next() {
		var r ProfileRecord
		var data []byte
		if err := rows.Scan(&r.SubjectID, &data, &r.Completeness, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		r.Data = data
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list profiles iterate")
}

func (s *PostgresStore) RecordRun(ctx context.Context, subjectID string, result model.EnrichmentRunResult) (*RunRecord, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run result")
	}

	rec := &RunRecord{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichment_runs (id, subject_id, result, errors, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, subjectID, resultJSON, result.Errors, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for %s", subjectID)
	}
	return rec, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, subjectID string, limit int) ([]RunRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, result, created_at FROM enrichment_runs
		 WHERE subject_id = $1 ORDER BY created_at DESC LIMIT $2`,
		subjectID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var resultJSON []byte
		if err := rows.Scan(&r.ID, &r.SubjectID, &resultJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(resultJSON, &r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run result")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
