package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/profile-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	subject_id   TEXT PRIMARY KEY,
	data         TEXT NOT NULL,
	completeness REAL NOT NULL DEFAULT 0,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id         TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	result     TEXT NOT NULL,
	errors     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_profiles_completeness ON profiles(completeness);
CREATE INDEX IF NOT EXISTS idx_enrichment_runs_subject ON enrichment_runs(subject_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadProfile(ctx context.Context, subjectID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE subject_id = ?`, subjectID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load profile %s", subjectID)
	}
	return []byte(data), nil
}

const sqliteUpsertProfile = `INSERT INTO profiles (subject_id, data, completeness, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(subject_id) DO UPDATE SET data = excluded.data, completeness = excluded.completeness, updated_at = excluded.updated_at`

// sqliteImportProfile keeps a stored row that is newer than the incoming one.
const sqliteImportProfile = sqliteUpsertProfile + ` WHERE profiles.updated_at <= excluded.updated_at`

func (s *SQLiteStore) SaveProfile(ctx context.Context, subjectID string, p model.Profile, completeness float64) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}
	_, err = s.db.ExecContext(ctx, sqliteUpsertProfile, subjectID, string(data), completeness, time.Now().UTC())
	return eris.Wrapf(err, "sqlite: save profile %s", subjectID)
}

// SaveProfiles upserts records in one transaction. A record older than the
// stored row for its subject is skipped.
func (s *SQLiteStore) SaveProfiles(ctx context.Context, records []ProfileRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteImportProfile)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var written int64
	for _, r := range records {
		updated := r.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		res, err := stmt.ExecContext(ctx, r.SubjectID, string(r.Data), r.Completeness, updated.UTC())
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert profile %s", r.SubjectID)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return written, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, subjectID string) (*ProfileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subject_id, data, completeness, updated_at FROM profiles WHERE subject_id = ?`, subjectID,
	)
	r, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", subjectID)
	}
	return r, nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]ProfileRecord, error) {
	query := `SELECT subject_id, data, completeness, updated_at FROM profiles WHERE completeness >= ?
		ORDER BY updated_at DESC LIMIT ?`
	args := []any{filter.MinCompleteness, listLimit(filter.Limit)}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close()

	var out []ProfileRecord
	for rows.Next() {
		r, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list profiles iterate")
}

func (s *SQLiteStore) RecordRun(ctx context.Context, subjectID string, result model.EnrichmentRunResult) (*RunRecord, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run result")
	}

	rec := &RunRecord{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichment_runs (id, subject_id, result, errors, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, subjectID, string(resultJSON), result.Errors, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for %s", subjectID)
	}
	return rec, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, subjectID string, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, result, created_at FROM enrichment_runs
		 WHERE subject_id = ? ORDER BY created_at DESC LIMIT ?`,
		subjectID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var resultJSON string
		if err := rows.Scan(&r.ID, &r.SubjectID, &resultJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run result")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProfile(row scannable) (*ProfileRecord, error) {
	var r ProfileRecord
	var data string
	if err := row.Scan(&r.SubjectID, &data, &r.Completeness, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Data = json.RawMessage(data)
	return &r, nil
}
