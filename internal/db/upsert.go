package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a keyed table that rows are merged into, such as
// profiles keyed by subject_id.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // column order of each row
	ConflictKeys []string // unique key the merge matches on
	UpdateCols   []string // columns overwritten on a match; nil means every non-key column

	// NewerColumn, when set, names a timestamp column that guards the merge.
	// Duplicate keys within one batch collapse to the newest row and an
	// existing row is only overwritten by a row at least as new.
	NewerColumn string
}

func (c UpsertConfig) validate() error {
	switch {
	case len(c.Columns) == 0:
		return eris.New("db: upsert: no columns specified")
	case len(c.ConflictKeys) == 0:
		return eris.New("db: upsert: no conflict keys specified")
	case c.NewerColumn != "" && !slices.Contains(c.Columns, c.NewerColumn):
		return eris.Errorf("db: upsert: newer column %q is not among the columns", c.NewerColumn)
	}
	return nil
}

func (c UpsertConfig) updateColumns() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	var cols []string
	for _, col := range c.Columns {
		if !slices.Contains(c.ConflictKeys, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// mergeSQL moves the staged rows into the target table.
func (c UpsertConfig) mergeSQL() string {
	staging := pgx.Identifier{StagingTable(c.Table)}.Sanitize()
	cols := quoteAndJoin(c.Columns)
	keys := quoteAndJoin(c.ConflictKeys)

	sets := make([]string, 0, len(c.Columns))
	for _, col := range c.updateColumns() {
		id := pgx.Identifier{col}.Sanitize()
		sets = append(sets, id+" = EXCLUDED."+id)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s AS target (%s) SELECT ", sanitizeTable(c.Table), cols)
	if c.NewerColumn != "" {
		fmt.Fprintf(&b, "DISTINCT ON (%s) ", keys)
	}
	fmt.Fprintf(&b, "%s FROM %s", cols, staging)
	if c.NewerColumn != "" {
		fmt.Fprintf(&b, " ORDER BY %s, %s DESC", keys, pgx.Identifier{c.NewerColumn}.Sanitize())
	}
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", keys, strings.Join(sets, ", "))
	if c.NewerColumn != "" {
		newer := pgx.Identifier{c.NewerColumn}.Sanitize()
		fmt.Fprintf(&b, " WHERE target.%s <= EXCLUDED.%s", newer, newer)
	}
	return b.String()
}

// BulkUpsert COPYs rows into a per-transaction staging table and merges
// them into cfg.Table with INSERT ... ON CONFLICT. It returns the number of
// target rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx)

	staging := StagingTable(cfg.Table)
	ddl := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{staging}.Sanitize(), sanitizeTable(cfg.Table))
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy %d rows for %s", len(rows), cfg.Table)
	}

	tag, err := tx.Exec(ctx, cfg.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// StagingTable is the temp table BulkUpsert copies rows for table into.
func StagingTable(table string) string {
	return "_staging_" + strings.ReplaceAll(table, ".", "_")
}

// sanitizeTable quotes a table name, keeping an "app.profiles" style schema
// prefix as its own identifier.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
