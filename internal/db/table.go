package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Table describes a bulk-write target: the table, the columns each row
// carries (in order) and, for Merge, the unique key.
type Table struct {
	Name    string // optionally schema-qualified
	Columns []string
	Key     []string
}

func (t Table) ident() pgx.Identifier {
	if schema, name, ok := strings.Cut(t.Name, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{t.Name}
}

func (t Table) stage() pgx.Identifier {
	return pgx.Identifier{"_stage_" + strings.ReplaceAll(t.Name, ".", "_")}
}

// Copy appends rows with the COPY protocol.
func (t Table) Copy(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := pool.CopyFrom(ctx, t.ident(), t.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy %d rows into %s", len(rows), t.Name)
	}
	return n, nil
}

// Merge upserts rows on t.Key. Rows are copied into a transaction-scoped
// staging table and merged with one INSERT ... ON CONFLICT, so a failure
// leaves the target untouched. Every non-key column is overwritten on
// conflict.
func (t Table) Merge(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := t.mergeSQL()
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: begin", t.Name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		t.stage().Sanitize(), t.ident().Sanitize())
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: create staging table", t.Name)
	}
	if _, err := tx.CopyFrom(ctx, t.stage(), t.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: stage %d rows", t.Name, len(rows))
	}
	tag, err := tx.Exec(ctx, stmt)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: insert on conflict", t.Name)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: commit", t.Name)
	}
	return tag.RowsAffected(), nil
}

func (t Table) mergeSQL() (string, error) {
	if len(t.Columns) == 0 {
		return "", eris.Errorf("db: merge %s: no columns", t.Name)
	}
	if len(t.Key) == 0 {
		return "", eris.Errorf("db: merge %s: no key columns", t.Name)
	}

	key := make(map[string]bool, len(t.Key))
	for _, k := range t.Key {
		key[k] = true
	}
	var sets []string
	for _, c := range t.Columns {
		if key[c] {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		sets = append(sets, q+" = EXCLUDED."+q)
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	cols := quoteList(t.Columns)
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		t.ident().Sanitize(), cols, cols, t.stage().Sanitize(), quoteList(t.Key), action), nil
}

func quoteList(cols []string) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{c}.Sanitize())
	}
	return b.String()
}
