package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/db"
	"github.com/sells-group/identity-trust/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	pingFn  func(ctx context.Context) error
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgInsertAssessment = `INSERT INTO assessments (` + assessmentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	pgGetAssessment    = `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`
	pgSearchPeople     = `SELECT id, data FROM people WHERE search LIKE $1 ESCAPE '\' ORDER BY name, id LIMIT $2`
)

var (
	assessmentsTable = db.Table{
		Name: "assessments",
		Columns: []string{
			"id", "query", "record_id", "name", "ts_raw", "cs",
			"dis_option1", "dis_option2", "breakdown", "created_at",
		},
	}
	peopleTable = db.Table{
		Name:    "people",
		Columns: []string{"id", "name", "search", "data", "updated_at"},
		Key:     []string{"id"},
	}
)

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_assessment": pgInsertAssessment,
	"get_assessment":    pgGetAssessment,
	"search_people":     pgSearchPeople,
}

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
	return &PostgresStore{pool: pool, closeFn: pool.Close, pingFn: pool.Ping}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS assessments (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	query       TEXT NOT NULL DEFAULT '',
	record_id   TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	ts_raw      DOUBLE PRECISION NOT NULL,
	cs          DOUBLE PRECISION NOT NULL,
	dis_option1 DOUBLE PRECISION NOT NULL,
	dis_option2 DOUBLE PRECISION NOT NULL,
	breakdown   JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS people (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	search     TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_assessments_record_id ON assessments(record_id);
CREATE INDEX IF NOT EXISTS idx_people_name ON people(name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pingFn != nil {
		return eris.Wrap(s.pingFn(ctx), "postgres: ping")
	}
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

func assessmentArgs(a *model.Assessment) ([]any, error) {
	prepareAssessment(a)
	breakdown, err := marshalBreakdown(a)
	if err != nil {
		return nil, err
	}
	return []any{
		a.ID, a.Query, a.RecordID, a.Name, a.TSRaw, a.CS, a.DISOption1, a.DISOption2,
		breakdown, a.CreatedAt.UTC(),
	}, nil
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, a *model.Assessment) error {
	args, err := assessmentArgs(a)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, pgInsertAssessment, args...)
	return eris.Wrapf(err, "postgres: insert assessment %s", a.ID)
}

// SaveAssessments writes a batch with the COPY protocol.
func (s *PostgresStore) SaveAssessments(ctx context.Context, as []model.Assessment) error {
	rows := make([][]any, 0, len(as))
	for i := range as {
		args, err := assessmentArgs(&as[i])
		if err != nil {
			return err
		}
		rows = append(rows, args)
	}
	_, err := assessmentsTable.Copy(ctx, s.pool, rows)
	return eris.Wrap(err, "postgres: save assessments")
}

func (s *PostgresStore) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	a, err := scanPgAssessment(s.pool.QueryRow(ctx, pgGetAssessment, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get assessment %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get assessment %s", id)
	}
	return a, nil
}

func (s *PostgresStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Query != "" {
		query += ` AND query = ` + arg(filter.Query)
	}
	if filter.RecordID != "" {
		query += ` AND record_id = ` + arg(filter.RecordID)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ` + arg(filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanPgAssessment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan assessment")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assessments iterate")
}

func (s *PostgresStore) CountAssessments(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count assessments")
}

// UpsertPeople merges records into the people table keyed on id.
func (s *PostgresStore) UpsertPeople(ctx context.Context, recs []model.Record) (int, error) {
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		p, err := toPersonRow(rec)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{p.ID, p.Name, p.Search, p.Data, time.Now().UTC()})
	}
	n, err := peopleTable.Merge(ctx, s.pool, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert people")
	}
	return int(n), nil
}

func (s *PostgresStore) SearchPeople(ctx context.Context, filter PeopleFilter) ([]model.Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := s.pool.Query(ctx, pgSearchPeople, likePattern(filter.Query), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search people")
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan person")
		}
		rec, err := fromPersonData(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search people iterate")
}

func scanPgAssessment(row pgx.Row) (*model.Assessment, error) {
	var a model.Assessment
	var breakdown []byte
	if err := row.Scan(&a.ID, &a.Query, &a.RecordID, &a.Name, &a.TSRaw, &a.CS,
		&a.DISOption1, &a.DISOption2, &breakdown, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalBreakdown(&a, breakdown); err != nil {
		return nil, err
	}
	return &a, nil
}
