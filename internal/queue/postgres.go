package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leafgrid/catalog-sync/internal/model"
)

// Pool is the minimal database pool interface used by PostgresStore.
// pgxpool.Pool satisfies it in production; pgxmock satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS import_queue (
	id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	product_hash TEXT NOT NULL,
	produktname  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'READY',
	match_info   TEXT,
	scraped_data JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_import_queue_status ON import_queue(status);
CREATE INDEX IF NOT EXISTS idx_import_queue_product_hash ON import_queue(product_hash);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, entry *model.QueueEntry) error {
	scrapedJSON, err := json.Marshal(entry.Scraped)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scraped data")
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_queue (url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (url) DO UPDATE SET
			product_hash = excluded.product_hash,
			produktname  = excluded.produktname,
			status       = excluded.status,
			match_info   = excluded.match_info,
			scraped_data = excluded.scraped_data,
			updated_at   = excluded.updated_at
		 WHERE import_queue.status NOT IN ('PROCESSED', 'IGNORED')`,
		entry.URL, entry.ProductHash, entry.ProductName, string(entry.Status),
		nullable(entry.MatchInfo), scrapedJSON, now, now,
	)
	return eris.Wrapf(err, "postgres: upsert %s", entry.URL)
}

func (s *PostgresStore) GetByURL(ctx context.Context, url string) (*model.QueueEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at
		 FROM import_queue WHERE url = $1`,
		url,
	)
	e, err := scanPgEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", url)
	}
	return e, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*model.QueueEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at
		 FROM import_queue WHERE id = $1`,
		id,
	)
	e, err := scanPgEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get id %d", id)
	}
	return e, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []model.Status) ([]model.QueueEntry, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = string(st)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at
		 FROM import_queue WHERE status IN (`+strings.Join(placeholders, ", ")+`) ORDER BY id DESC`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list by status")
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		e, err := scanPgEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list iterate")
}

func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status model.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_queue SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set status %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("entry not found: %d", id)
	}
	return nil
}

func scanPgEntry(row pgx.Row) (*model.QueueEntry, error) {
	var e model.QueueEntry
	var status string
	var matchInfo *string
	var scrapedJSON []byte

	err := row.Scan(&e.ID, &e.URL, &e.ProductHash, &e.ProductName, &status,
		&matchInfo, &scrapedJSON, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Status = model.Status(status)
	if matchInfo != nil {
		e.MatchInfo = *matchInfo
	}
	if err := json.Unmarshal(scrapedJSON, &e.Scraped); err != nil {
		return nil, eris.Wrap(err, "unmarshal scraped data")
	}
	return &e, nil
}
