package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/leafgrid/catalog-sync/internal/model"
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
CREATE TABLE IF NOT EXISTS import_queue (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	url          TEXT NOT NULL UNIQUE,
	product_hash TEXT NOT NULL,
	produktname  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'READY',
	match_info   TEXT,
	scraped_data TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_import_queue_status ON import_queue(status);
CREATE INDEX IF NOT EXISTS idx_import_queue_product_hash ON import_queue(product_hash);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert writes the entry keyed by URL. The conditional update leaves rows
// in terminal statuses untouched in a single statement, so concurrent
// reviewer writes cannot race the scraper into clobbering a decision.
func (s *SQLiteStore) Upsert(ctx context.Context, entry *model.QueueEntry) error {
	scrapedJSON, err := json.Marshal(entry.Scraped)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scraped data")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_queue (url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			product_hash = excluded.product_hash,
			produktname  = excluded.produktname,
			status       = excluded.status,
			match_info   = excluded.match_info,
			scraped_data = excluded.scraped_data,
			updated_at   = excluded.updated_at
		 WHERE import_queue.status NOT IN ('PROCESSED', 'IGNORED')`,
		entry.URL, entry.ProductHash, entry.ProductName, string(entry.Status),
		nullable(entry.MatchInfo), string(scrapedJSON), now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert %s", entry.URL)
}

func (s *SQLiteStore) GetByURL(ctx context.Context, url string) (*model.QueueEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at
		 FROM import_queue WHERE url = ?`,
		url,
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", url)
	}
	return e, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*model.QueueEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at
		 FROM import_queue WHERE id = ?`,
		id,
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get id %d", id)
	}
	return e, nil
}

func (s *SQLiteStore) ListByStatus(ctx context.Context, statuses []model.Status) ([]model.QueueEntry, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, product_hash, produktname, status, match_info, scraped_data, created_at, updated_at
		 FROM import_queue WHERE status IN (`+placeholders+`) ORDER BY id DESC`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list by status")
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list iterate")
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id int64, status model.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_queue SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set status %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("entry not found: %d", id)
	}
	return nil
}

// helpers

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*model.QueueEntry, error) {
	var e model.QueueEntry
	var status string
	var matchInfo sql.NullString
	var scrapedJSON string

	err := row.Scan(&e.ID, &e.URL, &e.ProductHash, &e.ProductName, &status,
		&matchInfo, &scrapedJSON, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Status = model.Status(status)
	e.MatchInfo = matchInfo.String
	if err := json.Unmarshal([]byte(scrapedJSON), &e.Scraped); err != nil {
		return nil, eris.Wrap(err, "unmarshal scraped data")
	}
	return &e, nil
}
