// Package offline keeps lead submissions that could not reach the service
// and replays them once connectivity returns.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// OpenDB opens (and creates if needed) the client database holding the
// submission queue and form drafts.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    payload BLOB NOT NULL,
    enqueued_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS drafts (
    form TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`)
	return err
}

type QueuedSubmission struct {
	ID         int64
	URL        string
	Payload    []byte
	EnqueuedAt time.Time
}

type Queue struct {
	db  *sql.DB
	now func() time.Time
}

func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

func (q *Queue) Enqueue(ctx context.Context, url string, payload []byte) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO queue(url, payload, enqueued_at) VALUES(?,?,?)`,
		url, payload, q.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("enqueue submission: %w", err)
	}
	return res.LastInsertId()
}

// Pending returns every queued entry, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]QueuedSubmission, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, url, payload, enqueued_at FROM queue ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var out []QueuedSubmission
	for rows.Next() {
		var (
			s  QueuedSubmission
			ms int64
		)
		if err := rows.Scan(&s.ID, &s.URL, &s.Payload, &ms); err != nil {
			return nil, err
		}
		s.EnqueuedAt = time.UnixMilli(ms).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queue) Remove(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, id)
	return err
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&n)
	return n, err
}

// Drafts autosaves partially filled forms, one blob per form name.
type Drafts struct {
	db  *sql.DB
	now func() time.Time
}

func NewDrafts(db *sql.DB) *Drafts {
	return &Drafts{db: db, now: time.Now}
}

func (d *Drafts) Save(ctx context.Context, form string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
INSERT INTO drafts(form, data, updated_at) VALUES(?,?,?)
ON CONFLICT(form) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		form, string(data), d.now().UnixMilli())
	return err
}

// Load returns an empty map when no draft exists.
func (d *Drafts) Load(ctx context.Context, form string) (map[string]any, error) {
	var data string
	err := d.db.QueryRowContext(ctx, `SELECT data FROM drafts WHERE form = ?`, form).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", form, err)
	}
	return fields, nil
}

func (d *Drafts) Clear(ctx context.Context, form string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM drafts WHERE form = ?`, form)
	return err
}
