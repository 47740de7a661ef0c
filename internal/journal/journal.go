// Package journal persists forest mutations as an append-only event log in
// SQLite. The in-memory forest is rebuilt on startup by replaying the log
// in sequence order, so every CLI invocation sees the state left by the
// previous one.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/lineage/internal/identity"
)

// Event kinds.
const (
	KindRegister = "register"
	KindRefer    = "refer"
)

// ErrUnknownKind is returned by Replay for an event kind it cannot apply.
var ErrUnknownKind = errors.New("unknown event kind")

const schema = `
CREATE TABLE IF NOT EXISTS events (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    kind        TEXT NOT NULL,
    subject     TEXT NOT NULL,
    object      TEXT NOT NULL DEFAULT '',
    session     TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Event is one journal row. For register events Subject is the address;
// for refer events Subject is the referrer and Object the candidate.
type Event struct {
	Seq        int64     `json:"seq"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Object     string    `json:"object,omitempty"`
	Session    string    `json:"session,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Applier receives replayed events. *referral.Forest satisfies it.
type Applier interface {
	Register(address string) (identity.Identity, bool, error)
	CreateReferral(referrer, candidate string) error
}

// Journal is a SQLite-backed event log.
type Journal struct {
	db      *sql.DB
	session string
	log     logrus.FieldLogger
}

// Option configures a Journal.
type Option func(*Journal)

// WithSession tags appended events with id instead of a fresh UUID.
func WithSession(id string) Option {
	return func(j *Journal) { j.session = id }
}

// WithLogger sets the journal's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(j *Journal) { j.log = log }
}

// Open opens (or creates) the journal at path, creating parent directories
// as needed.
func Open(ctx context.Context, path string, opts ...Option) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// SQLite has a single writer; one pooled connection keeps PRAGMAs in
	// effect for every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	j := &Journal{db: db, session: uuid.NewString()}
	for _, o := range opts {
		o(j)
	}
	if j.log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		j.log = discard
	}
	return j, nil
}

// Session returns the id stamped on events appended through j.
func (j *Journal) Session() string {
	return j.session
}

// Append records one event and returns its sequence number.
func (j *Journal) Append(ctx context.Context, kind, subject, object string) (int64, error) {
	const q = `INSERT INTO events (kind, subject, object, session) VALUES (?, ?, ?, ?)`
	res, err := j.db.ExecContext(ctx, q, kind, subject, object, j.session)
	if err != nil {
		return 0, fmt.Errorf("journal: append %s %q: %w", kind, subject, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: append %s sequence: %w", kind, err)
	}
	j.log.WithFields(logrus.Fields{"seq": seq, "kind": kind, "subject": subject}).Debug("journal append")
	return seq, nil
}

// RecordRegister appends a register event for address.
func (j *Journal) RecordRegister(ctx context.Context, address string) error {
	_, err := j.Append(ctx, KindRegister, address, "")
	return err
}

// RecordReferral appends a refer event.
func (j *Journal) RecordReferral(ctx context.Context, referrer, candidate string) error {
	_, err := j.Append(ctx, KindRefer, referrer, candidate)
	return err
}

// Events returns every event in sequence order.
func (j *Journal) Events(ctx context.Context) ([]Event, error) {
	const q = `SELECT seq, kind, subject, object, session, recorded_at FROM events ORDER BY seq`
	rows, err := j.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("journal: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var ts string
		if err := rows.Scan(&e.Seq, &e.Kind, &e.Subject, &e.Object, &e.Session, &ts); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		if e.RecordedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("journal: event %d: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate events: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded events.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count events: %w", err)
	}
	return n, nil
}

// Replay applies every event to a in sequence order and returns how many
// were applied. The first failure stops the replay and is wrapped with its
// sequence number.
func (j *Journal) Replay(ctx context.Context, a Applier) (int, error) {
	events, err := j.Events(ctx)
	if err != nil {
		return 0, err
	}
	for i, e := range events {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("journal: replay interrupted at %d: %w", e.Seq, err)
		}
		if err := apply(a, e); err != nil {
			return i, fmt.Errorf("journal: replay event %d (%s): %w", e.Seq, e.Kind, err)
		}
	}
	j.log.WithField("events", len(events)).Debug("journal replayed")
	return len(events), nil
}

func apply(a Applier, e Event) error {
	switch e.Kind {
	case KindRegister:
		_, _, err := a.Register(e.Subject)
		return err
	case KindRefer:
		return a.CreateReferral(e.Subject, e.Object)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// Close closes the database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	return nil
}

// parseTimestamp accepts the layouts SQLite drivers produce for
// CURRENT_TIMESTAMP: RFC 3339 from modernc.org/sqlite, space-separated
// from canonical SQLite.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
