// Package store keeps the bot's durable state in a single SQLite file:
// mailing subscribers, mailing history, per-chat reading positions and the
// AI answer cache.
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscribers (
	chat_id    INTEGER PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mailing_iterations (
	id            TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	chapter_index INTEGER NOT NULL,
	verse_start   INTEGER NOT NULL,
	sent          INTEGER NOT NULL,
	failed        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	chat_id       INTEGER PRIMARY KEY,
	chapter_index INTEGER NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_responses (
	key        TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_requests (
	chat_id INTEGER NOT NULL,
	day     TEXT NOT NULL,
	count   INTEGER NOT NULL,
	PRIMARY KEY (chat_id, day)
);
`

// Store wraps a SQLite connection pool. Safe for concurrent use.
type Store struct {
	pool *sqlitex.Pool
	log  *zap.Logger
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL,
		PoolSize: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open database %s: %w", path, err)
	}

	s := &Store{pool: pool, log: log}
	if err := s.init(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	log.Debug("Opened database", zap.String("path", path))
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("unable to apply database schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Subscribe adds a chat to the mailing list. Reports whether the chat was
// newly added.
func (s *Store) Subscribe(ctx context.Context, chatID int64) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO subscribers (chat_id, created_at) VALUES (?, ?) ON CONFLICT (chat_id) DO NOTHING`,
		&sqlitex.ExecOptions{Args: []any{chatID, now()}})
	if err != nil {
		return false, fmt.Errorf("unable to subscribe chat %d: %w", chatID, err)
	}
	return conn.Changes() > 0, nil
}

// Unsubscribe removes a chat from the mailing list. Reports whether the
// chat was present.
func (s *Store) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM subscribers WHERE chat_id = ?`,
		&sqlitex.ExecOptions{Args: []any{chatID}})
	if err != nil {
		return false, fmt.Errorf("unable to unsubscribe chat %d: %w", chatID, err)
	}
	return conn.Changes() > 0, nil
}

// IsSubscribed reports whether a chat is on the mailing list.
func (s *Store) IsSubscribed(ctx context.Context, chatID int64) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, err
	}
	defer s.pool.Put(conn)

	var found bool
	err = sqlitex.Execute(conn,
		`SELECT 1 FROM subscribers WHERE chat_id = ?`,
		&sqlitex.ExecOptions{
			Args:       []any{chatID},
			ResultFunc: func(*sqlite.Stmt) error { found = true; return nil },
		})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Subscribers returns every subscribed chat in subscription order.
func (s *Store) Subscribers(ctx context.Context) ([]int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var out []int64
	err = sqlitex.Execute(conn,
		`SELECT chat_id FROM subscribers ORDER BY created_at, chat_id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MailingIteration is one completed mailing run.
type MailingIteration struct {
	ID           string
	StartedAt    time.Time
	ChapterIndex int
	VerseStart   int
	Sent         int
	Failed       int
}

// RecordMailing stores a completed mailing run.
func (s *Store) RecordMailing(ctx context.Context, it MailingIteration) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO mailing_iterations (id, started_at, chapter_index, verse_start, sent, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			it.ID,
			it.StartedAt.UTC().Format(time.RFC3339),
			it.ChapterIndex,
			it.VerseStart,
			it.Sent,
			it.Failed,
		}})
	if err != nil {
		return fmt.Errorf("unable to record mailing %s: %w", it.ID, err)
	}
	return nil
}

// LastMailing returns the most recent mailing run, if any.
func (s *Store) LastMailing(ctx context.Context) (MailingIteration, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return MailingIteration{}, false, err
	}
	defer s.pool.Put(conn)

	var (
		it    MailingIteration
		found bool
	)
	err = sqlitex.Execute(conn,
		`SELECT id, started_at, chapter_index, verse_start, sent, failed FROM mailing_iterations ORDER BY started_at DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				it.ID = stmt.ColumnText(0)
				if t, err := time.Parse(time.RFC3339, stmt.ColumnText(1)); err == nil {
					it.StartedAt = t
				}
				it.ChapterIndex = int(stmt.ColumnInt64(2))
				it.VerseStart = int(stmt.ColumnInt64(3))
				it.Sent = int(stmt.ColumnInt64(4))
				it.Failed = int(stmt.ColumnInt64(5))
				return nil
			},
		})
	if err != nil {
		return MailingIteration{}, false, err
	}
	return it, found, nil
}

// SaveSession stores a chat's current chapter so reading survives restarts.
func (s *Store) SaveSession(ctx context.Context, chatID int64, chapterIndex int) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO sessions (chat_id, chapter_index, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET chapter_index = excluded.chapter_index, updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{Args: []any{chatID, chapterIndex, now()}})
	if err != nil {
		return fmt.Errorf("unable to save session for chat %d: %w", chatID, err)
	}
	return nil
}

// LoadSession returns a chat's stored chapter position.
func (s *Store) LoadSession(ctx context.Context, chatID int64) (int, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, false, err
	}
	defer s.pool.Put(conn)

	var (
		chapter int
		found   bool
	)
	err = sqlitex.Execute(conn,
		`SELECT chapter_index FROM sessions WHERE chat_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{chatID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				chapter = int(stmt.ColumnInt64(0))
				found = true
				return nil
			},
		})
	if err != nil {
		return 0, false, err
	}
	return chapter, found, nil
}

// CachedAIResponse looks up a previously stored answer by cache key.
func (s *Store) CachedAIResponse(ctx context.Context, key string) (string, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, err
	}
	defer s.pool.Put(conn)

	var (
		response string
		found    bool
	)
	err = sqlitex.Execute(conn,
		`SELECT response FROM ai_responses WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				response = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, err
	}
	return response, found, nil
}

// SaveAIResponse stores an answer under its cache key, replacing any
// previous one.
func (s *Store) SaveAIResponse(ctx context.Context, key, model, response string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO ai_responses (key, model, response, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET model = excluded.model, response = excluded.response, created_at = excluded.created_at`,
		&sqlitex.ExecOptions{Args: []any{key, model, response, now()}})
	if err != nil {
		return fmt.Errorf("unable to cache response for %s: %w", key, err)
	}
	return nil
}

// Today is the day key for AI request accounting.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// AIRequestCount returns how many AI requests a chat made on the given day.
func (s *Store) AIRequestCount(ctx context.Context, chatID int64, day string) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	var count int
	err = sqlitex.Execute(conn,
		`SELECT count FROM ai_requests WHERE chat_id = ? AND day = ?`,
		&sqlitex.ExecOptions{
			Args: []any{chatID, day},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RecordAIRequest counts one AI request against the chat's daily total.
func (s *Store) RecordAIRequest(ctx context.Context, chatID int64, day string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO ai_requests (chat_id, day, count) VALUES (?, ?, 1)
		 ON CONFLICT (chat_id, day) DO UPDATE SET count = count + 1`,
		&sqlitex.ExecOptions{Args: []any{chatID, day}})
	if err != nil {
		return fmt.Errorf("unable to record AI request for chat %d: %w", chatID, err)
	}
	return nil
}
