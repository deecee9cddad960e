package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			structure JSON,
			text TEXT,
			updated_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, seq);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- DocumentRepository Implementation ---

func (s *SQLiteStore) Load(ctx context.Context, id string) (*brd.Document, error) {
	var structure sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT structure FROM documents WHERE id = ?`, id).Scan(&structure)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, brderr.New(brderr.DocumentStructureMissing, "no structured document stored for %s", id)
	}
	if err != nil {
		return nil, err
	}
	if !structure.Valid || strings.TrimSpace(structure.String) == "" {
		return nil, brderr.New(brderr.DocumentStructureMissing, "no structured document stored for %s", id)
	}

	doc, err := brd.Decode([]byte(structure.String))
	if err != nil {
		return nil, brderr.Wrap(brderr.DocumentStructureMissing, err, "stored structure for %s is unreadable", id)
	}
	return doc, nil
}

func (s *SQLiteStore) Save(ctx context.Context, id string, doc *brd.Document) error {
	structure, text, err := prepareDocument(doc)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, structure, text, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			structure=excluded.structure,
			text=excluded.text,
			updated_at=excluded.updated_at
	`, id, string(structure), text, now())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadText(ctx context.Context, id string) (string, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT text FROM documents WHERE id = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && strings.TrimSpace(text.String) == "") {
		return "", brderr.New(brderr.DocumentStructureMissing, "no text stored for %s", id)
	}
	if err != nil {
		return "", err
	}
	return text.String, nil
}

func (s *SQLiteStore) SaveText(ctx context.Context, id string, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, structure, text, updated_at)
		VALUES (?, NULL, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			structure=NULL,
			text=excluded.text,
			updated_at=excluded.updated_at
	`, id, text, now())
	return err
}

// --- ConversationLog Implementation ---

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, role Role, text string) (Event, error) {
	ev := Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Event{}, err
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return Event{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, session_id, seq, role, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.SessionID, seq, string(ev.Role), ev.Text, ev.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Event{}, err
	}

	if err := tx.Commit(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (s *SQLiteStore) List(ctx context.Context, sessionID string, maxResults int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, text, created_at FROM (
			SELECT id, session_id, seq, role, text, created_at
			FROM events
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`, sessionID, pageSize(maxResults))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var role, created string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &role, &ev.Text, &created); err != nil {
			return nil, err
		}
		ev.Role = Role(role)
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
