package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aiscribe/scribe/internal/graph"
)

// DefaultDocumentName is the entry the whiteboard reads on start and
// writes through on every mutation.
const DefaultDocumentName = "ai-scribe-map"

var (
	// ErrNotFound is returned when a document or setting does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrCorruptDocument is returned when a stored body is not a valid map
	// document.
	ErrCorruptDocument = errors.New("storage: corrupt document")
)

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// DocumentInfo describes a stored document without its body.
type DocumentInfo struct {
	Name      string    `json:"name"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ---------------------------------------------------------------------------
// Storage
// ---------------------------------------------------------------------------

// Storage is a thread-safe wrapper around a SQLite database that persists
// map documents and application settings.
type Storage struct {
	db *sql.DB
	mu sync.RWMutex
}

// ============================= LIFECYCLE ==================================

// New opens (or creates) the SQLite database at dbPath, applies the
// recommended PRAGMAs, runs any pending migrations and returns a ready
// *Storage.
func New(dbPath string) (*Storage, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open db %q: %w", dbPath, err)
	}

	// Only one writer at a time for SQLite.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("storage: set pragma %q: %w", p, err)
		}
	}

	s := &Storage{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ============================ MIGRATIONS ==================================

// migrate ensures the schema_migrations table exists, then applies every
// unapplied Migration from the package-level Migrations slice.
func (s *Storage) migrate() error {
	const createMigTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		description TEXT
	)`
	if _, err := s.db.Exec(createMigTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range Migrations {
		var exists int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration v%d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration v%d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

// AppliedVersion returns the highest recorded migration version.
func (s *Storage) AppliedVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("storage: applied version: %w", err)
	}
	return int(v.Int64), nil
}

// ======================== DOCUMENT OPERATIONS =============================

// SaveDocument upserts the named document.
func (s *Storage) SaveDocument(ctx context.Context, name string, doc graph.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("storage: marshal document %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const q = `INSERT INTO documents (name, body, node_count, edge_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, q,
		name, string(body), len(doc.Nodes), len(doc.Edges), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage: save document %q: %w", name, err)
	}
	return nil
}

// LoadDocument retrieves the named document. It returns ErrNotFound when no
// entry exists and ErrCorruptDocument when the body cannot be decoded.
func (s *Storage) LoadDocument(ctx context.Context, name string) (graph.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Document{}, fmt.Errorf("storage: load document %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return graph.Document{}, fmt.Errorf("storage: load document %q: %w", name, err)
	}

	var doc graph.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return graph.Document{}, fmt.Errorf("storage: decode document %q: %w: %v", name, ErrCorruptDocument, err)
	}
	doc.Normalize()
	return doc, nil
}

// DeleteDocument removes the named document. Deleting a missing entry is
// not an error.
func (s *Storage) DeleteDocument(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("storage: delete document %q: %w", name, err)
	}
	return nil
}

// ListDocuments returns every stored document, most recently updated first.
func (s *Storage) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, node_count, edge_count, updated_at FROM documents ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("storage: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.Name, &d.NodeCount, &d.EdgeCount, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ========================= SETTING OPERATIONS =============================

// GetSetting returns the value stored under key, or ErrNotFound.
func (s *Storage) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: get setting %q: %w", key, err)
	}
	return v, nil
}

// SetSetting upserts a setting.
func (s *Storage) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const q = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("storage: set setting %q: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting. Deleting a missing key is not an error.
func (s *Storage) DeleteSetting(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("storage: delete setting %q: %w", key, err)
	}
	return nil
}
