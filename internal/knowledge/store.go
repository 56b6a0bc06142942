// Package knowledge provides the best-effort knowledge base Compass
// consults while routing and running specialists. Documents live in
// SQLite with an FTS5 index; retrieval is scoped per specialist so
// each agent only sees the collections relevant to its role.
package knowledge

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Document is one knowledge base entry.
type Document struct {
	ID         string    // Unique identifier
	Collection string    // Which collection this document belongs to
	Topic      string    // Topic label ("conversion", "pricing", ...), optional
	Title      string    // Short human-readable title
	Body       string    // Document text
	CreatedAt  time.Time // When the document was loaded
}

// Store provides SQLite-backed storage for knowledge documents.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// DefaultDBPath returns the path to the default knowledge database.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "compass", "knowledge.db")
}

// NewStore creates a Store backed by the database at dbPath.
// It creates the parent directories if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &Store{db: conn, dbPath: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Migrate creates the document tables and FTS index if missing.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("migrate knowledge store: %w", err)
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	topic TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE INDEX IF NOT EXISTS idx_documents_topic ON documents(topic);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	title,
	body,
	content='documents',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
	INSERT INTO documents_fts(rowid, title, body)
	VALUES (NEW.rowid, NEW.title, NEW.body);
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, title, body)
	VALUES ('delete', OLD.rowid, OLD.title, OLD.body);
END;

CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, title, body)
	VALUES ('delete', OLD.rowid, OLD.title, OLD.body);
	INSERT INTO documents_fts(rowid, title, body)
	VALUES (NEW.rowid, NEW.title, NEW.body);
END;
`

// Create inserts a document.
func (s *Store) Create(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO documents (id, collection, topic, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Collection, doc.Topic, doc.Title, doc.Body,
		doc.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	row := s.db.QueryRow("SELECT COUNT(*) FROM documents")
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Search performs a full-text search restricted to the given
// collections, returning up to limit documents ordered by FTS rank.
// An empty collections slice searches everything.
func (s *Store) Search(query string, collections []string, limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := []any{query}
	sqlQuery := `
		SELECT d.id, d.collection, d.topic, d.title, d.body, d.created_at
		FROM documents d
		JOIN documents_fts fts ON d.rowid = fts.rowid
		WHERE documents_fts MATCH ?
	`
	if len(collections) > 0 {
		sqlQuery += " AND d.collection IN (" + placeholders(len(collections)) + ")"
		for _, c := range collections {
			args = append(args, c)
		}
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListByTopic returns documents tagged with a topic, newest first.
func (s *Store) ListByTopic(topic string, limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, collection, topic, title, body, created_at
		FROM documents WHERE topic = ?
		ORDER BY created_at DESC LIMIT ?
	`, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents by topic: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func placeholders(n int) string {
	out := "?"
	for i := 1; i < n; i++ {
		out += ", ?"
	}
	return out
}

func scanDocuments(rows *sql.Rows) ([]*Document, error) {
	var docs []*Document
	for rows.Next() {
		var d Document
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Collection, &d.Topic, &d.Title, &d.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		docs = append(docs, &d)
	}
	return docs, nil
}
