package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/replica/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/links"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/core/query"
)

// Ensure Store implements the interfaces.
var (
	_ driven.Store  = (*Store)(nil)
	_ driven.Closer = (*Store)(nil)
)

// Store is a SQLite-backed driven.Store.
type Store struct {
	db       *sql.DB
	path     string
	locales  domain.LocaleConfig
	resolver *links.Resolver
}

// NewStore opens (creating if needed) the database in dataDir.
// If dataDir is empty, defaults to ~/.replica/data.
func NewStore(dataDir string, locales domain.LocaleConfig) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".replica", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "replica.db")

	// WAL lets readers run during a sync; immediate transactions take the
	// write lock up front so busy_timeout applies instead of failing on upgrade.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		locales: locales,
	}
	s.resolver = links.NewResolver(s)

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_documents.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

func encode(doc *domain.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshalling %s: %w", doc.ID, err)
	}
	return string(data), nil
}

func decode(data string) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshalling document: %w", err)
	}
	return &doc, nil
}

func visible(doc *domain.Document) *domain.Document {
	if doc == nil || doc.IsTombstone() {
		return nil
	}
	return doc
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// load reads the raw row for id, tombstones included.
func load(ctx context.Context, q querier, id string) (*domain.Document, error) {
	var data string
	err := q.QueryRowContext(ctx, "SELECT data FROM documents WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", id, err)
	}
	return decode(data)
}

// Find returns the document with the given id, or nil.
func (s *Store) Find(ctx context.Context, id string, opts ...domain.FindOption) (*domain.Document, error) {
	doc, err := load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	doc = visible(doc)
	if doc == nil {
		return nil, nil
	}
	o := domain.NewFindOptions(opts...)
	return s.resolver.Resolve(ctx, doc, o.Include, o)
}

// FindAll returns a lazy query compiled to SQL when iterated.
func (s *Store) FindAll(contentType string, opts ...domain.FindOption) *query.Query {
	return query.New(s, contentType, domain.NewFindOptions(opts...), s.locales)
}

// FindBy returns the first match of filter, or nil.
func (s *Store) FindBy(ctx context.Context, contentType string, filter map[string]any, opts ...domain.FindOption) (*domain.Document, error) {
	return s.FindAll(contentType, opts...).Apply(filter).First(ctx)
}

// Set stores doc under id and returns the previous value. A nil doc deletes.
func (s *Store) Set(ctx context.Context, id string, doc *domain.Document) (*domain.Document, error) {
	if doc == nil {
		return s.Delete(ctx, id)
	}
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	prev, err := load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, id, data)
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s: %w", id, err)
	}
	return visible(prev), nil
}

// Delete removes id and returns the previous value.
func (s *Store) Delete(ctx context.Context, id string) (*domain.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "DELETE FROM documents WHERE id = ? RETURNING data", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("deleting %s: %w", id, err)
	}
	prev, err := decode(data)
	if err != nil {
		return nil, err
	}
	return visible(prev), nil
}

// Index applies doc with one conditional upsert. When the stored revision is
// newer nothing is written and the stored value is returned.
func (s *Store) Index(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var written string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO documents (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
		WHERE COALESCE(json_extract(excluded.data, '$.sys.revision'), 0)
		   >= COALESCE(json_extract(documents.data, '$.sys.revision'), 0)
		RETURNING data
	`, doc.ID, data).Scan(&written)

	var effective *domain.Document
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// stale write: report what is stored
		effective, err = load(ctx, tx, doc.ID)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("indexing %s: %w", doc.ID, err)
	default:
		effective, err = decode(written)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s: %w", doc.ID, err)
	}
	return visible(effective), nil
}
