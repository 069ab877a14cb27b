package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/medindex/internal/adapters/driven/storage"
	"github.com/custodia-labs/medindex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
	"github.com/custodia-labs/medindex/internal/logger"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// DatabaseFile is the file name inside the data directory.
const DatabaseFile = "vectors.db"

// filterField restricts payload filter fields to names that are safe to
// splice into a JSON path literal.
var filterField = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// VectorStore is a SQLite-backed vector store for one collection.
type VectorStore struct {
	db         *sql.DB
	path       string
	collection string
	dimension  int

	mu      sync.Mutex
	ensured bool
}

// NewVectorStore opens (or creates) the database in dataDir.
// If dataDir is empty, defaults to ~/.medindex/data.
func NewVectorStore(dataDir, collection string, dimension int) (*VectorStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".medindex", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %v", domain.ErrStoreUnavailable, err)
	}

	s := &VectorStore{
		db:         db,
		path:       dbPath,
		collection: collection,
		dimension:  dimension,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *VectorStore) Path() string {
	return s.path
}

// EnsureCollection registers the collection with its dimension and cosine
// distance. An existing registration with another shape fails with
// domain.ErrSchema. Success is cached; a failure is retried on the next call.
func (s *VectorStore) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	var dim int
	var distance string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, distance FROM collections WHERE name = ?`, s.collection,
	).Scan(&dim, &distance)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO collections (name, dimension, distance) VALUES (?, ?, ?)`,
			s.collection, s.dimension, string(domain.DistanceCosine),
		); err != nil {
			return unavailable("creating collection", err)
		}
		logger.Info("sqlite: created collection %s (dim %d, cosine)", s.collection, s.dimension)
	case err != nil:
		return unavailable("reading collection", err)
	case dim != s.dimension || distance != string(domain.DistanceCosine):
		return fmt.Errorf("%w: collection %s is %d/%s, embedder needs %d/%s",
			domain.ErrSchema, s.collection, dim, distance, s.dimension, domain.DistanceCosine)
	}

	s.ensured = true
	return nil
}

// Upsert writes all points in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, points []domain.Point) error {
	if err := storage.ValidatePoints(points, s.dimension); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, document_id, chunk_index, vector, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			vector = excluded.vector,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return unavailable("preparing statement", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range points {
		payloadJSON, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("%w: marshalling payload of %s: %v", domain.ErrInvalidInput, p.ID, err)
		}
		docID, _ := p.Payload[domain.PayloadDocumentID].(string)

		if _, err := stmt.ExecContext(ctx, s.collection, p.ID, docID, storage.ChunkIndex(p.Payload),
			float32SliceToBytes(p.Vector), string(payloadJSON), now); err != nil {
			return unavailable("saving point", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

// Search ranks the points that pass filter by cosine similarity.
// The filter is part of the SQL query, so limit applies to matching rows.
func (s *VectorStore) Search(ctx context.Context, vector []float32, limit int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", domain.ErrSchema, len(vector), s.dimension)
	}

	query := `SELECT id, vector, payload FROM points WHERE collection = ?`
	args := []any{s.collection}
	if filter != nil {
		if !filterField.MatchString(filter.Field) {
			return nil, fmt.Errorf("%w: filter field %q", domain.ErrInvalidInput, filter.Field)
		}
		query += fmt.Sprintf(` AND json_extract(payload, '$.%s') = ?`, filter.Field)
		args = append(args, filter.Value)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying points", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var id, payloadJSON string
		var blob []byte
		if err := rows.Scan(&id, &blob, &payloadJSON); err != nil {
			return nil, unavailable("scanning point", err)
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("decoding payload of %s: %w", id, err)
		}
		results = append(results, domain.SearchResult{
			PointID: id,
			Score:   storage.Similarity(vector, bytesToFloat32Slice(blob)),
			Payload: payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating points", err)
	}

	return storage.Rank(results, limit), nil
}

// DeleteDocument removes every point of a document.
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	return s.PruneDocument(ctx, documentID, 0)
}

// PruneDocument removes the document's points with chunkIndex >= keep.
func (s *VectorStore) PruneDocument(ctx context.Context, documentID string, keep int) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM points WHERE collection = ? AND document_id = ? AND chunk_index >= ?`,
		s.collection, documentID, keep)
	if err != nil {
		return unavailable("deleting points", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Debug("sqlite: removed %d points of %s from index %d", n, documentID, keep)
	}
	return nil
}

// Info describes the collection.
func (s *VectorStore) Info(ctx context.Context) (domain.CollectionInfo, error) {
	info := domain.CollectionInfo{Name: s.collection}
	var distance string
	err := s.db.QueryRowContext(ctx, `
		SELECT c.dimension, c.distance, (SELECT COUNT(*) FROM points p WHERE p.collection = c.name)
		FROM collections c WHERE c.name = ?
	`, s.collection).Scan(&info.Dimension, &distance, &info.PointCount)
	if errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("collection %s: %w", s.collection, domain.ErrNotFound)
	}
	if err != nil {
		return info, unavailable("reading collection", err)
	}
	info.Distance = domain.Distance(distance)
	return info, nil
}

// migrate runs all pending migrations.
func (s *VectorStore) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_points.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// applyMigration runs one migration and records its version atomically.
func (s *VectorStore) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

// unavailable wraps a database failure as domain.ErrStoreUnavailable.
func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
