// Package memory provides the durable semantic memory store used to enrich
// task context. Records are persisted to SQLite and held in memory for
// similarity search; embeddings come from a pluggable backend with an
// exact-text cache in front of it.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shayc/atelier/pkg/models"

	_ "modernc.org/sqlite"
)

// ErrPersistence indicates a durable read or write failed.
var ErrPersistence = errors.New("memory persistence failure")

// DefaultCacheSize bounds the embedding cache. The cache is keyed by exact
// text, so repeated queries for the same string never re-embed.
const DefaultCacheSize = 1024

// Embedder computes embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the SQLite-backed memory store. All previously persisted records
// are loaded at open time; retrieval scans the in-memory set and writes
// access-stat updates back through the database.
type Store struct {
	db     *sql.DB
	dbPath string

	embedder Embedder
	cache    *lru.Cache[string, []float32]

	// mu serializes record mutations (access stats) and appends.
	mu      sync.RWMutex
	records []*models.MemoryRecord
	byID    map[string]*models.MemoryRecord
}

// DefaultDBPath returns the path to the project-local memory database.
func DefaultDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".atelier", "memory.db")
}

// Open creates a Store backed by the database at dbPath, creating parent
// directories and the schema as needed, and loads all persisted records.
// Individual corrupt records are logged and skipped, not fatal.
func Open(dbPath string, embedder Embedder, cacheSize int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent readers while a writer is active.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	s := &Store{
		db:       conn,
		dbPath:   dbPath,
		embedder: embedder,
		cache:    cache,
		byID:     make(map[string]*models.MemoryRecord),
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.loadAll(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Store embeds content, appends a new record, and persists it.
// Returns the new record's ID. Persistence failures are fatal to this call
// and are not retried.
func (s *Store) Store(ctx context.Context, content string, kind models.MemoryKind, contextTag string, tags []string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("empty content")
	}

	embedding, err := s.embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed content: %w", err)
	}

	rec := &models.MemoryRecord{
		ID:         uuid.New().String(),
		Kind:       kind,
		Content:    content,
		Embedding:  embedding,
		ContextTag: contextTag,
		Tags:       tags,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insert(rec); err != nil {
		return "", fmt.Errorf("%w: insert record: %v", ErrPersistence, err)
	}

	s.records = append(s.records, rec)
	s.byID[rec.ID] = rec
	return rec.ID, nil
}

// All returns a snapshot of every loaded record in insertion order.
func (s *Store) All() []*models.MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.MemoryRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given ID, or nil if not found.
func (s *Store) Get(id string) *models.MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// embed returns the embedding for text, consulting the exact-text cache first.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.cache.Get(text); ok {
		return v, nil
	}
	v, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, v)
	return v, nil
}

// insert persists a record. Caller must hold s.mu.
func (s *Store) insert(rec *models.MemoryRecord) error {
	embJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return err
	}
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO memory_records (
			id, kind, content, embedding, context_tag, tags,
			created_at, last_accessed_at, access_count, relevance_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		string(rec.Kind),
		rec.Content,
		string(embJSON),
		rec.ContextTag,
		string(tagsJSON),
		formatTime(rec.CreatedAt),
		nullTime(rec.LastAccessedAt),
		rec.AccessCount,
		rec.RelevanceScore,
	)
	return err
}

// loadAll scans every persisted record into memory. Rows that fail to decode
// are logged and skipped so one corrupt record cannot poison the store.
func (s *Store) loadAll() error {
	rows, err := s.db.Query(`
		SELECT id, kind, content, embedding, context_tag, tags,
		       created_at, last_accessed_at, access_count, relevance_score
		FROM memory_records ORDER BY rowid
	`)
	if err != nil {
		return fmt.Errorf("%w: load records: %v", ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec          models.MemoryRecord
			kind         string
			embJSON      string
			tagsJSON     string
			createdAt    string
			lastAccessed sql.NullString
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Content, &embJSON, &rec.ContextTag,
			&tagsJSON, &createdAt, &lastAccessed, &rec.AccessCount, &rec.RelevanceScore); err != nil {
			log.Printf("[memory] skipping unreadable record: %v", err)
			continue
		}

		if err := json.Unmarshal([]byte(embJSON), &rec.Embedding); err != nil {
			log.Printf("[memory] skipping record %s: corrupt embedding: %v", rec.ID, err)
			continue
		}
		if tagsJSON != "" {
			if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
				log.Printf("[memory] skipping record %s: corrupt tags: %v", rec.ID, err)
				continue
			}
		}

		rec.Kind = models.MemoryKind(kind)
		ca, err := parseTime(createdAt)
		if err != nil {
			log.Printf("[memory] skipping record %s: corrupt created_at: %v", rec.ID, err)
			continue
		}
		rec.CreatedAt = ca
		if lastAccessed.Valid {
			la, _ := parseTime(lastAccessed.String)
			rec.LastAccessedAt = la
		}

		r := rec
		s.records = append(s.records, &r)
		s.byID[r.ID] = &r
	}

	return rows.Err()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullTime converts a time to a nullable column value, treating zero as null.
func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}
