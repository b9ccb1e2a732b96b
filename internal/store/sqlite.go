package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"datmo-go/internal/engine"
	"datmo-go/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is a typed wrapper over a key-value document table in SQLite.
// Each entity type lives in its own logical collection; records are JSON
// documents keyed by opaque ids, with ISO-8601 timestamps maintained by
// the store.
type Store struct {
	db    *sql.DB
	path  string
	clock engine.Clock
	idgen engine.IDGenerator
}

// Open opens (or creates) the document store at path. path can be a file
// path or ":memory:" for an in-memory store.
func Open(path string, clock engine.Clock, idgen engine.IDGenerator) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewFromDB(db, clock, idgen, path), nil
}

// NewFromDB wraps an existing database connection. The caller is
// responsible for ensuring the connection is properly configured.
func NewFromDB(db *sql.DB, clock engine.Clock, idgen engine.IDGenerator, path string) *Store {
	if clock == nil {
		clock = engine.RealClock{}
	}
	if idgen == nil {
		idgen = engine.UUIDGenerator{}
	}
	return &Store{db: db, path: path, clock: clock, idgen: idgen}
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the store relies on. Exported for tools and tests.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Migrate brings the schema to the latest version.
func (s *Store) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies that the schema is at the latest version.
func (s *Store) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const timeLayout = time.RFC3339

// toDoc flattens an entity into a JSON document map.
func toDoc(entity any) (map[string]any, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("marshaling entity: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling entity document: %w", err)
	}
	return doc, nil
}

// fromDoc materializes a document map back into the typed entity.
func fromDoc(doc map[string]any, entity any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	if err := json.Unmarshal(raw, entity); err != nil {
		return fmt.Errorf("unmarshaling document into entity: %w", err)
	}
	return nil
}

// create inserts a document, generating the id and both timestamps when
// absent, and materializes the stored document back into entity.
func (s *Store) create(collection string, entity any) error {
	doc, err := toDoc(entity)
	if err != nil {
		return err
	}

	id, _ := doc["id"].(string)
	if id == "" {
		id = s.idgen.New()
		doc["id"] = id
	}

	now := s.clock.Now().UTC().Format(timeLayout)
	doc["created_at"] = now
	doc["updated_at"] = now

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO documents (collection, id, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		collection, id, string(raw), now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting %s document: %w", collection, err)
	}

	return fromDoc(doc, entity)
}

// get loads a document by id into entity. Unknown ids report DoesNotExist.
func (s *Store) get(collection, id string, entity any) error {
	var raw string
	err := s.db.QueryRow(
		"SELECT document FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return engine.Errorf(engine.KindDoesNotExist, "%s record %q does not exist", collection, id)
	}
	if err != nil {
		return fmt.Errorf("loading %s document: %w", collection, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("decoding %s document: %w", collection, err)
	}
	return fromDoc(doc, entity)
}

// update replaces a document. The id must name an existing record; the
// original created_at is preserved and updated_at is refreshed.
func (s *Store) update(collection string, entity any) error {
	doc, err := toDoc(entity)
	if err != nil {
		return err
	}

	id, _ := doc["id"].(string)
	if id == "" {
		return engine.Errorf(engine.KindRequiredArgumentMissing, "update requires an id")
	}

	var existingRaw, createdAt string
	err = s.db.QueryRow(
		"SELECT document, created_at FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&existingRaw, &createdAt)
	if err == sql.ErrNoRows {
		return engine.Errorf(engine.KindDoesNotExist, "%s record %q does not exist", collection, id)
	}
	if err != nil {
		return fmt.Errorf("loading %s document for update: %w", collection, err)
	}

	now := s.clock.Now().UTC().Format(timeLayout)
	doc["created_at"] = createdAt
	doc["updated_at"] = now

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	_, err = s.db.Exec(
		"UPDATE documents SET document = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(raw), now, collection, id,
	)
	if err != nil {
		return fmt.Errorf("updating %s document: %w", collection, err)
	}

	return fromDoc(doc, entity)
}

// delete removes a document by id. Unknown ids report DoesNotExist.
func (s *Store) delete(collection, id string) error {
	res, err := s.db.Exec(
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("deleting %s document: %w", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return engine.Errorf(engine.KindDoesNotExist, "%s record %q does not exist", collection, id)
	}
	return nil
}

// query returns the documents of a collection matching all equality
// conditions in filter, ordered by creation time. No indexes beyond the
// id are needed at this scale; matching happens on the decoded document.
func (s *Store) query(collection string, filter map[string]any) ([]map[string]any, error) {
	rows, err := s.db.Query(
		"SELECT document FROM documents WHERE collection = ? ORDER BY created_at, id",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s documents: %w", collection, err)
	}
	defer rows.Close()

	var matches []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning %s document: %w", collection, err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decoding %s document: %w", collection, err)
		}
		if matchesFilter(doc, filter) {
			matches = append(matches, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s documents: %w", collection, err)
	}
	return matches, nil
}

func matchesFilter(doc, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if !ok {
			return false
		}
		if !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

// jsonEqual compares two values through their canonical JSON encoding so
// that filter values given as native Go types match decoded document
// values.
func jsonEqual(a, b any) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ra) == string(rb)
}
