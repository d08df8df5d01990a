// Package sqlstore persists snapshots through database/sql. SQLite
// (modernc.org/sqlite) keeps the data in a file under the data directory;
// MySQL (go-sql-driver/mysql) uses a server named by a DSN. A flush is a
// single transaction, so a failed flush leaves the previous contents intact.
package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// DBFileName is the SQLite database created inside the data directory.
const DBFileName = "hbnb.db"

// Backend stores snapshots in the objects and place_amenity tables.
type Backend struct {
	mu      sync.Mutex
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) dataDir/hbnb.db and its schema.
func OpenSQLite(dataDir string) (*Backend, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return open(sqliteDialect, filepath.Join(dataDir, DBFileName))
}

// OpenMySQL connects to the server named by dsn and creates the schema.
func OpenMySQL(dsn string) (*Backend, error) {
	normalized, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	return open(mysqlDialect, normalized)
}

// normalizeMySQLDSN validates dsn, requires a database name, and disables
// multi-statement execution.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("parsing mysql dsn: database name is required")
	}
	cfg.MultiStatements = false
	return cfg.FormatDSN(), nil
}

func open(d dialect, dsn string) (*Backend, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.name, err)
	}
	if d.name == sqliteDialect.name {
		// One connection keeps pragmas in effect and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", d.name, err)
	}
	for _, stmt := range d.pragma {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", stmt, err)
		}
	}
	for _, ddl := range d.schema {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Backend{db: db, dialect: d}, nil
}

// Dialect returns the backend name ("sqlite" or "mysql").
func (b *Backend) Dialect() string { return b.dialect.name }

// Load reads every stored entity and association in insertion order. An
// empty database yields an empty snapshot.
func (b *Backend) Load() (*types.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil, types.ErrStoreClosed
	}

	snap := &types.Snapshot{}

	rows, err := b.db.Query("SELECT kind, id, data FROM objects ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying objects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, id, data string
		if err := rows.Scan(&kind, &id, &data); err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", kind, id, err)
		}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}

	links, err := b.db.Query("SELECT place_id, amenity_id FROM place_amenity ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying place_amenity: %w", err)
	}
	defer links.Close()
	for links.Next() {
		var l types.Link
		if err := links.Scan(&l.PlaceID, &l.AmenityID); err != nil {
			return nil, fmt.Errorf("scanning association: %w", err)
		}
		snap.Links = append(snap.Links, l)
	}
	if err := links.Err(); err != nil {
		return nil, fmt.Errorf("iterating place_amenity: %w", err)
	}

	return snap, nil
}

// Flush replaces the stored contents with snap in one transaction.
func (b *Backend) Flush(snap *types.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return types.ErrStoreClosed
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning flush transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM place_amenity"); err != nil {
		return fmt.Errorf("clearing place_amenity: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM objects"); err != nil {
		return fmt.Errorf("clearing objects: %w", err)
	}

	objStmt, err := tx.Prepare("INSERT INTO objects (kind, id, seq, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing object insert: %w", err)
	}
	defer objStmt.Close()

	for i, rec := range snap.Records {
		kind, _ := rec[types.ClassKey].(string)
		id, _ := rec["id"].(string)
		if kind == "" || id == "" {
			return fmt.Errorf("record %d: %w", i, types.ErrInvalidID)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", kind, id, err)
		}
		if _, err := objStmt.Exec(kind, id, i, string(data)); err != nil {
			return fmt.Errorf("inserting %s %s: %w", kind, id, err)
		}
	}

	linkStmt, err := tx.Prepare("INSERT INTO place_amenity (place_id, amenity_id, seq) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing association insert: %w", err)
	}
	defer linkStmt.Close()

	for i, l := range snap.Links {
		if _, err := linkStmt.Exec(l.PlaceID, l.AmenityID, i); err != nil {
			return fmt.Errorf("inserting association %s/%s: %w", l.PlaceID, l.AmenityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing flush: %w", err)
	}
	return nil
}

// Close releases the database handle. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
