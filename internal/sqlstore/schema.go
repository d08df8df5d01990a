package sqlstore

// Schema DDL per dialect. Every entity is one objects row holding its
// dictionary as JSON; seq preserves insertion order across reloads.
const (
	createObjectsSQLite = `CREATE TABLE IF NOT EXISTS objects (
    kind TEXT NOT NULL,
    id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    data TEXT NOT NULL,
    PRIMARY KEY (kind, id)
);`

	createPlaceAmenitySQLite = `CREATE TABLE IF NOT EXISTS place_amenity (
    place_id TEXT NOT NULL,
    amenity_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    PRIMARY KEY (place_id, amenity_id)
);`

	idxObjectsSeqSQLite = `CREATE INDEX IF NOT EXISTS idx_objects_seq ON objects(seq);`

	createObjectsMySQL = `CREATE TABLE IF NOT EXISTS objects (
    kind VARCHAR(32) NOT NULL,
    id VARCHAR(64) NOT NULL,
    seq BIGINT NOT NULL,
    data MEDIUMTEXT NOT NULL,
    PRIMARY KEY (kind, id),
    KEY idx_objects_seq (seq)
) DEFAULT CHARSET=utf8mb4;`

	createPlaceAmenityMySQL = `CREATE TABLE IF NOT EXISTS place_amenity (
    place_id VARCHAR(64) NOT NULL,
    amenity_id VARCHAR(64) NOT NULL,
    seq BIGINT NOT NULL,
    PRIMARY KEY (place_id, amenity_id)
) DEFAULT CHARSET=utf8mb4;`
)

// dialect captures what differs between the SQL engines.
type dialect struct {
	name   string   // Backend name as in types.Config.
	driver string   // database/sql driver name.
	schema []string // DDL executed on open, in order.
	pragma []string // Statements run once after open (SQLite only).
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{createObjectsSQLite, createPlaceAmenitySQLite, idxObjectsSeqSQLite},
	pragma: []string{"PRAGMA journal_mode = WAL;", "PRAGMA synchronous = FULL;", "PRAGMA busy_timeout = 5000;"},
}

var mysqlDialect = dialect{
	name:   "mysql",
	driver: "mysql",
	schema: []string{createObjectsMySQL, createPlaceAmenityMySQL},
}
