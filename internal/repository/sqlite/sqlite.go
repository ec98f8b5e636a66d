package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite.
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository, migrating the schema on open.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// each pool connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS layers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		lat REAL NOT NULL DEFAULT 0,
		lon REAL NOT NULL DEFAULT 0,
		layer_id INTEGER REFERENCES layers(id)
	);

	CREATE TABLE IF NOT EXISTS interfaces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mac TEXT NOT NULL UNIQUE COLLATE NOCASE,
		type TEXT NOT NULL DEFAULT 'other',
		node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS ip_addresses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL UNIQUE,
		interface_id INTEGER NOT NULL REFERENCES interfaces(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS topologies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		protocol TEXT,
		version TEXT,
		metric TEXT
	);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topology_id INTEGER REFERENCES topologies(id),
		interface_a_id INTEGER REFERENCES interfaces(id),
		interface_b_id INTEGER REFERENCES interfaces(id),
		pair_lo INTEGER,
		pair_hi INTEGER,
		node_a_id INTEGER REFERENCES nodes(id),
		node_b_id INTEGER REFERENCES nodes(id),
		layer_id INTEGER REFERENCES layers(id),
		status TEXT NOT NULL DEFAULT 'planned',
		type TEXT,
		metric_type TEXT,
		metric_value REAL,
		max_rate INTEGER,
		min_rate INTEGER,
		dbm INTEGER,
		noise INTEGER,
		line JSON,
		data JSON NOT NULL DEFAULT '{}',
		first_seen DATETIME,
		last_seen DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- COALESCE keeps the index effective for manual links: NULL topology_ids
	-- would otherwise make every row distinct
	CREATE UNIQUE INDEX IF NOT EXISTS idx_links_source_pair ON links(COALESCE(topology_id, 0), pair_lo, pair_hi);
	CREATE INDEX IF NOT EXISTS idx_links_status ON links(status);
	CREATE INDEX IF NOT EXISTS idx_links_topology ON links(topology_id);
	CREATE INDEX IF NOT EXISTS idx_ip_addresses_interface ON ip_addresses(interface_id);
	CREATE INDEX IF NOT EXISTS idx_interfaces_node ON interfaces(node_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}
