package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rnnvis/rnnvis/pkg/config"
	"github.com/rnnvis/rnnvis/pkg/modelconfig"

	_ "github.com/lib/pq"
)

var DebugLog func(string, ...interface{})

type DB struct {
	conn    *sql.DB
	enabled bool
}

type ConfigRecord struct {
	Model       string
	Hash        string
	Name        string
	Dataset     string
	CellType    string
	Source      string
	LoadCount   int
	FirstLoaded time.Time
	LastLoaded  time.Time
}

const DBName = "rnnvis_history"

const schema = `
	CREATE TABLE IF NOT EXISTS model_configs (
		id SERIAL PRIMARY KEY,
		model VARCHAR(255) NOT NULL,
		config_hash CHAR(32) NOT NULL,
		name VARCHAR(255) NOT NULL,
		dataset VARCHAR(255) NOT NULL,
		cell_type VARCHAR(32) NOT NULL,
		source TEXT NOT NULL,
		body TEXT NOT NULL,
		load_count INTEGER NOT NULL DEFAULT 1,
		first_loaded TIMESTAMP NOT NULL DEFAULT NOW(),
		last_loaded TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(model, config_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_model ON model_configs(model);
	CREATE INDEX IF NOT EXISTS idx_dataset ON model_configs(dataset);
	`

const upsertConfig = `
	INSERT INTO model_configs (model, config_hash, name, dataset, cell_type, source, body, first_loaded, last_loaded)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (model, config_hash)
	DO UPDATE SET last_loaded = NOW(), source = EXCLUDED.source, load_count = model_configs.load_count + 1
	`

func connString(cfg *config.Database, dbName string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbName)
}

// New connects to postgres and creates the history database on first use.
// A disabled config yields a DB whose recording is a no-op.
func New(cfg *config.Database) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		if DebugLog != nil {
			DebugLog("config history database disabled")
		}
		return db, nil
	}

	postgresConn, err := sql.Open("postgres", connString(cfg, "postgres"))
	if err != nil {
		return db, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := postgresConn.Ping(); err != nil {
		return db, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", DBName).Scan(&exists)
	if err != nil {
		return db, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if _, err := postgresConn.Exec(fmt.Sprintf("CREATE DATABASE %s", DBName)); err != nil {
			return db, fmt.Errorf("failed to create database: %w", err)
		}
		fmt.Printf("[INF] Database '%s' created successfully.\n", DBName)
	}

	conn, err := sql.Open("postgres", connString(cfg, DBName))
	if err != nil {
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.attach(conn); err != nil {
		return db, err
	}

	if DebugLog != nil {
		DebugLog("config history database connection active")
	}

	return db, nil
}

// attach adopts conn once the schema is in place. On failure the connection
// is closed and db stays disabled.
func (db *DB) attach(conn *sql.DB) error {
	db.conn = conn
	if err := db.initSchema(); err != nil {
		conn.Close()
		db.conn = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (db *DB) initSchema() error {
	if !db.IsEnabled() {
		return nil
	}
	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db != nil && db.enabled && db.conn != nil
}

// RecordConfig stores a loaded config. Loading the same content for the same
// model again only bumps its counters.
func (db *DB) RecordConfig(model, source string, cfg *modelconfig.Config) error {
	if !db.IsEnabled() {
		return nil
	}

	body, err := cfg.Marshal()
	if err != nil {
		return err
	}
	hash := cfg.Hash()

	if DebugLog != nil {
		DebugLog("recording config %s of model %s in database", hash, model)
	}

	_, err = db.conn.Exec(upsertConfig,
		model, hash, cfg.Model.Name, cfg.Model.Dataset, string(cfg.Model.CellType), source, string(body))
	if err != nil {
		return fmt.Errorf("failed to record config: %w", err)
	}
	return nil
}

// historyQuery builds the history query for one model, or every model when
// model is empty, optionally narrowed to a dataset.
func historyQuery(model, dataset string) (string, []interface{}) {
	query := `
		SELECT model, config_hash, name, dataset, cell_type, source, load_count, first_loaded, last_loaded
		FROM model_configs
	`
	var (
		args  []interface{}
		conds []string
	)

	if model != "" {
		args = append(args, model)
		conds = append(conds, fmt.Sprintf("model = $%d", len(args)))
	}
	if dataset != "" {
		args = append(args, dataset)
		conds = append(conds, fmt.Sprintf("dataset = $%d", len(args)))
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY model, last_loaded DESC"
	return query, args
}

func (db *DB) QueryHistory(model, dataset string) ([]ConfigRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	query, args := historyQuery(model, dataset)
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ConfigRecord
	for rows.Next() {
		var r ConfigRecord
		if err := rows.Scan(&r.Model, &r.Hash, &r.Name, &r.Dataset, &r.CellType, &r.Source,
			&r.LoadCount, &r.FirstLoaded, &r.LastLoaded); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// ConfigBody returns the stored YAML of a recorded config.
func (db *DB) ConfigBody(model, hash string) (string, error) {
	if !db.IsEnabled() {
		return "", fmt.Errorf("database is not enabled")
	}

	var body string
	err := db.conn.QueryRow(`SELECT body FROM model_configs WHERE model = $1 AND config_hash = $2`,
		model, hash).Scan(&body)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no config %s recorded for model %s", hash, model)
	}
	return body, err
}
