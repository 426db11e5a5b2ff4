package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/model"
	"go.uber.org/zap"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS spam_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		model_id TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		vocabulary BLOB NOT NULL,
		weights BLOB NOT NULL
	)
`

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS spam_models (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		model_id VARCHAR(64) NOT NULL UNIQUE,
		created_at DATETIME(6) NOT NULL,
		vocabulary LONGBLOB NOT NULL,
		weights LONGBLOB NOT NULL
	)
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS spam_models (
		id BIGSERIAL PRIMARY KEY,
		model_id TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		vocabulary BYTEA NOT NULL,
		weights BYTEA NOT NULL
	)
`

const (
	insertModel = `
		INSERT INTO spam_models (model_id, created_at, vocabulary, weights)
		VALUES (?, ?, ?, ?)
	`
	insertModelPostgres = `
		INSERT INTO spam_models (model_id, created_at, vocabulary, weights)
		VALUES ($1, $2, $3, $4)
	`
)

const pgDuplicateKeyCode = "23505"

// SQLStore keeps every saved model as one row holding both blobs. Load
// returns the most recently saved row.
type SQLStore struct {
	db     *sql.DB
	driver string
	insert string
	logger *zap.Logger
}

// NewSQLiteStore opens or creates a model table in a SQLite database
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	return newSQLStore("sqlite3", dbPath, sqliteSchema, insertModel, logger)
}

// NewMySQLStore opens or creates a model table in a MySQL database
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	return newSQLStore("mysql", dsn, mysqlSchema, insertModel, logger)
}

// NewPostgresStore opens or creates a model table in a PostgreSQL database
func NewPostgresStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	return newSQLStore("pgx", dsn, postgresSchema, insertModelPostgres, logger)
}

func newSQLStore(driver, dsn, schema, insert string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create model table: %w", err)
	}

	return &SQLStore{
		db:     db,
		driver: driver,
		insert: insert,
		logger: logger,
	}, nil
}

// Save inserts both blobs in a single transaction
func (s *SQLStore) Save(ctx context.Context, m *model.Model) error {
	vocabulary, weights, err := Encode(m)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.insert, m.ID(), m.CreatedAt(), vocabulary, weights)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateKeyCode {
			return fmt.Errorf("%w: model %s already stored", core.ErrInput, m.ID())
		}
		return fmt.Errorf("failed to insert model: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit model: %w", err)
	}

	s.logger.Info("Model saved",
		zap.String("model_id", m.ID()),
		zap.String("driver", s.driver),
		zap.Int("vocabulary_size", m.Vocabulary().Size()))
	return nil
}

// Load decodes the latest row
func (s *SQLStore) Load(ctx context.Context) (*model.Model, error) {
	var vocabulary, weights []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT vocabulary, weights
		FROM spam_models
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&vocabulary, &weights)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no model in %s store", core.ErrMissingArtifact, s.driver)
		}
		return nil, fmt.Errorf("failed to query model: %w", err)
	}

	m, err := Decode(vocabulary, weights)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Model loaded",
		zap.String("model_id", m.ID()),
		zap.String("driver", s.driver),
		zap.Int("vocabulary_size", m.Vocabulary().Size()))
	return m, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.driver, err)
	}
	return nil
}
