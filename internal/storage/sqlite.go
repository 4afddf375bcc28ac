package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS deployments (
		id TEXT PRIMARY KEY,
		contract_name TEXT NOT NULL,
		network TEXT NOT NULL DEFAULT '',
		chain_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		block_number INTEGER NOT NULL DEFAULT 0,
		constructor_args TEXT NOT NULL DEFAULT '[]',
		verification_status TEXT NOT NULL DEFAULT '',
		verification_message TEXT NOT NULL DEFAULT '',
		verified_at TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		UNIQUE(chain_id, address)
	);

	CREATE INDEX IF NOT EXISTS idx_deployments_contract ON deployments(contract_name);
	CREATE INDEX IF NOT EXISTS idx_deployments_created ON deployments(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Debug("database migrations complete", "driver", "sqlite")
	return nil
}

// RecordDeployment records a deployment. A second deployment to the same
// chain and address (a restarted dev node) replaces the earlier row.
func (s *SQLiteStore) RecordDeployment(ctx context.Context, d *Deployment) error {
	if d.ID == "" {
		d.ID = generateID()
	}
	query := `
		INSERT INTO deployments (id, contract_name, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, verification_status, verification_message, verified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CASE WHEN ? THEN datetime('now') END, datetime('now'))
		ON CONFLICT(chain_id, address) DO UPDATE SET
			id = excluded.id,
			contract_name = excluded.contract_name,
			network = excluded.network,
			deployer_address = excluded.deployer_address,
			tx_hash = excluded.tx_hash,
			block_number = excluded.block_number,
			constructor_args = excluded.constructor_args,
			verification_status = excluded.verification_status,
			verification_message = excluded.verification_message,
			verified_at = excluded.verified_at,
			created_at = excluded.created_at
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.ContractName, d.Network, d.ChainID, d.Address, d.DeployerAddress, d.TxHash, d.BlockNumber,
		argsOrEmpty(d.ConstructorArgs), d.VerificationStatus, d.VerificationMessage, isVerified(d.VerificationStatus),
	)
	return err
}

// GetDeployment retrieves a deployment
func (s *SQLiteStore) GetDeployment(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	query := `
		SELECT id, contract_name, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, verification_status, verification_message, created_at
		FROM deployments
		WHERE chain_id = ? AND lower(address) = lower(?)
	`
	var d Deployment
	err := s.db.QueryRowContext(ctx, query, chainID, address).Scan(
		&d.ID, &d.ContractName, &d.Network, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber,
		&d.ConstructorArgs, &d.VerificationStatus, &d.VerificationMessage, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeployments lists deployments, newest first
func (s *SQLiteStore) ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error) {
	offset, err := decodeCursor(pagination.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pageSize(pagination)

	where, args := whereClause(filter, func(int) string { return "?" })
	query := `SELECT id, contract_name, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, verification_status, verification_message, created_at
		FROM deployments` + where + ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit+1, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		var d Deployment
		if err := rows.Scan(
			&d.ID, &d.ContractName, &d.Network, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber,
			&d.ConstructorArgs, &d.VerificationStatus, &d.VerificationMessage, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return paginate(deployments, limit, offset), nil
}

// UpdateVerificationStatus updates a deployment's verification status
func (s *SQLiteStore) UpdateVerificationStatus(ctx context.Context, id, status, message string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deployments SET verification_status = ?, verification_message = ?, verified_at = CASE WHEN ? THEN datetime('now') END WHERE id = ?",
		status, message, isVerified(status), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func argsOrEmpty(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}
