package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS deployments (
		id UUID PRIMARY KEY,
		contract_name TEXT NOT NULL,
		network TEXT NOT NULL DEFAULT '',
		chain_id BIGINT NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		block_number BIGINT NOT NULL DEFAULT 0,
		constructor_args JSONB NOT NULL DEFAULT '[]',
		verification_status TEXT NOT NULL DEFAULT '',
		verification_message TEXT NOT NULL DEFAULT '',
		verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(chain_id, address)
	);

	CREATE INDEX IF NOT EXISTS idx_deployments_contract ON deployments(contract_name);
	CREATE INDEX IF NOT EXISTS idx_deployments_created ON deployments(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Debug("database migrations complete", "driver", "postgres")
	return nil
}

// RecordDeployment records a deployment, replacing any earlier row for the
// same chain and address
func (s *PostgresStore) RecordDeployment(ctx context.Context, d *Deployment) error {
	if d.ID == "" {
		d.ID = generateID()
	}
	query := `
		INSERT INTO deployments (id, contract_name, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, verification_status, verification_message, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CASE WHEN $12::boolean THEN NOW() END)
		ON CONFLICT (chain_id, address) DO UPDATE SET
			id = EXCLUDED.id,
			contract_name = EXCLUDED.contract_name,
			network = EXCLUDED.network,
			deployer_address = EXCLUDED.deployer_address,
			tx_hash = EXCLUDED.tx_hash,
			block_number = EXCLUDED.block_number,
			constructor_args = EXCLUDED.constructor_args,
			verification_status = EXCLUDED.verification_status,
			verification_message = EXCLUDED.verification_message,
			verified_at = EXCLUDED.verified_at,
			created_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.ContractName, d.Network, d.ChainID, d.Address, d.DeployerAddress, d.TxHash, d.BlockNumber,
		argsOrEmpty(d.ConstructorArgs), d.VerificationStatus, d.VerificationMessage, isVerified(d.VerificationStatus),
	)
	return err
}

const postgresColumns = `id, contract_name, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args::text, verification_status, verification_message, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresDeployment(row rowScanner) (*Deployment, error) {
	var d Deployment
	var createdAt time.Time
	if err := row.Scan(
		&d.ID, &d.ContractName, &d.Network, &d.ChainID, &d.Address, &d.DeployerAddress, &d.TxHash, &d.BlockNumber,
		&d.ConstructorArgs, &d.VerificationStatus, &d.VerificationMessage, &createdAt,
	); err != nil {
		return nil, err
	}
	d.CreatedAt = createdAt.UTC().Format(timeLayout)
	return &d, nil
}

// GetDeployment retrieves a deployment
func (s *PostgresStore) GetDeployment(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	query := `SELECT ` + postgresColumns + ` FROM deployments WHERE chain_id = $1 AND lower(address) = lower($2)`
	d, err := scanPostgresDeployment(s.db.QueryRowContext(ctx, query, chainID, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ListDeployments lists deployments, newest first
func (s *PostgresStore) ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error) {
	offset, err := decodeCursor(pagination.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pageSize(pagination)

	where, args := whereClause(filter, func(n int) string { return fmt.Sprintf("$%d", n) })
	query := `SELECT ` + postgresColumns + ` FROM deployments` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit+1, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		d, err := scanPostgresDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return paginate(deployments, limit, offset), nil
}

// UpdateVerificationStatus updates a deployment's verification status
func (s *PostgresStore) UpdateVerificationStatus(ctx context.Context, id, status, message string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deployments SET verification_status = $1, verification_message = $2, verified_at = CASE WHEN $3::boolean THEN NOW() END WHERE id = $4",
		status, message, isVerified(status), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}
