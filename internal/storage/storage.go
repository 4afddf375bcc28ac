package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pendergraft/deployctl/internal/config"
)

// DeploymentStore handles deployment history operations
type DeploymentStore interface {
	RecordDeployment(ctx context.Context, d *Deployment) error
	GetDeployment(ctx context.Context, chainID int64, address string) (*Deployment, error)
	ListDeployments(ctx context.Context, filter DeploymentFilter, pagination PaginationParams) (*PaginatedResult[Deployment], error)
	UpdateVerificationStatus(ctx context.Context, id, status, message string) error
}

// Store combines the deployment store with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	DeploymentStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Deployment is one recorded run of the deploy flow
type Deployment struct {
	ID                  string
	ContractName        string
	Network             string
	ChainID             int64
	Address             string
	DeployerAddress     string
	TxHash              string
	BlockNumber         int64
	ConstructorArgs     string // JSON array
	VerificationStatus  string
	VerificationMessage string
	CreatedAt           string
}

// DeploymentFilter contains filter options for listing deployments
type DeploymentFilter struct {
	ChainID            int64
	Network            string
	ContractName       string
	VerificationStatus string
}

// PaginationParams contains pagination options
type PaginationParams struct {
	Limit  int
	Cursor string
}

// PaginatedResult contains paginated results
type PaginatedResult[T any] struct {
	Data       []T
	HasMore    bool
	NextCursor string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	case "none", "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
