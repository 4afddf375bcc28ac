package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pendergraft/deployctl/internal/storage"
	"github.com/pendergraft/deployctl/internal/validation"
)

// Common errors returned by the deployment service.
var (
	ErrNotFound       = errors.New("deployment not found")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidChainID = errors.New("invalid chain ID")
	ErrInvalidCursor  = errors.New("invalid cursor")
)

// Service defines the deployment service interface.
type Service interface {
	// Record records a new deployment.
	Record(ctx context.Context, req RecordRequest) (*Deployment, error)

	// Get retrieves a deployment by chain and address.
	Get(ctx context.Context, chainID int64, address string) (*Deployment, error)

	// List lists deployments with filtering and pagination.
	List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error)

	// UpdateVerificationStatus updates the verification status of a deployment.
	UpdateVerificationStatus(ctx context.Context, chainID int64, address, status, message string) error
}

// service implements the Service interface.
type service struct {
	store storage.DeploymentStore
}

// NewService creates a new deployment service.
func NewService(store storage.DeploymentStore) Service {
	return &service{store: store}
}

// Record records a new deployment.
func (s *service) Record(ctx context.Context, req RecordRequest) (*Deployment, error) {
	if err := validation.ValidateAddress(req.Address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if err := validation.ValidateChainID(req.ChainID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChainID, err)
	}

	args := req.ConstructorArgs
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding constructor arguments: %w", err)
	}

	deployment := &storage.Deployment{
		ContractName:        req.Contract,
		Network:             req.Network,
		ChainID:             req.ChainID,
		Address:             req.Address,
		DeployerAddress:     req.DeployerAddress,
		TxHash:              req.TxHash,
		BlockNumber:         req.BlockNumber,
		ConstructorArgs:     string(encoded),
		VerificationStatus:  req.VerificationStatus,
		VerificationMessage: req.VerificationMessage,
	}

	if err := s.store.RecordDeployment(ctx, deployment); err != nil {
		return nil, fmt.Errorf("recording deployment: %w", err)
	}

	return toDeployment(deployment), nil
}

// Get retrieves a deployment by chain and address.
func (s *service) Get(ctx context.Context, chainID int64, address string) (*Deployment, error) {
	deployment, err := s.store.GetDeployment(ctx, chainID, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting deployment: %w", err)
	}

	return toDeployment(deployment), nil
}

// List lists deployments with filtering and pagination.
func (s *service) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	result, err := s.store.ListDeployments(ctx, storage.DeploymentFilter{
		ChainID:            filter.ChainID,
		Network:            filter.Network,
		ContractName:       filter.Contract,
		VerificationStatus: filter.VerificationStatus,
	}, storage.PaginationParams{
		Limit:  pagination.Limit,
		Cursor: pagination.Cursor,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, fmt.Errorf("listing deployments: %w", err)
	}

	deployments := make([]Deployment, len(result.Data))
	for i, d := range result.Data {
		deployments[i] = *toDeployment(&d)
	}

	return &ListResult{
		Deployments: deployments,
		HasMore:     result.HasMore,
		NextCursor:  result.NextCursor,
	}, nil
}

// UpdateVerificationStatus updates the verification status of a deployment.
func (s *service) UpdateVerificationStatus(ctx context.Context, chainID int64, address, status, message string) error {
	deployment, err := s.store.GetDeployment(ctx, chainID, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("getting deployment: %w", err)
	}

	if err := s.store.UpdateVerificationStatus(ctx, deployment.ID, status, message); err != nil {
		return fmt.Errorf("updating verification status: %w", err)
	}

	return nil
}

func toDeployment(d *storage.Deployment) *Deployment {
	var createdAt time.Time
	if d.CreatedAt != "" {
		// Both stores return "2006-01-02 15:04:05" in UTC
		createdAt, _ = time.Parse("2006-01-02 15:04:05", d.CreatedAt)
	}
	args := json.RawMessage(d.ConstructorArgs)
	if len(args) == 0 || !json.Valid(args) {
		args = json.RawMessage("[]")
	}
	return &Deployment{
		ID:                  d.ID,
		ContractName:        d.ContractName,
		Network:             d.Network,
		ChainID:             d.ChainID,
		Address:             d.Address,
		DeployerAddress:     d.DeployerAddress,
		TxHash:              d.TxHash,
		BlockNumber:         d.BlockNumber,
		ConstructorArgs:     args,
		VerificationStatus:  d.VerificationStatus,
		VerificationMessage: d.VerificationMessage,
		CreatedAt:           createdAt,
	}
}
