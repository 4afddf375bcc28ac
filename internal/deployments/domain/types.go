// Package domain contains the business logic for the deployment history.
package domain

import (
	"encoding/json"
	"time"
)

// Deployment represents a recorded deployment.
type Deployment struct {
	ID                  string          `json:"id"`
	ContractName        string          `json:"contractName"`
	Network             string          `json:"network,omitempty"`
	ChainID             int64           `json:"chainId"`
	Address             string          `json:"address"`
	DeployerAddress     string          `json:"deployerAddress,omitempty"`
	TxHash              string          `json:"txHash,omitempty"`
	BlockNumber         int64           `json:"blockNumber,omitempty"`
	ConstructorArgs     json.RawMessage `json:"constructorArgs"`
	VerificationStatus  string          `json:"verificationStatus,omitempty"`
	VerificationMessage string          `json:"verificationMessage,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// RecordRequest is the request to record a new deployment.
type RecordRequest struct {
	Contract            string
	Network             string
	ChainID             int64
	Address             string
	TxHash              string
	DeployerAddress     string
	BlockNumber         int64
	ConstructorArgs     []any
	VerificationStatus  string
	VerificationMessage string
}

// ListFilter contains filter options for listing deployments.
type ListFilter struct {
	ChainID            int64
	Network            string
	Contract           string
	VerificationStatus string
}

// PaginationParams contains pagination options.
type PaginationParams struct {
	Limit  int
	Cursor string
}

// ListResult contains paginated list results.
type ListResult struct {
	Deployments []Deployment
	HasMore     bool
	NextCursor  string
}
