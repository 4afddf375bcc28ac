// Package transport provides HTTP request/response types for the deployments domain.
package transport

import (
	"encoding/json"
	"time"

	"github.com/pendergraft/deployctl/internal/deployments/domain"
)

// DeploymentListResponse is the response for listing deployments.
type DeploymentListResponse struct {
	Data       []DeploymentItem `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// DeploymentItem is a deployment in a list.
type DeploymentItem struct {
	ChainID            int64  `json:"chainId"`
	Network            string `json:"network,omitempty"`
	Address            string `json:"address"`
	ContractName       string `json:"contractName"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
	TxHash             string `json:"txHash,omitempty"`
	CreatedAt          string `json:"createdAt,omitempty"`
}

// Pagination provides pagination metadata.
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor"`
}

// DeploymentResponse is the response for getting a deployment.
type DeploymentResponse struct {
	ID                  string          `json:"id"`
	ChainID             int64           `json:"chainId"`
	Network             string          `json:"network,omitempty"`
	Address             string          `json:"address"`
	ContractName        string          `json:"contractName"`
	DeployerAddress     string          `json:"deployerAddress"`
	TxHash              string          `json:"txHash"`
	BlockNumber         int64           `json:"blockNumber"`
	ConstructorArgs     json.RawMessage `json:"constructorArgs"`
	VerificationStatus  string          `json:"verificationStatus"`
	VerificationMessage string          `json:"verificationMessage,omitempty"`
	CreatedAt           string          `json:"createdAt"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toItem(d domain.Deployment) DeploymentItem {
	return DeploymentItem{
		ChainID:            d.ChainID,
		Network:            d.Network,
		Address:            d.Address,
		ContractName:       d.ContractName,
		VerificationStatus: d.VerificationStatus,
		TxHash:             d.TxHash,
		CreatedAt:          formatTime(d.CreatedAt),
	}
}

func toResponse(d *domain.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:                  d.ID,
		ChainID:             d.ChainID,
		Network:             d.Network,
		Address:             d.Address,
		ContractName:        d.ContractName,
		DeployerAddress:     d.DeployerAddress,
		TxHash:              d.TxHash,
		BlockNumber:         d.BlockNumber,
		ConstructorArgs:     d.ConstructorArgs,
		VerificationStatus:  d.VerificationStatus,
		VerificationMessage: d.VerificationMessage,
		CreatedAt:           formatTime(d.CreatedAt),
	}
}
