package domain

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/deployctl/internal/storage"
)

// mockStore implements storage.DeploymentStore for testing
type mockStore struct {
	deployments map[string]*storage.Deployment
	nextID      int
	listErr     error
}

func newMockStore() *mockStore {
	return &mockStore{
		deployments: make(map[string]*storage.Deployment),
	}
}

func key(chainID int64, address string) string {
	return fmt.Sprintf("%d/%s", chainID, strings.ToLower(address))
}

func (m *mockStore) RecordDeployment(ctx context.Context, d *storage.Deployment) error {
	if d.ID == "" {
		m.nextID++
		d.ID = fmt.Sprintf("deploy-%d", m.nextID)
	}
	m.deployments[key(d.ChainID, d.Address)] = d
	return nil
}

func (m *mockStore) GetDeployment(ctx context.Context, chainID int64, address string) (*storage.Deployment, error) {
	if d, ok := m.deployments[key(chainID, address)]; ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) ListDeployments(ctx context.Context, filter storage.DeploymentFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Deployment], error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var deployments []storage.Deployment
	for _, d := range m.deployments {
		if filter.ChainID != 0 && d.ChainID != filter.ChainID {
			continue
		}
		deployments = append(deployments, *d)
	}
	return &storage.PaginatedResult[storage.Deployment]{Data: deployments}, nil
}

func (m *mockStore) UpdateVerificationStatus(ctx context.Context, id, status, message string) error {
	for _, d := range m.deployments {
		if d.ID == id {
			d.VerificationStatus = status
			d.VerificationMessage = message
			return nil
		}
	}
	return storage.ErrNotFound
}

func TestService_Record(t *testing.T) {
	tests := []struct {
		name    string
		req     RecordRequest
		wantErr error
	}{
		{
			name: "record valid deployment",
			req: RecordRequest{
				Contract:           "Exchange",
				Network:            "goerli",
				ChainID:            5,
				Address:            "0x1234567890abcdef1234567890abcdef12345678",
				TxHash:             "0xabcdef",
				ConstructorArgs:    []any{"0x5FbDB2315678afecb367f032d93F642f64180aa3"},
				VerificationStatus: "verified",
			},
		},
		{
			name: "invalid address",
			req: RecordRequest{
				Contract: "Exchange",
				ChainID:  1,
				Address:  "invalid",
			},
			wantErr: ErrInvalidAddress,
		},
		{
			name: "invalid chain ID",
			req: RecordRequest{
				Contract: "Exchange",
				ChainID:  0,
				Address:  "0x1234567890abcdef1234567890abcdef12345678",
			},
			wantErr: ErrInvalidChainID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			svc := NewService(store)
			result, err := svc.Record(context.Background(), tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, store.deployments)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, result.ID)
			assert.Equal(t, tt.req.Address, result.Address)
			assert.JSONEq(t, `["0x5FbDB2315678afecb367f032d93F642f64180aa3"]`, string(result.ConstructorArgs))
			assert.Equal(t, "verified", result.VerificationStatus)
		})
	}
}

func TestService_RecordNilArgs(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)

	d, err := svc.Record(context.Background(), RecordRequest{
		Contract: "Exchange",
		ChainID:  31337,
		Address:  "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(d.ConstructorArgs))
}

func TestService_Get(t *testing.T) {
	store := newMockStore()
	store.deployments[key(1, "0x1234567890abcdef1234567890abcdef12345678")] = &storage.Deployment{
		ID:      "deploy-123",
		ChainID: 1,
		Address: "0x1234567890abcdef1234567890abcdef12345678",
	}

	svc := NewService(store)

	t.Run("existing deployment", func(t *testing.T) {
		d, err := svc.Get(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678")
		require.NoError(t, err)
		assert.Equal(t, "deploy-123", d.ID)
		assert.JSONEq(t, `[]`, string(d.ConstructorArgs))
	})

	t.Run("non-existing deployment", func(t *testing.T) {
		_, err := svc.Get(context.Background(), 1, "0x0000000000000000000000000000000000000000")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_List(t *testing.T) {
	store := newMockStore()
	store.deployments[key(1, "0x1234567890abcdef1234567890abcdef12345678")] = &storage.Deployment{
		ID:      "deploy-1",
		ChainID: 1,
		Address: "0x1234567890abcdef1234567890abcdef12345678",
	}
	store.deployments[key(137, "0xabcdef1234567890abcdef1234567890abcdef12")] = &storage.Deployment{
		ID:      "deploy-2",
		ChainID: 137,
		Address: "0xabcdef1234567890abcdef1234567890abcdef12",
	}

	svc := NewService(store)

	result, err := svc.List(context.Background(), ListFilter{}, PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Deployments, 2)

	result, err = svc.List(context.Background(), ListFilter{ChainID: 137}, PaginationParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Deployments, 1)
	assert.Equal(t, "deploy-2", result.Deployments[0].ID)

	store.listErr = storage.ErrInvalidCursor
	_, err = svc.List(context.Background(), ListFilter{}, PaginationParams{Cursor: "bad"})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestService_UpdateVerificationStatus(t *testing.T) {
	store := newMockStore()
	store.deployments[key(1, "0x1234567890abcdef1234567890abcdef12345678")] = &storage.Deployment{
		ID:      "deploy-123",
		ChainID: 1,
		Address: "0x1234567890abcdef1234567890abcdef12345678",
	}

	svc := NewService(store)

	err := svc.UpdateVerificationStatus(context.Background(), 1, "0x1234567890abcdef1234567890abcdef12345678", "failed", "Other error")
	require.NoError(t, err)

	d := store.deployments[key(1, "0x1234567890abcdef1234567890abcdef12345678")]
	assert.Equal(t, "failed", d.VerificationStatus)
	assert.Equal(t, "Other error", d.VerificationMessage)

	err = svc.UpdateVerificationStatus(context.Background(), 5, "0x1234567890abcdef1234567890abcdef12345678", "verified", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToDeployment_TimestampParsing(t *testing.T) {
	tests := []struct {
		name         string
		createdAt    string
		wantYear     int
		wantZeroTime bool
	}{
		{
			name:         "valid datetime",
			createdAt:    "2025-06-15 14:30:45",
			wantYear:     2025,
			wantZeroTime: false,
		},
		{
			name:         "empty datetime",
			createdAt:    "",
			wantYear:     1,
			wantZeroTime: true,
		},
		{
			name:         "invalid datetime format",
			createdAt:    "invalid-date",
			wantYear:     1,
			wantZeroTime: true,
		},
		{
			name:         "ISO format is not parsed",
			createdAt:    "2025-06-15T14:30:45Z",
			wantYear:     1,
			wantZeroTime: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storageDep := &storage.Deployment{
				ID:        "test-id",
				ChainID:   1,
				Address:   "0x1234567890abcdef1234567890abcdef12345678",
				CreatedAt: tt.createdAt,
			}

			domainDep := toDeployment(storageDep)

			if tt.wantZeroTime {
				assert.True(t, domainDep.CreatedAt.IsZero(), "expected zero time for input: %q", tt.createdAt)
			} else {
				assert.False(t, domainDep.CreatedAt.IsZero(), "expected non-zero time for input: %q", tt.createdAt)
				assert.Equal(t, tt.wantYear, domainDep.CreatedAt.Year())
			}
		})
	}
}
