//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/deployctl/internal/networks"
	"github.com/pendergraft/deployctl/internal/storage"
)

func TestPostgres_VerifiedAt(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("pgx", testCtx.ConnString)
	require.NoError(t, err)
	defer db.Close()

	verifiedAt := func(id string) sql.NullTime {
		t.Helper()
		var v sql.NullTime
		require.NoError(t, db.QueryRowContext(ctx, "SELECT verified_at FROM deployments WHERE id = $1", id).Scan(&v))
		return v
	}

	record := func(address, status string) *storage.Deployment {
		t.Helper()
		d := &storage.Deployment{
			ContractName:       "Exchange",
			Network:            "sepolia",
			ChainID:            networks.SepoliaChainID,
			Address:            address,
			TxHash:             "0xabc",
			VerificationStatus: status,
		}
		require.NoError(t, testCtx.Store.RecordDeployment(ctx, d))
		return d
	}

	verified := record("0x00000000000000000000000000000000000000a1", "verified")
	assert.True(t, verifiedAt(verified.ID).Valid)

	already := record("0x00000000000000000000000000000000000000a2", "already_verified")
	assert.True(t, verifiedAt(already.ID).Valid)

	skipped := record("0x00000000000000000000000000000000000000a3", "skipped")
	assert.False(t, verifiedAt(skipped.ID).Valid)

	require.NoError(t, testCtx.Store.UpdateVerificationStatus(ctx, skipped.ID, "verified", ""))
	assert.True(t, verifiedAt(skipped.ID).Valid)

	require.NoError(t, testCtx.Store.UpdateVerificationStatus(ctx, skipped.ID, "failed", "bytecode mismatch"))
	assert.False(t, verifiedAt(skipped.ID).Valid)
}
