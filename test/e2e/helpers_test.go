//go:build e2e

package e2e

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/chains/evm/foundry"
	"github.com/pendergraft/deployctl/internal/config"
	"github.com/pendergraft/deployctl/internal/deployer"
	"github.com/pendergraft/deployctl/internal/server"
	"github.com/pendergraft/deployctl/internal/storage"
)

const (
	exchangeABI = `[{"inputs":[{"internalType":"address","name":"_token","type":"address"}],"stateMutability":"nonpayable","type":"constructor"}]`
	// init code copies the 10-byte runtime that returns 42
	exchangeCode = "0x600a600c600039600a6000f3602a60005260206000f3"
	runtimeCode  = "0x602a60005260206000f3"
	tokenAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	exchangeSrc  = "// SPDX-License-Identifier: MIT\npragma solidity ^0.8.4;\n\ncontract Exchange {\n    constructor(address _token) {}\n}\n"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Store             storage.Store
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("deployctl"),
		postgres.WithUsername("deployctl"),
		postgres.WithPassword("deployctl"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// startServerE starts the history API in-process on a Postgres store
func startServerE(connString string) (*httptest.Server, storage.Store, error) {
	cfg := config.StorageConfig{
		Type:     "postgres",
		Postgres: config.PostgresConfig{URL: connString},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return httptest.NewServer(server.New(store, logger).Handler()), store, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeFoundryProject lays out a Foundry project with a compiled Exchange.
func writeFoundryProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "foundry.toml"), []byte("[profile.default]\nsrc = \"src\"\nout = \"out\"\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "Exchange.sol"), []byte(exchangeSrc), 0644))

	meta := map[string]any{
		"compiler": map[string]any{"version": "0.8.4+commit.c7e474f2"},
		"language": "Solidity",
		"settings": map[string]any{
			"compilationTarget": map[string]string{"src/Exchange.sol": "Exchange"},
			"evmVersion":        "istanbul",
			"optimizer":         map[string]any{"enabled": true, "runs": 200},
		},
		"sources": map[string]any{
			"src/Exchange.sol": map[string]any{"keccak256": "0xabc", "license": "MIT"},
		},
	}
	metaBytes, err := json.Marshal(meta)
	require.NoError(t, err)

	artifact := map[string]any{
		"abi":              json.RawMessage(exchangeABI),
		"bytecode":         map[string]any{"object": exchangeCode},
		"deployedBytecode": map[string]any{"object": runtimeCode},
		"rawMetadata":      string(metaBytes),
	}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "out", "Exchange.sol")
	require.NoError(t, os.MkdirAll(outDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "Exchange.json"), data, 0644))

	return dir
}

type chainEnv struct {
	sim       *simulated.Backend
	toolchain *deployer.Client
	builder   chains.Builder
	from      common.Address
}

// newChain starts a simulated chain that mines a block every 10ms and
// a toolchain signing with a funded key.
func newChain(t *testing.T, projectDir string) *chainEnv {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	balance := new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
	sim := simulated.NewBackend(types.GenesisAlloc{from: {Balance: balance}})
	t.Cleanup(func() { _ = sim.Close() })

	builder := foundry.New()
	tc, err := deployer.New(sim.Client(), deployer.Options{
		ProjectDir:   projectDir,
		Builder:      builder,
		PrivateKey:   "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
		PollInterval: 10 * time.Millisecond,
	}, testLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				sim.Commit()
			}
		}
	}()

	return &chainEnv{sim: sim, toolchain: tc, builder: builder, from: from}
}

// fakeExplorer speaks the Etherscan verifysourcecode/checkverifystatus protocol.
type fakeExplorer struct {
	mu       sync.Mutex
	verified map[string]bool
	forms    []map[string]string
}

func newFakeExplorer(t *testing.T) (*fakeExplorer, *httptest.Server) {
	e := &fakeExplorer{verified: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(e.handle))
	t.Cleanup(srv.Close)
	return e, srv
}

func (e *fakeExplorer) handle(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	e.mu.Lock()
	defer e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Form.Get("action") {
	case "verifysourcecode":
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		e.forms = append(e.forms, form)

		addr := form["contractaddress"]
		if e.verified[addr] {
			json.NewEncoder(w).Encode(map[string]string{"status": "0", "message": "NOTOK", "result": "Contract source code already verified"})
			return
		}
		e.verified[addr] = true
		json.NewEncoder(w).Encode(map[string]string{"status": "1", "message": "OK", "result": "guid-" + addr})
	case "checkverifystatus":
		json.NewEncoder(w).Encode(map[string]string{"status": "1", "message": "OK", "result": "Pass - Verified"})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (e *fakeExplorer) submissions() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]string(nil), e.forms...)
}
