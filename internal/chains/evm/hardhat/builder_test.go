package hardhat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/deployctl/internal/chains"
)

const exchangeABI = `[{"inputs":[{"internalType":"address","name":"_token","type":"address"}],"stateMutability":"nonpayable","type":"constructor"}]`

// writeProject lays out a compiled Hardhat project with one Exchange artifact
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hardhat.config.js"), []byte("module.exports = {}"), 0644))

	artifactDir := filepath.Join(dir, "artifacts", "contracts", "Exchange.sol")
	buildInfoDir := filepath.Join(dir, "artifacts", "build-info")
	require.NoError(t, os.MkdirAll(artifactDir, 0755))
	require.NoError(t, os.MkdirAll(buildInfoDir, 0755))

	artifact := map[string]any{
		"_format":          "hh-sol-artifact-1",
		"contractName":     "Exchange",
		"sourceName":       "contracts/Exchange.sol",
		"abi":              json.RawMessage(exchangeABI),
		"bytecode":         "0x600a600c600039600a6000f3602a60005260206000f3",
		"deployedBytecode": "0x602a60005260206000f3",
	}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "Exchange.json"), data, 0644))

	dbg := `{"_format":"hh-sol-dbg-1","buildInfo":"../../build-info/f00d.json"}`
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "Exchange.dbg.json"), []byte(dbg), 0644))

	bi := map[string]any{
		"_format":         "hh-sol-build-info-1",
		"id":              "f00d",
		"solcVersion":     "0.8.4",
		"solcLongVersion": "0.8.4+commit.c7e474f2",
		"input": map[string]any{
			"language": "Solidity",
			"sources":  map[string]any{"contracts/Exchange.sol": map[string]any{"content": "contract Exchange {}"}},
			"settings": map[string]any{"optimizer": map[string]any{"enabled": false, "runs": 200}},
		},
		"output": map[string]any{
			"contracts": map[string]any{"contracts/Exchange.sol": map[string]any{"Exchange": map[string]any{}}},
		},
	}
	data, err = json.Marshal(bi)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(buildInfoDir, "f00d.json"), data, 0644))

	return dir
}

func TestBuilder_Detect(t *testing.T) {
	b := New()

	for _, name := range []string{"hardhat.config.js", "hardhat.config.ts", "hardhat.config.cjs"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(""), 0644))

			detected, err := b.Detect(dir)
			require.NoError(t, err)
			assert.True(t, detected)
		})
	}

	t.Run("empty dir", func(t *testing.T) {
		detected, err := b.Detect(t.TempDir())
		require.NoError(t, err)
		assert.False(t, detected)
	})
}

func TestBuilder_FindAndParse(t *testing.T) {
	b := New()
	dir := writeProject(t)

	path, err := b.FindArtifact(dir, "Exchange")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "artifacts", "contracts", "Exchange.sol", "Exchange.json"), path)

	artifact, err := b.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "Exchange", artifact.Name)
	assert.Equal(t, "contracts/Exchange.sol", artifact.EVM.SourcePath)
	assert.Equal(t, "0.8.4+commit.c7e474f2", artifact.EVM.Compiler.Version)
	assert.Equal(t, "contracts/Exchange.sol:Exchange", artifact.FullyQualifiedName())
	assert.JSONEq(t, exchangeABI, string(artifact.EVM.ABI))

	_, err = b.FindArtifact(dir, "Token")
	assert.ErrorIs(t, err, chains.ErrArtifactNotFound)
}

func TestBuilder_VerificationInput(t *testing.T) {
	b := New()

	t.Run("via dbg pointer", func(t *testing.T) {
		dir := writeProject(t)

		vi, err := b.VerificationInput(dir, "Exchange", "contracts/Exchange.sol")
		require.NoError(t, err)
		assert.Equal(t, "0.8.4+commit.c7e474f2", vi.SolcLongVersion)
		assert.Contains(t, string(vi.StandardJSON), "contracts/Exchange.sol")
	})

	t.Run("scan when dbg missing", func(t *testing.T) {
		dir := writeProject(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "artifacts", "contracts", "Exchange.sol", "Exchange.dbg.json")))

		vi, err := b.VerificationInput(dir, "Exchange", "contracts/Exchange.sol")
		require.NoError(t, err)
		assert.Equal(t, "0.8.4+commit.c7e474f2", vi.SolcLongVersion)
	})

	t.Run("no build output", func(t *testing.T) {
		_, err := b.VerificationInput(t.TempDir(), "Exchange", "")
		assert.Error(t, err)
	})
}
