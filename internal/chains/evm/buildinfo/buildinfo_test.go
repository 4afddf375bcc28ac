package buildinfo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBuildInfo(t *testing.T, dir, name, source, contract string) {
	t.Helper()
	bi := map[string]any{
		"id":              name,
		"solcVersion":     "0.8.4",
		"solcLongVersion": "0.8.4+commit.c7e474f2",
		"input": map[string]any{
			"language":     "Solidity",
			"sources":      map[string]any{source: map[string]any{"content": "contract " + contract + " {}"}},
			"settings":     map[string]any{"optimizer": map[string]any{"enabled": false, "runs": 200}},
			"allowPaths":   []string{"."},
			"includePaths": []string{},
		},
		"output": map[string]any{
			"contracts": map[string]any{source: map[string]any{contract: map[string]any{}}},
		},
	}
	data, err := json.Marshal(bi)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), data, 0644))
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	writeBuildInfo(t, dir, "aaa", "contracts/Token.sol", "Token")
	writeBuildInfo(t, dir, "bbb", "contracts/Exchange.sol", "Exchange")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	t.Run("by source path", func(t *testing.T) {
		vi, err := Find(dir, "Exchange", "contracts/Exchange.sol")
		require.NoError(t, err)
		assert.Equal(t, "0.8.4+commit.c7e474f2", vi.SolcLongVersion)

		var input map[string]any
		require.NoError(t, json.Unmarshal(vi.StandardJSON, &input))
		assert.Contains(t, input, "sources")
		assert.NotContains(t, input, "allowPaths")
		assert.NotContains(t, input, "includePaths")
		sources := input["sources"].(map[string]any)
		assert.Contains(t, sources, "contracts/Exchange.sol")
	})

	t.Run("by contract name only", func(t *testing.T) {
		vi, err := Find(dir, "Token", "")
		require.NoError(t, err)
		assert.Contains(t, string(vi.StandardJSON), "contracts/Token.sol")
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := Find(dir, "Missing", "")
		assert.Error(t, err)
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := Find(filepath.Join(dir, "nope"), "Exchange", "")
		assert.Error(t, err)
	})
}
