// Package buildinfo reads solc build-info files (hh-sol-build-info-1 format),
// which both Hardhat and Foundry emit.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pendergraft/deployctl/internal/chains"
)

// BuildInfo represents a build-info file
type BuildInfo struct {
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`     // Short: "0.8.28"
	SolcLongVersion string          `json:"solcLongVersion"` // Full: "0.8.28+commit.7893614a"
	Input           json.RawMessage `json:"input"`           // Standard JSON Input
	Output          json.RawMessage `json:"output"`          // Compilation output
}

// outputContracts represents output.contracts from Solidity compiler output
type outputContracts map[string]map[string]json.RawMessage

// standardJSONKeysToStrip are top-level keys some tools add that solc rejects.
// Standard JSON input only allows language, sources and settings.
var standardJSONKeysToStrip = []string{"allowPaths", "basePath", "includePaths", "version"}

// Find scans buildInfoDir for the build-info that produced
// contracts[sourcePath][contractName]. When sourcePath is empty the first
// readable build-info that mentions contractName in any source wins.
func Find(buildInfoDir, contractName, sourcePath string) (*chains.VerificationInput, error) {
	entries, err := os.ReadDir(buildInfoDir)
	if err != nil {
		return nil, fmt.Errorf("reading build-info directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(buildInfoDir, entry.Name()))
		if err != nil {
			continue
		}

		var bi BuildInfo
		if err := json.Unmarshal(data, &bi); err != nil {
			continue
		}
		if !bi.produced(contractName, sourcePath) {
			continue
		}

		stdJSON, err := StripStandardJSONKeys(bi.Input)
		if err != nil {
			continue
		}

		return &chains.VerificationInput{
			StandardJSON:    stdJSON,
			SolcLongVersion: bi.SolcLongVersion,
		}, nil
	}

	return nil, fmt.Errorf("build-info not found for contract %s", contractName)
}

func (bi *BuildInfo) produced(contractName, sourcePath string) bool {
	var output struct {
		Contracts outputContracts `json:"contracts"`
	}
	if err := json.Unmarshal(bi.Output, &output); err != nil || output.Contracts == nil {
		return false
	}

	if sourcePath != "" {
		_, ok := output.Contracts[sourcePath][contractName]
		return ok
	}
	for _, contracts := range output.Contracts {
		if _, ok := contracts[contractName]; ok {
			return true
		}
	}
	return false
}

// StripStandardJSONKeys removes non-standard top-level keys from standard
// JSON input so it conforms to the Solidity compiler's expected format.
func StripStandardJSONKeys(input json.RawMessage) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(input, &m); err != nil {
		return nil, err
	}
	for _, key := range standardJSONKeysToStrip {
		delete(m, key)
	}
	return json.Marshal(m)
}
