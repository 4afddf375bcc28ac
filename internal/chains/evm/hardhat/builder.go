// Package hardhat reads Hardhat compilation artifacts.
package hardhat

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/chains/evm/buildinfo"
)

var configFiles = []string{"hardhat.config.js", "hardhat.config.ts", "hardhat.config.cjs"}

// Builder implements chains.Builder for Hardhat projects
type Builder struct{}

// New creates a new Hardhat builder
func New() *Builder {
	return &Builder{}
}

func (b *Builder) Name() string        { return "hardhat" }
func (b *Builder) DisplayName() string { return "Hardhat" }

// Detect checks for any of the Hardhat config files
func (b *Builder) Detect(dir string) (bool, error) {
	for _, name := range configFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, err
		}
	}
	return false, nil
}

// Artifact is the hh-sol-artifact-1 JSON layout
type Artifact struct {
	Format           string          `json:"_format"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
}

// debugFile is the {Name}.dbg.json that points at the build-info
type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// FindArtifact locates artifacts/**/{Source}.sol/{contractName}.json.
// Sources under contracts/ win over node_modules dependencies.
func (b *Builder) FindArtifact(dir, contractName string) (string, error) {
	artifactsDir := filepath.Join(dir, "artifacts")
	if _, err := os.Stat(artifactsDir); os.IsNotExist(err) {
		return "", fmt.Errorf("artifacts directory not found - run 'npx hardhat compile' first: %w", chains.ErrArtifactNotFound)
	}

	var candidates []string
	err := filepath.WalkDir(artifactsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == contractName+".json" && strings.HasSuffix(filepath.Dir(path), ".sol") {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking artifacts directory: %w", err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%s in %s: %w", contractName, artifactsDir, chains.ErrArtifactNotFound)
	}

	sort.Strings(candidates)
	local := filepath.Join(artifactsDir, "contracts") + string(filepath.Separator)
	for _, path := range candidates {
		if strings.HasPrefix(path, local) {
			return path, nil
		}
	}
	return candidates[0], nil
}

// Parse parses a Hardhat artifact file. The compiler version is taken from
// the build-info referenced by the sibling .dbg.json when present.
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw Artifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}
	if raw.Bytecode == "" || raw.Bytecode == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	name := raw.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(artifactPath), ".json")
	}

	artifact := &chains.Artifact{
		Name:  name,
		Chain: "evm",
		EVM: &chains.EVMArtifact{
			SourcePath:       raw.SourceName,
			ABI:              raw.ABI,
			Bytecode:         raw.Bytecode,
			DeployedBytecode: raw.DeployedBytecode,
		},
	}

	if bi, err := readLinkedBuildInfo(artifactPath); err == nil {
		artifact.EVM.Compiler.Version = bi.SolcLongVersion
	}
	return artifact, nil
}

// VerificationInput resolves the build-info for contractName, preferring the
// file the artifact's .dbg.json points at.
func (b *Builder) VerificationInput(dir, contractName, sourcePath string) (*chains.VerificationInput, error) {
	if artifactPath, err := b.FindArtifact(dir, contractName); err == nil {
		if bi, err := readLinkedBuildInfo(artifactPath); err == nil {
			stdJSON, err := buildinfo.StripStandardJSONKeys(bi.Input)
			if err == nil {
				return &chains.VerificationInput{
					StandardJSON:    stdJSON,
					SolcLongVersion: bi.SolcLongVersion,
				}, nil
			}
		}
	}
	return buildinfo.Find(filepath.Join(dir, "artifacts", "build-info"), contractName, sourcePath)
}

func readLinkedBuildInfo(artifactPath string) (*buildinfo.BuildInfo, error) {
	dbgPath := strings.TrimSuffix(artifactPath, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, err
	}

	var dbg debugFile
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, err
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("%s has no buildInfo reference", dbgPath)
	}

	biPath := dbg.BuildInfo
	if !filepath.IsAbs(biPath) {
		biPath = filepath.Join(filepath.Dir(artifactPath), filepath.FromSlash(biPath))
	}
	data, err = os.ReadFile(biPath)
	if err != nil {
		return nil, err
	}

	var bi buildinfo.BuildInfo
	if err := json.Unmarshal(data, &bi); err != nil {
		return nil, err
	}
	return &bi, nil
}
