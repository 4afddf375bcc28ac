// Package foundry reads Foundry (forge) build output.
package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/chains/evm/buildinfo"
)

const configFile = "foundry.toml"

// Builder implements chains.Builder for Foundry projects
type Builder struct{}

// New creates a new Foundry builder
func New() *Builder {
	return &Builder{}
}

func (b *Builder) Name() string        { return "foundry" }
func (b *Builder) DisplayName() string { return "Foundry" }

// Detect checks if a directory is a Foundry project
func (b *Builder) Detect(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindArtifact locates out/{Source}.sol/{contractName}.json. When the name
// exists in several sources, a source under src/ wins over lib/ and test/.
func (b *Builder) FindArtifact(dir, contractName string) (string, error) {
	outDir := filepath.Join(dir, "out")
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		return "", fmt.Errorf("out directory not found - run 'forge build' first: %w", chains.ErrArtifactNotFound)
	}

	var candidates []string
	err := filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != contractName+".json" {
			return nil
		}
		if !strings.HasSuffix(filepath.Dir(path), ".sol") {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking out directory: %w", err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%s in %s: %w", contractName, outDir, chains.ErrArtifactNotFound)
	}

	sort.Strings(candidates)
	for _, path := range candidates {
		sourcePath, err := artifactSourcePath(path)
		if err == nil && strings.HasPrefix(sourcePath, "src/") {
			return path, nil
		}
	}
	return candidates[0], nil
}

// artifactSourcePath reads an artifact and returns its compilation target
func artifactSourcePath(artifactPath string) (string, error) {
	raw, err := readArtifact(artifactPath)
	if err != nil {
		return "", err
	}
	if raw.RawMetadata == "" {
		return "", fmt.Errorf("no metadata")
	}

	var metadata FoundryMetadata
	if err := json.Unmarshal([]byte(raw.RawMetadata), &metadata); err != nil {
		return "", err
	}
	return firstKey(metadata.Settings.CompilationTarget), nil
}

func readArtifact(artifactPath string) (*FoundryArtifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw FoundryArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}
	return &raw, nil
}

// Parse parses a Foundry artifact file
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	raw, err := readArtifact(artifactPath)
	if err != nil {
		return nil, err
	}

	// Interfaces and abstract contracts have no creation code
	if raw.Bytecode.Object == "" || raw.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	var metadata FoundryMetadata
	if raw.RawMetadata != "" {
		_ = json.Unmarshal([]byte(raw.RawMetadata), &metadata) // Non-fatal, continue without metadata
	}

	return &chains.Artifact{
		Name:  strings.TrimSuffix(filepath.Base(artifactPath), ".json"),
		Chain: "evm",
		EVM: &chains.EVMArtifact{
			SourcePath:       firstKey(metadata.Settings.CompilationTarget),
			License:          metadata.Sources.FirstLicense(),
			ABI:              raw.ABI,
			Bytecode:         raw.Bytecode.Object,
			DeployedBytecode: raw.DeployedBytecode.Object,
			Compiler: chains.EVMCompiler{
				Version:    metadata.Compiler.Version,
				EVMVersion: metadata.Settings.EVMVersion,
				ViaIR:      metadata.Settings.ViaIR,
				Optimizer: chains.OptimizerConfig{
					Enabled: metadata.Settings.Optimizer.Enabled,
					Runs:    metadata.Settings.Optimizer.Runs,
				},
			},
		},
	}, nil
}

// VerificationInput extracts Standard JSON Input from out/build-info. Projects
// built without --build-info fall back to an input rebuilt from the
// artifact's rawMetadata and the sources on disk.
func (b *Builder) VerificationInput(dir, contractName, sourcePath string) (*chains.VerificationInput, error) {
	vi, err := buildinfo.Find(filepath.Join(dir, "out", "build-info"), contractName, sourcePath)
	if err == nil {
		return vi, nil
	}

	artifactPath, findErr := b.FindArtifact(dir, contractName)
	if findErr != nil {
		return nil, errors.Join(err, findErr)
	}
	return perContractInput(dir, artifactPath)
}

// standardJSONInput is the structure we build for per-contract verification input
type standardJSONInput struct {
	Language string                   `json:"language"`
	Sources  map[string]sourceContent `json:"sources"`
	Settings standardJSONSettings     `json:"settings"`
}

type sourceContent struct {
	Content string `json:"content"`
}

type standardJSONSettings struct {
	Optimizer       OptimizerMeta                  `json:"optimizer"`
	EVMVersion      string                         `json:"evmVersion,omitempty"`
	ViaIR           bool                           `json:"viaIR,omitempty"`
	Libraries       map[string]map[string]string   `json:"libraries,omitempty"`
	Remappings      []string                       `json:"remappings,omitempty"`
	Metadata        MetadataSettings               `json:"metadata,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// perContractInput builds a minimal standard JSON input holding only the
// sources listed in the artifact's metadata, so the metadata hash matches.
func perContractInput(dir, artifactPath string) (*chains.VerificationInput, error) {
	raw, err := readArtifact(artifactPath)
	if err != nil {
		return nil, err
	}
	if raw.RawMetadata == "" {
		return nil, fmt.Errorf("artifact has no rawMetadata")
	}

	var metadata FoundryMetadata
	if err := json.Unmarshal([]byte(raw.RawMetadata), &metadata); err != nil {
		return nil, fmt.Errorf("parsing rawMetadata: %w", err)
	}
	if len(metadata.Sources) == 0 {
		return nil, fmt.Errorf("metadata has no sources")
	}

	sources := make(map[string]sourceContent, len(metadata.Sources))
	for srcPath := range metadata.Sources {
		content, err := os.ReadFile(filepath.Join(dir, srcPath))
		if err != nil {
			return nil, fmt.Errorf("reading source %s: %w", srcPath, err)
		}
		sources[srcPath] = sourceContent{Content: string(content)}
	}

	lang := metadata.Language
	if lang == "" {
		lang = "Solidity"
	}

	opt := metadata.Settings.Optimizer
	// runs=0 is only correct when the optimizer is off
	if opt.Enabled && opt.Runs == 0 {
		opt.Runs = 200
	}

	meta := MetadataSettings{BytecodeHash: "ipfs"}
	if m := metadata.Settings.Metadata; m != nil {
		if m.BytecodeHash != "" {
			meta.BytecodeHash = m.BytecodeHash
		}
		meta.UseLiteralContent = m.UseLiteralContent
		meta.AppendCBOR = m.AppendCBOR
	}

	data, err := json.Marshal(standardJSONInput{
		Language: lang,
		Sources:  sources,
		Settings: standardJSONSettings{
			Optimizer:  opt,
			EVMVersion: metadata.Settings.EVMVersion,
			ViaIR:      metadata.Settings.ViaIR,
			Libraries:  metadata.Settings.Libraries,
			Remappings: metadata.Settings.Remappings,
			Metadata:   meta,
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"abi", "evm.bytecode", "evm.deployedBytecode", "metadata"}},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &chains.VerificationInput{
		StandardJSON:    data,
		SolcLongVersion: metadata.Compiler.Version,
	}, nil
}

// FoundryArtifact represents the structure of a Foundry artifact JSON file
type FoundryArtifact struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         BytecodeObject  `json:"bytecode"`
	DeployedBytecode BytecodeObject  `json:"deployedBytecode"`
	RawMetadata      string          `json:"rawMetadata"`
}

// BytecodeObject represents bytecode in a Foundry artifact
type BytecodeObject struct {
	Object string `json:"object"`
}

// FoundryMetadata represents the parsed rawMetadata field
type FoundryMetadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string       `json:"language"`
	Settings SettingsMeta `json:"settings"`
	Sources  SourcesMeta  `json:"sources"`
}

// MetadataSettings contains metadata options for standard JSON
type MetadataSettings struct {
	BytecodeHash      string `json:"bytecodeHash,omitempty"`      // default "ipfs"
	UseLiteralContent bool   `json:"useLiteralContent,omitempty"` // some projects set true
	AppendCBOR        *bool  `json:"appendCBOR,omitempty"`
}

// SettingsMeta contains compiler settings
type SettingsMeta struct {
	CompilationTarget map[string]string            `json:"compilationTarget"`
	EVMVersion        string                       `json:"evmVersion"`
	Libraries         map[string]map[string]string `json:"libraries"` // source path -> library name -> address
	Metadata          *MetadataSettings            `json:"metadata,omitempty"`
	Optimizer         OptimizerMeta                `json:"optimizer"`
	Remappings        []string                     `json:"remappings"`
	ViaIR             bool                         `json:"viaIR"`
}

// OptimizerMeta contains optimizer settings
type OptimizerMeta struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// SourcesMeta contains source file information
type SourcesMeta map[string]SourceMeta

// SourceMeta contains individual source file info
type SourceMeta struct {
	Keccak256 string `json:"keccak256"`
	License   string `json:"license"`
}

// FirstLicense returns the first license found in sources
func (s SourcesMeta) FirstLicense() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s[k].License != "" {
			return s[k].License
		}
	}
	return ""
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
