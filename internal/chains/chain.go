// Package chains provides the artifact builder interfaces and the types
// shared by the EVM chain module.
package chains

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrArtifactNotFound is returned when no artifact exists for a contract name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Builder reads compiled artifacts produced by a specific build tool
type Builder interface {
	// Metadata
	Name() string        // "hardhat", "foundry"
	DisplayName() string // "Hardhat", "Foundry"

	// Detection
	Detect(dir string) (bool, error)

	// Artifact handling
	FindArtifact(dir, contractName string) (string, error)
	Parse(artifactPath string) (*Artifact, error)
	VerificationInput(dir, contractName, sourcePath string) (*VerificationInput, error)
}

// VerifyResult contains bytecode comparison results
type VerifyResult struct {
	Match     bool   // Whether the bytecode matches
	MatchType string // "full", "partial", "none"
	Message   string // Human-readable explanation
}

// Artifact is a compiled contract
type Artifact struct {
	Name  string `json:"name"`
	Chain string `json:"chain"` // "evm"

	EVM *EVMArtifact `json:"evm,omitempty"`
}

// EVMArtifact contains EVM-specific contract data
type EVMArtifact struct {
	SourcePath       string          `json:"sourcePath"`
	License          string          `json:"license,omitempty"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	Compiler         EVMCompiler     `json:"compiler"`
}

// FullyQualifiedName returns "path/To.sol:Name", the form explorers expect.
func (a *Artifact) FullyQualifiedName() string {
	if a.EVM == nil || a.EVM.SourcePath == "" {
		return a.Name
	}
	return a.EVM.SourcePath + ":" + a.Name
}

// EVMCompiler contains EVM compiler details
type EVMCompiler struct {
	Version    string          `json:"version"` // "0.8.20+commit.a1b2c3d4"
	Optimizer  OptimizerConfig `json:"optimizer"`
	EVMVersion string          `json:"evmVersion"` // "paris", "shanghai"
	ViaIR      bool            `json:"viaIR"`
}

// OptimizerConfig contains optimizer settings
type OptimizerConfig struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// VerificationInput is the source bundle submitted to block explorers
type VerificationInput struct {
	StandardJSON    []byte // Solidity standard JSON input
	SolcLongVersion string // "0.8.20+commit.a1b2c3d4"
}

// Registry holds the available builders in detection order
type Registry struct {
	builders []Builder
}

// NewRegistry creates a new builder registry
func NewRegistry(builders ...Builder) *Registry {
	return &Registry{builders: builders}
}

// Register adds a builder to the registry
func (r *Registry) Register(b Builder) {
	r.builders = append(r.builders, b)
}

// Get retrieves a builder by name
func (r *Registry) Get(name string) (Builder, bool) {
	for _, b := range r.builders {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// List returns all registered builders
func (r *Registry) List() []Builder {
	out := make([]Builder, len(r.builders))
	copy(out, r.builders)
	return out
}

// Detect returns the first builder that recognises dir
func (r *Registry) Detect(dir string) (Builder, error) {
	for _, b := range r.builders {
		detected, err := b.Detect(dir)
		if err != nil {
			continue
		}
		if detected {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no supported builder detected in %s", dir)
}
