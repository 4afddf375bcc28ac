package domain

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/deployer"
	"github.com/pendergraft/deployctl/internal/validation"
)

// ArtifactSources builds requests from a project's build output.
type ArtifactSources struct {
	projectDir string
	builder    chains.Builder
	factory    *deployer.Factory
	chainID    int64
}

// NewArtifactSources creates Sources for the contract behind factory.
func NewArtifactSources(projectDir string, builder chains.Builder, factory *deployer.Factory, chainID int64) *ArtifactSources {
	return &ArtifactSources{
		projectDir: projectDir,
		builder:    builder,
		factory:    factory,
		chainID:    chainID,
	}
}

// Prepare resolves the standard JSON input and encodes args.
func (s *ArtifactSources) Prepare(ctx context.Context, address string, args []any) (*Request, error) {
	artifact := s.factory.Artifact
	sourcePath := ""
	if artifact.EVM != nil {
		sourcePath = artifact.EVM.SourcePath
	}

	vi, err := s.builder.VerificationInput(s.projectDir, artifact.Name, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSource, err)
	}
	if err := validation.ValidateCompilerVersion(vi.SolcLongVersion); err != nil {
		return nil, err
	}

	encoded, err := deployer.EncodeArgs(s.factory.ABI, args)
	if err != nil {
		return nil, fmt.Errorf("encoding constructor arguments: %w", err)
	}

	return &Request{
		Address:         address,
		ChainID:         s.chainID,
		ContractName:    artifact.FullyQualifiedName(),
		CompilerVersion: validation.ExplorerCompilerVersion(vi.SolcLongVersion),
		StandardJSON:    vi.StandardJSON,
		ConstructorArgs: hex.EncodeToString(encoded),
		Args:            args,
	}, nil
}
