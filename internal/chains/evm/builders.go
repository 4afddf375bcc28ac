package evm

import (
	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/chains/evm/foundry"
	"github.com/pendergraft/deployctl/internal/chains/evm/hardhat"
)

// NewHardhatBuilder creates a new Hardhat builder
func NewHardhatBuilder() chains.Builder {
	return hardhat.New()
}

// NewFoundryBuilder creates a new Foundry builder
func NewFoundryBuilder() chains.Builder {
	return foundry.New()
}
