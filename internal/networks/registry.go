// Package networks holds the static table of known EVM networks and the set
// of development chains on which explorer verification is skipped.
package networks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Well-known chain IDs.
const (
	HardhatChainID int64 = 31337
	GoerliChainID  int64 = 5
	SepoliaChainID int64 = 11155111
	MainnetChainID int64 = 1
)

var (
	ErrDuplicateChainID = errors.New("duplicate chain ID")
	ErrEmptyName        = errors.New("network name is empty")
)

// NetworkConfig describes a single network.
type NetworkConfig struct {
	ChainID        int64             `yaml:"chainId" json:"chainId"`
	Name           string            `yaml:"name" json:"name"`
	ExplorerAPIURL string            `yaml:"explorerApiUrl,omitempty" json:"explorerApiUrl,omitempty"`
	Params         map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// Registry is an immutable chain ID -> NetworkConfig table.
// Build it once at startup and pass it to whoever needs network context.
type Registry struct {
	byID     map[int64]NetworkConfig
	devNames map[string]struct{}
}

// defaultDevelopmentChains are the local networks where verification is neither possible nor wanted.
var defaultDevelopmentChains = []string{"hardhat", "localhost"}

func defaultNetworks() []NetworkConfig {
	return []NetworkConfig{
		{ChainID: HardhatChainID, Name: "hardhat"},
		{ChainID: GoerliChainID, Name: "goerli", ExplorerAPIURL: "https://api.etherscan.io/v2/api"},
		{ChainID: SepoliaChainID, Name: "sepolia", ExplorerAPIURL: "https://api.etherscan.io/v2/api"},
		{ChainID: MainnetChainID, Name: "mainnet", ExplorerAPIURL: "https://api.etherscan.io/v2/api"},
	}
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := NewRegistry(defaultNetworks(), defaultDevelopmentChains)
	if err != nil {
		panic(fmt.Sprintf("networks: invalid default table: %v", err))
	}
	return r
}

// NewRegistry builds a registry from the given networks and development chain names.
func NewRegistry(configs []NetworkConfig, devChains []string) (*Registry, error) {
	r := &Registry{
		byID:     make(map[int64]NetworkConfig, len(configs)),
		devNames: make(map[string]struct{}, len(devChains)),
	}
	for _, c := range configs {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%w: chain %d", ErrEmptyName, c.ChainID)
		}
		if _, ok := r.byID[c.ChainID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateChainID, c.ChainID)
		}
		r.byID[c.ChainID] = c.clone()
	}
	for _, name := range devChains {
		r.devNames[name] = struct{}{}
	}
	return r, nil
}

// Merge returns a new registry where overrides replace entries with the same
// chain ID. The receiver is left untouched.
func (r *Registry) Merge(overrides []NetworkConfig) (*Registry, error) {
	merged := make(map[int64]NetworkConfig, len(r.byID)+len(overrides))
	for id, c := range r.byID {
		merged[id] = c
	}
	seen := make(map[int64]bool, len(overrides))
	for _, c := range overrides {
		if seen[c.ChainID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateChainID, c.ChainID)
		}
		seen[c.ChainID] = true
		merged[c.ChainID] = c
	}

	configs := make([]NetworkConfig, 0, len(merged))
	for _, c := range merged {
		configs = append(configs, c)
	}
	return NewRegistry(configs, r.DevelopmentChains())
}

// Lookup returns the network for a chain ID. A missing ID is not an error:
// callers treat it as "no special config".
func (r *Registry) Lookup(chainID int64) (NetworkConfig, bool) {
	c, ok := r.byID[chainID]
	if !ok {
		return NetworkConfig{}, false
	}
	return c.clone(), true
}

// NameFor returns the registered name for a chain ID, or "" if unlisted.
func (r *Registry) NameFor(chainID int64) string {
	return r.byID[chainID].Name
}

// IsDevelopment reports whether name is a development chain.
func (r *Registry) IsDevelopment(name string) bool {
	_, ok := r.devNames[name]
	return ok
}

// DevelopmentChains returns the development chain names, sorted.
func (r *Registry) DevelopmentChains() []string {
	names := make([]string, 0, len(r.devNames))
	for n := range r.devNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Networks returns all networks ordered by chain ID.
func (r *Registry) Networks() []NetworkConfig {
	out := make([]NetworkConfig, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func (c NetworkConfig) clone() NetworkConfig {
	if c.Params == nil {
		return c
	}
	params := make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	c.Params = params
	return c
}
