package networks

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// networksFile is the on-disk override format:
//
//	networks:
//	  - chainId: 11155111
//	    name: sepolia
//	    explorerApiUrl: https://api.etherscan.io/v2/api
//	    params:
//	      ethUsdPriceFeed: "0x694AA1769357215DE4FAC081bf1f309aDC325306"
type networksFile struct {
	Networks []NetworkConfig `yaml:"networks"`
}

// LoadFile reads network overrides from a YAML file.
func LoadFile(path string) ([]NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f networksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return f.Networks, nil
}

// Load returns the default registry, merged with the overrides in path when
// path is non-empty.
func Load(path string) (*Registry, error) {
	r := Default()
	if path == "" {
		return r, nil
	}
	overrides, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading networks file: %w", err)
	}
	return r.Merge(overrides)
}
