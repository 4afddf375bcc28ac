package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ProjectConfigFiles is the search order for project config files
var ProjectConfigFiles = []string{"deployctl.toml", ".deployctl.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	RPCURL        string            `toml:"rpc_url,omitempty"`
	Network       string            `toml:"network,omitempty"`
	Contract      string            `toml:"contract,omitempty"`
	Confirmations int               `toml:"confirmations,omitempty"`
	ProjectDir    string            `toml:"project_dir,omitempty"`
	NetworksFile  string            `toml:"networks_file,omitempty"`
	Explorer      ExplorerTOML      `toml:"explorer,omitempty"`
	Storage       StorageTOML       `toml:"storage,omitempty"`
	Constants     map[string]string `toml:"constants,omitempty"`

	FailOnVerifyError *bool `toml:"fail_on_verify_error,omitempty"`
}

// ExplorerTOML contains explorer settings for the project config
type ExplorerTOML struct {
	APIURL string `toml:"api_url,omitempty"`
}

// StorageTOML contains history storage settings for the project config
type StorageTOML struct {
	Type       string `toml:"type,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// FindProjectFile returns the first existing project config file, or "".
func FindProjectFile() string {
	for _, name := range ProjectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadProject parses a project config file.
func LoadProject(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pc ProjectConfig
	if _, err := toml.Decode(string(data), &pc); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return &pc, nil
}

// loadProjectFile loads path, or the first discovered project file when path
// is empty. A missing discovered file is not an error; a missing explicit one is.
func loadProjectFile(path string) (*ProjectConfig, error) {
	explicit := path != ""
	if !explicit {
		path = FindProjectFile()
		if path == "" {
			return nil, nil
		}
	}

	pc, err := LoadProject(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading project config %s: %w", path, err)
	}
	return pc, nil
}

func (pc *ProjectConfig) apply(cfg *Config) {
	if pc.RPCURL != "" {
		cfg.Chain.RPCURL = pc.RPCURL
	}
	if pc.Network != "" {
		cfg.Chain.Network = pc.Network
	}
	if pc.Contract != "" {
		cfg.Deploy.Contract = pc.Contract
	}
	if pc.Confirmations > 0 {
		cfg.Deploy.Confirmations = pc.Confirmations
	}
	if pc.ProjectDir != "" {
		cfg.Deploy.ProjectDir = pc.ProjectDir
	}
	if pc.FailOnVerifyError != nil {
		cfg.Deploy.FailOnVerifyError = *pc.FailOnVerifyError
	}
	if pc.NetworksFile != "" {
		cfg.NetworksFile = pc.NetworksFile
	}
	if pc.Explorer.APIURL != "" {
		cfg.Explorer.APIURL = pc.Explorer.APIURL
	}
	if pc.Storage.Type != "" {
		cfg.Storage.Type = pc.Storage.Type
	}
	if pc.Storage.SQLitePath != "" {
		cfg.Storage.SQLite.Path = pc.Storage.SQLitePath
	}
	for k, v := range pc.Constants {
		cfg.Constants[k] = v
	}
}
