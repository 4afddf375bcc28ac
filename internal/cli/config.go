package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/pendergraft/deployctl/internal/config"
)

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var force bool
	var token string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create deployctl.toml",
		Long: `Create a deployctl.toml configuration file in the current directory.

Secrets (PRIVATE_KEY, ETHERSCAN_API_KEY) are never written to the file;
pass them through the environment.

EXAMPLES:
  deployctl config init --token 0x5FbDB2315678afecb367f032d93F642f64180aa3
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), config.ProjectConfigFiles[0], token, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	cmd.Flags().StringVar(&token, "token", "", "value for "+config.TokenAddressKey)

	return cmd
}

func runConfigInit(out io.Writer, path, token string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	defaults := config.Default()
	pc := config.ProjectConfig{
		RPCURL:        defaults.Chain.RPCURL,
		Contract:      defaults.Deploy.Contract,
		Confirmations: defaults.Deploy.Confirmations,
		Storage: config.StorageTOML{
			Type:       defaults.Storage.Type,
			SQLitePath: defaults.Storage.SQLite.Path,
		},
		Constants: map[string]string{config.TokenAddressKey: token},
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# deployctl project configuration")
	fmt.Fprintln(f, "# Environment variables override these values.")
	fmt.Fprintln(f)
	if err := toml.NewEncoder(f).Encode(pc); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	return nil
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the effective configuration after merging defaults,
deployctl.toml and environment variables. Secrets are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config) {
	source := cfgFile
	if source == "" {
		source = config.FindProjectFile()
	}
	if source == "" {
		source = "(none)"
	}

	fmt.Fprintf(w, "Project file:        %s\n", source)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Chain")
	fmt.Fprintf(w, "  rpc_url:           %s\n", cfg.Chain.RPCURL)
	fmt.Fprintf(w, "  private_key:       %s\n", maskSecret(cfg.Chain.PrivateKey))
	fmt.Fprintf(w, "  network:           %s\n", orDefault(cfg.Chain.Network, "(from chain ID)"))
	fmt.Fprintln(w, "Deploy")
	fmt.Fprintf(w, "  project_dir:       %s\n", cfg.Deploy.ProjectDir)
	fmt.Fprintf(w, "  contract:          %s\n", cfg.Deploy.Contract)
	fmt.Fprintf(w, "  confirmations:     %d\n", cfg.Deploy.Confirmations)
	fmt.Fprintf(w, "  fail_on_verify:    %t\n", cfg.Deploy.FailOnVerifyError)
	fmt.Fprintln(w, "Explorer")
	fmt.Fprintf(w, "  api_key:           %s\n", maskSecret(cfg.Explorer.APIKey))
	fmt.Fprintf(w, "  api_url:           %s\n", orDefault(cfg.Explorer.APIURL, "(per network)"))
	fmt.Fprintln(w, "Storage")
	fmt.Fprintf(w, "  type:              %s\n", cfg.Storage.Type)
	switch cfg.Storage.Type {
	case "sqlite":
		fmt.Fprintf(w, "  sqlite_path:       %s\n", cfg.Storage.SQLite.Path)
	case "postgres":
		fmt.Fprintf(w, "  database_url:      %s\n", maskSecret(cfg.Storage.Postgres.URL))
	}
	fmt.Fprintln(w, "Metrics")
	fmt.Fprintf(w, "  enabled:           %t\n", cfg.Metrics.Enabled)
	fmt.Fprintf(w, "  pushgateway_url:   %s\n", orDefault(cfg.Metrics.PushgatewayURL, "(not set)"))
	fmt.Fprintln(w, "History API")
	fmt.Fprintf(w, "  addr:              %s\n", cfg.History.Addr)
	fmt.Fprintf(w, "  rate_limit:        %d/min, burst %d\n", cfg.History.RateLimitPerMin, cfg.History.RateLimitBurst)
	fmt.Fprintln(w, "Constants")
	keys := make([]string, 0, len(cfg.Constants))
	for k := range cfg.Constants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, cfg.Constants[k])
	}
}

// maskSecret shows only the first and last four characters.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 12 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
