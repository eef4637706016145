package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/bibcat/internal/config"
)

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the resolved configuration.

Values come from built-in defaults, the config file, and the environment
(OPENAI_API_KEY, PRIMO_API_KEY, BIBCAT_DB, BIBCAT_REPORT, BIBCAT_LOG_MODE;
a .env file in the working directory is read first). API keys are never
printed.

Usage:
  bibcat config          # Show the resolved config
  bibcat config init     # Write the defaults to the config file`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Path      string         `json:"path"`
	HasLLMKey bool           `json:"has_llm_key"`
	HasPrimo  bool           `json:"has_primo_key"`
	Config    *config.Config `json:"config"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	path := configPath
	if path == "" {
		path = config.Path()
	}

	hasLLM, hasPrimo := cfg.HasLLM(), cfg.Catalog.APIKey != ""
	shown := *cfg
	shown.LLM.APIKey = ""
	shown.Catalog.APIKey = ""

	if humanOutput {
		data, err := yaml.Marshal(&shown)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		outputHuman("# %s\n# llm key set: %v, primo key set: %v\n%s", path, hasLLM, hasPrimo, data)
		return nil
	}
	return outputJSON(ConfigResponse{Path: path, HasLLMKey: hasLLM, HasPrimo: hasPrimo, Config: &shown})
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	if path == "" {
		exitWithError(ExitConfigError, "cannot determine config path")
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		exitWithError(ExitConfigError, "%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		exitWithError(ExitConfigError, "checking %s: %v", path, err)
	}

	if err := config.Default().Save(path); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Wrote %s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "created", Path: path})
}
