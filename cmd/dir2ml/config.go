package main

import (
	"cmp"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/config"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage dir2ml configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/dir2ml/config.yaml (if set)
  2. ~/.config/dir2ml/config.yaml

Environment variables can override config file settings using the DIR2ML_ prefix:
  DIR2ML_HASH_TYPE=md5,sha256
  DIR2ML_DEDUP=consolidate
  DIR2ML_WATCH_DEBOUNCE=5s`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration merged from flags, environment, file and defaults.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check [directory]",
	Short: "Validate the effective configuration",
	Long: `Resolve the configuration exactly as a generate run would and report
problems (unknown hash types, dedup modes, missing locators, bad sizes or
formats) without reading any file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigCheck,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the effective configuration as YAML.
func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(out, "# Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "# Config file: (using defaults, no file found)")
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Fprint(out, string(data))

	var overrides []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			overrides = append(overrides, kv)
		}
	}
	sort.Strings(overrides)

	fmt.Fprintln(out, "\n# Environment overrides:")
	if len(overrides) == 0 {
		fmt.Fprintln(out, "#   (none)")
	}
	for _, kv := range overrides {
		fmt.Fprintf(out, "#   %s\n", kv)
	}
	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'dir2ml config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)
	return nil
}

// runConfigCheck validates the configuration without scanning.
func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Directory = args[0]
	}

	opts, err := buildScanOptions(cfg)
	if err != nil {
		return err
	}
	if _, err := buildFormatter(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "directory:  %s\n", opts.Root)
	fmt.Fprintf(out, "hashes:     %s\n", strings.Join(opts.Algorithms.Strings(), ","))
	fmt.Fprintf(out, "dedup:      %s\n", opts.Dedup)
	fmt.Fprintf(out, "collisions: %s\n", opts.Collisions)
	fmt.Fprintf(out, "format:     %s\n", cmp.Or(cfg.Format, output.DefaultFormat))
	fmt.Fprintf(out, "output:     %s\n", cmp.Or(cfg.Output, "stdout"))
	fmt.Fprintln(out, "ok")
	return nil
}
