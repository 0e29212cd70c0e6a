package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/config"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "dir2ml [directory]",
		Short: "Generate a Metalink document describing a directory tree",
		Long: `dir2ml walks a directory tree, hashes every regular file and writes a
Metalink 4 (RFC 5854) document listing each file with its size, digests
and download locations.

At least one location kind is required: a base URL (-u), a local file
URL (-f), a Named Information URI (--ni-url) or a magnet link
(--magnet-url).

Examples:
  dir2ml -d /srv/pub -u http://mirror.example.com/pub -o pub.meta4
  dir2ml -d . -u http://a.example/ -u ftp://b.example/ -c de
  dir2ml /srv/pub --ni-url --hash-type md5,sha1,sha256
  dir2ml /srv/pub -f --dedup consolidate -s
  dir2ml /srv/pub -u http://mirror/ -F json | jq .stats
  dir2ml watch /srv/pub -u http://mirror/ -o pub.meta4`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runGenerate,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/dir2ml/config.yaml)")

	// Input
	flags.StringP("directory", "d", "", "directory to describe")
	flags.Bool("recursive", true, "descend into subdirectories")
	flags.Int("max-depth", 0, "maximum traversal depth (0=unlimited)")
	flags.StringSliceP("exclude", "x", nil, "exclude glob patterns (can be specified multiple times)")
	flags.String("min-size", "", "skip files smaller than this (e.g., 4K, 1M)")

	// Locations
	flags.StringArrayP("base-url", "u", nil, "base URL for mirror locations (can be specified multiple times)")
	flags.StringP("country", "c", "", "ISO 3166-1 alpha-2 country code for base URLs")
	flags.BoolP("file-url", "f", false, "add a file:// URL for the local copy")
	flags.Bool("ni-url", false, "add a Named Information (RFC 6920) URI")
	flags.Bool("magnet-url", false, "add a magnet link")

	// Digests and duplicates
	flags.StringSliceP("hash-type", "H", nil, "digests to compute: md5, sha1, sha256 (default sha256)")
	flags.String("dedup", "", "duplicate handling: off, find, consolidate")
	flags.Bool("ignore-mtime", false, "treat files with different modification times as duplicate candidates")
	flags.String("collisions", "", "digest collision policy: ignore, warn, fail")

	// Output
	flags.StringP("output", "o", "", "write the document to a file ('-' for stdout)")
	flags.StringP("format", "F", "", "output format: metalink, json, jsonl, yaml, plain, paths, null, template, pretty")
	flags.String("template", "", "Go template for -F template")
	flags.Bool("no-generator", false, "omit the generator element")
	flags.Bool("no-date", false, "omit the updated element")
	flags.Bool("sparse-output", false, "omit generator and updated elements")

	// Behaviour
	flags.Bool("strict", false, "fail on unreadable directories and files instead of skipping them")
	flags.BoolP("statistics", "s", false, "print run statistics to stderr")
	flags.Bool("progress", false, "show a live progress view on stderr")
	flags.Bool("estimate", false, "pre-count files and bytes so progress shows totals")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"directory":       "directory",
		"recursive":       "recursive",
		"max_depth":       "max-depth",
		"exclude":         "exclude",
		"min_size":        "min-size",
		"base_url":        "base-url",
		"country":         "country",
		"file_url":        "file-url",
		"ni_url":          "ni-url",
		"magnet_url":      "magnet-url",
		"hash_type":       "hash-type",
		"dedup":           "dedup",
		"ignore_mtime":    "ignore-mtime",
		"collisions":      "collisions",
		"output":          "output",
		"format":          "format",
		"template":        "template",
		"no_generator":    "no-generator",
		"no_date":         "no-date",
		"sparse_output":   "sparse-output",
		"strict":          "strict",
		"show_statistics": "statistics",
		"progress":        "progress",
		"estimate":        "estimate",
		"quiet":           "quiet",
		"verbose":         "verbose",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if err := config.Setup(viper.GetViper(), cfgFile); err != nil {
		printError("%v", err)
	}
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	_ = logging.Close()
	return err
}

// loadConfig decodes the merged flag, environment, file and default
// settings.
func loadConfig() (*config.Config, error) {
	return config.Decode(viper.GetViper())
}

// initLogging configures the component loggers from cfg.
func initLogging(cfg *config.Config) error {
	lc, err := cfg.LoggingOptions()
	if err != nil {
		return err
	}
	return logging.Init(lc)
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message to stderr if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
