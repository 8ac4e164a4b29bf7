// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the papertrail CLI.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/internal/config"
	"github.com/pdiddy/papertrail/internal/logging"
	"github.com/pdiddy/papertrail/internal/secrets"
	"github.com/pdiddy/papertrail/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	v         *viper.Viper
	configErr error

	// cfg and logger are ready once PersistentPreRunE has run.
	cfg    types.Config
	logger = zap.NewNop()
)

// flagBinding maps a command flag onto a config key.
type flagBinding struct {
	cmd  *cobra.Command
	flag string
	key  string
}

var bindings []flagBinding

// bindFlag makes flag on cmd override the config key when it is set.
func bindFlag(cmd *cobra.Command, flag, key string) {
	bindings = append(bindings, flagBinding{cmd: cmd, flag: flag, key: key})
}

var rootCmd = &cobra.Command{
	Use:   "papertrail",
	Short: "Resumable, rate-limited harvester for arXiv paper metadata and citations",
	Long: `papertrail pages through the arXiv export API one category at a time,
optionally downloads each paper's PDF to extract the arXiv identifiers it
cites, and commits records in batches together with the feed cursor, so an
interrupted harvest resumes where the last committed batch ended.

Settings come from papertrail.yaml, PAPERTRAIL_* environment variables, and
flags. Credentials are read from plain files in .secrets/.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./papertrail.yaml or ~/.config/papertrail/papertrail.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of secret files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	bindFlag(rootCmd, "log-level", "logging.level")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	v, configErr = config.New(cfgFile)
}

// setup binds the running command's flags, decodes the config, applies
// secrets, and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}
	for _, b := range bindings {
		if b.cmd != cmd && b.cmd != rootCmd {
			continue
		}
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", b.flag, err)
		}
	}

	var err error
	if cfg, err = config.Decode(v); err != nil {
		return err
	}

	l, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger = l
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Debug("loaded secrets", zap.Strings("keys", keys))
	}
	secrets.Apply(&cfg, s)
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
