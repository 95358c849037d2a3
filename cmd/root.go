// Package cmd provides the go-tours command-line interface.
//
// Configuration comes from, highest priority first: command-line flags,
// GOTOURS_<SECTION>_<OPTION> environment variables, and the YAML config
// file named by --config, GOTOURS_CONFIG_FILE or .go-tours.yml.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/config"
	"github.com/adfharrison1/go-tours/pkg/server"
	"github.com/adfharrison1/go-tours/pkg/storage"
)

// app is the state shared by every command of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *zap.Logger
}

// NewRootCommand builds the command tree with a fresh configuration
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "go-tours",
		Short: "Tour operator website with a built-in content admin",
		Long: `go-tours serves a tour operator's marketing site and an admin panel
for editing its tours, destinations, slides, blog posts and inquiries.
Content lives in an embedded document store under the data directory.

Quick Start:
  go-tours hash-password           Create the admin password hash
  go-tours seed                    Load the demo content
  go-tours serve                   Start the site on :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(a.v, a.cfgFile); err != nil {
				return err
			}
			logger, err := config.NewLogger(config.LogConfig{
				Level: a.v.GetString("log.level"),
				Dev:   a.v.GetBool("log.dev"),
			})
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .go-tours.yml, can also use GOTOURS_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.Bool("dev", false, "development mode: console logs and template reload")
	flags.String("data-dir", "./data", "data directory")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.dev", flags.Lookup("dev"))
	_ = a.v.BindPFlag("site.dev", flags.Lookup("dev"))
	_ = a.v.BindPFlag("storage.data_dir", flags.Lookup("data-dir"))

	root.AddCommand(
		a.serveCommand(),
		a.seedCommand(),
		a.backupCommand(),
		a.restoreCommand(),
		hashPasswordCommand(),
	)
	return root
}

// Execute runs the command line
func Execute() error {
	return NewRootCommand().Execute()
}

// openStore loads the data directory for the offline commands. The caller
// must Close the engine.
func (a *app) openStore() (*storage.StorageEngine, error) {
	cfg, err := config.Decode(a.v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	// Offline commands never run the background saver
	cfg.Storage.BackgroundSave = 0

	engine := storage.NewStorageEngine(server.StorageOptions(cfg.Storage, a.logger)...)
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("failed to load data from %s: %w", cfg.Storage.DataDir, err)
	}
	return engine, nil
}
