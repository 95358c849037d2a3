package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/config"
	"github.com/adfharrison1/go-tours/pkg/seed"
	"github.com/adfharrison1/go-tours/pkg/server"
)

func (a *app) serveCommand() *cobra.Command {
	var seedDemo bool

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the website and admin panel",
		Long: `Start the public website, the admin panel under /admin and its JSON API
under /admin/api. Data is saved on graceful shutdown (SIGINT, SIGTERM) and,
with background saves enabled, on an interval.

Examples:
  go-tours serve                        # Start with defaults
  go-tours serve --addr :9090           # Custom address
  go-tours serve --background-save 1m   # Checkpoint every minute
  go-tours serve --dev --templates ./pkg/site/templates`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			if cfg.Storage.BackgroundSave == 0 && !cfg.Storage.Journal && !cfg.Storage.TransactionSave {
				a.logger.Warn("Background save, journal and transaction saves are disabled; data is only saved on graceful shutdown")
			}

			srv, err := server.New(cfg, a.logger)
			if err != nil {
				return err
			}
			if err := srv.InitDB(); err != nil {
				_ = srv.Close()
				return err
			}
			if seedDemo {
				if err := seedIfEmpty(srv, a.logger); err != nil {
					_ = srv.Close()
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":8080", "address to listen on")
	flags.String("base-url", "http://localhost:8080", "public URL of the site")
	flags.Duration("background-save", 0, "background save interval (e.g. 5m, 30s); 0 disables it (default 5m)")
	flags.String("templates", "", "load site templates from this directory instead of the binary")
	flags.BoolVar(&seedDemo, "seed-demo", false, "load the demo content when the store is empty")
	_ = a.v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = a.v.BindPFlag("server.base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("storage.background_save", flags.Lookup("background-save"))
	_ = a.v.BindPFlag("site.templates_dir", flags.Lookup("templates"))
	return cmd
}

// seedIfEmpty loads the demo content into a store with no documents
func seedIfEmpty(srv *server.Server, logger *zap.Logger) error {
	if documents := srv.Engine().GetStats().Documents; documents > 0 {
		logger.Info("Store has content, skipping demo seed", zap.Int64("documents", documents))
		return nil
	}
	if _, err := seed.New(srv.Store(), logger).Demo(); err != nil {
		return fmt.Errorf("failed to seed demo content: %w", err)
	}
	return nil
}
