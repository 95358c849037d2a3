package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/seed"
)

func (a *app) seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yml]",
		Short: "Load content from a YAML seed file",
		Long: `Load content from a YAML seed file, or the bundled demo content when no
file is given. Documents that already exist are skipped, so seeding twice
is harmless.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			engine, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := engine.Close(); err == nil {
					err = cerr
				}
			}()

			seeder := seed.New(content.NewStore(engine, a.logger), a.logger)
			var result seed.Result
			if len(args) == 1 {
				result, err = seeder.Load(args[0])
			} else {
				result, err = seeder.Demo()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			kinds := make([]string, 0, len(result.Created)+len(result.Skipped))
			seen := map[string]bool{}
			for _, m := range []map[string]int{result.Created, result.Skipped} {
				for kind := range m {
					if !seen[kind] {
						seen[kind] = true
						kinds = append(kinds, kind)
					}
				}
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Fprintf(out, "%-12s created %d, skipped %d\n", kind, result.Created[kind], result.Skipped[kind])
			}
			return nil
		},
	}
}

func (a *app) backupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <file>",
		Short: "Export every collection into one snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			engine, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := engine.Close(); err == nil {
					err = cerr
				}
			}()

			if err := engine.Export(args[0]); err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}
			stats := engine.GetStats()
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d documents in %d collections to %s\n",
				stats.Documents, len(stats.Collections), args[0])
			return nil
		},
	}
}

func (a *app) restoreCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace collections with the contents of a backup",
		Long: `Replace every collection named in a backup file with its contents.
Collections missing from the backup are left alone. Stop the server first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("backup file: %w", err)
			}
			engine, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := engine.Close(); err == nil {
					err = cerr
				}
			}()

			if documents := engine.GetStats().Documents; documents > 0 && !force {
				return errors.New("the store is not empty; pass --force to overwrite it")
			}
			if err := engine.Import(args[0]); err != nil {
				return fmt.Errorf("failed to restore: %w", err)
			}
			stats := engine.GetStats()
			a.logger.Info("Restored backup", zap.String("file", args[0]), zap.Int64("documents", stats.Documents))
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d documents from %s\n", stats.Documents, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite a store that already has content")
	return cmd
}
