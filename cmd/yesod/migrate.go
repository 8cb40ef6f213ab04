package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/yesod/internal/observability/logger"
	"github.com/dropDatabas3/yesod/internal/store/pg"
	migrations "github.com/dropDatabas3/yesod/migrations/postgres"
)

func newMigrateCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica o revierte las migraciones de Postgres",
	}
	run := func(down bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return errors.New("migrate: storage.driver debe ser postgres")
			}
			s, err := pg.New(cmd.Context(), pg.Config{DSN: cfg.Storage.DSN})
			if err != nil {
				return err
			}
			defer s.Close()

			applied, err := s.Migrate(cmd.Context(), migrations.FS, migrations.Dir, down)
			if err != nil {
				return err
			}
			log := logger.L().With(logger.Component("migrate"))
			for _, name := range applied {
				log.Info("migration applied", logger.String("file", name), logger.Bool("down", down))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Aplica migraciones pendientes", RunE: run(false)},
		&cobra.Command{Use: "down", Short: "Revierte las migraciones", RunE: run(true)},
	)
	return cmd
}
