package main

import (
	"errors"
	"fmt"

	"github.com/jhoicas/joyeria-erp/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica o revierte el esquema PostgreSQL embebido",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mg, err := openMigrator(env)
			if err != nil {
				return err
			}
			defer mg.Close()

			applied, err := mg.Up()
			if err != nil {
				return err
			}
			v, dirty, err := mg.Version()
			if err != nil {
				return err
			}
			env.log.Info().Bool("applied", applied).Uint("version", v).Bool("dirty", dirty).Msg("migrate up")
			if !applied {
				fmt.Fprintf(cmd.OutOrStdout(), "sin cambios (versión %d)\n", v)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "esquema en versión %d\n", v)
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revierte migraciones (todas si --steps es 0)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mg, err := openMigrator(env)
			if err != nil {
				return err
			}
			defer mg.Close()

			if err := mg.Down(steps); err != nil {
				return err
			}
			v, _, err := mg.Version()
			if err != nil {
				return err
			}
			env.log.Info().Int("steps", steps).Uint("version", v).Msg("migrate down")
			fmt.Fprintf(cmd.OutOrStdout(), "esquema en versión %d\n", v)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 0, "cantidad de migraciones a revertir")

	cmd.AddCommand(up, down)
	return cmd
}

func openMigrator(env *cliEnv) (*postgres.Migrator, error) {
	if !env.cfg.DB.Enabled() {
		return nil, errors.New("defina DATABASE_URL o DB_HOST para migrar")
	}
	return postgres.NewMigrator(env.cfg.DB.ConnectionString())
}
