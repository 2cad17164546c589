package main

import (
	"github.com/jhoicas/joyeria-erp/pkg/config"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// cliEnv lo que comparten los subcomandos; se arma en PersistentPreRunE.
type cliEnv struct {
	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}
	root := &cobra.Command{
		Use:   "erpctl",
		Short: "Herramientas de operación del ERP de joyería",
		Long: `erpctl agrupa tareas de operación que no pasan por la API:
aplicar o revertir el esquema de base de datos y calcular una factura
desde un archivo JSON sin persistirla.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			env.cfg = cfg
			env.log = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.App.LogLevel)
			return nil
		},
	}
	root.AddCommand(newMigrateCmd(env), newCalcCmd(env))
	return root
}
