package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newCalcCmd(env *cliEnv) *cobra.Command {
	var vat string
	cmd := &cobra.Command{
		Use:   "calc <factura.json>",
		Short: "Calcula líneas, totales, IVA y saldo de una factura sin guardarla",
		Long: `Lee un documento JSON con el mismo formato que POST /api/invoices/calculate
e imprime el cálculo completo. Use "-" para leer de la entrada estándar.`,
		Example: `  erpctl calc factura.json
  cat factura.json | erpctl calc - --vat 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if vat == "" {
				vat = env.cfg.Billing.DefaultVATPercent
			}
			opts := billing.Options{}
			if vat != "" {
				v, err := decimal.NewFromString(vat)
				if err != nil {
					return fmt.Errorf("--vat %q: %w", vat, err)
				}
				opts.DefaultVATPercent = decimal.NewNullDecimal(v)
			}

			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			var req dto.PricingRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("JSON inválido: %w", err)
			}

			// Calculate no toca el almacén.
			out, err := billing.NewDocumentUseCase(nil, opts, env.log).Calculate(req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&vat, "vat", "", "IVA por defecto para líneas sin vat_percent")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
