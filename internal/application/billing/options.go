package billing

import (
	"fmt"
	"strings"

	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// TotalsPolicy qué hacer si al finalizar los totales guardados difieren de los recalculados.
type TotalsPolicy string

const (
	// TotalsRecompute sobrescribe con los recalculados y registra una advertencia.
	TotalsRecompute TotalsPolicy = "recompute"
	// TotalsReject falla con domain.ErrConsistency.
	TotalsReject TotalsPolicy = "reject"
)

// ParseTotalsPolicy interpreta el valor de configuración; vacío equivale a recompute.
func ParseTotalsPolicy(s string) (TotalsPolicy, error) {
	switch TotalsPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TotalsRecompute:
		return TotalsRecompute, nil
	case TotalsReject:
		return TotalsReject, nil
	}
	return "", fmt.Errorf("política de totales desconocida %q: %w", s, domain.ErrInvalidInput)
}

// Options políticas configurables de facturación.
type Options struct {
	StockPolicy  inventory.StockPolicy
	TotalsPolicy TotalsPolicy
	// DefaultVATPercent se fija en las líneas sin vat_percent antes de calcular.
	// Inválido = usar el valor por defecto de la calculadora.
	DefaultVATPercent decimal.NullDecimal
}

func (o Options) withDefaults() Options {
	if o.StockPolicy == "" {
		o.StockPolicy = inventory.StockPermissive
	}
	if o.TotalsPolicy == "" {
		o.TotalsPolicy = TotalsRecompute
	}
	return o
}
