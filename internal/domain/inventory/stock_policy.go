package inventory

import (
	"fmt"
	"strings"

	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockPolicy decide si una salida puede dejar la categoría en negativo.
type StockPolicy string

const (
	// StockPermissive registra el movimiento aunque el stock quede negativo.
	StockPermissive StockPolicy = "permissive"
	// StockStrict rechaza la salida con ErrInsufficientStock.
	StockStrict StockPolicy = "strict"
)

// ParseStockPolicy interpreta el valor de configuración; vacío equivale a permissive.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StockPermissive:
		return StockPermissive, nil
	case StockStrict:
		return StockStrict, nil
	}
	return "", fmt.Errorf("política de stock desconocida %q: %w", s, domain.ErrInvalidInput)
}

// Check valida un delta agregado contra el stock actual de la categoría.
// Solo restringe salidas y solo bajo StockStrict.
func (p StockPolicy) Check(cat *entity.InventoryCategory, qtyDelta int, weightDelta decimal.Decimal) error {
	if p != StockStrict {
		return nil
	}
	if cat.Quantity+qtyDelta < 0 || cat.Weight.Add(weightDelta).IsNegative() {
		return fmt.Errorf("categoría %s (%s): disponible %d uds / %s g, requerido %d uds / %s g: %w",
			cat.ID, cat.Name, cat.Quantity, cat.Weight.String(), -qtyDelta, weightDelta.Neg().String(), domain.ErrInsufficientStock)
	}
	return nil
}
