package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryCategory agrupa el stock por tipo de pieza y pureza (anillos 22K, cadenas 21K...).
// Quantity y Weight son agregados que solo cambian con movimientos.
type InventoryCategory struct {
	ID             string
	Name           string
	Purity         string
	Quantity       int
	Weight         decimal.Decimal
	AvgCostPerGram decimal.Decimal // costo promedio ponderado por gramo (entradas)
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
