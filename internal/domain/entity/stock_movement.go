package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN  = "IN"  // entrada (compra, devolución de venta)
	MovementTypeOUT = "OUT" // salida (venta, devolución de compra)
)

// Tipos de referencia que enlazan movimientos y transacciones con su documento origen.
const (
	ReferenceInvoice        = "invoice"
	ReferencePurchase       = "purchase"
	ReferenceSalesReturn    = "sales_return"
	ReferencePurchaseReturn = "purchase_return"
)

// StockMovement registro inmutable de un cambio de stock en una categoría.
// QtyDelta/WeightDelta negativos para salidas, positivos para entradas.
type StockMovement struct {
	ID            string
	CategoryID    string
	Type          string
	QtyDelta      int
	WeightDelta   decimal.Decimal
	Purity        string
	ReferenceType string
	ReferenceID   string
	LineNo        int
	QtyAfter      int             // stock de la categoría tras aplicar el movimiento
	WeightAfter   decimal.Decimal // peso de la categoría tras aplicar el movimiento
	Notes         string
	IsDeleted     bool
	CreatedAt     time.Time
	CreatedBy     string
}
