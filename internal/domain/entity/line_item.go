package entity

import "github.com/shopspring/decimal"

// LineItem representa una línea de una factura, compra o tarjeta de trabajo.
// Pesos en gramos y montos en la moneda del negocio, ambos con 3 decimales.
type LineItem struct {
	ID          string
	DocumentID  string
	LineNo      int // posición dentro del documento (1..n); clave de idempotencia de movimientos
	CategoryID  string
	Description string
	Purity      string // 22K, 21K, 18K...
	Quantity    int

	Weight      decimal.Decimal
	GrossWeight decimal.Decimal
	StoneWeight decimal.Decimal
	// NetGoldWeight es bruto - piedra salvo que el usuario lo indique explícitamente.
	NetGoldWeight decimal.NullDecimal

	MetalRate      decimal.Decimal // precio por gramo
	MakingValue    decimal.Decimal
	StoneCharges   decimal.Decimal
	WastageCharges decimal.Decimal
	ItemDiscount   decimal.Decimal
	VATPercent     decimal.NullDecimal // 5.0 si no se indica

	// Derivados; solo los escribe la calculadora.
	GoldValue         decimal.Decimal
	SubtotalBeforeVAT decimal.Decimal
	VATAmount         decimal.Decimal
	LineTotal         decimal.Decimal
}

// StockWeight devuelve el peso que se mueve en inventario: Weight si viene, si no el bruto.
func (i LineItem) StockWeight() decimal.Decimal {
	if !i.Weight.IsZero() {
		return i.Weight
	}
	return i.GrossWeight
}
