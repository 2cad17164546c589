package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind distingue facturas de venta y compras; ambas comparten ciclo de vida.
type DocumentKind string

const (
	KindInvoice  DocumentKind = "invoice"
	KindPurchase DocumentKind = "purchase"
)

// Label nombre legible usado en mensajes de error.
func (k DocumentKind) Label() string {
	switch k {
	case KindInvoice:
		return "factura"
	case KindPurchase:
		return "compra"
	}
	return string(k)
}

// Valid indica si el tipo es conocido.
func (k DocumentKind) Valid() bool {
	return k == KindInvoice || k == KindPurchase
}

// DocumentStatus estado del documento. finalized es terminal.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusFinalized DocumentStatus = "finalized"
)

// TaxType forma de presentar el IVA: dos mitades (CGST/SGST) o un total (IGST).
type TaxType string

const (
	TaxCGSTSGST TaxType = "cgst_sgst"
	TaxIGST     TaxType = "igst"
)

// PaymentStatus estado de cobro/pago del documento.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Pricing campos de entrada del cálculo.
type Pricing struct {
	Items          []LineItem
	DiscountAmount decimal.Decimal
	TaxType        TaxType
	GSTPercent     decimal.NullDecimal // 5.0 si no se indica
	PaidAmount     decimal.Decimal
}

// Totals totales agregados del documento.
type Totals struct {
	MetalTotal           decimal.Decimal
	MakingTotal          decimal.Decimal
	StoneTotal           decimal.Decimal
	WastageTotal         decimal.Decimal
	ItemDiscountsTotal   decimal.Decimal
	Subtotal             decimal.Decimal
	DiscountAmount       decimal.Decimal
	AfterInvoiceDiscount decimal.Decimal
	VATTotal             decimal.Decimal
	GrandTotal           decimal.Decimal

	TotalWeight        decimal.Decimal
	TotalGrossWeight   decimal.Decimal
	TotalStoneWeight   decimal.Decimal
	TotalNetGoldWeight decimal.Decimal
	TotalItems         int
	TotalQuantity      int
}

// PaymentSummary saldo y estado de pago.
type PaymentSummary struct {
	GrandTotal    decimal.Decimal
	PaidAmount    decimal.Decimal
	BalanceDue    decimal.Decimal
	PaymentStatus PaymentStatus
}

// TaxBreakdown reparto del IVA total.
type TaxBreakdown struct {
	TaxType     TaxType
	GSTPercent  decimal.Decimal
	CGSTPercent decimal.Decimal
	SGSTPercent decimal.Decimal
	IGSTPercent decimal.Decimal
	CGSTTotal   decimal.Decimal
	SGSTTotal   decimal.Decimal
	IGSTTotal   decimal.Decimal
}

// Calculation es el Pricing con líneas calculadas más todos los derivados.
type Calculation struct {
	Pricing
	Totals  Totals
	Payment PaymentSummary
	Tax     TaxBreakdown
}

// Document cabecera común de facturas y compras.
// Mientras Status = draft los totales son orientativos; al finalizar quedan congelados.
type Document struct {
	ID      string
	Kind    DocumentKind
	Number  string
	PartyID string // cliente (factura) o proveedor (compra)
	Date    time.Time
	Notes   string

	Calculation
	// PaymentAccountID cuenta de caja/banco que recibe (o entrega) PaidAmount al finalizar.
	PaymentAccountID string

	Status      DocumentStatus
	FinalizedAt *time.Time
	FinalizedBy string

	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
}

// ReferenceType tipo de referencia que llevan movimientos y transacciones del documento.
func (d *Document) ReferenceType() string {
	if d.Kind == KindPurchase {
		return ReferencePurchase
	}
	return ReferenceInvoice
}

// IsFinalized indica si el documento ya es inmutable.
func (d *Document) IsFinalized() bool {
	return d.Status == StatusFinalized
}
