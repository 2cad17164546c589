package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemRequest línea de factura o compra tal como llega del cliente.
// net_gold_weight y vat_percent son opcionales (bruto - piedra y 5% respectivamente).
type LineItemRequest struct {
	CategoryID     string              `json:"category_id"`
	Description    string              `json:"description" validate:"max=200"`
	Purity         string              `json:"purity" validate:"max=10"`
	Quantity       int                 `json:"quantity" validate:"gte=1"`
	Weight         decimal.Decimal     `json:"weight" validate:"gte=0"`
	GrossWeight    decimal.Decimal     `json:"gross_weight" validate:"gte=0"`
	StoneWeight    decimal.Decimal     `json:"stone_weight" validate:"gte=0"`
	NetGoldWeight  decimal.NullDecimal `json:"net_gold_weight" validate:"omitempty,gte=0"`
	MetalRate      decimal.Decimal     `json:"metal_rate" validate:"gte=0"`
	MakingValue    decimal.Decimal     `json:"making_value" validate:"gte=0"`
	StoneCharges   decimal.Decimal     `json:"stone_charges" validate:"gte=0"`
	WastageCharges decimal.Decimal     `json:"wastage_charges" validate:"gte=0"`
	ItemDiscount   decimal.Decimal     `json:"item_discount" validate:"gte=0"`
	VATPercent     decimal.NullDecimal `json:"vat_percent" validate:"omitempty,gte=0,lte=100"`
}

// PricingRequest entrada de la calculadora (POST /api/invoices/calculate y erpctl calc).
type PricingRequest struct {
	Items          []LineItemRequest   `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal     `json:"discount_amount" validate:"gte=0"`
	TaxType        string              `json:"tax_type" validate:"omitempty,oneof=cgst_sgst igst"`
	GSTPercent     decimal.NullDecimal `json:"gst_percent" validate:"omitempty,gte=0,lte=100"`
	PaidAmount     decimal.Decimal     `json:"paid_amount" validate:"gte=0"`
}

// DocumentRequest body para POST/PUT de /api/invoices y /api/purchases.
// PartyID: cliente en facturas, proveedor en compras.
type DocumentRequest struct {
	PricingRequest
	PartyID          string `json:"party_id" validate:"required"`
	Date             string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes            string `json:"notes" validate:"max=500"`
	PaymentAccountID string `json:"payment_account_id"`
}

// PaymentRequest body para POST /api/{invoices|purchases}/:id/payments.
// IdempotencyKey puede venir en el body o en el header Idempotency-Key.
type PaymentRequest struct {
	AccountID      string          `json:"account_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	Mode           string          `json:"mode" validate:"omitempty,oneof=cash card bank_transfer cheque"`
	Notes          string          `json:"notes" validate:"max=500"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=100"`
}

// LineItemResponse línea con todos los campos derivados.
type LineItemResponse struct {
	LineNo            int             `json:"line_no"`
	CategoryID        string          `json:"category_id,omitempty"`
	Description       string          `json:"description,omitempty"`
	Purity            string          `json:"purity,omitempty"`
	Quantity          int             `json:"quantity"`
	Weight            decimal.Decimal `json:"weight"`
	GrossWeight       decimal.Decimal `json:"gross_weight"`
	StoneWeight       decimal.Decimal `json:"stone_weight"`
	NetGoldWeight     decimal.Decimal `json:"net_gold_weight"`
	MetalRate         decimal.Decimal `json:"metal_rate"`
	MakingValue       decimal.Decimal `json:"making_value"`
	StoneCharges      decimal.Decimal `json:"stone_charges"`
	WastageCharges    decimal.Decimal `json:"wastage_charges"`
	ItemDiscount      decimal.Decimal `json:"item_discount"`
	VATPercent        decimal.Decimal `json:"vat_percent"`
	GoldValue         decimal.Decimal `json:"gold_value"`
	SubtotalBeforeVAT decimal.Decimal `json:"subtotal_before_vat"`
	VATAmount         decimal.Decimal `json:"vat_amount"`
	LineTotal         decimal.Decimal `json:"line_total"`
}

// TotalsResponse totales agregados.
type TotalsResponse struct {
	MetalTotal           decimal.Decimal `json:"metal_total"`
	MakingTotal          decimal.Decimal `json:"making_total"`
	StoneTotal           decimal.Decimal `json:"stone_total"`
	WastageTotal         decimal.Decimal `json:"wastage_total"`
	ItemDiscountsTotal   decimal.Decimal `json:"item_discounts_total"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	AfterInvoiceDiscount decimal.Decimal `json:"after_invoice_discount"`
	VATTotal             decimal.Decimal `json:"vat_total"`
	GrandTotal           decimal.Decimal `json:"grand_total"`
	TotalWeight          decimal.Decimal `json:"total_weight"`
	TotalGrossWeight     decimal.Decimal `json:"total_gross_weight"`
	TotalStoneWeight     decimal.Decimal `json:"total_stone_weight"`
	TotalNetGoldWeight   decimal.Decimal `json:"total_net_gold_weight"`
	TotalItems           int             `json:"total_items"`
	TotalQuantity        int             `json:"total_quantity"`
}

// PaymentSummaryResponse saldo y estado.
type PaymentSummaryResponse struct {
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	PaymentStatus string          `json:"payment_status"`
}

// TaxBreakdownResponse reparto del IVA.
type TaxBreakdownResponse struct {
	TaxType     string          `json:"tax_type"`
	GSTPercent  decimal.Decimal `json:"gst_percent"`
	CGSTPercent decimal.Decimal `json:"cgst_percent"`
	SGSTPercent decimal.Decimal `json:"sgst_percent"`
	IGSTPercent decimal.Decimal `json:"igst_percent"`
	CGSTTotal   decimal.Decimal `json:"cgst_total"`
	SGSTTotal   decimal.Decimal `json:"sgst_total"`
	IGSTTotal   decimal.Decimal `json:"igst_total"`
}

// CalculationResponse salida completa de la calculadora.
type CalculationResponse struct {
	Items   []LineItemResponse     `json:"items"`
	Totals  TotalsResponse         `json:"totals"`
	Payment PaymentSummaryResponse `json:"payment"`
	Tax     TaxBreakdownResponse   `json:"tax"`
}

// DocumentResponse factura o compra para GET /api/{invoices|purchases}/:id.
type DocumentResponse struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	Number           string     `json:"number"`
	PartyID          string     `json:"party_id"`
	Date             string     `json:"date"`
	Notes            string     `json:"notes,omitempty"`
	PaymentAccountID string     `json:"payment_account_id,omitempty"`
	Status           string     `json:"status"`
	FinalizedAt      *time.Time `json:"finalized_at,omitempty"`
	FinalizedBy      string     `json:"finalized_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CalculationResponse
}

// StockMovementResponse movimiento generado al finalizar.
type StockMovementResponse struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Type        string          `json:"type"`
	LineNo      int             `json:"line_no"`
	QtyDelta    int             `json:"qty_delta"`
	WeightDelta decimal.Decimal `json:"weight_delta"`
	QtyAfter    int             `json:"qty_after"`
	WeightAfter decimal.Decimal `json:"weight_after"`
}

// LedgerTransactionResponse transacción de dinero.
type LedgerTransactionResponse struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	Type           string          `json:"transaction_type"`
	Amount         decimal.Decimal `json:"amount"`
	Mode           string          `json:"mode,omitempty"`
	ReferenceType  string          `json:"reference_type"`
	ReferenceID    string          `json:"reference_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FinalizeResponse resultado de POST /api/{invoices|purchases}/:id/finalize.
type FinalizeResponse struct {
	Document     DocumentResponse           `json:"document"`
	Movements    []StockMovementResponse    `json:"stock_movements"`
	Transactions []LedgerTransactionResponse `json:"transactions"`
}

// PaymentResponse resultado de registrar un pago.
type PaymentResponse struct {
	Transaction LedgerTransactionResponse `json:"transaction"`
	Payment     PaymentSummaryResponse    `json:"payment"`
	// Replayed indica que la clave de idempotencia ya existía y no se aplicó de nuevo.
	Replayed bool `json:"replayed"`
}
