package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType dirección del movimiento de dinero desde el punto de vista del negocio.
type TransactionType string

const (
	Debit  TransactionType = "debit"  // entrada de dinero a caja/banco
	Credit TransactionType = "credit" // salida de dinero de caja/banco
)

// DirectionFor devuelve la dirección contable de un pago según el documento origen.
// Cobro de factura = debit, pago de compra = credit; las devoluciones invierten el sentido.
func DirectionFor(referenceType string) (TransactionType, error) {
	switch referenceType {
	case ReferenceInvoice, ReferencePurchaseReturn:
		return Debit, nil
	case ReferencePurchase, ReferenceSalesReturn:
		return Credit, nil
	}
	return "", fmt.Errorf("tipo de referencia desconocido: %q", referenceType)
}

// SignedAmount aplica el signo de la dirección sobre el saldo de la cuenta.
func (t TransactionType) SignedAmount(amount decimal.Decimal) decimal.Decimal {
	if t == Credit {
		return amount.Neg()
	}
	return amount
}

// LedgerTransaction registro inmutable de dinero contra una cuenta.
type LedgerTransaction struct {
	ID             string
	AccountID      string
	PartyID        string
	Type           TransactionType
	Amount         decimal.Decimal // siempre positivo; la dirección la da Type
	Mode           string          // cash, card, bank_transfer...
	ReferenceType  string
	ReferenceID    string
	IdempotencyKey string // único; evita duplicados al reintentar
	Notes          string
	IsDeleted      bool
	CreatedAt      time.Time
	CreatedBy      string
}

// FinalizePaymentKey clave de idempotencia del cobro/pago registrado al finalizar.
func FinalizePaymentKey(referenceType, referenceID string) string {
	return referenceType + ":" + referenceID + ":finalize"
}

// PaymentKey clave de idempotencia de un pago posterior.
func PaymentKey(referenceType, referenceID, requestKey string) string {
	return referenceType + ":" + referenceID + ":payment:" + requestKey
}
