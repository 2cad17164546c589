package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de cuenta de dinero.
const (
	AccountTypeCash = "cash"
	AccountTypeBank = "bank"
)

// Account cuenta de caja o banco. Balance sube con débitos y baja con créditos.
type Account struct {
	ID        string
	Name      string
	Type      string
	Balance   decimal.Decimal
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
