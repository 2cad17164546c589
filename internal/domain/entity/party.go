package entity

import "time"

// Tipos de tercero.
const (
	PartyCustomer = "customer"
	PartyVendor   = "vendor"
)

// Party cliente o proveedor.
type Party struct {
	ID        string
	Name      string
	Type      string
	Phone     string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
