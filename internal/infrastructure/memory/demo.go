package memory

import (
	"time"

	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// IDs fijos de los datos de demostración, para poder probar la API sin base de datos.
const (
	DemoCustomerID = "11111111-1111-1111-1111-111111111111"
	DemoVendorID   = "22222222-2222-2222-2222-222222222222"
	DemoRingsID    = "33333333-3333-3333-3333-333333333331"
	DemoChainsID   = "33333333-3333-3333-3333-333333333332"
	DemoCashID     = "44444444-4444-4444-4444-444444444441"
	DemoBankID     = "44444444-4444-4444-4444-444444444442"
)

// SeedDemo carga un cliente, un proveedor, dos categorías y dos cuentas.
func (s *Store) SeedDemo(now time.Time) {
	s.SeedParty(entity.Party{ID: DemoCustomerID, Name: "Cliente Mostrador", Type: entity.PartyCustomer, CreatedAt: now})
	s.SeedParty(entity.Party{ID: DemoVendorID, Name: "Refinería Central", Type: entity.PartyVendor, CreatedAt: now})
	s.SeedCategory(entity.InventoryCategory{
		ID: DemoRingsID, Name: "Anillos 22K", Purity: "22K",
		Quantity: 40, Weight: decimal.NewFromInt(320), AvgCostPerGram: decimal.NewFromInt(58),
		CreatedAt: now, UpdatedAt: now,
	})
	s.SeedCategory(entity.InventoryCategory{
		ID: DemoChainsID, Name: "Cadenas 21K", Purity: "21K",
		Quantity: 25, Weight: decimal.NewFromInt(410), AvgCostPerGram: decimal.NewFromInt(52),
		CreatedAt: now, UpdatedAt: now,
	})
	s.SeedAccount(entity.Account{ID: DemoCashID, Name: "Caja principal", Type: entity.AccountTypeCash, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now})
	s.SeedAccount(entity.Account{ID: DemoBankID, Name: "Banco", Type: entity.AccountTypeBank, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now})
}
