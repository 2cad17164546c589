package billing_test

import (
	"context"
	"time"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/internal/infrastructure/lock"
	"github.com/jhoicas/joyeria-erp/internal/infrastructure/memory"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

// --- Mock EventPublisher ---
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evt billing.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// --- Mock RecordLocker ---
type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Lock(ctx context.Context, key string) (func(context.Context), error) {
	args := m.Called(ctx, key)
	release, _ := args.Get(0).(func(context.Context))
	return release, args.Error(1)
}

const (
	customerID = "cust-1"
	vendorID   = "vend-1"
	ringsID    = "cat-rings"
	chainsID   = "cat-chains"
	cashID     = "acc-cash"
	actor      = "user-1"
)

var fixedNow = time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)

// billingSuite arma los casos de uso sobre el almacén en memoria con datos base.
type billingSuite struct {
	suite.Suite
	ctx    context.Context
	store  *memory.Store
	pub    *mockPublisher
	locker *lock.LocalLocker
	docs   *billing.DocumentUseCase
	fin    *billing.FinalizeUseCase
	pay    *billing.PaymentUseCase
}

func (s *billingSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.store.SeedParty(entity.Party{ID: customerID, Name: "Cliente Mostrador", Type: entity.PartyCustomer})
	s.store.SeedParty(entity.Party{ID: vendorID, Name: "Refinería Norte", Type: entity.PartyVendor})
	s.store.SeedCategory(entity.InventoryCategory{ID: ringsID, Name: "Anillos 22K", Purity: "22K", Quantity: 10, Weight: d("100"), AvgCostPerGram: d("20")})
	s.store.SeedCategory(entity.InventoryCategory{ID: chainsID, Name: "Cadenas 21K", Purity: "21K", Quantity: 5, Weight: d("50")})
	s.store.SeedAccount(entity.Account{ID: cashID, Name: "Caja", Type: entity.AccountTypeCash, Balance: d("1000")})

	s.pub = new(mockPublisher)
	s.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.locker = lock.NewLocalLocker()
	s.build(billing.Options{})
}

func (s *billingSuite) build(opts billing.Options) {
	log := logger.Nop()
	clock := func() time.Time { return fixedNow }
	s.docs = billing.NewDocumentUseCase(s.store, opts, log).WithClock(clock)
	s.fin = billing.NewFinalizeUseCase(s.store, s.locker, s.pub, opts, log).WithClock(clock)
	s.pay = billing.NewPaymentUseCase(s.store, s.locker, s.pub, log).WithClock(clock)
}

// finalizerWith FinalizeUseCase sobre el mismo almacén con otro locker.
func (s *billingSuite) finalizerWith(l billing.RecordLocker) *billing.FinalizeUseCase {
	return billing.NewFinalizeUseCase(s.store, l, s.pub, billing.Options{}, logger.Nop()).
		WithClock(func() time.Time { return fixedNow })
}

// referenceRequest documento con los ítems A (20 g × 50 + 100) y B (10 g × 60 + 50): total 1837.5.
func referenceRequest(party, paid, account string) dto.DocumentRequest {
	return dto.DocumentRequest{
		PricingRequest: dto.PricingRequest{
			Items: []dto.LineItemRequest{
				{CategoryID: ringsID, Description: "Anillo", Purity: "22K", Quantity: 1, Weight: d("20"), GrossWeight: d("20"), NetGoldWeight: nd("20"), MetalRate: d("50"), MakingValue: d("100"), VATPercent: nd("5")},
				{CategoryID: chainsID, Description: "Cadena", Purity: "21K", Quantity: 1, Weight: d("10"), GrossWeight: d("10"), NetGoldWeight: nd("10"), MetalRate: d("60"), MakingValue: d("50"), VATPercent: nd("5")},
			},
			PaidAmount: d(paid),
		},
		PartyID:          party,
		PaymentAccountID: account,
	}
}

func (s *billingSuite) createInvoice(paid, account string) string {
	out, err := s.docs.CreateDraft(s.ctx, entity.KindInvoice, actor, referenceRequest(customerID, paid, account))
	s.Require().NoError(err)
	return out.ID
}

func (s *billingSuite) createPurchase(paid, account string) string {
	out, err := s.docs.CreateDraft(s.ctx, entity.KindPurchase, actor, referenceRequest(vendorID, paid, account))
	s.Require().NoError(err)
	return out.ID
}

func (s *billingSuite) assertDec(want string, got decimal.Decimal, msg ...string) {
	s.T().Helper()
	s.Truef(d(want).Equal(got), "esperado %s, obtenido %s %v", want, got.String(), msg)
}
