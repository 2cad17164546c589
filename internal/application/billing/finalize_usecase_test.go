package billing_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/jhoicas/joyeria-erp/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type FinalizeSuite struct {
	billingSuite
}

func TestFinalizeSuite(t *testing.T) {
	suite.Run(t, new(FinalizeSuite))
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios de referencia
// ──────────────────────────────────────────────────────────────────────────────

func (s *FinalizeSuite) TestFinalizeInvoice_PagoTotal() {
	id := s.createInvoice("1837.5", cashID)

	out, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.Require().NoError(err)

	s.Equal("finalized", out.Document.Status)
	s.Equal(actor, out.Document.FinalizedBy)
	s.Require().NotNil(out.Document.FinalizedAt)
	s.True(out.Document.FinalizedAt.Equal(fixedNow))
	s.assertDec("1837.5", out.Document.Totals.GrandTotal)
	s.Equal("paid", out.Document.Payment.PaymentStatus)
	s.assertDec("0", out.Document.Payment.BalanceDue)

	// stock OUT por línea
	movs := s.store.Movements()
	s.Require().Len(movs, 2)
	for _, m := range movs {
		s.Equal(entity.MovementTypeOUT, m.Type)
		s.Equal(entity.ReferenceInvoice, m.ReferenceType)
		s.Equal(id, m.ReferenceID)
		s.Equal(-1, m.QtyDelta)
	}
	rings := s.store.Category(ringsID)
	s.Equal(9, rings.Quantity)
	s.assertDec("80", rings.Weight)
	chains := s.store.Category(chainsID)
	s.Equal(4, chains.Quantity)
	s.assertDec("40", chains.Weight)

	// cobro = debit, sube la caja
	txns := s.store.Transactions()
	s.Require().Len(txns, 1)
	s.Equal(entity.Debit, txns[0].Type)
	s.assertDec("1837.5", txns[0].Amount)
	s.Equal(entity.FinalizePaymentKey(entity.ReferenceInvoice, id), txns[0].IdempotencyKey)
	s.assertDec("2837.5", s.store.Account(cashID).Balance)

	logs := s.store.AuditLogs()
	s.Require().NotEmpty(logs)
	last := logs[len(logs)-1]
	s.Equal(entity.AuditFinalize, last.Action)
	s.Equal(id, last.EntityID)
	s.Equal(actor, last.Actor)

	s.pub.AssertCalled(s.T(), "Publish", mock.Anything, mock.MatchedBy(func(e billing.Event) bool {
		return e.Type == billing.EventInvoiceFinalized && e.ReferenceID == id
	}))
}

func (s *FinalizeSuite) TestFinalizeInvoice_PagoParcial() {
	id := s.createInvoice("900", cashID)

	out, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.Require().NoError(err)

	s.Equal("partial", out.Document.Payment.PaymentStatus)
	s.assertDec("937.5", out.Document.Payment.BalanceDue)
	s.Require().Len(out.Transactions, 1)
	s.assertDec("900", out.Transactions[0].Amount)
}

func (s *FinalizeSuite) TestFinalizeInvoice_SinPagoNoCreaTransaccion() {
	id := s.createInvoice("0", "")

	out, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.Require().NoError(err)

	s.Equal("unpaid", out.Document.Payment.PaymentStatus)
	s.Empty(out.Transactions)
	s.Empty(s.store.Transactions())
	s.assertDec("1000", s.store.Account(cashID).Balance)
}

func (s *FinalizeSuite) TestFinalizePurchase_EntradaCreditoYCostoPromedio() {
	id := s.createPurchase("500", cashID)

	out, err := s.fin.FinalizePurchase(s.ctx, id, actor)
	s.Require().NoError(err)
	s.Len(out.Movements, 2)

	for _, m := range s.store.Movements() {
		s.Equal(entity.MovementTypeIN, m.Type)
		s.Equal(entity.ReferencePurchase, m.ReferenceType)
		s.Equal(1, m.QtyDelta)
	}
	rings := s.store.Category(ringsID)
	s.Equal(11, rings.Quantity)
	s.assertDec("120", rings.Weight)
	// (100 g × 20 + 20 g × 1100/20) / 120 g
	s.assertDec("25.833", rings.AvgCostPerGram)
	s.assertDec("10.833", s.store.Category(chainsID).AvgCostPerGram)

	txns := s.store.Transactions()
	s.Require().Len(txns, 1)
	s.Equal(entity.Credit, txns[0].Type)
	s.assertDec("500", s.store.Account(cashID).Balance)
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados
// ──────────────────────────────────────────────────────────────────────────────

func (s *FinalizeSuite) TestFinalize_SegundaVezEsYaFinalizado() {
	id := s.createInvoice("900", cashID)
	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.Require().NoError(err)

	_, err = s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.ErrorIs(err, domain.ErrAlreadyFinalized)
	s.Contains(err.Error(), "factura "+id)
	s.Len(s.store.Movements(), 2)
	s.Len(s.store.Transactions(), 1)
}

func (s *FinalizeSuite) TestFinalize_ConcurrenteSoloUnoGana() {
	id := s.createInvoice("1837.5", cashID)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = s.fin.FinalizeInvoice(s.ctx, id, actor)
		}(i)
	}
	close(start)
	wg.Wait()

	ok, already := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyFinalized):
			already++
		default:
			s.Failf("error inesperado", "%v", err)
		}
	}
	s.Equal(1, ok)
	s.Equal(n-1, already)
	s.Len(s.store.Movements(), 2)
	s.Len(s.store.Transactions(), 1)
	s.assertDec("2837.5", s.store.Account(cashID).Balance)
}

func (s *FinalizeSuite) TestFinalize_InmutableTrasFinalizar() {
	id := s.createInvoice("900", cashID)
	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.Require().NoError(err)
	before, err := json.Marshal(s.store.Document(entity.KindInvoice, id))
	s.Require().NoError(err)

	req := referenceRequest(customerID, "900", cashID)
	req.DiscountAmount = d("100")
	_, err = s.docs.UpdateDraft(s.ctx, entity.KindInvoice, id, actor, req)
	s.ErrorIs(err, domain.ErrFinalizedImmutable)

	err = s.docs.DeleteDraft(s.ctx, entity.KindInvoice, id, actor)
	s.ErrorIs(err, domain.ErrFinalizedImmutable)

	after, err := json.Marshal(s.store.Document(entity.KindInvoice, id))
	s.Require().NoError(err)
	s.JSONEq(string(before), string(after))
}

func (s *FinalizeSuite) TestFinalize_CandadoOcupadoSobreFinalizadaEsYaFinalizado() {
	id := s.createInvoice("900", cashID)
	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.Require().NoError(err)

	busy := new(mockLocker)
	busy.On("Lock", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("bloqueo lock:invoice:%s: %w", id, domain.ErrLockNotObtained))

	_, err = s.finalizerWith(busy).FinalizeInvoice(s.ctx, id, actor)

	s.ErrorIs(err, domain.ErrAlreadyFinalized)
	s.NotErrorIs(err, domain.ErrLockNotObtained)
	s.Len(s.store.Movements(), 2)
	busy.AssertExpectations(s.T())
}

func (s *FinalizeSuite) TestFinalize_CandadoOcupadoSobreBorradorEsBloqueo() {
	id := s.createInvoice("900", cashID)

	busy := new(mockLocker)
	busy.On("Lock", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("bloqueo lock:invoice:%s: %w", id, domain.ErrLockNotObtained))

	_, err := s.finalizerWith(busy).FinalizeInvoice(s.ctx, id, actor)

	s.ErrorIs(err, domain.ErrLockNotObtained)
	s.Equal(entity.StatusDraft, s.store.Document(entity.KindInvoice, id).Status)
	s.Empty(s.store.Movements())
}

func (s *FinalizeSuite) TestFinalize_NoEncontrado() {
	_, err := s.fin.FinalizeInvoice(s.ctx, "no-existe", actor)
	s.ErrorIs(err, domain.ErrNotFound)

	id := s.createInvoice("0", "")
	s.Require().NoError(s.docs.DeleteDraft(s.ctx, entity.KindInvoice, id, actor))
	_, err = s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.ErrorIs(err, domain.ErrNotFound)

	// el id de una factura no sirve como compra
	id = s.createInvoice("0", "")
	_, err = s.fin.FinalizePurchase(s.ctx, id, actor)
	s.ErrorIs(err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad
// ──────────────────────────────────────────────────────────────────────────────

func (s *FinalizeSuite) assertNothingApplied(id string) {
	s.T().Helper()
	doc := s.store.Document(entity.KindInvoice, id)
	s.Equal(entity.StatusDraft, doc.Status)
	s.Nil(doc.FinalizedAt)
	s.Empty(s.store.Movements())
	s.Empty(s.store.Transactions())
	s.Equal(10, s.store.Category(ringsID).Quantity)
	s.assertDec("100", s.store.Category(ringsID).Weight)
	s.assertDec("1000", s.store.Account(cashID).Balance)
	for _, l := range s.store.AuditLogs() {
		s.NotEqual(entity.AuditFinalize, l.Action)
	}
	s.pub.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything)
}

func (s *FinalizeSuite) TestFinalize_FalloEnTransaccionDeCajaRevierteTodo() {
	id := s.createInvoice("900", cashID)
	s.store.FailOn("ledger.create", errors.New("disco lleno"))

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.Require().Error(err)
	s.Contains(err.Error(), "disco lleno")
	s.assertNothingApplied(id)

	s.store.ClearFaults()
	_, err = s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.NoError(err)
}

func (s *FinalizeSuite) TestFinalize_FalloEnMovimientoRevierteTodo() {
	id := s.createInvoice("900", cashID)
	s.store.FailOn("movements.create", errors.New("timeout"))

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.Require().Error(err)
	s.assertNothingApplied(id)
}

func (s *FinalizeSuite) TestFinalize_FalloEnBitacoraRevierteTodo() {
	id := s.createInvoice("900", cashID)
	s.store.FailOn("audit.append", errors.New("timeout"))

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.Require().Error(err)
	s.store.ClearFaults()
	s.assertNothingApplied(id)
}

func (s *FinalizeSuite) TestFinalize_CommitInciertoYReintentoSinDuplicados() {
	id := s.createInvoice("1837.5", cashID)
	s.store.FailNextCommit(errors.New("conexión reiniciada"))

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.ErrorIs(err, domain.ErrNeedsReconciliation)

	_, err = s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.ErrorIs(err, domain.ErrAlreadyFinalized)
	s.Len(s.store.Movements(), 2)
	s.Len(s.store.Transactions(), 1)
	s.assertDec("2837.5", s.store.Account(cashID).Balance)
}

// ──────────────────────────────────────────────────────────────────────────────
// Precondiciones
// ──────────────────────────────────────────────────────────────────────────────

func (s *FinalizeSuite) TestFinalize_CategoriaEliminadaEsFatal() {
	id := s.createInvoice("900", cashID)
	s.store.SeedCategory(entity.InventoryCategory{ID: chainsID, Name: "Cadenas 21K", IsDeleted: true, Quantity: 5, Weight: d("50")})

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.ErrorIs(err, domain.ErrNotFound)
	s.Contains(err.Error(), chainsID)
	s.Empty(s.store.Movements())
	s.Empty(s.store.Transactions())
}

func (s *FinalizeSuite) TestFinalize_CuentaObligatoriaSiHayPago() {
	id := s.createInvoice("100", "")

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	var ve *domain.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("payment_account_id", ve.Field)
}

func (s *FinalizeSuite) TestFinalize_StockNegativoPermitidoPorDefecto() {
	s.store.SeedCategory(entity.InventoryCategory{ID: ringsID, Name: "Anillos 22K", Quantity: 0, Weight: d("5")})
	id := s.createInvoice("0", "")

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.Require().NoError(err)
	s.Equal(-1, s.store.Category(ringsID).Quantity)
	s.assertDec("-15", s.store.Category(ringsID).Weight)
}

func (s *FinalizeSuite) TestFinalize_PoliticaEstrictaRechazaStockInsuficiente() {
	s.build(billing.Options{StockPolicy: inventory.StockStrict})
	s.store.SeedCategory(entity.InventoryCategory{ID: ringsID, Name: "Anillos 22K", Quantity: 0, Weight: d("5")})
	id := s.createInvoice("0", "")

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.ErrorIs(err, domain.ErrInsufficientStock)
	s.Equal(entity.StatusDraft, s.store.Document(entity.KindInvoice, id).Status)
	s.Empty(s.store.Movements())
}

func (s *FinalizeSuite) tamperGrandTotal(id, total string) {
	err := s.store.RunBilling(s.ctx, func(r billing.TxRepos) error {
		doc, err := r.Documents.GetByID(s.ctx, entity.KindInvoice, id)
		if err != nil {
			return err
		}
		doc.Totals.GrandTotal = d(total)
		_, err = r.Documents.ReplaceDraft(s.ctx, doc)
		return err
	})
	s.Require().NoError(err)
}

func (s *FinalizeSuite) TestFinalize_TotalesAlteradosSeRecalculan() {
	id := s.createInvoice("0", "")
	s.tamperGrandTotal(id, "10")

	out, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.Require().NoError(err)
	s.assertDec("1837.5", out.Document.Totals.GrandTotal)
	s.assertDec("1837.5", s.store.Document(entity.KindInvoice, id).Totals.GrandTotal)
}

func (s *FinalizeSuite) TestFinalize_TotalesAlteradosConPoliticaReject() {
	s.build(billing.Options{TotalsPolicy: billing.TotalsReject})
	id := s.createInvoice("0", "")
	s.tamperGrandTotal(id, "10")

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.ErrorIs(err, domain.ErrConsistency)
	s.Empty(s.store.Movements())
}

// roundStoredInputs deja las entradas de las líneas como las devuelve una columna NUMERIC(14,3).
func (s *FinalizeSuite) roundStoredInputs(id string) {
	err := s.store.RunBilling(s.ctx, func(r billing.TxRepos) error {
		doc, err := r.Documents.GetByID(s.ctx, entity.KindInvoice, id)
		if err != nil {
			return err
		}
		for i := range doc.Items {
			it := &doc.Items[i]
			it.Weight = it.Weight.Round(3)
			it.GrossWeight = it.GrossWeight.Round(3)
			it.StoneWeight = it.StoneWeight.Round(3)
			it.NetGoldWeight = decimal.NewNullDecimal(it.NetGoldWeight.Decimal.Round(3))
			it.MetalRate = it.MetalRate.Round(3)
			it.MakingValue = it.MakingValue.Round(3)
			it.StoneCharges = it.StoneCharges.Round(3)
			it.WastageCharges = it.WastageCharges.Round(3)
			it.ItemDiscount = it.ItemDiscount.Round(3)
		}
		_, err = r.Documents.ReplaceDraft(s.ctx, doc)
		return err
	})
	s.Require().NoError(err)
}

func (s *FinalizeSuite) TestFinalize_EntradasConCuatroDecimalesNoDerivanConPoliticaReject() {
	s.build(billing.Options{TotalsPolicy: billing.TotalsReject})
	req := referenceRequest(customerID, "0", "")
	req.Items[0].NetGoldWeight = nd("20.0005")
	req.Items[0].MakingValue = d("100.0004")
	req.Items[1].MakingValue = d("50.0004")

	draft, err := s.docs.CreateDraft(s.ctx, entity.KindInvoice, actor, req)
	s.Require().NoError(err)
	// 20.001 × 50 + 100 = 1100.05 (+55.003) y 10 × 60 + 50 = 650 (+32.5)
	s.assertDec("1837.553", draft.Totals.GrandTotal)
	s.assertDec("150", draft.Totals.MakingTotal)
	s.roundStoredInputs(draft.ID)

	out, err := s.fin.FinalizeInvoice(s.ctx, draft.ID, actor)

	s.Require().NoError(err)
	s.assertDec("1837.553", out.Document.Totals.GrandTotal)
}

func (s *FinalizeSuite) TestFinalize_FalloAlPublicarNoRevierte() {
	s.pub = new(mockPublisher)
	s.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("pubsub caído")).Once()
	s.build(billing.Options{})
	id := s.createInvoice("0", "")

	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.Require().NoError(err)
	s.Equal(entity.StatusFinalized, s.store.Document(entity.KindInvoice, id).Status)
	s.pub.AssertExpectations(s.T())
}
