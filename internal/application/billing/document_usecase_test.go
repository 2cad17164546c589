package billing_test

import (
	"strings"
	"testing"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type DocumentSuite struct {
	billingSuite
}

func TestDocumentSuite(t *testing.T) {
	suite.Run(t, new(DocumentSuite))
}

// ──────────────────────────────────────────────────────────────────────────────
// Vista previa
// ──────────────────────────────────────────────────────────────────────────────

func (s *DocumentSuite) TestCalculate_NoPersisteNada() {
	req := referenceRequest(customerID, "900", "").PricingRequest

	out, err := s.docs.Calculate(req)

	s.Require().NoError(err)
	s.assertDec("1837.5", out.Totals.GrandTotal)
	s.assertDec("937.5", out.Payment.BalanceDue)
	s.Equal("partial", out.Payment.PaymentStatus)
	s.Equal("cgst_sgst", out.Tax.TaxType)
	s.assertDec("43.75", out.Tax.CGSTTotal)
	s.Empty(s.store.AuditLogs())
}

func (s *DocumentSuite) TestCalculate_IVAPorDefectoConfigurado() {
	s.build(billing.Options{DefaultVATPercent: decimal.NewNullDecimal(d("10"))})
	req := referenceRequest(customerID, "0", "").PricingRequest
	req.Items[0].VATPercent = decimal.NullDecimal{}

	out, err := s.docs.Calculate(req)

	s.Require().NoError(err)
	s.assertDec("10", out.Items[0].VATPercent)
	s.assertDec("110", out.Items[0].VATAmount)
	s.assertDec("5", out.Items[1].VATPercent)
}

func (s *DocumentSuite) TestCalculate_SinLineasEsInvalido() {
	_, err := s.docs.Calculate(dto.PricingRequest{})

	s.ErrorIs(err, domain.ErrInvalidInput)
}

func (s *DocumentSuite) TestCalculate_DescuentoMayorAlSubtotal() {
	req := referenceRequest(customerID, "0", "").PricingRequest
	req.DiscountAmount = d("1750.001")

	_, err := s.docs.Calculate(req)

	var ve *domain.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("discount_amount", ve.Field)
	s.ErrorIs(err, domain.ErrInvalidInput)
}

func (s *DocumentSuite) TestCalculate_DescuentoIgualAlSubtotal() {
	req := referenceRequest(customerID, "0", "").PricingRequest
	req.DiscountAmount = d("1750")

	out, err := s.docs.Calculate(req)

	s.Require().NoError(err)
	s.assertDec("0", out.Totals.AfterInvoiceDiscount)
	// el IVA se calcula por línea antes del descuento
	s.assertDec("87.5", out.Totals.GrandTotal)
}

// ──────────────────────────────────────────────────────────────────────────────
// Borradores
// ──────────────────────────────────────────────────────────────────────────────

func (s *DocumentSuite) TestCreateDraft_TotalesDelServidor() {
	out, err := s.docs.CreateDraft(s.ctx, entity.KindInvoice, actor, referenceRequest(customerID, "900", cashID))

	s.Require().NoError(err)
	s.Equal("draft", out.Status)
	s.True(strings.HasPrefix(out.Number, "INV-20261015-"), out.Number)
	s.Equal("2026-10-15", out.Date)
	s.assertDec("1837.5", out.Totals.GrandTotal)
	s.Len(out.Items, 2)
	s.Equal(1, out.Items[0].LineNo)
	s.Equal(2, out.Items[1].LineNo)

	// un borrador no toca inventario ni caja
	s.Empty(s.store.Movements())
	s.Empty(s.store.Transactions())
	s.Equal(10, s.store.Category(ringsID).Quantity)

	logs := s.store.AuditLogs()
	s.Require().Len(logs, 1)
	s.Equal(entity.AuditCreate, logs[0].Action)
}

func (s *DocumentSuite) TestCreateDraft_CompraUsaPrefijoPUR() {
	out, err := s.docs.CreateDraft(s.ctx, entity.KindPurchase, actor, referenceRequest(vendorID, "0", ""))

	s.Require().NoError(err)
	s.Equal("purchase", out.Kind)
	s.True(strings.HasPrefix(out.Number, "PUR-"), out.Number)
}

func (s *DocumentSuite) TestCreateDraft_Rechazos() {
	noCategory := referenceRequest(customerID, "0", "")
	noCategory.Items[1].CategoryID = ""
	unknownCategory := referenceRequest(customerID, "0", "")
	unknownCategory.Items[0].CategoryID = "cat-x"
	badDate := referenceRequest(customerID, "0", "")
	badDate.Date = "15/10/2026"

	tests := []struct {
		name  string
		kind  entity.DocumentKind
		req   dto.DocumentRequest
		field string
	}{
		{"tercero inexistente", entity.KindInvoice, referenceRequest("nadie", "0", ""), "party_id"},
		{"proveedor en factura", entity.KindInvoice, referenceRequest(vendorID, "0", ""), "party_id"},
		{"cliente en compra", entity.KindPurchase, referenceRequest(customerID, "0", ""), "party_id"},
		{"sin categoría", entity.KindInvoice, noCategory, "items[1].category_id"},
		{"categoría inexistente", entity.KindInvoice, unknownCategory, "items[0].category_id"},
		{"cuenta inexistente", entity.KindInvoice, referenceRequest(customerID, "0", "acc-x"), "payment_account_id"},
		{"fecha inválida", entity.KindInvoice, badDate, "date"},
		{"tipo desconocido", entity.DocumentKind("quote"), referenceRequest(customerID, "0", ""), "kind"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.docs.CreateDraft(s.ctx, tt.kind, actor, tt.req)

			var ve *domain.ValidationError
			s.Require().ErrorAs(err, &ve)
			s.ErrorIs(err, domain.ErrInvalidInput)
			s.Equal(tt.field, ve.Field)
		})
	}
	s.Empty(s.store.AuditLogs())
}

func (s *DocumentSuite) TestCreateDraft_DescuentoMayorAlSubtotalNoGuarda() {
	req := referenceRequest(customerID, "0", "")
	req.DiscountAmount = d("5000")

	_, err := s.docs.CreateDraft(s.ctx, entity.KindInvoice, actor, req)

	var ve *domain.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("discount_amount", ve.Field)
	s.Empty(s.store.AuditLogs())
}

func (s *DocumentSuite) TestUpdateDraft_DescuentoMayorAlSubtotal() {
	id := s.createInvoice("0", "")
	req := referenceRequest(customerID, "0", "")
	req.DiscountAmount = d("5000")

	_, err := s.docs.UpdateDraft(s.ctx, entity.KindInvoice, id, actor, req)

	var ve *domain.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("discount_amount", ve.Field)
	s.assertDec("1837.5", s.store.Document(entity.KindInvoice, id).Totals.GrandTotal)
}

func (s *DocumentSuite) TestCreateDraft_PagoMayorAlTotal() {
	_, err := s.docs.CreateDraft(s.ctx, entity.KindInvoice, actor, referenceRequest(customerID, "2000", cashID))

	s.ErrorIs(err, domain.ErrOverpayment)
}

func (s *DocumentSuite) TestCreateDraft_PagoDentroDeTolerancia() {
	out, err := s.docs.CreateDraft(s.ctx, entity.KindInvoice, actor, referenceRequest(customerID, "1837.501", cashID))

	s.Require().NoError(err)
	s.Equal("paid", out.Payment.PaymentStatus)
	s.assertDec("0", out.Payment.BalanceDue)
}

func (s *DocumentSuite) TestUpdateDraft_RecalculaYAudita() {
	id := s.createInvoice("0", "")
	req := referenceRequest(customerID, "0", "")
	req.DiscountAmount = d("50")
	req.Notes = "cliente frecuente"

	out, err := s.docs.UpdateDraft(s.ctx, entity.KindInvoice, id, actor, req)

	s.Require().NoError(err)
	s.assertDec("1700", out.Totals.AfterInvoiceDiscount)
	s.assertDec("1787.5", out.Totals.GrandTotal)
	s.Equal("cliente frecuente", out.Notes)

	stored := s.store.Document(entity.KindInvoice, id)
	s.assertDec("1787.5", stored.Totals.GrandTotal)
	s.Equal(actor, stored.CreatedBy)

	logs := s.store.AuditLogs()
	s.Equal(entity.AuditUpdate, logs[len(logs)-1].Action)
}

func (s *DocumentSuite) TestUpdateDraft_NoBajaDeLoYaCobrado() {
	id := s.createInvoice("0", "")
	_, err := s.pay.AddInvoicePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("500")})
	s.Require().NoError(err)

	_, err = s.docs.UpdateDraft(s.ctx, entity.KindInvoice, id, actor, referenceRequest(customerID, "100", cashID))

	var ve *domain.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("paid_amount", ve.Field)
}

func (s *DocumentSuite) TestGet_EliminadoEsNoEncontrado() {
	id := s.createInvoice("0", "")

	got, err := s.docs.Get(s.ctx, entity.KindInvoice, id)
	s.Require().NoError(err)
	s.Equal(id, got.ID)

	s.Require().NoError(s.docs.DeleteDraft(s.ctx, entity.KindInvoice, id, actor))

	_, err = s.docs.Get(s.ctx, entity.KindInvoice, id)
	s.ErrorIs(err, domain.ErrNotFound)
	err = s.docs.DeleteDraft(s.ctx, entity.KindInvoice, id, actor)
	s.ErrorIs(err, domain.ErrNotFound)

	logs := s.store.AuditLogs()
	s.Equal(entity.AuditDelete, logs[len(logs)-1].Action)
}

func (s *DocumentSuite) TestDeleteDraft_ConPagosEsConflicto() {
	id := s.createInvoice("0", "")
	_, err := s.pay.AddInvoicePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("100")})
	s.Require().NoError(err)

	err = s.docs.DeleteDraft(s.ctx, entity.KindInvoice, id, actor)

	s.ErrorIs(err, domain.ErrConflict)
	s.NotNil(s.store.Document(entity.KindInvoice, id))
	s.False(s.store.Document(entity.KindInvoice, id).IsDeleted)
}
