package billing_test

import (
	"testing"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type PaymentSuite struct {
	billingSuite
}

func TestPaymentSuite(t *testing.T) {
	suite.Run(t, new(PaymentSuite))
}

func (s *PaymentSuite) finalizedInvoice(paid string) string {
	id := s.createInvoice(paid, cashID)
	_, err := s.fin.FinalizeInvoice(s.ctx, id, actor)
	s.Require().NoError(err)
	return id
}

func (s *PaymentSuite) TestAddInvoicePayment_SaldaFacturaFinalizada() {
	id := s.finalizedInvoice("900")
	before := s.store.Document(entity.KindInvoice, id)

	out, err := s.pay.AddInvoicePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("937.5"), Mode: "card", IdempotencyKey: "k-1"})

	s.Require().NoError(err)
	s.False(out.Replayed)
	s.Equal("debit", out.Transaction.Type)
	s.Equal("card", out.Transaction.Mode)
	s.Equal("invoice:"+id+":payment:k-1", out.Transaction.IdempotencyKey)
	s.Equal("paid", out.Payment.PaymentStatus)
	s.assertDec("0", out.Payment.BalanceDue)
	s.assertDec("1837.5", out.Payment.PaidAmount)
	// 1000 inicial + 900 al finalizar + 937.5
	s.assertDec("2837.5", s.store.Account(cashID).Balance)

	// el pago no reabre el documento: líneas y totales intactos
	after := s.store.Document(entity.KindInvoice, id)
	s.Equal(entity.StatusFinalized, after.Status)
	s.Equal(before.Items, after.Items)
	s.assertDec(before.Totals.GrandTotal.String(), after.Totals.GrandTotal)

	s.pub.AssertCalled(s.T(), "Publish", mock.Anything, mock.MatchedBy(func(e billing.Event) bool {
		return e.Type == billing.EventPaymentAdded && e.ReferenceID == id
	}))
}

func (s *PaymentSuite) TestAddPurchasePayment_EsCredito() {
	id := s.createPurchase("0", "")
	_, err := s.fin.FinalizePurchase(s.ctx, id, actor)
	s.Require().NoError(err)

	out, err := s.pay.AddPurchasePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("400")})

	s.Require().NoError(err)
	s.Equal("credit", out.Transaction.Type)
	s.Equal("cash", out.Transaction.Mode)
	s.Equal("partial", out.Payment.PaymentStatus)
	s.assertDec("600", s.store.Account(cashID).Balance)
}

func (s *PaymentSuite) TestAddPayment_Sobrepago() {
	id := s.finalizedInvoice("900")

	_, err := s.pay.AddInvoicePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("1000")})

	s.ErrorIs(err, domain.ErrOverpayment)
	s.Len(s.store.Transactions(), 1)
	s.assertDec("1900", s.store.Account(cashID).Balance)
}

func (s *PaymentSuite) TestAddPayment_ReintentoIdempotente() {
	id := s.finalizedInvoice("0")
	req := dto.PaymentRequest{AccountID: cashID, Amount: d("300"), IdempotencyKey: "retry-1"}

	first, err := s.pay.AddInvoicePayment(s.ctx, id, actor, req)
	s.Require().NoError(err)
	second, err := s.pay.AddInvoicePayment(s.ctx, id, actor, req)
	s.Require().NoError(err)

	s.False(first.Replayed)
	s.True(second.Replayed)
	s.Equal(first.Transaction.ID, second.Transaction.ID)
	s.Len(s.store.Transactions(), 1)
	s.assertDec("1300", s.store.Account(cashID).Balance)
	s.assertDec("300", s.store.Document(entity.KindInvoice, id).PaidAmount)
	s.pub.AssertNumberOfCalls(s.T(), "Publish", 2) // finalize + un solo payment.added
}

func (s *PaymentSuite) TestAddPayment_ClaveReutilizadaConOtroMonto() {
	id := s.finalizedInvoice("0")
	_, err := s.pay.AddInvoicePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("300"), IdempotencyKey: "k"})
	s.Require().NoError(err)

	_, err = s.pay.AddInvoicePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("301"), IdempotencyKey: "k"})

	s.ErrorIs(err, domain.ErrConflict)
	s.Len(s.store.Transactions(), 1)
}

func (s *PaymentSuite) TestAddPayment_EnBorradorNoSeDuplicaAlFinalizar() {
	id := s.createInvoice("0", cashID)
	_, err := s.pay.AddInvoicePayment(s.ctx, id, actor, dto.PaymentRequest{AccountID: cashID, Amount: d("500")})
	s.Require().NoError(err)
	s.assertDec("500", s.store.Document(entity.KindInvoice, id).PaidAmount)

	out, err := s.fin.FinalizeInvoice(s.ctx, id, actor)

	s.Require().NoError(err)
	s.Empty(out.Transactions)
	s.Len(s.store.Transactions(), 1)
	s.assertDec("1500", s.store.Account(cashID).Balance)
	s.Equal("partial", out.Document.Payment.PaymentStatus)
}

func (s *PaymentSuite) TestAddPayment_Rechazos() {
	id := s.finalizedInvoice("0")

	tests := []struct {
		name  string
		req   dto.PaymentRequest
		field string
	}{
		{"cuenta vacía", dto.PaymentRequest{Amount: d("10")}, "account_id"},
		{"cuenta inexistente", dto.PaymentRequest{AccountID: "acc-x", Amount: d("10")}, "account_id"},
		{"monto cero", dto.PaymentRequest{AccountID: cashID, Amount: d("0")}, "amount"},
		{"modo desconocido", dto.PaymentRequest{AccountID: cashID, Amount: d("10"), Mode: "trueque"}, "mode"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.pay.AddInvoicePayment(s.ctx, id, actor, tt.req)

			var ve *domain.ValidationError
			s.Require().ErrorAs(err, &ve)
			s.Equal(tt.field, ve.Field)
		})
	}
	s.Empty(s.store.Transactions())
}

func (s *PaymentSuite) TestAddPayment_DocumentoInexistente() {
	_, err := s.pay.AddInvoicePayment(s.ctx, "no-existe", actor, dto.PaymentRequest{AccountID: cashID, Amount: d("10")})

	s.ErrorIs(err, domain.ErrNotFound)
}
