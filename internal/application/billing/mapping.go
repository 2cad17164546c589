package billing

import (
	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
)

// toPricing convierte la petición en entrada de la calculadora; LineNo = posición (1..n).
func toPricing(req dto.PricingRequest) entity.Pricing {
	items := make([]entity.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = entity.LineItem{
			LineNo:         i + 1,
			CategoryID:     it.CategoryID,
			Description:    it.Description,
			Purity:         it.Purity,
			Quantity:       it.Quantity,
			Weight:         it.Weight,
			GrossWeight:    it.GrossWeight,
			StoneWeight:    it.StoneWeight,
			NetGoldWeight:  it.NetGoldWeight,
			MetalRate:      it.MetalRate,
			MakingValue:    it.MakingValue,
			StoneCharges:   it.StoneCharges,
			WastageCharges: it.WastageCharges,
			ItemDiscount:   it.ItemDiscount,
			VATPercent:     it.VATPercent,
		}
	}
	return entity.Pricing{
		Items:          items,
		DiscountAmount: req.DiscountAmount,
		TaxType:        entity.TaxType(req.TaxType),
		GSTPercent:     req.GSTPercent,
		PaidAmount:     req.PaidAmount,
	}
}

// ToCalculationResponse expone el resultado de la calculadora.
func ToCalculationResponse(c entity.Calculation) dto.CalculationResponse {
	items := make([]dto.LineItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = dto.LineItemResponse{
			LineNo:            it.LineNo,
			CategoryID:        it.CategoryID,
			Description:       it.Description,
			Purity:            it.Purity,
			Quantity:          it.Quantity,
			Weight:            it.Weight,
			GrossWeight:       it.GrossWeight,
			StoneWeight:       it.StoneWeight,
			NetGoldWeight:     it.NetGoldWeight.Decimal,
			MetalRate:         it.MetalRate,
			MakingValue:       it.MakingValue,
			StoneCharges:      it.StoneCharges,
			WastageCharges:    it.WastageCharges,
			ItemDiscount:      it.ItemDiscount,
			VATPercent:        it.VATPercent.Decimal,
			GoldValue:         it.GoldValue,
			SubtotalBeforeVAT: it.SubtotalBeforeVAT,
			VATAmount:         it.VATAmount,
			LineTotal:         it.LineTotal,
		}
	}
	t := c.Totals
	return dto.CalculationResponse{
		Items: items,
		Totals: dto.TotalsResponse{
			MetalTotal:           t.MetalTotal,
			MakingTotal:          t.MakingTotal,
			StoneTotal:           t.StoneTotal,
			WastageTotal:         t.WastageTotal,
			ItemDiscountsTotal:   t.ItemDiscountsTotal,
			Subtotal:             t.Subtotal,
			DiscountAmount:       t.DiscountAmount,
			AfterInvoiceDiscount: t.AfterInvoiceDiscount,
			VATTotal:             t.VATTotal,
			GrandTotal:           t.GrandTotal,
			TotalWeight:          t.TotalWeight,
			TotalGrossWeight:     t.TotalGrossWeight,
			TotalStoneWeight:     t.TotalStoneWeight,
			TotalNetGoldWeight:   t.TotalNetGoldWeight,
			TotalItems:           t.TotalItems,
			TotalQuantity:        t.TotalQuantity,
		},
		Payment: toPaymentSummaryResponse(c.Payment),
		Tax: dto.TaxBreakdownResponse{
			TaxType:     string(c.Tax.TaxType),
			GSTPercent:  c.Tax.GSTPercent,
			CGSTPercent: c.Tax.CGSTPercent,
			SGSTPercent: c.Tax.SGSTPercent,
			IGSTPercent: c.Tax.IGSTPercent,
			CGSTTotal:   c.Tax.CGSTTotal,
			SGSTTotal:   c.Tax.SGSTTotal,
			IGSTTotal:   c.Tax.IGSTTotal,
		},
	}
}

func toPaymentSummaryResponse(p entity.PaymentSummary) dto.PaymentSummaryResponse {
	return dto.PaymentSummaryResponse{
		PaidAmount:    p.PaidAmount,
		BalanceDue:    p.BalanceDue,
		PaymentStatus: string(p.PaymentStatus),
	}
}

// ToDocumentResponse expone un documento con sus totales.
func ToDocumentResponse(doc *entity.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:                  doc.ID,
		Kind:                string(doc.Kind),
		Number:              doc.Number,
		PartyID:             doc.PartyID,
		Date:                doc.Date.Format("2006-01-02"),
		Notes:               doc.Notes,
		PaymentAccountID:    doc.PaymentAccountID,
		Status:              string(doc.Status),
		FinalizedAt:         doc.FinalizedAt,
		FinalizedBy:         doc.FinalizedBy,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
		CalculationResponse: ToCalculationResponse(doc.Calculation),
	}
}

func toMovementResponse(m *entity.StockMovement) dto.StockMovementResponse {
	return dto.StockMovementResponse{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Type:        m.Type,
		LineNo:      m.LineNo,
		QtyDelta:    m.QtyDelta,
		WeightDelta: m.WeightDelta,
		QtyAfter:    m.QtyAfter,
		WeightAfter: m.WeightAfter,
	}
}

func toTransactionResponse(t *entity.LedgerTransaction) dto.LedgerTransactionResponse {
	return dto.LedgerTransactionResponse{
		ID:             t.ID,
		AccountID:      t.AccountID,
		Type:           string(t.Type),
		Amount:         t.Amount,
		Mode:           t.Mode,
		ReferenceType:  t.ReferenceType,
		ReferenceID:    t.ReferenceID,
		IdempotencyKey: t.IdempotencyKey,
		CreatedAt:      t.CreatedAt,
	}
}
