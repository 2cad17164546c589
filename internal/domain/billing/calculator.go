// Package billing contiene la calculadora de facturas: funciones puras sin I/O
// que convierten líneas en montos (metal, hechura, piedras, merma, descuentos, IVA).
package billing

import (
	"github.com/jhoicas/joyeria-erp/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MoneyPlaces precisión de montos y pesos (OMR usa 3 decimales).
const MoneyPlaces int32 = 3

var (
	// DefaultVATPercent se aplica a líneas sin vat_percent.
	DefaultVATPercent = decimal.NewFromFloat(5.0)
	// DefaultGSTPercent se aplica al desglose si el documento no lo indica.
	DefaultGSTPercent = decimal.NewFromFloat(5.0)
	// PaymentTolerance residuo máximo que se considera saldado (una unidad mínima).
	PaymentTolerance = decimal.New(1, -MoneyPlaces)

	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Round redondea half-up (alejándose de cero en .5) a places decimales.
func Round(v decimal.Decimal, places int32) decimal.Decimal {
	return v.Round(places)
}

// RoundMoney redondea a MoneyPlaces con half-up.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return Round(v, MoneyPlaces)
}

// RoundMoneyNull como RoundMoney; un valor nulo vale 0.
func RoundMoneyNull(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero.Round(MoneyPlaces)
	}
	return RoundMoney(v.Decimal)
}

// CalculateLineItem devuelve una copia de la línea con los campos derivados.
// Las entradas se llevan a MoneyPlaces antes de derivar, igual que al persistirlas,
// y cada paso se redondea antes de usarse en el siguiente; el orden importa.
func CalculateLineItem(item entity.LineItem) entity.LineItem {
	out := item
	out.Weight = RoundMoney(item.Weight)
	out.GrossWeight = RoundMoney(item.GrossWeight)
	out.StoneWeight = RoundMoney(item.StoneWeight)
	out.MetalRate = RoundMoney(item.MetalRate)
	out.MakingValue = RoundMoney(item.MakingValue)
	out.StoneCharges = RoundMoney(item.StoneCharges)
	out.WastageCharges = RoundMoney(item.WastageCharges)
	out.ItemDiscount = RoundMoney(item.ItemDiscount)

	if out.NetGoldWeight.Valid {
		out.NetGoldWeight = decimal.NewNullDecimal(RoundMoney(out.NetGoldWeight.Decimal))
	} else {
		out.NetGoldWeight = decimal.NewNullDecimal(RoundMoney(out.GrossWeight.Sub(out.StoneWeight)))
	}
	if !out.VATPercent.Valid {
		out.VATPercent = decimal.NewNullDecimal(DefaultVATPercent)
	}

	out.GoldValue = RoundMoney(out.NetGoldWeight.Decimal.Mul(out.MetalRate))
	out.SubtotalBeforeVAT = RoundMoney(out.GoldValue.
		Add(out.MakingValue).
		Add(out.StoneCharges).
		Add(out.WastageCharges).
		Sub(out.ItemDiscount))
	out.VATAmount = RoundMoney(out.SubtotalBeforeVAT.Mul(out.VATPercent.Decimal).Div(hundred))
	out.LineTotal = RoundMoney(out.SubtotalBeforeVAT.Add(out.VATAmount))
	return out
}

// CalculateInvoiceTotals agrega líneas ya calculadas. Las sumas se acumulan sin redondear
// y se redondean al final; el IVA total es la suma de los IVA por línea, no se recalcula.
func CalculateInvoiceTotals(items []entity.LineItem, discountAmount decimal.Decimal) entity.Totals {
	var gold, making, stone, wastage, itemDiscounts, vat decimal.Decimal
	var weight, gross, stoneWeight, net decimal.Decimal
	qty := 0
	for _, it := range items {
		gold = gold.Add(it.GoldValue)
		making = making.Add(it.MakingValue)
		stone = stone.Add(it.StoneCharges)
		wastage = wastage.Add(it.WastageCharges)
		itemDiscounts = itemDiscounts.Add(it.ItemDiscount)
		vat = vat.Add(it.VATAmount)

		weight = weight.Add(it.Weight)
		gross = gross.Add(it.GrossWeight)
		stoneWeight = stoneWeight.Add(it.StoneWeight)
		if it.NetGoldWeight.Valid {
			net = net.Add(it.NetGoldWeight.Decimal)
		}
		qty += it.Quantity
	}

	t := entity.Totals{
		MetalTotal:         RoundMoney(gold),
		MakingTotal:        RoundMoney(making),
		StoneTotal:         RoundMoney(stone),
		WastageTotal:       RoundMoney(wastage),
		ItemDiscountsTotal: RoundMoney(itemDiscounts),
		DiscountAmount:     RoundMoney(discountAmount),
		VATTotal:           RoundMoney(vat),
		TotalWeight:        RoundMoney(weight),
		TotalGrossWeight:   RoundMoney(gross),
		TotalStoneWeight:   RoundMoney(stoneWeight),
		TotalNetGoldWeight: RoundMoney(net),
		TotalItems:         len(items),
		TotalQuantity:      qty,
	}
	t.Subtotal = RoundMoney(gold.Add(making).Add(stone).Add(wastage).Sub(itemDiscounts))
	t.AfterInvoiceDiscount = RoundMoney(t.Subtotal.Sub(discountAmount))
	t.GrandTotal = RoundMoney(t.AfterInvoiceDiscount.Add(t.VATTotal))
	return t
}

// CalculatePaymentSummary calcula saldo y estado de pago.
// Un residuo <= PaymentTolerance cuenta como pagado; el saldo nunca es negativo.
func CalculatePaymentSummary(grandTotal, paidAmount decimal.Decimal) entity.PaymentSummary {
	balance := RoundMoney(grandTotal.Sub(paidAmount))

	status := entity.PaymentPaid
	switch {
	case paidAmount.LessThanOrEqual(decimal.Zero):
		status = entity.PaymentUnpaid
	case balance.GreaterThan(PaymentTolerance):
		status = entity.PaymentPartial
	}
	if balance.IsNegative() {
		balance = decimal.Zero.Round(MoneyPlaces)
	}

	return entity.PaymentSummary{
		GrandTotal:    RoundMoney(grandTotal),
		PaidAmount:    RoundMoney(paidAmount),
		BalanceDue:    balance,
		PaymentStatus: status,
	}
}

// CalculateTaxBreakdown reparte un IVA ya calculado. En cgst_sgst cada mitad se redondea
// por separado, así que la suma puede diferir del total en una unidad mínima.
func CalculateTaxBreakdown(vatTotal decimal.Decimal, taxType entity.TaxType, gstPercent decimal.Decimal) entity.TaxBreakdown {
	zero := decimal.Zero.Round(MoneyPlaces)
	b := entity.TaxBreakdown{
		TaxType:     taxType,
		GSTPercent:  gstPercent,
		CGSTPercent: decimal.Zero,
		SGSTPercent: decimal.Zero,
		IGSTPercent: decimal.Zero,
		CGSTTotal:   zero,
		SGSTTotal:   zero,
		IGSTTotal:   zero,
	}
	if taxType == entity.TaxIGST {
		b.IGSTPercent = gstPercent
		b.IGSTTotal = RoundMoney(vatTotal)
		return b
	}

	b.TaxType = entity.TaxCGSTSGST
	half := RoundMoney(vatTotal.Div(two))
	b.CGSTPercent = gstPercent.Div(two)
	b.SGSTPercent = gstPercent.Div(two)
	b.CGSTTotal = half
	b.SGSTTotal = half
	return b
}

// CalculateFullInvoice ejecuta, en este orden, líneas → totales → pago → impuestos.
// Es idempotente: aplicarla sobre su propia salida produce el mismo resultado.
func CalculateFullInvoice(in entity.Pricing) entity.Calculation {
	items := make([]entity.LineItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = CalculateLineItem(it)
	}

	taxType := in.TaxType
	if taxType == "" {
		taxType = entity.TaxCGSTSGST
	}
	gst := DefaultGSTPercent
	if in.GSTPercent.Valid {
		gst = in.GSTPercent.Decimal
	}

	discount := RoundMoney(in.DiscountAmount)
	paid := RoundMoney(in.PaidAmount)
	totals := CalculateInvoiceTotals(items, discount)
	payment := CalculatePaymentSummary(totals.GrandTotal, paid)
	tax := CalculateTaxBreakdown(totals.VATTotal, taxType, gst)

	out := entity.Calculation{
		Pricing: entity.Pricing{
			Items:          items,
			DiscountAmount: discount,
			TaxType:        taxType,
			GSTPercent:     decimal.NewNullDecimal(gst),
			PaidAmount:     paid,
		},
		Totals:  totals,
		Payment: payment,
		Tax:     tax,
	}
	return out
}

// Drift devuelve la mayor diferencia absoluta entre dos juegos de totales (gran total e IVA).
func Drift(stored, recomputed entity.Totals) decimal.Decimal {
	d := stored.GrandTotal.Sub(recomputed.GrandTotal).Abs()
	if v := stored.VATTotal.Sub(recomputed.VATTotal).Abs(); v.GreaterThan(d) {
		d = v
	}
	return d
}
