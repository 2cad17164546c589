package inventory

import "github.com/shopspring/decimal"

// AverageCostPerGram implementa el costo promedio ponderado por gramo (servicio de dominio).
// NuevoCosto = ((PesoActual * CostoActual) + (PesoEntrada * CostoEntrada)) / (PesoActual + PesoEntrada)
// Con peso resultante <= 0 se conserva el costo de la entrada (o cero si no hay entrada).
func AverageCostPerGram(pesoActual, costoActual, pesoEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	if pesoActual.IsNegative() {
		// stock negativo (política permisiva): el saldo previo no aporta costo
		pesoActual = decimal.Zero
	}
	sum := pesoActual.Add(pesoEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		if pesoEntrada.IsPositive() {
			return costoEntrada
		}
		return decimal.Zero
	}
	num := pesoActual.Mul(costoActual).Add(pesoEntrada.Mul(costoEntrada))
	return num.Div(sum).Round(3)
}

// UnitCostPerGram costo por gramo de una línea de compra: subtotal sin IVA / peso neto.
func UnitCostPerGram(subtotal, weight decimal.Decimal) decimal.Decimal {
	if weight.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return subtotal.Div(weight).Round(3)
}
