package dto_test

import (
	"errors"
	"testing"

	"github.com/jhoicas/joyeria-erp/internal/application/dto"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItem() dto.LineItemRequest {
	return dto.LineItemRequest{
		CategoryID:  "cat-1",
		Quantity:    1,
		GrossWeight: decimal.NewFromInt(10),
		StoneWeight: decimal.NewFromInt(1),
		MetalRate:   decimal.NewFromInt(50),
	}
}

func TestValidate_PricingValido(t *testing.T) {
	req := &dto.PricingRequest{Items: []dto.LineItemRequest{validItem()}, TaxType: "igst"}
	assert.NoError(t, dto.Validate(req))
}

func TestValidate_SinItems(t *testing.T) {
	err := dto.Validate(&dto.PricingRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "items", ve.Field)
}

func TestValidate_CantidadYDecimalesNegativos(t *testing.T) {
	it := validItem()
	it.Quantity = 0
	it.MetalRate = decimal.NewFromInt(-1)
	it.VATPercent = decimal.NewNullDecimal(decimal.NewFromInt(150))

	err := dto.Validate(&dto.PricingRequest{Items: []dto.LineItemRequest{it}})

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "items[0].quantity")
	assert.Contains(t, ve.Fields, "items[0].metal_rate")
	assert.Contains(t, ve.Fields, "items[0].vat_percent")
}

func TestValidate_NetoNuloNoSeValida(t *testing.T) {
	it := validItem()
	it.NetGoldWeight = decimal.NullDecimal{}
	assert.NoError(t, dto.Validate(&dto.PricingRequest{Items: []dto.LineItemRequest{it}}))
}

func TestValidate_PiedraMayorQueBruto(t *testing.T) {
	it := validItem()
	it.StoneWeight = decimal.NewFromInt(11)

	err := dto.Validate(&dto.PricingRequest{Items: []dto.LineItemRequest{it}})

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "items[0].stone_weight", ve.Field)
}

func TestValidate_TipoDeImpuestoDesconocido(t *testing.T) {
	err := dto.Validate(&dto.PricingRequest{Items: []dto.LineItemRequest{validItem()}, TaxType: "vat"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidate_DocumentoRequiereTercero(t *testing.T) {
	req := &dto.DocumentRequest{PricingRequest: dto.PricingRequest{Items: []dto.LineItemRequest{validItem()}}}

	err := dto.Validate(req)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "party_id", ve.Field)
}

func TestValidate_PagoDebeSerPositivo(t *testing.T) {
	err := dto.Validate(&dto.PaymentRequest{AccountID: "acc", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.NoError(t, dto.Validate(&dto.PaymentRequest{AccountID: "acc", Amount: decimal.NewFromFloat(0.5), Mode: "cash"}))
}
