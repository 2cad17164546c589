package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Los errores usan el nombre JSON del campo, que es lo que ve el cliente.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	return v
}

// decimalValue expone los decimales al validador como float64 para usar gte/lte/gt.
func decimalValue(field reflect.Value) interface{} {
	switch v := field.Interface().(type) {
	case decimal.Decimal:
		f, _ := v.Float64()
		return f
	case decimal.NullDecimal:
		if !v.Valid {
			return nil
		}
		f, _ := v.Decimal.Float64()
		return f
	}
	return nil
}

// Validate valida la estructura en la frontera HTTP/CLI. El primer error se devuelve como
// *domain.ValidationError; Fields reúne todos para la respuesta.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return extraChecks(s)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validar: %w", domain.ErrInvalidInput)
	}
	first := verrs[0]
	ve := domain.NewValidationError(fieldPath(first), reason(first))
	for _, fe := range verrs {
		ve.AddField(fieldPath(fe), reason(fe))
	}
	return ve
}

// extraChecks reglas que cruzan campos.
func extraChecks(s interface{}) error {
	var items []LineItemRequest
	switch v := s.(type) {
	case *PricingRequest:
		items = v.Items
	case *DocumentRequest:
		items = v.Items
	default:
		return nil
	}
	for i, it := range items {
		if !it.NetGoldWeight.Valid && it.StoneWeight.GreaterThan(it.GrossWeight) {
			return domain.NewValidationError(fmt.Sprintf("items[%d].stone_weight", i), "no puede superar gross_weight")
		}
	}
	return nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	// los campos de PricingRequest se exponen al mismo nivel que los del documento
	return strings.TrimPrefix(ns, "PricingRequest.")
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "min":
		return "debe tener al menos " + fe.Param() + " elemento(s)"
	case "max":
		return "supera el máximo de " + fe.Param()
	case "gte":
		return "debe ser >= " + fe.Param()
	case "gt":
		return "debe ser > " + fe.Param()
	case "lte":
		return "debe ser <= " + fe.Param()
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "datetime":
		return "formato esperado " + fe.Param()
	}
	return "inválido (" + fe.Tag() + ")"
}
