package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/escrowledger/internal/models"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("amount", validateAmount)
	_ = validate.RegisterValidation("escrow_kind", validateEscrowKind)
	validate.RegisterCustomTypeFunc(decimalAsString, decimal.Decimal{})
	validate.RegisterTagNameFunc(useJSONTagNames)
}

// Validate decimals as strings, otherwise validator treats them as nested structs
func decimalAsString(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// Money amount: positive, no more than cents
func validateAmount(fl validator.FieldLevel) bool {
	amount, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}

	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

func validateEscrowKind(fl validator.FieldLevel) bool {
	return models.ValidEscrowKind(fl.Field().String())
}
