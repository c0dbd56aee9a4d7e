package ledger

import (
	"github.com/go-playground/validator/v10"

	"github.com/roadmasterhq/roadmaster/core"
)

var (
	paymentMethodTag  = "paymentmethod"
	paymentMethodText = "invalid payment method"

	expenseCategoryTag  = "expensecategory"
	expenseCategoryText = "invalid expense category"
)

func init() {
	_ = core.Validate.RegisterValidation(paymentMethodTag, paymentMethodValidation)
	core.RegisterCustomTranslation(paymentMethodTag, paymentMethodText)

	_ = core.Validate.RegisterValidation(expenseCategoryTag, expenseCategoryValidation)
	core.RegisterCustomTranslation(expenseCategoryTag, expenseCategoryText)
}

// paymentMethodValidation checks that the provided method is a known Method.
func paymentMethodValidation(fl validator.FieldLevel) bool {
	m := Method(fl.Field().String())
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// expenseCategoryValidation checks that the provided category is a known ExpenseCategory.
func expenseCategoryValidation(fl validator.FieldLevel) bool {
	c := ExpenseCategory(fl.Field().String())
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}
