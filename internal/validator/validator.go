// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"budgetwatch/internal/models"
	"budgetwatch/internal/services"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
		_ = v.RegisterValidation("adjustment_reason", validateAdjustmentReason)
	}
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch models.CategoryType(fl.Field().String()) {
	case models.CategoryTypeIncome, models.CategoryTypeExpense:
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch models.BudgetPeriod(fl.Field().String()) {
	case models.BudgetPeriodWeekly, models.BudgetPeriodMonthly,
		models.BudgetPeriodYearly, models.BudgetPeriodCustom:
		return true
	}
	return false
}

func validateAdjustmentReason(fl validator.FieldLevel) bool {
	return services.IsKnownAdjustmentReason(fl.Field().String())
}
