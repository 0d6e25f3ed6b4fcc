package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
)

// customPeriodFallback is the window length assumed for custom-period
// budgets without an end date.
const customPeriodFallback = 30 * 24 * time.Hour

// ledgerService handles transaction reads and writes. It is the single
// aggregation implementation shared by progress, check-now, and the sweep
// so tier boundaries are consistent across every entry point.
type ledgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB) LedgerServicer {
	return &ledgerService{db: db}
}

// CreateTransaction records an income or expense transaction.
func (s *ledgerService) CreateTransaction(
	userID uint,
	categoryID *uint,
	transactionType models.TransactionType,
	amount int64,
	description string,
	date time.Time,
) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}

	if categoryID != nil {
		var category models.Category
		if err := s.db.Where("id = ? AND user_id = ?", *categoryID, userID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	tx := &models.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Type:        transactionType,
		Amount:      amount,
		Description: description,
		Date:        date,
	}
	if err := s.db.Create(tx).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, nil
}

// GetUserTransactions returns a paginated, filtered list of the user's transactions.
func (s *ledgerService) GetUserTransactions(
	userID uint,
	page pagination.PageRequest,
	filter TransactionFilter,
) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").Order("date DESC").
		Scopes(pagination.Paginate(page)).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID returns a transaction by ID if it belongs to the user.
func (s *ledgerService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", transactionID, userID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tx, nil
}

// DeleteTransaction soft-deletes a transaction.
func (s *ledgerService) DeleteTransaction(userID, transactionID uint) error {
	tx, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(tx).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SumExpenses returns the total expense amount for the category and window.
func (s *ledgerService) SumExpenses(userID, categoryID uint, from, to time.Time) (int64, error) {
	var spent int64
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND category_id = ? AND type = ? AND date BETWEEN ? AND ?",
			userID, categoryID, models.TransactionTypeExpense, from, to).
		Scan(&spent).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return spent, nil
}

// ListTransactions returns expense transactions for the category and window,
// newest first.
func (s *ledgerService) ListTransactions(userID, categoryID uint, from, to time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND category_id = ? AND type = ? AND date BETWEEN ? AND ?",
			userID, categoryID, models.TransactionTypeExpense, from, to).
		Order("date DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// SpendForBudget computes current spend for the budget's active period
// window. An invalid window returns zero spend, not an error.
func (s *ledgerService) SpendForBudget(budget *models.Budget, now time.Time) (int64, error) {
	start, end, ok := PeriodWindow(budget, now)
	if !ok {
		return 0, nil
	}
	return s.SumExpenses(budget.UserID, budget.CategoryID, start, end)
}

// PeriodWindow returns the bounds of the period containing now for the
// budget, derived from its start date and period type. ok is false when the
// budget's dates are malformed (zero start, end before start).
func PeriodWindow(budget *models.Budget, now time.Time) (start, end time.Time, ok bool) {
	s := budget.StartDate
	if s.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	if budget.EndDate != nil && budget.EndDate.Before(s) {
		return time.Time{}, time.Time{}, false
	}

	switch budget.Period {
	case models.BudgetPeriodWeekly:
		start = s
		if now.After(s) {
			weeks := int(now.Sub(s) / (7 * 24 * time.Hour))
			start = s.Add(time.Duration(weeks) * 7 * 24 * time.Hour)
		}
		end = start.Add(7 * 24 * time.Hour)

	case models.BudgetPeriodMonthly:
		months := 0
		if now.After(s) {
			months = (now.Year()-s.Year())*12 + int(now.Month()) - int(s.Month())
			if s.AddDate(0, months, 0).After(now) {
				months--
			}
			if months < 0 {
				months = 0
			}
		}
		start = s.AddDate(0, months, 0)
		end = start.AddDate(0, 1, 0)

	case models.BudgetPeriodYearly:
		years := 0
		if now.After(s) {
			years = now.Year() - s.Year()
			if s.AddDate(years, 0, 0).After(now) {
				years--
			}
			if years < 0 {
				years = 0
			}
		}
		start = s.AddDate(years, 0, 0)
		end = start.AddDate(1, 0, 0)

	case models.BudgetPeriodCustom:
		start = s
		if budget.EndDate != nil {
			end = *budget.EndDate
		} else {
			end = s.Add(customPeriodFallback)
		}

	default:
		return time.Time{}, time.Time{}, false
	}

	// A fixed end date caps the window regardless of period type.
	if budget.EndDate != nil && budget.EndDate.Before(end) {
		end = *budget.EndDate
	}
	return start, end, true
}

// DaysRemaining returns the number of whole or partial days between now and
// the period end, rounded up. Zero when the period has ended.
func DaysRemaining(budget *models.Budget, now time.Time) int {
	_, end, ok := PeriodWindow(budget, now)
	if !ok || !end.After(now) {
		return 0
	}
	days := int((end.Sub(now) + 24*time.Hour - 1) / (24 * time.Hour))
	return days
}
