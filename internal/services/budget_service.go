package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db     *gorm.DB
	ledger LedgerServicer
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, ledger LedgerServicer) BudgetServicer {
	return &budgetService{db: db, ledger: ledger}
}

// CreateBudget creates a new budget for a category, enforcing the minimum
// amount, the per-user active budget cap, and uniqueness of active budgets
// per (category, period, start date).
func (s *budgetService) CreateBudget(
	userID, categoryID uint,
	name string,
	amount int64,
	period models.BudgetPeriod,
	startDate time.Time,
	endDate *time.Time,
	autoAdjust bool,
	adjustmentPercentage int,
	origin models.BudgetOrigin,
) (*models.Budget, error) {
	if amount < models.MinBudgetAmount {
		return nil, apperrors.ErrBudgetAmountTooSmall
	}
	if endDate != nil && endDate.Before(startDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "End date must not be before start date")
	}
	if adjustmentPercentage <= 0 {
		adjustmentPercentage = models.DefaultAdjustmentPercentage
	}
	if origin == "" {
		origin = models.BudgetOriginUser
	}

	// Verify category exists and belongs to user
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var activeCount int64
	if err := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&activeCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if activeCount >= models.MaxActiveBudgets {
		return nil, apperrors.ErrBudgetLimitReached
	}

	var duplicateCount int64
	if err := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND period = ? AND start_date = ? AND is_active = ?",
			userID, categoryID, period, startDate, true).
		Count(&duplicateCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if duplicateCount > 0 {
		return nil, apperrors.ErrDuplicateBudget
	}

	budget := &models.Budget{
		UserID:               userID,
		CategoryID:           categoryID,
		Name:                 name,
		Amount:               amount,
		Period:               period,
		StartDate:            startDate,
		EndDate:              endDate,
		IsActive:             true,
		AutoAdjust:           autoAdjust,
		AdjustmentPercentage: adjustmentPercentage,
		Origin:               origin,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets for the user with optional filters.
func (s *budgetService) GetUserBudgets(
	userID uint,
	page pagination.PageRequest,
	isActive *bool,
	period *models.BudgetPeriod,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if period != nil {
		base = base.Where("period = ?", *period)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields. An amount change appends
// a manual BudgetHistory record in the same transaction.
func (s *budgetService) UpdateBudget(userID, budgetID uint, update BudgetUpdate) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	if update.Amount != nil && *update.Amount < models.MinBudgetAmount {
		return nil, apperrors.ErrBudgetAmountTooSmall
	}

	updates := make(map[string]interface{})
	if update.Name != "" {
		updates["name"] = update.Name
	}
	if update.EndDate != nil {
		updates["end_date"] = update.EndDate
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if update.AutoAdjust != nil {
		updates["auto_adjust"] = *update.AutoAdjust
	}
	if update.AdjustmentPercentage != nil && *update.AdjustmentPercentage > 0 {
		updates["adjustment_percentage"] = *update.AdjustmentPercentage
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if update.Amount != nil && *update.Amount != budget.Amount {
			reason := update.Reason
			if reason == "" {
				reason = "Manual budget update"
			}
			history := &models.BudgetHistory{
				BudgetID:   budget.ID,
				ChangeType: models.ChangeTypeManual,
				OldAmount:  budget.Amount,
				NewAmount:  *update.Amount,
				ChangedBy:  models.ActorUser,
				Reason:     reason,
			}
			if err := tx.Create(history).Error; err != nil {
				return err
			}
			updates["amount"] = *update.Amount
		}

		if len(updates) > 0 {
			if err := tx.Model(budget).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// DeleteBudget soft-deletes a budget. Alerts and history remain referenced
// until an explicit hard delete cascades them.
func (s *budgetService) DeleteBudget(userID, budgetID uint) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress calculates spending vs budget for the current period
// using the shared aggregator and classifier.
func (s *budgetService) GetBudgetProgress(userID, budgetID uint) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	spent, err := s.ledger.SpendForBudget(budget, time.Now())
	if err != nil {
		return nil, err
	}

	cls := Classify(spent, budget.Amount)
	return &BudgetProgress{
		BudgetID:   budget.ID,
		Budgeted:   budget.Amount,
		Spent:      spent,
		Remaining:  budget.Amount - spent,
		Percentage: cls.Percentage,
		Status:     cls.Status,
		Threshold:  cls.Threshold,
	}, nil
}

// GetBudgetHistory returns the budget's amount-change audit trail, newest first.
func (s *budgetService) GetBudgetHistory(userID, budgetID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error) {
	if _, err := s.GetBudgetByID(userID, budgetID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.BudgetHistory{}).Where("budget_id = ?", budgetID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var history []models.BudgetHistory
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&history).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(history, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ListActiveBudgetsForUser returns the user's active budgets whose window
// has not ended.
func (s *budgetService) ListActiveBudgetsForUser(userID uint) ([]models.Budget, error) {
	return s.listActive(s.db.Where("user_id = ?", userID))
}

// ListActiveBudgets returns every user's active budgets. The SystemScope
// argument marks this as the sweep's cross-user access path.
func (s *budgetService) ListActiveBudgets(_ SystemScope) ([]models.Budget, error) {
	return s.listActive(s.db)
}

func (s *budgetService) listActive(base *gorm.DB) ([]models.Budget, error) {
	var budgets []models.Budget
	err := base.Preload("Category").
		Where("is_active = ? AND (end_date IS NULL OR end_date >= ?)", true, time.Now()).
		Order("user_id, id").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer,
			fmt.Errorf("listing active budgets: %w", err))
	}
	return budgets, nil
}
