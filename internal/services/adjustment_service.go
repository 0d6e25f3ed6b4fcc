package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
)

const (
	// historyPeriods is the number of trailing periods averaged for an adjustment.
	historyPeriods = 3

	// minHistoryTransactions is the minimum qualifying transactions across
	// the history window.
	minHistoryTransactions = 10

	// approvalThresholdPct: proposals changing the amount by more than this
	// magnitude are returned for approval instead of applied.
	approvalThresholdPct = 10.0

	// roundingUnit: proposals are rounded to the nearest 100 currency units.
	// A presentation choice for round numbers, not a reconciliation rule.
	roundingUnit = 100
)

// reasonMultipliers maps a stated adjustment reason to the factor applied to
// average historical spending. Reasons outside the map use 1.00.
var reasonMultipliers = map[string]float64{
	"seasonal_change":  1.05,
	"income_change":    1.10,
	"lifestyle_change": 1.15,
}

// knownAdjustmentReasons is the accepted input vocabulary. "other" is valid
// and carries no multiplier.
var knownAdjustmentReasons = map[string]bool{
	"seasonal_change":  true,
	"income_change":    true,
	"lifestyle_change": true,
	"other":            true,
}

// IsKnownAdjustmentReason reports whether the reason is accepted input.
func IsKnownAdjustmentReason(reason string) bool {
	return knownAdjustmentReasons[reason]
}

// periodLength returns the history-window length for a budget period type.
func periodLength(period models.BudgetPeriod) time.Duration {
	switch period {
	case models.BudgetPeriodWeekly:
		return 7 * 24 * time.Hour
	case models.BudgetPeriodYearly:
		return 365 * 24 * time.Hour
	default:
		// monthly and custom
		return 30 * 24 * time.Hour
	}
}

// adjustmentService implements the bounded, history-justified auto-adjustment
// engine. All gates and the commit run inside one database transaction so
// two concurrent requests for the same budget cannot both apply.
type adjustmentService struct {
	db *gorm.DB
}

// NewAdjustmentService creates a new AdjustmentServicer.
func NewAdjustmentService(db *gorm.DB) AdjustmentServicer {
	return &adjustmentService{db: db}
}

// AdjustBudget evaluates the gate chain for a budget and, when every gate
// passes, commits the new amount and appends the audit record. Gates fail
// with specific user-facing conditions; a proposal over the approval
// threshold is a successful decision with Applied=false. Deterministic for
// identical history and reason.
func (s *adjustmentService) AdjustBudget(userID, budgetID uint, reason string, force bool) (*AdjustmentDecision, error) {
	if reason == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Adjustment reason is required")
	}
	if !IsKnownAdjustmentReason(reason) {
		return nil, apperrors.ErrInvalidAdjustmentReason
	}

	now := time.Now()
	var decision *AdjustmentDecision

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		if err := tx.Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrBudgetNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Gate 1: eligibility.
		if !budget.AutoAdjust && !force {
			return apperrors.ErrAutoAdjustDisabled
		}

		// Gate 2: minimum history. Needs three full periods of data and at
		// least ten transactions inside that window.
		period := periodLength(budget.Period)
		windowStart := now.Add(-historyPeriods * period)

		var txCount int64
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND category_id = ? AND type = ? AND date BETWEEN ? AND ?",
				userID, budget.CategoryID, models.TransactionTypeExpense, windowStart, now).
			Count(&txCount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if txCount < minHistoryTransactions {
			return apperrors.WithMessage(apperrors.ErrInsufficientHistory,
				fmt.Sprintf("Need at least %d transactions over the last %d periods, found %d",
					minHistoryTransactions, historyPeriods, txCount))
		}

		var earliest models.Transaction
		err := tx.Where("user_id = ? AND category_id = ? AND type = ?",
			userID, budget.CategoryID, models.TransactionTypeExpense).
			Order("date ASC").First(&earliest).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err != nil || earliest.Date.After(windowStart) {
			return apperrors.WithMessage(apperrors.ErrInsufficientHistory,
				fmt.Sprintf("Need %d full periods of spending history for this category", historyPeriods))
		}

		// Gate 3: average of three trailing non-overlapping windows.
		var total int64
		for i := 0; i < historyPeriods; i++ {
			end := now.Add(-time.Duration(i) * period)
			start := end.Add(-period)

			var sum int64
			if err := tx.Model(&models.Transaction{}).
				Select("COALESCE(SUM(amount), 0)").
				Where("user_id = ? AND category_id = ? AND type = ? AND date > ? AND date <= ?",
					userID, budget.CategoryID, models.TransactionTypeExpense, start, end).
				Scan(&sum).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			total += sum
		}
		averageSpending := total / historyPeriods

		// Gates 4-5: reason multiplier, then clamp to the budget's bound
		// around the current amount and round to the nearest 100.
		multiplier := 1.0
		if m, ok := reasonMultipliers[reason]; ok {
			multiplier = m
		}
		raw := int64(math.Round(float64(averageSpending) * multiplier))

		bound := budget.Amount * int64(budget.AdjustmentPercentage) / 100
		proposed := raw
		if proposed > budget.Amount+bound {
			proposed = budget.Amount + bound
		}
		if proposed < budget.Amount-bound {
			proposed = budget.Amount - bound
		}
		proposed = (proposed + roundingUnit/2) / roundingUnit * roundingUnit
		if proposed < models.MinBudgetAmount {
			proposed = models.MinBudgetAmount
		}

		changePct := float64(proposed-budget.Amount) / float64(budget.Amount) * 100

		decision = &AdjustmentDecision{
			BudgetID:        budget.ID,
			CurrentAmount:   budget.Amount,
			ProposedAmount:  proposed,
			AverageSpending: averageSpending,
			ChangePercent:   changePct,
			Reason:          reason,
		}

		// Gate 6: approval. Over-threshold proposals are returned without
		// applying; the caller re-submits with force to commit.
		if math.Abs(changePct) > approvalThresholdPct && !force {
			decision.RequiresApproval = true
			return nil
		}

		// Gate 7: once per period.
		periodStart, _, ok := PeriodWindow(&budget, now)
		if !ok {
			periodStart = now.Add(-period)
		}
		var adjusted int64
		if err := tx.Model(&models.BudgetHistory{}).
			Where("budget_id = ? AND change_type = ? AND created_at >= ?",
				budget.ID, models.ChangeTypeAutoAdjusted, periodStart).
			Count(&adjusted).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if adjusted > 0 {
			return apperrors.ErrAlreadyAdjusted
		}

		// Gate 8: commit.
		if err := tx.Model(&budget).Update("amount", proposed).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		history := &models.BudgetHistory{
			BudgetID:   budget.ID,
			ChangeType: models.ChangeTypeAutoAdjusted,
			OldAmount:  decision.CurrentAmount,
			NewAmount:  proposed,
			ChangedBy:  models.ActorAI,
			Reason: fmt.Sprintf("Auto-adjusted from average spending of %d over the last %d periods (reason: %s)",
				averageSpending, historyPeriods, reason),
		}
		if err := tx.Create(history).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		decision.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return decision, nil
}
