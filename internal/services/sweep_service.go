package services

import (
	"context"
	"time"

	"budgetwatch/internal/logger"
	"budgetwatch/internal/models"
)

// predictionLowerBound / predictionUpperBound delimit the percentage gap in
// which the predictor runs: above half spent but below the first alert tier.
const (
	predictionLowerBound = 50.0
	predictionUpperBound = 70.0
)

// sweepService drives one monitoring cycle: per active budget it aggregates
// spend, classifies it, optionally forecasts, deduplicates, records the
// alert, and queues the notification. Failures are isolated per budget.
type sweepService struct {
	budgets   BudgetServicer
	ledger    LedgerServicer
	alerts    AlertServicer
	predictor PredictionServicer
	notifier  *Notifier
}

// NewSweepService creates a new SweepServicer.
func NewSweepService(
	budgets BudgetServicer,
	ledger LedgerServicer,
	alerts AlertServicer,
	predictor PredictionServicer,
	notifier *Notifier,
) SweepServicer {
	return &sweepService{
		budgets:   budgets,
		ledger:    ledger,
		alerts:    alerts,
		predictor: predictor,
		notifier:  notifier,
	}
}

// SweepAll checks every active budget across all users. Requires the
// explicit system scope; only the scheduler and pipeline trigger hold one.
func (s *sweepService) SweepAll(ctx context.Context, scope SystemScope) (*SweepSummary, error) {
	budgets, err := s.budgets.ListActiveBudgets(scope)
	if err != nil {
		return nil, err
	}
	return s.sweep(ctx, budgets), nil
}

// SweepUser checks the active budgets of a single user (the manual
// "check now" trigger).
func (s *sweepService) SweepUser(ctx context.Context, userID uint) (*SweepSummary, error) {
	budgets, err := s.budgets.ListActiveBudgetsForUser(userID)
	if err != nil {
		return nil, err
	}
	return s.sweep(ctx, budgets), nil
}

// sweep runs one cycle over the given budgets. It is idempotent at day
// granularity: re-running within a day produces at most the same single
// alert per budget. When the context deadline passes, the in-flight budget
// finishes and the rest are deferred to the next cycle.
func (s *sweepService) sweep(ctx context.Context, budgets []models.Budget) *SweepSummary {
	now := time.Now()
	summary := &SweepSummary{}
	log := logger.Get()

	for i := range budgets {
		select {
		case <-ctx.Done():
			summary.Deferred = len(budgets) - i
			log.Warnw("sweep deadline reached, deferring remaining budgets",
				"deferred", summary.Deferred, "checked", summary.BudgetsChecked)
			return summary
		default:
		}

		budget := &budgets[i]
		summary.BudgetsChecked++

		created, err := s.checkBudget(budget, now)
		if err != nil {
			// One poisoned budget must not stop the sweep.
			summary.Failed++
			log.Errorw("budget check failed",
				"budget_id", budget.ID, "user_id", budget.UserID, "error", err)
			continue
		}
		if created {
			summary.AlertsCreated++
		} else {
			summary.Skipped++
		}
	}

	log.Infow("sweep completed",
		"checked", summary.BudgetsChecked,
		"alerts", summary.AlertsCreated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary
}

// checkBudget evaluates a single budget and returns whether an alert was
// created.
func (s *sweepService) checkBudget(budget *models.Budget, now time.Time) (bool, error) {
	spent, err := s.ledger.SpendForBudget(budget, now)
	if err != nil {
		return false, err
	}

	cls := Classify(spent, budget.Amount)

	var alert *models.BudgetAlert
	switch {
	case cls.ShouldAlert():
		alert = &models.BudgetAlert{
			BudgetID:            budget.ID,
			UserID:              budget.UserID,
			AlertType:           cls.AlertType,
			ThresholdPercentage: cls.Threshold,
			SpentAmount:         spent,
			BudgetAmount:        budget.Amount,
			TriggeredAt:         now,
			AlertDate:           AlertDay(now),
		}

	case cls.Percentage > predictionLowerBound && cls.Percentage < predictionUpperBound:
		alert, err = s.predictAlert(budget, spent, now)
		if err != nil {
			return false, err
		}
	}

	if alert == nil {
		return false, nil
	}

	// Dedup fast path; the unique (budget_id, alert_date) index is the
	// authoritative guard under concurrent sweeps.
	exists, err := s.alerts.HasAlertToday(budget.ID, now)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	created, err := s.alerts.RecordAlert(alert)
	if err != nil || !created {
		return false, err
	}

	s.notifier.Enqueue(alert, budget.Name)
	return true, nil
}

// predictAlert runs the overspend predictor in the pre-threshold gap and
// returns an alert only when the forecast clears the confidence floor.
// A low-confidence forecast is a non-event: nothing is persisted.
func (s *sweepService) predictAlert(budget *models.Budget, spent int64, now time.Time) (*models.BudgetAlert, error) {
	daysRemaining := DaysRemaining(budget, now)
	if daysRemaining <= 0 {
		return nil, nil
	}

	pred, err := s.predictor.Predict(budget, spent, now, daysRemaining)
	if err != nil {
		return nil, err
	}
	if !pred.LikelyToExceed || pred.ConfidenceLevel <= PredictionConfidenceFloor {
		return nil, nil
	}

	return &models.BudgetAlert{
		BudgetID:                 budget.ID,
		UserID:                   budget.UserID,
		AlertType:                models.AlertTypePredictedOverspend,
		ThresholdPercentage:      100,
		SpentAmount:              spent,
		BudgetAmount:             budget.Amount,
		IsPredicted:              true,
		PredictedOverspendAmount: pred.PredictedAmount - budget.Amount,
		PredictedExceedDate:      pred.ExceedDate,
		Recommendation:           pred.Recommendation,
		TriggeredAt:              now,
		AlertDate:                AlertDay(now),
	}, nil
}
