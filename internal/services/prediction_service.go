package services

import (
	"fmt"
	"math"
	"time"

	"budgetwatch/internal/models"
)

const (
	// velocityWindowDays is the trailing window the predictor extrapolates from.
	velocityWindowDays = 7

	// PredictionConfidenceFloor is the minimum confidence required before a
	// predicted_overspend alert is raised. Below it the forecast is
	// discarded, not persisted as a downgraded alert.
	PredictionConfidenceFloor = 0.7
)

// predictionService extrapolates recent spending velocity to forecast
// overspend before period end. It runs only in the gap where no hard
// threshold has been crossed, so a threshold alert is never masked by a
// lower-confidence forecast.
type predictionService struct {
	ledger LedgerServicer
}

// NewPredictionService creates a new PredictionServicer.
func NewPredictionService(ledger LedgerServicer) PredictionServicer {
	return &predictionService{ledger: ledger}
}

// Predict forecasts whether the budget will exceed its amount before the
// period ends. Deterministic: identical transaction history produces an
// identical forecast.
func (s *predictionService) Predict(budget *models.Budget, spent int64, now time.Time, daysRemaining int) (*Prediction, error) {
	if daysRemaining <= 0 {
		return &Prediction{}, nil
	}

	windowStart := now.Add(-velocityWindowDays * 24 * time.Hour)
	recent, err := s.ledger.ListTransactions(budget.UserID, budget.CategoryID, windowStart, now)
	if err != nil {
		return nil, err
	}

	var recentTotal int64
	for _, tx := range recent {
		recentTotal += tx.Amount
	}
	dailyVelocity := float64(recentTotal) / velocityWindowDays
	if dailyVelocity <= 0 {
		return &Prediction{}, nil
	}

	predicted := spent + int64(math.Round(dailyVelocity*float64(daysRemaining)))
	likely := predicted > budget.Amount

	pred := &Prediction{
		LikelyToExceed:  likely,
		PredictedAmount: predicted,
		ConfidenceLevel: confidence(len(recent), predicted, budget.Amount, likely),
	}
	if !likely {
		return pred, nil
	}

	days := int(math.Ceil(float64(budget.Amount-spent) / dailyVelocity))
	if days < 1 {
		days = 1
	}
	pred.DaysUntilExceed = &days
	exceedDate := now.Add(time.Duration(days) * 24 * time.Hour)
	pred.ExceedDate = &exceedDate
	pred.Recommendation = fmt.Sprintf(
		"At the current pace of %.0f per day, spending is projected to reach %d against a budget of %d. Reduce daily spending to about %.0f to stay within the budget.",
		dailyVelocity, predicted, budget.Amount,
		float64(budget.Amount-spent)/float64(daysRemaining),
	)
	return pred, nil
}

// confidence scores a forecast in [0,1] from sample size and overshoot
// margin. A full score needs a dense trailing window (10+ transactions)
// and a projected overshoot of at least half the budget amount.
func confidence(sampleCount int, predicted, amount int64, likely bool) float64 {
	sample := math.Min(float64(sampleCount)/10.0, 1.0)

	margin := 0.0
	if likely && amount > 0 {
		overshoot := float64(predicted-amount) / float64(amount)
		margin = math.Min(overshoot/0.5, 1.0)
	}

	return 0.4*sample + 0.6*margin
}
