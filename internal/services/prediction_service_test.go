package services

import (
	"testing"
	"time"

	"budgetwatch/internal/models"
	"budgetwatch/internal/testutil"
)

func TestPredict(t *testing.T) {
	t.Run("dense_history_predicts_overspend", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewPredictionService(ledger)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

		// Ten transactions of 60 over the trailing week: velocity 600/7 per
		// day. With 600 already spent and 10 days left the projection lands
		// well past the budget.
		now := time.Now()
		for i := 0; i < 10; i++ {
			testutil.CreateTestTransaction(t, db, user.ID, cat.ID, 60, now.Add(-time.Duration(i*12)*time.Hour))
		}

		pred, err := svc.Predict(budget, 600, now, 10)
		testutil.AssertNoError(t, err)

		if !pred.LikelyToExceed {
			t.Fatal("expected overspend to be predicted")
		}
		if pred.PredictedAmount <= budget.Amount {
			t.Errorf("expected predicted amount above %d, got %d", budget.Amount, pred.PredictedAmount)
		}
		if pred.ConfidenceLevel <= PredictionConfidenceFloor {
			t.Errorf("expected confidence above %.2f, got %.2f", PredictionConfidenceFloor, pred.ConfidenceLevel)
		}
		if pred.DaysUntilExceed == nil || *pred.DaysUntilExceed < 1 {
			t.Error("expected days-until-exceed to be set and at least 1")
		}
		if pred.ExceedDate == nil {
			t.Error("expected exceed date to be set")
		}
		if pred.Recommendation == "" {
			t.Error("expected a recommendation")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewPredictionService(ledger)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

		now := time.Now()
		for i := 0; i < 12; i++ {
			testutil.CreateTestTransaction(t, db, user.ID, cat.ID, 70, now.Add(-time.Duration(i*10)*time.Hour))
		}

		first, err := svc.Predict(budget, 650, now, 8)
		testutil.AssertNoError(t, err)
		second, err := svc.Predict(budget, 650, now, 8)
		testutil.AssertNoError(t, err)

		if first.PredictedAmount != second.PredictedAmount ||
			first.ConfidenceLevel != second.ConfidenceLevel ||
			first.LikelyToExceed != second.LikelyToExceed {
			t.Errorf("expected identical forecasts, got %+v and %+v", first, second)
		}
	})

	t.Run("no_recent_spending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewPredictionService(ledger)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

		pred, err := svc.Predict(budget, 600, time.Now(), 10)
		testutil.AssertNoError(t, err)
		if pred.LikelyToExceed {
			t.Error("expected no prediction without recent spending")
		}
	})

	t.Run("slow_pace_not_likely", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewPredictionService(ledger)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

		// 70 over the trailing week is 10 per day; 5 days left cannot close
		// the 400-unit gap.
		now := time.Now()
		testutil.CreateTestTransaction(t, db, user.ID, cat.ID, 70, now.Add(-24*time.Hour))

		pred, err := svc.Predict(budget, 600, now, 5)
		testutil.AssertNoError(t, err)
		if pred.LikelyToExceed {
			t.Errorf("expected pace too slow to exceed, got %+v", pred)
		}
	})

	t.Run("ended_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewPredictionService(ledger)
		budget := &models.Budget{Amount: 1000}

		pred, err := svc.Predict(budget, 900, time.Now(), 0)
		testutil.AssertNoError(t, err)
		if pred.LikelyToExceed || pred.ConfidenceLevel != 0 {
			t.Errorf("expected empty forecast for ended period, got %+v", pred)
		}
	})

	t.Run("sparse_history_low_confidence", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewPredictionService(ledger)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

		// A single large transaction projects past the budget but the sample
		// is too thin for the confidence floor.
		now := time.Now()
		testutil.CreateTestTransaction(t, db, user.ID, cat.ID, 350, now.Add(-24*time.Hour))

		pred, err := svc.Predict(budget, 600, now, 10)
		testutil.AssertNoError(t, err)
		if !pred.LikelyToExceed {
			t.Fatal("expected projection past the budget")
		}
		if pred.ConfidenceLevel > PredictionConfidenceFloor {
			t.Errorf("expected confidence at or below the floor for a single sample, got %.2f", pred.ConfidenceLevel)
		}
	})
}

func TestConfidence(t *testing.T) {
	t.Run("full_sample_and_margin", func(t *testing.T) {
		// 10+ samples and overshoot of half the budget saturate both terms.
		if got := confidence(10, 1500, 1000, true); got != 1.0 {
			t.Errorf("expected confidence 1.0, got %.2f", got)
		}
	})

	t.Run("not_likely_scores_sample_only", func(t *testing.T) {
		if got := confidence(10, 900, 1000, false); got != 0.4 {
			t.Errorf("expected confidence 0.4, got %.2f", got)
		}
	})

	t.Run("empty_sample", func(t *testing.T) {
		if got := confidence(0, 0, 1000, false); got != 0 {
			t.Errorf("expected zero confidence, got %.2f", got)
		}
	})
}
