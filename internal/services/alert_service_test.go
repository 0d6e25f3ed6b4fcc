package services

import (
	"testing"
	"time"

	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
	"budgetwatch/internal/testutil"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		spent     int64
		amount    int64
		status    BudgetStatus
		threshold int
		alertType models.AlertType
	}{
		{"zero_spend", 0, 1000, StatusOnTrack, 0, ""},
		{"below_all_tiers", 500, 1000, StatusOnTrack, 0, ""},
		{"just_under_warning", 699, 1000, StatusOnTrack, 0, ""},
		{"warning_boundary", 700, 1000, StatusWarning, 70, models.AlertTypeApproaching},
		{"mid_warning", 750, 1000, StatusWarning, 70, models.AlertTypeApproaching},
		{"just_under_approaching", 899, 1000, StatusWarning, 70, models.AlertTypeApproaching},
		{"approaching_boundary", 900, 1000, StatusApproaching, 90, models.AlertTypeApproaching},
		{"just_under_exceeded", 999, 1000, StatusApproaching, 90, models.AlertTypeApproaching},
		{"exact_limit", 1000, 1000, StatusExceeded, 100, models.AlertTypeExceeded},
		{"over_limit", 1050, 1000, StatusExceeded, 100, models.AlertTypeExceeded},
		{"zero_amount", 500, 0, StatusOnTrack, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := Classify(tt.spent, tt.amount)
			if cls.Status != tt.status {
				t.Errorf("expected status %s, got %s", tt.status, cls.Status)
			}
			if cls.Threshold != tt.threshold {
				t.Errorf("expected threshold %d, got %d", tt.threshold, cls.Threshold)
			}
			if cls.AlertType != tt.alertType {
				t.Errorf("expected alert type %q, got %q", tt.alertType, cls.AlertType)
			}
			if cls.ShouldAlert() != (tt.threshold > 0) {
				t.Errorf("ShouldAlert() = %v for threshold %d", cls.ShouldAlert(), tt.threshold)
			}
		})
	}

	t.Run("skips_lower_tier_when_higher_crossed", func(t *testing.T) {
		// A budget that jumps from 0% to 95% in one transaction reports
		// the 90 tier, not 70.
		cls := Classify(950, 1000)
		if cls.Threshold != 90 {
			t.Errorf("expected threshold 90, got %d", cls.Threshold)
		}
	})
}

func TestRecordAlert(t *testing.T) {
	t.Run("creates_alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

		alert := &models.BudgetAlert{
			BudgetID:            budget.ID,
			UserID:              user.ID,
			AlertType:           models.AlertTypeApproaching,
			ThresholdPercentage: 70,
			SpentAmount:         750,
			BudgetAmount:        1000,
		}
		created, err := svc.RecordAlert(alert)
		testutil.AssertNoError(t, err)

		if !created {
			t.Fatal("expected alert to be created")
		}
		if alert.PublicID == "" {
			t.Error("expected public ID to be assigned")
		}
		if alert.AlertDate == "" {
			t.Error("expected alert date to be assigned")
		}
	})

	t.Run("second_alert_same_day_not_created", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

		first := &models.BudgetAlert{
			BudgetID:            budget.ID,
			UserID:              user.ID,
			AlertType:           models.AlertTypeApproaching,
			ThresholdPercentage: 70,
			SpentAmount:         750,
			BudgetAmount:        1000,
		}
		created, err := svc.RecordAlert(first)
		testutil.AssertNoError(t, err)
		if !created {
			t.Fatal("expected first alert to be created")
		}

		// Same budget, same day, different tier: the day key wins.
		second := &models.BudgetAlert{
			BudgetID:            budget.ID,
			UserID:              user.ID,
			AlertType:           models.AlertTypeExceeded,
			ThresholdPercentage: 100,
			SpentAmount:         1100,
			BudgetAmount:        1000,
		}
		created, err = svc.RecordAlert(second)
		testutil.AssertNoError(t, err)
		if created {
			t.Error("expected second same-day alert to be deduplicated")
		}

		var count int64
		db.Model(&models.BudgetAlert{}).Where("budget_id = ?", budget.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected exactly 1 alert row, got %d", count)
		}
	})

	t.Run("different_budgets_same_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		b1 := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		b2 := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 2000)

		for _, b := range []*models.Budget{b1, b2} {
			created, err := svc.RecordAlert(&models.BudgetAlert{
				BudgetID:            b.ID,
				UserID:              user.ID,
				AlertType:           models.AlertTypeApproaching,
				ThresholdPercentage: 70,
				SpentAmount:         b.Amount * 3 / 4,
				BudgetAmount:        b.Amount,
			})
			testutil.AssertNoError(t, err)
			if !created {
				t.Errorf("expected alert for budget %d to be created", b.ID)
			}
		}
	})
}

func TestHasAlertToday(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAlertService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)

	now := time.Now()
	exists, err := svc.HasAlertToday(budget.ID, now)
	testutil.AssertNoError(t, err)
	if exists {
		t.Fatal("expected no alert before recording")
	}

	testutil.CreateTestAlert(t, db, budget, models.AlertTypeApproaching, 70)

	exists, err = svc.HasAlertToday(budget.ID, now)
	testutil.AssertNoError(t, err)
	if !exists {
		t.Error("expected alert to be found for today")
	}

	exists, err = svc.HasAlertToday(budget.ID, now.AddDate(0, 0, 1))
	testutil.AssertNoError(t, err)
	if exists {
		t.Error("expected no alert on the following day")
	}
}

func TestAcknowledgeAndDismiss(t *testing.T) {
	t.Run("acknowledge", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		alert := testutil.CreateTestAlert(t, db, budget, models.AlertTypeApproaching, 70)

		updated, err := svc.Acknowledge(user.ID, alert.ID)
		testutil.AssertNoError(t, err)
		if updated.AcknowledgedAt == nil {
			t.Error("expected acknowledged timestamp to be set")
		}
		if updated.DismissedAt != nil {
			t.Error("acknowledge must not set dismissed timestamp")
		}
	})

	t.Run("dismiss_independent_of_acknowledge", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		alert := testutil.CreateTestAlert(t, db, budget, models.AlertTypeExceeded, 100)

		_, err := svc.Dismiss(user.ID, alert.ID)
		testutil.AssertNoError(t, err)

		updated, err := svc.Acknowledge(user.ID, alert.ID)
		testutil.AssertNoError(t, err)
		if updated.AcknowledgedAt == nil || updated.DismissedAt == nil {
			t.Error("expected both timestamps set after dismiss then acknowledge")
		}
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		alert := testutil.CreateTestAlert(t, db, budget, models.AlertTypeApproaching, 70)

		_, err := svc.Acknowledge(other.ID, alert.ID)
		testutil.AssertAppError(t, err, "ALERT_NOT_FOUND")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.Dismiss(user.ID, 9999)
		testutil.AssertAppError(t, err, "ALERT_NOT_FOUND")
	})
}

func TestListAlerts(t *testing.T) {
	t.Run("unacknowledged_filter", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		b1 := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		b2 := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 2000)

		a1 := testutil.CreateTestAlert(t, db, b1, models.AlertTypeApproaching, 70)
		testutil.CreateTestAlert(t, db, b2, models.AlertTypeExceeded, 100)

		_, err := svc.Acknowledge(user.ID, a1.ID)
		testutil.AssertNoError(t, err)

		all, err := svc.ListAlerts(user.ID, pagination.PageRequest{}, false)
		testutil.AssertNoError(t, err)
		if all.TotalItems != 2 {
			t.Errorf("expected 2 total alerts, got %d", all.TotalItems)
		}

		open, err := svc.ListAlerts(user.ID, pagination.PageRequest{}, true)
		testutil.AssertNoError(t, err)
		if open.TotalItems != 1 {
			t.Errorf("expected 1 unacknowledged alert, got %d", open.TotalItems)
		}
	})

	t.Run("user_isolation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		testutil.CreateTestAlert(t, db, budget, models.AlertTypeApproaching, 70)

		result, err := svc.ListAlerts(other.ID, pagination.PageRequest{}, false)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 0 {
			t.Errorf("expected no alerts for other user, got %d", result.TotalItems)
		}
	})
}

func TestMarkNotified(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAlertService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
	alert := testutil.CreateTestAlert(t, db, budget, models.AlertTypeApproaching, 70)

	err := svc.MarkNotified(alert.ID, []string{"email", "push"}, true)
	testutil.AssertNoError(t, err)

	var reloaded models.BudgetAlert
	if err := db.First(&reloaded, alert.ID).Error; err != nil {
		t.Fatalf("failed to reload alert: %v", err)
	}
	if !reloaded.NotificationSent {
		t.Error("expected notification_sent to be true")
	}
	if reloaded.NotificationChannels != "email,push" {
		t.Errorf("expected channels email,push, got %q", reloaded.NotificationChannels)
	}
}
