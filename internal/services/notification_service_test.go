package services

import (
	"context"
	"sync"
	"testing"

	"budgetwatch/internal/models"
	"budgetwatch/internal/testutil"
)

// recordingDispatcher captures payloads and returns scripted results.
type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []NotificationPayload
	results  []ChannelResult
}

func (d *recordingDispatcher) Send(_ context.Context, _ uint, channels []string, payload NotificationPayload) []ChannelResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, payload)
	if d.results != nil {
		return d.results
	}
	results := make([]ChannelResult, 0, len(channels))
	for _, ch := range channels {
		results = append(results, ChannelResult{Channel: ch, Success: true})
	}
	return results
}

func TestNotifier(t *testing.T) {
	t.Run("dispatch_marks_alert_notified", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		alerts := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		alert := testutil.CreateTestAlert(t, db, budget, models.AlertTypeExceeded, 100)

		dispatcher := &recordingDispatcher{}
		notifier := NewNotifier(alerts, dispatcher)
		notifier.Enqueue(alert, budget.Name)
		notifier.Close()

		if len(dispatcher.payloads) != 1 {
			t.Fatalf("expected 1 dispatched payload, got %d", len(dispatcher.payloads))
		}
		payload := dispatcher.payloads[0]
		if payload.AlertPublicID != alert.PublicID {
			t.Errorf("expected payload for alert %s, got %s", alert.PublicID, payload.AlertPublicID)
		}
		if payload.BudgetName != budget.Name {
			t.Errorf("expected budget name %q, got %q", budget.Name, payload.BudgetName)
		}

		var reloaded models.BudgetAlert
		if err := db.First(&reloaded, alert.ID).Error; err != nil {
			t.Fatalf("failed to reload alert: %v", err)
		}
		if !reloaded.NotificationSent {
			t.Error("expected notification_sent to be recorded")
		}
		if reloaded.NotificationChannels != "email,push" {
			t.Errorf("expected channels email,push, got %q", reloaded.NotificationChannels)
		}
	})

	t.Run("failed_channels_leave_alert_unsent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		alerts := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		alert := testutil.CreateTestAlert(t, db, budget, models.AlertTypeApproaching, 70)

		dispatcher := &recordingDispatcher{results: []ChannelResult{
			{Channel: "email", Success: false, Detail: "smtp unavailable"},
			{Channel: "push", Success: false, Detail: "no device token"},
		}}
		notifier := NewNotifier(alerts, dispatcher)
		notifier.Enqueue(alert, budget.Name)
		notifier.Close()

		var reloaded models.BudgetAlert
		if err := db.First(&reloaded, alert.ID).Error; err != nil {
			t.Fatalf("failed to reload alert: %v", err)
		}
		if reloaded.NotificationSent {
			t.Error("expected notification_sent to stay false when every channel fails")
		}
		// The attempted channels are still recorded for inspection.
		if reloaded.NotificationChannels != "email,push" {
			t.Errorf("expected attempted channels recorded, got %q", reloaded.NotificationChannels)
		}
	})

	t.Run("partial_success_counts_as_sent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		alerts := NewAlertService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000)
		alert := testutil.CreateTestAlert(t, db, budget, models.AlertTypeExceeded, 100)

		dispatcher := &recordingDispatcher{results: []ChannelResult{
			{Channel: "email", Success: false, Detail: "smtp unavailable"},
			{Channel: "push", Success: true},
		}}
		notifier := NewNotifier(alerts, dispatcher)
		notifier.Enqueue(alert, budget.Name)
		notifier.Close()

		var reloaded models.BudgetAlert
		if err := db.First(&reloaded, alert.ID).Error; err != nil {
			t.Fatalf("failed to reload alert: %v", err)
		}
		if !reloaded.NotificationSent {
			t.Error("expected one successful channel to mark the alert sent")
		}
	})
}

func TestLogDispatcher(t *testing.T) {
	d := NewLogDispatcher()
	results := d.Send(context.Background(), 1, DefaultChannels, NotificationPayload{
		AlertPublicID: "test",
		BudgetName:    "Groceries",
		AlertType:     models.AlertTypeApproaching,
	})
	if len(results) != len(DefaultChannels) {
		t.Fatalf("expected %d results, got %d", len(DefaultChannels), len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("expected channel %s to succeed", r.Channel)
		}
	}
}
