package services

import (
	"context"
	"sync"
	"time"

	"budgetwatch/internal/logger"
	"budgetwatch/internal/models"
)

// DefaultChannels are the channels attempted for every alert notification.
var DefaultChannels = []string{"email", "push"}

// dispatchTimeout bounds a single dispatcher call.
const dispatchTimeout = 10 * time.Second

// logDispatcher is the default Dispatcher. It writes structured logs in
// place of real email/push delivery; production deployments plug in a real
// implementation behind the same interface.
type logDispatcher struct{}

// NewLogDispatcher creates a Dispatcher that logs instead of delivering.
func NewLogDispatcher() Dispatcher {
	return logDispatcher{}
}

func (logDispatcher) Send(_ context.Context, userID uint, channels []string, payload NotificationPayload) []ChannelResult {
	results := make([]ChannelResult, 0, len(channels))
	for _, channel := range channels {
		logger.Get().Infow("notification",
			"channel", channel,
			"user_id", userID,
			"alert_id", payload.AlertPublicID,
			"alert_type", payload.AlertType,
			"budget", payload.BudgetName,
			"threshold", payload.ThresholdPercentage,
		)
		results = append(results, ChannelResult{Channel: channel, Success: true})
	}
	return results
}

// notificationJob carries one queued alert to the worker.
type notificationJob struct {
	alert      models.BudgetAlert
	budgetName string
}

// Notifier hands alerts to the Dispatcher asynchronously and records the
// delivery outcome on the alert afterwards. The sweep never blocks on it,
// and dispatch failure never affects alert existence.
type Notifier struct {
	alerts     AlertServicer
	dispatcher Dispatcher

	queue chan notificationJob
	wg    sync.WaitGroup
}

// NewNotifier creates a Notifier and starts its worker goroutine.
func NewNotifier(alerts AlertServicer, dispatcher Dispatcher) *Notifier {
	n := &Notifier{
		alerts:     alerts,
		dispatcher: dispatcher,
		queue:      make(chan notificationJob, 256),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Enqueue queues an alert for notification without blocking. When the queue
// is full the notification is dropped and logged; the alert itself is
// already persisted and visible in-app.
func (n *Notifier) Enqueue(alert *models.BudgetAlert, budgetName string) {
	select {
	case n.queue <- notificationJob{alert: *alert, budgetName: budgetName}:
	default:
		logger.Get().Warnw("notification queue full, dropping dispatch",
			"alert_id", alert.PublicID, "budget_id", alert.BudgetID)
	}
}

// Close stops accepting work and waits for in-flight dispatches to finish.
func (n *Notifier) Close() {
	close(n.queue)
	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for job := range n.queue {
		n.dispatch(job)
	}
}

func (n *Notifier) dispatch(job notificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	payload := NotificationPayload{
		AlertPublicID:       job.alert.PublicID,
		BudgetName:          job.budgetName,
		AlertType:           job.alert.AlertType,
		ThresholdPercentage: job.alert.ThresholdPercentage,
		SpentAmount:         job.alert.SpentAmount,
		BudgetAmount:        job.alert.BudgetAmount,
		Recommendation:      job.alert.Recommendation,
	}

	results := n.dispatcher.Send(ctx, job.alert.UserID, DefaultChannels, payload)

	sent := false
	attempted := make([]string, 0, len(results))
	for _, r := range results {
		attempted = append(attempted, r.Channel)
		if r.Success {
			sent = true
		} else {
			logger.Get().Warnw("notification channel failed",
				"channel", r.Channel, "alert_id", job.alert.PublicID, "detail", r.Detail)
		}
	}

	if err := n.alerts.MarkNotified(job.alert.ID, attempted, sent); err != nil {
		logger.Get().Errorw("failed to record notification outcome",
			"alert_id", job.alert.PublicID, "error", err)
	}
}
