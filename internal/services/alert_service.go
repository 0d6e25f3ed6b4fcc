package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
	"budgetwatch/internal/uuid"
)

// BudgetStatus is the coarse spend classification for a budget.
type BudgetStatus string

const (
	StatusOnTrack     BudgetStatus = "on_track"
	StatusWarning     BudgetStatus = "warning"
	StatusApproaching BudgetStatus = "approaching"
	StatusExceeded    BudgetStatus = "exceeded"
)

// Classification is the result of evaluating spend against a budget amount.
// Threshold carries the specific crossed boundary (70, 90, or 100), which is
// the authoritative signal; AlertType is the coarse persisted category.
type Classification struct {
	Percentage float64
	Status     BudgetStatus
	Threshold  int
	AlertType  models.AlertType
}

// ShouldAlert reports whether the classification crossed an alerting tier.
func (c Classification) ShouldAlert() bool {
	return c.Threshold > 0
}

// Classify maps spend against the budget amount to a status and crossed
// threshold. Thresholds are evaluated highest first (100, 90, 70) so a
// budget that jumps past 90% in one transaction reports 90, not 70.
// Percentage is zero when amount is not positive.
func Classify(spent, amount int64) Classification {
	var pct float64
	if amount > 0 {
		pct = float64(spent) / float64(amount) * 100
	}

	c := Classification{Percentage: pct, Status: StatusOnTrack}
	switch {
	case pct >= 100:
		c.Status = StatusExceeded
		c.Threshold = 100
		c.AlertType = models.AlertTypeExceeded
	case pct >= 90:
		c.Status = StatusApproaching
		c.Threshold = 90
		c.AlertType = models.AlertTypeApproaching
	case pct >= 70:
		c.Status = StatusWarning
		c.Threshold = 70
		c.AlertType = models.AlertTypeApproaching
	}
	return c
}

// AlertDay formats an instant as the calendar-day dedup key, local to the
// sweep's clock.
func AlertDay(now time.Time) string {
	return now.Format("2006-01-02")
}

// alertService handles alert persistence, deduplication, and user-facing
// alert mutations.
type alertService struct {
	db *gorm.DB
}

// NewAlertService creates a new AlertServicer.
func NewAlertService(db *gorm.DB) AlertServicer {
	return &alertService{db: db}
}

// HasAlertToday reports whether the budget already has an alert for the
// calendar day containing now. Used as a fast path; the unique index on
// (budget_id, alert_date) remains the authoritative guard.
func (s *alertService) HasAlertToday(budgetID uint, now time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.BudgetAlert{}).
		Where("budget_id = ? AND alert_date = ?", budgetID, AlertDay(now)).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// RecordAlert persists an alert. A duplicate-key failure on the
// (budget_id, alert_date) index means another alert won the day and is
// reported as created=false, not as an error, so concurrent sweeps cannot
// double-alert a budget.
func (s *alertService) RecordAlert(alert *models.BudgetAlert) (bool, error) {
	if alert.PublicID == "" {
		alert.PublicID = uuid.New()
	}
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = time.Now()
	}
	if alert.AlertDate == "" {
		alert.AlertDate = AlertDay(alert.TriggeredAt)
	}

	if err := s.db.Create(alert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return true, nil
}

// MarkNotified records the delivery outcome on an existing alert. Alert
// existence never depends on this; a failed dispatch leaves the alert
// visible in-app with notification_sent false.
func (s *alertService) MarkNotified(alertID uint, channels []string, sent bool) error {
	updates := map[string]interface{}{
		"notification_sent":     sent,
		"notification_channels": strings.Join(channels, ","),
	}
	if err := s.db.Model(&models.BudgetAlert{}).Where("id = ?", alertID).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListAlerts returns a paginated list of the user's alerts, newest first.
func (s *alertService) ListAlerts(userID uint, page pagination.PageRequest, unacknowledgedOnly bool) (*pagination.PageResponse[models.BudgetAlert], error) {
	page.Defaults()

	base := s.db.Model(&models.BudgetAlert{}).Where("user_id = ?", userID)
	if unacknowledgedOnly {
		base = base.Where("acknowledged_at IS NULL AND dismissed_at IS NULL")
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var alerts []models.BudgetAlert
	if err := base.Order("triggered_at DESC").Scopes(pagination.Paginate(page)).Find(&alerts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(alerts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *alertService) getUserAlert(userID, alertID uint) (*models.BudgetAlert, error) {
	var alert models.BudgetAlert
	if err := s.db.Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAlertNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &alert, nil
}

// Acknowledge sets the acknowledged timestamp. Independent of dismissal.
func (s *alertService) Acknowledge(userID, alertID uint) (*models.BudgetAlert, error) {
	alert, err := s.getUserAlert(userID, alertID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	alert.AcknowledgedAt = &now
	if err := s.db.Model(alert).Update("acknowledged_at", now).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return alert, nil
}

// Dismiss sets the dismissed timestamp. Independent of acknowledgement.
func (s *alertService) Dismiss(userID, alertID uint) (*models.BudgetAlert, error) {
	alert, err := s.getUserAlert(userID, alertID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	alert.DismissedAt = &now
	if err := s.db.Model(alert).Update("dismissed_at", now).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return alert, nil
}
