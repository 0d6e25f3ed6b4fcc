package models

import "time"

// AlertType is the coarse category of a budget alert. The exact crossed
// threshold (70, 90, or 100) is recorded in ThresholdPercentage, which is
// the authoritative signal; "approaching" covers both the 70 and 90 tiers.
type AlertType string

const (
	AlertTypeApproaching        AlertType = "approaching"
	AlertTypeExceeded           AlertType = "exceeded"
	AlertTypePredictedOverspend AlertType = "predicted_overspend"
)

// BudgetAlert records a single alert raised for a budget by the sweep.
// The unique (budget_id, alert_date) index enforces at most one alert per
// budget per calendar day, including under concurrent sweep runs.
type BudgetAlert struct {
	Base
	PublicID            string    `gorm:"size:36;uniqueIndex" json:"public_id"`
	BudgetID            uint      `gorm:"not null;uniqueIndex:idx_budget_alerts_budget_day,priority:1" json:"budget_id"`
	UserID              uint      `gorm:"not null;index" json:"user_id"`
	AlertType           AlertType `gorm:"not null" json:"alert_type"`
	ThresholdPercentage int       `gorm:"not null" json:"threshold_percentage"`
	SpentAmount         int64     `gorm:"type:bigint;not null" json:"spent_amount"`
	BudgetAmount        int64     `gorm:"type:bigint;not null" json:"budget_amount"`

	IsPredicted              bool       `gorm:"default:false" json:"is_predicted"`
	PredictedOverspendAmount int64      `gorm:"type:bigint;default:0" json:"predicted_overspend_amount,omitempty"`
	PredictedExceedDate      *time.Time `json:"predicted_exceed_date,omitempty"`
	Recommendation           string     `json:"recommendation,omitempty"`

	NotificationSent     bool   `gorm:"default:false" json:"notification_sent"`
	NotificationChannels string `json:"notification_channels,omitempty"`

	TriggeredAt    time.Time  `gorm:"not null" json:"triggered_at"`
	AlertDate      string     `gorm:"size:10;not null;uniqueIndex:idx_budget_alerts_budget_day,priority:2" json:"alert_date"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	DismissedAt    *time.Time `json:"dismissed_at,omitempty"`

	Budget Budget `gorm:"foreignKey:BudgetID;constraint:OnDelete:CASCADE" json:"budget,omitempty"`
}

// TableName returns the table name for GORM.
func (BudgetAlert) TableName() string {
	return "budget_alerts"
}
