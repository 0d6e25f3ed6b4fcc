package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
	BudgetPeriodCustom  BudgetPeriod = "custom"
)

// BudgetOrigin records who created a budget.
type BudgetOrigin string

const (
	BudgetOriginUser BudgetOrigin = "user"
	BudgetOriginAI   BudgetOrigin = "ai"
)

const (
	// MinBudgetAmount is the smallest allowed budget amount in whole currency units.
	MinBudgetAmount int64 = 100

	// MaxActiveBudgets caps simultaneously active budgets per user.
	MaxActiveBudgets = 20

	// DefaultAdjustmentPercentage bounds a single auto-adjustment relative
	// to the current amount.
	DefaultAdjustmentPercentage = 20
)

// Budget represents a spending limit for a category over a recurring
// or fixed period. Amounts are whole currency units.
type Budget struct {
	Base
	UserID               uint         `gorm:"not null;index" json:"user_id"`
	CategoryID           uint         `gorm:"not null" json:"category_id"`
	Name                 string       `gorm:"not null" json:"name"`
	Amount               int64        `gorm:"type:bigint;not null" json:"amount"`
	Period               BudgetPeriod `gorm:"not null" json:"period"`
	StartDate            time.Time    `gorm:"not null" json:"start_date"`
	EndDate              *time.Time   `json:"end_date,omitempty"`
	IsActive             bool         `gorm:"default:true" json:"is_active"`
	AutoAdjust           bool         `gorm:"default:false" json:"auto_adjust"`
	AdjustmentPercentage int          `gorm:"default:20" json:"adjustment_percentage"`
	Origin               BudgetOrigin `gorm:"default:user" json:"origin"`

	Category Category        `gorm:"foreignKey:CategoryID" json:"category"`
	Alerts   []BudgetAlert   `gorm:"foreignKey:BudgetID" json:"alerts,omitempty"`
	History  []BudgetHistory `gorm:"foreignKey:BudgetID" json:"history,omitempty"`
}
