package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a financial transaction in the system.
// Amounts are stored as whole currency units.
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null;index" json:"date"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
