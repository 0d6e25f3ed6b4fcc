package models

// ChangeType distinguishes user edits from engine adjustments.
type ChangeType string

const (
	ChangeTypeManual       ChangeType = "manual"
	ChangeTypeAutoAdjusted ChangeType = "auto_adjusted"
)

// Actor identifies who made a budget change.
type Actor string

const (
	ActorUser Actor = "user"
	ActorAI   Actor = "ai"
)

// BudgetHistory is the append-only audit trail of budget amount changes.
// It doubles as the gate enforcing at most one auto-adjustment per period.
type BudgetHistory struct {
	Base
	BudgetID   uint       `gorm:"not null;index:idx_budget_history_budget_created,priority:1" json:"budget_id"`
	ChangeType ChangeType `gorm:"not null" json:"change_type"`
	OldAmount  int64      `gorm:"type:bigint;not null" json:"old_amount"`
	NewAmount  int64      `gorm:"type:bigint;not null" json:"new_amount"`
	ChangedBy  Actor      `gorm:"not null" json:"changed_by"`
	Reason     string     `json:"reason"`

	Budget Budget `gorm:"foreignKey:BudgetID;constraint:OnDelete:CASCADE" json:"budget,omitempty"`
}

// TableName returns the table name for GORM.
func (BudgetHistory) TableName() string {
	return "budget_history"
}
