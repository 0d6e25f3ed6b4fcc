package services

import (
	"context"
	"time"

	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID uint, name string, categoryType models.CategoryType, description string) (*models.Category, error)
	GetUserCategories(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
	UpdateCategory(userID, categoryID uint, name, description string) (*models.Category, error)
	DeleteCategory(userID, categoryID uint) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *uint
}

// LedgerServicer is the read/write surface over the transaction ledger.
// The engine consumes only the read side (SumExpenses, ListTransactions,
// SpendForBudget); the write side feeds it.
type LedgerServicer interface {
	CreateTransaction(userID uint, categoryID *uint, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error

	// SumExpenses returns the total expense amount for a category within
	// [from, to]. Read-only; never cached.
	SumExpenses(userID, categoryID uint, from, to time.Time) (int64, error)
	// ListTransactions returns expense transactions for a category within
	// [from, to], newest first.
	ListTransactions(userID, categoryID uint, from, to time.Time) ([]models.Transaction, error)
	// SpendForBudget computes current spend for the budget's active period
	// window at the given instant. A malformed window yields zero spend
	// rather than an error so one bad budget cannot abort a sweep.
	SpendForBudget(budget *models.Budget, now time.Time) (int64, error)
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID   uint         `json:"budget_id"`
	Budgeted   int64        `json:"budgeted"`
	Spent      int64        `json:"spent"`
	Remaining  int64        `json:"remaining"`
	Percentage float64      `json:"percentage"`
	Status     BudgetStatus `json:"status"`
	Threshold  int          `json:"threshold,omitempty"`
}

// SystemScope is the explicit capability for cross-user reads used by the
// scheduled sweep. Handlers never construct one; only the orchestrator
// wiring does, which keeps the elevated access path visible and testable.
type SystemScope struct{}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID, categoryID uint, name string, amount int64, period models.BudgetPeriod, startDate time.Time, endDate *time.Time, autoAdjust bool, adjustmentPercentage int, origin models.BudgetOrigin) (*models.Budget, error)
	GetUserBudgets(userID uint, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID uint) (*models.Budget, error)
	UpdateBudget(userID, budgetID uint, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(userID, budgetID uint) error
	GetBudgetProgress(userID, budgetID uint) (*BudgetProgress, error)
	GetBudgetHistory(userID, budgetID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error)

	ListActiveBudgetsForUser(userID uint) ([]models.Budget, error)
	ListActiveBudgets(scope SystemScope) ([]models.Budget, error)
}

// BudgetUpdate holds optional fields for updating a budget.
type BudgetUpdate struct {
	Name                 string
	Amount               *int64
	EndDate              *time.Time
	IsActive             *bool
	AutoAdjust           *bool
	AdjustmentPercentage *int
	Reason               string
}

// AlertServicer defines the contract for alert classification, deduplication,
// recording, and user-facing alert mutations.
type AlertServicer interface {
	HasAlertToday(budgetID uint, now time.Time) (bool, error)
	// RecordAlert persists an alert. Returns created=false when an alert
	// already exists for the budget on the same calendar day; the unique
	// (budget_id, alert_date) index makes the check-then-insert atomic.
	RecordAlert(alert *models.BudgetAlert) (created bool, err error)
	MarkNotified(alertID uint, channels []string, sent bool) error
	ListAlerts(userID uint, page pagination.PageRequest, unacknowledgedOnly bool) (*pagination.PageResponse[models.BudgetAlert], error)
	Acknowledge(userID, alertID uint) (*models.BudgetAlert, error)
	Dismiss(userID, alertID uint) (*models.BudgetAlert, error)
}

// Prediction is the output of the overspend predictor.
type Prediction struct {
	LikelyToExceed  bool       `json:"likely_to_exceed"`
	ConfidenceLevel float64    `json:"confidence_level"`
	PredictedAmount int64      `json:"predicted_amount"`
	DaysUntilExceed *int       `json:"days_until_exceed,omitempty"`
	ExceedDate      *time.Time `json:"exceed_date,omitempty"`
	Recommendation  string     `json:"recommendation,omitempty"`
}

// PredictionServicer forecasts whether a budget will exceed its amount
// before the period ends, based on recent spending velocity.
type PredictionServicer interface {
	Predict(budget *models.Budget, spent int64, now time.Time, daysRemaining int) (*Prediction, error)
}

// AdjustmentDecision is the terminal outcome of an adjustment request.
// Policy-gate outcomes (requires approval) are successful decisions, not
// errors; Applied reports whether the budget amount was actually changed.
type AdjustmentDecision struct {
	BudgetID         uint    `json:"budget_id"`
	CurrentAmount    int64   `json:"current_amount"`
	ProposedAmount   int64   `json:"proposed_amount"`
	AverageSpending  int64   `json:"average_spending"`
	ChangePercent    float64 `json:"change_percent"`
	RequiresApproval bool    `json:"requires_approval"`
	Applied          bool    `json:"applied"`
	Reason           string  `json:"reason"`
}

// AdjustmentServicer defines the contract for the auto-adjustment engine.
type AdjustmentServicer interface {
	AdjustBudget(userID, budgetID uint, reason string, force bool) (*AdjustmentDecision, error)
}

// ChannelResult records the outcome of one delivery attempt.
type ChannelResult struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// NotificationPayload is the message content handed to the dispatcher.
type NotificationPayload struct {
	AlertPublicID       string           `json:"alert_public_id"`
	BudgetName          string           `json:"budget_name"`
	AlertType           models.AlertType `json:"alert_type"`
	ThresholdPercentage int              `json:"threshold_percentage"`
	SpentAmount         int64            `json:"spent_amount"`
	BudgetAmount        int64            `json:"budget_amount"`
	Recommendation      string           `json:"recommendation,omitempty"`
}

// Dispatcher delivers notifications out-of-band. Implementations are
// best-effort: failures are reported in the results, never as errors.
type Dispatcher interface {
	Send(ctx context.Context, userID uint, channels []string, payload NotificationPayload) []ChannelResult
}

// SweepSummary reports what one sweep cycle did.
type SweepSummary struct {
	BudgetsChecked int `json:"budgets_checked"`
	AlertsCreated  int `json:"alerts_created"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
	Deferred       int `json:"deferred"`
}

// SweepServicer defines the contract for the budget sweep orchestrator.
type SweepServicer interface {
	SweepAll(ctx context.Context, scope SystemScope) (*SweepSummary, error)
	SweepUser(ctx context.Context, userID uint) (*SweepSummary, error)
}
