package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"budgetwatch/internal/models"
	"budgetwatch/internal/uuid"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates an expense transaction in the given category
// at the given date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID uint, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: &categoryID,
		Type:       models.TransactionTypeExpense,
		Amount:     amount,
		Date:       date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates an active monthly budget for the given category.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID uint, amount int64) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Test Budget %d", nextID()),
		Amount:     amount,
		Period:     models.BudgetPeriodMonthly,
		StartDate:  time.Now().AddDate(0, -6, 0).Truncate(24 * time.Hour),
		IsActive:   true,
		Origin:     models.BudgetOriginUser,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestAutoAdjustBudget creates an active monthly budget with
// auto-adjustment enabled at the default bound.
func CreateTestAutoAdjustBudget(t *testing.T, db *gorm.DB, userID, categoryID uint, amount int64) *models.Budget {
	t.Helper()

	budget := CreateTestBudget(t, db, userID, categoryID, amount)
	budget.AutoAdjust = true
	budget.AdjustmentPercentage = models.DefaultAdjustmentPercentage
	if err := db.Save(budget).Error; err != nil {
		t.Fatalf("failed to enable auto-adjust on test budget: %v", err)
	}
	return budget
}

// CreateTestAlert creates a threshold alert for the given budget dated today.
func CreateTestAlert(t *testing.T, db *gorm.DB, budget *models.Budget, alertType models.AlertType, threshold int) *models.BudgetAlert {
	t.Helper()

	now := time.Now()
	alert := &models.BudgetAlert{
		PublicID:            uuid.New(),
		BudgetID:            budget.ID,
		UserID:              budget.UserID,
		AlertType:           alertType,
		ThresholdPercentage: threshold,
		SpentAmount:         budget.Amount * int64(threshold) / 100,
		BudgetAmount:        budget.Amount,
		TriggeredAt:         now,
		AlertDate:           now.Format("2006-01-02"),
	}
	if err := db.Create(alert).Error; err != nil {
		t.Fatalf("failed to create test alert: %v", err)
	}
	return alert
}
