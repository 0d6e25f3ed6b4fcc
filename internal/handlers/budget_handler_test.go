package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
	"budgetwatch/internal/services"
	"budgetwatch/internal/validator"
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn      func(userID, categoryID uint, name string, amount int64, period models.BudgetPeriod, startDate time.Time, endDate *time.Time, autoAdjust bool, adjustmentPercentage int, origin models.BudgetOrigin) (*models.Budget, error)
	getUserBudgetsFn    func(userID uint, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	getBudgetByIDFn     func(userID, budgetID uint) (*models.Budget, error)
	updateBudgetFn      func(userID, budgetID uint, update services.BudgetUpdate) (*models.Budget, error)
	deleteBudgetFn      func(userID, budgetID uint) error
	getBudgetProgressFn func(userID, budgetID uint) (*services.BudgetProgress, error)
	getBudgetHistoryFn  func(userID, budgetID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error)
}

func (m *mockBudgetService) CreateBudget(userID, categoryID uint, name string, amount int64, period models.BudgetPeriod, startDate time.Time, endDate *time.Time, autoAdjust bool, adjustmentPercentage int, origin models.BudgetOrigin) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(userID, categoryID, name, amount, period, startDate, endDate, autoAdjust, adjustmentPercentage, origin)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetUserBudgets(userID uint, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
	if m.getUserBudgetsFn != nil {
		return m.getUserBudgetsFn(userID, page, isActive, period)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) GetBudgetByID(userID, budgetID uint) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(userID, budgetID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) UpdateBudget(userID, budgetID uint, update services.BudgetUpdate) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(userID, budgetID, update)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(userID, budgetID uint) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(userID, budgetID)
	}
	return nil
}

func (m *mockBudgetService) GetBudgetProgress(userID, budgetID uint) (*services.BudgetProgress, error) {
	if m.getBudgetProgressFn != nil {
		return m.getBudgetProgressFn(userID, budgetID)
	}
	return &services.BudgetProgress{}, nil
}

func (m *mockBudgetService) GetBudgetHistory(userID, budgetID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error) {
	if m.getBudgetHistoryFn != nil {
		return m.getBudgetHistoryFn(userID, budgetID, page)
	}
	resp := pagination.NewPageResponse([]models.BudgetHistory{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) ListActiveBudgetsForUser(userID uint) ([]models.Budget, error) {
	return nil, nil
}

func (m *mockBudgetService) ListActiveBudgets(scope services.SystemScope) ([]models.Budget, error) {
	return nil, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

// --- mock adjustment and sweep services ---

type mockAdjustmentService struct {
	adjustBudgetFn func(userID, budgetID uint, reason string, force bool) (*services.AdjustmentDecision, error)
}

func (m *mockAdjustmentService) AdjustBudget(userID, budgetID uint, reason string, force bool) (*services.AdjustmentDecision, error) {
	if m.adjustBudgetFn != nil {
		return m.adjustBudgetFn(userID, budgetID, reason, force)
	}
	return &services.AdjustmentDecision{}, nil
}

var _ services.AdjustmentServicer = (*mockAdjustmentService)(nil)

type mockSweepService struct {
	sweepAllFn  func(ctx context.Context, scope services.SystemScope) (*services.SweepSummary, error)
	sweepUserFn func(ctx context.Context, userID uint) (*services.SweepSummary, error)
}

func (m *mockSweepService) SweepAll(ctx context.Context, scope services.SystemScope) (*services.SweepSummary, error) {
	if m.sweepAllFn != nil {
		return m.sweepAllFn(ctx, scope)
	}
	return &services.SweepSummary{}, nil
}

func (m *mockSweepService) SweepUser(ctx context.Context, userID uint) (*services.SweepSummary, error) {
	if m.sweepUserFn != nil {
		return m.sweepUserFn(ctx, userID)
	}
	return &services.SweepSummary{}, nil
}

var _ services.SweepServicer = (*mockSweepService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(1))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetBudgets)
	auth.POST("/budgets/check", handler.CheckBudgets)
	auth.GET("/budgets/:id", handler.GetBudgetByID)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	auth.GET("/budgets/:id/progress", handler.GetBudgetProgress)
	auth.GET("/budgets/:id/history", handler.GetBudgetHistory)
	auth.POST("/budgets/:id/adjust", handler.AdjustBudget)
	return r
}

func newBudgetHandler(budgetSvc services.BudgetServicer) *BudgetHandler {
	return NewBudgetHandler(budgetSvc, &mockAdjustmentService{}, &mockSweepService{})
}

// --- tests ---

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_ uint, categoryID uint, name string, amount int64, period models.BudgetPeriod, _ time.Time, _ *time.Time, autoAdjust bool, _ int, origin models.BudgetOrigin) (*models.Budget, error) {
				if origin != models.BudgetOriginUser {
					t.Errorf("expected origin %q, got %q", models.BudgetOriginUser, origin)
				}
				return &models.Budget{
					Base:       models.Base{ID: 1},
					UserID:     1,
					CategoryID: categoryID,
					Name:       name,
					Amount:     amount,
					Period:     period,
					AutoAdjust: autoAdjust,
					IsActive:   true,
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":1,"name":"Groceries","amount":500,"period":"monthly","start_date":"2026-01-01T00:00:00Z","auto_adjust":true}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		budget := result["budget"].(map[string]interface{})
		if budget["name"] != "Groceries" {
			t.Errorf("expected Groceries, got %v", budget["name"])
		}
		if budget["amount"].(float64) != 500 {
			t.Errorf("expected amount 500, got %v", budget["amount"])
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":1,"amount":500,"period":"monthly","start_date":"2026-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on unknown period", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":1,"name":"Groceries","amount":500,"period":"daily","start_date":"2026-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on zero amount", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":1,"name":"Groceries","amount":0,"period":"monthly","start_date":"2026-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 on unknown category", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_, _ uint, _ string, _ int64, _ models.BudgetPeriod, _ time.Time, _ *time.Time, _ bool, _ int, _ models.BudgetOrigin) (*models.Budget, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":999,"name":"Groceries","amount":500,"period":"monthly","start_date":"2026-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := newBudgetHandler(&mockBudgetService{})
		r := gin.New()
		r.POST("/budgets", handler.CreateBudget)

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":1,"name":"Groceries","amount":500,"period":"monthly","start_date":"2026-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GetBudgets(t *testing.T) {
	t.Run("returns 200 with paginated budgets", func(t *testing.T) {
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ uint, _ pagination.PageRequest, _ *bool, _ *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
				resp := pagination.NewPageResponse([]models.Budget{
					{Base: models.Base{ID: 1}, Name: "Groceries"},
					{Base: models.Base{ID: 2}, Name: "Entertainment"},
				}, 1, 20, 2)
				return &resp, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "GET", "/budgets", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 budgets, got %d", len(data))
		}
		if result["total_items"].(float64) != 2 {
			t.Errorf("expected total_items=2, got %v", result["total_items"])
		}
	})

	t.Run("passes filter params to service", func(t *testing.T) {
		var capturedIsActive *bool
		var capturedPeriod *models.BudgetPeriod
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ uint, _ pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
				capturedIsActive = isActive
				capturedPeriod = period
				resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		doRequest(r, "GET", "/budgets?is_active=true&period=weekly", "")

		if capturedIsActive == nil || !*capturedIsActive {
			t.Error("expected is_active=true to be passed")
		}
		if capturedPeriod == nil || *capturedPeriod != models.BudgetPeriodWeekly {
			t.Error("expected period=weekly to be passed")
		}
	})

	t.Run("returns 400 on invalid is_active", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "GET", "/budgets?is_active=maybe", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestBudgetHandler_GetBudgetByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetByIDFn: func(_, budgetID uint) (*models.Budget, error) {
				return &models.Budget{
					Base:   models.Base{ID: budgetID},
					Name:   "Groceries",
					Amount: 500,
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "GET", "/budgets/1", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		budget := result["budget"].(map[string]interface{})
		if budget["name"] != "Groceries" {
			t.Errorf("expected Groceries, got %v", budget["name"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetByIDFn: func(_, _ uint) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "GET", "/budgets/999", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "GET", "/budgets/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		svc := &mockBudgetService{
			updateBudgetFn: func(_, budgetID uint, update services.BudgetUpdate) (*models.Budget, error) {
				b := &models.Budget{
					Base: models.Base{ID: budgetID},
					Name: update.Name,
				}
				if update.Amount != nil {
					b.Amount = *update.Amount
				}
				return b, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "PUT", "/budgets/1", `{"name":"Updated Budget","amount":750}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		budget := result["budget"].(map[string]interface{})
		if budget["name"] != "Updated Budget" {
			t.Errorf("expected Updated Budget, got %v", budget["name"])
		}
		if budget["amount"].(float64) != 750 {
			t.Errorf("expected amount 750, got %v", budget["amount"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockBudgetService{
			updateBudgetFn: func(_, _ uint, _ services.BudgetUpdate) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "PUT", "/budgets/999", `{"name":"Updated"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "DELETE", "/budgets/1", "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockBudgetService{
			deleteBudgetFn: func(_, _ uint) error {
				return apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "DELETE", "/budgets/999", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_GetBudgetProgress(t *testing.T) {
	t.Run("returns 200 with progress", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetProgressFn: func(_, budgetID uint) (*services.BudgetProgress, error) {
				return &services.BudgetProgress{
					BudgetID:   budgetID,
					Budgeted:   1000,
					Spent:      750,
					Remaining:  250,
					Percentage: 75.0,
					Status:     services.StatusWarning,
					Threshold:  70,
				}, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "GET", "/budgets/1/progress", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		progress := result["progress"].(map[string]interface{})
		if progress["spent"].(float64) != 750 {
			t.Errorf("expected spent=750, got %v", progress["spent"])
		}
		if progress["status"] != string(services.StatusWarning) {
			t.Errorf("expected warning status, got %v", progress["status"])
		}
		if progress["threshold"].(float64) != 70 {
			t.Errorf("expected threshold=70, got %v", progress["threshold"])
		}
	})

	t.Run("returns 404 when budget not found", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetProgressFn: func(_, _ uint) (*services.BudgetProgress, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "GET", "/budgets/999/progress", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_GetBudgetHistory(t *testing.T) {
	t.Run("returns 200 with paginated history", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetHistoryFn: func(_, budgetID uint, _ pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error) {
				resp := pagination.NewPageResponse([]models.BudgetHistory{
					{BudgetID: budgetID, OldAmount: 1000, NewAmount: 1200, ChangeType: models.ChangeTypeAutoAdjusted},
				}, 1, 20, 1)
				return &resp, nil
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "GET", "/budgets/1/history", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 1 {
			t.Fatalf("expected 1 history entry, got %d", len(data))
		}
		entry := data[0].(map[string]interface{})
		if entry["new_amount"].(float64) != 1200 {
			t.Errorf("expected new_amount=1200, got %v", entry["new_amount"])
		}
	})

	t.Run("returns 404 when budget not found", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetHistoryFn: func(_, _ uint, _ pagination.PageRequest) (*pagination.PageResponse[models.BudgetHistory], error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(newBudgetHandler(svc))

		rec := doRequest(r, "GET", "/budgets/999/history", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_CheckBudgets(t *testing.T) {
	t.Run("returns 200 with sweep summary", func(t *testing.T) {
		var sweptUserID uint
		sweepSvc := &mockSweepService{
			sweepUserFn: func(_ context.Context, userID uint) (*services.SweepSummary, error) {
				sweptUserID = userID
				return &services.SweepSummary{BudgetsChecked: 3, AlertsCreated: 1, Skipped: 1}, nil
			},
		}
		handler := NewBudgetHandler(&mockBudgetService{}, &mockAdjustmentService{}, sweepSvc)
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets/check", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if sweptUserID != 1 {
			t.Errorf("expected sweep for user 1, got %d", sweptUserID)
		}
		result := parseJSON(t, rec)
		summary := result["summary"].(map[string]interface{})
		if summary["budgets_checked"].(float64) != 3 {
			t.Errorf("expected budgets_checked=3, got %v", summary["budgets_checked"])
		}
		if summary["alerts_created"].(float64) != 1 {
			t.Errorf("expected alerts_created=1, got %v", summary["alerts_created"])
		}
	})
}

func TestBudgetHandler_AdjustBudget(t *testing.T) {
	t.Run("returns 200 with applied decision", func(t *testing.T) {
		adjustSvc := &mockAdjustmentService{
			adjustBudgetFn: func(_, budgetID uint, reason string, force bool) (*services.AdjustmentDecision, error) {
				if reason != "income_change" {
					t.Errorf("expected reason income_change, got %q", reason)
				}
				if force {
					t.Error("expected force=false")
				}
				return &services.AdjustmentDecision{
					BudgetID:       budgetID,
					CurrentAmount:  1000,
					ProposedAmount: 1100,
					ChangePercent:  10.0,
					Applied:        true,
					Reason:         reason,
				}, nil
			},
		}
		handler := NewBudgetHandler(&mockBudgetService{}, adjustSvc, &mockSweepService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets/1/adjust", `{"reason":"income_change"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		decision := result["decision"].(map[string]interface{})
		if decision["applied"] != true {
			t.Errorf("expected applied=true, got %v", decision["applied"])
		}
		if decision["proposed_amount"].(float64) != 1100 {
			t.Errorf("expected proposed_amount=1100, got %v", decision["proposed_amount"])
		}
	})

	t.Run("returns 200 when approval required", func(t *testing.T) {
		adjustSvc := &mockAdjustmentService{
			adjustBudgetFn: func(_, budgetID uint, reason string, _ bool) (*services.AdjustmentDecision, error) {
				return &services.AdjustmentDecision{
					BudgetID:         budgetID,
					CurrentAmount:    1000,
					ProposedAmount:   1200,
					ChangePercent:    20.0,
					RequiresApproval: true,
					Reason:           reason,
				}, nil
			},
		}
		handler := NewBudgetHandler(&mockBudgetService{}, adjustSvc, &mockSweepService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets/1/adjust", `{"reason":"lifestyle_change"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		decision := result["decision"].(map[string]interface{})
		if decision["requires_approval"] != true {
			t.Errorf("expected requires_approval=true, got %v", decision["requires_approval"])
		}
		if decision["applied"] != false {
			t.Errorf("expected applied=false, got %v", decision["applied"])
		}
	})

	t.Run("returns 400 on unknown reason", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "POST", "/budgets/1/adjust", `{"reason":"vibes"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on missing reason", func(t *testing.T) {
		r := setupBudgetRouter(newBudgetHandler(&mockBudgetService{}))

		rec := doRequest(r, "POST", "/budgets/1/adjust", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 409 when already adjusted", func(t *testing.T) {
		adjustSvc := &mockAdjustmentService{
			adjustBudgetFn: func(_, _ uint, _ string, _ bool) (*services.AdjustmentDecision, error) {
				return nil, apperrors.ErrAlreadyAdjusted
			},
		}
		handler := NewBudgetHandler(&mockBudgetService{}, adjustSvc, &mockSweepService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets/1/adjust", `{"reason":"seasonal_change"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ALREADY_ADJUSTED")
	})

	t.Run("returns 422 on insufficient history", func(t *testing.T) {
		adjustSvc := &mockAdjustmentService{
			adjustBudgetFn: func(_, _ uint, _ string, _ bool) (*services.AdjustmentDecision, error) {
				return nil, apperrors.ErrInsufficientHistory
			},
		}
		handler := NewBudgetHandler(&mockBudgetService{}, adjustSvc, &mockSweepService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets/1/adjust", `{"reason":"income_change"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_HISTORY")
	})
}
