package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn      func(userID string, in services.CreateBudgetInput) (*models.Budget, error)
	getBudgetsFn        func(userID string, page pagination.PageRequest, filter services.BudgetFilter) (*pagination.PageResponse[models.Budget], error)
	getBudgetByIDFn     func(userID, budgetID string) (*models.Budget, error)
	updateBudgetFn      func(userID, budgetID string, in services.UpdateBudgetInput) (*models.Budget, error)
	deleteBudgetFn      func(userID, budgetID string) error
	recalculateFn       func(budgetID string) (*models.Budget, error)
	recalculateFamilyFn func(ctx context.Context, familyID string) (*services.RepairResult, error)
}

func (m *mockBudgetService) UpdateBudgetUsage(_ string, _ *string, _ decimal.Decimal, _ bool, _ time.Time) {
}

func (m *mockBudgetService) CreateBudget(userID string, in services.CreateBudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(userID, in)
	}
	return &models.Budget{Base: models.Base{ID: testBudgetID}}, nil
}

func (m *mockBudgetService) GetBudgets(userID string, page pagination.PageRequest, filter services.BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
	if m.getBudgetsFn != nil {
		return m.getBudgetsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(userID, budgetID)
	}
	return &models.Budget{Base: models.Base{ID: budgetID}}, nil
}

func (m *mockBudgetService) UpdateBudget(userID, budgetID string, in services.UpdateBudgetInput) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(userID, budgetID, in)
	}
	return &models.Budget{Base: models.Base{ID: budgetID}}, nil
}

func (m *mockBudgetService) DeleteBudget(userID, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(userID, budgetID)
	}
	return nil
}

func (m *mockBudgetService) Recalculate(budgetID string) (*models.Budget, error) {
	if m.recalculateFn != nil {
		return m.recalculateFn(budgetID)
	}
	return &models.Budget{Base: models.Base{ID: budgetID}}, nil
}

func (m *mockBudgetService) RecalculateFamily(ctx context.Context, familyID string) (*services.RepairResult, error) {
	if m.recalculateFamilyFn != nil {
		return m.recalculateFamilyFn(ctx, familyID)
	}
	return &services.RepairResult{FamilyID: familyID}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

// --- mock alert service ---

type mockAlertService struct {
	summaryFn func(ctx context.Context, userID string, q services.SummaryQuery) (*services.BudgetSummary, error)
}

func (m *mockAlertService) EvaluateFamily(_ string, _ models.BudgetPeriod, _, _ int) ([]services.Alert, error) {
	return nil, nil
}

func (m *mockAlertService) Dedupe(_ string, _ time.Time, candidates []services.Alert) ([]services.Alert, error) {
	return candidates, nil
}

func (m *mockAlertService) Persist(_ context.Context, _ string, _ []services.Alert) []models.Notification {
	return nil
}

func (m *mockAlertService) Summary(ctx context.Context, userID string, q services.SummaryQuery) (*services.BudgetSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, userID, q)
	}
	return &services.BudgetSummary{}, nil
}

var _ services.AlertServicer = (*mockAlertService)(nil)

type budgetDeps struct {
	budgets  *mockBudgetService
	alerts   *mockAlertService
	families *mockFamilyService
	audit    *mockAuditService
}

func newBudgetDeps() *budgetDeps {
	return &budgetDeps{
		budgets:  &mockBudgetService{},
		alerts:   &mockAlertService{},
		families: &mockFamilyService{},
		audit:    &mockAuditService{},
	}
}

func (d *budgetDeps) router() *gin.Engine {
	handler := NewBudgetHandler(d.budgets, d.alerts, d.families, d.audit)
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetBudgets)
	auth.GET("/budgets/summary", handler.GetSummary)
	auth.GET("/budgets/:id", handler.GetBudget)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	auth.POST("/budgets/:id/recalculate", handler.RecalculateBudget)
	auth.POST("/families/:id/budgets/recalculate", handler.RecalculateFamily)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 and audits", func(t *testing.T) {
		d := newBudgetDeps()
		var got services.CreateBudgetInput
		d.budgets.createBudgetFn = func(_ string, in services.CreateBudgetInput) (*models.Budget, error) {
			got = in
			month := 6
			return &models.Budget{
				Base:       models.Base{ID: testBudgetID},
				FamilyID:   in.FamilyID,
				CategoryID: in.CategoryID,
				Amount:     in.Amount,
				Period:     in.Period,
				Year:       in.Year,
				Month:      &month,
				UsedAmount: decimal.RequireFromString("450"),
			}, nil
		}

		rec := doRequest(d.router(), "POST", "/budgets",
			`{"family_id":"`+testFamilyID+`","category_id":"`+testCatID+`","amount":"500","period":"monthly","year":2024,"month":6,"alert_threshold":"90"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, testFamilyID, got.FamilyID)
		assert.Equal(t, models.BudgetPeriodMonthly, got.Period)
		assert.Equal(t, 6, got.Month)
		require.NotNil(t, got.AlertThreshold)
		assert.True(t, got.AlertThreshold.Equal(decimal.NewFromInt(90)))
		assert.Equal(t, []string{services.AuditCreateBudget}, d.audit.actions())

		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		assert.Equal(t, "450", budget["used_amount"])
	})

	t.Run("threshold defaults to nil", func(t *testing.T) {
		d := newBudgetDeps()
		var got services.CreateBudgetInput
		d.budgets.createBudgetFn = func(_ string, in services.CreateBudgetInput) (*models.Budget, error) {
			got = in
			return &models.Budget{Base: models.Base{ID: testBudgetID}}, nil
		}

		rec := doRequest(d.router(), "POST", "/budgets",
			`{"family_id":"`+testFamilyID+`","category_id":"`+testCatID+`","amount":1200,"period":"yearly","year":2024}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Nil(t, got.AlertThreshold)
		assert.Equal(t, 0, got.Month)
	})

	bad := map[string]string{
		"weekly period": `{"family_id":"` + testFamilyID + `","category_id":"` + testCatID + `","amount":"10","period":"weekly","year":2024,"month":1}`,
		"month 13":      `{"family_id":"` + testFamilyID + `","category_id":"` + testCatID + `","amount":"10","period":"monthly","year":2024,"month":13}`,
		"missing year":  `{"family_id":"` + testFamilyID + `","category_id":"` + testCatID + `","amount":"10","period":"monthly","month":1}`,
		"bad family":    `{"family_id":"fam","category_id":"` + testCatID + `","amount":"10","period":"monthly","year":2024,"month":1}`,
	}
	for name, body := range bad {
		t.Run("returns 400 on "+name, func(t *testing.T) {
			d := newBudgetDeps()

			rec := doRequest(d.router(), "POST", "/budgets", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
			assert.Empty(t, d.audit.actions())
		})
	}

	t.Run("passes service errors through", func(t *testing.T) {
		d := newBudgetDeps()
		d.budgets.createBudgetFn = func(_ string, _ services.CreateBudgetInput) (*models.Budget, error) {
			return nil, apperrors.ErrInvalidThreshold
		}

		rec := doRequest(d.router(), "POST", "/budgets",
			`{"family_id":"`+testFamilyID+`","category_id":"`+testCatID+`","amount":"10","period":"monthly","year":2024,"month":1,"alert_threshold":"150"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_THRESHOLD")
	})
}

func TestBudgetHandler_GetBudgets(t *testing.T) {
	t.Run("passes filters", func(t *testing.T) {
		d := newBudgetDeps()
		var got services.BudgetFilter
		d.budgets.getBudgetsFn = func(_ string, _ pagination.PageRequest, filter services.BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
			got = filter
			resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
			return &resp, nil
		}

		rec := doRequest(d.router(), "GET", "/budgets?family_id="+testFamilyID+"&year=2024&month=4&period=quarterly&is_active=true", "")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotNil(t, got.FamilyID)
		assert.Equal(t, testFamilyID, *got.FamilyID)
		require.NotNil(t, got.Year)
		assert.Equal(t, 2024, *got.Year)
		require.NotNil(t, got.Month)
		assert.Equal(t, 4, *got.Month)
		require.NotNil(t, got.Period)
		assert.Equal(t, models.BudgetPeriodQuarterly, *got.Period)
		require.NotNil(t, got.IsActive)
		assert.True(t, *got.IsActive)
	})

	t.Run("no filters", func(t *testing.T) {
		d := newBudgetDeps()
		var got services.BudgetFilter
		d.budgets.getBudgetsFn = func(_ string, _ pagination.PageRequest, filter services.BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
			got = filter
			resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
			return &resp, nil
		}

		rec := doRequest(d.router(), "GET", "/budgets", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, got.FamilyID)
		assert.Nil(t, got.Period)
		assert.Nil(t, got.IsActive)
	})

	tests := []struct {
		query string
		code  string
	}{
		{"period=weekly", "INVALID_PERIOD"},
		{"month=0", "INVALID_MONTH"},
		{"year=abc", "INVALID_INPUT"},
		{"is_active=yes", "INVALID_INPUT"},
		{"family_id=nope", "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			d := newBudgetDeps()

			rec := doRequest(d.router(), "GET", "/budgets?"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assertErrorCode(t, parseJSON(t, rec), tt.code)
		})
	}
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("passes optional fields and audits", func(t *testing.T) {
		d := newBudgetDeps()
		var got services.UpdateBudgetInput
		d.budgets.updateBudgetFn = func(_, budgetID string, in services.UpdateBudgetInput) (*models.Budget, error) {
			got = in
			return &models.Budget{Base: models.Base{ID: budgetID}, Amount: *in.Amount}, nil
		}

		rec := doRequest(d.router(), "PUT", "/budgets/"+testBudgetID, `{"amount":"750","month":7,"is_active":false}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotNil(t, got.Amount)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(750)))
		require.NotNil(t, got.Month)
		assert.Equal(t, 7, *got.Month)
		require.NotNil(t, got.IsActive)
		assert.False(t, *got.IsActive)
		assert.Nil(t, got.Period)
		assert.Equal(t, []string{services.AuditUpdateBudget}, d.audit.actions())
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		d := newBudgetDeps()
		d.budgets.updateBudgetFn = func(_, _ string, _ services.UpdateBudgetInput) (*models.Budget, error) {
			return nil, apperrors.ErrBudgetNotFound
		}

		rec := doRequest(d.router(), "PUT", "/budgets/"+testBudgetID, `{"description":"groceries"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
		assert.Empty(t, d.audit.actions())
	})
}

func TestBudgetHandler_GetAndDelete(t *testing.T) {
	t.Run("get returns budget", func(t *testing.T) {
		d := newBudgetDeps()

		rec := doRequest(d.router(), "GET", "/budgets/"+testBudgetID, "")

		require.Equal(t, http.StatusOK, rec.Code)
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		assert.Equal(t, testBudgetID, budget["id"])
	})

	t.Run("get rejects malformed id", func(t *testing.T) {
		d := newBudgetDeps()

		rec := doRequest(d.router(), "GET", "/budgets/12", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete audits", func(t *testing.T) {
		d := newBudgetDeps()

		rec := doRequest(d.router(), "DELETE", "/budgets/"+testBudgetID, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Budget deleted successfully", parseJSON(t, rec)["message"])
		assert.Equal(t, []string{services.AuditDeleteBudget}, d.audit.actions())
	})
}

func TestBudgetHandler_RecalculateBudget(t *testing.T) {
	t.Run("checks access before recalculating", func(t *testing.T) {
		d := newBudgetDeps()
		recalculated := false
		d.budgets.getBudgetByIDFn = func(_, _ string) (*models.Budget, error) {
			return nil, apperrors.ErrBudgetNotFound
		}
		d.budgets.recalculateFn = func(_ string) (*models.Budget, error) {
			recalculated = true
			return nil, nil
		}

		rec := doRequest(d.router(), "POST", "/budgets/"+testBudgetID+"/recalculate", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, recalculated)
	})

	t.Run("returns recalculated budget", func(t *testing.T) {
		d := newBudgetDeps()
		d.budgets.recalculateFn = func(budgetID string) (*models.Budget, error) {
			return &models.Budget{Base: models.Base{ID: budgetID}, UsedAmount: decimal.RequireFromString("300")}, nil
		}

		rec := doRequest(d.router(), "POST", "/budgets/"+testBudgetID+"/recalculate", "")

		require.Equal(t, http.StatusOK, rec.Code)
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		assert.Equal(t, "300", budget["used_amount"])
		assert.Equal(t, []string{services.AuditRecalculateBudget}, d.audit.actions())
	})
}

func TestBudgetHandler_RecalculateFamily(t *testing.T) {
	t.Run("rejects non-members", func(t *testing.T) {
		d := newBudgetDeps()
		d.families.requireMemberFn = func(_, _ string) (*models.FamilyMember, error) {
			return nil, apperrors.ErrNotFamilyMember
		}

		rec := doRequest(d.router(), "POST", "/families/"+testFamilyID+"/budgets/recalculate", "")

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, d.audit.actions())
	})

	t.Run("returns repair counts", func(t *testing.T) {
		d := newBudgetDeps()
		d.budgets.recalculateFamilyFn = func(_ context.Context, familyID string) (*services.RepairResult, error) {
			return &services.RepairResult{FamilyID: familyID, Total: 3, Recalculated: 2, Failed: 1}, nil
		}

		rec := doRequest(d.router(), "POST", "/families/"+testFamilyID+"/budgets/recalculate", "")

		require.Equal(t, http.StatusOK, rec.Code)
		result := parseJSON(t, rec)["result"].(map[string]interface{})
		assert.EqualValues(t, 3, result["total"])
		assert.EqualValues(t, 1, result["failed"])
		assert.Equal(t, []string{services.AuditRepairFamily}, d.audit.actions())
	})
}

func TestBudgetHandler_GetSummary(t *testing.T) {
	t.Run("defaults to monthly", func(t *testing.T) {
		d := newBudgetDeps()
		var got services.SummaryQuery
		d.alerts.summaryFn = func(_ context.Context, _ string, q services.SummaryQuery) (*services.BudgetSummary, error) {
			got = q
			return &services.BudgetSummary{
				Period:      string(q.Period),
				TotalBudget: decimal.NewFromInt(500),
				TotalSpent:  decimal.NewFromInt(450),
				Alerts: []services.Alert{{
					CategoryName: "Dining",
					Severity:     services.AlertSeverityMedium,
					Message:      "Dining budget usage has reached 90.0%",
				}},
				NewNotifications: 1,
			}, nil
		}

		rec := doRequest(d.router(), "GET", "/budgets/summary", "")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, models.BudgetPeriodMonthly, got.Period)
		assert.Nil(t, got.FamilyID)
		assert.Zero(t, got.Year)
		assert.Zero(t, got.Month)

		summary := parseJSON(t, rec)["summary"].(map[string]interface{})
		assert.Equal(t, "monthly", summary["period"])
		alerts := summary["alerts"].([]interface{})
		require.Len(t, alerts, 1)
		assert.Equal(t, "medium", alerts[0].(map[string]interface{})["severity"])
		assert.EqualValues(t, 1, summary["new_notifications"])
	})

	t.Run("passes query", func(t *testing.T) {
		d := newBudgetDeps()
		var got services.SummaryQuery
		d.alerts.summaryFn = func(_ context.Context, _ string, q services.SummaryQuery) (*services.BudgetSummary, error) {
			got = q
			return &services.BudgetSummary{}, nil
		}

		rec := doRequest(d.router(), "GET", "/budgets/summary?family_id="+testFamilyID+"&period=quarterly&year=2024&month=5", "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got.FamilyID)
		assert.Equal(t, testFamilyID, *got.FamilyID)
		assert.Equal(t, models.BudgetPeriodQuarterly, got.Period)
		assert.Equal(t, 2024, got.Year)
		assert.Equal(t, 5, got.Month)
	})

	t.Run("returns 400 on bad period", func(t *testing.T) {
		d := newBudgetDeps()

		rec := doRequest(d.router(), "GET", "/budgets/summary?period=daily", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_PERIOD")
	})

	t.Run("returns 403 for outsider", func(t *testing.T) {
		d := newBudgetDeps()
		d.alerts.summaryFn = func(_ context.Context, _ string, _ services.SummaryQuery) (*services.BudgetSummary, error) {
			return nil, apperrors.ErrNotFamilyMember
		}

		rec := doRequest(d.router(), "GET", "/budgets/summary?family_id="+testFamilyID, "")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
