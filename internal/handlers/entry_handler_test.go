package handlers

import (
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

type mockLedgerService struct {
	createEntryFn      func(userID, familyID string, in services.EntryInput) (*models.LedgerEntry, error)
	updateEntryFn      func(userID, entryID string, in services.EntryUpdate) (*models.LedgerEntry, error)
	deleteEntryFn      func(userID, entryID string) error
	getEntryByIDFn     func(userID, entryID string) (*models.LedgerEntry, error)
	getFamilyEntriesFn func(userID, familyID string, page pagination.PageRequest, filter services.EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error)
}

func (m *mockLedgerService) SumExpense(_, _ string, _, _ time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *mockLedgerService) CreateEntry(userID, familyID string, in services.EntryInput) (*models.LedgerEntry, error) {
	if m.createEntryFn != nil {
		return m.createEntryFn(userID, familyID, in)
	}
	return &models.LedgerEntry{Base: models.Base{ID: testEntryID}}, nil
}

func (m *mockLedgerService) UpdateEntry(userID, entryID string, in services.EntryUpdate) (*models.LedgerEntry, error) {
	if m.updateEntryFn != nil {
		return m.updateEntryFn(userID, entryID, in)
	}
	return &models.LedgerEntry{Base: models.Base{ID: entryID}}, nil
}

func (m *mockLedgerService) DeleteEntry(userID, entryID string) error {
	if m.deleteEntryFn != nil {
		return m.deleteEntryFn(userID, entryID)
	}
	return nil
}

func (m *mockLedgerService) GetEntryByID(userID, entryID string) (*models.LedgerEntry, error) {
	if m.getEntryByIDFn != nil {
		return m.getEntryByIDFn(userID, entryID)
	}
	return &models.LedgerEntry{Base: models.Base{ID: entryID}}, nil
}

func (m *mockLedgerService) GetFamilyEntries(userID, familyID string, page pagination.PageRequest, filter services.EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error) {
	if m.getFamilyEntriesFn != nil {
		return m.getFamilyEntriesFn(userID, familyID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.LedgerEntry{}, 1, 20, 0)
	return &resp, nil
}

var _ services.LedgerServicer = (*mockLedgerService)(nil)

func setupEntryRouter(handler *EntryHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/families/:id/entries", handler.CreateEntry)
	auth.GET("/families/:id/entries", handler.GetEntries)
	auth.GET("/entries/:id", handler.GetEntry)
	auth.PUT("/entries/:id", handler.UpdateEntry)
	auth.DELETE("/entries/:id", handler.DeleteEntry)
	return r
}

func TestEntryHandler_CreateEntry(t *testing.T) {
	t.Run("returns 201 and audits", func(t *testing.T) {
		var got services.EntryInput
		var gotFamily string
		svc := &mockLedgerService{
			createEntryFn: func(_, familyID string, in services.EntryInput) (*models.LedgerEntry, error) {
				got, gotFamily = in, familyID
				return &models.LedgerEntry{
					Base:     models.Base{ID: testEntryID},
					FamilyID: familyID,
					Type:     in.Type,
					Amount:   in.Amount,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupEntryRouter(NewEntryHandler(svc, audit))

		rec := doRequest(r, "POST", "/families/"+testFamilyID+"/entries",
			`{"category_id":"`+testCatID+`","type":"expense","amount":"42.50","description":"Dinner","date":"2024-06-10"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, testFamilyID, gotFamily)
		assert.Equal(t, models.EntryTypeExpense, got.Type)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString("42.50")))
		require.NotNil(t, got.CategoryID)
		assert.Equal(t, testCatID, *got.CategoryID)
		assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), got.Date)
		assert.Equal(t, []string{services.AuditCreateEntry}, audit.actions())
	})

	t.Run("accepts RFC3339 dates", func(t *testing.T) {
		var got time.Time
		svc := &mockLedgerService{
			createEntryFn: func(_, _ string, in services.EntryInput) (*models.LedgerEntry, error) {
				got = in.Date
				return &models.LedgerEntry{Base: models.Base{ID: testEntryID}}, nil
			},
		}
		r := setupEntryRouter(NewEntryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/families/"+testFamilyID+"/entries",
			`{"type":"income","amount":1000,"date":"2024-06-10T18:30:00Z"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, time.Date(2024, 6, 10, 18, 30, 0, 0, time.UTC), got)
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupEntryRouter(NewEntryHandler(&mockLedgerService{}, audit))

		rec := doRequest(r, "POST", "/families/"+testFamilyID+"/entries",
			`{"type":"expense","amount":"10","date":"10/06/2024"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		assert.Empty(t, audit.actions())
	})

	t.Run("returns 400 on bad type", func(t *testing.T) {
		r := setupEntryRouter(NewEntryHandler(&mockLedgerService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/families/"+testFamilyID+"/entries", `{"type":"transfer","amount":"10"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 403 for non-member", func(t *testing.T) {
		svc := &mockLedgerService{
			createEntryFn: func(_, _ string, _ services.EntryInput) (*models.LedgerEntry, error) {
				return nil, apperrors.ErrNotFamilyMember
			},
		}
		audit := &mockAuditService{}
		r := setupEntryRouter(NewEntryHandler(svc, audit))

		rec := doRequest(r, "POST", "/families/"+testFamilyID+"/entries", `{"type":"expense","amount":"10"}`)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assertErrorCode(t, parseJSON(t, rec), "NOT_FAMILY_MEMBER")
		assert.Empty(t, audit.actions())
	})
}

func TestEntryHandler_GetEntries(t *testing.T) {
	t.Run("passes filters and pagination", func(t *testing.T) {
		var gotFilter services.EntryFilter
		var gotPage pagination.PageRequest
		svc := &mockLedgerService{
			getFamilyEntriesFn: func(_, _ string, page pagination.PageRequest, filter services.EntryFilter) (*pagination.PageResponse[models.LedgerEntry], error) {
				gotFilter, gotPage = filter, page
				resp := pagination.NewPageResponse([]models.LedgerEntry{{Base: models.Base{ID: testEntryID}}}, 2, 5, 6)
				return &resp, nil
			},
		}
		r := setupEntryRouter(NewEntryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/families/"+testFamilyID+"/entries?from_date=2024-06-01&to_date=2024-06-30&type=expense&category_id="+testCatID+"&page=2&page_size=5", "")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 2, gotPage.Page)
		assert.Equal(t, 5, gotPage.PageSize)
		require.NotNil(t, gotFilter.FromDate)
		require.NotNil(t, gotFilter.ToDate)
		assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), *gotFilter.ToDate)
		require.NotNil(t, gotFilter.Type)
		assert.Equal(t, models.EntryTypeExpense, *gotFilter.Type)
		require.NotNil(t, gotFilter.CategoryID)
		assert.Equal(t, testCatID, *gotFilter.CategoryID)

		body := parseJSON(t, rec)
		assert.EqualValues(t, 6, body["total_items"])
		assert.EqualValues(t, 2, body["total_pages"])
	})

	badQueries := map[string]string{
		"from_date":   "from_date=yesterday",
		"to_date":     "to_date=2024-13-01",
		"type":        "type=transfer",
		"category_id": "category_id=42",
		"page_size":   "page_size=500",
	}
	for name, q := range badQueries {
		t.Run("returns 400 on bad "+name, func(t *testing.T) {
			r := setupEntryRouter(NewEntryHandler(&mockLedgerService{}, &mockAuditService{}))

			rec := doRequest(r, "GET", "/families/"+testFamilyID+"/entries?"+q, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}
}

func TestEntryHandler_GetEntry(t *testing.T) {
	t.Run("returns 404 when missing", func(t *testing.T) {
		svc := &mockLedgerService{
			getEntryByIDFn: func(_, _ string) (*models.LedgerEntry, error) {
				return nil, apperrors.ErrEntryNotFound
			},
		}
		r := setupEntryRouter(NewEntryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/entries/"+testEntryID, "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assertErrorCode(t, parseJSON(t, rec), "ENTRY_NOT_FOUND")
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupEntryRouter(NewEntryHandler(&mockLedgerService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/entries/abc", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEntryHandler_UpdateEntry(t *testing.T) {
	t.Run("passes optional fields", func(t *testing.T) {
		var got services.EntryUpdate
		svc := &mockLedgerService{
			updateEntryFn: func(_, entryID string, in services.EntryUpdate) (*models.LedgerEntry, error) {
				got = in
				return &models.LedgerEntry{Base: models.Base{ID: entryID}}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupEntryRouter(NewEntryHandler(svc, audit))

		rec := doRequest(r, "PUT", "/entries/"+testEntryID, `{"amount":"99.90","clear_category":true,"date":"2024-07-01"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotNil(t, got.Amount)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString("99.9")))
		assert.True(t, got.ClearCategory)
		assert.Nil(t, got.CategoryID)
		assert.Nil(t, got.Type)
		require.NotNil(t, got.Date)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *got.Date)
		assert.Equal(t, []string{services.AuditUpdateEntry}, audit.actions())
	})

	t.Run("returns service errors", func(t *testing.T) {
		svc := &mockLedgerService{
			updateEntryFn: func(_, _ string, _ services.EntryUpdate) (*models.LedgerEntry, error) {
				return nil, apperrors.ErrInvalidAmount
			},
		}
		audit := &mockAuditService{}
		r := setupEntryRouter(NewEntryHandler(svc, audit))

		rec := doRequest(r, "PUT", "/entries/"+testEntryID, `{"amount":"-1"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_AMOUNT")
		assert.Empty(t, audit.actions())
	})
}

func TestEntryHandler_DeleteEntry(t *testing.T) {
	t.Run("returns 200 and audits", func(t *testing.T) {
		var gotID string
		svc := &mockLedgerService{
			deleteEntryFn: func(_, entryID string) error {
				gotID = entryID
				return nil
			},
		}
		audit := &mockAuditService{}
		r := setupEntryRouter(NewEntryHandler(svc, audit))

		rec := doRequest(r, "DELETE", "/entries/"+testEntryID, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testEntryID, gotID)
		assert.Equal(t, []string{services.AuditDeleteEntry}, audit.actions())
	})

	t.Run("returns 404 when already deleted", func(t *testing.T) {
		svc := &mockLedgerService{
			deleteEntryFn: func(_, _ string) error { return apperrors.ErrEntryNotFound },
		}
		r := setupEntryRouter(NewEntryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/entries/"+testEntryID, "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
