package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository/memory"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/service"
	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/middleware"
)

const testSecret = "test-secret"

type testServer struct {
	router     *gin.Engine
	catalog    *service.CatalogService
	pharmacies *service.PharmacyService
	inventory  *service.InventoryService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	drugs := memory.NewDrugRepository()
	catalog := service.NewCatalogService(drugs, logger)
	pharmacies := service.NewPharmacyService(memory.NewPharmacyRepository(), logger)
	inventory := service.NewInventoryService(memory.NewInventoryRepository(), drugs, service.DefaultMaxWriteRetries, logger)
	match := service.NewMatchService(catalog, pharmacies, inventory, service.MatchConfig{}, logger)

	router := NewRouter(Handlers{
		Search:    NewSearchHandler(match, logger),
		Drug:      NewDrugHandler(catalog, logger),
		Pharmacy:  NewPharmacyHandler(pharmacies, logger),
		Inventory: NewInventoryHandler(inventory, pharmacies, logger),
	}, testSecret, logger)

	return &testServer{router: router, catalog: catalog, pharmacies: pharmacies, inventory: inventory}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := middleware.SignToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_SearchValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/search?term=tylenol", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "origin is required")

	w = s.do(t, http.MethodGet, "/api/v1/search?lat=0&lng=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty query")

	w = s.do(t, http.MethodGet, "/api/v1/search?term=x&lat=abc&lng=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/search?term=x&lat=0&lng=0&page=9223372036854775807", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/search?term=nothing&lat=0&lng=0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[domain.SearchResponse](t, w)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, 0, resp.TotalCount)
}

func TestRouter_AuthAndRoles(t *testing.T) {
	s := newTestServer(t)
	drug := domain.DrugRequest{Name: "Tylenol", Category: domain.CategoryAnalgesics, Form: domain.FormTablet}

	w := s.do(t, http.MethodPost, "/api/v1/drugs", "", drug)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/drugs", "not-a-token", drug)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/drugs", token(t, "u1", middleware.RolePatient), drug)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/pharmacy/profile", token(t, "admin-1", middleware.RoleAdmin), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/drugs", token(t, "admin-1", middleware.RoleAdmin), drug)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_DrugCatalog(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "admin-1", middleware.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/v1/drugs", admin, domain.DrugRequest{Name: "Tylenol", Category: "unknown", Form: domain.FormTablet})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/drugs", admin, domain.DrugRequest{Name: "Tylenol", Category: domain.CategoryAnalgesics, Form: domain.FormTablet})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Drug](t, w)

	w = s.do(t, http.MethodGet, "/api/v1/drugs/"+created.DrugID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/drugs?term=tyl", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Drugs      []domain.Drug `json:"drugs"`
		TotalCount int           `json:"total_count"`
	}](t, w)
	assert.Equal(t, 1, list.TotalCount)

	w = s.do(t, http.MethodDelete, "/api/v1/drugs/"+created.DrugID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/drugs/"+created.DrugID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/drugs/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_PharmacyOnboardingToSearch(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "admin-1", middleware.RoleAdmin)
	owner := token(t, "owner-1", middleware.RolePharmacist)

	w := s.do(t, http.MethodPost, "/api/v1/drugs", admin, domain.DrugRequest{Name: "Tylenol", Category: domain.CategoryAnalgesics, Form: domain.FormTablet})
	require.Equal(t, http.StatusCreated, w.Code)
	drug := decode[domain.Drug](t, w)

	w = s.do(t, http.MethodGet, "/api/v1/pharmacy/profile", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/pharmacy/profile", owner, domain.PharmacyProfile{Name: "Corner Pharmacy", LicenseNumber: "LIC-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	pharmacy := decode[domain.Pharmacy](t, w)
	assert.Equal(t, domain.StatusDraft, pharmacy.Status)

	w = s.do(t, http.MethodPost, "/api/v1/pharmacy/profile", owner, domain.PharmacyProfile{Name: "Again", LicenseNumber: "LIC-2"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/pharmacy/location", owner, map[string]float64{"lat": 37.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/pharmacy/location", owner, map[string]float64{"lat": 0, "lng": 0})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/pharmacy/submit", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "a certificate is required")

	w = s.do(t, http.MethodPost, "/api/v1/pharmacy/certificates", owner, domain.CertificateRequest{Name: "license", FileRef: "files/lic.pdf"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/pharmacy/submit", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/admin/pharmacies?status=pending_approval", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	queue := decode[struct {
		Count int `json:"count"`
	}](t, w)
	assert.Equal(t, 1, queue.Count)

	w = s.do(t, http.MethodPut, "/api/v1/admin/pharmacies/"+pharmacy.PharmacyID+"/reject", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/admin/pharmacies/"+pharmacy.PharmacyID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	approved := decode[domain.Pharmacy](t, w)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	assert.Equal(t, "admin-1", approved.ApprovedBy)

	w = s.do(t, http.MethodPut, "/api/v1/admin/pharmacies/"+pharmacy.PharmacyID+"/approve", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/pharmacy/profile", owner, domain.PharmacyProfile{Name: "Renamed", LicenseNumber: "LIC-1"})
	assert.Equal(t, http.StatusConflict, w.Code, "approved profiles are immutable")

	stock := map[string]interface{}{
		"drug_id":          drug.DrugID,
		"quantity":         10,
		"price":            100,
		"discount_percent": 10,
		"expiry_date":      time.Now().AddDate(1, 0, 0).Format(time.RFC3339),
	}
	w = s.do(t, http.MethodPost, "/api/v1/inventory", owner, stock)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/inventory", owner, stock)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/search?term=tylenol&lat=0&lng=0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[domain.SearchResponse](t, w)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 90.0, resp.Results[0].EffectivePrice)
	assert.Equal(t, "Corner Pharmacy", resp.Results[0].PharmacyName)

	w = s.do(t, http.MethodGet, "/api/v1/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_InventoryWrites(t *testing.T) {
	s := newTestServer(t)
	owner := token(t, "owner-1", middleware.RolePharmacist)
	ctx := context.Background()

	drug, err := s.catalog.Create(ctx, domain.DrugRequest{Name: "Advil", Category: domain.CategoryAnalgesics, Form: domain.FormTablet})
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/v1/inventory", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no pharmacy yet")

	p, err := s.pharmacies.Create(ctx, "owner-1", domain.PharmacyProfile{Name: "Corner", LicenseNumber: "LIC-1"})
	require.NoError(t, err)
	_, err = s.inventory.UpsertNew(ctx, p.PharmacyID, drug.DrugID, domain.InventoryAttributes{Quantity: 20, Price: 10, ExpiryDate: time.Now().AddDate(1, 0, 0)})
	require.NoError(t, err)

	base := "/api/v1/inventory/" + drug.DrugID

	w = s.do(t, http.MethodPost, base+"/adjust", owner, domain.AdjustQuantityRequest{Delta: -5, Version: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 15, decode[domain.InventoryRecord](t, w).Quantity)

	w = s.do(t, http.MethodPost, base+"/adjust", owner, domain.AdjustQuantityRequest{Delta: -5, Version: 1})
	assert.Equal(t, http.StatusConflict, w.Code, "stale version")

	w = s.do(t, http.MethodPost, base+"/adjust", owner, domain.AdjustQuantityRequest{Delta: -50, Version: 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, base+"/restock", owner, domain.RestockRequest{Quantity: 5})
	require.Equal(t, http.StatusOK, w.Code)
	restocked := decode[domain.InventoryRecord](t, w)
	assert.Equal(t, 20, restocked.Quantity)
	assert.NotNil(t, restocked.LastRestockedAt)

	w = s.do(t, http.MethodPut, base+"/pricing", owner, map[string]float64{"price": 10, "discount_percent": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, base+"/pricing", owner, map[string]float64{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing price fields are rejected")

	w = s.do(t, http.MethodPut, base+"/pricing", owner, map[string]float64{"price": 12})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, base+"/pricing", owner, map[string]float64{"price": 12, "discount_percent": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12.0, decode[domain.InventoryRecord](t, w).Price)

	w = s.do(t, http.MethodPut, base+"/availability", owner, map[string]bool{"is_available": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[domain.InventoryRecord](t, w).IsAvailable)

	w = s.do(t, http.MethodPut, base+"/levels", owner, map[string]int{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, base+"/levels", owner, map[string]int{"min_stock_level": 50, "max_stock_level": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, base+"/levels", owner, map[string]int{"min_stock_level": 25, "max_stock_level": 100})
	require.Equal(t, http.StatusOK, w.Code)

	record, err := s.inventory.Get(ctx, p.PharmacyID, drug.DrugID)
	require.NoError(t, err)
	assert.Equal(t, 12.0, record.Price)
	assert.Equal(t, 25, record.MinStockLevel)

	w = s.do(t, http.MethodGet, "/api/v1/inventory/low-stock", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	low := decode[struct {
		Count int `json:"count"`
	}](t, w)
	assert.Equal(t, 1, low.Count)

	w = s.do(t, http.MethodPut, "/api/v1/inventory/missing/pricing", owner, map[string]float64{"price": 1, "discount_percent": 0})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
