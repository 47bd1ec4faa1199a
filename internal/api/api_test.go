package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fortune-report-api/internal/config"
	"fortune-report-api/internal/database"
	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "admin-secret"

// fakeAnalysisAPI mimics the remote analysis service and counts calls per path
type fakeAnalysisAPI struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeAnalysisAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	switch r.URL.Path {
	case "/analyze/features/":
		_, _ = w.Write([]byte(`{"features":"눈매가 길고 코가 곧음"}`))
	case "/face-teller2/":
		_, _ = w.Write([]byte(`{"summary":"**복이 많은 얼굴**","detail":"재물이 모입니다.<script>x</script>"}`))
	case "/new_year/base":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		_, _ = w.Write([]byte(`{"detail1":"## 첫째\n내용","detail2":"- 하나\n- 둘"}`))
	}
}

func (f *fakeAnalysisAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

type testEnv struct {
	router *gin.Engine
	stores map[string]*database.RecordStore
	remote *fakeAnalysisAPI
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(&config.Config{
		Mode:       "release",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db, nil) })

	remote := &fakeAnalysisAPI{calls: make(map[string]int)}
	server := httptest.NewServer(remote)
	t.Cleanup(server.Close)

	client := services.NewAnalysisClient(server.URL, 0)
	stores := make(map[string]*database.RecordStore)
	machines := make(map[string]*report.Machine)
	for _, d := range models.Domains() {
		stores[d.Name] = database.NewRecordStore(db, d.Store, nil)
		machines[d.Name] = report.NewMachine(d, stores[d.Name], client)
	}

	records := services.NewRecordService(stores, client)
	coupons := services.NewCouponService(database.NewCouponRepository(db))
	payments := services.NewPaymentService(database.NewPaymentOrderRepository(db), records, coupons, "https://fortune.example.com", "")

	r := gin.New()
	SetupRoutes(r, NewHandler(records, payments, coupons, machines, nil), testAdminKey)
	return &testEnv{router: r, stores: stores, remote: remote}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (e *testEnv) createFaceRecord(t *testing.T) string {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/face/records", map[string]string{"image_base64": "aW1hZ2U="})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.AnalysisRecord
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.ID
}

func decodeReport(t *testing.T, env envelope) ReportResponse {
	t.Helper()
	var resp ReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func TestHealthAndDomains(t *testing.T) {
	e := setupTestEnv(t)

	rec, _ := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := e.do(t, http.MethodGet, "/api/domains", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var domains []models.Domain
	require.NoError(t, json.Unmarshal(env.Data, &domains))
	assert.Len(t, domains, 4)
	assert.Equal(t, "couple", domains[0].Name)
}

func TestCreateRecord(t *testing.T) {
	e := setupTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/api/face/records", map[string]string{"image_base64": "aW1hZ2U="})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.AnalysisRecord
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "눈매가 길고 코가 곧음", created.Features)
	assert.Empty(t, created.ImageBase64)
	assert.Equal(t, 1, e.remote.count("/analyze/features/"))

	rec, _ = e.do(t, http.MethodPost, "/api/saju-love/records", map[string]interface{}{
		"input": map[string]string{"name": "", "birthDate": "2000-01-01", "gender": "male", "calendar": "solar"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/palm/records", map[string]string{"features": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReport_FreeTypeGeneratedOnce(t *testing.T) {
	e := setupTestEnv(t)
	id := e.createFaceRecord(t)
	path := "/api/face/records/" + id + "/reports/base"

	rec, env := e.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeReport(t, env)
	assert.Equal(t, report.StateReady, first.State)
	assert.True(t, first.Generated)
	assert.True(t, first.Paid)
	assert.Contains(t, first.HTML, `<div class="result-summary"><p><strong>복이 많은 얼굴</strong></p></div>`)
	assert.NotContains(t, first.HTML, "<script>")

	rec, env = e.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeReport(t, env)
	assert.False(t, second.Generated)
	assert.Equal(t, first.HTML, second.HTML)

	assert.Equal(t, 1, e.remote.count("/face-teller2/"))
}

func TestGetReport_PaywallThenPayment(t *testing.T) {
	e := setupTestEnv(t)
	id := e.createFaceRecord(t)
	path := "/api/face/records/" + id + "/reports/wealth"

	rec, env := e.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	locked := decodeReport(t, env)
	assert.Equal(t, report.StatePaywalled, locked.State)
	assert.Equal(t, 6900, locked.Price)
	assert.Contains(t, locked.HTML, `class="paywall"`)
	assert.Equal(t, 0, e.remote.count("/analyze/wealth"))

	rec, env = e.do(t, http.MethodPost, "/api/payments/orders", map[string]string{
		"domain": "face", "record_id": id, "report_type": "wealth",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var checkout services.Checkout
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.Equal(t, 6900, checkout.Amount)

	rec, _ = e.do(t, http.MethodPost, "/api/payments/confirm", map[string]interface{}{
		"payment_key": "pk_test", "order_id": checkout.OrderID, "amount": 6900,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = e.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unlocked := decodeReport(t, env)
	assert.Equal(t, report.StateReady, unlocked.State)
	assert.True(t, unlocked.Paid)
	assert.Contains(t, unlocked.HTML, "<h2>📙 들어가며 – 관상 재물 분석의 의미</h2>")
	assert.Contains(t, unlocked.HTML, "<ul><li>하나</li><li>둘</li></ul>")
	assert.Equal(t, 1, e.remote.count("/analyze/wealth"))

	rec, _ = e.do(t, http.MethodPost, "/api/payments/orders", map[string]string{
		"domain": "face", "record_id": id, "report_type": "wealth",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/face/records/"+id+"/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.PaymentOrder
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusPaid, orders[0].Status)
}

func TestPayments_Validation(t *testing.T) {
	e := setupTestEnv(t)
	id := e.createFaceRecord(t)

	rec, _ := e.do(t, http.MethodPost, "/api/payments/orders", map[string]string{"domain": "face"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/payments/orders", map[string]string{
		"domain": "face", "record_id": id, "report_type": "base",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/payments/confirm", map[string]interface{}{
		"payment_key": "pk", "order_id": "missing", "amount": 6900,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/payments/fail", map[string]string{"order_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReport_QueryRouteErrors(t *testing.T) {
	e := setupTestEnv(t)

	rec, env := e.do(t, http.MethodGet, "/api/face/report?type=wealth", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "URL에 id 또는 type이 없습니다.", env.Message)

	rec, env = e.do(t, http.MethodGet, "/api/face/report?id=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "분석 결과를 찾을 수 없습니다.", env.Message)
	assert.Contains(t, string(env.Data), "report-error")

	rec, _ = e.do(t, http.MethodGet, "/api/face/records/missing/reports/lotto", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReport_HTMLFormat(t *testing.T) {
	e := setupTestEnv(t)
	id := e.createFaceRecord(t)

	rec, _ := e.do(t, http.MethodGet, "/api/face/report?id="+id+"&type=love&format=html", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `class="paywall"`)
}

func TestGetReport_RemoteFailure(t *testing.T) {
	e := setupTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/api/new-year/records", map[string]interface{}{
		"input": map[string]string{"name": "박민수", "birthDate": "1988-11-02", "gender": "male", "calendar": "solar"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.AnalysisRecord
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env = e.do(t, http.MethodGet, "/api/new-year/records/"+created.ID+"/reports/base", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "보고서 생성 중 오류가 발생했습니다. 다시 시도해주세요.", env.Message)

	stored, err := e.stores["new-year"].Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Reports["base"].Data)
}

func TestGetReport_LegacyRecordMigrated(t *testing.T) {
	e := setupTestEnv(t)
	ctx := context.Background()

	require.NoError(t, e.stores["face"].Put(ctx, &models.AnalysisRecord{
		ID:       "legacy-1",
		Features: "features",
		Legacy: &models.LegacyFields{
			Analyzed:   true,
			Normalized: &models.ReportData{Summary: "옛 요약", Detail: "옛 본문"},
		},
	}))

	rec, env := e.do(t, http.MethodGet, "/api/face/records/legacy-1/reports/base", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeReport(t, env)
	assert.Equal(t, report.StateReady, resp.State)
	assert.Contains(t, resp.HTML, "옛 요약")
	assert.Equal(t, 0, e.remote.count("/face-teller2/"))

	stored, err := e.stores["face"].Get(ctx, "legacy-1")
	require.NoError(t, err)
	assert.Nil(t, stored.Legacy)
	assert.Equal(t, models.RecordVersionCurrent, stored.Version)
	assert.True(t, stored.Reports["base"].Paid)
}

func TestAdminGrant(t *testing.T) {
	e := setupTestEnv(t)
	id := e.createFaceRecord(t)
	path := "/api/admin/face/records/" + id + "/reports/career/paid"

	rec, _ := e.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = e.do(t, http.MethodPost, path, nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := e.do(t, http.MethodGet, "/api/face/records/"+id+"/reports/career", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.StateReady, decodeReport(t, env).State)
	assert.Equal(t, 1, e.remote.count("/analyze/career"))
}

func TestRecords_GetAndList(t *testing.T) {
	e := setupTestEnv(t)
	first := e.createFaceRecord(t)
	second := e.createFaceRecord(t)

	rec, env := e.do(t, http.MethodGet, "/api/face/records/"+first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.AnalysisRecord
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, first, got.ID)
	assert.Len(t, got.Reports, 6)

	rec, _ = e.do(t, http.MethodGet, "/api/face/records/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/face/records?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []RecordSummary
	require.NoError(t, json.Unmarshal(env.Data, &summaries))
	require.Len(t, summaries, 2)
	assert.ElementsMatch(t, []string{first, second}, []string{summaries[0].ID, summaries[1].ID})
	assert.Equal(t, SlotStatus{Paid: true, Generated: false}, summaries[0].Reports["base"])
	assert.Equal(t, SlotStatus{}, summaries[0].Reports["wealth"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{report.ErrMissingID, http.StatusBadRequest},
		{fmt.Errorf("%w: x", services.ErrInvalidInput), http.StatusBadRequest},
		{database.ErrRecordNotFound, http.StatusNotFound},
		{report.ErrRecordNotFound, http.StatusNotFound},
		{services.ErrAlreadyPaid, http.StatusConflict},
		{database.ErrCouponExists, http.StatusConflict},
		{database.ErrCouponNotFound, http.StatusNotFound},
		{database.ErrCouponExhausted, http.StatusBadRequest},
		{database.ErrCouponInactive, http.StatusBadRequest},
		{report.ErrMissingFeatures, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", report.ErrGenerationFailed, services.ErrRemoteCall), http.StatusBadGateway},
		{fmt.Errorf("%w: disk", database.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestCoupons_AdminAndFreeUnlock(t *testing.T) {
	e := setupTestEnv(t)
	id := e.createFaceRecord(t)
	admin := []string{"X-Admin-Key", testAdminKey}

	body := map[string]interface{}{
		"code": "welcome", "name": "첫 방문", "service_type": "face", "discount_type": "free", "total_quantity": 1,
	}
	rec, _ := e.do(t, http.MethodPost, "/api/admin/coupons", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/admin/coupons", body, admin...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = e.do(t, http.MethodPost, "/api/admin/coupons", body, admin...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env := e.do(t, http.MethodPost, "/api/coupons/validate", map[string]string{
		"code": "WELCOME", "domain": "face", "report_type": "wealth",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote services.CouponQuote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.True(t, quote.IsFree)
	assert.Equal(t, 6900, quote.Price)

	rec, env = e.do(t, http.MethodPost, "/api/payments/orders", map[string]string{
		"domain": "face", "record_id": id, "report_type": "wealth", "coupon_code": "welcome",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var checkout services.Checkout
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.True(t, checkout.Paid)

	rec, env = e.do(t, http.MethodGet, "/api/face/records/"+id+"/reports/wealth", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.StateReady, decodeReport(t, env).State)

	rec, _ = e.do(t, http.MethodPost, "/api/coupons/validate", map[string]string{"code": "WELCOME", "domain": "face"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/admin/coupons/usages?coupon_code=welcome", nil, admin...)
	require.Equal(t, http.StatusOK, rec.Code)
	var usages []models.CouponUsage
	require.NoError(t, json.Unmarshal(env.Data, &usages))
	require.Len(t, usages, 1)
	assert.Equal(t, id, usages[0].RecordID)

	rec, _ = e.do(t, http.MethodPatch, "/api/admin/coupons/welcome", map[string]bool{"is_active": false}, admin...)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, http.MethodPatch, "/api/admin/coupons/nope", map[string]bool{"is_active": false}, admin...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/admin/coupons", nil, admin...)
	require.Equal(t, http.StatusOK, rec.Code)
	var coupons []models.Coupon
	require.NoError(t, json.Unmarshal(env.Data, &coupons))
	require.Len(t, coupons, 1)
	assert.False(t, coupons[0].IsActive)
	assert.Equal(t, 0, coupons[0].RemainingQuantity)
}
