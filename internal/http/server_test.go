package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meifacil/internal/core"
	"meifacil/internal/plan"
	"meifacil/internal/services"
	"meifacil/internal/storage"
)

const (
	testSettingsID = "00000000-0000-0000-0000-000000000000"
	testProfileID  = "11111111-1111-1111-1111-111111111111"
)

func newTestServer(t *testing.T, entitlements plan.Entitlements) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "meifacil.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	txSvc := services.NewTransactionService(repo, entitlements)
	dashSvc := services.NewDashboardService(repo, entitlements, 8_100_000, testSettingsID)
	exportSvc := services.NewExportService(repo, nil, entitlements)

	s := NewServer(Config{
		Addr:             ":0",
		Entitlements:     entitlements,
		MeiSettingsID:    testSettingsID,
		CompanyProfileID: testProfileID,
	}, repo, txSvc, dashSvc, exportSvc)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	// Pin the clock so deadline math and filenames are stable.
	s.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func txPayload(date, desc string, cents int64, txType, category string) map[string]any {
	p := map[string]any{
		"date":        date,
		"description": desc,
		"amount":      cents,
		"type":        txType,
	}
	if category != "" {
		p["category"] = category
	}
	return p
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	if rec := doRequest(s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /readyz = %d, want 200", rec.Code)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	rec := doRequest(s, http.MethodPost, "/api/transactions",
		txPayload("2025-03-01", "Venda no balcão", 100000, "income", "Venda de Produtos"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/transactions = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[core.Transaction](t, rec)
	if created.ID == "" {
		t.Error("created transaction should carry its assigned ID")
	}

	rec = doRequest(s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/transactions = %d", rec.Code)
	}
	list := decodeBody[[]core.Transaction](t, rec)
	if len(list) != 1 || list[0].Description != "Venda no balcão" {
		t.Errorf("list = %+v", list)
	}

	rec = doRequest(s, http.MethodGet, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET by id = %d", rec.Code)
	}
	if got := decodeBody[core.Transaction](t, rec); got.ID != created.ID || got.Amount.Cents != 100000 {
		t.Errorf("GET by id = %+v", got)
	}

	if rec := doRequest(s, http.MethodGet, "/api/transactions/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown id = %d, want 404", rec.Code)
	}

	rec = doRequest(s, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", rec.Code)
	}

	// Deleting again still succeeds.
	rec = doRequest(s, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("second DELETE = %d, want 204", rec.Code)
	}
}

func TestCreateTransactionDecimalAmount(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	// Amounts may arrive as decimal strings, the way forms submit them.
	rec := doRequest(s, http.MethodPost, "/api/transactions", map[string]any{
		"date":        "2025-03-02",
		"description": "Venda à vista",
		"amount":      "150,75",
		"type":        "income",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST with decimal amount = %d, body %s", rec.Code, rec.Body.String())
	}
	if created := decodeBody[core.Transaction](t, rec); created.Amount.Cents != 15075 {
		t.Errorf("amount = %d cents, want 15075", created.Amount.Cents)
	}

	rec = doRequest(s, http.MethodPost, "/api/transactions", map[string]any{
		"date":        "2025-03-02",
		"description": "Venda",
		"amount":      "abc",
		"type":        "income",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST with malformed amount = %d, want 400", rec.Code)
	}
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing date", txPayload("", "Venda", 1000, "income", ""), http.StatusUnprocessableEntity},
		{"zero amount", txPayload("2025-03-01", "Venda", 0, "income", ""), http.StatusUnprocessableEntity},
		{"bad type", txPayload("2025-03-01", "Venda", 1000, "transfer", ""), http.StatusUnprocessableEntity},
		{"empty description", txPayload("2025-03-01", "  ", 1000, "income", ""), http.StatusUnprocessableEntity},
		{"unknown field", map[string]any{"date": "2025-03-01", "description": "x", "amount": 1, "type": "income", "bogus": true}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("POST = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestFreePlanLimitOverHTTP(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Free})

	// The free ledger cap surfaces as 403, not as a validation problem.
	for i := 0; i < plan.MaxFreeTransactions; i++ {
		rec := doRequest(s, http.MethodPost, "/api/transactions",
			txPayload("2025-03-01", "Venda", 1000, "income", ""))
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST %d = %d", i, rec.Code)
		}
	}
	rec := doRequest(s, http.MethodPost, "/api/transactions",
		txPayload("2025-03-01", "Venda", 1000, "income", ""))
	if rec.Code != http.StatusForbidden {
		t.Errorf("POST over cap = %d, want 403", rec.Code)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Free})

	rec := doRequest(s, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/categories = %d", rec.Code)
	}
	cats := decodeBody[map[string][]string](t, rec)
	if len(cats["income"]) != 6 || len(cats["expense"]) != 13 {
		t.Errorf("categories = %d income, %d expense", len(cats["income"]), len(cats["expense"]))
	}
}

func TestSummaryEndpointInvalidation(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	rec := doRequest(s, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/summary = %d", rec.Code)
	}
	before := decodeBody[services.DashboardSummary](t, rec)
	if before.TotalIncome.Cents != 0 {
		t.Errorf("empty ledger income = %d", before.TotalIncome.Cents)
	}

	doRequest(s, http.MethodPost, "/api/transactions",
		txPayload("2025-03-01", "Venda", 100000, "income", "Venda de Produtos"))

	// A write must invalidate the cached summary.
	rec = doRequest(s, http.MethodGet, "/api/summary", nil)
	after := decodeBody[services.DashboardSummary](t, rec)
	if after.TotalIncome.Cents != 100000 {
		t.Errorf("income after create = %d, want 100000", after.TotalIncome.Cents)
	}
	if after.RevenueCap.Status != "ok" {
		t.Errorf("revenue cap status = %q", after.RevenueCap.Status)
	}
	if after.RevenueCapDisplay != "R$1.000,00 de R$81.000,00" {
		t.Errorf("revenue cap display = %q", after.RevenueCapDisplay)
	}
}

func TestRunReportEndpoint(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	seed := []map[string]any{
		txPayload("2025-03-01", "Venda de bolos", 100000, "income", "Venda de Produtos"),
		txPayload("2025-03-15", "Aluguel da loja", 20000, "expense", "Aluguel (Espaço/Equipamento)"),
		txPayload("2024-12-05", "Venda antiga", 50000, "income", "Venda de Produtos"),
	}
	for _, p := range seed {
		if rec := doRequest(s, http.MethodPost, "/api/transactions", p); rec.Code != http.StatusCreated {
			t.Fatalf("seed POST = %d", rec.Code)
		}
	}

	// Default run: the session opens on the current year (2025 per pinned clock).
	rec := doRequest(s, http.MethodPost, "/api/reports/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/reports/run = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[runReportResponse](t, rec)
	if len(resp.Transactions) != 2 {
		t.Errorf("default run returned %d transactions, want 2 (2025 only)", len(resp.Transactions))
	}
	if len(resp.Summary.Monthly) != 1 || resp.Summary.Monthly[0].Month != "mar/2025" {
		t.Errorf("monthly summary = %+v", resp.Summary.Monthly)
	}

	// Explicit filters narrow the run.
	min := int64(60000)
	rec = doRequest(s, http.MethodPost, "/api/reports/run", runReportRequest{
		Filters: &core.ReportFilters{AmountMinCents: &min},
	})
	resp = decodeBody[runReportResponse](t, rec)
	if len(resp.Transactions) != 1 || resp.Transactions[0].Description != "Venda de bolos" {
		t.Errorf("filtered run = %+v", resp.Transactions)
	}
}

func TestRunReportRequiresProAccess(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Free})

	rec := doRequest(s, http.MethodPost, "/api/reports/run", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("POST /api/reports/run on free plan = %d, want 403", rec.Code)
	}
}

func TestReportConfigCRUD(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	cfg := core.SavedReportConfig{
		ReportName:        "Relatório Mensal",
		Filters:           core.FullYear(2025),
		SelectedFields:    core.DefaultSelectedFields,
		VisualizationType: core.VisualizationTable,
	}

	rec := doRequest(s, http.MethodPost, "/api/report-configs", cfg)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/report-configs = %d, body %s", rec.Code, rec.Body.String())
	}
	saved := decodeBody[core.SavedReportConfig](t, rec)
	if saved.ID == "" {
		t.Fatal("saved config should carry its assigned ID")
	}

	saved.ReportName = "Relatório Anual"
	rec = doRequest(s, http.MethodPut, "/api/report-configs/"+saved.ID, saved)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/api/report-configs", nil)
	configs := decodeBody[[]core.SavedReportConfig](t, rec)
	if len(configs) != 1 || configs[0].ReportName != "Relatório Anual" {
		t.Errorf("configs = %+v", configs)
	}

	rec = doRequest(s, http.MethodDelete, "/api/report-configs/"+saved.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/report-configs", nil)
	if configs := decodeBody[[]core.SavedReportConfig](t, rec); len(configs) != 0 {
		t.Errorf("configs after delete = %+v", configs)
	}
}

func TestReportConfigValidation(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	rec := doRequest(s, http.MethodPost, "/api/report-configs", core.SavedReportConfig{
		SelectedFields:    core.DefaultSelectedFields,
		VisualizationType: core.VisualizationTable,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST without report name = %d, want 422", rec.Code)
	}
}

func TestExportCSVEndpoint(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	doRequest(s, http.MethodPost, "/api/transactions",
		txPayload("2025-03-01", "Venda", 100050, "income", "Venda de Produtos"))

	rec := doRequest(s, http.MethodGet, "/api/export/csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/export/csv = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "mei_facil_transacoes_2025-03-10.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Descrição") || !strings.Contains(body, "1000.50") {
		t.Errorf("csv body = %q", body)
	}
}

func TestExportSheetsEndpoint(t *testing.T) {
	free := newTestServer(t, plan.Entitlements{Plan: plan.Free})
	if rec := doRequest(free, http.MethodPost, "/api/export/sheets", nil); rec.Code != http.StatusForbidden {
		t.Errorf("free plan export = %d, want 403", rec.Code)
	}

	paid := newTestServer(t, plan.Entitlements{Plan: plan.Paid})
	rec := doRequest(paid, http.MethodPost, "/api/export/sheets", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/export/sheets = %d, body %s", rec.Code, rec.Body.String())
	}
	job := decodeBody[storage.ExportJob](t, rec)
	if job.Status != storage.ExportPending {
		t.Errorf("job status = %q, want pending", job.Status)
	}

	rec = doRequest(paid, http.MethodGet, "/api/export/jobs/"+job.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET job = %d", rec.Code)
	}

	rec = doRequest(paid, http.MethodGet, "/api/export/jobs/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown job = %d, want 404", rec.Code)
	}
}

func TestDASSettingsEndpoints(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Free})

	rec := doRequest(s, http.MethodGet, "/api/settings/das", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/settings/das = %d", rec.Code)
	}
	got := decodeBody[dasSettingsResponse](t, rec)
	if got.DASPaidThisMonth {
		t.Error("fresh settings should have the paid flag unset")
	}
	if got.DAS.Status != "upcoming" || got.DAS.DaysRemaining != 10 {
		t.Errorf("DAS = %+v", got.DAS)
	}

	rec = doRequest(s, http.MethodPut, "/api/settings/das", dasSettingsRequest{Paid: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/settings/das = %d, body %s", rec.Code, rec.Body.String())
	}
	got = decodeBody[dasSettingsResponse](t, rec)
	if !got.DASPaidThisMonth || got.DAS.Status != "paid" {
		t.Errorf("after PUT = %+v", got)
	}
}

func TestCompanyProfileEndpoints(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Free})

	if rec := doRequest(s, http.MethodGet, "/api/company-profile", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET unset profile = %d, want 404", rec.Code)
	}

	rec := doRequest(s, http.MethodPut, "/api/company-profile", storage.CompanyProfile{
		CNPJ:        "12.345.678/0001-90",
		RazaoSocial: "Maria Doces MEI",
		Cidade:      "São Paulo",
		UF:          "SP",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/company-profile = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/api/company-profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET profile = %d", rec.Code)
	}
	profile := decodeBody[storage.CompanyProfile](t, rec)
	if profile.ID != testProfileID || profile.RazaoSocial != "Maria Doces MEI" {
		t.Errorf("profile = %+v", profile)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Paid})

	var last int
	for i := 0; i < 61; i++ {
		rec := doRequest(s, http.MethodPost, "/api/transactions", map[string]any{})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st mutating request = %d, want 429", last)
	}

	// Reads stay unthrottled.
	if rec := doRequest(s, http.MethodGet, "/api/transactions", nil); rec.Code != http.StatusOK {
		t.Errorf("GET after limit = %d, want 200", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, plan.Entitlements{Plan: plan.Free})

	rec := doRequest(s, http.MethodGet, "/healthz", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("Content-Security-Policy should be set")
	}
}
