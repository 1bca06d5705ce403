package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/facturacr/facturacr/internal/clave"
	"github.com/facturacr/facturacr/internal/clock"
	"github.com/facturacr/facturacr/internal/config"
	"github.com/facturacr/facturacr/internal/document"
	"github.com/facturacr/facturacr/internal/migration"
	"github.com/facturacr/facturacr/internal/observability"
	"github.com/facturacr/facturacr/internal/ratelimit"
	"github.com/facturacr/facturacr/internal/series"
	"github.com/facturacr/facturacr/internal/server"
	"github.com/facturacr/facturacr/internal/tenant"
	"github.com/facturacr/facturacr/pkg/db"
)

type testEnv struct {
	app     *fx.App
	server  *server.Server
	db      *gorm.DB
	baseURL string
	httpSrv *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func setDefaultEnv() {
	defaults := map[string]string{
		"ENVIRONMENT":   "test",
		"DATABASE_TYPE": "sqlite",
		"DATABASE_NAME": "file::memory:?cache=shared",
		"REDIS_ADDR":    "",
		"OTEL_ENABLED":  "false",
		"LOG_LEVEL":     "error",
	}
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, value)
		}
	}
}

func startEnv() (*testEnv, error) {
	var (
		srv    *server.Server
		dbConn *gorm.DB
	)

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),

		db.Module,
		clock.Module,
		tenant.Module,
		series.Module,
		clave.Module,
		document.Module,
		ratelimit.Module,
		migration.Module,

		fx.Populate(&srv, &dbConn),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(srv.Engine())

	return &testEnv{
		app:     app,
		server:  srv,
		db:      dbConn,
		baseURL: httpSrv.URL,
		httpSrv: httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.app.Stop(ctx)
	}
}

func resetDatabase(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	for _, table := range []string{
		"document_references",
		"document_other_charges",
		"document_exemptions",
		"document_tax_lines",
		"document_discounts",
		"document_lines",
		"documents",
		"series_counters",
		"tenants",
	} {
		if err := dbConn.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("reset table %s: %v", table, err)
		}
	}
}

func doJSON(t *testing.T, method, reqURL string, payload any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, reqURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, raw
}

func provisionTenant(t *testing.T) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/admin/tenants", map[string]any{
		"name":           fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		"identification": "3101123456",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201 for tenant create, got %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode tenant create response: %v", err)
	}
	if payload.APIKey == "" {
		t.Fatal("expected an api key in the tenant create response")
	}
	return payload.APIKey
}

func authHeader(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

type documentView struct {
	Clave       string
	Consecutivo string
	DocType     string
	Status      string
	NetTotal    decimal.Decimal
	TaxTotal    decimal.Decimal
	GrandTotal  decimal.Decimal
	Lines       []struct {
		LineNumber int
		NetAmount  decimal.Decimal
	}
}

func ticketPayload() map[string]any {
	return map[string]any{
		"doc_type":       "04",
		"sale_condition": "01",
		"payment_method": "01",
		"currency_code":  "CRC",
		"exchange_rate":  "1",
		"lines": []map[string]any{
			{
				"cabys_code":      "8399000000000",
				"description":     "Servicio profesional",
				"unit_of_measure": "Sp",
				"quantity":        "1",
				"unit_price":      "10000",
				"taxes":           []map[string]any{{"code": "01", "tariff": "08"}},
			},
		},
	}
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_APIKeyAuthentication(t *testing.T) {
	resetDatabase(t, env.db)
	apiKey := provisionTenant(t)

	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/admin/tenants/me", nil, authHeader(apiKey))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for tenants/me, got %d: %s", resp.StatusCode, string(body))
	}

	resp, _ = doJSON(t, http.MethodGet, env.baseURL+"/admin/tenants/me", nil, authHeader("1.invalid"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for invalid api key, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, env.baseURL+"/admin/tenants/me", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without api key, got %d", resp.StatusCode)
	}
}

func TestE2E_DocumentLifecycle(t *testing.T) {
	resetDatabase(t, env.db)
	apiKey := provisionTenant(t)

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/documents", ticketPayload(), authHeader(apiKey))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201 for document create, got %d: %s", resp.StatusCode, string(body))
	}

	var created struct {
		Data documentView `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	doc := created.Data

	if len(doc.Clave) != 50 {
		t.Fatalf("expected a 50-digit clave, got %d digits: %s", len(doc.Clave), doc.Clave)
	}
	if doc.Clave[:3] != "506" {
		t.Fatalf("expected clave to start with country code 506, got %s", doc.Clave[:3])
	}
	if doc.Consecutivo != "00100000010400000001" {
		t.Fatalf("expected first ticket consecutive 00100000010400000001, got %s", doc.Consecutivo)
	}
	if doc.Clave[21:41] != doc.Consecutivo {
		t.Fatalf("expected clave to embed the consecutive, got %s inside %s", doc.Consecutivo, doc.Clave)
	}
	if doc.Status != "BORRADOR" {
		t.Fatalf("expected status BORRADOR, got %s", doc.Status)
	}
	if !doc.NetTotal.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected net total 10000, got %s", doc.NetTotal)
	}
	if !doc.TaxTotal.Equal(decimal.NewFromInt(1300)) {
		t.Fatalf("expected tax total 1300 at 13%%, got %s", doc.TaxTotal)
	}
	if !doc.GrandTotal.Equal(decimal.NewFromInt(11300)) {
		t.Fatalf("expected grand total 11300, got %s", doc.GrandTotal)
	}

	// Consecutive numbers advance monotonically per series.
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/api/v1/documents", ticketPayload(), authHeader(apiKey))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201 for second create, got %d: %s", resp.StatusCode, string(body))
	}
	var second struct {
		Data documentView `json:"data"`
	}
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode second create response: %v", err)
	}
	if second.Data.Consecutivo != "00100000010400000002" {
		t.Fatalf("expected second consecutive 00100000010400000002, got %s", second.Data.Consecutivo)
	}
	if second.Data.Clave == doc.Clave {
		t.Fatal("expected distinct claves for distinct documents")
	}

	// Lookup by clave returns the same document.
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/api/v1/claves/"+doc.Clave, nil, authHeader(apiKey))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for clave lookup, got %d: %s", resp.StatusCode, string(body))
	}
	var byClave struct {
		Data documentView `json:"data"`
	}
	if err := json.Unmarshal(body, &byClave); err != nil {
		t.Fatalf("decode clave lookup response: %v", err)
	}
	if byClave.Data.Consecutivo != doc.Consecutivo {
		t.Fatalf("expected consecutive %s, got %s", doc.Consecutivo, byClave.Data.Consecutivo)
	}

	// Listing is newest-first.
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/api/v1/documents?doc_type=04", nil, authHeader(apiKey))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for document list, got %d: %s", resp.StatusCode, string(body))
	}
	var listed struct {
		Data []documentView `json:"data"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed.Data) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(listed.Data))
	}
	if listed.Data[0].Consecutivo != "00100000010400000002" {
		t.Fatalf("expected newest document first, got %s", listed.Data[0].Consecutivo)
	}
}

func TestE2E_SeriesPeekDoesNotReserve(t *testing.T) {
	resetDatabase(t, env.db)
	apiKey := provisionTenant(t)

	peek := func() string {
		resp, body := doJSON(t, http.MethodGet, env.baseURL+"/api/v1/series/next?doc_type=04", nil, authHeader(apiKey))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200 for series peek, got %d: %s", resp.StatusCode, string(body))
		}
		var payload struct {
			Data struct {
				Consecutive string `json:"consecutive"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode peek response: %v", err)
		}
		return payload.Data.Consecutive
	}

	first := peek()
	if first != "00100000010400000001" {
		t.Fatalf("expected peek 00100000010400000001, got %s", first)
	}
	if again := peek(); again != first {
		t.Fatalf("expected peek to be non-reserving, got %s then %s", first, again)
	}

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/documents", ticketPayload(), authHeader(apiKey))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.StatusCode, string(body))
	}
	var created struct {
		Data documentView `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Data.Consecutivo != first {
		t.Fatalf("expected issuance to take the peeked value %s, got %s", first, created.Data.Consecutivo)
	}
}

func TestE2E_ValidationRejectsTicketWithoutLines(t *testing.T) {
	resetDatabase(t, env.db)
	apiKey := provisionTenant(t)

	payload := ticketPayload()
	payload["lines"] = []map[string]any{}

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/documents", payload, authHeader(apiKey))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty lines, got %d: %s", resp.StatusCode, string(body))
	}

	var payloadErr struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payloadErr); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if payloadErr.Error.Type != "validation_error" {
		t.Fatalf("expected validation_error, got %q", payloadErr.Error.Type)
	}
}
