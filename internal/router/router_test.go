package router

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"finbook/internal/logger"
	"finbook/internal/middleware"
	"finbook/internal/testutil"
	"finbook/internal/validator"
)

const (
	testSecret  = "router-test-secret"
	pipelineKey = "pipeline-key"
)

const statement = `IBAN;DE44500105175407324931
Kontoname;Girokonto

Buchung;Valuta;Auftraggeber/Empfaenger;Buchungstext;Verwendungszweck;Betrag;Waehrung
01.03.2024;01.03.2024;Baeckerei;Lastschrift;Broetchen;-4,50;EUR
05.03.2024;05.03.2024;Arbeitgeber GmbH;Gutschrift;Gehalt Maerz;2.345,67;EUR
`

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// testApp holds the full application stack backed by in-memory SQLite.
type testApp struct {
	router *gin.Engine
	token  string
}

func setupApp(t *testing.T, opts Options) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	opts.JWTSecret = []byte(testSecret)
	if opts.MaxUploadBytes == 0 {
		opts.MaxUploadBytes = 1 << 20
	}

	token, err := middleware.IssueToken(opts.JWTSecret, "tester@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &testApp{router: New(db, opts), token: token}
}

func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func statementURIs(files ...string) string {
	uris := make([]string, len(files))
	for i, f := range files {
		uris[i] = fmt.Sprintf("%q", "data:text/csv;base64,"+base64.StdEncoding.EncodeToString([]byte(f)))
	}
	return "[" + strings.Join(uris, ",") + "]"
}

func TestHealth(t *testing.T) {
	app := setupApp(t, Options{})

	rec := app.request("GET", "/api/health", "", "")

	expectStatus(t, rec, http.StatusOK)
}

func TestAuthRequired(t *testing.T) {
	app := setupApp(t, Options{})

	expectStatus(t, app.request("GET", "/api/v1/accounts", "", ""), http.StatusUnauthorized)
	expectStatus(t, app.request("GET", "/api/v1/accounts", "", "not-a-jwt"), http.StatusUnauthorized)
	expectStatus(t, app.request("GET", "/api/v1/accounts", "", app.token), http.StatusOK)
}

func TestAuthGate(t *testing.T) {
	app := setupApp(t, Options{Gate: middleware.AllowList("someone-else@example.com")})

	expectStatus(t, app.request("GET", "/api/v1/accounts", "", app.token), http.StatusUnauthorized)
}

func TestReconciliationFlow(t *testing.T) {
	app := setupApp(t, Options{})

	// Step 1: import a statement
	rec := app.request("POST", "/api/v1/transactions/import", statementURIs(statement), app.token)
	expectStatus(t, rec, http.StatusCreated)
	var summary struct {
		Created int `json:"created"`
		Files   []struct {
			AccountID string `json:"account_id"`
		} `json:"files"`
	}
	decode(t, rec, &summary)
	if summary.Created != 2 || len(summary.Files) != 1 {
		t.Fatalf("unexpected summary: %s", rec.Body.String())
	}
	accountID := summary.Files[0].AccountID

	// Step 2: importing again adds nothing
	rec = app.request("POST", "/api/v1/transactions/import", statementURIs(statement), app.token)
	expectStatus(t, rec, http.StatusCreated)
	decode(t, rec, &summary)
	if summary.Created != 0 {
		t.Errorf("reimport should create nothing, got %d", summary.Created)
	}

	// Step 3: transactions are listed in booking order
	rec = app.request("GET", "/api/v1/transactions", "", app.token)
	expectStatus(t, rec, http.StatusOK)
	var transactions []struct {
		ID      string `json:"id"`
		Purpose string `json:"purpose"`
	}
	decode(t, rec, &transactions)
	if len(transactions) != 2 || transactions[0].Purpose != "Broetchen" {
		t.Fatalf("unexpected transactions: %s", rec.Body.String())
	}
	bakery, salary := transactions[0].ID, transactions[1].ID

	// Step 4: a category and a record explaining the bakery transaction
	rec = app.request("POST", "/api/v1/categories", `{"name":"Food","color":"#f28e2b"}`, app.token)
	expectStatus(t, rec, http.StatusCreated)
	var category struct {
		Category struct {
			ID string `json:"id"`
		} `json:"category"`
	}
	decode(t, rec, &category)

	body := fmt.Sprintf(`{"account_id":%q,"category_id":%q,"subject":"Bread","date":"01.03.2024","amount":-4.5,"transactions":[%q]}`,
		accountID, category.Category.ID, bakery)
	rec = app.request("POST", "/api/v1/records", body, app.token)
	expectStatus(t, rec, http.StatusCreated)
	var record struct {
		Record struct {
			ID               string `json:"id"`
			TransactionCount int64  `json:"transaction_count"`
		} `json:"record"`
	}
	decode(t, rec, &record)
	if record.Record.TransactionCount != 1 {
		t.Errorf("expected record linked to 1 transaction, got %d", record.Record.TransactionCount)
	}

	// Step 5: the transaction now carries the record
	rec = app.request("GET", "/api/v1/transactions/"+bakery, "", app.token)
	expectStatus(t, rec, http.StatusOK)
	var detail struct {
		Transaction struct {
			IsImported bool `json:"is_imported"`
			Records    []struct {
				ID string `json:"id"`
			} `json:"records"`
		} `json:"transaction"`
	}
	decode(t, rec, &detail)
	if !detail.Transaction.IsImported || len(detail.Transaction.Records) != 1 || detail.Transaction.Records[0].ID != record.Record.ID {
		t.Errorf("unexpected transaction: %s", rec.Body.String())
	}

	// Step 6: the salary has no record and can be hidden
	rec = app.request("POST", "/api/v1/transactions/"+salary+"/hide", "", app.token)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/v1/transactions?is_ignored=false", "", app.token)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &transactions)
	if len(transactions) != 1 || transactions[0].ID != bakery {
		t.Errorf("expected only the bakery transaction, got %s", rec.Body.String())
	}

	// Step 7: monthly spend per category
	rec = app.request("GET", "/api/v1/records/aggregate?group=category&aggregate=sum", "", app.token)
	expectStatus(t, rec, http.StatusOK)
	var buckets []struct {
		Label string  `json:"label"`
		Value float64 `json:"value"`
	}
	decode(t, rec, &buckets)
	if len(buckets) != 1 || buckets[0].Label != "Food" || buckets[0].Value != -4.5 {
		t.Errorf("unexpected buckets: %s", rec.Body.String())
	}

	// Step 8: unlinking makes the transaction open again
	rec = app.request("DELETE", "/api/v1/transactions/"+bakery+"/records/"+record.Record.ID, "", app.token)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &detail)
	if detail.Transaction.IsImported {
		t.Error("transaction should no longer be imported")
	}

	// Step 9: the hide is on the audit trail
	rec = app.request("GET", "/api/v1/audit-logs?action=HIDE_TRANSACTION", "", app.token)
	expectStatus(t, rec, http.StatusOK)
	var audit struct {
		TotalItems int64 `json:"total_items"`
		Data       []struct {
			Principal  string `json:"principal"`
			ResourceID string `json:"resource_id"`
		} `json:"data"`
	}
	decode(t, rec, &audit)
	if audit.TotalItems != 1 || audit.Data[0].ResourceID != salary || audit.Data[0].Principal != "tester@example.com" {
		t.Errorf("unexpected audit trail: %s", rec.Body.String())
	}
}

func TestPipelineImport(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pipelineKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	app := setupApp(t, Options{PipelineAPIKeyHash: string(hash)})

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/pipeline/import", strings.NewReader(statementURIs(statement)))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec
	}

	expectStatus(t, send(""), http.StatusUnauthorized)
	expectStatus(t, send("wrong"), http.StatusUnauthorized)
	expectStatus(t, send(pipelineKey), http.StatusCreated)

	// JWTs do not open the pipeline route
	expectStatus(t, app.request("POST", "/api/v1/pipeline/import", statementURIs(statement), app.token), http.StatusUnauthorized)
}

func TestPipelineNotConfigured(t *testing.T) {
	app := setupApp(t, Options{})

	req := httptest.NewRequest("POST", "/api/v1/pipeline/import", strings.NewReader("[]"))
	req.Header.Set("X-API-Key", pipelineKey)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusServiceUnavailable)
}

func TestUploadLimit(t *testing.T) {
	app := setupApp(t, Options{MaxUploadBytes: 32})

	rec := app.request("POST", "/api/v1/transactions/import", statementURIs(statement), app.token)

	expectStatus(t, rec, http.StatusRequestEntityTooLarge)
}
