package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/cache"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/middleware"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/receipts"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/service"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage/sqlite"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/subscription"
)

const (
	testUserHeader    = "X-Test-User"
	testWebhookSecret = "whsec_test"
	testMaxBytes      = 256
)

// pngData is a minimal payload that sniffs as image/png.
var pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

// testAuth trusts the user named by testUserHeader.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(testUserHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), userID, "")))
	})
}

type testEnv struct {
	server *httptest.Server
	store  *sqlite.SQLiteStore
	alice  *models.User
	bob    *models.User
	bill   *models.Bill
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	blobs, err := receipts.NewFileStore(t.TempDir())
	require.NoError(t, err)

	bills := service.NewBillService(store, limits.NewGate(nil), cache.NewLRU(16, time.Minute), m, logger)
	handlers := NewHandlers(
		store,
		bills,
		receipts.NewService(blobs, store, testMaxBytes, m, logger),
		subscription.NewService(store, nil, m, logger),
		WebhookConfig{Secret: testWebhookSecret, Tolerance: 5 * time.Minute},
		logger,
	)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router, testAuth)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, store: store}
	env.alice = models.NewUser("alice@example.com", "Alice", "hash")
	env.bob = models.NewUser("bob@example.com", "Bob", "hash")
	require.NoError(t, store.CreateUser(ctx, env.alice))
	require.NoError(t, store.CreateUser(ctx, env.bob))

	bill, err := models.NewBill(env.alice.ID, "Team lunch", "", decimal.RequireFromString("20"))
	require.NoError(t, err)
	bill.Participants = []models.Participant{{Name: "Alice"}, {Name: "Bob"}, {Name: "Carol"}}
	require.NoError(t, store.CreateBill(ctx, bill))

	p, err := models.NewProduct("Pizza", decimal.RequireFromString("9.99"), 1)
	require.NoError(t, err)
	p.Allocations = models.EqualAllocations([]string{bill.Participants[0].ID, bill.Participants[1].ID, bill.Participants[2].ID})
	require.NoError(t, store.AddProduct(ctx, bill.ID, p))
	env.bill = bill

	return env
}

func (e *testEnv) do(t *testing.T, user *models.User, method, path string, body io.Reader, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	if user != nil {
		req.Header.Set(testUserHeader, user.ID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, nil, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))
}

func TestExportBill_CSV(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, env.alice, http.MethodGet, "/api/bills/"+env.bill.ID+"/export", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment;")

	body := readBody(t, resp)
	assert.Contains(t, body, "total,Alice,,3.33,")
	assert.Contains(t, body, "total,Carol,,3.33,")
}

func TestExportBill_JSON(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, env.alice, http.MethodGet, "/api/bills/"+env.bill.ID+"/export?format=json", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Title        string `json:"title"`
		Participants []struct {
			Name string `json:"name"`
			Owed string `json:"owed"`
		} `json:"participants"`
		Reconciliation struct {
			ComputedTotal string `json:"computed_total"`
			StatedTotal   string `json:"stated_total"`
		} `json:"reconciliation"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "Team lunch", doc.Title)
	require.Len(t, doc.Participants, 3)
	for _, p := range doc.Participants {
		assert.Equal(t, "3.33", p.Owed, p.Name)
	}
	assert.Equal(t, "9.99", doc.Reconciliation.ComputedTotal)
	assert.Equal(t, "20.00", doc.Reconciliation.StatedTotal)
}

func TestExportBill_Errors(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name   string
		user   *models.User
		path   string
		status int
	}{
		{"unknown format", env.alice, "/api/bills/" + env.bill.ID + "/export?format=xml", http.StatusBadRequest},
		{"other owner", env.bob, "/api/bills/" + env.bill.ID + "/export", http.StatusNotFound},
		{"unknown bill", env.alice, "/api/bills/missing/export", http.StatusNotFound},
		{"anonymous", nil, "/api/bills/" + env.bill.ID + "/export", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.user, http.MethodGet, tt.path, nil, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func multipartFile(t *testing.T, name string, data []byte) (io.Reader, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, http.Header{"Content-Type": {mw.FormDataContentType()}}
}

func TestReceipts_UploadListDownload(t *testing.T) {
	env := setupTestServer(t)
	base := "/api/bills/" + env.bill.ID + "/receipts"

	body, header := multipartFile(t, "lunch.png", pngData)
	resp := env.do(t, env.alice, http.MethodPost, base, body, header)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created receiptJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "image/png", created.ContentType)
	assert.Equal(t, int64(len(pngData)), created.Size)

	resp = env.do(t, env.alice, http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Receipts []receiptJSON `json:"receipts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Receipts, 1)
	assert.Equal(t, created.ID, list.Receipts[0].ID)

	resp = env.do(t, env.alice, http.MethodGet, base+"/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, string(pngData), readBody(t, resp))

	resp = env.do(t, env.bob, http.MethodGet, base+"/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceipts_Rejected(t *testing.T) {
	env := setupTestServer(t)
	base := "/api/bills/" + env.bill.ID + "/receipts"

	tests := []struct {
		name   string
		data   []byte
		status int
	}{
		{"empty", nil, http.StatusBadRequest},
		{"text", []byte("just some notes about lunch"), http.StatusBadRequest},
		{"too large", append(append([]byte{}, pngData...), bytes.Repeat([]byte{1}, testMaxBytes)...), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, header := multipartFile(t, "receipt", tt.data)
			resp := env.do(t, env.alice, http.MethodPost, base, body, header)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := env.do(t, env.alice, http.MethodPost, base, strings.NewReader("not a form"), http.Header{"Content-Type": {"text/plain"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStripeWebhook(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","created":1700000000,` +
		`"data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_1",` +
		`"subscription":"sub_1","client_reference_id":"` + env.alice.ID + `"}}}`)
	header := http.Header{subscription.SignatureHeader: {subscription.Sign(payload, testWebhookSecret, time.Now())}}

	resp := env.do(t, nil, http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload), header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"received":true,"applied":true}`, readBody(t, resp))

	user, err := env.store.GetUserByID(ctx, env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, user.Tier)

	// Redelivery is acknowledged without being applied again.
	resp = env.do(t, nil, http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload), header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"received":true,"applied":false}`, readBody(t, resp))
}

func TestStripeWebhook_Rejected(t *testing.T) {
	env := setupTestServer(t)
	payload := []byte(`{"id":"evt_2","type":"invoice.paid","created":1700000000,"data":{"object":{}}}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		status    int
	}{
		{"missing signature", payload, "", http.StatusBadRequest},
		{"wrong secret", payload, subscription.Sign(payload, "other", time.Now()), http.StatusBadRequest},
		{"stale timestamp", payload, subscription.Sign(payload, testWebhookSecret, time.Now().Add(-time.Hour)), http.StatusBadRequest},
		{"not an event", []byte(`{}`), subscription.Sign([]byte(`{}`), testWebhookSecret, time.Now()), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.signature != "" {
				header.Set(subscription.SignatureHeader, tt.signature)
			}
			resp := env.do(t, nil, http.MethodPost, "/webhooks/stripe", bytes.NewReader(tt.payload), header)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, httpStatus(service.Code(storage.ErrNotFound)))
	assert.Equal(t, http.StatusTooManyRequests, httpStatus(service.Code(&limits.ExceededError{Action: limits.ActionCreateBill, Tier: models.TierFree, Limit: 3})))
	assert.Equal(t, http.StatusBadRequest, httpStatus(service.Code(models.ErrInvalidInput)))
	assert.Equal(t, http.StatusInternalServerError, httpStatus(service.Code(io.ErrUnexpectedEOF)))
}
