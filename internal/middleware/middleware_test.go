package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/auth"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

func testToken(t *testing.T, m *auth.JWTManager) string {
	t.Helper()
	token, err := m.Generate(&models.User{ID: "user-1", Email: "alice@example.com"})
	require.NoError(t, err)
	return token
}

func echoUser(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
	return connect.NewResponse(&struct{ UserID string }{GetUserID(ctx)}), nil
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	handler := RequireAuth(jwtManager)(echoUser)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid token", "Bearer " + testToken(t, jwtManager), true},
		{"missing header", "", false},
		{"wrong scheme", "Basic abc", false},
		{"garbage token", "Bearer not-a-jwt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := connect.NewRequest(&struct{}{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}
			resp, err := handler(context.Background(), req)
			if !tt.ok {
				require.Error(t, err)
				assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", resp.Any().(*struct{ UserID string }).UserID)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	handler := OptionalAuth(jwtManager)(echoUser)

	req := connect.NewRequest(&struct{}{})
	resp, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Any().(*struct{ UserID string }).UserID)

	req = connect.NewRequest(&struct{}{})
	req.Header().Set("Authorization", "Bearer "+testToken(t, jwtManager))
	resp, err = handler(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.Any().(*struct{ UserID string }).UserID)

	// A bad token is not an error for optional auth
	req = connect.NewRequest(&struct{}{})
	req.Header().Set("Authorization", "Bearer nope")
	resp, err = handler(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Any().(*struct{ UserID string }).UserID)
}

func TestRequireAuthHTTP(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	handler := RequireAuthHTTP(jwtManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, GetUserID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/bills/1/export", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthenticated")

	req = httptest.NewRequest(http.MethodGet, "/api/bills/1/export", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, jwtManager))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.New()
	failing := MetricsInterceptor(m)(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("bill not found"))
	})

	_, err := failing(context.Background(), connect.NewRequest(&struct{}{}))
	require.Error(t, err)
	// Requests built outside a handler carry an empty procedure
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCRequestsTotal.WithLabelValues("", "not_found")))
}

func TestHTTPMiddleware(t *testing.T) {
	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := mux.NewRouter()
	r.Use(HTTPMetrics(m))
	r.HandleFunc("/api/bills/{id}/export", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORS("https://app.example.com")(HTTPLogging(logger)(r))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/42/export", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/bills/{id}/export", "418")))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/bills/42/export", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
