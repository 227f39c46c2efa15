package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/auth"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/cache"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/middleware"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage/sqlite"
	apiv1 "github.com/Jaiharishan/Split-Generator-Backend/pkg/api/v1"
)

// testUserHeader names the user a test request runs as.
const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that puts the user named
// by testUserHeader in the context.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if userID := req.Header().Get(testUserHeader); userID != "" {
				ctx = middleware.WithUser(ctx, userID, "")
			}
			return next(ctx, req)
		}
	}
}

// as builds a request sent on behalf of user.
func as[T any](user *models.User, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if user != nil {
		req.Header().Set(testUserHeader, user.ID)
	}
	return req
}

type testEnv struct {
	accounts  *apiv1.AccountServiceClient
	bills     *apiv1.BillServiceClient
	templates *apiv1.TemplateServiceClient

	billService *BillService
	store       *sqlite.SQLiteStore
	metrics     *metrics.Metrics

	alice *models.User
	bob   *models.User
}

// setupTestServer creates a test server with a temporary SQLite database
// and two registered users.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	gate := limits.NewGate(nil)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	env := &testEnv{store: store, metrics: m}
	env.billService = NewBillService(store, gate, cache.NewLRU(64, time.Minute), m, logger)

	interceptors := connect.WithInterceptors(testAuthInterceptor())
	mux := http.NewServeMux()
	mux.Handle(apiv1.NewAccountServiceHandler(NewAccountService(authenticator, jwtManager, store, gate, logger), interceptors))
	mux.Handle(apiv1.NewBillServiceHandler(env.billService, interceptors))
	mux.Handle(apiv1.NewTemplateServiceHandler(NewTemplateService(store, gate, m, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env.accounts = apiv1.NewAccountServiceClient(http.DefaultClient, server.URL)
	env.bills = apiv1.NewBillServiceClient(http.DefaultClient, server.URL)
	env.templates = apiv1.NewTemplateServiceClient(http.DefaultClient, server.URL)

	env.alice = env.newUser(t, "alice@example.com", "Alice")
	env.bob = env.newUser(t, "bob@example.com", "Bob")
	return env
}

func (e *testEnv) newUser(t *testing.T, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := e.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

// makePremium gives user an active premium subscription.
func (e *testEnv) makePremium(t *testing.T, user *models.User) {
	t.Helper()
	_, err := e.store.ApplyEvent(context.Background(), models.ProcessedEvent{ID: "evt-" + user.ID, Type: "test"},
		func(ctx context.Context, tx storage.SubscriptionTx) error {
			return tx.SaveSubscription(ctx, &models.Subscription{
				UserID:   user.ID,
				PlanTier: models.TierPremium,
				Status:   models.SubscriptionStatusActive,
			})
		})
	if err != nil {
		t.Fatalf("failed to upgrade user: %v", err)
	}
}

func (e *testEnv) createBill(t *testing.T, user *models.User, names ...string) *apiv1.Bill {
	t.Helper()
	resp, err := e.bills.CreateBill(context.Background(), as(user, &apiv1.CreateBillRequest{
		Title:            "Dinner",
		ParticipantNames: names,
	}))
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	return resp.Msg.Bill
}

func (e *testEnv) addProduct(t *testing.T, user *models.User, req *apiv1.AddProductRequest) *apiv1.Product {
	t.Helper()
	resp, err := e.bills.AddProduct(context.Background(), as(user, req))
	if err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}
	return resp.Msg.Product
}

func participantIDs(bill *apiv1.Bill) []string {
	ids := make([]string, 0, len(bill.Participants))
	for _, p := range bill.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

func (e *testEnv) summary(t *testing.T, user *models.User, billID string) *apiv1.Summary {
	t.Helper()
	resp, err := e.bills.GetBillSummary(context.Background(), as(user, &apiv1.GetBillSummaryRequest{BillID: billID}))
	if err != nil {
		t.Fatalf("GetBillSummary failed: %v", err)
	}
	return resp.Msg.Summary
}

func expectCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected %v, got %v (%v)", want, got, err)
	}
}

func owed(sum *apiv1.Summary) map[string]string {
	out := make(map[string]string, len(sum.Participants))
	for _, p := range sum.Participants {
		out[p.Name] = p.Owed
	}
	return out
}
