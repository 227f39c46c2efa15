package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/cache"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/calculator"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
	apiv1 "github.com/Jaiharishan/Split-Generator-Backend/pkg/api/v1"
)

func TestCreateBill(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	resp, err := env.bills.CreateBill(ctx, as(env.alice, &apiv1.CreateBillRequest{
		Title:            "Groceries",
		StatedTotal:      "42.5",
		ParticipantNames: []string{"Alice", "Bob", "Carol"},
	}))
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	bill := resp.Msg.Bill
	if bill.ID == "" {
		t.Error("Expected bill ID to be set")
	}
	if bill.Title != "Groceries" {
		t.Errorf("Expected title 'Groceries', got %s", bill.Title)
	}
	if bill.StatedTotal != "42.50" {
		t.Errorf("Expected stated total 42.50, got %s", bill.StatedTotal)
	}
	if len(bill.Participants) != 3 {
		t.Fatalf("Expected 3 participants, got %d", len(bill.Participants))
	}
	for _, p := range bill.Participants {
		if p.ID == "" || p.Color == "" {
			t.Errorf("Expected participant %q to have an ID and a color", p.Name)
		}
	}
}

func TestCreateBill_Validation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *apiv1.CreateBillRequest
	}{
		{"negative stated total", &apiv1.CreateBillRequest{Title: "Dinner", StatedTotal: "-3"}},
		{"bad stated total", &apiv1.CreateBillRequest{Title: "Dinner", StatedTotal: "ten"}},
		{"blank participant", &apiv1.CreateBillRequest{Title: "Dinner", ParticipantNames: []string{" "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bills.CreateBill(ctx, as(env.alice, tt.req))
			expectCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestCreateBill_DefaultTitle(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.bills.CreateBill(context.Background(), as(env.alice, &apiv1.CreateBillRequest{
		ParticipantNames: []string{"Alice"},
	}))
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if resp.Msg.Bill.Title == "" {
		t.Error("Expected a generated title")
	}
}

func TestCreateBill_Unauthenticated(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.bills.CreateBill(context.Background(), as(nil, &apiv1.CreateBillRequest{Title: "Dinner"}))
	expectCode(t, err, connect.CodeUnauthenticated)
}

func TestCreateBill_MonthlyLimit(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env.createBill(t, env.alice)
	}

	_, err := env.bills.CreateBill(ctx, as(env.alice, &apiv1.CreateBillRequest{Title: "One too many"}))
	expectCode(t, err, connect.CodeResourceExhausted)

	got := testutil.ToFloat64(env.metrics.LimitDenialsTotal.WithLabelValues("create_bill", "free"))
	if got != 1 {
		t.Errorf("Expected 1 limit denial, got %v", got)
	}

	// Bob's quota is separate.
	env.createBill(t, env.bob)
}

func TestCreateBill_PremiumUnlimited(t *testing.T) {
	env := setupTestServer(t)
	env.makePremium(t, env.alice)

	for i := 0; i < 5; i++ {
		env.createBill(t, env.alice)
	}

	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	bill := env.createBill(t, env.alice, names...)
	if len(bill.Participants) != len(names) {
		t.Errorf("Expected %d participants, got %d", len(names), len(bill.Participants))
	}
}

func TestCreateBill_TooManyParticipants(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.bills.CreateBill(context.Background(), as(env.alice, &apiv1.CreateBillRequest{
		Title:            "Party",
		ParticipantNames: []string{"A", "B", "C", "D", "E", "F"},
	}))
	expectCode(t, err, connect.CodeResourceExhausted)
}

func TestGetBill_NotFound(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.bills.GetBill(ctx, as(env.alice, &apiv1.GetBillRequest{BillID: "non-existent-id"}))
	expectCode(t, err, connect.CodeNotFound)

	// Another user's bill is indistinguishable from a missing one.
	bill := env.createBill(t, env.alice, "Alice")
	_, err = env.bills.GetBill(ctx, as(env.bob, &apiv1.GetBillRequest{BillID: bill.ID}))
	expectCode(t, err, connect.CodeNotFound)

	_, err = env.bills.DeleteBill(ctx, as(env.bob, &apiv1.DeleteBillRequest{BillID: bill.ID}))
	expectCode(t, err, connect.CodeNotFound)
}

func TestListBills(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	env.createBill(t, env.alice, "Alice")
	env.createBill(t, env.alice, "Alice")
	env.createBill(t, env.bob, "Bob")

	resp, err := env.bills.ListBills(ctx, as(env.alice, &apiv1.ListBillsRequest{}))
	if err != nil {
		t.Fatalf("ListBills failed: %v", err)
	}
	if len(resp.Msg.Bills) != 2 {
		t.Errorf("Expected 2 bills, got %d", len(resp.Msg.Bills))
	}
}

func TestUpdateAndDeleteBill(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bill := env.createBill(t, env.alice, "Alice")

	updated, err := env.bills.UpdateBill(ctx, as(env.alice, &apiv1.UpdateBillRequest{
		BillID:      bill.ID,
		Description: "Friday night",
		StatedTotal: "30",
	}))
	if err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}
	if updated.Msg.Bill.Title != "Dinner" {
		t.Errorf("Expected title to be kept, got %s", updated.Msg.Bill.Title)
	}
	if updated.Msg.Bill.Description != "Friday night" {
		t.Errorf("Expected description to change, got %s", updated.Msg.Bill.Description)
	}
	if updated.Msg.Bill.Revision <= bill.Revision {
		t.Errorf("Expected revision to increase from %d, got %d", bill.Revision, updated.Msg.Bill.Revision)
	}

	if _, err := env.bills.DeleteBill(ctx, as(env.alice, &apiv1.DeleteBillRequest{BillID: bill.ID})); err != nil {
		t.Fatalf("DeleteBill failed: %v", err)
	}
	_, err = env.bills.GetBill(ctx, as(env.alice, &apiv1.GetBillRequest{BillID: bill.ID}))
	expectCode(t, err, connect.CodeNotFound)
}

func TestAddParticipant_Limit(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bill := env.createBill(t, env.alice, "A", "B", "C", "D")

	resp, err := env.bills.AddParticipant(ctx, as(env.alice, &apiv1.AddParticipantRequest{BillID: bill.ID, Name: "E", Color: "#123456"}))
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if resp.Msg.Participant.Color != "#123456" {
		t.Errorf("Expected color #123456, got %s", resp.Msg.Participant.Color)
	}

	_, err = env.bills.AddParticipant(ctx, as(env.alice, &apiv1.AddParticipantRequest{BillID: bill.ID, Name: "F"}))
	expectCode(t, err, connect.CodeResourceExhausted)
}

func TestUpdateParticipant(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bill := env.createBill(t, env.alice, "Alice")
	p := bill.Participants[0]

	resp, err := env.bills.UpdateParticipant(ctx, as(env.alice, &apiv1.UpdateParticipantRequest{
		BillID:        bill.ID,
		ParticipantID: p.ID,
		Name:          "Alicia",
	}))
	if err != nil {
		t.Fatalf("UpdateParticipant failed: %v", err)
	}
	if resp.Msg.Participant.Name != "Alicia" {
		t.Errorf("Expected name Alicia, got %s", resp.Msg.Participant.Name)
	}
	if resp.Msg.Participant.Color != p.Color {
		t.Errorf("Expected color %s to be kept, got %s", p.Color, resp.Msg.Participant.Color)
	}

	_, err = env.bills.UpdateParticipant(ctx, as(env.alice, &apiv1.UpdateParticipantRequest{
		BillID:        bill.ID,
		ParticipantID: "missing",
		Name:          "Nobody",
	}))
	expectCode(t, err, connect.CodeNotFound)
}

func TestAddProduct_EqualShares(t *testing.T) {
	env := setupTestServer(t)
	bill := env.createBill(t, env.alice, "Alice", "Bob", "Carol")

	product := env.addProduct(t, env.alice, &apiv1.AddProductRequest{
		BillID:         bill.ID,
		Name:           "Pizza",
		Price:          "9.99",
		ParticipantIDs: participantIDs(bill),
	})
	if len(product.Allocations) != 3 {
		t.Fatalf("Expected 3 allocations, got %d", len(product.Allocations))
	}
	if product.Quantity != 1 {
		t.Errorf("Expected default quantity 1, got %d", product.Quantity)
	}

	sum := env.summary(t, env.alice, bill.ID)
	got := owed(sum)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		if got[name] != "3.33" {
			t.Errorf("Expected %s to owe 3.33, got %s", name, got[name])
		}
	}
	if sum.Reconciliation.ComputedTotal != "9.99" {
		t.Errorf("Expected computed total 9.99, got %s", sum.Reconciliation.ComputedTotal)
	}
	if !sum.Reconciliation.Balanced {
		t.Error("Expected summary to be balanced")
	}
	if len(sum.Orphaned) != 0 {
		t.Errorf("Expected no orphaned products, got %d", len(sum.Orphaned))
	}
}

func TestAddProduct_ExplicitShares(t *testing.T) {
	env := setupTestServer(t)
	bill := env.createBill(t, env.alice, "Alice", "Bob")
	alice, bob := bill.Participants[0], bill.Participants[1]

	env.addProduct(t, env.alice, &apiv1.AddProductRequest{
		BillID:   bill.ID,
		Name:     "Wine",
		Price:    "5",
		Quantity: 2,
		Shares: []apiv1.Share{
			{ParticipantID: alice.ID, Share: "70"},
			{ParticipantID: bob.ID, Share: "30"},
		},
	})

	got := owed(env.summary(t, env.alice, bill.ID))
	if got["Alice"] != "7.00" || got["Bob"] != "3.00" {
		t.Errorf("Expected 7.00/3.00, got %s/%s", got["Alice"], got["Bob"])
	}
}

func TestAddProduct_NoParticipantsOrphansLine(t *testing.T) {
	env := setupTestServer(t)
	bill := env.createBill(t, env.alice, "Alice", "Bob")

	milk := env.addProduct(t, env.alice, &apiv1.AddProductRequest{
		BillID:         bill.ID,
		Name:           "Milk",
		Price:          "3.00",
		Quantity:       2,
		ParticipantIDs: []string{},
	})
	if len(milk.Allocations) != 0 {
		t.Fatalf("Expected no allocations, got %d", len(milk.Allocations))
	}
	env.addProduct(t, env.alice, &apiv1.AddProductRequest{
		BillID:         bill.ID,
		Name:           "Bread",
		Price:          "4",
		ParticipantIDs: participantIDs(bill),
	})

	sum := env.summary(t, env.alice, bill.ID)
	if len(sum.Orphaned) != 1 || sum.Orphaned[0].Name != "Milk" {
		t.Fatalf("Expected the milk to be orphaned, got %+v", sum.Orphaned)
	}
	if sum.Orphaned[0].Amount != "6.00" {
		t.Errorf("Expected orphaned milk of 6.00, got %s", sum.Orphaned[0].Amount)
	}
	r := sum.Reconciliation
	if r.ComputedTotal != "10.00" || r.AllocatedTotal != "4.00" || r.OrphanedAmount != "6.00" {
		t.Errorf("Unexpected reconciliation: %+v", r)
	}
	got := owed(sum)
	if got["Alice"] != "2.00" || got["Bob"] != "2.00" {
		t.Errorf("Expected 2.00 each for the bread, got %s/%s", got["Alice"], got["Bob"])
	}
}

func TestAddProduct_Validation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bill := env.createBill(t, env.alice, "Alice", "Bob")
	alice := bill.Participants[0]

	tests := []struct {
		name string
		req  *apiv1.AddProductRequest
		code connect.Code
	}{
		{"negative price", &apiv1.AddProductRequest{BillID: bill.ID, Name: "Soup", Price: "-1"}, connect.CodeInvalidArgument},
		{"bad price", &apiv1.AddProductRequest{BillID: bill.ID, Name: "Soup", Price: "abc"}, connect.CodeInvalidArgument},
		{"negative quantity", &apiv1.AddProductRequest{BillID: bill.ID, Name: "Soup", Price: "1", Quantity: -2}, connect.CodeInvalidArgument},
		{"missing name", &apiv1.AddProductRequest{BillID: bill.ID, Price: "1"}, connect.CodeInvalidArgument},
		{"negative share", &apiv1.AddProductRequest{BillID: bill.ID, Name: "Soup", Price: "1",
			Shares: []apiv1.Share{{ParticipantID: alice.ID, Share: "-10"}}}, connect.CodeInvalidArgument},
		{"duplicate participant", &apiv1.AddProductRequest{BillID: bill.ID, Name: "Soup", Price: "1",
			ParticipantIDs: []string{alice.ID, alice.ID}}, connect.CodeInvalidArgument},
		{"unknown participant", &apiv1.AddProductRequest{BillID: bill.ID, Name: "Soup", Price: "1",
			ParticipantIDs: []string{"stranger"}}, connect.CodeNotFound},
		{"unknown bill", &apiv1.AddProductRequest{BillID: "missing", Name: "Soup", Price: "1"}, connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bills.AddProduct(ctx, as(env.alice, tt.req))
			expectCode(t, err, tt.code)
		})
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bill := env.createBill(t, env.alice, "Alice", "Bob")
	product := env.addProduct(t, env.alice, &apiv1.AddProductRequest{BillID: bill.ID, Name: "Tea", Price: "4", ParticipantIDs: participantIDs(bill)})

	resp, err := env.bills.UpdateProduct(ctx, as(env.alice, &apiv1.UpdateProductRequest{
		BillID:    bill.ID,
		ProductID: product.ID,
		Name:      "Green tea",
		Price:     "3",
		Quantity:  2,
	}))
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if resp.Msg.Product.LineCost != "6.00" {
		t.Errorf("Expected line cost 6.00, got %s", resp.Msg.Product.LineCost)
	}
	if len(resp.Msg.Product.Allocations) != 2 {
		t.Errorf("Expected allocations to be kept, got %d", len(resp.Msg.Product.Allocations))
	}

	got := owed(env.summary(t, env.alice, bill.ID))
	if got["Alice"] != "3.00" || got["Bob"] != "3.00" {
		t.Errorf("Expected 3.00 each, got %s/%s", got["Alice"], got["Bob"])
	}

	if _, err := env.bills.DeleteProduct(ctx, as(env.alice, &apiv1.DeleteProductRequest{BillID: bill.ID, ProductID: product.ID})); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	sum := env.summary(t, env.alice, bill.ID)
	if sum.Reconciliation.ComputedTotal != "0.00" {
		t.Errorf("Expected computed total 0.00, got %s", sum.Reconciliation.ComputedTotal)
	}
}

func TestSetAllocations(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bill := env.createBill(t, env.alice, "Alice", "Bob")
	alice, bob := bill.Participants[0], bill.Participants[1]
	product := env.addProduct(t, env.alice, &apiv1.AddProductRequest{BillID: bill.ID, Name: "Cake", Price: "10", ParticipantIDs: participantIDs(bill)})

	before := env.summary(t, env.alice, bill.ID)
	if got := owed(before); got["Alice"] != "5.00" {
		t.Fatalf("Expected Alice to owe 5.00, got %s", got["Alice"])
	}

	resp, err := env.bills.SetAllocations(ctx, as(env.alice, &apiv1.SetAllocationsRequest{
		BillID:    bill.ID,
		ProductID: product.ID,
		Shares: []apiv1.Share{
			{ParticipantID: alice.ID, Share: "1"},
			{ParticipantID: bob.ID, Share: "3"},
		},
	}))
	if err != nil {
		t.Fatalf("SetAllocations failed: %v", err)
	}
	if len(resp.Msg.Product.Allocations) != 2 {
		t.Fatalf("Expected 2 allocations, got %d", len(resp.Msg.Product.Allocations))
	}

	after := env.summary(t, env.alice, bill.ID)
	if after.Revision == before.Revision {
		t.Error("Expected a new revision after changing allocations")
	}
	got := owed(after)
	if got["Alice"] != "2.50" || got["Bob"] != "7.50" {
		t.Errorf("Expected 2.50/7.50, got %s/%s", got["Alice"], got["Bob"])
	}

	// Clearing allocations orphans the product.
	if _, err := env.bills.SetAllocations(ctx, as(env.alice, &apiv1.SetAllocationsRequest{BillID: bill.ID, ProductID: product.ID})); err != nil {
		t.Fatalf("SetAllocations failed: %v", err)
	}
	cleared := env.summary(t, env.alice, bill.ID)
	if len(cleared.Orphaned) != 1 {
		t.Fatalf("Expected 1 orphaned product, got %d", len(cleared.Orphaned))
	}
	if cleared.Reconciliation.OrphanedAmount != "10.00" {
		t.Errorf("Expected orphaned amount 10.00, got %s", cleared.Reconciliation.OrphanedAmount)
	}
}

func TestRemoveParticipant_OrphansProducts(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bill := env.createBill(t, env.alice, "Alice", "Bob")
	alice, bob := bill.Participants[0], bill.Participants[1]

	env.addProduct(t, env.alice, &apiv1.AddProductRequest{
		BillID: bill.ID, Name: "Steak", Price: "12", ParticipantIDs: []string{bob.ID},
	})
	env.addProduct(t, env.alice, &apiv1.AddProductRequest{
		BillID: bill.ID, Name: "Salad", Price: "8", ParticipantIDs: []string{alice.ID, bob.ID},
	})

	if _, err := env.bills.RemoveParticipant(ctx, as(env.alice, &apiv1.RemoveParticipantRequest{BillID: bill.ID, ParticipantID: bob.ID})); err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}

	sum := env.summary(t, env.alice, bill.ID)
	if len(sum.Participants) != 1 {
		t.Fatalf("Expected 1 participant, got %d", len(sum.Participants))
	}
	if sum.Participants[0].Owed != "8.00" {
		t.Errorf("Expected Alice to absorb the salad, got %s", sum.Participants[0].Owed)
	}
	if len(sum.Orphaned) != 1 || sum.Orphaned[0].Name != "Steak" {
		t.Fatalf("Expected the steak to be orphaned, got %+v", sum.Orphaned)
	}
	if sum.Reconciliation.AllocatedTotal != "8.00" || sum.Reconciliation.OrphanedAmount != "12.00" {
		t.Errorf("Unexpected reconciliation: %+v", sum.Reconciliation)
	}
	if sum.Reconciliation.Balanced {
		t.Error("Expected summary with orphans to be unbalanced")
	}
}

func TestGetBillSummary_Cached(t *testing.T) {
	env := setupTestServer(t)
	bill := env.createBill(t, env.alice, "Alice")
	env.addProduct(t, env.alice, &apiv1.AddProductRequest{BillID: bill.ID, Name: "Coffee", Price: "2.5", ParticipantIDs: participantIDs(bill)})

	first := env.summary(t, env.alice, bill.ID)
	second := env.summary(t, env.alice, bill.ID)
	if first.Revision != second.Revision {
		t.Errorf("Expected the same revision, got %d and %d", first.Revision, second.Revision)
	}

	if got := testutil.ToFloat64(env.metrics.SummariesComputed); got != 1 {
		t.Errorf("Expected 1 computed summary, got %v", got)
	}
	if got := testutil.ToFloat64(env.metrics.SummaryCacheTotal.WithLabelValues("hit")); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}

	// A change produces a new revision and a fresh computation.
	env.addProduct(t, env.alice, &apiv1.AddProductRequest{BillID: bill.ID, Name: "Cookie", Price: "1.5", ParticipantIDs: participantIDs(bill)})
	third := env.summary(t, env.alice, bill.ID)
	if third.Participants[0].Owed != "4.00" {
		t.Errorf("Expected 4.00 after adding a product, got %s", third.Participants[0].Owed)
	}
	if got := testutil.ToFloat64(env.metrics.SummariesComputed); got != 2 {
		t.Errorf("Expected 2 computed summaries, got %v", got)
	}
}

// blockingStore holds GetBill until release is closed.
type blockingStore struct {
	storage.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Store.GetBill(ctx, billID)
}

func TestSummarize_CanceledCallerDoesNotFailOthers(t *testing.T) {
	env := setupTestServer(t)
	bill := env.createBill(t, env.alice, "Alice")
	env.addProduct(t, env.alice, &apiv1.AddProductRequest{BillID: bill.ID, Name: "Coffee", Price: "2.5", ParticipantIDs: participantIDs(bill)})

	store := &blockingStore{Store: env.store, entered: make(chan struct{}), release: make(chan struct{})}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewBillService(store, limits.NewGate(nil), cache.NewLRU(8, time.Minute), metrics.New(), logger)

	type result struct {
		sum *calculator.Summary
		err error
	}
	summarize := func(ctx context.Context, out chan<- result) {
		_, sum, err := svc.Summarize(ctx, env.alice.ID, bill.ID)
		out <- result{sum, err}
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan result, 1)
	go summarize(firstCtx, first)
	<-store.entered

	second := make(chan result, 1)
	go summarize(context.Background(), second)
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(store.release)

	for name, ch := range map[string]chan result{"first": first, "second": second} {
		r := <-ch
		if r.err != nil {
			t.Fatalf("%s caller failed: %v", name, r.err)
		}
		if got := toAPISummary(r.sum).Reconciliation.ComputedTotal; got != "2.50" {
			t.Errorf("%s caller: expected computed total 2.50, got %s", name, got)
		}
	}
}

func TestSummarize_SharedWithExport(t *testing.T) {
	env := setupTestServer(t)
	bill := env.createBill(t, env.alice, "Alice", "Bob")
	env.addProduct(t, env.alice, &apiv1.AddProductRequest{BillID: bill.ID, Name: "Fries", Price: "3.01", ParticipantIDs: participantIDs(bill)})

	header, sum, err := env.billService.Summarize(context.Background(), env.alice.ID, bill.ID)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if header.Title != "Dinner" {
		t.Errorf("Expected header title Dinner, got %s", header.Title)
	}

	api := env.summary(t, env.alice, bill.ID)
	direct := toAPISummary(sum)
	for i := range api.Participants {
		if api.Participants[i].Owed != direct.Participants[i].Owed {
			t.Errorf("Participant %d: RPC says %s, Summarize says %s",
				i, api.Participants[i].Owed, direct.Participants[i].Owed)
		}
	}

	if _, _, err := env.billService.Summarize(context.Background(), env.bob.ID, bill.ID); Code(err) != connect.CodeNotFound {
		t.Errorf("Expected NotFound for another user, got %v", err)
	}
}
