package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/cache"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/calculator"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
	apiv1 "github.com/Jaiharishan/Split-Generator-Backend/pkg/api/v1"
)

var tracer = otel.Tracer("github.com/Jaiharishan/Split-Generator-Backend/internal/service")

// ReceiptCleaner removes a bill's receipt files around its deletion.
type ReceiptCleaner interface {
	DeleteForBill(ctx context.Context, billID string, deleteBill func(context.Context) error) error
}

// BillService implements the BillService RPC interface. Its Summarize
// method also backs the export route, so both always agree.
type BillService struct {
	store     storage.Store
	gate      *limits.Gate
	summaries cache.SummaryCache
	receipts  ReceiptCleaner
	inflight  singleflight.Group
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewBillService creates a new bill service.
func NewBillService(store storage.Store, gate *limits.Gate, summaries cache.SummaryCache, m *metrics.Metrics, logger *slog.Logger) *BillService {
	return &BillService{
		store:     store,
		gate:      gate,
		summaries: summaries,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// WithReceipts makes DeleteBill remove receipt files too.
func (s *BillService) WithReceipts(c ReceiptCleaner) *BillService {
	s.receipts = c
	return s
}

// OwnedBill loads a bill the user owns. Bills owned by someone else are
// reported as not found so their existence is not revealed.
func (s *BillService) OwnedBill(ctx context.Context, userID, billID string, full bool) (*models.Bill, error) {
	if billID == "" {
		return nil, fmt.Errorf("%w: bill_id is required", models.ErrInvalidInput)
	}

	var bill *models.Bill
	var err error
	if full {
		bill, err = s.store.GetBill(ctx, billID)
	} else {
		bill, err = s.store.GetBillHeader(ctx, billID)
	}
	if err != nil {
		return nil, err
	}
	if bill.OwnerID != userID {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	return bill, nil
}

// Summarize returns the bill header and its allocation summary. Summaries
// are cached by bill revision and concurrent computations of the same
// revision are shared.
func (s *BillService) Summarize(ctx context.Context, userID, billID string) (*models.Bill, *calculator.Summary, error) {
	ctx, span := tracer.Start(ctx, "BillService.Summarize",
		trace.WithAttributes(attribute.String("bill.id", billID)),
	)
	defer span.End()

	header, err := s.OwnedBill(ctx, userID, billID, false)
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int64("bill.revision", header.Revision))

	if sum, ok := s.summaries.Get(ctx, billID, header.Revision); ok {
		s.metrics.CacheHit(true)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return header, sum, nil
	}
	s.metrics.CacheHit(false)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// The computation is shared by every caller waiting on the key and
	// is not bound to any one of them.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(cache.Key(billID, header.Revision), func() (any, error) {
		bill, err := s.store.GetBill(shared, billID)
		if err != nil {
			return nil, err
		}
		sum := calculator.SummarizeBill(bill)
		s.metrics.SummariesComputed.Inc()
		s.metrics.OrphanedProducts.Add(float64(len(sum.Orphaned)))
		s.summaries.Set(shared, sum)
		if len(sum.Orphaned) > 0 {
			s.logger.Warn("Bill has orphaned products", "bill_id", billID, "count", len(sum.Orphaned))
		}
		return sum, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	return header, v.(*calculator.Summary), nil
}

// tier returns the user's current tier.
func (s *BillService) tier(ctx context.Context, userID string) (models.Tier, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Tier, nil
}

// denied records a limit denial and passes err through.
func (s *BillService) denied(err error) error {
	var exceeded *limits.ExceededError
	if errors.As(err, &exceeded) {
		s.metrics.LimitDenialsTotal.WithLabelValues(string(exceeded.Action), string(exceeded.Tier)).Inc()
		s.logger.Info("Limit reached", "action", exceeded.Action, "tier", exceeded.Tier, "limit", exceeded.Limit)
	}
	return err
}

// CreateBill creates a bill with participants from a template or a list
// of names, subject to the caller's monthly bill quota.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[apiv1.CreateBillRequest]) (*connect.Response[apiv1.CreateBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := s.createBill(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "CreateBill", err)
	}

	s.logger.Info("Bill created", "bill_id", bill.ID, "user_id", userID, "participants", len(bill.Participants))
	return connect.NewResponse(&apiv1.CreateBillResponse{Bill: toAPIBill(bill)}), nil
}

func (s *BillService) createBill(ctx context.Context, userID string, msg *apiv1.CreateBillRequest) (*models.Bill, error) {
	statedTotal, err := parseMoney("stated_total", msg.StatedTotal)
	if err != nil {
		return nil, err
	}
	bill, err := models.NewBill(userID, msg.Title, msg.Description, statedTotal)
	if err != nil {
		return nil, err
	}

	if msg.TemplateID != "" {
		tpl, err := s.store.GetTemplate(ctx, msg.TemplateID)
		if err != nil {
			return nil, err
		}
		if tpl.OwnerID != userID {
			return nil, fmt.Errorf("template %s: %w", msg.TemplateID, storage.ErrNotFound)
		}
		for _, p := range tpl.Participants {
			bill.Participants = append(bill.Participants, models.Participant{Name: p.Name, Color: p.Color})
		}
	} else {
		for _, name := range msg.ParticipantNames {
			p, err := models.NewParticipant(name, "")
			if err != nil {
				return nil, err
			}
			bill.Participants = append(bill.Participants, *p)
		}
	}

	tier, err := s.tier(ctx, userID)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CountBillsSince(ctx, userID, limits.PeriodStart(s.now()).Unix())
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(tier, limits.Usage{BillsThisPeriod: created}, limits.ActionCreateBill); err != nil {
		return nil, s.denied(err)
	}
	if err := s.gate.CheckN(tier, limits.Usage{}, limits.ActionAddParticipant, len(bill.Participants)); err != nil {
		return nil, s.denied(err)
	}

	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// GetBill returns a bill with its participants and products.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[apiv1.GetBillRequest]) (*connect.Response[apiv1.GetBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := s.OwnedBill(ctx, userID, req.Msg.BillID, true)
	if err != nil {
		return nil, fail(s.logger, "GetBill", err)
	}
	return connect.NewResponse(&apiv1.GetBillResponse{Bill: toAPIBill(bill)}), nil
}

// ListBills returns the caller's bills, newest first, without their
// participants and products.
func (s *BillService) ListBills(ctx context.Context, req *connect.Request[apiv1.ListBillsRequest]) (*connect.Response[apiv1.ListBillsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	bills, err := s.store.ListBills(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, "ListBills", err)
	}

	out := make([]*apiv1.Bill, len(bills))
	for i, b := range bills {
		out[i] = toAPIBill(b)
	}
	return connect.NewResponse(&apiv1.ListBillsResponse{Bills: out}), nil
}

// UpdateBill changes title, description and stated total. An empty title
// keeps the current one.
func (s *BillService) UpdateBill(ctx context.Context, req *connect.Request[apiv1.UpdateBillRequest]) (*connect.Response[apiv1.UpdateBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := s.updateBill(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "UpdateBill", err)
	}
	return connect.NewResponse(&apiv1.UpdateBillResponse{Bill: toAPIBill(bill)}), nil
}

func (s *BillService) updateBill(ctx context.Context, userID string, msg *apiv1.UpdateBillRequest) (*models.Bill, error) {
	current, err := s.OwnedBill(ctx, userID, msg.BillID, false)
	if err != nil {
		return nil, err
	}
	statedTotal, err := parseMoney("stated_total", msg.StatedTotal)
	if err != nil {
		return nil, err
	}
	title := msg.Title
	if title == "" {
		title = current.Title
	}
	updated, err := models.NewBill(userID, title, msg.Description, statedTotal)
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID

	if err := s.store.UpdateBill(ctx, updated); err != nil {
		return nil, err
	}
	return s.store.GetBill(ctx, current.ID)
}

// DeleteBill removes a bill and everything it owns.
func (s *BillService) DeleteBill(ctx context.Context, req *connect.Request[apiv1.DeleteBillRequest]) (*connect.Response[apiv1.DeleteBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.OwnedBill(ctx, userID, req.Msg.BillID, false); err != nil {
		return nil, fail(s.logger, "DeleteBill", err)
	}
	deleteBill := func(ctx context.Context) error {
		return s.store.DeleteBill(ctx, req.Msg.BillID)
	}
	if s.receipts != nil {
		err = s.receipts.DeleteForBill(ctx, req.Msg.BillID, deleteBill)
	} else {
		err = deleteBill(ctx)
	}
	if err != nil {
		return nil, fail(s.logger, "DeleteBill", err)
	}

	s.logger.Info("Bill deleted", "bill_id", req.Msg.BillID, "user_id", userID)
	return connect.NewResponse(&apiv1.DeleteBillResponse{}), nil
}

// AddParticipant adds a participant, subject to the per-bill quota.
func (s *BillService) AddParticipant(ctx context.Context, req *connect.Request[apiv1.AddParticipantRequest]) (*connect.Response[apiv1.AddParticipantResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.addParticipant(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "AddParticipant", err)
	}
	return connect.NewResponse(&apiv1.AddParticipantResponse{Participant: toAPIParticipant(p)}), nil
}

func (s *BillService) addParticipant(ctx context.Context, userID string, msg *apiv1.AddParticipantRequest) (*models.Participant, error) {
	if _, err := s.OwnedBill(ctx, userID, msg.BillID, false); err != nil {
		return nil, err
	}
	p, err := models.NewParticipant(msg.Name, msg.Color)
	if err != nil {
		return nil, err
	}

	tier, err := s.tier(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountParticipants(ctx, msg.BillID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(tier, limits.Usage{ParticipantsOnBill: count}, limits.ActionAddParticipant); err != nil {
		return nil, s.denied(err)
	}

	if err := s.store.AddParticipant(ctx, msg.BillID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateParticipant renames or recolors a participant. An empty color
// keeps the current one.
func (s *BillService) UpdateParticipant(ctx context.Context, req *connect.Request[apiv1.UpdateParticipantRequest]) (*connect.Response[apiv1.UpdateParticipantResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.updateParticipant(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "UpdateParticipant", err)
	}
	return connect.NewResponse(&apiv1.UpdateParticipantResponse{Participant: toAPIParticipant(p)}), nil
}

func (s *BillService) updateParticipant(ctx context.Context, userID string, msg *apiv1.UpdateParticipantRequest) (*models.Participant, error) {
	bill, err := s.OwnedBill(ctx, userID, msg.BillID, true)
	if err != nil {
		return nil, err
	}
	current, ok := bill.Participant(msg.ParticipantID)
	if !ok {
		return nil, fmt.Errorf("participant %s: %w", msg.ParticipantID, storage.ErrNotFound)
	}

	p, err := models.NewParticipant(msg.Name, msg.Color)
	if err != nil {
		return nil, err
	}
	p.ID = current.ID
	if p.Color == "" {
		p.Color = current.Color
	}

	if err := s.store.UpdateParticipant(ctx, bill.ID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveParticipant removes a participant and their allocations. Products
// they were the only one allocated to become orphaned.
func (s *BillService) RemoveParticipant(ctx context.Context, req *connect.Request[apiv1.RemoveParticipantRequest]) (*connect.Response[apiv1.RemoveParticipantResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.OwnedBill(ctx, userID, req.Msg.BillID, false); err != nil {
		return nil, fail(s.logger, "RemoveParticipant", err)
	}
	if err := s.store.RemoveParticipant(ctx, req.Msg.BillID, req.Msg.ParticipantID); err != nil {
		return nil, fail(s.logger, "RemoveParticipant", err)
	}
	return connect.NewResponse(&apiv1.RemoveParticipantResponse{}), nil
}

// AddProduct adds a line item. Without explicit shares every listed
// participant gets an equal share; with nobody listed the product is
// orphaned until allocations are set.
func (s *BillService) AddProduct(ctx context.Context, req *connect.Request[apiv1.AddProductRequest]) (*connect.Response[apiv1.AddProductResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.addProduct(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "AddProduct", err)
	}
	return connect.NewResponse(&apiv1.AddProductResponse{Product: toAPIProduct(p)}), nil
}

func (s *BillService) addProduct(ctx context.Context, userID string, msg *apiv1.AddProductRequest) (*models.Product, error) {
	bill, err := s.OwnedBill(ctx, userID, msg.BillID, false)
	if err != nil {
		return nil, err
	}
	p, err := newProduct(msg.Name, msg.Price, msg.Quantity)
	if err != nil {
		return nil, err
	}

	// With neither shares nor participants the product stays unallocated
	// and its cost shows up as orphaned.
	switch {
	case len(msg.Shares) > 0:
		p.Allocations, err = buildAllocations(msg.Shares)
		if err != nil {
			return nil, err
		}
	case len(msg.ParticipantIDs) > 0:
		if err := checkDistinct(msg.ParticipantIDs); err != nil {
			return nil, err
		}
		p.Allocations = models.EqualAllocations(msg.ParticipantIDs)
	}

	if err := s.store.AddProduct(ctx, bill.ID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct changes name, price and quantity. Allocations stay.
func (s *BillService) UpdateProduct(ctx context.Context, req *connect.Request[apiv1.UpdateProductRequest]) (*connect.Response[apiv1.UpdateProductResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.updateProduct(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "UpdateProduct", err)
	}
	return connect.NewResponse(&apiv1.UpdateProductResponse{Product: toAPIProduct(p)}), nil
}

func (s *BillService) updateProduct(ctx context.Context, userID string, msg *apiv1.UpdateProductRequest) (*models.Product, error) {
	if _, err := s.OwnedBill(ctx, userID, msg.BillID, false); err != nil {
		return nil, err
	}
	p, err := newProduct(msg.Name, msg.Price, msg.Quantity)
	if err != nil {
		return nil, err
	}
	p.ID = msg.ProductID

	if err := s.store.UpdateProduct(ctx, msg.BillID, p); err != nil {
		return nil, err
	}
	return s.reloadProduct(ctx, msg.BillID, msg.ProductID)
}

// DeleteProduct removes a product and its allocations.
func (s *BillService) DeleteProduct(ctx context.Context, req *connect.Request[apiv1.DeleteProductRequest]) (*connect.Response[apiv1.DeleteProductResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.OwnedBill(ctx, userID, req.Msg.BillID, false); err != nil {
		return nil, fail(s.logger, "DeleteProduct", err)
	}
	if err := s.store.DeleteProduct(ctx, req.Msg.BillID, req.Msg.ProductID); err != nil {
		return nil, fail(s.logger, "DeleteProduct", err)
	}
	return connect.NewResponse(&apiv1.DeleteProductResponse{}), nil
}

// SetAllocations replaces a product's shares. An empty list leaves the
// product unallocated, which orphans it in the summary.
func (s *BillService) SetAllocations(ctx context.Context, req *connect.Request[apiv1.SetAllocationsRequest]) (*connect.Response[apiv1.SetAllocationsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.setAllocations(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "SetAllocations", err)
	}
	return connect.NewResponse(&apiv1.SetAllocationsResponse{Product: toAPIProduct(p)}), nil
}

func (s *BillService) setAllocations(ctx context.Context, userID string, msg *apiv1.SetAllocationsRequest) (*models.Product, error) {
	if _, err := s.OwnedBill(ctx, userID, msg.BillID, false); err != nil {
		return nil, err
	}
	allocs, err := buildAllocations(msg.Shares)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetAllocations(ctx, msg.BillID, msg.ProductID, allocs); err != nil {
		return nil, err
	}
	return s.reloadProduct(ctx, msg.BillID, msg.ProductID)
}

// GetBillSummary returns what every participant owes.
func (s *BillService) GetBillSummary(ctx context.Context, req *connect.Request[apiv1.GetBillSummaryRequest]) (*connect.Response[apiv1.GetBillSummaryResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	_, sum, err := s.Summarize(ctx, userID, req.Msg.BillID)
	if err != nil {
		return nil, fail(s.logger, "GetBillSummary", err)
	}
	return connect.NewResponse(&apiv1.GetBillSummaryResponse{Summary: toAPISummary(sum)}), nil
}

func (s *BillService) reloadProduct(ctx context.Context, billID, productID string) (*models.Product, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	p, ok := bill.Product(productID)
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, storage.ErrNotFound)
	}
	return p, nil
}

// newProduct parses and validates product fields. Quantity defaults to 1.
func newProduct(name, price string, quantity int64) (*models.Product, error) {
	amount, err := parseMoney("price", price)
	if err != nil {
		return nil, err
	}
	if quantity == 0 {
		quantity = 1
	}
	return models.NewProduct(name, amount, quantity)
}

func buildAllocations(shares []apiv1.Share) ([]models.Allocation, error) {
	allocs := make([]models.Allocation, 0, len(shares))
	ids := make([]string, 0, len(shares))
	for _, sh := range shares {
		value, err := parseMoney("share", sh.Share)
		if err != nil {
			return nil, err
		}
		a, err := models.NewAllocation(sh.ParticipantID, value)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, *a)
		ids = append(ids, sh.ParticipantID)
	}
	if err := checkDistinct(ids); err != nil {
		return nil, err
	}
	return allocs, nil
}

func checkDistinct(participantIDs []string) error {
	seen := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		if seen[id] {
			return fmt.Errorf("%w: participant %s is listed twice", models.ErrInvalidInput, id)
		}
		seen[id] = true
	}
	return nil
}
