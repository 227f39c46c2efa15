// Package httpapi serves the plain HTTP routes that do not fit the RPC
// services: bill exports, receipt files and the payment provider webhook.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/export"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/middleware"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/receipts"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/service"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/subscription"
)

// WebhookConfig holds the provider webhook settings.
type WebhookConfig struct {
	Secret    string
	Tolerance time.Duration
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the REST routes.
type Handlers struct {
	db            Pinger
	bills         *service.BillService
	receipts      *receipts.Service
	subscriptions *subscription.Service
	webhook       WebhookConfig
	logger        *slog.Logger
	now           func() time.Time
}

// NewHandlers creates the REST handlers.
func NewHandlers(db Pinger, bills *service.BillService, rs *receipts.Service, subs *subscription.Service, webhook WebhookConfig, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:            db,
		bills:         bills,
		receipts:      rs,
		subscriptions: subs,
		webhook:       webhook,
		logger:        logger,
		now:           time.Now,
	}
}

// RegisterRoutes registers the public routes on router and the rest on an
// /api subrouter guarded by requireAuth.
func (h *Handlers) RegisterRoutes(router *mux.Router, requireAuth mux.MiddlewareFunc) {
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(requireAuth)
	api.HandleFunc("/bills/{id}/export", h.ExportBill).Methods(http.MethodGet)
	api.HandleFunc("/bills/{id}/receipts", h.UploadReceipt).Methods(http.MethodPost)
	api.HandleFunc("/bills/{id}/receipts", h.ListReceipts).Methods(http.MethodGet)
	api.HandleFunc("/bills/{id}/receipts/{receipt_id}", h.DownloadReceipt).Methods(http.MethodGet)
}

// Health reports whether the server can reach its database.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ExportBill writes a bill's summary as CSV or JSON. The amounts are the
// ones GetBillSummary returns for the same revision.
func (h *Handlers) ExportBill(w http.ResponseWriter, r *http.Request) {
	billID := mux.Vars(r)["id"]
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bill, sum, err := h.bills.Summarize(r.Context(), middleware.GetUserID(r.Context()), billID)
	if err != nil {
		h.fail(w, "ExportBill", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, export.NewDocument(bill.Title, sum, h.now())); err != nil {
		h.fail(w, "ExportBill", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(bill.Title, format)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// receiptJSON is a receipt as returned to clients.
type receiptJSON struct {
	ID          string `json:"id"`
	BillID      string `json:"billId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	UploadedAt  int64  `json:"uploadedAt"`
}

func toReceiptJSON(r *models.Receipt) receiptJSON {
	return receiptJSON{
		ID:          r.ID,
		BillID:      r.BillID,
		FileName:    r.FileName,
		ContentType: r.ContentType,
		Size:        r.Size,
		UploadedAt:  r.UploadedAt,
	}
}

// multipartOverhead is allowed on top of the file size for form framing.
const multipartOverhead = 1 << 20

// UploadReceipt stores the "file" field of a multipart form as a receipt.
func (h *Handlers) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	billID := mux.Vars(r)["id"]
	if !h.ownsBill(w, r, "UploadReceipt", billID) {
		return
	}

	maxBytes := h.receipts.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, receipts.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	receipt, err := h.receipts.Upload(r.Context(), billID, header.Filename, data)
	switch {
	case errors.Is(err, receipts.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, receipts.ErrEmpty), errors.Is(err, receipts.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.fail(w, "UploadReceipt", err)
	default:
		writeJSON(w, http.StatusCreated, toReceiptJSON(receipt))
	}
}

// ListReceipts returns a bill's receipts.
func (h *Handlers) ListReceipts(w http.ResponseWriter, r *http.Request) {
	billID := mux.Vars(r)["id"]
	if !h.ownsBill(w, r, "ListReceipts", billID) {
		return
	}

	list, err := h.receipts.List(r.Context(), billID)
	if err != nil {
		h.fail(w, "ListReceipts", err)
		return
	}

	out := make([]receiptJSON, len(list))
	for i, rc := range list {
		out[i] = toReceiptJSON(rc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipts": out})
}

// DownloadReceipt streams a receipt's contents.
func (h *Handlers) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	billID := vars["id"]
	if !h.ownsBill(w, r, "DownloadReceipt", billID) {
		return
	}

	receipt, body, err := h.receipts.Open(r.Context(), billID, vars["receipt_id"])
	if err != nil {
		h.fail(w, "DownloadReceipt", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", receipt.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+receipt.FileName+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("Receipt download interrupted", "receipt_id", receipt.ID, "error", err)
	}
}

// maxWebhookBytes bounds a provider event payload.
const maxWebhookBytes = 1 << 16

// StripeWebhook verifies and applies a provider event. Events already
// applied are acknowledged again; failures answer 500 so the provider
// retries.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	err = subscription.VerifySignature(payload, r.Header.Get(subscription.SignatureHeader), h.webhook.Secret, h.webhook.Tolerance, h.now())
	if err != nil {
		h.logger.Warn("Rejected webhook", "error", err, "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := subscription.ParseStripeEvent(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	applied, err := h.subscriptions.ApplySubscriptionEvent(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "applied": applied})
}

// ownsBill writes an error and returns false unless the caller owns billID.
func (h *Handlers) ownsBill(w http.ResponseWriter, r *http.Request, op, billID string) bool {
	_, err := h.bills.OwnedBill(r.Context(), middleware.GetUserID(r.Context()), billID, false)
	if err != nil {
		h.fail(w, op, err)
		return false
	}
	return true
}

// fail writes err with the status matching its RPC code. Internal errors
// are logged and hidden.
func (h *Handlers) fail(w http.ResponseWriter, op string, err error) {
	code := service.Code(err)
	if code == connect.CodeInternal {
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeError(w, httpStatus(code), err.Error())
}

func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeAlreadyExists:
		return http.StatusConflict
	case connect.CodeResourceExhausted:
		return http.StatusTooManyRequests
	case connect.CodeCanceled:
		return 499
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
