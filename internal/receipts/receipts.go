// Package receipts stores receipt images attached to bills. Metadata goes
// to the database; file contents go to S3 or the local filesystem.
package receipts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
)

var (
	ErrEmpty           = errors.New("receipt file is empty")
	ErrTooLarge        = errors.New("receipt file is too large")
	ErrUnsupportedType = errors.New("receipt must be a JPEG, PNG, WebP, GIF or PDF file")
)

// allowedTypes maps sniffed content types to the extension stored.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// Blobs stores file contents by key.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Open returns storage.ErrNotFound for unknown keys.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Service records receipts and their contents together.
type Service struct {
	blobs    Blobs
	store    storage.ReceiptStore
	maxBytes int64
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a receipt service. maxBytes bounds a single file.
func NewService(blobs Blobs, store storage.ReceiptStore, maxBytes int64, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		blobs:    blobs,
		store:    store,
		maxBytes: maxBytes,
		metrics:  m,
		logger:   logger,
	}
}

// MaxBytes is the largest accepted file.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores data as a new receipt of billID. The content type is
// sniffed from the data, not taken from the client.
func (s *Service) Upload(ctx context.Context, billID, fileName string, data []byte) (*models.Receipt, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	contentType := sniff(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedType, contentType)
	}

	receipt := &models.Receipt{
		ID:          uuid.New().String(),
		BillID:      billID,
		FileName:    cleanFileName(fileName, ext),
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	receipt.ObjectKey = ObjectKey(billID, receipt.ID, ext)

	if err := s.blobs.Put(ctx, receipt.ObjectKey, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store receipt file: %w", err)
	}
	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		// Without metadata nothing can reach the blob
		if delErr := s.blobs.Delete(ctx, receipt.ObjectKey); delErr != nil {
			s.logger.Warn("Failed to remove orphaned receipt file", "key", receipt.ObjectKey, "error", delErr)
		}
		return nil, err
	}

	s.metrics.ReceiptsUploadedBytes.Add(float64(receipt.Size))
	s.logger.Info("Receipt uploaded", "bill_id", billID, "receipt_id", receipt.ID, "size", receipt.Size)
	return receipt, nil
}

// List returns the receipts of billID.
func (s *Service) List(ctx context.Context, billID string) ([]*models.Receipt, error) {
	return s.store.ListReceipts(ctx, billID)
}

// Open returns a receipt's metadata and contents. The caller closes the
// reader.
func (s *Service) Open(ctx context.Context, billID, receiptID string) (*models.Receipt, io.ReadCloser, error) {
	receipt, err := s.store.GetReceipt(ctx, billID, receiptID)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.blobs.Open(ctx, receipt.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return receipt, body, nil
}

// DeleteForBill runs deleteBill and then removes the files of the bill's
// receipts. The rows go with the bill; file removal failures are logged
// and left behind.
func (s *Service) DeleteForBill(ctx context.Context, billID string, deleteBill func(context.Context) error) error {
	list, err := s.store.ListReceipts(ctx, billID)
	if err != nil {
		return err
	}
	if err := deleteBill(ctx); err != nil {
		return err
	}

	for _, r := range list {
		if err := s.blobs.Delete(ctx, r.ObjectKey); err != nil {
			s.logger.Warn("Failed to remove receipt file", "bill_id", billID, "key", r.ObjectKey, "error", err)
		}
	}
	return nil
}

// ObjectKey is where a receipt's contents are stored.
func ObjectKey(billID, receiptID, ext string) string {
	return path.Join("receipts", billID, receiptID+ext)
}

// Checksum is the hex SHA-256 of data, stored alongside S3 objects.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sniff(data []byte) string {
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return contentType
}

// cleanFileName keeps the base name the client sent, or makes one up.
func cleanFileName(name, ext string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "receipt" + ext
	}
	return name
}
