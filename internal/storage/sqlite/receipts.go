package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

const receiptColumns = "id, bill_id, file_name, object_key, content_type, size, uploaded_at"

// CreateReceipt records an uploaded receipt. The bill's revision is not
// bumped because receipts do not affect allocation.
func (s *SQLiteStore) CreateReceipt(ctx context.Context, r *models.Receipt) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.UploadedAt == 0 {
		r.UploadedAt = s.now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO receipts ("+receiptColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.BillID, r.FileName, r.ObjectKey, r.ContentType, r.Size, r.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

// ListReceipts returns a bill's receipts in upload order.
func (s *SQLiteStore) ListReceipts(ctx context.Context, billID string) ([]*models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+receiptColumns+" FROM receipts WHERE bill_id = ? ORDER BY uploaded_at, id", billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}

// GetReceipt retrieves one receipt of a bill.
func (s *SQLiteStore) GetReceipt(ctx context.Context, billID, receiptID string) (*models.Receipt, error) {
	r, err := scanReceipt(s.db.QueryRowContext(ctx,
		"SELECT "+receiptColumns+" FROM receipts WHERE id = ? AND bill_id = ?", receiptID, billID,
	))
	if err != nil {
		return nil, notFound(err, "receipt", receiptID)
	}
	return r, nil
}

func scanReceipt(row rowScanner) (*models.Receipt, error) {
	r := &models.Receipt{}
	if err := row.Scan(&r.ID, &r.BillID, &r.FileName, &r.ObjectKey, &r.ContentType, &r.Size, &r.UploadedAt); err != nil {
		return nil, err
	}
	return r, nil
}
