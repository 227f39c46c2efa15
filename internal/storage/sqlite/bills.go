package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

const billColumns = "id, owner_id, title, description, stated_total, revision, created_at, updated_at"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateBill persists a new bill with its participants and products.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	now := s.now().Unix()
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = now
	}
	bill.UpdatedAt = now
	bill.Revision = 1
	if bill.Title == "" {
		bill.Title = generateTitle(bill.Participants, time.Unix(bill.CreatedAt, 0))
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO bills ("+billColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			bill.ID, bill.OwnerID, bill.Title, bill.Description, bill.StatedTotal,
			bill.Revision, bill.CreatedAt, bill.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bill: %w", err)
		}

		for i := range bill.Participants {
			p := &bill.Participants[i]
			if p.Color == "" {
				p.Color = models.ColorFor(i)
			}
			if err := insertParticipant(ctx, tx, bill.ID, p, i); err != nil {
				return err
			}
		}

		for i := range bill.Products {
			if err := insertProduct(ctx, tx, bill.ID, &bill.Products[i], i); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBill retrieves a bill by ID, including participants, products and
// allocations. All reads happen in one transaction.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	bill, err := scanBill(tx.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE id = ?", billID,
	))
	if err != nil {
		return nil, notFound(err, "bill", billID)
	}

	if bill.Participants, err = loadParticipants(ctx, tx, billID); err != nil {
		return nil, err
	}
	if bill.Products, err = loadProducts(ctx, tx, billID); err != nil {
		return nil, err
	}

	return bill, nil
}

// GetBillHeader retrieves the bill row without its children.
func (s *SQLiteStore) GetBillHeader(ctx context.Context, billID string) (*models.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE id = ?", billID,
	))
	if err != nil {
		return nil, notFound(err, "bill", billID)
	}
	return bill, nil
}

// ListBills returns the owner's bill headers, newest first.
func (s *SQLiteStore) ListBills(ctx context.Context, ownerID string) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE owner_id = ? ORDER BY created_at DESC, id",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	return bills, nil
}

// UpdateBill saves the bill's title, description and stated total.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE bills SET title = ?, description = ?, stated_total = ? WHERE id = ?",
			bill.Title, bill.Description, bill.StatedTotal, bill.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update bill: %w", err)
		}
		if err := expectRow(res, "bill", bill.ID); err != nil {
			return err
		}
		return s.touchBill(ctx, tx, bill.ID)
	})
}

// DeleteBill removes a bill. Participants, products, allocations and
// receipt rows go with it.
func (s *SQLiteStore) DeleteBill(ctx context.Context, billID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", billID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	return expectRow(res, "bill", billID)
}

// CountBillsSince counts the owner's bills created at or after since.
func (s *SQLiteStore) CountBillsSince(ctx context.Context, ownerID string, since int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bills WHERE owner_id = ? AND created_at >= ?",
		ownerID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bills: %w", err)
	}
	return n, nil
}

func scanBill(row rowScanner) (*models.Bill, error) {
	bill := &models.Bill{}
	var stated decimal.Decimal
	err := row.Scan(
		&bill.ID, &bill.OwnerID, &bill.Title, &bill.Description, &stated,
		&bill.Revision, &bill.CreatedAt, &bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	bill.StatedTotal = stated
	return bill, nil
}

// generateTitle creates an auto-generated title from participants.
func generateTitle(participants []models.Participant, created time.Time) string {
	if len(participants) == 0 {
		return fmt.Sprintf("Bill - %s", created.Format("Jan 2, 2006"))
	}

	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.Name
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}
