package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
)

// AddProduct appends a product and its allocations to a bill.
func (s *SQLiteStore) AddProduct(ctx context.Context, billID string, p *models.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.touchBill(ctx, tx, billID); err != nil {
			return err
		}

		pos, err := nextPosition(ctx, tx, "products", billID)
		if err != nil {
			return err
		}
		return insertProduct(ctx, tx, billID, p, pos)
	})
}

// UpdateProduct saves a product's name, price and quantity.
func (s *SQLiteStore) UpdateProduct(ctx context.Context, billID string, p *models.Product) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET name = ?, price = ?, quantity = ? WHERE id = ? AND bill_id = ?",
			p.Name, p.Price, p.Quantity, p.ID, billID,
		)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if err := expectRow(res, "product", p.ID); err != nil {
			return err
		}
		p.BillID = billID
		return s.touchBill(ctx, tx, billID)
	})
}

// DeleteProduct removes a product and its allocations.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, billID, productID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM products WHERE id = ? AND bill_id = ?",
			productID, billID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		if err := expectRow(res, "product", productID); err != nil {
			return err
		}
		return s.touchBill(ctx, tx, billID)
	})
}

// SetAllocations replaces all allocations of a product.
func (s *SQLiteStore) SetAllocations(ctx context.Context, billID, productID string, allocs []models.Allocation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM products WHERE id = ? AND bill_id = ?", productID, billID,
		).Scan(&exists)
		if err != nil {
			return notFound(err, "product", productID)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM allocations WHERE product_id = ?", productID); err != nil {
			return fmt.Errorf("failed to clear allocations: %w", err)
		}
		if err := insertAllocations(ctx, tx, billID, productID, allocs); err != nil {
			return err
		}
		return s.touchBill(ctx, tx, billID)
	})
}

func insertProduct(ctx context.Context, tx *sql.Tx, billID string, p *models.Product, pos int) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.BillID = billID

	_, err := tx.ExecContext(ctx,
		"INSERT INTO products (id, bill_id, name, price, quantity, position) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, billID, p.Name, p.Price, p.Quantity, pos,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	for i := range p.Allocations {
		p.Allocations[i].ProductID = p.ID
	}
	return insertAllocations(ctx, tx, billID, p.ID, p.Allocations)
}

// insertAllocations writes allocations in order. Every participant must
// belong to billID; otherwise storage.ErrNotFound is returned.
func insertAllocations(ctx context.Context, tx *sql.Tx, billID, productID string, allocs []models.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}

	ids := make([]any, 0, len(allocs)+1)
	ids = append(ids, billID)
	for _, a := range allocs {
		ids = append(ids, a.ParticipantID)
	}
	var found int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT id) FROM participants WHERE bill_id = ? AND id IN ("+placeholders(len(allocs))+")",
		ids...,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("failed to check participants: %w", err)
	}
	if found != countDistinct(allocs) {
		return fmt.Errorf("allocation participant: %w", storage.ErrNotFound)
	}

	for i, a := range allocs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO allocations (product_id, participant_id, share, position) VALUES (?, ?, ?, ?)",
			productID, a.ParticipantID, a.Share, i,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("participant %s allocated twice: %w", a.ParticipantID, storage.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}
	return nil
}

func countDistinct(allocs []models.Allocation) int {
	seen := make(map[string]struct{}, len(allocs))
	for _, a := range allocs {
		seen[a.ParticipantID] = struct{}{}
	}
	return len(seen)
}

// loadProducts reads a bill's products and attaches their allocations.
func loadProducts(ctx context.Context, tx *sql.Tx, billID string) ([]models.Product, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, bill_id, name, price, quantity FROM products WHERE bill_id = ? ORDER BY position, rowid",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	index := make(map[string]int)
	for rows.Next() {
		var p models.Product
		var price decimal.Decimal
		if err := rows.Scan(&p.ID, &p.BillID, &p.Name, &price, &p.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Price = price
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	rows.Close()

	allocRows, err := tx.QueryContext(ctx,
		`SELECT a.product_id, a.participant_id, a.share
		 FROM allocations a JOIN products p ON p.id = a.product_id
		 WHERE p.bill_id = ?
		 ORDER BY a.product_id, a.position`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	defer allocRows.Close()

	for allocRows.Next() {
		var a models.Allocation
		var share decimal.Decimal
		if err := allocRows.Scan(&a.ProductID, &a.ParticipantID, &share); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		a.Share = share
		if i, ok := index[a.ProductID]; ok {
			products[i].Allocations = append(products[i].Allocations, a)
		}
	}
	if err := allocRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}

	return products, nil
}
