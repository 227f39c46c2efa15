package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// AddParticipant appends a participant to a bill.
func (s *SQLiteStore) AddParticipant(ctx context.Context, billID string, p *models.Participant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.touchBill(ctx, tx, billID); err != nil {
			return err
		}

		pos, err := nextPosition(ctx, tx, "participants", billID)
		if err != nil {
			return err
		}
		if p.Color == "" {
			p.Color = models.ColorFor(pos)
		}
		return insertParticipant(ctx, tx, billID, p, pos)
	})
}

// UpdateParticipant saves a participant's name and color.
func (s *SQLiteStore) UpdateParticipant(ctx context.Context, billID string, p *models.Participant) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE participants SET name = ?, color = ? WHERE id = ? AND bill_id = ?",
			p.Name, p.Color, p.ID, billID,
		)
		if err != nil {
			return fmt.Errorf("failed to update participant: %w", err)
		}
		if err := expectRow(res, "participant", p.ID); err != nil {
			return err
		}
		p.BillID = billID
		return s.touchBill(ctx, tx, billID)
	})
}

// RemoveParticipant deletes a participant and, through the foreign key,
// their allocations.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, billID, participantID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM participants WHERE id = ? AND bill_id = ?",
			participantID, billID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete participant: %w", err)
		}
		if err := expectRow(res, "participant", participantID); err != nil {
			return err
		}
		return s.touchBill(ctx, tx, billID)
	})
}

// CountParticipants returns the number of participants on a bill.
func (s *SQLiteStore) CountParticipants(ctx context.Context, billID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE bill_id = ?", billID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return n, nil
}

func insertParticipant(ctx context.Context, tx *sql.Tx, billID string, p *models.Participant, pos int) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.BillID = billID

	_, err := tx.ExecContext(ctx,
		"INSERT INTO participants (id, bill_id, name, color, position) VALUES (?, ?, ?, ?, ?)",
		p.ID, billID, p.Name, p.Color, pos,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func loadParticipants(ctx context.Context, tx *sql.Tx, billID string) ([]models.Participant, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, bill_id, name, color FROM participants WHERE bill_id = ? ORDER BY position, rowid",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.BillID, &p.Name, &p.Color); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// nextPosition returns one past the highest position in table for billID.
// table is always a constant from this package.
func nextPosition(ctx context.Context, tx *sql.Tx, table, billID string) (int, error) {
	var pos int
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM "+table+" WHERE bill_id = ?",
		billID,
	).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to read next %s position: %w", table, err)
	}
	return pos, nil
}
