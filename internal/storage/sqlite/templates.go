package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// CreateTemplate persists a template with its participant list.
func (s *SQLiteStore) CreateTemplate(ctx context.Context, tpl *models.Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	if tpl.CreatedAt == 0 {
		tpl.CreatedAt = s.now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO templates (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)",
			tpl.ID, tpl.OwnerID, tpl.Name, tpl.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert template: %w", err)
		}

		for i, p := range tpl.Participants {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO template_participants (template_id, position, name, color) VALUES (?, ?, ?, ?)",
				tpl.ID, i, p.Name, p.Color,
			)
			if err != nil {
				return fmt.Errorf("failed to insert template participant: %w", err)
			}
		}
		return nil
	})
}

// GetTemplate retrieves a template by ID.
func (s *SQLiteStore) GetTemplate(ctx context.Context, templateID string) (*models.Template, error) {
	tpl := &models.Template{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, created_at FROM templates WHERE id = ?", templateID,
	).Scan(&tpl.ID, &tpl.OwnerID, &tpl.Name, &tpl.CreatedAt)
	if err != nil {
		return nil, notFound(err, "template", templateID)
	}

	byID, err := s.loadTemplateParticipants(ctx, []string{tpl.ID})
	if err != nil {
		return nil, err
	}
	tpl.Participants = byID[tpl.ID]
	return tpl, nil
}

// ListTemplates returns the owner's templates, oldest first.
func (s *SQLiteStore) ListTemplates(ctx context.Context, ownerID string) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, name, created_at FROM templates WHERE owner_id = ? ORDER BY created_at, id",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	var ids []string
	for rows.Next() {
		tpl := &models.Template{}
		if err := rows.Scan(&tpl.ID, &tpl.OwnerID, &tpl.Name, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
		ids = append(ids, tpl.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	rows.Close()

	byID, err := s.loadTemplateParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, tpl := range templates {
		tpl.Participants = byID[tpl.ID]
	}
	return templates, nil
}

// DeleteTemplate removes a template.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, templateID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", templateID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return expectRow(res, "template", templateID)
}

// CountTemplates returns the number of templates the owner has.
func (s *SQLiteStore) CountTemplates(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM templates WHERE owner_id = ?", ownerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) loadTemplateParticipants(ctx context.Context, ids []string) (map[string][]models.TemplateParticipant, error) {
	out := make(map[string][]models.TemplateParticipant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT template_id, name, color FROM template_participants WHERE template_id IN ("+placeholders(len(ids))+") ORDER BY template_id, position",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get template participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var p models.TemplateParticipant
		if err := rows.Scan(&id, &p.Name, &p.Color); err != nil {
			return nil, fmt.Errorf("failed to scan template participant: %w", err)
		}
		out[id] = append(out[id], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate template participants: %w", err)
	}
	return out, nil
}
