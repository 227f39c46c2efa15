package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
	apiv1 "github.com/Jaiharishan/Split-Generator-Backend/pkg/api/v1"
)

// TemplateService implements the TemplateService RPC interface.
type TemplateService struct {
	store   storage.Store
	gate    *limits.Gate
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewTemplateService creates a new template service.
func NewTemplateService(store storage.Store, gate *limits.Gate, m *metrics.Metrics, logger *slog.Logger) *TemplateService {
	return &TemplateService{store: store, gate: gate, metrics: m, logger: logger}
}

// CreateTemplate saves a participant list, subject to the template quota.
func (s *TemplateService) CreateTemplate(ctx context.Context, req *connect.Request[apiv1.CreateTemplateRequest]) (*connect.Response[apiv1.CreateTemplateResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	tpl, err := s.createTemplate(ctx, userID, req.Msg)
	if err != nil {
		return nil, fail(s.logger, "CreateTemplate", err)
	}

	s.logger.Info("Template created", "template_id", tpl.ID, "user_id", userID)
	return connect.NewResponse(&apiv1.CreateTemplateResponse{Template: toAPITemplate(tpl)}), nil
}

func (s *TemplateService) createTemplate(ctx context.Context, userID string, msg *apiv1.CreateTemplateRequest) (*models.Template, error) {
	participants := make([]models.TemplateParticipant, len(msg.Participants))
	for i, p := range msg.Participants {
		participants[i] = models.TemplateParticipant{Name: p.Name, Color: p.Color}
	}
	tpl, err := models.NewTemplate(userID, msg.Name, participants)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(user.Tier, limits.Usage{Templates: count}, limits.ActionCreateTemplate); err != nil {
		s.metrics.LimitDenialsTotal.WithLabelValues(string(limits.ActionCreateTemplate), string(user.Tier)).Inc()
		return nil, err
	}

	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// ListTemplates returns the caller's templates.
func (s *TemplateService) ListTemplates(ctx context.Context, req *connect.Request[apiv1.ListTemplatesRequest]) (*connect.Response[apiv1.ListTemplatesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	templates, err := s.store.ListTemplates(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, "ListTemplates", err)
	}

	out := make([]*apiv1.Template, len(templates))
	for i, t := range templates {
		out[i] = toAPITemplate(t)
	}
	return connect.NewResponse(&apiv1.ListTemplatesResponse{Templates: out}), nil
}

// DeleteTemplate removes one of the caller's templates. Bills created from
// it keep their participants.
func (s *TemplateService) DeleteTemplate(ctx context.Context, req *connect.Request[apiv1.DeleteTemplateRequest]) (*connect.Response[apiv1.DeleteTemplateResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	tpl, err := s.store.GetTemplate(ctx, req.Msg.TemplateID)
	if err == nil && tpl.OwnerID != userID {
		err = fmt.Errorf("template %s: %w", req.Msg.TemplateID, storage.ErrNotFound)
	}
	if err == nil {
		err = s.store.DeleteTemplate(ctx, req.Msg.TemplateID)
	}
	if err != nil {
		return nil, fail(s.logger, "DeleteTemplate", err)
	}
	return connect.NewResponse(&apiv1.DeleteTemplateResponse{}), nil
}
