package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/metrics"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
)

// Service applies provider events to stored subscription state.
type Service struct {
	store   storage.SubscriptionStore
	premium map[string]bool
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a subscription service. premiumPriceIDs are the
// provider prices that grant the premium tier.
func NewService(store storage.SubscriptionStore, premiumPriceIDs []string, m *metrics.Metrics, logger *slog.Logger) *Service {
	premium := make(map[string]bool, len(premiumPriceIDs))
	for _, id := range premiumPriceIDs {
		premium[id] = true
	}
	return &Service{
		store:   store,
		premium: premium,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// ApplySubscriptionEvent applies ev exactly once. It returns false without
// touching state when the event ID was applied before, so provider retries
// are safe.
func (s *Service) ApplySubscriptionEvent(ctx context.Context, ev Event) (bool, error) {
	outcome := OutcomeDuplicate
	record := models.ProcessedEvent{ID: ev.ID, Type: ev.Type, ProcessedAt: s.now().Unix()}

	applied, err := s.store.ApplyEvent(ctx, record, func(ctx context.Context, tx storage.SubscriptionTx) error {
		current, err := tx.FindSubscription(ctx, ev.UserID, ev.CustomerID, ev.SubscriptionID)
		if err != nil {
			return err
		}
		next, o := Reduce(current, ev, s.premium)
		outcome = o
		if next == nil {
			return nil
		}
		return tx.SaveSubscription(ctx, next)
	})
	if err != nil {
		s.metrics.SubscriptionEventsTotal.WithLabelValues(ev.Type, string(OutcomeError)).Inc()
		s.logger.Error("Failed to apply subscription event", "event_id", ev.ID, "type", ev.Type, "error", err)
		return false, fmt.Errorf("failed to apply event %s: %w", ev.ID, err)
	}

	s.metrics.SubscriptionEventsTotal.WithLabelValues(ev.Type, string(outcome)).Inc()
	s.logger.Info("Subscription event processed",
		"event_id", ev.ID,
		"type", ev.Type,
		"outcome", outcome,
		"customer_id", ev.CustomerID,
	)
	return applied, nil
}

// ExpireLapsed cancels subscriptions that were set to end at period end and
// whose period is over, in case the provider's deletion event never came.
func (s *Service) ExpireLapsed(ctx context.Context) (int, error) {
	now := s.now().Unix()
	subs, err := s.store.ListLapsedSubscriptions(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range subs {
		if err := s.store.ExpireSubscription(ctx, sub.UserID, now); err != nil {
			s.logger.Error("Failed to expire subscription", "user_id", sub.UserID, "error", err)
			continue
		}
		expired++
		s.logger.Info("Subscription expired", "user_id", sub.UserID, "period_end", sub.CurrentPeriodEnd)
	}
	return expired, nil
}

// PruneEvents forgets processed event IDs older than retention.
func (s *Service) PruneEvents(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.store.PruneProcessedEvents(ctx, s.now().Add(-retention).Unix())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Pruned processed events", "count", n)
	}
	return n, nil
}
