package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/storage"
)

const subscriptionColumns = "user_id, customer_id, subscription_id, plan_tier, status, current_period_end, cancel_at_period_end, last_event_at, updated_at"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetSubscription retrieves a user's subscription.
func (s *SQLiteStore) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ?", userID,
	))
	if err != nil {
		return nil, notFound(err, "subscription", userID)
	}
	return sub, nil
}

// ApplyEvent records a processed event and runs fn in the same transaction.
// A duplicate event ID leaves the database untouched.
func (s *SQLiteStore) ApplyEvent(ctx context.Context, event models.ProcessedEvent, fn func(ctx context.Context, tx storage.SubscriptionTx) error) (bool, error) {
	if event.ProcessedAt == 0 {
		event.ProcessedAt = s.now().Unix()
	}

	applied := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO processed_events (id, type, processed_at) VALUES (?, ?, ?)",
			event.ID, event.Type, event.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return nil
		}

		if err := fn(ctx, &subscriptionTx{q: tx, now: s.now().Unix()}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// ListLapsedSubscriptions returns canceling subscriptions past their period
// end that still grant a paid tier.
func (s *SQLiteStore) ListLapsedSubscriptions(ctx context.Context, now int64) ([]*models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+` FROM subscriptions
		 WHERE cancel_at_period_end = 1 AND current_period_end > 0 AND current_period_end < ?
		   AND status IN (?, ?, ?)`,
		now,
		models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list lapsed subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}

// ExpireSubscription cancels a subscription and drops its user to free.
func (s *SQLiteStore) ExpireSubscription(ctx context.Context, userID string, now int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE subscriptions SET status = ?, updated_at = ? WHERE user_id = ?",
			models.SubscriptionStatusCanceled, now, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to expire subscription: %w", err)
		}
		if err := expectRow(res, "subscription", userID); err != nil {
			return err
		}
		return setUserTier(ctx, tx, userID, models.TierFree, now)
	})
}

// PruneProcessedEvents deletes event records older than before.
func (s *SQLiteStore) PruneProcessedEvents(ctx context.Context, before int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM processed_events WHERE processed_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune processed events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// subscriptionTx implements storage.SubscriptionTx on an open transaction.
type subscriptionTx struct {
	q   querier
	now int64
}

func (t *subscriptionTx) FindSubscription(ctx context.Context, userID, customerID, subscriptionID string) (*models.Subscription, error) {
	var column, value string
	switch {
	case userID != "":
		column, value = "user_id", userID
	case customerID != "":
		column, value = "customer_id", customerID
	case subscriptionID != "":
		column, value = "subscription_id", subscriptionID
	default:
		return nil, nil
	}

	sub, err := scanSubscription(t.q.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE "+column+" = ? LIMIT 1", value,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

func (t *subscriptionTx) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	sub.UpdatedAt = t.now
	_, err := t.q.ExecContext(ctx,
		"INSERT INTO subscriptions ("+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   customer_id = excluded.customer_id,
		   subscription_id = excluded.subscription_id,
		   plan_tier = excluded.plan_tier,
		   status = excluded.status,
		   current_period_end = excluded.current_period_end,
		   cancel_at_period_end = excluded.cancel_at_period_end,
		   last_event_at = excluded.last_event_at,
		   updated_at = excluded.updated_at`,
		sub.UserID, sub.ProviderCustomerID, sub.ProviderSubscriptionID, sub.PlanTier, sub.Status,
		sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.LastEventAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return setUserTier(ctx, t.q, sub.UserID, sub.EffectiveTier(), t.now)
}

func setUserTier(ctx context.Context, q querier, userID string, tier models.Tier, now int64) error {
	res, err := q.ExecContext(ctx,
		"UPDATE users SET tier = ?, updated_at = ? WHERE id = ?", tier, now, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set user tier: %w", err)
	}
	return expectRow(res, "user", userID)
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.UserID, &sub.ProviderCustomerID, &sub.ProviderSubscriptionID, &sub.PlanTier, &sub.Status,
		&sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.LastEventAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
