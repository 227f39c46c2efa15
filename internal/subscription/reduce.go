package subscription

import (
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// Outcome describes what an event did to subscription state.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeError     Outcome = "error"
)

// Reduce returns the state after ev is applied to current, which may be
// nil. A nil result means ev leaves state unchanged, and the outcome says
// why. premium holds the price IDs that grant the premium tier; when it is
// empty every paid plan does.
func Reduce(current *models.Subscription, ev Event, premium map[string]bool) (*models.Subscription, Outcome) {
	switch ev.Type {
	case EventCheckoutCompleted, EventSubscriptionCreated, EventSubscriptionUpdated,
		EventSubscriptionDeleted, EventInvoicePaymentFailed, EventInvoicePaid:
	default:
		return nil, OutcomeIgnored
	}

	if current != nil && ev.Created < current.LastEventAt {
		return nil, OutcomeStale
	}

	var next models.Subscription
	if current != nil {
		next = *current
	} else {
		if ev.UserID == "" {
			return nil, OutcomeUnmatched
		}
		next = models.Subscription{UserID: ev.UserID, PlanTier: models.TierFree}
	}
	if ev.CustomerID != "" {
		next.ProviderCustomerID = ev.CustomerID
	}
	if ev.SubscriptionID != "" {
		next.ProviderSubscriptionID = ev.SubscriptionID
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		next.PlanTier = models.TierPremium
		if !next.Status.InGoodStanding() {
			next.Status = models.SubscriptionStatusActive
		}

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		if ev.Status != models.SubscriptionStatusNone {
			next.Status = ev.Status
		}
		next.CurrentPeriodEnd = ev.CurrentPeriodEnd
		next.CancelAtPeriodEnd = ev.CancelAtPeriodEnd
		if len(ev.PriceIDs) > 0 {
			next.PlanTier = planTier(ev.PriceIDs, premium)
		}

	case EventSubscriptionDeleted:
		next.Status = models.SubscriptionStatusCanceled
		next.CancelAtPeriodEnd = false
		if ev.CurrentPeriodEnd != 0 {
			next.CurrentPeriodEnd = ev.CurrentPeriodEnd
		}

	case EventInvoicePaymentFailed:
		if next.Status == models.SubscriptionStatusActive || next.Status == models.SubscriptionStatusTrialing {
			next.Status = models.SubscriptionStatusPastDue
		}

	case EventInvoicePaid:
		switch next.Status {
		case models.SubscriptionStatusPastDue, models.SubscriptionStatusUnpaid, models.SubscriptionStatusIncomplete:
			next.Status = models.SubscriptionStatusActive
		}
	}

	next.LastEventAt = ev.Created
	return &next, OutcomeApplied
}

func planTier(priceIDs []string, premium map[string]bool) models.Tier {
	if len(premium) == 0 {
		return models.TierPremium
	}
	for _, id := range priceIDs {
		if premium[id] {
			return models.TierPremium
		}
	}
	return models.TierFree
}
