package models

// SubscriptionStatus mirrors the payment provider's subscription status.
type SubscriptionStatus string

const (
	SubscriptionStatusNone       SubscriptionStatus = ""
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// Subscription is the provider-side billing state of one user.
type Subscription struct {
	UserID                 string
	ProviderCustomerID     string
	ProviderSubscriptionID string

	// PlanTier is the tier the subscribed plan grants while it is in good
	// standing.
	PlanTier Tier
	Status   SubscriptionStatus

	CurrentPeriodEnd  int64
	CancelAtPeriodEnd bool

	// LastEventAt is the creation time of the newest provider event applied.
	LastEventAt int64
	UpdatedAt   int64
}

// InGoodStanding reports whether the status grants the plan's tier.
// Past-due subscriptions keep their tier while the provider retries payment.
func (s SubscriptionStatus) InGoodStanding() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// EffectiveTier is the tier the user gets right now.
func (s *Subscription) EffectiveTier() Tier {
	if s == nil || !s.Status.InGoodStanding() || !s.PlanTier.Valid() {
		return TierFree
	}
	return s.PlanTier
}

// ProcessedEvent records a provider event that has been applied.
type ProcessedEvent struct {
	ID          string
	Type        string
	ProcessedAt int64
}
