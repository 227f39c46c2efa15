// Package limits decides whether a user's tier allows an action given what
// they have already used.
package limits

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// Action is something the gate can allow or deny.
type Action string

const (
	ActionCreateBill     Action = "create_bill"
	ActionAddParticipant Action = "add_participant"
	ActionCreateTemplate Action = "create_template"
)

// Unlimited disables a quota.
const Unlimited = -1

// Quotas are the ceilings for one tier.
type Quotas struct {
	BillsPerMonth       int `yaml:"bills_per_month" json:"bills_per_month"`
	ParticipantsPerBill int `yaml:"participants_per_bill" json:"participants_per_bill"`
	Templates           int `yaml:"templates" json:"templates"`
}

// limit returns the ceiling for an action.
func (q Quotas) limit(action Action) int {
	switch action {
	case ActionCreateBill:
		return q.BillsPerMonth
	case ActionAddParticipant:
		return q.ParticipantsPerBill
	case ActionCreateTemplate:
		return q.Templates
	default:
		return 0
	}
}

// DefaultQuotas returns the built-in quotas for each tier.
func DefaultQuotas() map[models.Tier]Quotas {
	return map[models.Tier]Quotas{
		models.TierFree: {
			BillsPerMonth:       3,
			ParticipantsPerBill: 5,
			Templates:           2,
		},
		models.TierPremium: {
			BillsPerMonth:       Unlimited,
			ParticipantsPerBill: Unlimited,
			Templates:           Unlimited,
		},
	}
}

// Override changes some of a tier's quotas. Unset fields keep their value.
type Override struct {
	BillsPerMonth       *int `yaml:"bills_per_month"`
	ParticipantsPerBill *int `yaml:"participants_per_bill"`
	Templates           *int `yaml:"templates"`
}

// Apply returns q with the fields set in o replaced.
func (o Override) Apply(q Quotas) Quotas {
	if o.BillsPerMonth != nil {
		q.BillsPerMonth = *o.BillsPerMonth
	}
	if o.ParticipantsPerBill != nil {
		q.ParticipantsPerBill = *o.ParticipantsPerBill
	}
	if o.Templates != nil {
		q.Templates = *o.Templates
	}
	return q
}

// MergeQuotas applies overrides to the built-in quotas.
func MergeQuotas(overrides map[models.Tier]Override) map[models.Tier]Quotas {
	merged := DefaultQuotas()
	for tier, o := range overrides {
		merged[tier] = o.Apply(merged[tier])
	}
	return merged
}

// Usage holds the counters the gate compares against.
type Usage struct {
	// BillsThisPeriod is the number of bills created in the current
	// calendar month.
	BillsThisPeriod int `json:"bills_this_period"`
	// ParticipantsOnBill is the participant count of the bill being changed.
	ParticipantsOnBill int `json:"participants_on_bill"`
	// Templates is the number of templates the user owns.
	Templates int `json:"templates"`
}

func (u Usage) current(action Action) int {
	switch action {
	case ActionCreateBill:
		return u.BillsThisPeriod
	case ActionAddParticipant:
		return u.ParticipantsOnBill
	case ActionCreateTemplate:
		return u.Templates
	default:
		return 0
	}
}

// ExceededError is returned when an action would go over a quota.
type ExceededError struct {
	Action  Action
	Tier    models.Tier
	Limit   int
	Current int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("limit exceeded for %s: %d of %d used on the %s tier", e.Action, e.Current, e.Limit, e.Tier)
}

// IsExceeded reports whether err is or wraps an *ExceededError.
func IsExceeded(err error) bool {
	var e *ExceededError
	return errors.As(err, &e)
}

// Gate is a pure predicate over tier and usage.
type Gate struct {
	quotas map[models.Tier]Quotas
}

// NewGate builds a gate. Tiers missing from quotas fall back to the free
// tier's defaults.
func NewGate(quotas map[models.Tier]Quotas) *Gate {
	merged := DefaultQuotas()
	for tier, q := range quotas {
		merged[tier] = q
	}
	return &Gate{quotas: merged}
}

// Quotas returns the quotas for a tier.
func (g *Gate) Quotas(tier models.Tier) Quotas {
	if q, ok := g.quotas[tier]; ok {
		return q
	}
	return g.quotas[models.TierFree]
}

// Allow reports whether one more of action fits within the tier's quota.
func (g *Gate) Allow(tier models.Tier, usage Usage, action Action) bool {
	return g.Check(tier, usage, action) == nil
}

// Check returns an *ExceededError if one more of action does not fit.
func (g *Gate) Check(tier models.Tier, usage Usage, action Action) error {
	return g.CheckN(tier, usage, action, 1)
}

// CheckN is Check for adding n at once, such as a bill created with
// several participants.
func (g *Gate) CheckN(tier models.Tier, usage Usage, action Action, n int) error {
	limit := g.Quotas(tier).limit(action)
	if limit == Unlimited || n <= 0 {
		return nil
	}
	current := usage.current(action)
	if current+n > limit {
		return &ExceededError{Action: action, Tier: tier, Limit: limit, Current: current}
	}
	return nil
}

// PeriodStart is the start of the calendar month (UTC) containing t.
// Bill quotas count bills created since then.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
