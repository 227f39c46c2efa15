package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// Summary is the allocation result for one bill.
type Summary struct {
	BillID   string `json:"bill_id"`
	Revision int64  `json:"revision"`

	// Participants is in bill order and includes participants who owe nothing.
	Participants []ParticipantTotal `json:"participants"`

	Reconciliation Reconciliation `json:"reconciliation"`

	// Orphaned lists products whose cost is not assigned to anyone.
	Orphaned []OrphanedProduct `json:"orphaned,omitempty"`
}

// ParticipantTotal is one participant's total with its per-product breakdown.
type ParticipantTotal struct {
	ParticipantID string          `json:"participant_id"`
	Name          string          `json:"name"`
	Color         string          `json:"color,omitempty"`
	Owed          decimal.Decimal `json:"owed"`
	Items         []ItemShare     `json:"items,omitempty"`
}

// ItemShare is a participant's part of one product.
type ItemShare struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Amount      decimal.Decimal `json:"amount"`
}

// Reconciliation compares what the products add up to with what was
// assigned. AllocatedTotal + OrphanedAmount == ComputedTotal always.
type Reconciliation struct {
	// StatedTotal is the total entered for the bill, zero if unknown.
	StatedTotal decimal.Decimal `json:"stated_total"`
	// ComputedTotal is the sum of all product line costs.
	ComputedTotal decimal.Decimal `json:"computed_total"`
	// AllocatedTotal is the sum of what participants owe.
	AllocatedTotal decimal.Decimal `json:"allocated_total"`
	// OrphanedAmount is ComputedTotal minus AllocatedTotal.
	OrphanedAmount decimal.Decimal `json:"orphaned_amount"`
	// StatedDifference is StatedTotal minus ComputedTotal.
	StatedDifference decimal.Decimal `json:"stated_difference"`
}

// Balanced reports whether every product cost is assigned.
func (r Reconciliation) Balanced() bool {
	return r.OrphanedAmount.IsZero()
}

// MatchesStated reports whether the products add up to the stated total.
// A bill without a stated total always matches.
func (r Reconciliation) MatchesStated() bool {
	return r.StatedTotal.IsZero() || r.StatedDifference.IsZero()
}

// OrphanedProduct is a product that could not be allocated.
type OrphanedProduct struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// errUnknownParticipant marks allocations pointing outside the bill.
var errUnknownParticipant = errors.New("allocation references a participant not on the bill")

// SummarizeBill computes what every participant owes.
//
// A product that cannot be allocated never fails the summary: its cost is
// counted in the computed total, left out of every participant's total and
// listed in Orphaned with the reason.
func SummarizeBill(bill *models.Bill) *Summary {
	sum := &Summary{
		BillID:       bill.ID,
		Revision:     bill.Revision,
		Participants: make([]ParticipantTotal, len(bill.Participants)),
	}

	index := make(map[string]int, len(bill.Participants))
	for i, p := range bill.Participants {
		index[p.ID] = i
		sum.Participants[i] = ParticipantTotal{
			ParticipantID: p.ID,
			Name:          p.Name,
			Color:         p.Color,
			Owed:          decimal.Zero,
		}
	}

	computed := decimal.Zero
	allocated := decimal.Zero
	for i := range bill.Products {
		product := &bill.Products[i]
		lineCost := product.LineCost()
		computed = computed.Add(lineCost)

		amounts, err := allocateLine(product, lineCost, index)
		if err != nil {
			sum.Orphaned = append(sum.Orphaned, OrphanedProduct{
				ProductID: product.ID,
				Name:      product.Name,
				Amount:    lineCost,
				Reason:    err.Error(),
			})
			continue
		}

		for _, a := range amounts {
			pt := &sum.Participants[index[a.ParticipantID]]
			pt.Owed = pt.Owed.Add(a.Value)
			pt.Items = append(pt.Items, ItemShare{
				ProductID:   product.ID,
				ProductName: product.Name,
				Amount:      a.Value,
			})
			allocated = allocated.Add(a.Value)
		}
	}

	sum.Reconciliation = Reconciliation{
		StatedTotal:      bill.StatedTotal,
		ComputedTotal:    computed,
		AllocatedTotal:   allocated,
		OrphanedAmount:   computed.Sub(allocated),
		StatedDifference: bill.StatedTotal.Sub(computed),
	}
	return sum
}

func allocateLine(product *models.Product, lineCost decimal.Decimal, index map[string]int) ([]Amount, error) {
	shares := make([]Share, len(product.Allocations))
	for i, a := range product.Allocations {
		if _, ok := index[a.ParticipantID]; !ok {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAllocation, errUnknownParticipant)
		}
		shares[i] = Share{ParticipantID: a.ParticipantID, Value: a.Share}
	}

	weights, err := NormalizeShares(shares)
	if err != nil {
		return nil, err
	}
	return AllocateProduct(lineCost, weights), nil
}
