package calculator

import "github.com/shopspring/decimal"

// CentPlaces is the precision amounts are allocated at.
const CentPlaces = 2

// Amount is what one participant owes for one product.
type Amount struct {
	ParticipantID string
	Value         decimal.Decimal
}

// AllocateProduct splits lineCost by weight.
//
// Every participant except the last gets lineCost*weight rounded to cents,
// capped so the running sum never passes lineCost. The last one gets
// whatever is left, which makes the amounts add up to lineCost exactly
// and keeps every amount non-negative.
func AllocateProduct(lineCost decimal.Decimal, weights []Weight) []Amount {
	if len(weights) == 0 {
		return nil
	}

	amounts := make([]Amount, len(weights))
	allocated := decimal.Zero
	last := len(weights) - 1
	for i, w := range weights[:last] {
		v := lineCost.Mul(w.Value).Round(CentPlaces)
		if remaining := lineCost.Sub(allocated); v.GreaterThan(remaining) {
			v = remaining
		}
		amounts[i] = Amount{ParticipantID: w.ParticipantID, Value: v}
		allocated = allocated.Add(v)
	}
	amounts[last] = Amount{
		ParticipantID: weights[last].ParticipantID,
		Value:         lineCost.Sub(allocated),
	}
	return amounts
}
