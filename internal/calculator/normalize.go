package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAllocation is returned when a product's shares cannot be
// turned into weights.
var ErrInvalidAllocation = errors.New("invalid allocation")

// Share is a participant's raw share of one product, usually a percentage.
type Share struct {
	ParticipantID string
	Value         decimal.Decimal
}

// Weight is a share divided by the sum of all shares on the product.
type Weight struct {
	ParticipantID string
	Value         decimal.Decimal
}

// NormalizeShares converts shares into weights that sum to 1.
//
// Shares are divided by their own sum, not by 100, so 70/30 and 7/3 give
// the same weights. Entries with a share of zero or less get no weight.
// The result keeps the input order.
func NormalizeShares(shares []Share) ([]Weight, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidAllocation)
	}

	seen := make(map[string]struct{}, len(shares))
	total := decimal.Zero
	for _, s := range shares {
		if _, dup := seen[s.ParticipantID]; dup {
			return nil, fmt.Errorf("%w: participant %s listed twice", ErrInvalidAllocation, s.ParticipantID)
		}
		seen[s.ParticipantID] = struct{}{}
		if s.Value.IsPositive() {
			total = total.Add(s.Value)
		}
	}

	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: no positive shares", ErrInvalidAllocation)
	}

	weights := make([]Weight, 0, len(shares))
	for _, s := range shares {
		if !s.Value.IsPositive() {
			continue
		}
		weights = append(weights, Weight{
			ParticipantID: s.ParticipantID,
			Value:         s.Value.Div(total),
		})
	}
	return weights, nil
}
