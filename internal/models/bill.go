package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultShare is the share assigned when none is given.
var DefaultShare = decimal.NewFromInt(100)

// Bill is a set of products split among participants.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// OwnerID is the user who created the bill. Only the owner can see it.
	OwnerID string

	Title       string
	Description string

	// StatedTotal is the total printed on the receipt, if known. It is
	// compared against the computed total but never used for allocation.
	StatedTotal decimal.Decimal

	// Revision increases on every change to the bill or anything it owns.
	Revision int64

	Participants []Participant
	Products     []Product

	CreatedAt int64
	UpdatedAt int64
}

// NewBill validates and builds a bill header. Participants and products
// are attached separately.
func NewBill(ownerID, title, description string, statedTotal decimal.Decimal) (*Bill, error) {
	if ownerID == "" {
		return nil, invalid("bill owner is required")
	}
	if statedTotal.IsNegative() {
		return nil, invalid("stated total must not be negative, got %s", statedTotal)
	}
	return &Bill{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		StatedTotal: statedTotal,
	}, nil
}

// Participant looks up a participant by ID.
func (b *Bill) Participant(id string) (*Participant, bool) {
	for i := range b.Participants {
		if b.Participants[i].ID == id {
			return &b.Participants[i], true
		}
	}
	return nil, false
}

// Product looks up a product by ID.
func (b *Bill) Product(id string) (*Product, bool) {
	for i := range b.Products {
		if b.Products[i].ID == id {
			return &b.Products[i], true
		}
	}
	return nil, false
}

// Participant is a person sharing a bill.
type Participant struct {
	ID     string
	BillID string
	Name   string
	// Color is a UI hint only.
	Color string
}

// palette holds the colors handed out to participants by position.
var palette = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B",
	"#8B5CF6", "#EC4899", "#06B6D4", "#84CC16",
}

// ColorFor returns the palette color for the participant at index i.
func ColorFor(i int) string {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// NewParticipant validates a participant. An empty color is left for the
// caller to fill from the palette.
func NewParticipant(name, color string) (*Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("participant name is required")
	}
	return &Participant{Name: name, Color: strings.TrimSpace(color)}, nil
}

// Product is a line item on a bill.
type Product struct {
	ID       string
	BillID   string
	Name     string
	Price    decimal.Decimal
	Quantity int64

	// Allocations are the participant shares of this product, in the order
	// they were assigned.
	Allocations []Allocation
}

// NewProduct validates a product. Price must be non-negative and quantity
// positive.
func NewProduct(name string, price decimal.Decimal, quantity int64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("product name is required")
	}
	if price.IsNegative() {
		return nil, invalid("price must not be negative, got %s", price)
	}
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1, got %d", quantity)
	}
	return &Product{Name: name, Price: price, Quantity: quantity}, nil
}

// LineCost is price times quantity.
func (p *Product) LineCost() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(p.Quantity))
}

// Allocation assigns a share of a product to a participant.
type Allocation struct {
	ProductID     string
	ParticipantID string
	Share         decimal.Decimal
}

// NewAllocation validates a share. A zero share means "use the default".
func NewAllocation(participantID string, share decimal.Decimal) (*Allocation, error) {
	if participantID == "" {
		return nil, invalid("participant is required")
	}
	if share.IsZero() {
		share = DefaultShare
	}
	if share.IsNegative() {
		return nil, invalid("share must be positive, got %s", share)
	}
	return &Allocation{ParticipantID: participantID, Share: share}, nil
}

// EqualAllocations gives every participant the same share of 100/N.
func EqualAllocations(participantIDs []string) []Allocation {
	if len(participantIDs) == 0 {
		return nil
	}
	share := DefaultShare.Div(decimal.NewFromInt(int64(len(participantIDs))))
	allocs := make([]Allocation, len(participantIDs))
	for i, id := range participantIDs {
		allocs[i] = Allocation{ParticipantID: id, Share: share}
	}
	return allocs
}
