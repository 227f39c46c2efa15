package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	tests := []struct {
		name     string
		product  string
		price    string
		quantity int64
		wantErr  bool
	}{
		{name: "valid", product: "Milk", price: "3.00", quantity: 2},
		{name: "free item", product: "Water", price: "0", quantity: 1},
		{name: "negative price", product: "Refund", price: "-1.00", quantity: 1, wantErr: true},
		{name: "zero quantity", product: "Bread", price: "2.50", quantity: 0, wantErr: true},
		{name: "negative quantity", product: "Bread", price: "2.50", quantity: -3, wantErr: true},
		{name: "blank name", product: "   ", price: "2.50", quantity: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProduct(tt.product, decimal.RequireFromString(tt.price), tt.quantity)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.quantity, p.Quantity)
		})
	}
}

func TestProduct_LineCost(t *testing.T) {
	p, err := NewProduct("Milk", decimal.RequireFromString("3.00"), 2)
	require.NoError(t, err)
	assert.True(t, p.LineCost().Equal(decimal.RequireFromString("6.00")), "got %s", p.LineCost())
}

func TestNewBill_RejectsNegativeTotal(t *testing.T) {
	_, err := NewBill("user-1", "Groceries", "", decimal.RequireFromString("-0.01"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewBill("", "Groceries", "", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)

	b, err := NewBill("user-1", "  Groceries ", "", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", b.Title)
}

func TestNewAllocation(t *testing.T) {
	a, err := NewAllocation("p1", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, a.Share.Equal(DefaultShare))

	_, err = NewAllocation("p1", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewAllocation("", decimal.NewFromInt(50))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEqualAllocations(t *testing.T) {
	assert.Nil(t, EqualAllocations(nil))

	allocs := EqualAllocations([]string{"a", "b", "c", "d"})
	require.Len(t, allocs, 4)
	for _, a := range allocs {
		assert.True(t, a.Share.Equal(decimal.NewFromInt(25)), "got %s", a.Share)
	}
}

func TestNewTemplate_AssignsColors(t *testing.T) {
	tpl, err := NewTemplate("user-1", "Flatmates", []TemplateParticipant{
		{Name: "Alice"},
		{Name: "Bob", Color: "#000000"},
	})
	require.NoError(t, err)
	require.Len(t, tpl.Participants, 2)
	assert.Equal(t, ColorFor(0), tpl.Participants[0].Color)
	assert.Equal(t, "#000000", tpl.Participants[1].Color)

	_, err = NewTemplate("user-1", "Flatmates", []TemplateParticipant{{Name: ""}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubscription_EffectiveTier(t *testing.T) {
	tests := []struct {
		status SubscriptionStatus
		want   Tier
	}{
		{SubscriptionStatusActive, TierPremium},
		{SubscriptionStatusTrialing, TierPremium},
		{SubscriptionStatusPastDue, TierPremium},
		{SubscriptionStatusCanceled, TierFree},
		{SubscriptionStatusUnpaid, TierFree},
		{SubscriptionStatusIncomplete, TierFree},
		{SubscriptionStatusNone, TierFree},
	}
	for _, tt := range tests {
		sub := &Subscription{PlanTier: TierPremium, Status: tt.status}
		assert.Equal(t, tt.want, sub.EffectiveTier(), "status %q", tt.status)
	}

	var none *Subscription
	assert.Equal(t, TierFree, none.EffectiveTier())
}

func TestNewUser_NormalizesEmail(t *testing.T) {
	u := NewUser("  Alice@Example.COM ", "Alice", "hash")
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, TierFree, u.Tier)
	assert.NotEmpty(t, u.ID)
}
