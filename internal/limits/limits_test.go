package limits

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

func TestGate_FreeTier(t *testing.T) {
	gate := NewGate(nil)

	tests := []struct {
		name   string
		usage  Usage
		action Action
		allow  bool
	}{
		{"first bill", Usage{BillsThisPeriod: 0}, ActionCreateBill, true},
		{"third bill", Usage{BillsThisPeriod: 2}, ActionCreateBill, true},
		{"fourth bill", Usage{BillsThisPeriod: 3}, ActionCreateBill, false},
		{"fifth participant", Usage{ParticipantsOnBill: 4}, ActionAddParticipant, true},
		{"sixth participant", Usage{ParticipantsOnBill: 5}, ActionAddParticipant, false},
		{"second template", Usage{Templates: 1}, ActionCreateTemplate, true},
		{"third template", Usage{Templates: 2}, ActionCreateTemplate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allow, gate.Allow(models.TierFree, tt.usage, tt.action))
		})
	}
}

func TestGate_PremiumIsUnbounded(t *testing.T) {
	gate := NewGate(nil)
	usage := Usage{BillsThisPeriod: 10_000, ParticipantsOnBill: 500, Templates: 99}

	for _, action := range []Action{ActionCreateBill, ActionAddParticipant, ActionCreateTemplate} {
		assert.True(t, gate.Allow(models.TierPremium, usage, action), "action %s", action)
	}
}

func TestGate_CheckReturnsDetails(t *testing.T) {
	gate := NewGate(nil)

	err := gate.Check(models.TierFree, Usage{BillsThisPeriod: 3}, ActionCreateBill)
	require.Error(t, err)
	assert.True(t, IsExceeded(fmt.Errorf("wrapped: %w", err)))

	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, ActionCreateBill, exceeded.Action)
	assert.Equal(t, 3, exceeded.Limit)
	assert.Equal(t, 3, exceeded.Current)
	assert.Contains(t, err.Error(), "create_bill")
}

func TestGate_CheckN(t *testing.T) {
	gate := NewGate(nil)

	assert.NoError(t, gate.CheckN(models.TierFree, Usage{}, ActionAddParticipant, 5))
	assert.Error(t, gate.CheckN(models.TierFree, Usage{}, ActionAddParticipant, 6))
	assert.Error(t, gate.CheckN(models.TierFree, Usage{ParticipantsOnBill: 3}, ActionAddParticipant, 3))
	assert.NoError(t, gate.CheckN(models.TierFree, Usage{ParticipantsOnBill: 5}, ActionAddParticipant, 0))
}

func TestGate_CustomQuotas(t *testing.T) {
	gate := NewGate(map[models.Tier]Quotas{
		models.TierFree: {BillsPerMonth: 10, ParticipantsPerBill: 2, Templates: 0},
	})

	assert.True(t, gate.Allow(models.TierFree, Usage{BillsThisPeriod: 9}, ActionCreateBill))
	assert.False(t, gate.Allow(models.TierFree, Usage{ParticipantsOnBill: 2}, ActionAddParticipant))
	assert.False(t, gate.Allow(models.TierFree, Usage{}, ActionCreateTemplate))
	assert.True(t, gate.Allow(models.TierPremium, Usage{BillsThisPeriod: 1000}, ActionCreateBill))
}

func TestMergeQuotas_PartialOverride(t *testing.T) {
	ten := 10
	quotas := MergeQuotas(map[models.Tier]Override{
		models.TierFree: {BillsPerMonth: &ten},
	})
	assert.Equal(t, Quotas{BillsPerMonth: 10, ParticipantsPerBill: 5, Templates: 2}, quotas[models.TierFree])
	assert.Equal(t, DefaultQuotas()[models.TierPremium], quotas[models.TierPremium])

	gate := NewGate(quotas)
	assert.True(t, gate.Allow(models.TierFree, Usage{}, ActionAddParticipant))
	assert.True(t, gate.Allow(models.TierFree, Usage{}, ActionCreateTemplate))
	assert.False(t, gate.Allow(models.TierFree, Usage{BillsThisPeriod: 10}, ActionCreateBill))
}

func TestGate_UnknownTierFallsBackToFree(t *testing.T) {
	gate := NewGate(nil)
	assert.False(t, gate.Allow(models.Tier("enterprise"), Usage{Templates: 2}, ActionCreateTemplate))
	assert.Equal(t, gate.Quotas(models.TierFree), gate.Quotas(models.Tier("")))
}

func TestPeriodStart(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	got := PeriodStart(time.Date(2026, time.March, 1, 5, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), got)

	got = PeriodStart(time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), got)
}
