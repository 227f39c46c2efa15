package service

import (
	"github.com/Jaiharishan/Split-Generator-Backend/internal/calculator"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/export"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/limits"
	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
	apiv1 "github.com/Jaiharishan/Split-Generator-Backend/pkg/api/v1"
)

func toAPIUser(u *models.User) *apiv1.User {
	return &apiv1.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Tier:        string(u.Tier),
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIParticipant(p *models.Participant) *apiv1.Participant {
	return &apiv1.Participant{ID: p.ID, Name: p.Name, Color: p.Color}
}

func toAPIProduct(p *models.Product) *apiv1.Product {
	allocs := make([]apiv1.Share, len(p.Allocations))
	for i, a := range p.Allocations {
		allocs[i] = apiv1.Share{ParticipantID: a.ParticipantID, Share: a.Share.String()}
	}
	return &apiv1.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       export.Money(p.Price),
		Quantity:    p.Quantity,
		LineCost:    export.Money(p.LineCost()),
		Allocations: allocs,
	}
}

func toAPIBill(b *models.Bill) *apiv1.Bill {
	out := &apiv1.Bill{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		StatedTotal: export.Money(b.StatedTotal),
		Revision:    b.Revision,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	for i := range b.Participants {
		out.Participants = append(out.Participants, *toAPIParticipant(&b.Participants[i]))
	}
	for i := range b.Products {
		out.Products = append(out.Products, *toAPIProduct(&b.Products[i]))
	}
	return out
}

func toAPISummary(sum *calculator.Summary) *apiv1.Summary {
	out := &apiv1.Summary{
		BillID:       sum.BillID,
		Revision:     sum.Revision,
		Participants: make([]apiv1.ParticipantSummary, len(sum.Participants)),
		Orphaned:     make([]apiv1.OrphanedProduct, len(sum.Orphaned)),
	}
	for i, p := range sum.Participants {
		items := make([]apiv1.ItemShare, len(p.Items))
		for j, it := range p.Items {
			items[j] = apiv1.ItemShare{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Amount:      export.Money(it.Amount),
			}
		}
		out.Participants[i] = apiv1.ParticipantSummary{
			ParticipantID: p.ParticipantID,
			Name:          p.Name,
			Color:         p.Color,
			Owed:          export.Money(p.Owed),
			Items:         items,
		}
	}
	for i, o := range sum.Orphaned {
		out.Orphaned[i] = apiv1.OrphanedProduct{
			ProductID: o.ProductID,
			Name:      o.Name,
			Amount:    export.Money(o.Amount),
			Reason:    o.Reason,
		}
	}

	r := sum.Reconciliation
	out.Reconciliation = apiv1.Reconciliation{
		StatedTotal:      export.Money(r.StatedTotal),
		ComputedTotal:    export.Money(r.ComputedTotal),
		AllocatedTotal:   export.Money(r.AllocatedTotal),
		OrphanedAmount:   export.Money(r.OrphanedAmount),
		StatedDifference: export.Money(r.StatedDifference),
		Balanced:         r.Balanced(),
		MatchesStated:    r.MatchesStated(),
	}
	return out
}

func toAPITemplate(t *models.Template) *apiv1.Template {
	participants := make([]apiv1.TemplateParticipant, len(t.Participants))
	for i, p := range t.Participants {
		participants[i] = apiv1.TemplateParticipant{Name: p.Name, Color: p.Color}
	}
	return &apiv1.Template{
		ID:           t.ID,
		Name:         t.Name,
		Participants: participants,
		CreatedAt:    t.CreatedAt,
	}
}

func toAPIQuotas(q limits.Quotas) apiv1.Quotas {
	return apiv1.Quotas{
		BillsPerMonth:       q.BillsPerMonth,
		ParticipantsPerBill: q.ParticipantsPerBill,
		Templates:           q.Templates,
	}
}

func toAPISubscription(sub *models.Subscription) *apiv1.Subscription {
	return &apiv1.Subscription{
		Status:            string(sub.Status),
		PlanTier:          string(sub.PlanTier),
		EffectiveTier:     string(sub.EffectiveTier()),
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
}
