package inventory

import (
	"context"

	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
)

// SeedDefaultStockIfEmpty loads the starter catalog when no products
// exist. Each seeded product lands through the normal add path, so the
// history and audit trail show three attributed add events. Repeated
// calls after the first are no-ops.
func (s *Service) SeedDefaultStockIfEmpty(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.products) > 0 {
		return false
	}

	defaults := []models.Product{
		{ID: "A01", Name: "Apples", Quantity: 20, Price: mustDecimal("0.50")},
		{ID: "B01", Name: "Bananas", Quantity: 30, Price: mustDecimal("0.40")},
		{ID: "O01", Name: "Oranges", Quantity: 25, Price: mustDecimal("0.60")},
	}
	for _, p := range defaults {
		s.products[p.ID] = p
		s.record(enums.EventKindAdd, p, systemActor, 0, p.Quantity)
		s.auditor.Append("Seeded product: " + p.Name + " (" + p.ID + ")")
	}
	if s.logg != nil {
		s.logg.Info(ctx, "default stock seeded")
	}
	return true
}
