package accounts

import (
	"context"

	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
)

// SeedDefaultAccountsIfEmpty installs the three bootstrap accounts when
// the directory holds no accounts at all. Repeated calls after the first
// are no-ops, so a partially modified directory is never overwritten.
func (s *Service) SeedDefaultAccountsIfEmpty(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir.Count() > 0 {
		return false
	}

	defaults := []*models.Account{
		{Username: "admin", Password: "1234", FullName: "Alice Admin", Email: "admin@shop.com", Role: enums.RoleAdmin, IsActive: true},
		{Username: "manager", Password: "5678", FullName: "Mark Manager", Email: "manager@shop.com", Role: enums.RoleManager, IsActive: true},
		{Username: "user", Password: "0000", FullName: "Uma User", Email: "user@shop.com", Role: enums.RoleUser, IsActive: true},
	}
	for _, acct := range defaults {
		s.dir.Save(acct)
	}
	s.auditor.Append("Default accounts seeded")
	if s.logg != nil {
		s.logg.Info(ctx, "default accounts seeded")
	}
	return true
}
