package access

import (
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
)

// Policy decides which action classes an actor may perform. It is pure and
// stateless apart from the configurable user-adjust rule; an absent actor
// is never privileged.
type Policy struct {
	allowUserAdjust bool
}

// NewPolicy builds the access policy. allowUserAdjust controls whether
// plain users may run quantity adjustments; every other mutation stays
// admin/manager only.
func NewPolicy(allowUserAdjust bool) *Policy {
	return &Policy{allowUserAdjust: allowUserAdjust}
}

func (p *Policy) hasElevatedRole(actor *models.Account) bool {
	return actor != nil &&
		(actor.Role == enums.RoleAdmin || actor.Role == enums.RoleManager)
}

// CanManageStock reports whether the actor may mutate the product catalog.
func (p *Policy) CanManageStock(actor *models.Account) bool {
	return p.hasElevatedRole(actor)
}

// CanManageUsers reports whether the actor may mutate the account
// directory. Management privilege is not split by domain.
func (p *Policy) CanManageUsers(actor *models.Account) bool {
	return p.hasElevatedRole(actor)
}

// CanAdjustQuantity reports whether the actor may run a quantity
// adjustment. This is the one deliberate carve-out: plain users may
// self-service adjustments when the policy allows it.
func (p *Policy) CanAdjustQuantity(actor *models.Account) bool {
	if p.hasElevatedRole(actor) {
		return true
	}
	return p.allowUserAdjust && actor != nil && actor.Role == enums.RoleUser
}

// IsAdmin reports whether the actor holds exactly the admin role.
func (p *Policy) IsAdmin(actor *models.Account) bool {
	return actor != nil && actor.Role == enums.RoleAdmin
}

// IsManager reports whether the actor holds exactly the manager role.
func (p *Policy) IsManager(actor *models.Account) bool {
	return actor != nil && actor.Role == enums.RoleManager
}
