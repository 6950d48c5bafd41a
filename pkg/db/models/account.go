package models

import (
	"time"

	"github.com/shoptracker/shoptracker-backend/pkg/enums"
)

// Account represents the canonical identity entity. The username is the
// immutable identity key; everything else may be mutated in place by the
// directory service.
type Account struct {
	Username string
	// Password is an opaque comparable credential. The reset flow derives
	// temporary values from the username; neither is production-grade
	// secret handling and both must be replaced before real credentials
	// ever land here.
	Password  string
	FullName  string
	Email     string
	Role      enums.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns an independent copy safe to hand to callers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	copied := *a
	return &copied
}
