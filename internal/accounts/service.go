package accounts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/audit"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
	pkgerrors "github.com/shoptracker/shoptracker-backend/pkg/errors"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
	"github.com/shoptracker/shoptracker-backend/pkg/metrics"
)

// Service layers account lifecycle operations on the directory, gated by
// the access policy and logged to the audit trail. A single mutex
// serializes every mutation so check-then-act sequences stay atomic and
// audit order matches mutation order.
type Service struct {
	mu      sync.Mutex
	dir     *Directory
	policy  *access.Policy
	auditor *audit.Log
	logg    *logger.Logger
	metrics *metrics.MutationMetrics
}

// NewService constructs the directory service. logg and mutationMetrics
// may be nil.
func NewService(dir *Directory, policy *access.Policy, auditor *audit.Log, logg *logger.Logger, mutationMetrics *metrics.MutationMetrics) (*Service, error) {
	if dir == nil {
		return nil, fmt.Errorf("account directory required")
	}
	if policy == nil {
		return nil, fmt.Errorf("access policy required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit log required")
	}
	return &Service{
		dir:     dir,
		policy:  policy,
		auditor: auditor,
		logg:    logg,
		metrics: mutationMetrics,
	}, nil
}

// CreateUser persists a new account. It fails without mutation when the
// actor lacks user management privilege, the account is invalid, or the
// username is already taken.
func (s *Service) CreateUser(ctx context.Context, actor *models.Account, newAcct *models.Account) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanManageUsers(actor) {
		s.auditor.Append(fmt.Sprintf("ACCESS DENIED: %s tried to create user %s", safeUsername(actor), accountName(newAcct)))
		s.metrics.IncDenied("create_user")
		return false
	}
	if newAcct == nil || newAcct.Username == "" || !newAcct.Role.IsValid() {
		s.auditor.Append(fmt.Sprintf("User creation FAILED (invalid account) by %s", safeUsername(actor)))
		s.metrics.IncFailed("create_user")
		return false
	}
	if s.dir.Exists(newAcct.Username) {
		s.auditor.Append(fmt.Sprintf("User creation FAILED (duplicate username): %s", newAcct.Username))
		s.metrics.IncFailed("create_user")
		return false
	}

	s.dir.Save(newAcct)
	s.auditor.Append(fmt.Sprintf("User created: %s by %s", newAcct.Username, safeUsername(actor)))
	s.metrics.IncApplied("create_user")
	if s.logg != nil {
		s.logg.Info(s.logg.WithActor(ctx, safeUsername(actor)), "user created")
	}
	return true
}

// DeleteUser removes an existing account.
func (s *Service) DeleteUser(ctx context.Context, actor *models.Account, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanManageUsers(actor) {
		s.auditor.Append(fmt.Sprintf("ACCESS DENIED: %s tried to delete user %s", safeUsername(actor), username))
		s.metrics.IncDenied("delete_user")
		return false
	}
	if !s.dir.Exists(username) {
		s.auditor.Append(fmt.Sprintf("User deletion FAILED (not found): %s", username))
		s.metrics.IncFailed("delete_user")
		return false
	}

	s.dir.Delete(username)
	s.auditor.Append(fmt.Sprintf("User deleted: %s by %s", username, safeUsername(actor)))
	s.metrics.IncApplied("delete_user")
	if s.logg != nil {
		s.logg.Info(s.logg.WithActor(ctx, safeUsername(actor)), "user deleted")
	}
	return true
}

// ChangeUserRole mutates the target's role. Unlike the boolean operations
// it reports distinguishable failure kinds: callers present different
// messages for a permission failure and a missing target.
func (s *Service) ChangeUserRole(ctx context.Context, actor *models.Account, username string, newRole enums.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.CanManageUsers(actor) {
		s.auditor.Append(fmt.Sprintf("ACCESS DENIED: %s tried to change role for %s", safeUsername(actor), username))
		s.metrics.IncDenied("change_role")
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change roles")
	}
	if !newRole.IsValid() {
		s.metrics.IncFailed("change_role")
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", newRole))
	}
	target, ok := s.dir.Find(username)
	if !ok {
		s.auditor.Append(fmt.Sprintf("Role change FAILED (not found): %s", username))
		s.metrics.IncFailed("change_role")
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %q not found", username))
	}

	oldRole := target.Role
	target.Role = newRole
	s.dir.Save(target)
	s.auditor.Append(fmt.Sprintf("Role changed for %s: %s -> %s by %s", username, oldRole, newRole, safeUsername(actor)))
	s.metrics.IncApplied("change_role")
	if s.logg != nil {
		s.logg.Info(s.logg.WithActor(ctx, safeUsername(actor)), "user role changed")
	}
	return nil
}

// ResetPassword verifies the supplied email against the stored one and, on
// a match, installs a deterministic temporary credential derived from the
// username. The scheme is a documented placeholder and must not survive
// contact with real secret handling. The new credential is returned to the
// caller exactly once.
func (s *Service) ResetPassword(ctx context.Context, username, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.dir.Find(username)
	if !ok {
		s.auditor.Append(fmt.Sprintf("Password reset FAILED: user not found: %s", username))
		s.metrics.IncFailed("reset_password")
		return "", pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %q not found", username))
	}
	if !strings.EqualFold(target.Email, email) {
		s.auditor.Append(fmt.Sprintf("Password reset FAILED for %s (email mismatch)", username))
		s.metrics.IncFailed("reset_password")
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "email does not match stored email")
	}

	temp := username + "1234"
	target.Password = temp
	s.dir.Save(target)
	s.auditor.Append(fmt.Sprintf("Password reset for %s", username))
	s.metrics.IncApplied("reset_password")
	if s.logg != nil {
		s.logg.Info(s.logg.WithActor(ctx, username), "password reset")
	}
	return temp, nil
}

// Authenticate checks a username/password pair and returns the matching
// active account. Failures are uniform so callers cannot tell which part
// was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	acct, ok := s.dir.Find(username)
	if !ok || acct.Password != password || !acct.IsActive {
		s.auditor.Append(fmt.Sprintf("Login FAILED for %s", username))
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or password")
	}

	s.auditor.Append(fmt.Sprintf("Login successful: %s", username))
	if s.logg != nil {
		s.logg.Info(s.logg.WithActor(ctx, username), "login")
	}
	return acct, nil
}

// ListUsers returns an independent snapshot of every account.
func (s *Service) ListUsers() []*models.Account {
	return s.dir.FindAll()
}

// SearchUsers matches the query case-insensitively against username, full
// name, and email substrings.
func (s *Service) SearchUsers(query string) []*models.Account {
	q := strings.ToLower(query)
	out := make([]*models.Account, 0)
	for _, acct := range s.dir.FindAll() {
		if strings.Contains(strings.ToLower(acct.Username), q) ||
			strings.Contains(strings.ToLower(acct.FullName), q) ||
			strings.Contains(strings.ToLower(acct.Email), q) {
			out = append(out, acct)
		}
	}
	return out
}

func safeUsername(actor *models.Account) string {
	if actor == nil {
		return "<anonymous>"
	}
	return actor.Username
}

func accountName(acct *models.Account) string {
	if acct == nil {
		return "<nil>"
	}
	return acct.Username
}
