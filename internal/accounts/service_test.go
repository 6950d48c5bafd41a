package accounts

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/audit"
	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
	"github.com/shoptracker/shoptracker-backend/pkg/enums"
	pkgerrors "github.com/shoptracker/shoptracker-backend/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *audit.Log) {
	t.Helper()
	log := audit.NewLog(nil)
	svc, err := NewService(NewDirectory(), access.NewPolicy(true), log, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, log
}

func adminActor() *models.Account {
	return &models.Account{Username: "admin", Role: enums.RoleAdmin, IsActive: true}
}

func plainActor() *models.Account {
	return &models.Account{Username: "uma", Role: enums.RoleUser, IsActive: true}
}

func TestCreateUserRequiresPrivilege(t *testing.T) {
	svc, log := newTestService(t)
	ctx := context.Background()

	acct := &models.Account{Username: "nina", Password: "pw", Role: enums.RoleUser, IsActive: true}
	if svc.CreateUser(ctx, plainActor(), acct) {
		t.Fatal("plain user must not create accounts")
	}
	if svc.dir.Exists("nina") {
		t.Fatal("denied create must not mutate the directory")
	}
	if log.Size() != 1 || !strings.Contains(log.Lines()[0], "ACCESS DENIED") {
		t.Fatalf("expected a single denial entry, got %v", log.Lines())
	}

	if !svc.CreateUser(ctx, adminActor(), acct) {
		t.Fatal("admin create should succeed")
	}
	if !svc.dir.Exists("nina") {
		t.Fatal("created account missing from directory")
	}
}

func TestCreateUserConcurrentSameUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const workers = 20
	var created int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			acct := &models.Account{Username: "nina", Password: "pw", Role: enums.RoleUser, IsActive: true}
			if svc.CreateUser(ctx, adminActor(), acct) {
				atomic.AddInt64(&created, 1)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly 1 successful create, got %d", created)
	}
	if svc.dir.Count() != 1 {
		t.Fatalf("expected 1 account in the directory, got %d", svc.dir.Count())
	}
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	svc, log := newTestService(t)
	ctx := context.Background()

	acct := &models.Account{Username: "nina", Role: enums.RoleUser, IsActive: true}
	if !svc.CreateUser(ctx, adminActor(), acct) {
		t.Fatal("first create should succeed")
	}
	if svc.CreateUser(ctx, adminActor(), acct) {
		t.Fatal("duplicate username must be rejected")
	}
	if svc.dir.Count() != 1 {
		t.Fatalf("expected 1 account, got %d", svc.dir.Count())
	}
	lines := log.Lines()
	if !strings.Contains(lines[len(lines)-1], "duplicate username") {
		t.Fatalf("expected duplicate failure entry, got %q", lines[len(lines)-1])
	}
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.CreateUser(ctx, adminActor(), &models.Account{Username: "nina", Role: enums.RoleUser, IsActive: true})

	if svc.DeleteUser(ctx, plainActor(), "nina") {
		t.Fatal("plain user must not delete accounts")
	}
	if svc.DeleteUser(ctx, adminActor(), "ghost") {
		t.Fatal("deleting an absent account must fail")
	}
	if !svc.DeleteUser(ctx, adminActor(), "nina") {
		t.Fatal("admin delete should succeed")
	}
	if svc.dir.Exists("nina") {
		t.Fatal("account still present after delete")
	}
}

func TestChangeUserRoleErrorKinds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.CreateUser(ctx, adminActor(), &models.Account{Username: "nina", Role: enums.RoleUser, IsActive: true})

	err := svc.ChangeUserRole(ctx, plainActor(), "nina", enums.RoleManager)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	err = svc.ChangeUserRole(ctx, adminActor(), "ghost", enums.RoleManager)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	if err := svc.ChangeUserRole(ctx, adminActor(), "nina", enums.RoleManager); err != nil {
		t.Fatalf("role change failed: %v", err)
	}
	acct, _ := svc.dir.Find("nina")
	if acct.Role != enums.RoleManager {
		t.Fatalf("expected manager role, got %s", acct.Role)
	}
}

func TestResetPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.CreateUser(ctx, adminActor(), &models.Account{Username: "nina", Password: "secret", Email: "nina@shop.com", Role: enums.RoleUser, IsActive: true})

	if _, err := svc.ResetPassword(ctx, "ghost", "x@shop.com"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for absent user, got %v", err)
	}
	if _, err := svc.ResetPassword(ctx, "nina", "wrong@shop.com"); pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for email mismatch, got %v", err)
	}

	temp, err := svc.ResetPassword(ctx, "nina", "NINA@shop.com")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if temp != "nina1234" {
		t.Fatalf("unexpected temporary credential %q", temp)
	}
	acct, _ := svc.dir.Find("nina")
	if acct.Password != temp {
		t.Fatal("stored credential does not match the returned one")
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.CreateUser(ctx, adminActor(), &models.Account{Username: "nina", Password: "secret", Role: enums.RoleUser, IsActive: true})
	svc.CreateUser(ctx, adminActor(), &models.Account{Username: "dora", Password: "pw", Role: enums.RoleUser, IsActive: false})

	if _, err := svc.Authenticate(ctx, "nina", "wrong"); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED for bad password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost", "pw"); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED for unknown user, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "dora", "pw"); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED for inactive account, got %v", err)
	}
	acct, err := svc.Authenticate(ctx, "nina", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if acct.Username != "nina" {
		t.Fatalf("unexpected account %q", acct.Username)
	}
}

func TestSearchUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.CreateUser(ctx, adminActor(), &models.Account{Username: "nina", FullName: "Nina North", Email: "nina@shop.com", Role: enums.RoleUser, IsActive: true})
	svc.CreateUser(ctx, adminActor(), &models.Account{Username: "dora", FullName: "Dora Drake", Email: "dora@shop.com", Role: enums.RoleUser, IsActive: true})

	if got := svc.SearchUsers("NORTH"); len(got) != 1 || got[0].Username != "nina" {
		t.Fatalf("full-name search failed: %v", got)
	}
	if got := svc.SearchUsers("dora@"); len(got) != 1 || got[0].Username != "dora" {
		t.Fatalf("email search failed: %v", got)
	}
	if got := svc.SearchUsers(""); len(got) != 2 {
		t.Fatalf("empty query should match everyone, got %d", len(got))
	}
	if got := svc.SearchUsers("zulu"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestSeedDefaultAccountsIfEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if !svc.SeedDefaultAccountsIfEmpty(ctx) {
		t.Fatal("first seed should populate the directory")
	}
	if svc.dir.Count() != 3 {
		t.Fatalf("expected 3 seeded accounts, got %d", svc.dir.Count())
	}
	if svc.SeedDefaultAccountsIfEmpty(ctx) {
		t.Fatal("second seed must be a no-op")
	}

	acct, ok := svc.dir.Find("admin")
	if !ok || acct.Role != enums.RoleAdmin || acct.Password != "1234" {
		t.Fatalf("unexpected admin seed: %+v", acct)
	}
}
