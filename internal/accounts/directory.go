package accounts

import (
	"sort"
	"sync"
	"time"

	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
)

// Directory is the in-memory authoritative store of accounts, keyed by
// username. It hands out clones so callers can never reach the shared
// records; the service layer owns the check-then-act serialization on top.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

// NewDirectory builds an empty directory.
func NewDirectory() *Directory {
	return &Directory{accounts: make(map[string]*models.Account)}
}

// Exists reports whether the username is taken.
func (d *Directory) Exists(username string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.accounts[username]
	return ok
}

// Find returns a copy of the account, or false when absent.
func (d *Directory) Find(username string) (*models.Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acct, ok := d.accounts[username]
	if !ok {
		return nil, false
	}
	return acct.Clone(), true
}

// FindAll returns copies of every account, ordered by username.
func (d *Directory) FindAll() []*models.Account {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*models.Account, 0, len(d.accounts))
	for _, acct := range d.accounts {
		out = append(out, acct.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Save upserts the account, keeping creation time on overwrite.
func (d *Directory) Save(acct *models.Account) {
	if acct == nil || acct.Username == "" {
		return
	}
	stored := acct.Clone()
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.accounts[stored.Username]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	d.accounts[stored.Username] = stored
}

// Delete removes the account if present.
func (d *Directory) Delete(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.accounts, username)
}

// Count reports the number of stored accounts.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}
