package ledger

import (
	"sync"
	"time"

	"github.com/trustedfriends/loanbook/pkg/models"
)

// loanCache is a read-through cache over the full loan list. Reads within
// ttl of the last fetch are served from memory; every ledger write
// invalidates it synchronously, so the TTL only bounds staleness against
// out-of-band database changes.
type loanCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	loans     []*models.Loan
	fetchedAt time.Time
	valid     bool
}

func newLoanCache(ttl time.Duration) *loanCache {
	return &loanCache{ttl: ttl}
}

func (c *loanCache) get(fetch func() ([]*models.Loan, error), now time.Time) ([]*models.Loan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl > 0 && c.valid && now.Sub(c.fetchedAt) < c.ttl {
		return c.loans, nil
	}

	loans, err := fetch()
	if err != nil {
		return nil, err
	}
	c.loans = loans
	c.fetchedAt = now
	c.valid = true
	return loans, nil
}

func (c *loanCache) invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
