package profile

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"zg-client/internal/client"
	"zg-client/internal/domain"
)

const mePath = "/auth/me"

type Fetcher interface {
	GetRaw(ctx context.Context, path string, out interface{}) error
}

type CredentialStore interface {
	Get() (string, bool)
	ClearIf(token string) bool
}

// Cache is the single shared snapshot of the signed-in user. Writes are
// wholesale and last-write-wins; concurrent refreshes are not coalesced.
type Cache struct {
	fetcher Fetcher
	creds   CredentialStore

	mu       sync.RWMutex
	current  *domain.UserProfile
	watchers map[chan *domain.UserProfile]struct{}

	refreshes atomic.Int64
}

func NewCache(fetcher Fetcher, creds CredentialStore) *Cache {
	return &Cache{
		fetcher:  fetcher,
		creds:    creds,
		watchers: make(map[chan *domain.UserProfile]struct{}),
	}
}

func (c *Cache) Current() (*domain.UserProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, false
	}
	return c.current.Clone(), true
}

func (c *Cache) Replace(p *domain.UserProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = p.Clone()
	c.notifyLocked()
}

func (c *Cache) Invalidate() {
	c.Replace(nil)
}

// Refresh fetches the authoritative profile. A 401 drops both the snapshot
// and the credential unless the credential has been replaced meanwhile;
// any other failure keeps the last good snapshot.
func (c *Cache) Refresh(ctx context.Context) (*domain.UserProfile, error) {
	token, ok := c.creds.Get()
	if !ok {
		return nil, client.ErrNoCredential
	}

	c.refreshes.Add(1)

	var acc domain.Account
	if err := c.fetcher.GetRaw(ctx, mePath, &acc); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			if current, ok := c.creds.Get(); ok && current != token {
				log.Printf("[Profile] 401 for a replaced credential, keeping snapshot")
				return nil, err
			}
			log.Printf("[Profile] credential expired, dropping snapshot")
			c.creds.ClearIf(token)
			c.Invalidate()
			return nil, err
		}
		log.Printf("[Profile] refresh failed, keeping last snapshot: %v", err)
		return nil, err
	}

	p := acc.Profile()
	c.Replace(p)
	return p.Clone(), nil
}

// Refreshes reports how many refresh requests have been issued.
func (c *Cache) Refreshes() int64 {
	return c.refreshes.Load()
}

// Watch delivers every new snapshot, nil after invalidation. Only the
// newest unread snapshot is kept per watcher.
func (c *Cache) Watch() <-chan *domain.UserProfile {
	ch := make(chan *domain.UserProfile, 1)
	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()
	return ch
}

func (c *Cache) Unwatch(w <-chan *domain.UserProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.watchers {
		if ch == w {
			delete(c.watchers, ch)
			close(ch)
			return
		}
	}
}

func (c *Cache) notifyLocked() {
	for ch := range c.watchers {
		snapshot := c.current.Clone()
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
