// Package session holds the client's current credential pair in memory.
package session

import "sync"

// Session is a snapshot of the client's credentials. Empty strings mean
// absent.
type Session struct {
	AccessToken  string
	RefreshToken string
}

func (s Session) HasAccess() bool {
	return s.AccessToken != ""
}

func (s Session) HasRefresh() bool {
	return s.RefreshToken != ""
}

// Cache is the single mutable holder of a Session. Readers share the lock;
// writers replace both fields at once.
type Cache struct {
	mu      sync.RWMutex
	current Session
}

func New() *Cache {
	return &Cache{}
}

func (c *Cache) Get() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Cache) Set(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
}

func (c *Cache) Clear() {
	c.Set(Session{})
}

// ClearIf empties the cache only while it still holds refreshToken and
// reports whether it did. A pair stored by a concurrent refresh survives.
func (c *Cache) ClearIf(refreshToken string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.RefreshToken != refreshToken {
		return false
	}
	c.current = Session{}
	return true
}
