package wizard

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionStore keeps wizard sessions in process memory. A session expires
// after ttl without access; expired and deleted sessions are closed.
type SessionStore struct {
	cache *cache.Cache
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
	})
	return &SessionStore{cache: c}
}

func (st *SessionStore) Put(s *Session) {
	st.cache.SetDefault(s.ID.String(), s)
}

// Get returns the session and restarts its expiry. A session closed by an
// eviction racing the refresh is dropped again.
func (st *SessionStore) Get(id uuid.UUID) (*Session, error) {
	v, ok := st.cache.Get(id.String())
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*Session)
	st.cache.SetDefault(id.String(), s)
	if s.Closed() {
		st.cache.Delete(id.String())
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *SessionStore) Delete(id uuid.UUID) error {
	if _, ok := st.cache.Get(id.String()); !ok {
		return ErrSessionNotFound
	}
	st.cache.Delete(id.String())
	return nil
}

// Sweep evicts expired sessions now instead of waiting for the janitor.
func (st *SessionStore) Sweep() {
	st.cache.DeleteExpired()
}

func (st *SessionStore) Len() int {
	return st.cache.ItemCount()
}

// Flush closes and drops every session.
func (st *SessionStore) Flush() {
	st.cache.DeleteExpired()
	for k := range st.cache.Items() {
		st.cache.Delete(k)
	}
}
