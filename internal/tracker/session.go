// Package tracker is the client side of the analytics pipeline: it assigns a
// session identity, observes page lifecycles and ships reports to the
// ingestion surface. The browser build in sdk.js implements the same
// contract.
package tracker

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

// NewSessionID builds a session identity token: a sortable millisecond
// timestamp plus a short random suffix. The token exists to group views, so
// it needs uniqueness, not unguessability.
func NewSessionID(now time.Time) string {
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + hex.EncodeToString(suffix)
}

// SessionStore hands out the session token for the current browsing context.
// GetOrCreate returns "" when the backing storage is unavailable; the tracker
// then disables itself rather than fabricating unstable identities.
type SessionStore interface {
	GetOrCreate() string
}

// MemoryStore keeps one token for the lifetime of the process, mirroring the
// tab-group scope of the browser's sessionStorage.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) GetOrCreate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		s.token = NewSessionID(time.Now())
	}
	return s.token
}
