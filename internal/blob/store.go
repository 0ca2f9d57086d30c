// Package blob is the process-lifetime object store backing binary assets.
// Handles it mints are meaningless after a restart and are never persisted.
package blob

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Scheme prefixes every handle minted by a Store.
const Scheme = "blob:"

// ErrUnknownHandle is returned by Fetch for handles this process never minted.
var ErrUnknownHandle = errors.New("unknown blob handle")

// IsHandle reports whether s looks like an ephemeral handle.
func IsHandle(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

type object struct {
	data []byte
	mime string
}

// Store holds binary payloads in memory, keyed by handle.
type Store struct {
	mu      sync.Mutex
	objects map[string]object
	entropy *ulid.MonotonicEntropy
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		objects: make(map[string]object),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Create copies data into the store and returns a fresh handle.
func (s *Store) Create(data []byte, mime string) string {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	handle := Scheme + ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
	s.objects[handle] = object{data: buf, mime: mime}
	return handle
}

// Fetch returns a copy of the bytes and the MIME type behind handle.
func (s *Store) Fetch(handle string) ([]byte, string, error) {
	s.mu.Lock()
	obj, ok := s.objects[handle]
	s.mu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, obj.mime, nil
}

// Len returns the number of live objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
