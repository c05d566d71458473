// Package idempotency replays responses for client-supplied idempotency keys.
package idempotency

import (
	"encoding/json"
	"time"

	"github.com/HanTheDev/resumatch/internal/cache"
)

// DefaultTTL covers realistic client retry windows.
const DefaultTTL = 15 * time.Minute

// SweepProbability is the chance a Set also drops expired records.
const SweepProbability = 0.01

// Key scopes a client key to one user and operation.
type Key struct {
	UserID    string
	Operation string
	ClientKey string
}

func (k Key) String() string {
	return k.UserID + ":" + k.Operation + ":" + k.ClientKey
}

// Record is a fully assembled response. Payload is kept as the exact bytes
// written to the client.
type Record struct {
	Key      string
	Status   int
	Payload  json.RawMessage
	StoredAt time.Time
}

// Store holds at most one record per key, bounded only by time.
type Store struct {
	records *cache.TTLMap[Record]
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{records: cache.NewTTLMap[Record](ttl, SweepProbability)}
}

func (s *Store) Get(key Key) (Record, bool) {
	rec, _, ok := s.records.Get(key.String())
	return rec, ok
}

// Set registers a response, replacing any earlier one for the same key.
func (s *Store) Set(key Key, status int, payload []byte) {
	k := key.String()
	body := make(json.RawMessage, len(payload))
	copy(body, payload)
	rec := Record{Key: k, Status: status, Payload: body, StoredAt: time.Now()}
	s.records.Set(k, rec)
}

func (s *Store) Len() int {
	return s.records.Len()
}
