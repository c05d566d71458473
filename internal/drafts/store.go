// Package drafts keeps short-lived per-user form drafts in process memory.
package drafts

import (
	"fmt"
	"time"

	"github.com/HanTheDev/resumatch/internal/cache"
)

const (
	DefaultTTL       = 14 * 24 * time.Hour
	SweepProbability = 0.02
)

type Kind string

const (
	KindAnalysis    Kind = "analysis"
	KindCoverLetter Kind = "cover-letter"
)

// ParseKind validates a kind coming from a request.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAnalysis, KindCoverLetter:
		return Kind(s), nil
	}
	return "", fmt.Errorf("invalid draft kind %q", s)
}

type Draft struct {
	Payload   map[string]any
	UpdatedAt time.Time
}

type Store struct {
	drafts *cache.TTLMap[map[string]any]
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{drafts: cache.NewTTLMap[map[string]any](ttl, SweepProbability)}
}

func (s *Store) Get(userID string, kind Kind) (*Draft, bool) {
	payload, updatedAt, ok := s.drafts.Get(key(userID, kind))
	if !ok {
		return nil, false
	}
	return &Draft{Payload: payload, UpdatedAt: updatedAt}, true
}

func (s *Store) Set(userID string, kind Kind, payload map[string]any) time.Time {
	return s.drafts.Set(key(userID, kind), payload)
}

func (s *Store) Delete(userID string, kind Kind) {
	s.drafts.Delete(key(userID, kind))
}

func key(userID string, kind Kind) string {
	return userID + ":" + string(kind)
}
