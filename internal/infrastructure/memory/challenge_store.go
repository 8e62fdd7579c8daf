// Package memory holds single-process implementations of the challenge store and
// the survey write lock. They are used when no REDIS_URL is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

type challengeEntry struct {
	answer    string
	expiresAt time.Time
}

// ChallengeStore keeps human-check answers keyed by intake session id.
type ChallengeStore struct {
	mu      sync.Mutex
	entries map[string]challengeEntry
	now     func() time.Time
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{entries: make(map[string]challengeEntry), now: time.Now}
}

func (s *ChallengeStore) Put(_ context.Context, sessionID, answer string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[sessionID] = challengeEntry{answer: answer, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get returns the stored answer or domain.ErrNotFound when missing or expired.
func (s *ChallengeStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok || !s.now().Before(entry.expiresAt) {
		delete(s.entries, sessionID)
		return "", fmt.Errorf("challenge %s: %w", sessionID, domain.ErrNotFound)
	}
	return entry.answer, nil
}

// Take returns the answer and removes it under one lock hold.
func (s *ChallengeStore) Take(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	delete(s.entries, sessionID)
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", fmt.Errorf("challenge %s: %w", sessionID, domain.ErrNotFound)
	}
	return entry.answer, nil
}

func (s *ChallengeStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// sweep drops expired entries. Callers hold mu.
func (s *ChallengeStore) sweep() {
	now := s.now()
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
