package application

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// ChallengeMode selects how the human check is produced.
type ChallengeMode string

const (
	// ChallengeGenerated asks a fresh arithmetic question per intake session.
	ChallengeGenerated ChallengeMode = "generated"
	// ChallengeFixed asks a configured question with a configured answer.
	ChallengeFixed ChallengeMode = "fixed"
)

func ParseChallengeMode(v string) (ChallengeMode, error) {
	switch ChallengeMode(strings.ToLower(strings.TrimSpace(v))) {
	case "", ChallengeGenerated:
		return ChallengeGenerated, nil
	case ChallengeFixed:
		return ChallengeFixed, nil
	}
	return "", fmt.Errorf("unknown human check mode %q", v)
}

// ChallengeStore keeps generated answers until they are used or expire. Take reads
// and removes an answer in one step, so only one caller can ever hold it.
type ChallengeStore interface {
	Put(ctx context.Context, sessionID, answer string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (string, error)
	Take(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// Challenge is what the form shows to the submitter. The answer never leaves the server.
type Challenge struct {
	Mode     ChallengeMode `json:"mode"`
	Question string        `json:"question"`
}

type ChallengeConfig struct {
	Mode          ChallengeMode
	FixedQuestion string
	FixedAnswer   string
	TTL           time.Duration
}

// arithmetic returns a small addition question and its answer.
func arithmetic() (string, string) {
	a := rand.IntN(9) + 1
	b := rand.IntN(9) + 1
	return fmt.Sprintf("What is %d + %d?", a, b), strconv.Itoa(a + b)
}
