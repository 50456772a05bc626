package models

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is a learner's classified learning speed.
type Tier string

const (
	TierSlow     Tier = "slow"
	TierModerate Tier = "moderate"
	TierFast     Tier = "fast"
)

// ErrInvalidTier is returned (wrapped) for unknown learning speeds.
var ErrInvalidTier = errors.New("invalid learning speed")

// DefaultTier is used for learners that have not been classified yet.
const DefaultTier = TierModerate

// Tiers lists every tier from the most to the least supported.
var Tiers = []Tier{TierSlow, TierModerate, TierFast}

// ParseTier parses a tier name case-insensitively. An empty string yields DefaultTier.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTier, nil
	}
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w %q (want slow, moderate or fast)", ErrInvalidTier, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierSlow, TierModerate, TierFast:
		return true
	}
	return false
}

// DetailLevel returns the label attached to decks built for t.
func (t Tier) DetailLevel() string {
	switch t {
	case TierSlow:
		return "basic"
	case TierFast:
		return "advanced"
	default:
		return "intermediate"
	}
}

// DefaultDeckSize is the number of cards a deck targets when nothing is configured.
func (t Tier) DefaultDeckSize() int {
	switch t {
	case TierSlow:
		return 10
	case TierFast:
		return 6
	default:
		return 8
	}
}

func (t Tier) String() string { return string(t) }
