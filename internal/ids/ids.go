package ids

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	// PrefixReservation marks identifiers shared with customers for bookings.
	PrefixReservation = "RES"
	// PrefixOrder marks order tracking identifiers.
	PrefixOrder = "TRK"

	suffixLen = 4
)

var (
	// ErrTaken is returned by an insert callback when the identifier hit a unique constraint.
	ErrTaken = errors.New("identifier already taken")
	// ErrExhausted means every attempt produced an identifier that was already in use.
	ErrExhausted = errors.New("identifier attempts exhausted")

	suffixSpace = big.NewInt(36 * 36 * 36 * 36)
)

// Generator produces candidate identifiers. Candidates are not guaranteed unique.
type Generator interface {
	Generate(prefix string) string
}

// TimeGenerator builds PREFIX-<base36 millis>-<base36 random> identifiers.
type TimeGenerator struct {
	Now func() time.Time
}

// NewGenerator returns a generator using the wall clock.
func NewGenerator() *TimeGenerator {
	return &TimeGenerator{Now: time.Now}
}

// Generate returns an upper-cased identifier for prefix.
func (g *TimeGenerator) Generate(prefix string) string {
	now := time.Now
	if g != nil && g.Now != nil {
		now = g.Now
	}
	ts := strconv.FormatInt(now().UnixMilli(), 36)
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s", prefix, ts, randomSuffix()))
}

func randomSuffix() string {
	n, err := rand.Int(rand.Reader, suffixSpace)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is unavailable.
		n = big.NewInt(time.Now().UnixNano() % suffixSpace.Int64())
	}
	s := strconv.FormatInt(n.Int64(), 36)
	return strings.Repeat("0", suffixLen-len(s)) + s
}

// ExistsFunc reports whether an identifier is already in use.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// InsertFunc persists a record under id. It returns ErrTaken (possibly wrapped)
// when the store's unique constraint rejected the identifier.
type InsertFunc func(ctx context.Context, id string) error

// Allocate generates identifiers until one is absent and inserted successfully.
// The existence check avoids most collisions; the insert's unique constraint is
// the final arbiter. It gives up after maxAttempts candidates.
func Allocate(ctx context.Context, gen Generator, prefix string, maxAttempts int, exists ExistsFunc, insert InsertFunc) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id := gen.Generate(prefix)
		if exists != nil {
			taken, err := exists(ctx, id)
			if err != nil {
				return "", fmt.Errorf("check identifier %s: %w", id, err)
			}
			if taken {
				continue
			}
		}

		err := insert(ctx, id)
		if errors.Is(err, ErrTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		return id, nil
	}
	return "", fmt.Errorf("%w: prefix %s after %d attempts", ErrExhausted, prefix, maxAttempts)
}
