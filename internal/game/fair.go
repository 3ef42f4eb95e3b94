package game

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// NewServerSeed returns a random 32-byte seed as hex.
func NewServerSeed() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SeedHash is the commitment published before flight; the seed itself is
// revealed at crash so players can verify the crash point.
func SeedHash(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// deriveFloat maps HMAC-SHA256(seed, roundID) to a uniform value in [0, 1).
func deriveFloat(serverSeed, roundID string) float64 {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(roundID))
	sum := mac.Sum(nil)

	n := binary.BigEndian.Uint64(sum[:8])
	return float64(n>>11) / float64(1<<53)
}

// CrashPoint derives the round's crash multiplier from the server seed.
// P(crash >= x) ~= (1-houseEdge)/x, with an instant bust at 1.00 with
// probability houseEdge, capped at maxMultiplier, floored to 2 decimals.
func CrashPoint(serverSeed, roundID string, houseEdge, maxMultiplier float64) decimal.Decimal {
	r := deriveFloat(serverSeed, roundID)
	if r < houseEdge {
		return decimal.NewFromInt(1).Truncate(2)
	}

	crash := (1 - houseEdge) / (1 - r)
	if crash > maxMultiplier {
		crash = maxMultiplier
	}
	if crash < 1 {
		crash = 1
	}
	return decimal.NewFromFloat(crash).Truncate(2)
}

// MultiplierAt is the flight curve: e^(rate * seconds), truncated to 2
// decimals. It is a pure function of elapsed time so tick jitter cannot
// bend the curve.
func MultiplierAt(elapsed time.Duration, growthRate float64) decimal.Decimal {
	m := math.Exp(growthRate * elapsed.Seconds())
	d := decimal.NewFromFloat(m).Truncate(2)
	one := decimal.NewFromInt(1)
	if d.LessThan(one) {
		return one
	}
	return d
}

// Payout computes amount * multiplier in cents, rounded down to a cent.
func Payout(amountCents int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(amountCents).Mul(multiplier).Floor().IntPart()
}
