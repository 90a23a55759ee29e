package order

import (
	"fmt"
	"math/rand"
	"time"
)

// NumberGenerator produces merchant-facing order numbers when the caller
// does not supply one. The format is kept compatible with historical ledger
// rows: ORD-<date>-<epoch millis>-<three digits>.
//
// This is a fallback, not a uniqueness primitive: two requests in the same
// millisecond can collide with probability 1/1000. The client-visible cart
// flow always supplies its own number; only degraded callers hit this path.
type NumberGenerator struct {
	nowFunc  func() time.Time
	randFunc func(n int) int
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{
		nowFunc:  time.Now,
		randFunc: rand.Intn,
	}
}

func (g *NumberGenerator) Generate() string {
	now := g.nowFunc().UTC()
	return fmt.Sprintf("ORD-%s-%d-%d",
		now.Format("2006-01-02"),
		now.UnixMilli(),
		g.randFunc(1000),
	)
}
