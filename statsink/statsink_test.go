package statsink_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcornwell/rv64core/statsink"
)

func TestCounterTracksHitsAndMisses(t *testing.T) {
	c := statsink.NewCounter()
	c.Hit()
	c.Hit()
	c.Miss()
	assert.Equal(t, uint64(2), c.Hits())
	assert.Equal(t, uint64(1), c.Misses())
}

func TestPrintStatsFormatsRatio(t *testing.T) {
	c := statsink.NewCounter()
	c.Hit()
	c.Hit()
	c.Hit()
	c.Miss()
	var b strings.Builder
	c.PrintStats(&b, "icache")
	out := b.String()
	assert.Contains(t, out, "icache")
	assert.Contains(t, out, "hits=3")
	assert.Contains(t, out, "misses=1")
	assert.Contains(t, out, "75.0%")
}

func TestPrintStatsNoActivity(t *testing.T) {
	c := statsink.NewCounter()
	var b strings.Builder
	c.PrintStats(&b, "dcache")
	assert.Contains(t, b.String(), "0.0%")
}
