/*
   rv64core - cache/TLB statistics sinks.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package statsink defines the optional cache/ITLB/DTLB statistics
// attachment point named in spec.md §4.6/§6 ("each is an independent
// model with print_stats on drop") and a reference counting
// implementation sufficient for the CORE's own tests and cmd/rv64core.
package statsink

import (
	"fmt"
	"io"
)

// StatSink is an independent hit/miss accounting model a Processor can
// attach to its MMU for its instruction cache, data cache, ITLB, or
// DTLB. Each attachment is exclusively owned, matching spec.md §5's
// resource policy; PrintStats is called exactly once, on facade close,
// in the fixed order icache, ITLB, dcache, DTLB.
type StatSink interface {
	Hit()
	Miss()
	PrintStats(w io.Writer, label string)
}

// Counter is a reference StatSink: plain hit/miss tallies. It carries no
// synchronization because each sink is exclusively owned by the single
// hart whose MMU it is attached to, per spec.md §5.
type Counter struct {
	hits   uint64
	misses uint64
}

// NewCounter returns a zeroed Counter.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Hit() { c.hits++ }

func (c *Counter) Miss() { c.misses++ }

// PrintStats writes a one-line hit/miss/ratio summary to w.
func (c *Counter) PrintStats(w io.Writer, label string) {
	total := c.hits + c.misses
	ratio := 0.0
	if total != 0 {
		ratio = float64(c.hits) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s: hits=%d misses=%d hit_rate=%.1f%%\n", label, c.hits, c.misses, ratio)
}

// Hits and Misses expose raw counts for tests; not part of the StatSink
// contract other attachments must implement.
func (c *Counter) Hits() uint64   { return c.hits }
func (c *Counter) Misses() uint64 { return c.misses }
