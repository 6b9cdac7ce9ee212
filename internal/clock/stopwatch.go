// Package clock provides the pipeline's monotonic time source and the
// per-phase duration-statistics accumulator ("Stopwatch") every stage uses
// to report min/avg/max/count numbers at shutdown.
//
// The time source is injectable (github.com/benbjohnson/clock) so tests can
// drive the Tracker's stamp/now comparisons deterministically instead of
// sleeping real wall-clock time.
package clock

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the monotonic time source used across the pipeline. It is the
// subset of github.com/benbjohnson/clock.Clock the pipeline needs.
type Clock interface {
	Now() time.Time
}

// Real is the production clock, backed by the system's monotonic clock.
var Real Clock = clock.New()

// Stopwatch accumulates begin/end duration samples for one named phase,
// grounded on the original implementation's MicroDiffer (original_source's
// tflow.h differ_copy_/differ_prep_/... fields) and on the teacher's
// PacketStats mutex-guarded counter idiom (cmd/lidar/lidar.go).
type Stopwatch struct {
	name  string
	clk   Clock
	mu    sync.Mutex
	start time.Time
	high  time.Duration
	low   time.Duration
	total time.Duration
	count uint64
}

// New constructs a Stopwatch named for reporting purposes. clk may be nil,
// in which case Real is used.
func New(name string, clk Clock) *Stopwatch {
	if clk == nil {
		clk = Real
	}
	return &Stopwatch{name: name, clk: clk}
}

// Begin records the start of one sample.
func (s *Stopwatch) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = s.clk.Now()
}

// End records the end of the sample started by the most recent Begin and
// folds it into the running min/avg/max/count.
func (s *Stopwatch) End() {
	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.start.IsZero() {
		return
	}
	d := now.Sub(s.start)
	s.start = time.Time{}

	if s.count == 0 || d > s.high {
		s.high = d
	}
	if s.count == 0 || d < s.low {
		s.low = d
	}
	s.total += d
	s.count++
}

// Snapshot is a point-in-time read of a Stopwatch's accumulated stats.
type Snapshot struct {
	Name  string
	High  time.Duration
	Avg   time.Duration
	Low   time.Duration
	Count uint64
}

// Snapshot returns the current accumulated stats.
func (s *Stopwatch) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avg time.Duration
	if s.count > 0 {
		avg = s.total / time.Duration(s.count)
	}
	return Snapshot{Name: s.name, High: s.high, Avg: avg, Low: s.low, Count: s.count}
}

// WriteTable prints a human-readable (not a stable interface, per §6) table
// of one or more snapshots to w, microseconds throughout.
func WriteTable(w io.Writer, label string, snaps ...Snapshot) {
	fmt.Fprintf(w, "\n%s...\n", label)
	for _, sn := range snaps {
		fmt.Fprintf(w, "  %24s time (us): high:%d avg:%d low:%d cnt:%d\n",
			sn.Name,
			sn.High.Microseconds(), sn.Avg.Microseconds(), sn.Low.Microseconds(), sn.Count)
	}
	fmt.Fprintln(w)
}
