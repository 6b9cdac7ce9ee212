// Package tracker implements the pipeline's Kalman-filter, Hungarian
// assignment-based multi-object tracker: §4.3 of the design.
package tracker

import (
	"log"
	"math"
	"time"

	"github.com/lindenwood-labs/trackpipe/internal/bus"
	clk "github.com/lindenwood-labs/trackpipe/internal/clock"
	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// tickPhases names the seven per-tick Stopwatch instances, mirroring the
// original's differ_untouch_/differ_associate_/differ_create_/
// differ_touch_/differ_cleanup_/differ_post_/differ_tot_ (original_source's
// tracker.cpp), restored per SPEC_FULL §12.
var tickPhases = []string{"untouch", "associate", "create", "touch", "cleanup", "post", "tot"}

// EventSink records track birth/death, an append-only audit trail
// supplementing the distilled spec (SPEC_FULL §12). Nil is a valid Tracker
// field: events are simply not recorded.
type EventSink interface {
	TrackBorn(id uint64, typ model.Type, at time.Time)
	TrackDied(id uint64, typ model.Type, at time.Time)
}

// Config holds the Tracker's immutable-after-construction parameters, §4.3.
type Config struct {
	MaxDist         float64
	MaxTime         time.Duration
	TargetTypes     []model.Type
	InitialError    float64
	MeasureVariance float64
	ProcessVariance float64
}

// Tracker consumes BoxBuf batches and produces TrackBuf batches. It
// implements worker.Hooks so a Worker can drive it, and exposes AddMessage
// so Inference can deliver detections to it directly.
type Tracker struct {
	cfg Config

	inbox   *bus.Listener[[]model.BoxBuf]
	encoder *bus.Listener[[]model.TrackBuf]

	clk    clk.Clock
	logger *log.Logger
	sink   EventSink

	targetTypes map[model.Type]bool

	tracks []*Track
	nextID uint64
	motion *motion

	running     bool
	stopwatches map[string]*clk.Stopwatch
}

// New constructs a Tracker. clock and logger may be nil, in which case the
// real system clock and the default logger are used; sink may be nil.
func New(cfg Config, encoder *bus.Listener[[]model.TrackBuf], clock clk.Clock, logger *log.Logger, sink EventSink) *Tracker {
	if clock == nil {
		clock = clk.Real
	}
	if logger == nil {
		logger = log.Default()
	}

	targets := make(map[model.Type]bool, len(cfg.TargetTypes))
	for _, t := range cfg.TargetTypes {
		targets[t] = true
	}

	sws := make(map[string]*clk.Stopwatch, len(tickPhases))
	for _, p := range tickPhases {
		sws[p] = clk.New(p, clock)
	}

	return &Tracker{
		cfg:         cfg,
		inbox:       bus.NewListener[[]model.BoxBuf](),
		encoder:     encoder,
		clk:         clock,
		logger:      logger,
		sink:        sink,
		targetTypes: targets,
		motion:      newMotion(cfg.MeasureVariance, cfg.ProcessVariance),
		stopwatches: sws,
	}
}

// AddMessage delivers a detection batch to the tracker's inbox, per §4.2.
func (t *Tracker) AddMessage(batch []model.BoxBuf) bool {
	return t.inbox.AddMessage(batch)
}

// Stats returns a point-in-time snapshot of each tick phase's duration
// statistics.
func (t *Tracker) Stats() []clk.Snapshot {
	snaps := make([]clk.Snapshot, 0, len(tickPhases))
	for _, name := range tickPhases {
		snaps = append(snaps, t.stopwatches[name].Snapshot())
	}
	return snaps
}

// WaitingToRun implements worker.Hooks. On the transition into Running it
// starts the tick-total stopwatch, mirroring the original's
// differ_tot_.begin() in waitingToRun().
func (t *Tracker) WaitingToRun() bool {
	if !t.running {
		t.stopwatches["tot"].Begin()
		t.running = true
	}
	return true
}

// Paused implements worker.Hooks; no per-tick work while paused.
func (t *Tracker) Paused() bool { return true }

// WaitingToHalt implements worker.Hooks. It stops the tick-total stopwatch
// and prints the seven-phase report, mirroring the original's
// waitingToHalt() (original_source's tracker.cpp). A worker that never ran
// (paused before its first Run()) prints nothing, matching the original's
// tracker_on_ guard.
func (t *Tracker) WaitingToHalt() bool {
	if !t.running {
		return true
	}
	t.stopwatches["tot"].End()
	t.running = false
	t.printStats()
	return true
}

// printStats writes the per-phase duration report in the original's
// "Tracker Results..." shape.
func (t *Tracker) printStats() {
	rows := []struct {
		label string
		key   string
	}{
		{"target untouch time (us)", "untouch"},
		{"target association time (us)", "associate"},
		{"track create time (us)", "create"},
		{"target touch time (us)", "touch"},
		{"track cleanup time (us)", "cleanup"},
		{"track post time (us)", "post"},
	}

	t.logger.Printf("Tracker Results...")
	for _, row := range rows {
		sn := t.stopwatches[row.key].Snapshot()
		t.logger.Printf("%30s: high:%d avg:%d low:%d cnt:%d",
			row.label, sn.High.Microseconds(), sn.Avg.Microseconds(), sn.Low.Microseconds(), sn.Count)
	}
	t.logger.Printf("%30s: %d", "total tracks", t.nextID)
	tot := t.stopwatches["tot"].Snapshot()
	t.logger.Printf("%30s: %f sec", "total test time", tot.Avg.Seconds())
}

// Running implements worker.Hooks, running one tick of the algorithm in §4.3.
func (t *Tracker) Running() bool {
	t.tick()
	return true
}

// tick runs one invocation of the per-tick algorithm, timing each phase the
// way the original's running() times untouchTracks/associateTracks/
// createNewTracks/touchTracks/cleanupTracks/postTracks.
func (t *Tracker) tick() {
	now := t.clk.Now()

	dets := t.ingest()

	t.stopwatches["untouch"].Begin()
	for _, tr := range t.tracks {
		tr.touched = false
	}
	t.stopwatches["untouch"].End()

	t.stopwatches["associate"].Begin()
	remaining := t.associate(dets, now)
	t.stopwatches["associate"].End()

	t.stopwatches["create"].Begin()
	t.createNewTracks(remaining, now)
	t.stopwatches["create"].End()

	t.stopwatches["touch"].Begin()
	for _, tr := range t.tracks {
		if !tr.touched {
			tr.updateTime()
		}
	}
	t.stopwatches["touch"].End()

	t.stopwatches["cleanup"].Begin()
	t.cleanup(now)
	t.stopwatches["cleanup"].End()

	t.stopwatches["post"].Begin()
	t.post()
	t.stopwatches["post"].End()
}

// ingest moves the latest detection batch out of the inbox and filters it
// to the types this tracker actually follows, per §4.3 step 1.
func (t *Tracker) ingest() []model.BoxBuf {
	batch, ok := t.inbox.Take()
	if !ok {
		return nil
	}
	if len(t.targetTypes) == 0 {
		return batch
	}
	filtered := make([]model.BoxBuf, 0, len(batch))
	for _, d := range batch {
		if t.targetTypes[d.Type] {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// associate builds the cost matrix, solves the assignment, and consumes
// every detection within max_dist of its assigned track. It returns the
// detections left unconsumed, which become candidates for new tracks.
func (t *Tracker) associate(dets []model.BoxBuf, now time.Time) []model.BoxBuf {
	if len(t.tracks) == 0 || len(dets) == 0 {
		return dets
	}

	cost := make([][]float64, len(t.tracks))
	for i, tr := range t.tracks {
		cost[i] = make([]float64, len(dets))
		cx, cy := tr.Centre()
		for k, d := range dets {
			if tr.Type != d.Type {
				cost[i][k] = forbiddenCost
				continue
			}
			dcx, dcy := float64(d.CenterX()), float64(d.CenterY())
			cost[i][k] = math.Hypot(cx-dcx, cy-dcy)
		}
	}

	assignments := hungarianAssign(cost)

	consumed := make([]bool, len(dets))
	for i, k := range assignments {
		if k < 0 {
			continue
		}
		if cost[i][k] > t.cfg.MaxDist {
			continue
		}
		d := dets[k]
		t.tracks[i].addTarget(d.X, d.Y, d.W, d.H, now)
		consumed[k] = true
	}

	remaining := make([]model.BoxBuf, 0, len(dets))
	for k, d := range dets {
		if !consumed[k] {
			remaining = append(remaining, d)
		}
	}
	return remaining
}

// createNewTracks births a fresh track, state Init, for every detection
// that association left unconsumed, per §4.3 step 4.
func (t *Tracker) createNewTracks(dets []model.BoxBuf, now time.Time) {
	for _, d := range dets {
		t.nextID++
		id := t.nextID
		tr := newTrack(id, d.Type, d.X, d.Y, d.W, d.H, t.cfg.InitialError, t.motion, now)
		tr.touched = true
		t.tracks = append(t.tracks, tr)
		if t.sink != nil {
			t.sink.TrackBorn(id, d.Type, now)
		}
	}
}

// cleanup drops every track whose stamp is older than max_time, per §4.3
// step 6; the equal-to-max_time boundary is retained, strictly-greater is
// evicted.
func (t *Tracker) cleanup(now time.Time) {
	survivors := t.tracks[:0]
	for _, tr := range t.tracks {
		if now.Sub(tr.stamp) > t.cfg.MaxTime {
			if t.sink != nil {
				t.sink.TrackDied(tr.ID, tr.Type, now)
			}
			continue
		}
		survivors = append(survivors, tr)
	}
	t.tracks = survivors
}

// post builds a TrackBuf batch from every surviving track and hands it to
// the encoder. Each track's geometry is its last-observed rectangle
// (tr.X/Y/W/H), not the Kalman-filtered predicted centre — a track that
// ages without a new detection keeps emitting the box it was last actually
// seen at, per the original's postTracks. A full encoder inbox is logged
// and dropped, never retried.
func (t *Tracker) post() {
	batch := make([]model.TrackBuf, 0, len(t.tracks))
	for _, tr := range t.tracks {
		batch = append(batch, model.TrackBuf{
			Type: tr.Type,
			ID:   tr.ID,
			X:    tr.X,
			Y:    tr.Y,
			W:    tr.W,
			H:    tr.H,
		})
	}
	if t.encoder == nil {
		return
	}
	if !t.encoder.AddMessage(batch) {
		t.logger.Printf("tracker: encoder inbox full, dropping batch of %d tracks", len(batch))
	}
}
