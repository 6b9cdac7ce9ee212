package tracker

import (
	"testing"
	"time"

	bjclock "github.com/benbjohnson/clock"

	"github.com/lindenwood-labs/trackpipe/internal/bus"
	"github.com/lindenwood-labs/trackpipe/internal/model"
)

func newTestTracker(mock *bjclock.Mock, maxDist float64, maxTime time.Duration) (*Tracker, *bus.Listener[[]model.TrackBuf]) {
	enc := bus.NewListener[[]model.TrackBuf]()
	cfg := Config{
		MaxDist:         maxDist,
		MaxTime:         maxTime,
		InitialError:    10,
		MeasureVariance: 1,
		ProcessVariance: 0.1,
	}
	return New(cfg, enc, mock, nil, nil), enc
}

func TestSingleTargetStraightLine(t *testing.T) {
	mock := bjclock.NewMock()
	tr, enc := newTestTracker(mock, 50, 1000*time.Millisecond)

	var lastID uint64
	for i := 0; i < 10; i++ {
		cx := 100 + 10*i
		tr.AddMessage([]model.BoxBuf{{Type: model.Person, ID: uint64(i), X: cx - 10, Y: 90, W: 20, H: 20}})
		tr.tick()
		mock.Add(100 * time.Millisecond)

		batch, ok := enc.Take()
		if !ok || len(batch) != 1 {
			t.Fatalf("tick %d: expected exactly one track, got ok=%v batch=%v", i, ok, batch)
		}
		if lastID == 0 {
			lastID = batch[0].ID
		} else if batch[0].ID != lastID {
			t.Fatalf("tick %d: track id changed from %d to %d", i, lastID, batch[0].ID)
		}
	}

	if len(tr.tracks) != 1 {
		t.Fatalf("expected exactly one surviving track, got %d", len(tr.tracks))
	}
	finalTrack := tr.tracks[0]
	cx, _ := finalTrack.Centre()
	if cx < 180 || cx > 200 {
		t.Errorf("expected final predicted centre x near 190, got %v", cx)
	}
	if finalTrack.x.AtVec(2) <= 0 {
		t.Errorf("expected positive x velocity, got %v", finalTrack.x.AtVec(2))
	}
}

func TestTargetDisappearsThenReturnsWithFreshID(t *testing.T) {
	mock := bjclock.NewMock()
	tr, _ := newTestTracker(mock, 50, 1000*time.Millisecond)

	for i := 0; i < 5; i++ {
		tr.AddMessage([]model.BoxBuf{{Type: model.Vehicle, ID: uint64(i), X: 100, Y: 100, W: 40, H: 20}})
		tr.tick()
		mock.Add(100 * time.Millisecond)
	}
	if len(tr.tracks) != 1 {
		t.Fatalf("expected one track after 5 detections, got %d", len(tr.tracks))
	}
	firstID := tr.tracks[0].ID

	// No detections for max_time + delta.
	mock.Add(1200 * time.Millisecond)
	tr.tick()
	if len(tr.tracks) != 0 {
		t.Fatalf("expected track to be evicted, got %d remaining", len(tr.tracks))
	}

	tr.AddMessage([]model.BoxBuf{{Type: model.Vehicle, ID: 99, X: 300, Y: 300, W: 40, H: 20}})
	tr.tick()
	if len(tr.tracks) != 1 {
		t.Fatalf("expected a fresh track, got %d", len(tr.tracks))
	}
	if tr.tracks[0].ID <= firstID {
		t.Errorf("expected a larger, fresh track id; got %d (was %d)", tr.tracks[0].ID, firstID)
	}
}

func TestTypeSwitchNoCrossTypeAssociation(t *testing.T) {
	mock := bjclock.NewMock()
	tr, _ := newTestTracker(mock, 50, 300*time.Millisecond)

	tr.AddMessage([]model.BoxBuf{{Type: model.Pet, ID: 1, X: 100, Y: 100, W: 20, H: 20}})
	tr.tick()
	mock.Add(100 * time.Millisecond)
	if len(tr.tracks) != 1 {
		t.Fatalf("expected one pet track, got %d", len(tr.tracks))
	}
	petID := tr.tracks[0].ID

	tr.AddMessage([]model.BoxBuf{{Type: model.Person, ID: 2, X: 102, Y: 101, W: 20, H: 20}})
	tr.tick()

	if len(tr.tracks) != 2 {
		t.Fatalf("expected a second, distinct track (no cross-type association), got %d", len(tr.tracks))
	}
	for _, trk := range tr.tracks {
		if trk.ID == petID && trk.Type != model.Pet {
			t.Errorf("pet track's type changed")
		}
		if trk.Type == model.Person && trk.ID == petID {
			t.Errorf("person detection wrongly associated with pet track")
		}
	}
}

func TestEmptyBatchIsIdempotentModuloEviction(t *testing.T) {
	mock := bjclock.NewMock()
	tr, enc := newTestTracker(mock, 50, 500*time.Millisecond)

	tr.AddMessage([]model.BoxBuf{{Type: model.Person, ID: 1, X: 100, Y: 100, W: 20, H: 20}})
	tr.tick()

	tr.tick() // no new message: inbox empty
	batch, ok := enc.Take()
	if !ok {
		t.Fatal("expected a (possibly empty) tracks batch to be posted every tick")
	}
	if len(batch) != 1 {
		t.Errorf("expected the track to still be present, got %d", len(batch))
	}
}

func TestTickReturnsWithShortEncoderTimeout(t *testing.T) {
	mock := bjclock.NewMock()
	enc := bus.NewListener[[]model.TrackBuf]()
	enc.SetTimeout(200 * time.Microsecond)
	cfg := Config{MaxDist: 50, MaxTime: time.Second, InitialError: 10, MeasureVariance: 1, ProcessVariance: 0.1}
	tr := New(cfg, enc, mock, nil, nil)

	tr.AddMessage([]model.BoxBuf{{Type: model.Person, ID: 1, X: 0, Y: 0, W: 10, H: 10}})

	// Nothing holds the encoder inbox here; tick() must post and return
	// without panicking or blocking.
	tr.tick()
}
