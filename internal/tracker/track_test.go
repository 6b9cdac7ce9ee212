package tracker

import (
	"testing"
	"time"
)

func TestNewTrackStartsInInitWithZeroVelocity(t *testing.T) {
	m := newMotion(1, 0.1)
	now := time.Now()
	tr := newTrack(1, 0, 90, 90, 20, 20, 10, m, now)

	if tr.Active() {
		t.Fatal("a freshly created track must start in Init, not Active")
	}
	cx, cy := tr.Centre()
	if cx != 100 || cy != 100 {
		t.Errorf("expected centre (100,100), got (%v,%v)", cx, cy)
	}
	if tr.x.AtVec(2) != 0 || tr.x.AtVec(3) != 0 {
		t.Errorf("expected zero initial velocity, got (%v,%v)", tr.x.AtVec(2), tr.x.AtVec(3))
	}
}

func TestAddTargetSeedsVelocityOnFirstAssociation(t *testing.T) {
	m := newMotion(1, 0.1)
	now := time.Now()
	tr := newTrack(1, 0, 90, 90, 20, 20, 10, m, now)

	tr.addTarget(100, 90, 20, 20, now.Add(100*time.Millisecond))

	if !tr.Active() {
		t.Fatal("expected track to be promoted to Active on first association")
	}
	// Centre moves from (100,100) to (110,100): velocity is seeded to (10,0).
	if tr.x.AtVec(2) != 10 || tr.x.AtVec(3) != 0 {
		t.Errorf("expected seeded velocity (10,0), got (%v,%v)", tr.x.AtVec(2), tr.x.AtVec(3))
	}
}

func TestUpdateTimeAdvancesPositionByVelocity(t *testing.T) {
	m := newMotion(1, 0.1)
	now := time.Now()
	tr := newTrack(1, 0, 90, 90, 20, 20, 10, m, now)
	tr.x.SetVec(2, 5) // vx
	startCx, _ := tr.Centre()

	tr.updateTime()

	newCx, _ := tr.Centre()
	if newCx <= startCx {
		t.Errorf("expected centre x to advance with positive velocity, got %v -> %v", startCx, newCx)
	}
	if !tr.touched {
		t.Error("updateTime must set touched")
	}
}

func TestUpdateTimeDoesNotCoupleAccelerationDirectlyIntoPosition(t *testing.T) {
	m := newMotion(1, 0.1)
	now := time.Now()
	tr := newTrack(1, 0, 90, 90, 20, 20, 10, m, now)
	tr.x.SetVec(2, 0) // vx
	tr.x.SetVec(4, 5) // ax
	startCx, _ := tr.Centre()

	tr.updateTime()

	newCx, _ := tr.Centre()
	if newCx != startCx {
		t.Errorf("position must not move from acceleration alone in a single tick (zero velocity): got %v -> %v", startCx, newCx)
	}
}

func TestAddTargetPullsStateTowardMeasurement(t *testing.T) {
	m := newMotion(1, 0.1)
	now := time.Now()
	tr := newTrack(1, 0, 0, 0, 20, 20, 1000, m, now)

	// First association seeds velocity and jumps the estimate to (110,110).
	tr.addTarget(100, 100, 20, 20, now)

	// A second, slightly different measurement should move the estimate
	// toward it without overshooting far beyond it.
	tr.addTarget(120, 100, 20, 20, now.Add(50*time.Millisecond))
	cx, _ := tr.Centre()
	if cx < 100 || cx > 200 {
		t.Errorf("expected corrected centre x between the two measurements' neighborhood, got %v", cx)
	}
}
