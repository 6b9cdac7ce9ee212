package tracker

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// lifecycle mirrors a Track's {Init, Active} state, per §3.
type lifecycle int

const (
	lifecycleInit lifecycle = iota
	lifecycleActive
)

// motion holds the shared, constant Kalman matrices every Track uses: the
// state transition A, the measurement matrix H, the measurement covariance
// R, and the process covariance Q. They are built once per Tracker from its
// configuration and never mutated, so tracks share pointers to them safely.
type motion struct {
	a *mat.Dense // 6x6
	h *mat.Dense // 2x6
	r *mat.Dense // 2x2
	q *mat.Dense // 6x6
}

// newMotion builds the constant matrices described in §3: A integrates
// velocity over one tick and acceleration only into velocity — position
// picks up no direct acceleration term — with the last two rows zero so
// acceleration never self-propagates; H picks out the position components.
func newMotion(measureVariance, processVariance float64) *motion {
	a := mat.NewDense(6, 6, []float64{
		1, 0, 1, 0, 0, 0,
		0, 1, 0, 1, 0, 0,
		0, 0, 1, 0, 1, 0,
		0, 0, 0, 1, 0, 1,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
	})
	h := mat.NewDense(2, 6, []float64{
		1, 0, 0, 0, 0, 0,
		0, 1, 0, 0, 0, 0,
	})
	r := mat.NewDense(2, 2, []float64{
		measureVariance, 0,
		0, measureVariance,
	})
	q := mat.NewDiagDense(6, []float64{
		processVariance, processVariance, processVariance,
		processVariance, processVariance, processVariance,
	})
	return &motion{a: a, h: h, r: r, q: denseFromSym(q)}
}

// Track is one persistent identity with Kalman state, internal to the
// Tracker and never crossing a stage boundary (§3).
type Track struct {
	ID    uint64
	Type  model.Type
	X, Y, W, H int

	state   lifecycle
	stamp   time.Time
	touched bool

	x *mat.VecDense // 6x1: (cx, cy, vx, vy, ax, ay)
	p *mat.Dense    // 6x6 error covariance

	m *motion
}

// newTrack creates a track in lifecycle Init, centred at the detection's
// rectangle, with P seeded to initialError·I.
func newTrack(id uint64, typ model.Type, x, y, w, h int, initialError float64, m *motion, now time.Time) *Track {
	cx, cy := float64(x)+float64(w)/2, float64(y)+float64(h)/2
	p := mat.NewDiagDense(6, []float64{initialError, initialError, initialError, initialError, initialError, initialError})
	return &Track{
		ID:    id,
		Type:  typ,
		X:     x,
		Y:     y,
		W:     w,
		H:     h,
		state: lifecycleInit,
		stamp: now,
		x:     mat.NewVecDense(6, []float64{cx, cy, 0, 0, 0, 0}),
		p:     denseFromSym(p),
		m:     m,
	}
}

func denseFromSym(d *mat.DiagDense) *mat.Dense {
	n, _ := d.Dims()
	out := mat.NewDense(n, n, nil)
	out.Copy(d)
	return out
}

// Centre returns the track's predicted centre, X(0) and X(1).
func (t *Track) Centre() (cx, cy float64) {
	return t.x.AtVec(0), t.x.AtVec(1)
}

// updateTime advances the track's Kalman prediction in time only:
// X ← A·X, P ← A·P·Aᵀ + Q. Used both by the Kalman correction step and by
// tracks that went un-associated this tick (§4.3 step 5).
func (t *Track) updateTime() {
	var xNext mat.VecDense
	xNext.MulVec(t.m.a, t.x)
	t.x = &xNext

	var ap mat.Dense
	ap.Mul(t.m.a, t.p)
	var apat mat.Dense
	apat.Mul(&ap, t.m.a.T())
	apat.Add(&apat, t.m.q)
	t.p = &apat

	t.touched = true
}

// addTarget folds a matched detection into the track, per §4.3's Kalman
// update semantics: seed velocity on first association, advance time, then
// correct against the measured centre.
func (t *Track) addTarget(x, y, w, h int, now time.Time) {
	cx, cy := float64(x)+float64(w)/2, float64(y)+float64(h)/2

	t.X, t.Y, t.W, t.H = x, y, w, h
	t.stamp = now

	if t.state == lifecycleInit {
		t.x.SetVec(2, cx-t.x.AtVec(0))
		t.x.SetVec(3, cy-t.x.AtVec(1))
	}

	t.updateTime()
	t.state = lifecycleActive

	z := mat.NewVecDense(2, []float64{cx, cy})

	var hp mat.Dense
	hp.Mul(t.m.h, t.p)
	var s mat.Dense
	s.Mul(&hp, t.m.h.T())
	s.Add(&s, t.m.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		// Singular innovation covariance: skip the correction, keep the
		// time-advanced prediction.
		return
	}

	var pht mat.Dense
	pht.Mul(t.p, t.m.h.T())
	var k mat.Dense
	k.Mul(&pht, &sInv)

	var hx mat.VecDense
	hx.MulVec(t.m.h, t.x)
	var innovation mat.VecDense
	innovation.SubVec(z, &hx)

	var correction mat.VecDense
	correction.MulVec(&k, &innovation)
	var xNew mat.VecDense
	xNew.AddVec(t.x, &correction)
	t.x = &xNew

	var kh mat.Dense
	kh.Mul(&k, t.m.h)
	eye := mat.NewDiagDense(6, []float64{1, 1, 1, 1, 1, 1})
	var iMinusKH mat.Dense
	iMinusKH.Sub(eye, &kh)
	var pNew mat.Dense
	pNew.Mul(&iMinusKH, t.p)
	t.p = &pNew
}

// Active reports whether the track has survived its first association.
func (t *Track) Active() bool { return t.state == lifecycleActive }
