package mover

import (
	"math"
	"testing"

	"huntmover/internal/geom"
	"huntmover/internal/model"
)

func obj(x, y, snr float64) model.ImageObject {
	return model.ImageObject{Location: geom.FPoint{X: x, Y: y}, SNR: snr}
}

func TestNewTrackletMeasuresMotionAndPA(t *testing.T) {
	a := obj(0, 0, 5)
	b := obj(0, 10, 5)
	tr := NewTracklet(a, b, 5, 1.0) // 10 px in 5 min at 1 arcsec/px -> 2 arcsec/min, due north along +y (PA=0)
	if math.Abs(tr.Motion-2.0) > 1e-9 {
		t.Fatalf("expected motion 2.0, got %v", tr.Motion)
	}
	if math.Abs(tr.PA-0) > 1e-6 {
		t.Fatalf("expected PA 0, got %v", tr.PA)
	}
}

func TestTrackletMatchesWithinTolerance(t *testing.T) {
	a := obj(0, 0, 5)
	b := obj(0, 10, 5)
	tr := NewTracklet(a, b, 5, 1.0)
	if !tr.Matches(2.0, 0, 0.5, 0.2, 5, 0.1, 1.0) {
		t.Fatalf("expected exact match to pass tolerance check")
	}
	if tr.Matches(10.0, math.Pi, 0.1, 0.01, 5, 0.01, 1.0) {
		t.Fatalf("expected wildly different motion/PA to fail")
	}
}

func TestScoreHigherMeanYieldsHigherScore(t *testing.T) {
	low := [3]model.ImageObject{obj(0, 0, 5), obj(0, 0, 5), obj(0, 0, 5)}
	high := [3]model.ImageObject{obj(0, 0, 10), obj(0, 0, 10), obj(0, 0, 10)}
	sLow := Score(low, 1.0)
	sHigh := Score(high, 1.0)
	if sHigh <= sLow {
		t.Fatalf("expected higher mean SNR (equal sigma_rel, errMid) to score higher: low=%v high=%v", sLow, sHigh)
	}
}

func TestIsSameAsSymmetricAndReflexive(t *testing.T) {
	m1 := Mover{Objects: [3]model.ImageObject{obj(10, 10, 5), obj(20, 20, 5), obj(30, 30, 5)}}
	m2 := Mover{Objects: [3]model.ImageObject{obj(11, 10, 5), obj(21, 20, 5), obj(30, 30, 5)}}

	if !m1.IsSameAs(m1, 3) {
		t.Fatalf("expected reflexive match")
	}
	if m1.IsSameAs(m2, 3) != m2.IsSameAs(m1, 3) {
		t.Fatalf("expected symmetric match result")
	}
}

func TestListAddDeduplicatesKeepingHigherScore(t *testing.T) {
	var l List
	m1 := Mover{Objects: [3]model.ImageObject{obj(10, 10, 5), obj(20, 20, 5), obj(30, 30, 5)}, Score: 5}
	m2 := Mover{Objects: [3]model.ImageObject{obj(10, 10, 5), obj(20, 20, 5), obj(30, 30, 5)}, Score: 9}

	l.Add(m1, 3)
	l.Add(m2, 3)

	if len(l.Movers) != 1 {
		t.Fatalf("expected dedup to keep a single mover, got %d", len(l.Movers))
	}
	if l.Movers[0].Score != 9 {
		t.Fatalf("expected higher-scoring mover to survive, got score %v", l.Movers[0].Score)
	}
}

func TestSelectNextSaturatesAtBounds(t *testing.T) {
	l := List{Movers: []Mover{{Score: 1}, {Score: 2}, {Score: 3}}}
	l.SelectNext(-1)
	if l.cursor != 0 {
		t.Fatalf("expected cursor to saturate at 0, got %d", l.cursor)
	}
	for i := 0; i < 10; i++ {
		l.SelectNext(1)
	}
	if l.cursor != len(l.Movers)-1 {
		t.Fatalf("expected cursor to saturate at last index, got %d", l.cursor)
	}
}
