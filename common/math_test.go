package common

import (
	"math"
	"testing"
)

func TestQuatAngleZRoundTrip(t *testing.T) {
	cases := []float64{0, 0.5, -1.2, math.Pi / 2}
	for _, angle := range cases {
		got := QuatFromAngleZ(angle).AngleZ()
		if math.Abs(got-angle) > 1e-9 {
			t.Fatalf("angle %v: got %v", angle, got)
		}
	}
}

func TestQuatNormalizeZero(t *testing.T) {
	if q := (Quat{}).Normalize(); q != Identity() {
		t.Fatalf("expected identity, got %+v", q)
	}
}

func TestVec3Lerp(t *testing.T) {
	got := V3(0, 0, 0).Lerp(V3(2, 4, 6), 0.5)
	if got != V3(1, 2, 3) {
		t.Fatalf("unexpected lerp %+v", got)
	}
}
