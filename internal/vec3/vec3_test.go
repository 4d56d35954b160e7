package vec3

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestCross(t *testing.T) {
	i := V{1, 0, 0}
	j := V{0, 1, 0}
	k := V{0, 0, 1}
	if Cross(i, j) != k {
		t.Fatalf("i x j = %v, want %v", Cross(i, j), k)
	}
	got := Cross(V{2, 3, 4}, V{5, 6, 7})
	want := V{-3, 6, -3}
	if got != want {
		t.Fatalf("cross = %v, want %v", got, want)
	}
}

func TestNormAndUnit(t *testing.T) {
	v := V{3, 4, 0}
	if !floats.EqualWithinAbs(Norm(v), 5, 1e-12) {
		t.Fatalf("norm = %f, want 5", Norm(v))
	}
	u := Unit(v)
	if !floats.EqualWithinAbs(Norm(u), 1, 1e-12) {
		t.Fatalf("unit norm = %f, want 1", Norm(u))
	}
	if Unit(V{}) != (V{}) {
		t.Fatal("unit of the zero vector should return the zero vector")
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(V{1, 2, 3}) {
		t.Fatal("finite vector reported non-finite")
	}
	if IsFinite(V{math.NaN(), 0, 0}) {
		t.Fatal("NaN vector reported finite")
	}
	if IsFinite(V{math.Inf(1), 0, 0}) {
		t.Fatal("Inf vector reported finite")
	}
}

func TestAddSubScaleDot(t *testing.T) {
	a := V{1, 2, 3}
	b := V{4, 5, 6}
	if Add(a, b) != (V{5, 7, 9}) {
		t.Fatal("add mismatch")
	}
	if Sub(b, a) != (V{3, 3, 3}) {
		t.Fatal("sub mismatch")
	}
	if Scale(2, a) != (V{2, 4, 6}) {
		t.Fatal("scale mismatch")
	}
	if Dot(a, b) != 32 {
		t.Fatalf("dot = %f, want 32", Dot(a, b))
	}
}
