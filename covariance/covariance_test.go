package covariance

import (
	"testing"
	"time"

	"github.com/gonum/floats"
)

func TestInitSetsDiagonalSigmaSquares(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Init(100, 0.1, epoch)
	m := c.Matrix()
	for i := 0; i < 3; i++ {
		if !floats.EqualWithinAbs(m.At(i, i), 100*100, 1e-9) {
			t.Fatalf("position diagonal[%d] = %f, want %f", i, m.At(i, i), 100.0*100)
		}
	}
	for i := 3; i < 6; i++ {
		if !floats.EqualWithinAbs(m.At(i, i), 0.1*0.1, 1e-9) {
			t.Fatalf("velocity diagonal[%d] = %f, want %f", i, m.At(i, i), 0.1*0.1)
		}
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if i != j && m.At(i, j) != 0 {
				t.Fatalf("off-diagonal (%d,%d) = %f, want 0", i, j, m.At(i, j))
			}
		}
	}
}

func TestPropagateGrowsPositionVarianceWithTime(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Init(100, 0.1, epoch)
	q := ProcessNoise{SigmaPos: 0.01, SigmaVel: 0.0001}
	next, err := c.Propagate(epoch.Add(3600*time.Second), q)
	if err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	if next.TracePosition() <= c.TracePosition() {
		t.Fatalf("expected position trace to grow: before=%f after=%f", c.TracePosition(), next.TracePosition())
	}
	if !next.IsPSD() {
		t.Fatal("propagated covariance should remain PSD")
	}
}

func TestPropagateRejectsBackwardTime(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Init(100, 0.1, epoch)
	q := ProcessNoise{SigmaPos: 0.01, SigmaVel: 0.0001}
	_, err := c.Propagate(epoch.Add(-time.Second), q)
	if err == nil {
		t.Fatal("expected an error propagating backward in time")
	}
}

func TestCombineSumsIndependentCovariances(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Init(100, 0.1, epoch)
	b := Init(200, 0.2, epoch)
	combined, err := Combine(a, b)
	if err != nil {
		t.Fatalf("Combine() error = %v", err)
	}
	wantTrace := a.TracePosition() + b.TracePosition()
	if !floats.EqualWithinAbs(combined.TracePosition(), wantTrace, 1e-6) {
		t.Fatalf("combined trace = %f, want %f", combined.TracePosition(), wantTrace)
	}
	if !combined.IsPSD() {
		t.Fatal("combined covariance should be PSD")
	}
}

func TestCombineRejectsMismatchedEpochs(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Init(100, 0.1, epoch)
	b := Init(100, 0.1, epoch.Add(time.Hour))
	_, err := Combine(a, b)
	if err == nil {
		t.Fatal("expected an error combining covariances at different epochs")
	}
}

func TestRiskRadiusMatchesThreeSigmaFormula(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Init(100, 0.1, epoch)
	// trace = 3*100^2, so isotropic sigma = 100, risk radius = 300.
	if !floats.EqualWithinAbs(c.RiskRadius(), 300, 1e-6) {
		t.Fatalf("RiskRadius() = %f, want 300", c.RiskRadius())
	}
}

func TestIsPSDTrueForDiagonalInit(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Init(50, 0.05, epoch)
	if !c.IsPSD() {
		t.Fatal("a diagonal covariance with positive entries should be PSD")
	}
}
