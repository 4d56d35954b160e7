// Package covariance implements the 6x6 position/velocity covariance engine
// of spec.md §4.6: initialization, linear propagation with process noise,
// and combination of two objects at TCA. It is grounded in estimate.go's
// mat64-based STM propagation, modernized to gonum.org/v1/gonum/mat per
// SPEC_FULL.md §3.
package covariance

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ssacore/conjunction/ssaerrors"
)

// diagonalFloor is added to every diagonal element after propagation and
// combination, per spec.md §4.6's numerical requirement, to keep downstream
// sigma extraction from dividing by (near) zero.
const diagonalFloor = 1e-12

// ProcessNoise holds the position/velocity process-noise sigmas spec.md §6
// exposes as configuration (sigma_pos_proc, sigma_vel_proc).
type ProcessNoise struct {
	SigmaPos float64
	SigmaVel float64
}

// Covariance is a 6x6 symmetric positive-semidefinite matrix over
// (x,y,z,vx,vy,vz) at an epoch, per spec.md §3.
type Covariance struct {
	sym   *mat.SymDense
	Epoch time.Time
}

// Init builds a diagonal covariance with sigmaPos^2 on the position block
// and sigmaVel^2 on the velocity block, per spec.md §4.6.
func Init(sigmaPos, sigmaVel float64, epoch time.Time) Covariance {
	sym := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		s := sigmaVel
		if i < 3 {
			s = sigmaPos
		}
		sym.SetSym(i, i, s*s)
	}
	return Covariance{sym: sym, Epoch: epoch}
}

// Matrix returns the underlying 6x6 symmetric matrix. Callers must not
// mutate it; covariance values are immutable once constructed.
func (c Covariance) Matrix() *mat.SymDense { return c.sym }

// Propagate advances the covariance to epoch `to` using the constant-
// velocity state transition F = [[I, dt*I],[0, I]] and diagonal process
// noise Q, per spec.md §4.6. dt must be non-negative.
func (c Covariance) Propagate(to time.Time, q ProcessNoise) (Covariance, error) {
	dt := to.Sub(c.Epoch).Seconds()
	if dt < 0 {
		return Covariance{}, ssaerrors.NewNumericalFailure("cannot propagate covariance backward in time")
	}
	f := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		f.Set(i, i, 1)
	}
	for i := 0; i < 3; i++ {
		f.Set(i, i+3, dt)
	}
	var fp mat.Dense
	fp.Mul(f, c.sym)
	var fpft mat.Dense
	fpft.Mul(&fp, f.T())

	qScale := dt
	if qScale < 1 {
		qScale = 1
	}
	sym := symmetrizeAndFloor(&fpft, func(i int) float64 {
		if i < 3 {
			return q.SigmaPos * q.SigmaPos * qScale
		}
		return q.SigmaVel * q.SigmaVel * qScale
	})
	return Covariance{sym: sym, Epoch: to}, nil
}

// Combine sums a and b's covariances (positions and velocities independent),
// per spec.md §4.6's "combination at TCA". Both must share the same epoch.
func Combine(a, b Covariance) (Covariance, error) {
	if !a.Epoch.Equal(b.Epoch) {
		return Covariance{}, ssaerrors.NewNumericalFailure("combine requires covariances propagated to the same epoch")
	}
	var sum mat.Dense
	sum.Add(a.sym, b.sym)
	sym := symmetrizeAndFloor(&sum, func(int) float64 { return 0 })
	return Covariance{sym: sym, Epoch: a.Epoch}, nil
}

// symmetrizeAndFloor builds a SymDense from m by averaging with its
// transpose (spec.md §4.6's numerical requirement), adding processNoise(i)
// and the diagonal floor to each diagonal entry.
func symmetrizeAndFloor(m mat.Matrix, processNoise func(i int) float64) *mat.SymDense {
	n, _ := m.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := (m.At(i, j) + m.At(j, i)) / 2
			if i == j {
				v += processNoise(i) + diagonalFloor
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}

// PositionBlock returns the top-left 3x3 position sub-covariance.
func (c Covariance) PositionBlock() *mat.SymDense {
	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, c.sym.At(i, j))
		}
	}
	return out
}

// TracePosition returns the trace of the position block.
func (c Covariance) TracePosition() float64 {
	pos := c.PositionBlock()
	return pos.At(0, 0) + pos.At(1, 1) + pos.At(2, 2)
}

// RiskRadius returns the 3-sigma risk bubble radius, 3*sqrt(trace(P_pos)/3),
// per spec.md §4.6 and §9 Design Note (c).
func (c Covariance) RiskRadius() float64 {
	sigma := isotropicSigma(c.TracePosition())
	return 3 * sigma
}

func isotropicSigma(tracePos float64) float64 {
	v := tracePos / 3
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// IsPSD reports whether the full 6x6 matrix has non-negative eigenvalues
// (to within -1e-9). A PSD 6x6 matrix has a PSD position block, so this
// also covers spec.md §8's P6 covariance-PSD property.
func (c Covariance) IsPSD() bool {
	var eig mat.EigenSym
	ok := eig.Factorize(c.sym, true)
	if !ok {
		return false
	}
	for _, v := range eig.Values(nil) {
		if v < -1e-9 {
			return false
		}
	}
	return true
}
