// Package reference builds the immutable reference path a controller
// tracks: sentinel trimming, curvature/yaw computation, yaw unwrapping,
// the signed speed profile, and the per-tick horizon window.
package reference

import (
	"math"
	"math/rand"

	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/trajmath"
)

// Path is the immutable per-run reference: parallel sample arrays plus the
// signed curvature and signed target speed at each sample.
type Path struct {
	CX, CY, CYaw, CK, SP []float64
}

// BuilderOptions controls the preserved-vs-corrected curvature endpoint
// stencil and the RNG used to pad short waypoint lists.
type BuilderOptions struct {
	// CurvatureParity true keeps the historical ddy stencil at the first
	// sample (it uses x[1] where y[1] is mathematically correct). Defaults
	// to true; set false to use the corrected stencil.
	CurvatureParity bool
	// RNG seeds the short-path (<3 points) padding perturbation. Required
	// for scenario determinism; callers should pass a *rand.Rand seeded
	// from simconfig.Constants.Seed.
	RNG *rand.Rand
}

// DefaultBuilderOptions returns source-parity options seeded deterministically.
func DefaultBuilderOptions(seed int64) BuilderOptions {
	return BuilderOptions{CurvatureParity: true, RNG: rand.New(rand.NewSource(seed))}
}

// Sanitize trims trailing (-1,-1) sentinel pairs and, if fewer than three
// points remain, pads with small random offsets from the last point so a
// three-point curvature stencil is always available. Real points are never
// denoised or otherwise modified.
func Sanitize(x, y []float64, opts BuilderOptions) (sx, sy []float64) {
	sx = append([]float64{}, x...)
	sy = append([]float64{}, y...)
	if len(sx) == 0 {
		sx = append(sx, 0)
		sy = append(sy, 0)
	}
	for len(sx) > 1 && sx[len(sx)-1] == -1 && sy[len(sy)-1] == -1 {
		sx = sx[:len(sx)-1]
		sy = sy[:len(sy)-1]
	}
	for len(sx) < 3 {
		sx = append(sx, sx[len(sx)-1]+opts.RNG.Float64())
		sy = append(sy, sy[len(sy)-1]+opts.RNG.Float64())
	}
	return sx, sy
}

// yawAndCurvature computes per-sample heading and signed curvature using
// forward/backward differences at the endpoints and a central stencil in
// the interior.
func yawAndCurvature(x, y []float64, opts BuilderOptions) (yaw, k []float64) {
	n := len(x)
	yaw = make([]float64, n)
	k = make([]float64, n)
	for i := 0; i < n; i++ {
		var dx, dy, ddx, ddy float64
		switch {
		case i == 0:
			dx = x[1] - x[0]
			dy = y[1] - y[0]
			ddx = x[2] + x[0] - 2*x[1]
			if opts.CurvatureParity {
				// Historical stencil: x[1] stands in for y[1].
				ddy = y[2] + y[0] - 2*x[1]
			} else {
				ddy = y[2] + y[0] - 2*y[1]
			}
		case i == n-1:
			dx = x[i] - x[i-1]
			dy = y[i] - y[i-1]
			ddx = x[i] + x[i-2] - 2*x[i-1]
			ddy = y[i] + y[i-2] - 2*y[i-1]
		default:
			dx = x[i+1] - x[i]
			dy = y[i+1] - y[i]
			ddx = x[i+1] + x[i-1] - 2*x[i]
			ddy = y[i+1] + y[i-1] - 2*y[i]
		}
		yaw[i] = math.Atan2(dy, dx)
		denom := math.Pow(dx*dx+dy*dy, 1.5)
		if denom != 0 {
			k[i] = (ddy*dx - ddx*dy) / denom
		}
	}
	return yaw, k
}

// speedProfile assigns +/- targetSpeed per sample based on whether the
// local direction of travel opposes the smoothed heading by more than
// pi/4. The final sample is always forced to 0.
func speedProfile(x, y, cyaw []float64, targetSpeed float64) []float64 {
	sp := make([]float64, len(x))
	for i := range sp {
		sp[i] = targetSpeed
	}
	direction := 1.0
	for i := 0; i < len(x)-1; i++ {
		dx := x[i+1] - x[i]
		dy := y[i+1] - y[i]
		moveDir := math.Atan2(dy, dx)
		if dx != 0.0 && dy != 0.0 {
			if math.Abs(trajmath.PI2PI(moveDir-cyaw[i])) >= math.Pi/4.0 {
				direction = -1.0
			} else {
				direction = 1.0
			}
		}
		if direction != 1.0 {
			sp[i] = -targetSpeed
		} else {
			sp[i] = targetSpeed
		}
	}
	sp[len(sp)-1] = 0.0
	return sp
}

// Build constructs a Path from raw waypoint arrays, which may contain
// (-1,-1) sentinels.
func Build(xRaw, yRaw []float64, c *simconfig.Constants, opts BuilderOptions) Path {
	x, y := Sanitize(xRaw, yRaw, opts)
	yaw, k := yawAndCurvature(x, y, opts)
	yaw = trajmath.UnwrapYaw(yaw)
	sp := speedProfile(x, y, yaw, c.TargetSpeed)
	return Path{CX: x, CY: y, CYaw: yaw, CK: k, SP: sp}
}

// Len returns the number of samples in the path.
func (p Path) Len() int { return len(p.CX) }
