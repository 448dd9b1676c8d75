// Package anim blends discrete viseme, blink, and rotation targets into
// smooth per-frame values for a renderer.
package anim

import "math"

// SnapEpsilon is the magnitude below which a smoothed weight is treated as
// exactly zero, so near-zero jitter never reaches the renderer.
const SnapEpsilon = 1e-3

// Smooth advances v toward target with an exponential low-pass filter.
// k is the convergence rate (1/s) and dt the elapsed time in seconds.
// Higher k means snappier tracking; k=0 leaves v unchanged.
func Smooth(v, target, k, dt float64) float64 {
	return v + (target-v)*(1-math.Exp(-k*dt))
}

// SmoothSnap is Smooth with the result snapped to zero when its magnitude
// falls below SnapEpsilon.
func SmoothSnap(v, target, k, dt float64) float64 {
	next := Smooth(v, target, k, dt)
	if math.Abs(next) < SnapEpsilon {
		return 0
	}
	return next
}
