// Package pose derives head rotation and blink intensity from face landmarks.
package pose

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Landmark indices into the estimator's face mesh. The estimator itself is
// external; we only depend on its fixed index layout.
const (
	idxLeftEyeTop    = 159
	idxLeftEyeBottom = 145
	idxLeftEyeLeft   = 33
	idxLeftEyeRight  = 133

	idxRightEyeTop    = 386
	idxRightEyeBottom = 374
	idxRightEyeLeft   = 362
	idxRightEyeRight  = 263

	idxNoseTip    = 1
	idxLeftCheek  = 234
	idxRightCheek = 454
)

// FrameSize is the number of landmarks the estimator produces per tick.
const FrameSize = 468

// ErrBadFrame reports a landmark frame too short to index into.
var ErrBadFrame = errors.New("pose: malformed landmark frame")

// Tuning constants. The yaw gain is negative because the camera image is
// mirrored relative to the viewer.
const (
	yawGain    = -6.0
	pitchGain  = 6.0
	poseDamp   = 0.9
	rollClamp  = 0.8
	blinkOpen  = 0.23
	blinkGain  = 6.0
	epsilon    = 1e-6
)

// LandmarkFrame is one estimator tick: an ordered, fixed-size set of 3D
// landmark positions in normalized image coordinates.
type LandmarkFrame []mgl64.Vec3

// Sample is the normalized rotation/blink signal for one frame.
// Rotation components are clamped; blink channels are in [0, 1].
type Sample struct {
	Yaw        float64 `json:"yaw"`
	Pitch      float64 `json:"pitch"`
	Roll       float64 `json:"roll"`
	BlinkLeft  float64 `json:"blinkL"`
	BlinkRight float64 `json:"blinkR"`
}

// Estimate converts a landmark frame into a pose sample. It keeps no state
// between frames; a malformed frame yields ErrBadFrame and should be dropped.
func Estimate(lm LandmarkFrame) (Sample, error) {
	if len(lm) < FrameSize {
		return Sample{}, ErrBadFrame
	}

	leftCheek := lm[idxLeftCheek]
	rightCheek := lm[idxRightCheek]
	nose := lm[idxNoseTip]

	center := leftCheek.Add(rightCheek).Mul(0.5)
	faceW := leftCheek.Sub(rightCheek).Len()
	if faceW < epsilon {
		faceW = epsilon
	}

	yaw := clamp((nose.X()-center.X())/faceW*yawGain, -1, 1)

	// Inner eye corners give a stable vertical reference for pitch.
	leftEye := lm[idxLeftEyeRight]
	rightEye := lm[idxRightEyeLeft]
	eyeMidY := (leftEye.Y() + rightEye.Y()) / 2
	pitch := clamp((nose.Y()-eyeMidY)/faceW*pitchGain, -1, 1)

	roll := clamp(math.Atan2(rightEye.Y()-leftEye.Y(), rightEye.X()-leftEye.X()), -rollClamp, rollClamp)

	return Sample{
		Yaw:        yaw * poseDamp,
		Pitch:      pitch * poseDamp,
		Roll:       roll,
		BlinkLeft:  blinkFromOpenness(eyeOpenness(lm, idxLeftEyeTop, idxLeftEyeBottom, idxLeftEyeLeft, idxLeftEyeRight)),
		BlinkRight: blinkFromOpenness(eyeOpenness(lm, idxRightEyeTop, idxRightEyeBottom, idxRightEyeLeft, idxRightEyeRight)),
	}, nil
}

// eyeOpenness is the ratio of vertical eyelid distance to horizontal
// eye-corner distance, clamped to [0, 1].
func eyeOpenness(lm LandmarkFrame, top, bottom, left, right int) float64 {
	v := lm[top].Sub(lm[bottom]).Len()
	h := lm[left].Sub(lm[right]).Len()
	if h < epsilon {
		h = epsilon
	}
	return clamp(v/h, 0, 1)
}

// blinkFromOpenness inverts openness into blink intensity: a fully closed
// eye reads high, an open eye reads zero.
func blinkFromOpenness(open float64) float64 {
	return clamp((blinkOpen-open)*blinkGain, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
