package evaluator

import (
	"github.com/ayusman/posecoach/internal/pose"
)

// DistanceStatus describes how far the subject stands from the camera.
type DistanceStatus string

const (
	TooClose DistanceStatus = "too_close"
	TooFar   DistanceStatus = "too_far"
	Optimal  DistanceStatus = "optimal"
)

// DistanceQuality is the client-facing form of DistanceStatus.
type DistanceQuality string

const (
	QualityNear    DistanceQuality = "near"
	QualityFar     DistanceQuality = "far"
	QualityOptimal DistanceQuality = "optimal"
)

// Framing limits, in normalized image units.
const (
	maxTorso        = 0.35
	minTorso        = 0.12
	minVisibleSpan  = 0.05
	minAcceptedSpan = 0.04
)

// Framing describes how well the subject fits in the camera view.
type Framing struct {
	// Analyzed is false when the frame lacks the lower-body landmarks.
	Analyzed bool
	// Torso is the 2-D shoulder-to-hip distance.
	Torso float64
	// LowerBodySpan is the vertical ankle-to-hip distance; nil when the
	// lower body is out of view.
	LowerBodySpan    *float64
	VisibleLowerBody bool
	Status           DistanceStatus
}

// Quality maps the status to the client-facing quality. Unanalyzed frames
// are reported as far.
func (f Framing) Quality() DistanceQuality {
	switch f.Status {
	case TooClose:
		return QualityNear
	case Optimal:
		return QualityOptimal
	default:
		return QualityFar
	}
}

// AnalyzeFraming measures torso size and lower-body visibility to tell the
// user whether to step closer or further away.
func AnalyzeFraming(lm pose.Landmarks) Framing {
	if !lm.Has(pose.RightAnkle) {
		return Framing{}
	}

	hip, _ := lm.Centers()
	f := Framing{Analyzed: true, Torso: lm.TorsoLength()}

	lower := []int{pose.LeftHip, pose.RightHip, pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle}
	inView := true
	for _, i := range lower {
		if !inBounds(lm[i]) {
			inView = false
			break
		}
	}
	if inView {
		ankleY := (lm[pose.LeftAnkle].Y + lm[pose.RightAnkle].Y) / 2
		span := ankleY - hip.Y
		f.LowerBodySpan = &span
		f.VisibleLowerBody = span > minVisibleSpan
	}

	switch {
	case f.Torso > maxTorso:
		f.Status = TooClose
	case f.Torso < minTorso:
		f.Status = TooFar
	case f.VisibleLowerBody || (f.LowerBodySpan != nil && *f.LowerBodySpan >= minAcceptedSpan):
		f.Status = Optimal
	default:
		f.Status = TooFar
	}
	return f
}

func (f Framing) apply(r *Result) {
	r.DistanceQuality = f.Quality()
	if !f.Analyzed {
		return
	}
	r.DistanceStatus = f.Status
	r.Metrics.TorsoDistance = floatPtr(f.Torso)
	r.Metrics.VisibleLowerBody = f.VisibleLowerBody
	r.Metrics.LowerBodySpan = f.LowerBodySpan
}

func inBounds(p pose.Point3D) bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}
