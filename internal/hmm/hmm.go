// Package hmm computes the log-space emission and transition
// probabilities the decoder scores candidate sequences with. No directly
// analogous package exists in azybler-map_router — its router returns a
// bare distance, with no probabilistic layer above it — so this follows
// the rest of the geodesy/router code's idiom: small exported functions,
// explicit float64 math, no package-level state.
package hmm

import (
	"math"

	"mapmatch/internal/candidate"
	"mapmatch/internal/condition"
	"mapmatch/internal/geo"
)

// Emission returns the log-probability of candidate c explaining
// observation o: a Gaussian penalty on cross-track error plus a bearing
// mismatch penalty sharing the same denominator. If o's bearing is
// undefined (NaN), the bearing term drops to zero rather than penalizing
// the candidate.
func Emission(c candidate.Candidate, o condition.ConditionedPoint, sigmaZ, bearingWeight float64) float64 {
	denom := 2 * sigmaZ * sigmaZ
	logE := -(c.XTE * c.XTE) / denom

	if !math.IsNaN(o.Bearing) {
		delta := geo.AngularDifference(c.Segment.EffectiveBearing(), o.Bearing)
		logE -= bearingWeight * delta * delta / denom
	}

	return logE
}

// Transition returns the log-probability of moving from a candidate with
// road-network distance routeDist to the next observation, whose
// great-circle distance is gpsDist. An unreachable routeDist (+Inf) drives
// the transition to log-probability -Inf.
func Transition(routeDist, gpsDist, beta float64) float64 {
	if math.IsInf(routeDist, 1) {
		return math.Inf(-1)
	}
	return -math.Abs(routeDist-gpsDist) / beta
}
