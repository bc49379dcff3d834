// Package decoder implements Viterbi decoding with bounded lookahead over
// the candidate lattice built from conditioned points and their directed
// segment candidates. No directly analogous probability layer exists in
// azybler-map_router, but the lazily-filled, memoized transition matrix
// follows transitorykris-kbgp's per-session cache idiom, and the dense
// delta/back-pointer arrays follow the general dense-array-of-predecessors
// shape pkg/routing/dijkstra.go uses for its predecessor table.
package decoder

import (
	"context"
	"errors"
	"math"
	"sync"

	"mapmatch/internal/candidate"
	"mapmatch/internal/condition"
	"mapmatch/internal/geo"
	"mapmatch/internal/hmm"
	"mapmatch/internal/router"
)

// TransitionFunc returns the log-transition-probability from candidate i at
// step t to candidate j at step t+1.
type TransitionFunc func(ctx context.Context, t, i, j int) (float64, error)

// Lattice is the decodable candidate sequence: one candidate set per
// surviving observation, plus emission and (memoized) transition
// functions.
type Lattice struct {
	// OriginalIndex maps a lattice step back to its position in the
	// original conditioned-point sequence, surviving problematic-point
	// removal across decode passes.
	OriginalIndex []int
	Observations  []condition.ConditionedPoint
	Candidates    [][]candidate.Candidate
	Emission      func(t, j int) float64
	Transition    TransitionFunc

	// matrix is the shared memoization cache for Transition, populated
	// lazily regardless of the Lazy flag (see Decoder.Decode) so both
	// eager and lazy evaluation behave identically.
	mu     sync.Mutex
	matrix map[[3]int]float64
}

// NewLattice builds a Lattice over obs/cands, wiring router-backed route
// distances and hmm's probability model together.
func NewLattice(obs []condition.ConditionedPoint, cands [][]candidate.Candidate, r *router.Router, sigmaZ, bearingWeight, beta, maxVelocity float64) *Lattice {
	orig := make([]int, len(obs))
	for i := range obs {
		orig[i] = i
	}

	l := &Lattice{
		OriginalIndex: orig,
		Observations:  obs,
		Candidates:    cands,
		matrix:        make(map[[3]int]float64),
	}
	l.Emission = func(t, j int) float64 {
		return hmm.Emission(cands[t][j], obs[t], sigmaZ, bearingWeight)
	}
	l.Transition = func(ctx context.Context, t, i, j int) (float64, error) {
		key := [3]int{t, i, j}
		l.mu.Lock()
		if v, ok := l.matrix[key]; ok {
			l.mu.Unlock()
			return v, nil
		}
		l.mu.Unlock()

		a, b := cands[t][i], cands[t+1][j]
		dt := obs[t+1].Datetime.Sub(obs[t].Datetime)
		gpsDist := geo.Distance(obs[t].LatLng(), obs[t+1].LatLng())

		routeDist, err := r.Distance(ctx, a, b, maxVelocity, dt)
		var logA float64
		if err != nil {
			if errors.Is(err, router.ErrUnreachable) {
				logA = math.Inf(-1)
			} else {
				return 0, err
			}
		} else {
			logA = hmm.Transition(routeDist, gpsDist, beta)
		}

		l.mu.Lock()
		l.matrix[key] = logA
		l.mu.Unlock()
		return logA, nil
	}
	return l
}

// prewarm evaluates every transition up front, used when Lazy is false.
func (l *Lattice) prewarm(ctx context.Context) error {
	for t := 0; t < len(l.Candidates)-1; t++ {
		for i := range l.Candidates[t] {
			for j := range l.Candidates[t+1] {
				if _, err := l.Transition(ctx, t, i, j); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// narrowed returns a copy of l restricted to the given lattice step
// indices, preserving OriginalIndex, for problematic-point removal.
func (l *Lattice) narrowed(keep []int, r *router.Router, sigmaZ, bearingWeight, beta, maxVelocity float64) *Lattice {
	obs := make([]condition.ConditionedPoint, len(keep))
	cands := make([][]candidate.Candidate, len(keep))
	orig := make([]int, len(keep))
	for newT, oldT := range keep {
		obs[newT] = l.Observations[oldT]
		cands[newT] = l.Candidates[oldT]
		orig[newT] = l.OriginalIndex[oldT]
	}
	nl := NewLattice(obs, cands, r, sigmaZ, bearingWeight, beta, maxVelocity)
	nl.OriginalIndex = orig
	return nl
}
