package decoder

import (
	"context"
	"math"
	"testing"
	"time"

	"mapmatch/internal/candidate"
	"mapmatch/internal/condition"
	"mapmatch/internal/gateway/gatewaytest"
	"mapmatch/internal/osm"
	"mapmatch/internal/router"
)

// stubLattice builds a Lattice whose Emission/Transition are given directly,
// bypassing NewLattice's router/hmm wiring — useful for exercising the
// decode recurrence in isolation.
func stubLattice(nSteps int, nCands []int, emission func(t, j int) float64, transition TransitionFunc) *Lattice {
	obs := make([]condition.ConditionedPoint, nSteps)
	cands := make([][]candidate.Candidate, nSteps)
	orig := make([]int, nSteps)
	for t := range cands {
		cands[t] = make([]candidate.Candidate, nCands[t])
		orig[t] = t
	}
	return &Lattice{
		OriginalIndex: orig,
		Observations:  obs,
		Candidates:    cands,
		Emission:      emission,
		Transition:    transition,
	}
}

func TestDecodeClassicalViterbi(t *testing.T) {
	// Two candidates per step, three steps. Candidate 0 is favored by
	// emission everywhere and by every transition; the winning path should
	// pick candidate 0 throughout.
	emission := func(t, j int) float64 {
		if j == 0 {
			return -1
		}
		return -10
	}
	transition := func(ctx context.Context, t, i, j int) (float64, error) {
		if i == 0 && j == 0 {
			return -1, nil
		}
		return -10, nil
	}
	l := stubLattice(3, []int{2, 2, 2}, emission, transition)

	d := &Decoder{Lookahead: 0, MaxIter: 1}
	res, err := d.Decode(context.Background(), l, nil, 0, 0, 0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(res.Chosen) != 3 {
		t.Fatalf("len(Chosen) = %d, want 3", len(res.Chosen))
	}
	if len(res.Breaks) != 0 {
		t.Errorf("unexpected breaks: %v", res.Breaks)
	}
}

func TestDecodeWithLookaheadSkipsDeadEndCandidate(t *testing.T) {
	// Step 1 has two candidates: 0 scores better in isolation but cannot
	// reach step 2's only candidate; 1 scores worse in isolation but is
	// the only viable continuation. The backtrace must still pick
	// candidate 1 at step 1, since the path through candidate 0 is
	// infeasible end to end.
	emission := func(t, j int) float64 {
		if t == 1 && j == 0 {
			return -1 // looks better in isolation
		}
		return -2
	}
	transition := func(ctx context.Context, t, i, j int) (float64, error) {
		if t == 0 {
			return 0, nil // both step-1 candidates equally reachable from step 0
		}
		// t == 1: candidate 0 cannot continue, candidate 1 can.
		if i == 0 {
			return math.Inf(-1), nil
		}
		return -1, nil
	}
	l := stubLattice(3, []int{1, 2, 1}, emission, transition)
	l.Candidates[1][0].AlongTrack = 0
	l.Candidates[1][1].AlongTrack = 1

	d := &Decoder{Lookahead: 1, MaxIter: 1}
	res, err := d.Decode(context.Background(), l, nil, 0, 0, 0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Chosen[1].AlongTrack != 1 {
		t.Errorf("chosen candidate at step 1 has AlongTrack=%f, want 1 (the only reachable continuation)", res.Chosen[1].AlongTrack)
	}
}

func TestDecodeBreaksOnUnreachableTransition(t *testing.T) {
	emission := func(t, j int) float64 { return -1 }
	transition := func(ctx context.Context, t, i, j int) (float64, error) {
		if t == 1 {
			return math.Inf(-1), nil
		}
		return -1, nil
	}
	l := stubLattice(3, []int{1, 1, 1}, emission, transition)

	d := &Decoder{Lookahead: 0, MaxIter: 1}
	res, err := d.Decode(context.Background(), l, nil, 0, 0, 0, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(res.Breaks) != 1 || res.Breaks[0] != 1 {
		t.Errorf("Breaks = %v, want [1]", res.Breaks)
	}
}

func straightRoadFixture() *gatewaytest.Memory {
	nodes := []gatewaytest.NodeFixture{
		{ID: 1, Lon: 103.8000, Lat: 1.3000},
		{ID: 2, Lon: 103.8010, Lat: 1.3000},
		{ID: 3, Lon: 103.8020, Lat: 1.3000},
		{ID: 4, Lon: 103.8030, Lat: 1.3000},
	}
	ways := []gatewaytest.WayFixture{
		{ID: 1, Nodes: []osm.NodeID{1, 2, 3, 4}, Tags: osm.Tags{"highway": "residential"}},
	}
	return gatewaytest.New(ways, nodes)
}

func TestDecodeIntegrationAlongStraightRoad(t *testing.T) {
	gw := straightRoadFixture()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := []condition.ConditionedPoint{
		{Lon: 103.8002, Lat: 1.30005, Datetime: base, Bearing: math.NaN()},
		{Lon: 103.8015, Lat: 1.30005, Datetime: base.Add(10 * time.Second), Bearing: math.NaN()},
		{Lon: 103.8028, Lat: 1.30005, Datetime: base.Add(20 * time.Second), Bearing: math.NaN()},
	}

	cands := make([][]candidate.Candidate, len(obs))
	for i, o := range obs {
		cs, err := candidate.Search(ctx, gw, o, 50)
		if err != nil {
			t.Fatalf("Search at %d: %v", i, err)
		}
		cands[i] = cs
	}

	r := router.New(gw)
	l := NewLattice(obs, cands, r, 10, 1, 10, 30)

	d := &Decoder{Lookahead: 1, MaxIter: 1, Lazy: true}
	res, err := d.Decode(ctx, l, r, 10, 1, 10, 30)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(res.Chosen) != 3 {
		t.Fatalf("len(Chosen) = %d, want 3", len(res.Chosen))
	}
	for _, c := range res.Chosen {
		if c.Segment.Dir != 1 {
			t.Errorf("expected forward-direction candidates along a straight eastbound trace, got Dir=%d", c.Segment.Dir)
		}
	}
}
