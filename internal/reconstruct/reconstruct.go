// Package reconstruct stitches the decoder's chosen candidate sequence
// into one contiguous, break-aware route. Grounded on
// pkg/routing/unpack.go, which stitches forward/backward CH predecessor
// chains into one edge list and collapses the shortcut boundary; here the
// fragments being stitched are per-pair router.Path results instead of
// unpacked CH shortcuts, and a break in the winning decode path becomes a
// gap in the output rather than an error.
package reconstruct

import (
	"context"
	"errors"

	"mapmatch/internal/candidate"
	"mapmatch/internal/geo"
	"mapmatch/internal/router"
	"mapmatch/internal/wayseg"
)

// ErrNoCandidates is returned when Reconstruct is given fewer than one
// chosen candidate.
var ErrNoCandidates = errors.New("reconstruct: no candidates to stitch")

// StitchedRoute is the contiguous directed-segment route recovered from a
// chosen candidate sequence.
type StitchedRoute struct {
	Segments []wayseg.Segment
	// PointsIndices[i] holds the observation indices (into the original
	// chosen slice) whose candidate lies on Segments[i].
	PointsIndices [][]int
	// Breaks holds indices into Segments after which a break occurs.
	Breaks []int
}

// Reconstruct stitches chosen into a StitchedRoute. breaks holds indices
// into chosen such that the transition from chosen[t] to chosen[t+1] was a
// decoder break (no reachable route); Reconstruct does not attempt to
// bridge those pairs and instead records the break.
func Reconstruct(ctx context.Context, r *router.Router, chosen []candidate.Candidate, cutoff float64, breaks []int) (*StitchedRoute, error) {
	if len(chosen) == 0 {
		return nil, ErrNoCandidates
	}

	breakAt := make(map[int]bool, len(breaks))
	for _, b := range breaks {
		breakAt[b] = true
	}

	out := &StitchedRoute{}
	appendSeg := func(s wayseg.Segment, obsIdx ...int) {
		if n := len(out.Segments); n > 0 {
			last := out.Segments[n-1]
			if last.WayID == s.WayID && last.Index == s.Index && last.Dir == s.Dir {
				out.PointsIndices[n-1] = append(out.PointsIndices[n-1], obsIdx...)
				return
			}
		}
		out.Segments = append(out.Segments, s)
		out.PointsIndices = append(out.PointsIndices, append([]int{}, obsIdx...))
	}

	appendSeg(chosen[0].Segment, 0)

	for t := 0; t < len(chosen)-1; t++ {
		a, b := chosen[t], chosen[t+1]

		if breakAt[t] {
			out.Breaks = append(out.Breaks, len(out.Segments)-1)
			appendSeg(b.Segment, t+1)
			continue
		}

		if a.Segment.WayID == b.Segment.WayID && a.Segment.Index == b.Segment.Index && a.Segment.Dir == b.Segment.Dir {
			switch {
			case b.AlongTrack == a.AlongTrack:
				// c_k and c_{k+1} are projectively the same point: no road
				// distance was traversed, so record a zero-length,
				// directionless segment rather than silently collapsing it
				// into the surrounding segment.
				appendSeg(stationarySegment(a.Segment, a.Projected), t+1)
				continue
			case b.AlongTrack > a.AlongTrack:
				appendSeg(b.Segment, t+1)
				continue
			}
			// b.AlongTrack < a.AlongTrack falls through to the general path
			// below: the route exits via Node2 and loops back onto Node1
			// before re-traversing the segment, rather than being unreachable.
		}

		path, err := r.Path(ctx, a.Segment.Node2, b.Segment.Node1, cutoff)
		if err != nil {
			if errors.Is(err, router.ErrUnreachable) {
				out.Breaks = append(out.Breaks, len(out.Segments)-1)
				appendSeg(b.Segment, t+1)
				continue
			}
			return nil, err
		}
		for _, s := range path {
			// Interior segments carry no observation: chosen[t+1] lies on
			// b.Segment, appended below.
			appendSeg(s)
		}
		appendSeg(b.Segment, t+1)
	}

	return out, nil
}

// stationarySegment synthesizes a zero-length, Dir=Stationary segment
// standing in for a candidate pair that projects to the same point.
func stationarySegment(s wayseg.Segment, p geo.LatLng) wayseg.Segment {
	return wayseg.Segment{
		WayID: s.WayID, Index: s.Index, Node1: s.Node1, Node2: s.Node1, Dir: wayseg.Stationary,
		Distance: 0, Bearing: s.Bearing, P1: p, P2: p, Tags: s.Tags,
	}
}

// Linestring is a sequence of coordinates for one break-delimited run of
// the stitched route.
type Linestring struct {
	Lon []float64 `json:"lon"`
	Lat []float64 `json:"lat"`
}

// Linestrings groups a StitchedRoute's segments into runs split at breaks,
// each run rendered as one Linestring.
func Linestrings(route *StitchedRoute) []Linestring {
	if len(route.Segments) == 0 {
		return nil
	}

	breakAfter := make(map[int]bool, len(route.Breaks))
	for _, b := range route.Breaks {
		breakAfter[b] = true
	}

	var runs []Linestring
	cur := Linestring{}
	for i, s := range route.Segments {
		if len(cur.Lon) == 0 {
			cur.Lon = append(cur.Lon, s.P1.Lon)
			cur.Lat = append(cur.Lat, s.P1.Lat)
		}
		cur.Lon = append(cur.Lon, s.P2.Lon)
		cur.Lat = append(cur.Lat, s.P2.Lat)

		if breakAfter[i] {
			runs = append(runs, cur)
			cur = Linestring{}
		}
	}
	if len(cur.Lon) > 0 {
		runs = append(runs, cur)
	}
	return runs
}
