// Package candidate enumerates directed-segment candidates for a
// conditioned GPS point: the set of road segments within a search radius,
// with the point's projection onto each. Grounded on
// pkg/routing/snap.go (grid-indexed nearest-segment search with
// PointToSegmentDist projection), re-targeted from "one nearest segment via
// a local grid" to "all segments within a radius via the gateway's
// ways_near" — the HMM needs every surviving candidate, not just the
// single nearest one, to weigh competing alternatives.
package candidate

import (
	"context"
	"errors"

	"mapmatch/internal/condition"
	"mapmatch/internal/gateway"
	"mapmatch/internal/geo"
	"mapmatch/internal/osm"
	"mapmatch/internal/wayseg"
)

// ErrGap is returned when zero candidates survive the search radius for a
// point — the point becomes a gap rather than aborting the whole match.
var ErrGap = errors.New("candidate: no candidates within search radius")

// Candidate is a (segment, projection) pair for one conditioned point.
type Candidate struct {
	Segment    wayseg.Segment
	AlongTrack float64 // meters, clamped to [0, Segment.Distance]
	XTE        float64 // meters, unsigned
	Projected  geo.LatLng
}

// Search returns every directed-segment candidate for p within radiusM, or
// ErrGap if none survive. Segments from a way are built once and both
// directions (if bidirectional) are scored independently, never folded
// into a single undirected candidate — the decoder needs both as distinct
// hidden states so a route reversal shows up as a direction change, not a
// silent jump.
func Search(ctx context.Context, gw gateway.Gateway, p condition.ConditionedPoint, radiusM float64) ([]Candidate, error) {
	wayIDs, err := gw.WaysNear(ctx, p.Lon, p.Lat, radiusM)
	if err != nil {
		return nil, err
	}

	coord := nodeCoordFunc(ctx, gw)

	var out []Candidate
	for _, wid := range wayIDs {
		tags, nodes, err := gw.WayNodes(ctx, wid)
		if err != nil {
			return nil, err
		}
		if !osm.IsCarAccessible(tags) {
			continue
		}

		segs, err := wayseg.Build(osm.Way{ID: wid, Nodes: nodes, Tags: tags}, coord)
		if err != nil {
			return nil, err
		}

		for _, s := range segs {
			along, xte := geo.AlongAndCrossTrack(s.P1, s.P2, p.LatLng())
			if xte > radiusM {
				continue
			}
			if along < 0 {
				along = 0
			} else if along > s.Distance {
				along = s.Distance
			}
			out = append(out, Candidate{
				Segment:    s,
				AlongTrack: along,
				XTE:        xte,
				Projected:  geo.ProjectOnSegment(s.P1, s.P2, p.LatLng()),
			})
		}
	}

	if len(out) == 0 {
		return nil, ErrGap
	}
	return out, nil
}

func nodeCoordFunc(ctx context.Context, gw gateway.Gateway) wayseg.NodeCoord {
	return func(id osm.NodeID) (geo.LatLng, error) {
		lon, lat, _, err := gw.Node(ctx, id)
		if err != nil {
			return geo.LatLng{}, err
		}
		return geo.LatLng{Lon: lon, Lat: lat}, nil
	}
}
