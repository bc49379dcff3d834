// Package wayseg decomposes an OSM way into its directed segments, the unit
// the candidate search and router operate on. Grounded on
// pkg/graph.Build, which slid a 2-node window over a way's node list and
// computed distance/weight per pair; here the window instead produces one
// or two *Segment* values per pair (depending on direction), carrying
// precomputed geometry instead of a CSR edge weight.
package wayseg

import (
	"mapmatch/internal/geo"
	"mapmatch/internal/osm"
)

// Direction indicates whether a segment's node order matches the way's
// stored order (+1) or is reversed (-1); 0 marks a synthetic zero-length
// segment standing in for a non-traversal.
type Direction int8

const (
	Forward    Direction = 1
	Backward   Direction = -1
	Stationary Direction = 0 // no net traversal: consecutive candidates project to the same point
)

// Segment is a directed pair of adjacent nodes within a way.
type Segment struct {
	WayID    osm.WayID
	Index    int
	Node1    osm.NodeID
	Node2    osm.NodeID
	Dir      Direction
	Distance float64 // meters, great-circle
	Bearing  float64 // degrees, bearing along the way's stored node order (Node2->Node1 when Dir=Backward)
	P1, P2   geo.LatLng
	Tags     osm.Tags // the owning way's tags
}

// EffectiveBearing returns the segment's bearing as seen by a directed
// traversal: for Dir=-1 this is the reverse of the stored forward bearing.
func (s Segment) EffectiveBearing() float64 {
	if s.Dir == Backward {
		return geo.NormalizeBearing(s.Bearing + 180)
	}
	return geo.NormalizeBearing(s.Bearing)
}

// NodeCoord resolves a node's coordinates; implementations are backed by a
// per-call gateway cache.
type NodeCoord func(id osm.NodeID) (geo.LatLng, error)

// Build decomposes a way into its directed segments. If the way is
// bidirectional (per osm.DirectionFlags), each node pair yields two
// Segments with opposite Dir; if one-way, only the traversable direction is
// emitted: Dir=Forward for an ordinary one-way, Dir=Backward for a way
// tagged oneway=-1/reverse.
func Build(way osm.Way, coord NodeCoord) ([]Segment, error) {
	if len(way.Nodes) < 2 {
		return nil, nil
	}

	fwd, bwd := osm.DirectionFlags(way.Tags)
	if !fwd && !bwd {
		return nil, nil
	}

	segs := make([]Segment, 0, len(way.Nodes)-1)
	for i := 0; i < len(way.Nodes)-1; i++ {
		n1, n2 := way.Nodes[i], way.Nodes[i+1]
		p1, err := coord(n1)
		if err != nil {
			return nil, err
		}
		p2, err := coord(n2)
		if err != nil {
			return nil, err
		}

		dist := geo.Distance(p1, p2)
		bearing := geo.Bearing(p1, p2)

		if fwd {
			segs = append(segs, Segment{
				WayID: way.ID, Index: i, Node1: n1, Node2: n2, Dir: Forward,
				Distance: dist, Bearing: bearing, P1: p1, P2: p2, Tags: way.Tags,
			})
		}
		if bwd {
			segs = append(segs, Segment{
				WayID: way.ID, Index: i, Node1: n2, Node2: n1, Dir: Backward,
				Distance: dist, Bearing: bearing, P1: p2, P2: p1, Tags: way.Tags,
			})
		}
	}
	return segs, nil
}
