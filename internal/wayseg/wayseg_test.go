package wayseg

import (
	"math"
	"testing"

	"mapmatch/internal/geo"
	"mapmatch/internal/osm"
)

func fakeCoord(coords map[osm.NodeID]geo.LatLng) NodeCoord {
	return func(id osm.NodeID) (geo.LatLng, error) {
		return coords[id], nil
	}
}

func TestBuildBidirectional(t *testing.T) {
	way := osm.Way{
		ID:    1,
		Nodes: []osm.NodeID{10, 20, 30},
		Tags:  osm.Tags{"highway": "residential"},
	}
	coords := map[osm.NodeID]geo.LatLng{
		10: {Lon: 103.80, Lat: 1.30},
		20: {Lon: 103.81, Lat: 1.30},
		30: {Lon: 103.82, Lat: 1.30},
	}

	segs, err := Build(way, fakeCoord(coords))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// 2 node pairs * 2 directions.
	if len(segs) != 4 {
		t.Fatalf("len(segs) = %d, want 4", len(segs))
	}

	for _, s := range segs {
		if s.Dir != Forward && s.Dir != Backward {
			t.Fatalf("unexpected Dir %v", s.Dir)
		}
		if s.Dir == Backward {
			want := geo.NormalizeBearing(s.Bearing + 180)
			if math.Abs(s.EffectiveBearing()-want) > 1e-9 {
				t.Errorf("EffectiveBearing = %f, want %f", s.EffectiveBearing(), want)
			}
		}
	}
}

func TestBuildOneway(t *testing.T) {
	way := osm.Way{
		ID:    2,
		Nodes: []osm.NodeID{10, 20},
		Tags:  osm.Tags{"highway": "motorway"},
	}
	coords := map[osm.NodeID]geo.LatLng{
		10: {Lon: 103.80, Lat: 1.30},
		20: {Lon: 103.81, Lat: 1.30},
	}

	segs, err := Build(way, fakeCoord(coords))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1 (oneway)", len(segs))
	}
	if segs[0].Dir != Forward {
		t.Errorf("Dir = %v, want Forward", segs[0].Dir)
	}
}

func TestBuildExplicitReverseOneway(t *testing.T) {
	way := osm.Way{
		ID:    3,
		Nodes: []osm.NodeID{10, 20},
		Tags:  osm.Tags{"highway": "residential", "oneway": "-1"},
	}
	coords := map[osm.NodeID]geo.LatLng{
		10: {Lon: 103.80, Lat: 1.30},
		20: {Lon: 103.81, Lat: 1.30},
	}

	segs, err := Build(way, fakeCoord(coords))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(segs) != 1 || segs[0].Dir != Backward {
		t.Fatalf("got %+v, want single Backward segment", segs)
	}
	if segs[0].Node1 != 20 || segs[0].Node2 != 10 {
		t.Errorf("Node1/Node2 = %d/%d, want 20/10", segs[0].Node1, segs[0].Node2)
	}
}
