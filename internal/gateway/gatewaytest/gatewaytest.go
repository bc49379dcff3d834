// Package gatewaytest provides an in-memory gateway.Gateway for tests,
// built from literal way/node fixtures in azybler-map_router's own test
// style (a small graph literal, asserted against directly) rather than a
// live database.
package gatewaytest

import (
	"context"

	"mapmatch/internal/geo"
	"mapmatch/internal/gateway"
	"mapmatch/internal/osm"
)

// NodeFixture is one node's coordinates and tags.
type NodeFixture struct {
	ID   osm.NodeID
	Lon  float64
	Lat  float64
	Tags osm.Tags
}

// WayFixture is one way's node list and tags.
type WayFixture struct {
	ID    osm.WayID
	Nodes []osm.NodeID
	Tags  osm.Tags
}

// Memory is an in-memory gateway.Gateway over a fixed set of ways/nodes.
// WaysNear does a brute-force radius scan over every segment of every way
// (fine for small fixtures; never used against real data).
type Memory struct {
	ways      map[osm.WayID]WayFixture
	nodes     map[osm.NodeID]NodeFixture
	waysAt    map[osm.NodeID][]osm.WayID
}

// New builds a Memory gateway from way and node fixtures.
func New(ways []WayFixture, nodes []NodeFixture) *Memory {
	m := &Memory{
		ways:   make(map[osm.WayID]WayFixture, len(ways)),
		nodes:  make(map[osm.NodeID]NodeFixture, len(nodes)),
		waysAt: make(map[osm.NodeID][]osm.WayID),
	}
	for _, n := range nodes {
		m.nodes[n.ID] = n
	}
	for _, w := range ways {
		m.ways[w.ID] = w
		for _, nid := range w.Nodes {
			m.waysAt[nid] = append(m.waysAt[nid], w.ID)
		}
	}
	return m
}

func (m *Memory) WaysNear(ctx context.Context, lon, lat, radiusM float64) ([]osm.WayID, error) {
	p := geo.LatLng{Lon: lon, Lat: lat}
	var found []osm.WayID
	for id, w := range m.ways {
		for i := 0; i < len(w.Nodes)-1; i++ {
			n1, n2 := m.nodes[w.Nodes[i]], m.nodes[w.Nodes[i+1]]
			_, xte := geo.AlongAndCrossTrack(
				geo.LatLng{Lon: n1.Lon, Lat: n1.Lat},
				geo.LatLng{Lon: n2.Lon, Lat: n2.Lat},
				p,
			)
			if xte <= radiusM {
				found = append(found, id)
				break
			}
		}
	}
	return found, nil
}

func (m *Memory) WayNodes(ctx context.Context, id osm.WayID) (osm.Tags, []osm.NodeID, error) {
	w, ok := m.ways[id]
	if !ok {
		return nil, nil, gateway.ErrTransient
	}
	return w.Tags, w.Nodes, nil
}

func (m *Memory) Node(ctx context.Context, id osm.NodeID) (float64, float64, osm.Tags, error) {
	n, ok := m.nodes[id]
	if !ok {
		return 0, 0, nil, gateway.ErrTransient
	}
	return n.Lon, n.Lat, n.Tags, nil
}

func (m *Memory) WaysAtNode(ctx context.Context, id osm.NodeID) ([]osm.WayID, error) {
	return m.waysAt[id], nil
}
