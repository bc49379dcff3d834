package gateway

import (
	"context"
	"sync"

	"mapmatch/internal/osm"
)

// Cached wraps a Gateway with per-call memoization, keyed by identifier, so
// that repeated lookups within one match call (the router especially tends
// to re-touch the same ways and nodes) hit memory instead of the database.
// A Cached instance must be created fresh per match call and discarded
// afterward — it is not meant to be shared across calls, since a stale
// entry for one call would silently leak into the next.
type Cached struct {
	inner Gateway

	mu        sync.Mutex
	wayNodes  map[osm.WayID]wayNodesEntry
	nodeCoord map[osm.NodeID]nodeEntry
	waysAt    map[osm.NodeID][]osm.WayID
}

type wayNodesEntry struct {
	tags  osm.Tags
	nodes []osm.NodeID
}

type nodeEntry struct {
	lon, lat float64
	tags     osm.Tags
}

// NewCached wraps inner with a per-call cache.
func NewCached(inner Gateway) *Cached {
	return &Cached{
		inner:     inner,
		wayNodes:  make(map[osm.WayID]wayNodesEntry),
		nodeCoord: make(map[osm.NodeID]nodeEntry),
		waysAt:    make(map[osm.NodeID][]osm.WayID),
	}
}

// WaysNear is not cached by identifier (it is keyed by a continuous
// lon/lat/radius query, not a discrete id), so it passes through directly.
func (c *Cached) WaysNear(ctx context.Context, lon, lat, radiusM float64) ([]osm.WayID, error) {
	return c.inner.WaysNear(ctx, lon, lat, radiusM)
}

func (c *Cached) WayNodes(ctx context.Context, id osm.WayID) (osm.Tags, []osm.NodeID, error) {
	c.mu.Lock()
	if e, ok := c.wayNodes[id]; ok {
		c.mu.Unlock()
		return e.tags, e.nodes, nil
	}
	c.mu.Unlock()

	tags, nodes, err := c.inner.WayNodes(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.wayNodes[id] = wayNodesEntry{tags: tags, nodes: nodes}
	c.mu.Unlock()
	return tags, nodes, nil
}

func (c *Cached) Node(ctx context.Context, id osm.NodeID) (float64, float64, osm.Tags, error) {
	c.mu.Lock()
	if e, ok := c.nodeCoord[id]; ok {
		c.mu.Unlock()
		return e.lon, e.lat, e.tags, nil
	}
	c.mu.Unlock()

	lon, lat, tags, err := c.inner.Node(ctx, id)
	if err != nil {
		return 0, 0, nil, err
	}

	c.mu.Lock()
	c.nodeCoord[id] = nodeEntry{lon: lon, lat: lat, tags: tags}
	c.mu.Unlock()
	return lon, lat, tags, nil
}

func (c *Cached) WaysAtNode(ctx context.Context, id osm.NodeID) ([]osm.WayID, error) {
	c.mu.Lock()
	if ids, ok := c.waysAt[id]; ok {
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	ids, err := c.inner.WaysAtNode(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.waysAt[id] = ids
	c.mu.Unlock()
	return ids, nil
}
