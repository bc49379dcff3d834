// Package router computes shortest-path road distances between directed
// segment candidates, expanding the graph on demand from the gateway
// instead of walking a preprocessed structure. Grounded on
// pkg/routing/engine.go (query-scoped A* state, admissible great-circle
// heuristic) and pkg/routing/dijkstra.go (concrete MinHeap); NOT grounded on
// pkg/ch, which preprocesses a static graph offline — there is no offline
// phase here, since the underlying OSM data can change between calls and
// the graph is queried through the gateway rather than held in memory.
package router

import (
	"context"
	"errors"
	"math"
	"time"

	"mapmatch/internal/candidate"
	"mapmatch/internal/gateway"
	"mapmatch/internal/geo"
	"mapmatch/internal/osm"
	"mapmatch/internal/wayseg"
)

type nodeID = osm.NodeID

const posInf = math.MaxFloat64

// SafetyFactor multiplies maxVelocity*dt to bound how far A* searches
// before giving up and reporting the pair unreachable.
const SafetyFactor = 2.0

// ErrUnreachable is returned by Distance when no path exists within the
// search's cost cutoff.
var ErrUnreachable = errors.New("router: no path within cutoff")

// edge is one node's outgoing connection, carrying enough of its owning
// segment's identity to be re-expressed as a wayseg.Segment during route
// reconstruction.
type edge struct {
	to       nodeID
	distance float64
	wayID    osm.WayID
	index    int
	dir      wayseg.Direction
	tags     osm.Tags
}

// Router computes road-network distances via on-demand A*. A Router holds a
// per-call adjacency cache and must not be reused across match calls run
// against different underlying data.
type Router struct {
	gw  gateway.Gateway
	adj map[nodeID][]edge
}

// New returns a Router querying gw. gw should normally be a gateway.Cached
// instance so repeated node/way lookups during a single match are memoized.
func New(gw gateway.Gateway) *Router {
	return &Router{gw: gw, adj: make(map[nodeID][]edge)}
}

// neighbors returns u's outgoing edges, expanding and caching them on first
// use. A node's out-edges are the next (or previous, if the way permits
// backward travel) node along every way that passes through it.
func (r *Router) neighbors(ctx context.Context, u nodeID) ([]edge, error) {
	if e, ok := r.adj[u]; ok {
		return e, nil
	}

	wayIDs, err := r.gw.WaysAtNode(ctx, u)
	if err != nil {
		return nil, err
	}

	var out []edge
	for _, wid := range wayIDs {
		tags, nodes, err := r.gw.WayNodes(ctx, wid)
		if err != nil {
			return nil, err
		}
		if !osm.IsCarAccessible(tags) {
			continue
		}
		fwd, bwd := osm.DirectionFlags(tags)

		for i, n := range nodes {
			if n != u {
				continue
			}
			if fwd && i+1 < len(nodes) {
				d, err := r.edgeDistance(ctx, u, nodes[i+1])
				if err != nil {
					return nil, err
				}
				out = append(out, edge{to: nodes[i+1], distance: d, wayID: wid, index: i, dir: wayseg.Forward, tags: tags})
			}
			if bwd && i > 0 {
				d, err := r.edgeDistance(ctx, u, nodes[i-1])
				if err != nil {
					return nil, err
				}
				out = append(out, edge{to: nodes[i-1], distance: d, wayID: wid, index: i - 1, dir: wayseg.Backward, tags: tags})
			}
		}
	}

	r.adj[u] = out
	return out, nil
}

func (r *Router) edgeDistance(ctx context.Context, a, b nodeID) (float64, error) {
	pa, err := r.coord(ctx, a)
	if err != nil {
		return 0, err
	}
	pb, err := r.coord(ctx, b)
	if err != nil {
		return 0, err
	}
	return geo.Distance(pa, pb), nil
}

func (r *Router) coord(ctx context.Context, id nodeID) (geo.LatLng, error) {
	lon, lat, _, err := r.gw.Node(ctx, id)
	if err != nil {
		return geo.LatLng{}, err
	}
	return geo.LatLng{Lon: lon, Lat: lat}, nil
}

// Distance returns the road-network travel distance in meters from
// candidate a to candidate b, honoring one-way direction and partial
// traversal of the endpoint segments. maxVelocity (m/s) and dt bound the
// search: once the best frontier cost exceeds maxVelocity*dt*SafetyFactor,
// Distance gives up and returns ErrUnreachable — which the caller treats as
// a -Inf transition rather than an error.
//
// When a and b sit on the same directed segment but b.AlongTrack is behind
// a.AlongTrack, this is not unreachable: the route exits via the segment's
// far node (Node2) and loops back through the network onto the segment's
// near node (Node1) before re-traversing it, the same as any other
// cross-segment pair with Node1==Node1.
func (r *Router) Distance(ctx context.Context, a, b candidate.Candidate, maxVelocity float64, dt time.Duration) (float64, error) {
	if a.Segment.WayID == b.Segment.WayID && a.Segment.Index == b.Segment.Index && a.Segment.Dir == b.Segment.Dir {
		d := b.AlongTrack - a.AlongTrack
		if d >= 0 {
			return d, nil
		}
	}

	cutoff := maxVelocity * dt.Seconds() * SafetyFactor
	if cutoff <= 0 {
		cutoff = posInf
	}

	fromNode := a.Segment.Node2
	toNode := b.Segment.Node1
	toCoord, err := r.coord(ctx, toNode)
	if err != nil {
		return 0, err
	}

	interior, err := r.shortestPath(ctx, fromNode, toNode, toCoord, cutoff)
	if err != nil {
		return 0, err
	}

	leadIn := a.Segment.Distance - a.AlongTrack
	leadOut := b.AlongTrack
	total := leadIn + interior + leadOut
	if total > cutoff {
		return 0, ErrUnreachable
	}
	return total, nil
}

// shortestPath runs A* from src to dst with an admissible great-circle
// heuristic, stopping once the frontier's minimum cost exceeds cutoff.
func (r *Router) shortestPath(ctx context.Context, src, dst nodeID, dstCoord geo.LatLng, cutoff float64) (float64, error) {
	dist, _, err := r.aStar(ctx, src, dst, dstCoord, cutoff)
	return dist, err
}

// Path returns the ordered segments of the shortest route from src to dst,
// honoring the same cutoff as Distance.
func (r *Router) Path(ctx context.Context, src, dst nodeID, cutoff float64) ([]wayseg.Segment, error) {
	if src == dst {
		return nil, nil
	}
	dstCoord, err := r.coord(ctx, dst)
	if err != nil {
		return nil, err
	}

	_, pred, err := r.aStar(ctx, src, dst, dstCoord, cutoff)
	if err != nil {
		return nil, err
	}

	var segs []wayseg.Segment
	node := dst
	for node != src {
		e, ok := pred[node]
		if !ok {
			return nil, ErrUnreachable
		}
		seg, err := r.buildSegment(ctx, e)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		node = e.from
	}

	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return segs, nil
}

// buildSegment turns a traversed edge back into a wayseg.Segment. Bearing is
// always stored in the way's ascending-node-order direction (matching
// wayseg.Build's convention — EffectiveBearing applies the +180 correction
// for Dir=-1), so a Backward edge's Bearing is computed from the lower-index
// node to the higher-index one, not from the traversal order. P1/P2, like
// Node1/Node2, follow the traversal order.
func (r *Router) buildSegment(ctx context.Context, e predEdge) (wayseg.Segment, error) {
	pFrom, err := r.coord(ctx, e.from)
	if err != nil {
		return wayseg.Segment{}, err
	}
	pTo, err := r.coord(ctx, e.to)
	if err != nil {
		return wayseg.Segment{}, err
	}

	ascP1, ascP2 := pFrom, pTo
	if e.dir == wayseg.Backward {
		ascP1, ascP2 = pTo, pFrom
	}

	return wayseg.Segment{
		WayID: e.wayID, Index: e.index, Node1: e.from, Node2: e.to, Dir: e.dir,
		Distance: e.distance, Bearing: geo.Bearing(ascP1, ascP2), P1: pFrom, P2: pTo,
		Tags: e.tags,
	}, nil
}

// predEdge is an edge annotated with the node it was relaxed from, used
// only for path reconstruction.
type predEdge struct {
	edge
	from nodeID
}

// aStar runs A* from src to dst with an admissible great-circle heuristic,
// stopping once the frontier's minimum cost exceeds cutoff. It returns the
// best distance found and, for every relaxed node, the edge that produced
// its current best distance (for Path's backtrace).
func (r *Router) aStar(ctx context.Context, src, dst nodeID, dstCoord geo.LatLng, cutoff float64) (float64, map[nodeID]predEdge, error) {
	if src == dst {
		return 0, nil, nil
	}

	dist := map[nodeID]float64{src: 0}
	pred := make(map[nodeID]predEdge)
	visited := make(map[nodeID]bool)

	srcCoord, err := r.coord(ctx, src)
	if err != nil {
		return 0, nil, err
	}

	h := &minHeap{}
	h.Push(src, geo.Distance(srcCoord, dstCoord))

	for h.Len() > 0 {
		if h.PeekDist() > cutoff {
			break
		}
		item := h.Pop()
		u := item.node

		if visited[u] {
			continue
		}
		visited[u] = true

		if u == dst {
			return dist[u], pred, nil
		}

		edges, err := r.neighbors(ctx, u)
		if err != nil {
			return 0, nil, err
		}
		for _, e := range edges {
			if visited[e.to] {
				continue
			}
			nd := dist[u] + e.distance
			if existing, ok := dist[e.to]; ok && existing <= nd {
				continue
			}
			dist[e.to] = nd
			pred[e.to] = predEdge{edge: e, from: u}

			toCoord, err := r.coord(ctx, e.to)
			if err != nil {
				return 0, nil, err
			}
			h.Push(e.to, nd+geo.Distance(toCoord, dstCoord))
		}
	}

	return 0, nil, ErrUnreachable
}
