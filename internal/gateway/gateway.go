// Package gateway is the sole point of database coupling: typed,
// read-only queries against the OSM-derived planet_osm_* tables. Grounded
// on the pack's postgresosm.transportRepository (sqlx + pgx, $N
// placeholders, PostGIS ST_DWithin/ST_Transform, zap error logging).
package gateway

import (
	"context"
	"errors"

	"mapmatch/internal/osm"
)

// ErrTransient marks a gateway failure the caller should surface as a
// transient db_error result: query timeout, connectivity loss.
var ErrTransient = errors.New("gateway: transient query failure")

// Gateway is the narrow read-only interface the engine queries against the
// road network. All operations are safe to call concurrently.
type Gateway interface {
	// WaysNear returns all way identifiers with any geometry point within
	// radiusM of (lon,lat). Ordering is not guaranteed.
	WaysNear(ctx context.Context, lon, lat, radiusM float64) ([]osm.WayID, error)

	// WayNodes returns a way's tags and its full ordered node list.
	WayNodes(ctx context.Context, id osm.WayID) (osm.Tags, []osm.NodeID, error)

	// Node returns a node's coordinates and tags.
	Node(ctx context.Context, id osm.NodeID) (lon, lat float64, tags osm.Tags, err error)

	// WaysAtNode returns the ways that include the given node, used for
	// routing adjacency expansion.
	WaysAtNode(ctx context.Context, id osm.NodeID) ([]osm.WayID, error)
}
