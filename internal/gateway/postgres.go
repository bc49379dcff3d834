package gateway

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" sql driver
	"go.uber.org/zap"

	"mapmatch/internal/osm"
)

// Spatial reference IDs used by the standard osm2pgsql import: geometry
// columns are stored in Web Mercator (3857), lon/lat at the query boundary
// are WGS84 (4326).
const (
	sridWGS84       = 4326
	sridWebMercator = 3857
)

// Table names for the standard osm2pgsql import.
const (
	tableLine  = "planet_osm_line"
	tableNodes = "planet_osm_nodes"
	tableWays  = "planet_osm_ways"
)

// Postgres is a Gateway backed by a PostGIS database holding the standard
// osm2pgsql-imported tables.
type Postgres struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to dsn using the pgx driver registered under sqlx, wrapped
// in the sqlx.DB-plus-zap.Logger repository shape. poolMax bounds
// the number of open connections; 0 leaves database/sql's default.
func Open(dsn string, poolMax int, logger *zap.Logger) (*Postgres, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("gateway: open: %w", err)
	}
	if poolMax > 0 {
		db.SetMaxOpenConns(poolMax)
	}
	return &Postgres{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (g *Postgres) Close() error { return g.db.Close() }

// WaysNear queries planet_osm_line's spatial index for ways with geometry
// within radiusM of (lon,lat), transforming the query point into the
// table's projected SRID so the index (GIST on the geometry column) is used
// directly — mirrors the pack's ST_Transform/ST_DWithin pairing.
func (g *Postgres) WaysNear(ctx context.Context, lon, lat, radiusM float64) ([]osm.WayID, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT osm_id
		FROM %s
		WHERE ST_DWithin(
			way,
			ST_Transform(ST_SetSRID(ST_MakePoint($1, $2), %d), %d),
			$3
		)
	`, tableLine, sridWGS84, sridWebMercator)

	rows, err := g.db.QueryxContext(ctx, query, lon, lat, radiusM)
	if err != nil {
		g.logger.Error("ways_near failed", zap.Float64("lon", lon), zap.Float64("lat", lat), zap.Error(err))
		return nil, fmt.Errorf("%w: ways_near: %v", ErrTransient, err)
	}
	defer rows.Close()

	var ids []osm.WayID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			g.logger.Error("ways_near scan failed", zap.Error(err))
			return nil, fmt.Errorf("%w: ways_near scan: %v", ErrTransient, err)
		}
		ids = append(ids, osm.WayID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ways_near rows: %v", ErrTransient, err)
	}
	return ids, nil
}

// WayNodes returns the tags and ordered node list for a way from
// planet_osm_ways, whose `nodes` column is an ordered bigint[] and whose
// `tags` column is a flat alternating-key-value text[].
func (g *Postgres) WayNodes(ctx context.Context, id osm.WayID) (osm.Tags, []osm.NodeID, error) {
	var row struct {
		Nodes []int64  `db:"nodes"`
		Tags  []string `db:"tags"`
	}

	query := fmt.Sprintf(`SELECT nodes, tags FROM %s WHERE id = $1`, tableWays)
	if err := g.db.GetContext(ctx, &row, query, int64(id)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("%w: way %d not found", ErrTransient, id)
		}
		g.logger.Error("way_nodes failed", zap.Int64("way_id", int64(id)), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: way_nodes: %v", ErrTransient, err)
	}

	nodes := make([]osm.NodeID, len(row.Nodes))
	for i, n := range row.Nodes {
		nodes[i] = osm.NodeID(n)
	}

	tags := decodeTagArray(row.Tags)
	// highway/oneway/name are also queryable as dedicated columns on some
	// imports, but the tags array is authoritative and always present.
	return tags, nodes, nil
}

// Node returns a node's WGS84 coordinates (stored scaled by 1e7 as integers
// in planet_osm_nodes) and tags.
func (g *Postgres) Node(ctx context.Context, id osm.NodeID) (lon, lat float64, tags osm.Tags, err error) {
	var row struct {
		Lat  int64    `db:"lat"`
		Lon  int64    `db:"lon"`
		Tags []string `db:"tags"`
	}

	query := fmt.Sprintf(`SELECT lat, lon, tags FROM %s WHERE id = $1`, tableNodes)
	if err := g.db.GetContext(ctx, &row, query, int64(id)); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, nil, fmt.Errorf("%w: node %d not found", ErrTransient, id)
		}
		g.logger.Error("node failed", zap.Int64("node_id", int64(id)), zap.Error(err))
		return 0, 0, nil, fmt.Errorf("%w: node: %v", ErrTransient, err)
	}

	return float64(row.Lon) / 1e7, float64(row.Lat) / 1e7, decodeTagArray(row.Tags), nil
}

// WaysAtNode returns the ways whose node array contains id, using the
// array-containment operator against planet_osm_ways.nodes so the GIN index
// (if present) is used.
func (g *Postgres) WaysAtNode(ctx context.Context, id osm.NodeID) ([]osm.WayID, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE nodes @> ARRAY[$1::bigint]`, tableWays)

	rows, err := g.db.QueryxContext(ctx, query, int64(id))
	if err != nil {
		g.logger.Error("ways_at_node failed", zap.Int64("node_id", int64(id)), zap.Error(err))
		return nil, fmt.Errorf("%w: ways_at_node: %v", ErrTransient, err)
	}
	defer rows.Close()

	var ids []osm.WayID
	for rows.Next() {
		var wid int64
		if err := rows.Scan(&wid); err != nil {
			return nil, fmt.Errorf("%w: ways_at_node scan: %v", ErrTransient, err)
		}
		ids = append(ids, osm.WayID(wid))
	}
	return ids, rows.Err()
}

// decodeTagArray turns osm2pgsql's flat [k1, v1, k2, v2, ...] tags column
// into a map.
func decodeTagArray(flat []string) osm.Tags {
	tags := make(osm.Tags, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		tags[flat[i]] = flat[i+1]
	}
	return tags
}
