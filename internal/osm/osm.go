// Package osm holds the data model shared by the gateway and way/segment
// packages: OSM way and node identifiers, tag maps, and the oneway/highway
// accessibility rules ported from azybler-map_router's PBF parser to
// operate on tags fetched row-by-row from a database instead of a
// whole-file scan.
package osm

// WayID and NodeID are OSM identifiers as stored in planet_osm_ways/nodes.
type WayID int64
type NodeID int64

// Tags is an OSM tag map, string key to string value.
type Tags map[string]string

// Find returns the tag value for key, or "" if absent.
func (t Tags) Find(key string) string {
	if t == nil {
		return ""
	}
	return t[key]
}

// Way is an OSM way: an ordered node list plus tags.
type Way struct {
	ID    WayID
	Nodes []NodeID
	Tags  Tags
}

// Node is an OSM node: coordinates plus tags.
type Node struct {
	ID   NodeID
	Lon  float64
	Lat  float64
	Tags Tags
}

// carHighways lists highway tag values considered drivable for map matching.
// Ported from azybler-map_router's carHighways accessibility table.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// IsCarAccessible reports whether a way's tags describe a road a car-mode
// map match should ever land on.
func IsCarAccessible(tags Tags) bool {
	if !carHighways[tags.Find("highway")] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}
	return true
}

// DirectionFlags returns (forward, backward) traversability for a way's
// node-order direction, from its highway type and oneway tag. Ported from
// azybler-map_router's directionFlags.
func DirectionFlags(tags Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// Time-dependent restriction; time-dependent costs are a non-goal,
		// so treat as bidirectional rather than guessing a direction.
		forward, backward = true, true
	}

	return forward, backward
}

// Oneway reports whether a way should be treated as one-way for segment
// generation: true whenever only one of the two directions is traversable.
func Oneway(tags Tags) bool {
	forward, backward := DirectionFlags(tags)
	return forward != backward
}
