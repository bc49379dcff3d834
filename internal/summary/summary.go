// Package summary builds the three tabular outputs of a match call: the
// per-point summary, the per-segment summary, and overall stats. Structs
// carry CSV-column-friendly tags in the same JSON-struct-tag idiom
// azybler-map_router's pkg/api/models.go used, ported to `csv` tags since
// the engine's output container is tabular, not JSON.
package summary

import (
	"encoding/json"

	"mapmatch/internal/candidate"
	"mapmatch/internal/condition"
	"mapmatch/internal/reconstruct"
)

// Point is one conditioned observation's match outcome.
type Point struct {
	OriginalIndex  int     `csv:"original_index"`
	Lon            float64 `csv:"lon"`
	Lat            float64 `csv:"lat"`
	Bearing        float64 `csv:"bearing"` // the observation's own GPS bearing
	MatchedLon     float64 `csv:"matched_lon"`
	MatchedLat     float64 `csv:"matched_lat"`
	WayID          int64   `csv:"way_id"`
	SegmentIndex   int     `csv:"segment_index"`
	Direction      int8    `csv:"direction"`
	Node1          int64   `csv:"node1"`
	Node2          int64   `csv:"node2"`
	Tags           string  `csv:"tags"` // the matched way's tags, JSON-encoded
	MatchedBearing float64 `csv:"matched_bearing"`
	AlongTrack     float64 `csv:"along_track_m"`
	XTE            float64 `csv:"xte_m"`
	// Weight is always 1: a vestigial column carried for output
	// bit-compatibility with a one-point-one-weight convention, not a
	// quantity this engine varies.
	Weight  float64 `csv:"weight"`
	Removed bool    `csv:"removed"`
}

// Segment is one run of the stitched route.
type Segment struct {
	SegmentOrder int     `csv:"segment_order"`
	WayID        int64   `csv:"way_id"`
	SegmentIndex int     `csv:"segment_index"`
	Direction    int8    `csv:"direction"`
	Node1        int64   `csv:"node1"`
	Node2        int64   `csv:"node2"`
	Node2Tags    string  `csv:"node2_tags"` // Node2's OSM tags, JSON-encoded
	DistanceM    float64 `csv:"distance_m"`
	// PointsIndices holds, in order, the observation indices whose matched
	// candidate lies on this segment.
	PointsIndices []int `csv:"points_indices"`
	IsBreakStart  bool  `csv:"is_break_start"`
}

// Stats is the overall outcome of one match call. It has no tabular form of
// its own (csvio.WriteStats renders it as a single JSON record), but keeps
// csv tags alongside json ones for consistency with Point/Segment.
type Stats struct {
	NumInputPoints       int     `csv:"num_input_points" json:"num_input_points"`
	NumConditionedPoints int     `csv:"num_conditioned_points" json:"num_conditioned_points"`
	NumMatchedPoints     int     `csv:"num_matched_points" json:"num_matched_points"`
	NumRemovedPoints     int     `csv:"num_removed_points" json:"num_removed_points"`
	NumSegments          int     `csv:"num_segments" json:"num_segments"`
	NumBreaks            int     `csv:"num_breaks" json:"num_breaks"`
	TotalDistanceM       float64 `csv:"total_distance_m" json:"total_distance_m"`
	// MatchedProportion is NumMatchedPoints / NumConditionedPoints.
	MatchedProportion float64 `csv:"matched_proportion" json:"matched_proportion"`
	// GPSDistanceM is the sum of conditioned inter-point great-circle
	// distances, independent of how much of the trip actually matched.
	GPSDistanceM float64 `csv:"gps_distance_m" json:"gps_distance_m"`
	// MeanXTE is the mean cross-track error of every matched point.
	MeanXTE             float64 `csv:"mean_xte_m" json:"mean_xte_m"`
	TripDurationMinutes float64 `csv:"trip_duration_minutes" json:"trip_duration_minutes"`
	ConditioningMS      int64   `csv:"conditioning_ms" json:"conditioning_ms"`
	CandidateSearchMS   int64   `csv:"candidate_search_ms" json:"candidate_search_ms"`
	DecodingMS          int64   `csv:"decoding_ms" json:"decoding_ms"`
	ReconstructionMS    int64   `csv:"reconstruction_ms" json:"reconstruction_ms"`
}

// FormatTags renders an OSM tag map as a JSON object string, or "" when
// empty, for embedding in a CSV cell.
func FormatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(b)
}

// Points builds the points summary. obs is every conditioned point passed
// into the first decode pass (before problematic-point removal);
// chosen/originalIndex/removed are the decoder's result, where
// originalIndex[t] and each removed entry are positions into obs — so
// every point in obs gets exactly one row, matched or not.
func Points(obs []condition.ConditionedPoint, chosen []candidate.Candidate, originalIndex []int, removed []int) []Point {
	removedSet := make(map[int]bool, len(removed))
	for _, idx := range removed {
		removedSet[idx] = true
	}

	out := make([]Point, len(obs))
	for i, o := range obs {
		out[i] = Point{
			OriginalIndex: o.OriginalIndex,
			Lon:           o.Lon,
			Lat:           o.Lat,
			Bearing:       o.Bearing,
			Weight:        1,
			Removed:       removedSet[i],
		}
	}

	for t, c := range chosen {
		i := originalIndex[t]
		out[i].MatchedLon = c.Projected.Lon
		out[i].MatchedLat = c.Projected.Lat
		out[i].WayID = int64(c.Segment.WayID)
		out[i].SegmentIndex = c.Segment.Index
		out[i].Direction = int8(c.Segment.Dir)
		out[i].Node1 = int64(c.Segment.Node1)
		out[i].Node2 = int64(c.Segment.Node2)
		out[i].Tags = FormatTags(c.Segment.Tags)
		out[i].MatchedBearing = c.Segment.EffectiveBearing()
		out[i].AlongTrack = c.AlongTrack
		out[i].XTE = c.XTE
	}
	return out
}

// Segments builds the segments summary from a stitched route. node2Tags
// looks up each segment's Node2 tags, JSON-encoded, keyed by node id.
func Segments(route *reconstruct.StitchedRoute, node2Tags map[int64]string) []Segment {
	breakStart := make(map[int]bool, len(route.Breaks))
	for _, b := range route.Breaks {
		breakStart[b+1] = true
	}

	out := make([]Segment, len(route.Segments))
	for i, s := range route.Segments {
		out[i] = Segment{
			SegmentOrder:  i,
			WayID:         int64(s.WayID),
			SegmentIndex:  s.Index,
			Direction:     int8(s.Dir),
			Node1:         int64(s.Node1),
			Node2:         int64(s.Node2),
			Node2Tags:     node2Tags[int64(s.Node2)],
			DistanceM:     s.Distance,
			PointsIndices: route.PointsIndices[i],
			IsBreakStart:  breakStart[i],
		}
	}
	return out
}

// BuildStats summarizes one match call's outcome. numInput is the raw
// input row count; conditioned is the full conditioned sequence (before
// gap filtering, so its inter-point distances reflect the whole trip);
// chosen is the decoder's winning candidate sequence, used for mean XTE.
func BuildStats(numInput int, conditioned []condition.ConditionedPoint, chosen []candidate.Candidate, route *reconstruct.StitchedRoute, removed []int) Stats {
	total := 0.0
	for _, s := range route.Segments {
		total += s.Distance
	}
	numMatched := 0
	for _, pts := range route.PointsIndices {
		numMatched += len(pts)
	}

	gpsDist := 0.0
	for _, c := range conditioned {
		gpsDist += c.DistanceFromPrev
	}

	var meanXTE float64
	if len(chosen) > 0 {
		sum := 0.0
		for _, c := range chosen {
			sum += c.XTE
		}
		meanXTE = sum / float64(len(chosen))
	}

	var tripMinutes float64
	if len(conditioned) > 1 {
		tripMinutes = conditioned[len(conditioned)-1].Datetime.Sub(conditioned[0].Datetime).Minutes()
	}

	var matchedProportion float64
	if len(conditioned) > 0 {
		matchedProportion = float64(numMatched) / float64(len(conditioned))
	}

	return Stats{
		NumInputPoints:       numInput,
		NumConditionedPoints: len(conditioned),
		NumMatchedPoints:     numMatched,
		NumRemovedPoints:     len(removed),
		NumSegments:          len(route.Segments),
		NumBreaks:            len(route.Breaks),
		TotalDistanceM:       total,
		MatchedProportion:    matchedProportion,
		GPSDistanceM:         gpsDist,
		MeanXTE:              meanXTE,
		TripDurationMinutes:  tripMinutes,
	}
}
