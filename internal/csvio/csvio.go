// Package csvio is the engine's tabular I/O boundary: it reads a caller's
// GPS trace (a datetime/lat/lon column triple plus arbitrary passthrough
// columns) and writes the points summary, segments summary, and linestring
// helper back out. Grounded on stdlib encoding/csv — the tabular container
// itself is out of scope, so this is a narrow row reader/writer rather than
// a dataframe library, matching the corpus's preference for small
// purpose-built I/O helpers over a general-purpose dependency.
package csvio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"mapmatch/internal/condition"
	"mapmatch/internal/reconstruct"
	"mapmatch/internal/summary"
)

// ErrMissingColumn is returned when a caller-named datetime/lat/lon column
// is absent from the input header.
var ErrMissingColumn = errors.New("csvio: missing column")

// ErrEmptyInput is returned when the input has a header but no data rows.
var ErrEmptyInput = errors.New("csvio: empty input")

const datetimeLayout = "2006-01-02 15:04:05"

// Columns names the caller's datetime/latitude/longitude columns; every
// other column in the input is passed through and re-emitted gps_-prefixed.
type Columns struct {
	Datetime string
	Lat      string
	Lon      string
}

// ReadRawPoints parses r as a header-plus-rows CSV, extracting the
// datetime/lat/lon triple named by cols and carrying every remaining
// column as a RawPoint.Extra entry. Datetime values longer than
// "YYYY-MM-DD HH:MM:SS" are truncated before parsing.
func ReadRawPoints(r io.Reader, cols Columns) ([]condition.RawPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("csvio: reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	dtIdx, ok := index[cols.Datetime]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, cols.Datetime)
	}
	latIdx, ok := index[cols.Lat]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, cols.Lat)
	}
	lonIdx, ok := index[cols.Lon]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, cols.Lon)
	}

	var out []condition.RawPoint
	for rowIdx := 0; ; rowIdx++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvio: reading row %d: %w", rowIdx, err)
		}

		raw := record[dtIdx]
		if len(raw) > len(datetimeLayout) {
			raw = raw[:len(datetimeLayout)]
		}
		dt, err := time.Parse(datetimeLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("csvio: row %d: parsing datetime %q: %w", rowIdx, record[dtIdx], err)
		}

		lat, err := strconv.ParseFloat(record[latIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("csvio: row %d: parsing lat %q: %w", rowIdx, record[latIdx], err)
		}
		lon, err := strconv.ParseFloat(record[lonIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("csvio: row %d: parsing lon %q: %w", rowIdx, record[lonIdx], err)
		}

		extra := make(map[string]any, len(header)-3)
		for i, name := range header {
			if i == dtIdx || i == latIdx || i == lonIdx || i >= len(record) {
				continue
			}
			extra[name] = record[i]
		}

		out = append(out, condition.RawPoint{
			Index:    rowIdx,
			Datetime: dt,
			Lon:      lon,
			Lat:      lat,
			Extra:    extra,
		})
	}

	if len(out) == 0 {
		return nil, ErrEmptyInput
	}
	return out, nil
}

// WritePoints writes the points summary CSV: summary.Point's fixed columns
// followed by the union of every point's passthrough columns, gps_-prefixed
// and in sorted-name order for a stable header.
func WritePoints(w io.Writer, points []summary.Point, extraByIndex map[int]map[string]any) error {
	extraCols := unionKeys(extraByIndex)

	cw := csv.NewWriter(w)
	header := []string{
		"original_index", "lon", "lat", "bearing", "matched_lon", "matched_lat",
		"way_id", "segment_index", "direction", "node1", "node2", "tags",
		"matched_bearing", "along_track_m", "xte_m", "weight", "removed",
	}
	for _, k := range extraCols {
		header = append(header, "gps_"+k)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csvio: writing points header: %w", err)
	}

	for _, p := range points {
		row := []string{
			strconv.Itoa(p.OriginalIndex),
			formatFloat(p.Lon),
			formatFloat(p.Lat),
			formatFloat(p.Bearing),
			formatFloat(p.MatchedLon),
			formatFloat(p.MatchedLat),
			strconv.FormatInt(p.WayID, 10),
			strconv.Itoa(p.SegmentIndex),
			strconv.Itoa(int(p.Direction)),
			strconv.FormatInt(p.Node1, 10),
			strconv.FormatInt(p.Node2, 10),
			p.Tags,
			formatFloat(p.MatchedBearing),
			formatFloat(p.AlongTrack),
			formatFloat(p.XTE),
			formatFloat(p.Weight),
			strconv.FormatBool(p.Removed),
		}
		extra := extraByIndex[p.OriginalIndex]
		for _, k := range extraCols {
			row = append(row, fmt.Sprint(extra[k]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csvio: writing point row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSegments writes the segments summary CSV.
func WriteSegments(w io.Writer, segs []summary.Segment) error {
	cw := csv.NewWriter(w)
	header := []string{
		"segment_order", "way_id", "segment_index", "direction",
		"node1", "node2", "node2_tags", "distance_m", "points_indices", "is_break_start",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csvio: writing segments header: %w", err)
	}

	for _, s := range segs {
		indices, err := json.Marshal(s.PointsIndices)
		if err != nil {
			return fmt.Errorf("csvio: encoding points_indices: %w", err)
		}
		row := []string{
			strconv.Itoa(s.SegmentOrder),
			strconv.FormatInt(s.WayID, 10),
			strconv.Itoa(s.SegmentIndex),
			strconv.Itoa(int(s.Direction)),
			strconv.FormatInt(s.Node1, 10),
			strconv.FormatInt(s.Node2, 10),
			s.Node2Tags,
			formatFloat(s.DistanceM),
			string(indices),
			strconv.FormatBool(s.IsBreakStart),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csvio: writing segment row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStats renders a match call's overall stats as JSON, matching
// WriteLinestrings' plain encoding/json choice — stats is a single record,
// not a table, so it has no CSV form.
func WriteStats(w io.Writer, stats summary.Stats) error {
	return json.NewEncoder(w).Encode(stats)
}

// WriteLinestrings renders the linestring helper as JSON, matching
// azybler-map_router's plain encoding/json choice over a third-party encoder.
func WriteLinestrings(w io.Writer, runs []reconstruct.Linestring) error {
	return json.NewEncoder(w).Encode(runs)
}

func unionKeys(byIndex map[int]map[string]any) []string {
	seen := make(map[string]bool)
	for _, m := range byIndex {
		for k := range m {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
