// Package condition cleans a raw sequence of GPS fixes into the derived
// per-point quantities (velocity, bearing, rotation) the candidate search
// and HMM need. No directly analogous package exists in azybler-map_router
// (it routes point-to-point rather than conditioning a trace); this follows the
// windowed-derived-quantity idea in PhilipWaldman-rainbow-roads/parse and
// the rest of the package's explicit-error, small-pure-function style.
package condition

import (
	"errors"
	"math"
	"time"

	"mapmatch/internal/geo"
)

// ErrEmptyInput is returned when Clean is called with no points.
var ErrEmptyInput = errors.New("condition: empty input")

// RawPoint is one GPS fix as read from the tabular container.
type RawPoint struct {
	Index    int // original row index, preserved for the points summary
	Datetime time.Time
	Lon, Lat float64
	Extra    map[string]any // passthrough columns, emitted gps_-prefixed
}

// ConditionedPoint is a RawPoint after deduplication, velocity/distance
// filtering, and windowed derivation of bearing/rotation/distance.
type ConditionedPoint struct {
	OriginalIndex    int
	Datetime         time.Time
	Lon, Lat         float64
	Velocity         float64 // m/s; NaN if undefined
	Bearing          float64 // degrees; NaN if undefined (the bearing window's first and last points coincide)
	Rotation         float64 // degrees signed; NaN if undefined
	DistanceFromPrev float64 // meters, to the previous surviving point
	Extra            map[string]any
}

func (p ConditionedPoint) LatLng() geo.LatLng { return geo.LatLng{Lon: p.Lon, Lat: p.Lat} }

// Params configures Clean; zero values are not valid — use DefaultParams.
type Params struct {
	MinVelocity float64 // m/s, default 0
	MaxVelocity float64 // m/s, default 250
	MinDistance float64 // meters, default 30
	Window      int     // default 3
}

// DefaultParams returns spec-default conditioning parameters.
func DefaultParams() Params {
	return Params{MinVelocity: 0, MaxVelocity: 250, MinDistance: 30, Window: 3}
}

// Clean conditions raw points: drop consecutive exact duplicates, drop
// points whose velocity/distance-from-previous-surviving point violate the
// configured bounds, then derive bearing over a centered Window-point window
// (one-sided at the ends), rotation from consecutive bearings, and velocity
// and distance from the previous surviving point only (not windowed).
func Clean(points []RawPoint, p Params) ([]ConditionedPoint, error) {
	if len(points) == 0 {
		return nil, ErrEmptyInput
	}

	survivors := dedupeAndFilter(points, p)
	if len(survivors) == 0 {
		return nil, nil
	}

	return deriveWindowed(survivors, p.Window), nil
}

// dedupeAndFilter drops consecutive exact duplicates and velocity/distance
// outliers relative to the last surviving point.
func dedupeAndFilter(points []RawPoint, p Params) []RawPoint {
	var survivors []RawPoint

	for _, cur := range points {
		if len(survivors) > 0 {
			prev := survivors[len(survivors)-1]
			if cur.Lat == prev.Lat && cur.Lon == prev.Lon && cur.Datetime.Equal(prev.Datetime) {
				continue
			}

			dt := cur.Datetime.Sub(prev.Datetime).Seconds()
			dist := geo.Distance(geo.LatLng{Lon: prev.Lon, Lat: prev.Lat}, geo.LatLng{Lon: cur.Lon, Lat: cur.Lat})

			var velocity float64
			if dt > 0 {
				velocity = dist / dt
			} else {
				velocity = math.Inf(1)
			}

			if velocity < p.MinVelocity || velocity > p.MaxVelocity {
				continue
			}
			if dist < p.MinDistance {
				continue
			}
		}
		survivors = append(survivors, cur)
	}

	return survivors
}

// deriveWindowed computes bearing over a centered window of the given size
// (one-sided at the sequence ends) and rotation from consecutive bearings;
// velocity and distance come from the previous point only, not the window.
func deriveWindowed(points []RawPoint, window int) []ConditionedPoint {
	n := len(points)
	out := make([]ConditionedPoint, n)
	half := window / 2

	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > n-1 {
			hi = n - 1
		}

		out[i] = ConditionedPoint{
			OriginalIndex: points[i].Index,
			Datetime:      points[i].Datetime,
			Lon:           points[i].Lon,
			Lat:           points[i].Lat,
			Extra:         points[i].Extra,
			Bearing:       math.NaN(),
			Rotation:      math.NaN(),
			Velocity:      math.NaN(),
		}

		if i > 0 {
			prev := points[i-1]
			cur := points[i]
			out[i].DistanceFromPrev = geo.Distance(
				geo.LatLng{Lon: prev.Lon, Lat: prev.Lat},
				geo.LatLng{Lon: cur.Lon, Lat: cur.Lat},
			)
			dt := cur.Datetime.Sub(prev.Datetime).Seconds()
			if dt > 0 {
				out[i].Velocity = out[i].DistanceFromPrev / dt
			}
		}

		// Window-averaged bearing: from the window's first point to its last.
		if lo != hi {
			a := geo.LatLng{Lon: points[lo].Lon, Lat: points[lo].Lat}
			b := geo.LatLng{Lon: points[hi].Lon, Lat: points[hi].Lat}
			if a != b {
				out[i].Bearing = geo.Bearing(a, b)
			}
		}
	}

	// Rotation: signed bearing change from the previous point's bearing.
	for i := 1; i < n; i++ {
		if math.IsNaN(out[i].Bearing) || math.IsNaN(out[i-1].Bearing) {
			continue
		}
		delta := out[i].Bearing - out[i-1].Bearing
		delta = math.Mod(delta+540, 360) - 180 // normalize to [-180, 180)
		out[i].Rotation = delta
	}

	return out
}
