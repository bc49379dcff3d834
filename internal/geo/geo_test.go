package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name             string
		a, b             LatLng
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "Raffles Place to Changi Airport",
			a:                LatLng{Lon: 103.8513, Lat: 1.2830},
			b:                LatLng{Lon: 103.9915, Lat: 1.3644},
			wantMeters:       18_023,
			tolerancePercent: 1,
		},
		{
			name:       "same point",
			a:          LatLng{Lon: 103.8198, Lat: 1.3521},
			b:          LatLng{Lon: 103.8198, Lat: 1.3521},
			wantMeters: 0,
		},
		{
			name:             "London to Paris",
			a:                LatLng{Lon: -0.1278, Lat: 51.5074},
			b:                LatLng{Lon: 2.3522, Lat: 48.8566},
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("Distance = %f, want 0", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Distance = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestBearing(t *testing.T) {
	// Due north.
	got := Bearing(LatLng{Lon: 0, Lat: 0}, LatLng{Lon: 0, Lat: 1})
	if math.Abs(got-0) > 0.01 {
		t.Errorf("Bearing due north = %f, want ~0", got)
	}

	// Due east along the equator.
	got = Bearing(LatLng{Lon: 0, Lat: 0}, LatLng{Lon: 1, Lat: 0})
	if math.Abs(got-90) > 0.01 {
		t.Errorf("Bearing due east = %f, want ~90", got)
	}
}

func TestNormalizeBearing(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {360, 0}, {-10, 350}, {370, 10}, {-370, 350},
	}
	for _, tt := range tests {
		if got := NormalizeBearing(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeBearing(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestAngularDifference(t *testing.T) {
	tests := []struct{ a, b, want float64 }{
		{10, 20, 10},
		{350, 10, 20},
		{0, 180, 180},
		{90, 270, 180},
	}
	for _, tt := range tests {
		if got := AngularDifference(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngularDifference(%f,%f) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestAlongAndCrossTrack(t *testing.T) {
	a := LatLng{Lon: 103.8000, Lat: 1.3000}
	b := LatLng{Lon: 103.8100, Lat: 1.3000} // ~1.1 km due east

	// Point directly on the segment, halfway.
	mid := LatLng{Lon: 103.8050, Lat: 1.3000}
	along, xte := AlongAndCrossTrack(a, b, mid)
	segLen := Distance(a, b)
	if math.Abs(along-segLen/2) > 1 {
		t.Errorf("along = %f, want ~%f", along, segLen/2)
	}
	if xte > 0.5 {
		t.Errorf("xte = %f, want ~0", xte)
	}

	// Point off to the side.
	off := LatLng{Lon: 103.8050, Lat: 1.3100} // ~1.1km north of mid
	_, xteOff := AlongAndCrossTrack(a, b, off)
	if xteOff < 900 || xteOff > 1300 {
		t.Errorf("xteOff = %f, want ~1100", xteOff)
	}

	// Point before the segment start: along < 0.
	before := LatLng{Lon: 103.7990, Lat: 1.3000}
	alongBefore, _ := AlongAndCrossTrack(a, b, before)
	if alongBefore >= 0 {
		t.Errorf("alongBefore = %f, want < 0", alongBefore)
	}
}

func TestProjectOnSegmentClamps(t *testing.T) {
	a := LatLng{Lon: 103.8000, Lat: 1.3000}
	b := LatLng{Lon: 103.8100, Lat: 1.3000}

	beforeStart := LatLng{Lon: 103.7990, Lat: 1.3000}
	p := ProjectOnSegment(a, b, beforeStart)
	if math.Abs(p.Lon-a.Lon) > 1e-9 || math.Abs(p.Lat-a.Lat) > 1e-9 {
		t.Errorf("ProjectOnSegment before start = %+v, want clamp to a=%+v", p, a)
	}

	pastEnd := LatLng{Lon: 103.8200, Lat: 1.3000}
	p = ProjectOnSegment(a, b, pastEnd)
	if math.Abs(p.Lon-b.Lon) > 1e-9 || math.Abs(p.Lat-b.Lat) > 1e-9 {
		t.Errorf("ProjectOnSegment past end = %+v, want clamp to b=%+v", p, b)
	}
}
