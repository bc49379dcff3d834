package summary

import (
	"testing"
	"time"

	"mapmatch/internal/candidate"
	"mapmatch/internal/condition"
	"mapmatch/internal/reconstruct"
	"mapmatch/internal/wayseg"
)

func TestPointsMarksRemovedAndMatched(t *testing.T) {
	obs := []condition.ConditionedPoint{
		{OriginalIndex: 0, Lon: 1, Lat: 1},
		{OriginalIndex: 1, Lon: 2, Lat: 2},
		{OriginalIndex: 2, Lon: 3, Lat: 3},
	}
	chosen := []candidate.Candidate{
		{Segment: wayseg.Segment{WayID: 1, Index: 0, Dir: wayseg.Forward}, AlongTrack: 5, XTE: 2},
		{Segment: wayseg.Segment{WayID: 1, Index: 1, Dir: wayseg.Forward}, AlongTrack: 6, XTE: 3},
	}
	originalIndex := []int{0, 2}
	removed := []int{1}

	pts := Points(obs, chosen, originalIndex, removed)
	if len(pts) != 3 {
		t.Fatalf("len(pts) = %d, want 3", len(pts))
	}
	if !pts[1].Removed {
		t.Errorf("point 1 should be marked removed")
	}
	if pts[0].WayID != 1 || pts[2].WayID != 1 {
		t.Errorf("matched points missing way id: %+v", pts)
	}
	if pts[1].WayID != 0 {
		t.Errorf("removed point should have no match, got WayID=%d", pts[1].WayID)
	}
}

func TestSegmentsAndStats(t *testing.T) {
	route := &reconstruct.StitchedRoute{
		Segments: []wayseg.Segment{
			{WayID: 1, Index: 0, Node1: 1, Node2: 2, Dir: wayseg.Forward, Distance: 100},
			{WayID: 1, Index: 1, Node1: 2, Node2: 3, Dir: wayseg.Forward, Distance: 120},
		},
		PointsIndices: [][]int{{0}, {1, 2}},
		Breaks:        []int{0},
	}

	node2Tags := map[int64]string{2: "", 3: `{"highway":"traffic_signals"}`}
	segs := Segments(route, node2Tags)
	if len(segs) != 2 {
		t.Fatalf("len(segs) = %d, want 2", len(segs))
	}
	if !segs[1].IsBreakStart {
		t.Errorf("segment 1 should be marked as a break start")
	}
	if segs[1].Node2Tags != `{"highway":"traffic_signals"}` {
		t.Errorf("Node2Tags = %q, want traffic_signals tag", segs[1].Node2Tags)
	}
	if len(segs[1].PointsIndices) != 2 || segs[1].PointsIndices[0] != 1 || segs[1].PointsIndices[1] != 2 {
		t.Errorf("PointsIndices = %v, want [1 2]", segs[1].PointsIndices)
	}

	baseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conditioned := []condition.ConditionedPoint{
		{OriginalIndex: 0, Lon: 1, Lat: 1, Datetime: baseTime},
		{OriginalIndex: 1, Lon: 2, Lat: 2, Datetime: baseTime.Add(10 * time.Second), DistanceFromPrev: 110},
		{OriginalIndex: 2, Lon: 3, Lat: 3, Datetime: baseTime.Add(20 * time.Second), DistanceFromPrev: 110},
		{OriginalIndex: 3, Lon: 4, Lat: 4, Datetime: baseTime.Add(30 * time.Second), DistanceFromPrev: 110},
	}
	chosen := []candidate.Candidate{
		{XTE: 2}, {XTE: 4}, {XTE: 6},
	}

	stats := BuildStats(5, conditioned, chosen, route, []int{3})
	if stats.TotalDistanceM != 220 {
		t.Errorf("TotalDistanceM = %f, want 220", stats.TotalDistanceM)
	}
	if stats.NumMatchedPoints != 3 {
		t.Errorf("NumMatchedPoints = %d, want 3", stats.NumMatchedPoints)
	}
	if stats.NumRemovedPoints != 1 {
		t.Errorf("NumRemovedPoints = %d, want 1", stats.NumRemovedPoints)
	}
	if stats.MatchedProportion != 0.75 {
		t.Errorf("MatchedProportion = %f, want 0.75", stats.MatchedProportion)
	}
	if stats.GPSDistanceM != 330 {
		t.Errorf("GPSDistanceM = %f, want 330", stats.GPSDistanceM)
	}
	if stats.MeanXTE != 4 {
		t.Errorf("MeanXTE = %f, want 4", stats.MeanXTE)
	}
	if stats.TripDurationMinutes != 0.5 {
		t.Errorf("TripDurationMinutes = %f, want 0.5", stats.TripDurationMinutes)
	}
}
