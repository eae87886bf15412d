package service

import (
	"testing"

	"fieldtrack/api/internal/model"
)

// A unit square around the origin, stored open (un-closed) the way
// boundaries arrive from the database
func squareBoundary() model.Boundary {
	return model.Boundary{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}
}

func TestCloseRing_AppendsFirstVertex(t *testing.T) {
	ring := CloseRing(squareBoundary())
	if len(ring) != 5 {
		t.Fatalf("expected 5 vertices, got %d", len(ring))
	}
	if ring[0] != ring[4] {
		t.Errorf("ring not closed: first=%v last=%v", ring[0], ring[4])
	}
}

func TestCloseRing_AlreadyClosed(t *testing.T) {
	b := append(squareBoundary(), model.Vertex{Latitude: 0, Longitude: 0})
	ring := CloseRing(b)
	if len(ring) != 5 {
		t.Fatalf("expected 5 vertices, got %d", len(ring))
	}
}

func TestCloseRing_Empty(t *testing.T) {
	if ring := CloseRing(nil); len(ring) != 0 {
		t.Fatalf("expected empty ring, got %d vertices", len(ring))
	}
}

func TestPointInPolygon_Inside(t *testing.T) {
	ring := CloseRing(squareBoundary())
	if !PointInPolygon(0.5, 0.5, ring) {
		t.Error("center of square should be inside")
	}
}

func TestPointInPolygon_Outside(t *testing.T) {
	ring := CloseRing(squareBoundary())
	cases := []struct{ lat, lon float64 }{
		{2, 0.5},
		{-1, 0.5},
		{0.5, 2},
		{0.5, -1},
	}
	for _, c := range cases {
		if PointInPolygon(c.lat, c.lon, ring) {
			t.Errorf("(%f, %f) should be outside", c.lat, c.lon)
		}
	}
}

func TestPointInPolygon_Concave(t *testing.T) {
	// U-shaped polygon: the notch between the arms is outside
	boundary := model.Boundary{
		{Latitude: 0, Longitude: 0},
		{Latitude: 3, Longitude: 0},
		{Latitude: 3, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 2},
		{Latitude: 3, Longitude: 2},
		{Latitude: 3, Longitude: 3},
		{Latitude: 0, Longitude: 3},
	}
	ring := CloseRing(boundary)

	if !PointInPolygon(0.5, 1.5, ring) {
		t.Error("base of U should be inside")
	}
	if PointInPolygon(2, 1.5, ring) {
		t.Error("notch of U should be outside")
	}
}

func TestPointInPolygon_DegenerateRing(t *testing.T) {
	// fewer than 3 distinct vertices must not panic and is never inside
	two := CloseRing(model.Boundary{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 1},
	})
	if PointInPolygon(0.5, 0.5, two) {
		t.Error("degenerate ring should never contain a point")
	}
	if PointInPolygon(0, 0, nil) {
		t.Error("nil ring should never contain a point")
	}
}

func TestPointInPolygon_BoundaryConsistent(t *testing.T) {
	// half-open convention: the lower-coordinate edges count as inside,
	// their opposite edges as outside, and repeated calls always agree
	ring := CloseRing(squareBoundary())

	onLowerEdge := PointInPolygon(0, 0.5, ring)
	onUpperEdge := PointInPolygon(1, 0.5, ring)
	for i := 0; i < 10; i++ {
		if PointInPolygon(0, 0.5, ring) != onLowerEdge {
			t.Fatal("boundary classification changed between calls")
		}
		if PointInPolygon(1, 0.5, ring) != onUpperEdge {
			t.Fatal("boundary classification changed between calls")
		}
	}
	if !onLowerEdge {
		t.Error("lower edge point should be classified inside")
	}
	if onUpperEdge {
		t.Error("upper edge point should be classified outside")
	}
}

func TestPointInPolygon_RealWorldCoordinates(t *testing.T) {
	// zone roughly around central Riyadh
	boundary := model.Boundary{
		{Latitude: 24.70, Longitude: 46.67},
		{Latitude: 24.70, Longitude: 46.70},
		{Latitude: 24.73, Longitude: 46.70},
		{Latitude: 24.73, Longitude: 46.67},
	}
	ring := CloseRing(boundary)

	if !PointInPolygon(24.715, 46.685, ring) {
		t.Error("point inside the zone should be inside")
	}
	if PointInPolygon(24.75, 46.685, ring) {
		t.Error("point north of the zone should be outside")
	}
}
