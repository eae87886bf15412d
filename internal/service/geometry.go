package service

import (
	"fieldtrack/api/internal/model"
)

// CloseRing returns the boundary with the first vertex appended when the ring
// is not already explicitly closed. Stored boundaries are open polylines, so
// this must run before any containment test.
func CloseRing(boundary model.Boundary) model.Boundary {
	if len(boundary) == 0 {
		return boundary
	}
	last := boundary[len(boundary)-1]
	if last == boundary[0] {
		return boundary
	}
	ring := make(model.Boundary, len(boundary)+1)
	copy(ring, boundary)
	ring[len(boundary)] = boundary[0]
	return ring
}

// PointInPolygon reports whether the point lies inside the closed ring, using
// ray casting over latitude/longitude treated as planar coordinates. Zones are
// small and local, so no geodesic correction is applied.
//
// Points exactly on the boundary follow the half-open convention of the ray
// test: edges on the lower-coordinate side of the polygon count as inside,
// their opposite edges as outside. The function is pure, so repeated calls
// with the same inputs always agree, which keeps violation open/close
// decisions deterministic at the edge. Degenerate rings with fewer than 3
// distinct vertices are never inside.
func PointInPolygon(lat, lon float64, ring model.Boundary) bool {
	if len(ring) < 4 { // closed ring: 3 vertices + repeated first
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		pi := ring[i]
		pj := ring[j]

		if ((pi.Longitude > lon) != (pj.Longitude > lon)) &&
			(lat < (pj.Latitude-pi.Latitude)*(lon-pi.Longitude)/(pj.Longitude-pi.Longitude)+pi.Latitude) {
			inside = !inside
		}
		j = i
	}

	return inside
}
