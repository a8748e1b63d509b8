// Package geohash decides whether a position lies on the tolled highway.
// The highway is a polyline of waypoints indexed with one of three
// techniques; all of them answer the same question.
package geohash

import (
	"fmt"
	"math"
)

type GeoIndexingTechnique string

const (
	GeohashingTechnique GeoIndexingTechnique = "geohashing"
	RTreeTechnique      GeoIndexingTechnique = "rtree"
	QuadtreeTechnique   GeoIndexingTechnique = "quadtree"
)

// KmPerDegree converts kilometres to degrees of arc.
const KmPerDegree = 111.32

// Point is a WGS84 position in degrees.
type Point struct {
	Lat, Lon float64
}

// Index reports whether a position is within the corridor radius.
type Index interface {
	Near(lat, lon float64) bool
}

// NewCorridor indexes the densified polyline through waypoints. A position
// is on the corridor when it lies within radiusKm of the polyline.
func NewCorridor(technique GeoIndexingTechnique, waypoints []Point, radiusKm float64) (Index, error) {
	if radiusKm <= 0 {
		return nil, fmt.Errorf("corridor radius must be positive, got %v", radiusKm)
	}
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("corridor needs at least one waypoint")
	}
	radius := radiusKm / KmPerDegree
	points := Densify(waypoints, radius/2)

	switch technique {
	case GeohashingTechnique, "":
		return newGeohashIndex(points, radius), nil
	case RTreeTechnique:
		return newRTreeIndex(points, radius), nil
	case QuadtreeTechnique:
		return newQuadtreeIndex(points, radius), nil
	default:
		return nil, fmt.Errorf("unsupported geo-indexing technique %q", technique)
	}
}

// Densify inserts intermediate points so that consecutive points are at
// most step degrees apart.
func Densify(waypoints []Point, step float64) []Point {
	if len(waypoints) < 2 || step <= 0 {
		return append([]Point(nil), waypoints...)
	}
	out := []Point{waypoints[0]}
	for i := 1; i < len(waypoints); i++ {
		a, b := waypoints[i-1], waypoints[i]
		n := int(math.Ceil(distance(a, b) / step))
		for k := 1; k <= n; k++ {
			t := float64(k) / float64(n)
			out = append(out, Point{
				Lat: a.Lat + (b.Lat-a.Lat)*t,
				Lon: a.Lon + (b.Lon-a.Lon)*t,
			})
		}
	}
	return out
}

// allowAll is the corridor used when no highway is configured.
type allowAll struct{}

func (allowAll) Near(float64, float64) bool { return true }

// Everywhere returns an Index that accepts every position.
func Everywhere() Index {
	return allowAll{}
}
