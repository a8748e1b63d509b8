package geohash

import (
	"sync"

	"github.com/dhconnelly/rtreego"
)

// spatialPoint wraps a point to satisfy the rtreego.Spatial interface
type spatialPoint struct {
	Point
}

// Bounds returns a tiny rectangle around the point.
func (p spatialPoint) Bounds() rtreego.Rect {
	return rtreego.Point{p.Lat, p.Lon}.ToRect(0.000001)
}

type rtreeIndex struct {
	mu     sync.RWMutex
	tree   *rtreego.Rtree
	radius float64
}

func newRTreeIndex(points []Point, radius float64) *rtreeIndex {
	idx := &rtreeIndex{
		tree:   rtreego.NewTree(2, 25, 50),
		radius: radius,
	}
	for _, p := range points {
		idx.tree.Insert(spatialPoint{p})
	}
	return idx
}

// Near searches the bounding square of the radius, then filters by distance.
func (r *rtreeIndex) Near(lat, lon float64) bool {
	q := Point{Lat: lat, Lon: lon}

	r.mu.RLock()
	candidates := r.tree.SearchIntersect(rtreego.Point{lat, lon}.ToRect(r.radius))
	r.mu.RUnlock()

	for _, c := range candidates {
		if distance(c.(spatialPoint).Point, q) <= r.radius {
			return true
		}
	}
	return false
}
