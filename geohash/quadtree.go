package geohash

import (
	"math"
	"sync"
)

// Bounds represents the boundaries of a region
type Bounds struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// QuadtreeNode represents a node in the quadtree
type QuadtreeNode struct {
	Bounds   Bounds
	Points   []Point
	Children [4]*QuadtreeNode
}

// Quadtree represents the quadtree structure
type Quadtree struct {
	root *QuadtreeNode
	mu   sync.RWMutex
}

// NewQuadtree initializes a new Quadtree with given bounds
func NewQuadtree(bounds Bounds) *Quadtree {
	return &Quadtree{
		root: &QuadtreeNode{Bounds: bounds},
	}
}

// Insert adds a point to the Quadtree
func (qt *Quadtree) Insert(point Point) {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	qt.root.insert(point)
}

// insert adds a point to a QuadtreeNode, creating children nodes if necessary
func (node *QuadtreeNode) insert(point Point) {
	if !node.contains(point) {
		return
	}
	if len(node.Points) < 4 && node.Children[0] == nil {
		node.Points = append(node.Points, point)
		return
	}
	if node.Children[0] == nil {
		node.subdivide()
	}
	for i := 0; i < 4; i++ {
		if node.Children[i].contains(point) {
			node.Children[i].insert(point)
			return
		}
	}
}

func (node *QuadtreeNode) contains(point Point) bool {
	return point.Lat >= node.Bounds.MinLat && point.Lat <= node.Bounds.MaxLat &&
		point.Lon >= node.Bounds.MinLon && point.Lon <= node.Bounds.MaxLon
}

// subdivide splits the node into four child nodes
func (node *QuadtreeNode) subdivide() {
	b := node.Bounds
	midLat := (b.MinLat + b.MaxLat) / 2
	midLon := (b.MinLon + b.MaxLon) / 2
	node.Children[0] = &QuadtreeNode{Bounds: Bounds{b.MinLat, b.MinLon, midLat, midLon}}
	node.Children[1] = &QuadtreeNode{Bounds: Bounds{midLat, b.MinLon, b.MaxLat, midLon}}
	node.Children[2] = &QuadtreeNode{Bounds: Bounds{b.MinLat, midLon, midLat, b.MaxLon}}
	node.Children[3] = &QuadtreeNode{Bounds: Bounds{midLat, midLon, b.MaxLat, b.MaxLon}}
}

// SearchNearby returns the points within radius degrees of center.
func (qt *Quadtree) SearchNearby(center Point, radius float64) []Point {
	qt.mu.RLock()
	defer qt.mu.RUnlock()
	return qt.root.searchNearby(center, radius)
}

func (node *QuadtreeNode) searchNearby(center Point, radius float64) []Point {
	if !node.intersectsCircle(center, radius) {
		return nil
	}
	var result []Point
	for _, point := range node.Points {
		if distance(point, center) <= radius {
			result = append(result, point)
		}
	}
	if node.Children[0] != nil {
		for i := 0; i < 4; i++ {
			result = append(result, node.Children[i].searchNearby(center, radius)...)
		}
	}
	return result
}

// intersectsCircle checks if a circle intersects with the node's bounds
func (node *QuadtreeNode) intersectsCircle(center Point, radius float64) bool {
	closestLat := math.Max(node.Bounds.MinLat, math.Min(center.Lat, node.Bounds.MaxLat))
	closestLon := math.Max(node.Bounds.MinLon, math.Min(center.Lon, node.Bounds.MaxLon))
	dLat := closestLat - center.Lat
	dLon := closestLon - center.Lon
	return (dLat*dLat + dLon*dLon) <= (radius * radius)
}

// distance is the planar distance in degrees. Corridor radii are tens of
// metres, where the flat approximation is good enough.
func distance(a, b Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

type quadtreeIndex struct {
	tree   *Quadtree
	radius float64
}

func newQuadtreeIndex(points []Point, radius float64) *quadtreeIndex {
	b := Bounds{MinLat: 90, MinLon: 180, MaxLat: -90, MaxLon: -180}
	for _, p := range points {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	qt := NewQuadtree(b)
	for _, p := range points {
		qt.Insert(p)
	}
	return &quadtreeIndex{tree: qt, radius: radius}
}

func (q *quadtreeIndex) Near(lat, lon float64) bool {
	return len(q.tree.SearchNearby(Point{Lat: lat, Lon: lon}, q.radius)) > 0
}
