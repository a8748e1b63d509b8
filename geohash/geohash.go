package geohash

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

// Encode coordinates into a geohash with specified precision.
func Encode(lat, lon float64, precision uint) string {
	return geohash.EncodeWithPrecision(lat, lon, precision)
}

// GetNeighbors returns the geohashes of neighboring cells.
func GetNeighbors(hash string) []string {
	return geohash.Neighbors(hash)
}

// cellSize returns the height and width in degrees of a geohash cell.
func cellSize(precision uint) (lat, lon float64) {
	bits := 5 * precision
	latBits := bits / 2
	lonBits := bits - latBits
	return 180 / math.Pow(2, float64(latBits)), 360 / math.Pow(2, float64(lonBits))
}

// precisionFor returns the finest precision whose cells are at least
// radius degrees on each side, so that a cell and its neighbors cover
// every point within radius of the cell.
func precisionFor(radius float64) uint {
	p := uint(1)
	for next := uint(2); next <= 12; next++ {
		h, w := cellSize(next)
		if math.Min(h, w) < radius {
			break
		}
		p = next
	}
	return p
}

// geohashIndex buckets corridor points by cell. Each point is stored in its
// own cell and in the eight surrounding ones, so a query only inspects the
// bucket of its own cell.
type geohashIndex struct {
	precision uint
	radius    float64
	cells     map[string][]Point
}

func newGeohashIndex(points []Point, radius float64) *geohashIndex {
	idx := &geohashIndex{
		precision: precisionFor(radius),
		radius:    radius,
		cells:     make(map[string][]Point),
	}
	for _, p := range points {
		hash := Encode(p.Lat, p.Lon, idx.precision)
		idx.cells[hash] = append(idx.cells[hash], p)
		for _, n := range GetNeighbors(hash) {
			idx.cells[n] = append(idx.cells[n], p)
		}
	}
	return idx
}

func (g *geohashIndex) Near(lat, lon float64) bool {
	q := Point{Lat: lat, Lon: lon}
	for _, p := range g.cells[Encode(lat, lon, g.precision)] {
		if distance(p, q) <= g.radius {
			return true
		}
	}
	return false
}
