package geohash

import (
	"math"
	"testing"
)

// A straight stretch heading north-east near Doddaballapur.
var highway = []Point{
	{Lat: 13.2000, Lon: 77.5400},
	{Lat: 13.2100, Lon: 77.5500},
	{Lat: 13.2200, Lon: 77.5600},
}

func TestDensify(t *testing.T) {
	step := 0.001
	pts := Densify(highway, step)
	if pts[0] != highway[0] || pts[len(pts)-1] != highway[len(highway)-1] {
		t.Fatalf("endpoints not kept: %v ... %v", pts[0], pts[len(pts)-1])
	}
	for i := 1; i < len(pts); i++ {
		if d := distance(pts[i-1], pts[i]); d > step+1e-12 {
			t.Fatalf("gap %d = %v, want <= %v", i, d, step)
		}
	}
	if got := Densify(highway[:1], step); len(got) != 1 {
		t.Errorf("single waypoint densified to %d points", len(got))
	}
}

func TestCorridorTechniques(t *testing.T) {
	radiusKm := 0.05
	offset := func(p Point, km float64) Point {
		// Move perpendicular to the road (north-west).
		d := km / KmPerDegree / math.Sqrt2
		return Point{Lat: p.Lat + d, Lon: p.Lon - d}
	}
	mid := Point{Lat: 13.2050, Lon: 77.5450}

	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"waypoint", highway[1], true},
		{"between waypoints", mid, true},
		{"inside radius", offset(mid, 0.03), true},
		{"outside radius", offset(mid, 0.2), false},
		{"far away", Point{Lat: 12.97, Lon: 77.59}, false},
		{"beyond the end", Point{Lat: 13.2300, Lon: 77.5700}, false},
	}

	for _, tech := range []GeoIndexingTechnique{GeohashingTechnique, RTreeTechnique, QuadtreeTechnique} {
		idx, err := NewCorridor(tech, highway, radiusKm)
		if err != nil {
			t.Fatalf("NewCorridor(%s) error = %v", tech, err)
		}
		for _, c := range cases {
			if got := idx.Near(c.p.Lat, c.p.Lon); got != c.want {
				t.Errorf("%s: Near(%s) = %v, want %v", tech, c.name, got, c.want)
			}
		}
	}
}

func TestNewCorridorErrors(t *testing.T) {
	if _, err := NewCorridor("kdtree", highway, 0.05); err == nil {
		t.Error("unknown technique accepted")
	}
	if _, err := NewCorridor(GeohashingTechnique, highway, 0); err == nil {
		t.Error("zero radius accepted")
	}
	if _, err := NewCorridor(GeohashingTechnique, nil, 0.05); err == nil {
		t.Error("empty polyline accepted")
	}
}

func TestPrecisionFor(t *testing.T) {
	for _, radius := range []float64{0.0001, 0.00045, 0.01, 1} {
		p := precisionFor(radius)
		h, w := cellSize(p)
		if p > 1 && math.Min(h, w) < radius {
			t.Errorf("precisionFor(%v) = %d with cell %vx%v", radius, p, h, w)
		}
	}
	if len(Encode(13.2, 77.5, 7)) != 7 || len(GetNeighbors(Encode(13.2, 77.5, 7))) != 8 {
		t.Error("unexpected geohash encoding")
	}
}
