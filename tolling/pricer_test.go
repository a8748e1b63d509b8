package tolling

import (
	"math"
	"testing"

	"gps-toll-system/config"
	"gps-toll-system/models"
)

func testTollingConfig() config.TollingConfig {
	return config.TollingConfig{
		QueueSize:       8,
		SpeedLimit:      100,
		PricePerKm:      0.1,
		OverspeedPerKmh: 0.2,
		PeakPrice:       10,
		TaxPrice:        5,
		RoadPrice:       10,
		VehicleTypePrice: map[string]float64{
			"car": 20, "bus": 30, "truck": 40, "other": 10,
		},
		DefaultTypePrice: 10,
	}
}

func fix(ts string, lat, lon float64) models.GPSFix {
	return models.GPSFix{VehicleID: "KA01", Timestamp: ts, Latitude: lat, Longitude: lon}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"corridor segment", 13.1986, 77.5585, 13.2290, 77.5491, 3.514168},
		{"one degree of latitude at the equator", 0, 0, 1, 0, 110.574389},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2); math.Abs(d-tt.want) > 0.001 {
				t.Errorf("Distance() = %.6f km, want %.6f", d, tt.want)
			}
		})
	}

	if d := Distance(13.2, 77.5, 13.2, 77.5); d != 0 {
		t.Errorf("same point = %v km", d)
	}
}

func TestQuote(t *testing.T) {
	p := NewPricer(testTollingConfig())
	start := fix("2024-05-01 08:00:00", 13.2000, 77.5400)
	dist := Distance(13.2000, 77.5400, 13.2100, 77.5500)

	tests := []struct {
		name          string
		end           models.GPSFix
		vehicleType   string
		wantSpeed     float64
		wantOverspeed float64
		wantType      float64
		wantPeak      float64
	}{
		{
			name:        "peak hour car under the limit",
			end:         fix("2024-05-01 08:01:00", 13.2100, 77.5500),
			vehicleType: "car",
			wantSpeed:   dist * 60,
			wantType:    20,
			wantPeak:    10,
		},
		{
			name:          "overspeeding truck",
			end:           fix("2024-05-01 08:00:30", 13.2100, 77.5500),
			vehicleType:   "TRUCK",
			wantSpeed:     dist * 120,
			wantOverspeed: (dist*120 - 100) * 0.2,
			wantType:      40,
			wantPeak:      10,
		},
		{
			name:        "off peak unknown type",
			end:         fix("2024-05-01 12:00:00", 13.2100, 77.5500),
			vehicleType: "tractor",
			wantSpeed:   dist / 4,
			wantType:    10,
		},
		{
			name:        "no elapsed time means zero speed",
			end:         fix("2024-05-01 08:00:00", 13.2100, 77.5500),
			vehicleType: "bus",
			wantSpeed:   0,
			wantType:    30,
			wantPeak:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := p.Quote(start, tt.end, tt.vehicleType)
			if err != nil {
				t.Fatalf("Quote() error = %v", err)
			}
			if !almostEqual(c.Distance, dist) || !almostEqual(c.DistancePrice, dist*0.1) {
				t.Errorf("distance = %v price = %v", c.Distance, c.DistancePrice)
			}
			if !almostEqual(c.Speed, tt.wantSpeed) {
				t.Errorf("speed = %v, want %v", c.Speed, tt.wantSpeed)
			}
			if !almostEqual(c.OverspeedPrice, tt.wantOverspeed) {
				t.Errorf("overspeed = %v, want %v", c.OverspeedPrice, tt.wantOverspeed)
			}
			if c.VehicleTypePrice != tt.wantType || c.PeakTimePrice != tt.wantPeak {
				t.Errorf("type = %v peak = %v", c.VehicleTypePrice, c.PeakTimePrice)
			}
			want := dist*0.1 + tt.wantOverspeed + tt.wantType + tt.wantPeak + 5 + 10
			if !almostEqual(c.Total, want) {
				t.Errorf("total = %v, want %v", c.Total, want)
			}
		})
	}
}

func TestPeakHours(t *testing.T) {
	for h := 0; h < 24; h++ {
		want := (h >= 7 && h <= 9) || (h >= 17 && h <= 19)
		if got := isPeakHour(h); got != want {
			t.Errorf("isPeakHour(%d) = %v", h, got)
		}
	}
}
