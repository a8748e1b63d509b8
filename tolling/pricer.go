package tolling

import (
	"fmt"
	"strings"

	"github.com/tidwall/geodesic"

	"gps-toll-system/config"
	"gps-toll-system/models"
)

// Distance returns the WGS84 geodesic distance in kilometres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	var metres, azi1, azi2 float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &metres, &azi1, &azi2)
	return metres / 1000
}

// Pricer turns two consecutive highway fixes into a priced charge.
type Pricer struct {
	cfg config.TollingConfig
}

func NewPricer(cfg config.TollingConfig) *Pricer {
	return &Pricer{cfg: cfg}
}

func isPeakHour(h int) bool {
	return (h >= 7 && h <= 9) || (h >= 17 && h <= 19)
}

func (p *Pricer) vehicleTypePrice(vehicleType string) float64 {
	if price, ok := p.cfg.VehicleTypePrice[strings.ToLower(strings.TrimSpace(vehicleType))]; ok {
		return price
	}
	return p.cfg.DefaultTypePrice
}

// Quote prices the segment from start to end. Peak time is judged by the
// hour of the end fix.
func (p *Pricer) Quote(start, end models.GPSFix, vehicleType string) (models.TollCharge, error) {
	t0, err := start.Time()
	if err != nil {
		return models.TollCharge{}, fmt.Errorf("%w: start timestamp: %v", ErrInvalidFix, err)
	}
	t1, err := end.Time()
	if err != nil {
		return models.TollCharge{}, fmt.Errorf("%w: end timestamp: %v", ErrInvalidFix, err)
	}

	c := models.TollCharge{
		VehicleID: end.VehicleID,
		Start:     start,
		End:       end,
		Distance:  Distance(start.Latitude, start.Longitude, end.Latitude, end.Longitude),
	}

	if hours := t1.Sub(t0).Hours(); hours > 0 {
		c.Speed = c.Distance / hours
	}

	c.DistancePrice = c.Distance * p.cfg.PricePerKm
	if c.Speed > p.cfg.SpeedLimit {
		c.OverspeedPrice = (c.Speed - p.cfg.SpeedLimit) * p.cfg.OverspeedPerKmh
	}
	c.VehicleTypePrice = p.vehicleTypePrice(vehicleType)
	if isPeakHour(t1.Hour()) {
		c.PeakTimePrice = p.cfg.PeakPrice
	}
	c.TaxPrice = p.cfg.TaxPrice
	c.RoadPrice = p.cfg.RoadPrice

	c.Total = c.DistancePrice + c.OverspeedPrice + c.VehicleTypePrice +
		c.PeakTimePrice + c.TaxPrice + c.RoadPrice
	return c, nil
}
