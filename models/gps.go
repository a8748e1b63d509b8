package models

import "time"

// TimestampLayout is the wire and storage format of GPS timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

type GPSFix struct {
	VehicleID string  `json:"vehicle_id"`
	Timestamp string  `json:"timestamp"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Time parses Timestamp with TimestampLayout.
func (f GPSFix) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, f.Timestamp)
}

// TollCharge is the outcome of pricing one highway segment.
type TollCharge struct {
	VehicleID        string    `json:"vehicle_id"`
	Start            GPSFix    `json:"start"`
	End              GPSFix    `json:"end"`
	Distance         float64   `json:"distance_km"`
	Speed            float64   `json:"speed_kmh"`
	DistancePrice    float64   `json:"distance_price"`
	OverspeedPrice   float64   `json:"overspeed_price"`
	VehicleTypePrice float64   `json:"vehicle_type_price"`
	PeakTimePrice    float64   `json:"peak_time_price"`
	TaxPrice         float64   `json:"tax_price"`
	RoadPrice        float64   `json:"road_price"`
	Total            float64   `json:"total"`
	Balance          float64   `json:"balance"`
	ChargedAt        time.Time `json:"charged_at"`
}

// Trip converts a charge into the history row written for the vehicle.
func (c TollCharge) Trip() TripRecord {
	return TripRecord{
		Timestamp:        c.End.Timestamp,
		StartLat:         c.Start.Latitude,
		StartLon:         c.Start.Longitude,
		EndLat:           c.End.Latitude,
		EndLon:           c.End.Longitude,
		Distance:         c.Distance,
		AvgSpeed:         c.Speed,
		DistancePrice:    c.DistancePrice,
		OverspeedPrice:   c.OverspeedPrice,
		TaxPrice:         c.TaxPrice,
		PeakTimePrice:    c.PeakTimePrice,
		VehicleTypePrice: c.VehicleTypePrice,
		TotalPrice:       c.Total,
	}
}
