package models

// TripRecord is one row of a vehicle history table.
type TripRecord struct {
	Timestamp        string  `json:"timestamp"`
	StartLat         float64 `json:"start_lat"`
	StartLon         float64 `json:"start_lon"`
	EndLat           float64 `json:"end_lat"`
	EndLon           float64 `json:"end_lon"`
	Distance         float64 `json:"highway_distance"`
	AvgSpeed         float64 `json:"avg_speed"`
	DistancePrice    float64 `json:"price_by_distance"`
	OverspeedPrice   float64 `json:"price_for_overspeed"`
	TaxPrice         float64 `json:"tax_price"`
	PeakTimePrice    float64 `json:"price_for_peak_time"`
	VehicleTypePrice float64 `json:"price_by_vehicle_type"`
	TotalPrice       float64 `json:"total_price"`
}
