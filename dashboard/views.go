package dashboard

import (
	"encoding/json"
	"fmt"
	"math"

	"gps-toll-system/models"
)

// Profile is the display form of a user row.
type Profile struct {
	Username        string `json:"username"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	PhoneNumber     string `json:"phone_number"`
	VehicleNumber   string `json:"vehicle_number"`
	VehicleRDNumber string `json:"vehicle_rd_number"`
	GPSID           string `json:"gps_id"`
	VehicleType     string `json:"vehicle_type"`
	Amount          string `json:"amount"`
}

func NewProfile(u models.UserRecord) Profile {
	return Profile{
		Username:        u.Username,
		Name:            u.Name,
		Address:         u.Address,
		PhoneNumber:     u.Phone,
		VehicleNumber:   u.VehicleNumber,
		VehicleRDNumber: u.VehicleRDNumber,
		GPSID:           u.GPSID,
		VehicleType:     u.VehicleType,
		Amount:          u.Amount,
	}
}

// Stats aggregates well-formed trip rows.
type Stats struct {
	Count         int
	TotalPrice    float64
	TotalDistance float64
}

func ComputeStats(trips []models.TripRecord) Stats {
	var s Stats
	for _, t := range trips {
		s.Count++
		s.TotalPrice += t.TotalPrice
		s.TotalDistance += t.Distance
	}
	return s
}

// AveragePrice is NaN when there are no trips.
func (s Stats) AveragePrice() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.TotalPrice / float64(s.Count)
}

// AverageDistance is NaN when there are no trips.
func (s Stats) AverageDistance() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.TotalDistance / float64(s.Count)
}

type statsJSON struct {
	Count           int      `json:"travel_count"`
	TotalPrice      float64  `json:"total_travel_price"`
	TotalDistance   float64  `json:"total_distance"`
	AveragePrice    *float64 `json:"avg_price"`
	AverageDistance *float64 `json:"avg_distance"`
}

// MarshalJSON writes undefined averages as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		Count:           s.Count,
		TotalPrice:      s.TotalPrice,
		TotalDistance:   s.TotalDistance,
		AveragePrice:    finite(s.AveragePrice()),
		AverageDistance: finite(s.AverageDistance()),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Chart holds the series plotted on the dashboard, oldest trip first.
type Chart struct {
	Labels      []string  `json:"labels"`
	Timestamps  []string  `json:"timestamps"`
	TotalPrices []float64 `json:"total_prices"`
}

func NewChart(trips []models.TripRecord) Chart {
	c := Chart{
		Labels:      make([]string, len(trips)),
		Timestamps:  make([]string, len(trips)),
		TotalPrices: make([]float64, len(trips)),
	}
	for i, t := range trips {
		c.Labels[i] = fmt.Sprintf("Travel %d", i+1)
		c.Timestamps[i] = t.Timestamp
		c.TotalPrices[i] = t.TotalPrice
	}
	return c
}

// Reverse returns a new slice with the newest trip first.
func Reverse(trips []models.TripRecord) []models.TripRecord {
	out := make([]models.TripRecord, len(trips))
	for i, t := range trips {
		out[len(trips)-1-i] = t
	}
	return out
}

// History is a vehicle's trip log as shown on the dashboard.
type History struct {
	VehicleID string              `json:"vehicle_id"`
	Entries   []models.TripRecord `json:"entries"` // newest first
	Stats     Stats               `json:"stats"`
	Chart     Chart               `json:"chart"`
}

// NewHistory builds the view from trips in file (chronological) order.
func NewHistory(vehicleID string, trips []models.TripRecord) History {
	return History{
		VehicleID: vehicleID,
		Entries:   Reverse(trips),
		Stats:     ComputeStats(trips),
		Chart:     NewChart(trips),
	}
}

// UserOverview is one entry of the admin dashboard.
type UserOverview struct {
	Profile Profile  `json:"profile"`
	History *History `json:"history,omitempty"`
	Error   string   `json:"error,omitempty"`
}
