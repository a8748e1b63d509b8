package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gps-toll-system/logger"
	"gps-toll-system/metrics"
	"gps-toll-system/models"
	"gps-toll-system/tables"
)

type memSource map[string]string

func (m memSource) Fetch(_ context.Context, name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", &tables.FetchError{Name: name, Status: 404}
	}
	if text == "!" {
		return "", &tables.FetchError{Name: name, Status: 500}
	}
	return text, nil
}

const usersCSV = "username,password,vehicleNumber,vehicleRdNumber,phone,gpsId,amount,name,address,vehicleType\n" +
	"alice,pw1,KA01,RD1,555,G1,100.00,Alice,Main St,car\n" +
	"bob,pw2,KA02,RD2,556,G2,50.00,Bob,Side St\n" +
	"carol,pw3,KA03,RD3,557,G3,75.00,Carol,High St,truck\n" +
	"alice,dup,KA99,RD9,000,G9,0.00,Other,Nowhere,bus\n"

const historyCSV = "2024-05-01 08:00:00,13.21,77.55,13.22,77.56,2,90,0.2,0,5,10,20,35.2\n" +
	"2024-05-01 09:00:00,13.21,77.55\n" +
	"2024-05-02 18:00:00,13.21,77.55,13.22,77.56,4,120,0.4,4,5,10,20,39.4\n"

func newService(src tables.Source) (*Service, *metrics.Metrics) {
	m := metrics.New()
	return NewService(src, "users.csv", true, logger.NewNop(), m), m
}

func TestProfile(t *testing.T) {
	svc, m := newService(memSource{"users.csv": usersCSV})

	p, err := svc.Profile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	want := Profile{
		Username: "alice", Name: "Alice", Address: "Main St", PhoneNumber: "555",
		VehicleNumber: "KA01", VehicleRDNumber: "RD1", GPSID: "G1", VehicleType: "car", Amount: "100.00",
	}
	if p != want {
		t.Errorf("Profile() = %+v, want %+v", p, want)
	}

	// bob's row has nine fields and is never rendered.
	if _, err := svc.Profile(context.Background(), "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Profile(bob) error = %v, want ErrNotFound", err)
	}
	if got := testutil.ToFloat64(m.MalformedRows.WithLabelValues("user")); got != 2 {
		t.Errorf("malformed user rows = %v, want 2", got)
	}
}

func TestHistory(t *testing.T) {
	svc, _ := newService(memSource{"KA01.csv": historyCSV})

	h, err := svc.History(context.Background(), "KA01")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if h.Stats.Count != 2 {
		t.Fatalf("count = %d, want 2", h.Stats.Count)
	}
	if math.Abs(h.Stats.TotalPrice-74.6) > 1e-9 || h.Stats.TotalDistance != 6 {
		t.Errorf("totals = %+v", h.Stats)
	}
	if math.Abs(h.Stats.AveragePrice()-37.3) > 1e-9 || h.Stats.AverageDistance() != 3 {
		t.Errorf("averages = %v, %v", h.Stats.AveragePrice(), h.Stats.AverageDistance())
	}
	if h.Entries[0].Timestamp != "2024-05-02 18:00:00" {
		t.Errorf("newest entry = %q", h.Entries[0].Timestamp)
	}
	wantLabels := []string{"Travel 1", "Travel 2"}
	for i, l := range wantLabels {
		if h.Chart.Labels[i] != l {
			t.Errorf("label %d = %q, want %q", i, h.Chart.Labels[i], l)
		}
	}
	if h.Chart.Timestamps[0] != "2024-05-01 08:00:00" || h.Chart.TotalPrices[1] != 39.4 {
		t.Errorf("chart = %+v", h.Chart)
	}
}

func TestHistoryMissingAndFailing(t *testing.T) {
	svc, m := newService(memSource{"KA02.csv": "!"})

	h, err := svc.History(context.Background(), "KA01")
	if err != nil {
		t.Fatalf("missing history error = %v", err)
	}
	if h.Stats.Count != 0 || !math.IsNaN(h.Stats.AveragePrice()) || len(h.Entries) != 0 {
		t.Errorf("empty history = %+v", h)
	}

	_, err = svc.History(context.Background(), "KA02")
	var fe *tables.FetchError
	if !errors.As(err, &fe) {
		t.Errorf("failing history error = %v, want FetchError", err)
	}
	if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues("history")); got != 1 {
		t.Errorf("history fetch failures = %v, want 1", got)
	}
}

func TestReverseKeepsStats(t *testing.T) {
	trips := []models.TripRecord{
		{Timestamp: "a", TotalPrice: 1, Distance: 10},
		{Timestamp: "b", TotalPrice: 2, Distance: 20},
		{Timestamp: "c", TotalPrice: 3, Distance: 30},
	}
	before := ComputeStats(trips)
	rev := Reverse(trips)

	if rev[0].Timestamp != "c" || trips[0].Timestamp != "a" {
		t.Errorf("Reverse() = %v, input mutated = %v", rev, trips[0].Timestamp != "a")
	}
	if after := ComputeStats(rev); after != before {
		t.Errorf("stats after reverse = %+v, before = %+v", after, before)
	}
}

func TestStatsJSON(t *testing.T) {
	data, err := json.Marshal(Stats{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"avg_price":null`) {
		t.Errorf("empty stats JSON = %s", data)
	}

	data, _ = json.Marshal(Stats{Count: 2, TotalPrice: 10, TotalDistance: 3})
	if !strings.Contains(string(data), `"avg_price":5`) || !strings.Contains(string(data), `"avg_distance":1.5`) {
		t.Errorf("stats JSON = %s", data)
	}
}

func TestAdminOverview(t *testing.T) {
	svc, _ := newService(memSource{
		"users.csv": usersCSV,
		"KA01.csv":  historyCSV,
		"KA03.csv":  "!",
	})

	list, err := svc.AdminOverview(context.Background())
	if err != nil {
		t.Fatalf("AdminOverview() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("entries = %d, want 3", len(list))
	}
	if list[0].History == nil || list[0].History.Stats.Count != 2 {
		t.Errorf("alice entry = %+v", list[0])
	}
	if list[1].Profile.Username != "carol" || list[1].History != nil || list[1].Error == "" {
		t.Errorf("carol entry = %+v", list[1])
	}
	if list[2].History == nil || list[2].History.Stats.Count != 0 {
		t.Errorf("duplicate alice entry = %+v", list[2])
	}
}
