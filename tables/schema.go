package tables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"gps-toll-system/models"
)

// Schema names the columns of a fixed-width delimited record.
type Schema struct {
	Name   string
	Fields []string
	index  map[string]int
}

func NewSchema(name string, fields ...string) *Schema {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f] = i
	}
	return &Schema{Name: name, Fields: fields, index: idx}
}

var UserSchema = NewSchema("user",
	"username", "password", "vehicle_number", "vehicle_rd_number", "phone",
	"gps_id", "amount", "name", "address", "vehicle_type",
)

var TripSchema = NewSchema("trip",
	"timestamp", "start_lat", "start_lon", "end_lat", "end_lon", "distance",
	"avg_speed", "distance_price", "overspeed_price", "tax_price",
	"peak_time_price", "vehicle_type_price", "total_price",
)

// Index returns the column position of field. It panics on unknown names,
// which only happens on programmer error.
func (s *Schema) Index(field string) int {
	i, ok := s.index[field]
	if !ok {
		panic(fmt.Sprintf("tables: schema %s has no field %q", s.Name, field))
	}
	return i
}

// Record is a row validated against a Schema.
type Record struct {
	schema *Schema
	fields []string
}

// Decode checks the column count of line against the schema.
func (s *Schema) Decode(line Line) (Record, error) {
	if len(line.Fields) != len(s.Fields) {
		return Record{}, &RowError{
			Schema: s.Name,
			Line:   line.Number,
			Err:    fmt.Errorf("%w: expected %d columns, got %d", ErrMalformedRecord, len(s.Fields), len(line.Fields)),
		}
	}
	return Record{schema: s, fields: line.Fields}, nil
}

func (r Record) String(field string) string {
	return r.fields[r.schema.Index(field)]
}

func (r Record) Float(field string) (float64, error) {
	v, err := cast.ToFloat64E(strings.TrimSpace(r.String(field)))
	if err != nil {
		return 0, fmt.Errorf("%w: column %s: %v", ErrMalformedRecord, field, err)
	}
	return v, nil
}

// DecodeCredentials takes the first two columns of every row. Rows with
// fewer than two columns are reported and skipped.
func DecodeCredentials(lines []Line) ([]models.Credential, []*RowError) {
	var creds []models.Credential
	var skipped []*RowError
	for _, l := range lines {
		if len(l.Fields) < 2 {
			skipped = append(skipped, &RowError{
				Schema: "credential",
				Line:   l.Number,
				Err:    fmt.Errorf("%w: expected at least 2 columns, got %d", ErrMalformedRecord, len(l.Fields)),
			})
			continue
		}
		creds = append(creds, models.Credential{Username: l.Fields[0], Password: l.Fields[1]})
	}
	return creds, skipped
}

// DecodeUser maps one line onto a UserRecord.
func DecodeUser(line Line) (models.UserRecord, error) {
	r, err := UserSchema.Decode(line)
	if err != nil {
		return models.UserRecord{}, err
	}
	return models.UserRecord{
		Username:        r.String("username"),
		Password:        r.String("password"),
		VehicleNumber:   r.String("vehicle_number"),
		VehicleRDNumber: r.String("vehicle_rd_number"),
		Phone:           r.String("phone"),
		GPSID:           r.String("gps_id"),
		Amount:          r.String("amount"),
		Name:            r.String("name"),
		Address:         r.String("address"),
		VehicleType:     r.String("vehicle_type"),
	}, nil
}

// DecodeUsers returns the well-formed user rows in file order.
func DecodeUsers(lines []Line) ([]models.UserRecord, []*RowError) {
	var users []models.UserRecord
	var skipped []*RowError
	for _, l := range lines {
		u, err := DecodeUser(l)
		if err != nil {
			skipped = append(skipped, asRowError(err, UserSchema, l))
			continue
		}
		users = append(users, u)
	}
	return users, skipped
}

// DecodeTrip maps one line onto a TripRecord. Every column except the
// timestamp must parse as a number.
func DecodeTrip(line Line) (models.TripRecord, error) {
	r, err := TripSchema.Decode(line)
	if err != nil {
		return models.TripRecord{}, err
	}

	trip := models.TripRecord{Timestamp: r.String("timestamp")}
	targets := []struct {
		field string
		dst   *float64
	}{
		{"start_lat", &trip.StartLat},
		{"start_lon", &trip.StartLon},
		{"end_lat", &trip.EndLat},
		{"end_lon", &trip.EndLon},
		{"distance", &trip.Distance},
		{"avg_speed", &trip.AvgSpeed},
		{"distance_price", &trip.DistancePrice},
		{"overspeed_price", &trip.OverspeedPrice},
		{"tax_price", &trip.TaxPrice},
		{"peak_time_price", &trip.PeakTimePrice},
		{"vehicle_type_price", &trip.VehicleTypePrice},
		{"total_price", &trip.TotalPrice},
	}
	for _, t := range targets {
		v, err := r.Float(t.field)
		if err != nil {
			return models.TripRecord{}, &RowError{Schema: TripSchema.Name, Line: line.Number, Err: err}
		}
		*t.dst = v
	}
	return trip, nil
}

// DecodeTrips returns the well-formed trip rows in file order.
func DecodeTrips(lines []Line) ([]models.TripRecord, []*RowError) {
	var trips []models.TripRecord
	var skipped []*RowError
	for _, l := range lines {
		t, err := DecodeTrip(l)
		if err != nil {
			skipped = append(skipped, asRowError(err, TripSchema, l))
			continue
		}
		trips = append(trips, t)
	}
	return trips, skipped
}

// EncodeTrip is the inverse of DecodeTrip.
func EncodeTrip(t models.TripRecord) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		t.Timestamp,
		f(t.StartLat), f(t.StartLon),
		f(t.EndLat), f(t.EndLon),
		f(t.Distance), f(t.AvgSpeed),
		f(t.DistancePrice), f(t.OverspeedPrice), f(t.TaxPrice),
		f(t.PeakTimePrice), f(t.VehicleTypePrice), f(t.TotalPrice),
	}
}

func asRowError(err error, s *Schema, l Line) *RowError {
	if re, ok := err.(*RowError); ok {
		return re
	}
	return &RowError{Schema: s.Name, Line: l.Number, Err: err}
}
