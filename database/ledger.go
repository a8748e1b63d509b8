package database

import (
	"context"
	"database/sql"
	"fmt"

	"gps-toll-system/models"
)

// Ledger is an append-only audit log of GPS fixes and toll charges. The
// user table stays authoritative for balances.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) RecordFix(ctx context.Context, fix models.GPSFix) error {
	ts, err := fix.Time()
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO gps_fixes (vehicle_id, recorded_at, latitude, longitude) VALUES ($1, $2, $3, $4)`,
		fix.VehicleID, ts, fix.Latitude, fix.Longitude,
	)
	if err != nil {
		return fmt.Errorf("insert gps fix: %w", err)
	}
	return nil
}

func (l *Ledger) RecordCharge(ctx context.Context, c models.TollCharge) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO toll_charges (vehicle_id, start_time, end_time, start_latitude, start_longitude,
            end_latitude, end_longitude, distance_km, speed_kmh, distance_price, overspeed_price,
            vehicle_type_price, peak_time_price, tax_price, road_price, total, balance, charged_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.VehicleID, c.Start.Timestamp, c.End.Timestamp,
		c.Start.Latitude, c.Start.Longitude, c.End.Latitude, c.End.Longitude,
		c.Distance, c.Speed, c.DistancePrice, c.OverspeedPrice,
		c.VehicleTypePrice, c.PeakTimePrice, c.TaxPrice, c.RoadPrice,
		c.Total, c.Balance, c.ChargedAt,
	)
	if err != nil {
		return fmt.Errorf("insert toll charge: %w", err)
	}
	return nil
}

// Charges returns the most recent charges of a vehicle, newest first.
func (l *Ledger) Charges(ctx context.Context, vehicleID string, limit int) ([]models.TollCharge, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT vehicle_id, start_time, end_time, distance_km, speed_kmh, total, balance, charged_at
         FROM toll_charges WHERE vehicle_id=$1 ORDER BY charged_at DESC LIMIT $2`,
		vehicleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query toll charges: %w", err)
	}
	defer rows.Close()

	var out []models.TollCharge
	for rows.Next() {
		var c models.TollCharge
		if err := rows.Scan(
			&c.VehicleID,
			&c.Start.Timestamp,
			&c.End.Timestamp,
			&c.Distance,
			&c.Speed,
			&c.Total,
			&c.Balance,
			&c.ChargedAt,
		); err != nil {
			return nil, err
		}
		c.Start.VehicleID = c.VehicleID
		c.End.VehicleID = c.VehicleID
		out = append(out, c)
	}
	return out, rows.Err()
}
