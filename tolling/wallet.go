package tolling

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"gps-toll-system/models"
	"gps-toll-system/tables"
)

// Wallet reads and debits vehicle balances kept in the amount column of
// the user table.
type Wallet struct {
	rw     tables.ReadWriter
	name   string
	header bool
}

func NewWallet(rw tables.ReadWriter, usersTable string, header bool) *Wallet {
	return &Wallet{rw: rw, name: usersTable, header: header}
}

// Account returns the first well-formed user row registered for vehicleID.
func (w *Wallet) Account(ctx context.Context, vehicleID string) (models.UserRecord, error) {
	text, err := w.rw.Fetch(ctx, w.name)
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("load users: %w", err)
	}
	users, _ := tables.DecodeUsers(tables.Parse(text, w.header))
	for _, u := range users {
		if u.VehicleNumber == vehicleID {
			return u, nil
		}
	}
	return models.UserRecord{}, fmt.Errorf("vehicle %q: %w", vehicleID, ErrUnknownVehicle)
}

// Debit subtracts amount from the vehicle's balance and returns the new
// balance. The row is rewritten only when the balance covers the amount.
func (w *Wallet) Debit(ctx context.Context, vehicleID string, amount float64) (float64, error) {
	var (
		found   bool
		balance float64
		failure error
	)
	vehicleCol := tables.UserSchema.Index("vehicle_number")
	amountCol := tables.UserSchema.Index("amount")

	_, err := w.rw.UpdateRows(ctx, w.name, func(line int, fields []string) ([]string, bool) {
		if found || (w.header && line == 1) {
			return nil, false
		}
		if len(fields) != len(tables.UserSchema.Fields) || fields[vehicleCol] != vehicleID {
			return nil, false
		}
		found = true

		current, err := cast.ToFloat64E(strings.TrimSpace(fields[amountCol]))
		if err != nil {
			failure = fmt.Errorf("%w: amount %q: %v", tables.ErrMalformedRecord, fields[amountCol], err)
			return nil, false
		}
		if current < amount {
			balance = current
			failure = ErrInsufficientFunds
			return nil, false
		}

		balance = current - amount
		out := append([]string(nil), fields...)
		out[amountCol] = fmt.Sprintf("%.2f", balance)
		return out, true
	})
	if err != nil {
		return 0, fmt.Errorf("update wallet: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("vehicle %q: %w", vehicleID, ErrUnknownVehicle)
	}
	if failure != nil {
		return balance, failure
	}
	return balance, nil
}
