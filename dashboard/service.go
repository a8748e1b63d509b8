// Package dashboard looks up user records and builds the profile and trip
// history views shown to users and administrators.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"gps-toll-system/logger"
	"gps-toll-system/metrics"
	"gps-toll-system/models"
	"gps-toll-system/tables"
)

var ErrNotFound = errors.New("record not found")

type Service struct {
	src         tables.Source
	users       string
	usersHeader bool
	log         logger.ILogger
	metrics     *metrics.Metrics
}

func NewService(src tables.Source, users string, usersHeader bool, log logger.ILogger, m *metrics.Metrics) *Service {
	return &Service{
		src:         src,
		users:       users,
		usersHeader: usersHeader,
		log:         log,
		metrics:     m,
	}
}

// fetch counts failures by table kind ("users" or "history") rather than
// by name to keep metric cardinality bounded.
func (s *Service) fetch(ctx context.Context, name, kind string) (string, error) {
	text, err := s.src.Fetch(ctx, name)
	if err != nil && s.metrics != nil && !tables.IsNotFound(err) && !errors.Is(err, tables.ErrInvalidName) {
		s.metrics.FetchFailures.WithLabelValues(kind).Inc()
	}
	return text, err
}

func (s *Service) skipped(errs []*tables.RowError, table string) {
	for _, e := range errs {
		s.log.Warning("skipping malformed row", logger.String("table", table), logger.Error(e))
		if s.metrics != nil {
			s.metrics.MalformedRows.WithLabelValues(e.Schema).Inc()
		}
	}
}

// Users returns every well-formed row of the user table in file order.
func (s *Service) Users(ctx context.Context) ([]models.UserRecord, error) {
	text, err := s.fetch(ctx, s.users, "users")
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users, skipped := tables.DecodeUsers(tables.Parse(text, s.usersHeader))
	s.skipped(skipped, s.users)
	return users, nil
}

// Lookup returns the first well-formed user row for username.
func (s *Service) Lookup(ctx context.Context, username string) (models.UserRecord, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return models.UserRecord{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.UserRecord{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (s *Service) Profile(ctx context.Context, username string) (Profile, error) {
	u, err := s.Lookup(ctx, username)
	if err != nil {
		return Profile{}, err
	}
	return NewProfile(u), nil
}

// History loads the trip log of a vehicle. A vehicle without a history
// table has simply not travelled yet.
func (s *Service) History(ctx context.Context, vehicleID string) (History, error) {
	name := tables.HistoryName(vehicleID)
	text, err := s.fetch(ctx, name, "history")
	if err != nil {
		if tables.IsNotFound(err) {
			return NewHistory(vehicleID, nil), nil
		}
		return History{}, fmt.Errorf("load history: %w", err)
	}

	trips, skipped := tables.DecodeTrips(tables.Parse(text, false))
	s.skipped(skipped, name)
	return NewHistory(vehicleID, trips), nil
}

// AdminOverview lists every user with their history. A history that fails
// to load is reported on its entry instead of failing the whole overview.
func (s *Service) AdminOverview(ctx context.Context) ([]UserOverview, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserOverview, 0, len(users))
	for _, u := range users {
		entry := UserOverview{Profile: NewProfile(u)}
		h, err := s.History(ctx, u.VehicleNumber)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Error("failed to load history",
				logger.String("vehicle_id", u.VehicleNumber), logger.Error(err))
			entry.Error = err.Error()
		} else {
			entry.History = &h
		}
		out = append(out, entry)
	}
	return out, nil
}
