// Package tolling prices highway travel from GPS fixes and charges it to
// the vehicle's wallet.
package tolling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"gps-toll-system/geohash"
	"gps-toll-system/logger"
	"gps-toll-system/metrics"
	"gps-toll-system/models"
	"gps-toll-system/tables"
)

var (
	ErrInvalidFix        = errors.New("invalid gps fix")
	ErrQueueFull         = errors.New("gps queue is full")
	ErrClosed            = errors.New("gps processor is closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownVehicle    = errors.New("unknown vehicle")

	// Outcomes of Process that charge nothing.
	ErrFirstFix    = errors.New("first fix of vehicle")
	ErrOffCorridor = errors.New("segment is not on the highway")
)

// Ledger records fixes and charges for auditing.
type Ledger interface {
	RecordFix(ctx context.Context, fix models.GPSFix) error
	RecordCharge(ctx context.Context, charge models.TollCharge) error
}

type nopLedger struct{}

func (nopLedger) RecordFix(context.Context, models.GPSFix) error         { return nil }
func (nopLedger) RecordCharge(context.Context, models.TollCharge) error { return nil }

type Options struct {
	QueueSize int
	Tracker   Tracker
	Corridor  geohash.Index
	Pricer    *Pricer
	Wallet    *Wallet
	History   tables.Writer
	Ledger    Ledger // optional
	Logger    logger.ILogger
	Metrics   *metrics.Metrics // optional
}

// Processor queues fixes and handles them on a single worker goroutine, so
// wallet updates for a vehicle happen in arrival order.
type Processor struct {
	opts  Options
	queue chan models.GPSFix
	done  chan struct{}
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
}

func NewProcessor(opts Options) *Processor {
	if opts.Ledger == nil {
		opts.Ledger = nopLedger{}
	}
	if opts.Corridor == nil {
		opts.Corridor = geohash.Everywhere()
	}
	return &Processor{
		opts:  opts,
		queue: make(chan models.GPSFix, opts.QueueSize),
		done:  make(chan struct{}),
		now:   time.Now,
	}
}

// Validate checks the fields of a fix received from a device.
func Validate(fix models.GPSFix) error {
	if fix.VehicleID == "" {
		return fmt.Errorf("%w: missing vehicle_id", ErrInvalidFix)
	}
	if _, err := fix.Time(); err != nil {
		return fmt.Errorf("%w: timestamp must look like %s", ErrInvalidFix, models.TimestampLayout)
	}
	if math.IsNaN(fix.Latitude) || fix.Latitude < -90 || fix.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidFix)
	}
	if math.IsNaN(fix.Longitude) || fix.Longitude < -180 || fix.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidFix)
	}
	return nil
}

// Submit validates fix and queues it without blocking.
func (p *Processor) Submit(fix models.GPSFix) error {
	if err := Validate(fix); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- fix:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the worker until Close.
func (p *Processor) Start() {
	go p.run()
}

func (p *Processor) run() {
	defer close(p.done)
	for fix := range p.queue {
		p.handle(fix)
	}
}

// Close stops accepting fixes and waits for the queued ones to finish.
func (p *Processor) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain gps queue: %w", ctx.Err())
	}
}

func (p *Processor) handle(fix models.GPSFix) {
	log := p.opts.Logger.With(logger.String("vehicle_id", fix.VehicleID), logger.String("timestamp", fix.Timestamp))
	// Queued work is finished even during shutdown.
	ctx := context.Background()

	charge, err := p.Process(ctx, fix)
	result := "charged"
	switch {
	case err == nil:
		log.Info("toll charged",
			logger.Float64("total", charge.Total),
			logger.Float64("distance_km", charge.Distance),
			logger.Float64("balance", charge.Balance),
		)
		if p.opts.Metrics != nil {
			p.opts.Metrics.TollCharged.Inc()
			p.opts.Metrics.TollAmount.Add(charge.Total)
		}
	case errors.Is(err, ErrFirstFix):
		result = "first_fix"
		log.Debug("first fix recorded")
	case errors.Is(err, ErrOffCorridor):
		result = "off_corridor"
		log.Warning("vehicle is not on the highway, discarding fix")
	case errors.Is(err, ErrInsufficientFunds):
		result = "insufficient_funds"
		log.Warning("insufficient funds", logger.Float64("balance", charge.Balance), logger.Float64("total", charge.Total))
	case errors.Is(err, ErrUnknownVehicle):
		result = "unknown_vehicle"
		log.Error("vehicle has no wallet", logger.Error(err))
	default:
		result = "error"
		log.Error("failed to process gps fix", logger.Error(err))
	}
	if p.opts.Metrics != nil {
		p.opts.Metrics.GPSFixes.WithLabelValues(result).Inc()
	}
}

// Process handles one fix synchronously. It returns ErrFirstFix or
// ErrOffCorridor when there is nothing to charge. On ErrInsufficientFunds
// the returned charge carries the quote and the unchanged balance.
func (p *Processor) Process(ctx context.Context, fix models.GPSFix) (models.TollCharge, error) {
	if err := p.opts.Ledger.RecordFix(ctx, fix); err != nil {
		p.opts.Logger.Warning("failed to record gps fix", logger.String("vehicle_id", fix.VehicleID), logger.Error(err))
	}

	prev, ok, err := p.opts.Tracker.Swap(ctx, fix)
	if err != nil {
		return models.TollCharge{}, err
	}
	if !ok {
		return models.TollCharge{}, ErrFirstFix
	}

	corridor := p.opts.Corridor
	if !corridor.Near(prev.Latitude, prev.Longitude) || !corridor.Near(fix.Latitude, fix.Longitude) {
		return models.TollCharge{}, ErrOffCorridor
	}

	account, err := p.opts.Wallet.Account(ctx, fix.VehicleID)
	if err != nil {
		return models.TollCharge{}, err
	}

	charge, err := p.opts.Pricer.Quote(prev, fix, account.VehicleType)
	if err != nil {
		return models.TollCharge{}, err
	}
	charge.ChargedAt = p.now()

	balance, err := p.opts.Wallet.Debit(ctx, fix.VehicleID, charge.Total)
	charge.Balance = balance
	if err != nil {
		return charge, err
	}

	if err := p.opts.History.AppendRow(ctx, tables.HistoryName(fix.VehicleID), tables.EncodeTrip(charge.Trip())); err != nil {
		return charge, fmt.Errorf("append history: %w", err)
	}

	if err := p.opts.Ledger.RecordCharge(ctx, charge); err != nil {
		p.opts.Logger.Warning("failed to record toll charge", logger.String("vehicle_id", fix.VehicleID), logger.Error(err))
	}
	return charge, nil
}
