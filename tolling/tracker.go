package tolling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"gps-toll-system/models"
)

// Tracker remembers the latest fix of each vehicle.
type Tracker interface {
	// Swap stores fix as the vehicle's latest and returns the one it
	// replaced. ok is false for the first fix of a vehicle.
	Swap(ctx context.Context, fix models.GPSFix) (prev models.GPSFix, ok bool, err error)
}

type MemoryTracker struct {
	mu   sync.Mutex
	last map[string]models.GPSFix
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{last: make(map[string]models.GPSFix)}
}

func (m *MemoryTracker) Swap(_ context.Context, fix models.GPSFix) (models.GPSFix, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.last[fix.VehicleID]
	m.last[fix.VehicleID] = fix
	return prev, ok, nil
}

// RedisTracker keeps the latest fix under gps:last:<vehicle> so that it
// survives restarts.
type RedisTracker struct {
	rdb *redis.Client
}

func NewRedisTracker(rdb *redis.Client) *RedisTracker {
	return &RedisTracker{rdb: rdb}
}

func trackerKey(vehicleID string) string {
	return fmt.Sprintf("gps:last:%s", vehicleID)
}

func (r *RedisTracker) Swap(ctx context.Context, fix models.GPSFix) (models.GPSFix, bool, error) {
	data, err := json.Marshal(fix)
	if err != nil {
		return models.GPSFix{}, false, err
	}

	old, err := r.rdb.GetSet(ctx, trackerKey(fix.VehicleID), data).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.GPSFix{}, false, nil
	}
	if err != nil {
		return models.GPSFix{}, false, fmt.Errorf("swap last fix: %w", err)
	}

	var prev models.GPSFix
	if err := json.Unmarshal(old, &prev); err != nil {
		return models.GPSFix{}, false, fmt.Errorf("decode last fix: %w", err)
	}
	return prev, true, nil
}
