// Command simulator drives every vehicle of the user table along the
// configured highway corridor and posts its GPS fixes to the server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gps-toll-system/config"
	"gps-toll-system/logger"
	"gps-toll-system/models"
	"gps-toll-system/tables"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	server := flag.String("server", "http://localhost:8080", "toll server base URL")
	interval := flag.Duration("interval", time.Second, "wall-clock delay between fixes")
	step := flag.Duration("step", time.Minute, "simulated time between fixes")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.New("simulator", logger.Options{}).Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}
	log := logger.New("simulator", logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer log.Sync()

	if len(cfg.Corridor.Points) < 2 {
		log.Error("corridor.points needs at least two waypoints")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := tables.NewDirSource(cfg.Tables.Dir).Fetch(ctx, cfg.Tables.Users)
	if err != nil {
		log.Error("failed to read users", logger.Error(err))
		os.Exit(1)
	}
	users, _ := tables.DecodeUsers(tables.Parse(text, cfg.Tables.UsersHeader))

	client := &http.Client{Timeout: 5 * time.Second}
	start := time.Now().Truncate(time.Second)

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(vehicleID string) {
			defer wg.Done()
			drive(ctx, client, *server, vehicleID, cfg.Corridor.Points, start, *step, *interval, log)
		}(u.VehicleNumber)
	}
	wg.Wait()
}

// drive posts one fix per waypoint, with a little jitter so vehicles do not
// report in lockstep.
func drive(ctx context.Context, client *http.Client, server, vehicleID string, points [][]float64,
	start time.Time, step, interval time.Duration, log logger.ILogger) {
	log = log.With(logger.String("vehicle_id", vehicleID))
	ts := start
	for _, p := range points {
		fix := models.GPSFix{
			VehicleID: vehicleID,
			Timestamp: ts.Format(models.TimestampLayout),
			Latitude:  p[0],
			Longitude: p[1],
		}
		if err := send(ctx, client, server, fix); err != nil {
			log.Warning("failed to send fix", logger.Error(err))
		} else {
			log.Info("fix sent", logger.String("timestamp", fix.Timestamp))
		}

		ts = ts.Add(step)
		jitter := time.Duration(rand.Int63n(int64(interval)/2 + 1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval + jitter):
		}
	}
}

func send(ctx context.Context, client *http.Client, server string, fix models.GPSFix) error {
	body, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/gps", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
