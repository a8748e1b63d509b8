package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"gps-toll-system/api"
	"gps-toll-system/auth"
	"gps-toll-system/cache"
	"gps-toll-system/config"
	"gps-toll-system/dashboard"
	"gps-toll-system/database"
	"gps-toll-system/geohash"
	"gps-toll-system/logger"
	"gps-toll-system/metrics"
	"gps-toll-system/session"
	"gps-toll-system/tables"
	"gps-toll-system/tolling"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Initialize configuration
	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.New("gps-toll", logger.Options{}).Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	log := logger.New("gps-toll", logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.ILogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Initialize Redis
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		var err error
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Info("connected to Redis", logger.String("addr", cfg.Redis.Addr))
	}

	// Initialize database
	var db *sql.DB
	if cfg.DB.Enabled() {
		var err error
		db, err = database.InitDB(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("database connected", logger.String("host", cfg.DB.Host))
	}

	src := newTableSource(cfg, rdb, log)

	var store session.Store = session.NewMemoryStore()
	if rdb != nil {
		store = session.NewRedisStore(rdb)
	}
	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL, store)

	deps := api.Deps{
		Verifier:    auth.NewVerifier(src, log),
		UsersTable:  auth.Table{Name: cfg.Tables.Users, Header: cfg.Tables.UsersHeader},
		AdminsTable: auth.Table{Name: cfg.Tables.Admins, Header: cfg.Tables.AdminsHeader},
		Sessions:    sessions,
		Dashboard:   dashboard.NewService(src, cfg.Tables.Users, cfg.Tables.UsersHeader, log, m),
		Logger:      log,
		Metrics:     m,
	}

	var ledger *database.Ledger
	if db != nil {
		ledger = database.NewLedger(db)
		deps.Charges = ledger
	}

	if rw, ok := src.(tables.ReadWriter); ok && cfg.Tables.Source == "dir" {
		processor, err := newProcessor(cfg, rw, rdb, ledger, log, m)
		if err != nil {
			return err
		}
		processor.Start()
		deps.Processor = processor
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := processor.Close(drainCtx); err != nil {
				log.Error("gps queue not fully drained", logger.Error(err))
				return
			}
			log.Info("gps queue drained")
		}()
	} else {
		log.Warning("tables are read-only, GPS tolling is disabled", logger.String("source", cfg.Tables.Source))
	}

	// Register routes
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: api.RegisterRoutes(api.NewHandler(deps), cfg.Server.AllowedOrigins),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", logger.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newTableSource(cfg *config.Config, rdb *redis.Client, log logger.ILogger) tables.Source {
	var src tables.Source
	switch cfg.Tables.Source {
	case "http":
		src = tables.NewHTTPSource(cfg.Tables.BaseURL, &http.Client{Timeout: cfg.Tables.FetchTimeout})
	default:
		src = tables.NewDirSource(cfg.Tables.Dir)
	}
	if rdb != nil && cfg.Tables.CacheTTL > 0 {
		log.Info("caching tables in Redis", logger.Duration("ttl", cfg.Tables.CacheTTL))
		src = tables.NewCachedSource(src, rdb, cfg.Tables.CacheTTL, log.With(logger.String("component", "table-cache")))
	}
	return src
}

func newProcessor(cfg *config.Config, rw tables.ReadWriter, rdb *redis.Client, ledger *database.Ledger, log logger.ILogger, m *metrics.Metrics) (*tolling.Processor, error) {
	corridor := geohash.Everywhere()
	if len(cfg.Corridor.Points) > 0 {
		waypoints := make([]geohash.Point, len(cfg.Corridor.Points))
		for i, p := range cfg.Corridor.Points {
			waypoints[i] = geohash.Point{Lat: p[0], Lon: p[1]}
		}
		var err error
		corridor, err = geohash.NewCorridor(geohash.GeoIndexingTechnique(cfg.Corridor.Technique), waypoints, cfg.Corridor.RadiusKm)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warning("no highway corridor configured, every segment is tolled")
	}

	var tracker tolling.Tracker = tolling.NewMemoryTracker()
	if rdb != nil {
		tracker = tolling.NewRedisTracker(rdb)
	}

	opts := tolling.Options{
		QueueSize: cfg.Tolling.QueueSize,
		Tracker:   tracker,
		Corridor:  corridor,
		Pricer:    tolling.NewPricer(cfg.Tolling),
		Wallet:    tolling.NewWallet(rw, cfg.Tables.Users, cfg.Tables.UsersHeader),
		History:   rw,
		Logger:    log.With(logger.String("component", "tolling")),
		Metrics:   m,
	}
	if ledger != nil {
		opts.Ledger = ledger
	}
	return tolling.NewProcessor(opts), nil
}
