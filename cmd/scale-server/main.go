package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/counting-scale/internal/api"
	"github.com/banshee-data/counting-scale/internal/config"
	"github.com/banshee-data/counting-scale/internal/configstore"
	"github.com/banshee-data/counting-scale/internal/db"
	"github.com/banshee-data/counting-scale/internal/fsutil"
	"github.com/banshee-data/counting-scale/internal/scale"
	"github.com/banshee-data/counting-scale/internal/simulation"
	"github.com/banshee-data/counting-scale/internal/timeutil"
	"github.com/banshee-data/counting-scale/internal/version"
)

var (
	configFile  = flag.String("config", config.DefaultConfigPath, "Path to scale config JSON")
	listen      = flag.String("listen", "", "Listen address (overrides config and PORT)")
	devMode     = flag.Bool("dev", false, "Run in dev mode (migrations read from disk)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads the config file when present and overlays the
// environment. A missing default config is not an error.
func loadConfig(path string) (*config.ScaleConfig, error) {
	cfg := config.EmptyScaleConfig()
	if _, err := os.Stat(path); err == nil {
		cfg, err = config.LoadScaleConfig(path)
		if err != nil {
			return nil, err
		}
	} else if path != config.DefaultConfigPath {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	e, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(e); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// backend is the persistence selected by the config. database is nil for
// the file backend.
type backend struct {
	store    configstore.Store
	database *db.DB
}

func openBackend(cfg *config.ScaleConfig) (*backend, error) {
	switch cfg.GetStoreBackend() {
	case config.StoreSQLite:
		database, err := db.NewDB(cfg.GetSQLitePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &backend{store: database.ConfigStore(), database: database}, nil
	default:
		store, err := configstore.NewFileStore(fsutil.OSFileSystem{}, timeutil.RealClock{}, cfg.GetDataFile())
		if err != nil {
			return nil, fmt.Errorf("failed to open configuration file: %w", err)
		}
		return &backend{store: store}, nil
	}
}

func (b *backend) Close() error {
	if b.database != nil {
		return b.database.Close()
	}
	return nil
}

func newSimulator(cfg *config.ScaleConfig, b *backend) *simulation.Simulator {
	opts := simulation.Options{
		Clock: timeutil.RealClock{},
		Delays: simulation.Delays{
			Production:  cfg.GetProductionDelay(),
			Calibration: cfg.GetCalibrationDelay(),
			Weighing:    cfg.GetWeighingDelay(),
		},
	}
	if seed := cfg.GetSeed(); seed != 0 {
		opts.Generator = scale.NewGenerator(seed)
	}
	if b.database != nil {
		opts.Recorder = b.database
	}
	return simulation.New(opts)
}

// newMux builds the full handler tree for cfg and b.
func newMux(cfg *config.ScaleConfig, b *backend) (*http.ServeMux, error) {
	apiOpts := api.Options{
		Store:     b.store,
		Simulator: newSimulator(cfg, b),
		Defaults: api.Defaults{
			ReferenceCount: cfg.GetReferenceCount(),
			SampleSize:     cfg.GetSampleSize(),
		},
	}
	if b.database != nil {
		apiOpts.Runs = b.database
	}

	mux := api.NewServer(apiOpts).ServeMux()
	if b.database != nil {
		if err := b.database.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Current())
		return
	}
	if *devMode {
		db.DevMode = true
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], cfg.GetSQLitePath(), os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	addr := cfg.GetListen()
	if *listen != "" {
		addr = *listen
	}

	b, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer b.Close()
	log.Printf("counting scale %s, store backend %s", version.Current(), cfg.GetStoreBackend())

	mux, err := newMux(cfg, b)
	if err != nil {
		log.Fatalf("Failed to build routes: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:              addr,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// In-flight steps sleep for up to a couple of seconds.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
