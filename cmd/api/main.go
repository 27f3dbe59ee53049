package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wayfinder.opentransit.org/gtfsdb"
	"wayfinder.opentransit.org/internal/app"
	"wayfinder.opentransit.org/internal/cache"
	"wayfinder.opentransit.org/internal/geo"
	"wayfinder.opentransit.org/internal/geocode"
	"wayfinder.opentransit.org/internal/gtfs"
	"wayfinder.opentransit.org/internal/logging"
	"wayfinder.opentransit.org/internal/planner"
)

type config struct {
	port         int
	env          string
	apiKeys      []string
	gtfsPath     string
	dbPath       string
	profilesPath string
	countryCode  string
	regionBounds string
}

func main() {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	var cfg config
	var apiKeysFlag string

	flag.IntVar(&cfg.port, "port", envInt("PORT", 4000), "API server port")
	flag.StringVar(&cfg.env, "env", envString("ENV", "development"), "Environment (development|staging|production)")
	flag.StringVar(&apiKeysFlag, "api-keys", envString("API_KEYS", "test"), "Comma separated API keys")
	flag.StringVar(&cfg.gtfsPath, "gtfs-path", envString("GTFS_PATH", ""), "Path to a static GTFS zip file")
	flag.StringVar(&cfg.dbPath, "db-path", envString("DB_PATH", "wayfinder.db"), "Path to the SQLite database file")
	flag.StringVar(&cfg.profilesPath, "profiles", envString("PROFILES_PATH", ""), "Optional YAML file with travel-time mode profiles")
	flag.StringVar(&cfg.countryCode, "country-code", envString("GEOCODER_COUNTRY", ""), "Restrict geocoding to one country (ISO alpha-2)")
	flag.StringVar(&cfg.regionBounds, "region-bounds", envString("REGION_BOUNDS", ""), "Feed region as minLat,maxLat,minLon,maxLon, used for coordinate repair")
	flag.Parse()

	if apiKeysFlag != "" {
		cfg.apiKeys = strings.Split(apiKeysFlag, ",")
		for i := range cfg.apiKeys {
			cfg.apiKeys[i] = strings.TrimSpace(cfg.apiKeys[i])
		}
	}

	logger := logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)

	region, err := parseRegion(cfg.regionBounds)
	if err != nil {
		logger.Error("invalid region bounds", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := gtfsdb.NewClient(gtfsdb.NewConfig(cfg.dbPath, cfg.env == "development"), logger)
	if err != nil {
		logger.Error("failed to open stop store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close() // nolint:errcheck

	if cfg.gtfsPath != "" {
		start := time.Now()
		dataset, err := gtfs.NewLoader(region, logger).LoadFile(cfg.gtfsPath)
		if err != nil {
			logger.Error("failed to load GTFS feed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := store.ImportDataset(context.Background(), dataset); err != nil {
			logger.Error("failed to import GTFS feed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logging.LogOperation(logger, "gtfs_import",
			slog.String("path", cfg.gtfsPath),
			slog.Duration("duration", time.Since(start)))
	}

	profiles := planner.DefaultProfiles()
	if cfg.profilesPath != "" {
		profiles, err = planner.LoadProfiles(cfg.profilesPath)
		if err != nil {
			logger.Error("failed to load travel profiles", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	geocoder := geocode.NewClient(geocode.Config{CountryCode: cfg.countryCode}, logger)
	memo := cache.New(5*time.Minute, time.Minute)
	defer memo.Stop()

	application := &app.Application{
		Config:  app.Config{Port: cfg.port, Env: cfg.env, ApiKeys: cfg.apiKeys},
		Logger:  logger,
		Store:   store,
		Cache:   memo,
		Planner: planner.NewPlanner(store, planner.NewEstimator(profiles), geocoder, memo, logger, planner.DefaultLimits()),
	}
	api := newAPIServer(application)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      api.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", cfg.env))
	err = srv.ListenAndServe()
	logger.Error(err.Error())
	os.Exit(1)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// parseRegion reads "minLat,maxLat,minLon,maxLon". Empty input means
// the whole world, which disables region-keyed coordinate repair.
func parseRegion(s string) (geo.Bounds, error) {
	if strings.TrimSpace(s) == "" {
		return gtfs.WorldRegion, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Bounds{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	values := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Bounds{}, fmt.Errorf("parsing bound %q: %w", p, err)
		}
		values[i] = v
	}

	b := geo.Bounds{MinLat: values[0], MaxLat: values[1], MinLon: values[2], MaxLon: values[3]}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return geo.Bounds{}, fmt.Errorf("bounds out of order: %s", s)
	}
	return b, nil
}
