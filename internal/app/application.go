package app

import (
	"log/slog"

	"wayfinder.opentransit.org/gtfsdb"
	"wayfinder.opentransit.org/internal/cache"
	"wayfinder.opentransit.org/internal/planner"
)

// Application holds the dependencies for the HTTP handlers, helpers,
// and middleware: configuration, the structured logger, the stop store
// and the journey planner built on top of it.
type Application struct {
	Config  Config
	Logger  *slog.Logger
	Store   *gtfsdb.Client
	Cache   *cache.Cache
	Planner *planner.Planner
}

// Config holds all the configuration settings for our Application:
// the network port the server listens on, the name of the current
// operating environment (development, staging, production, etc.), and
// the accepted API keys. Values are read from command-line flags and
// the environment when the Application starts.
type Config struct {
	Port    int
	Env     string
	ApiKeys []string
}
