package gtfsdb

// Config holds configuration options for the Client.
type Config struct {
	DBPath  string // path to the SQLite database file, or ":memory:"
	verbose bool
}

func NewConfig(dbPath string, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		verbose: verbose,
	}
}
