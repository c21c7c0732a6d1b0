/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance risk estimator server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load config.toml
  2. Open the SQL store (SQLite by default, PostgreSQL by config)
  3. Optionally seed the holiday table from a document
  4. Load the holiday index (failures degrade to an empty index)
  5. Load attendance state from the store
  6. Create API handler, router and holiday retry scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config         TOML config path (default: config.toml; missing = defaults)
  -port           HTTP server port, overrides [server].port
  -db             SQLite database path, overrides [store].dsn
                  Use ":memory:" for in-memory database
  -holidays       Holiday document path/URL or "db", overrides [holidays].source
  -seed-holidays  Replace the holiday table with this document at startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the holiday scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database and the bundled holiday document
  ./server -db="./data/attendance.db" -holidays="./data/holidays.json"

  # Seed the holiday table once, then read holidays from it
  ./server -seed-holidays="./data/holidays.json" -holidays=db

  # Run with in-memory database on a different port
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqldb/sqldb.go: Database implementation
  - config/config.go: Configuration file
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/metrics"
	"github.com/warp/attendance-engine/store/sqldb"
)

// holidaySourceDB selects the SQL holiday table as the holiday source.
const holidaySourceDB = "db"

func main() {
	// Flags
	configPath := flag.String("config", "config.toml", "TOML config path")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	holidaysFrom := flag.String("holidays", "", `holiday document path, URL or "db" (overrides config)`)
	seedFrom := flag.String("seed-holidays", "", "replace the holiday table with this document")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Driver = sqldb.DriverSQLite
		cfg.Store.DSN = *dbPath
	}
	if *holidaysFrom != "" {
		cfg.Holidays.Source = *holidaysFrom
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve timezone: %v", err)
	}
	// Holiday documents decode dates in time.Local.
	time.Local = loc

	// Initialize store
	store, err := sqldb.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	store.WithLocation(loc)

	ctx := context.Background()

	if *seedFrom != "" {
		if err := seedHolidays(ctx, store, *seedFrom, cfg.Holidays.Timeout); err != nil {
			log.Fatalf("Failed to seed holidays: %v", err)
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// Holiday index
	var source holiday.Source = store
	if cfg.Holidays.Source != holidaySourceDB {
		source = holiday.SourceFor(cfg.Holidays.Source, holidayClient(cfg.Holidays.Timeout))
	}
	opts := []holiday.Option{holiday.WithLogger(log.Default())}
	if m != nil {
		opts = append(opts, holiday.WithObserver(m))
	}
	holidays := holiday.NewIndex(source, opts...)

	loadCtx, cancelLoad := cfg.Holidays.Timeout.WithTimeout(ctx)
	list := holidays.Load(loadCtx)
	cancelLoad()
	log.Printf("Loaded %d holidays from %s", len(list), cfg.Holidays.Source)

	// Attendance state
	state := attendance.Load(ctx, store, cfg.Policy, loc, log.Default())

	// Initialize handler
	handler := api.NewHandler(state, store, holidays)
	handler.Metrics = m

	metricsPath := ""
	if m != nil {
		metricsPath = cfg.Metrics.Path
	}
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsPath:    metricsPath,
	})

	scheduler := api.NewHolidayScheduler(holidays)
	scheduler.Enabled = cfg.Holidays.RetryInterval.Duration > 0
	if scheduler.Enabled {
		scheduler.CheckInterval = cfg.Holidays.RetryInterval.Duration
		scheduler.Timeout = cfg.Holidays.Timeout.Duration
	}
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.Server.Port)
		log.Printf("API available at http://localhost:%s/api", cfg.Server.Port)
		if metricsPath != "" {
			log.Printf("Metrics available at http://localhost:%s%s", cfg.Server.Port, metricsPath)
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	shutdownCtx, cancel := cfg.Server.ShutdownTimeout.WithTimeout(context.Background())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedHolidays replaces the holiday table with the document at location.
func seedHolidays(ctx context.Context, store *sqldb.Store, location string, timeout config.Duration) error {
	ctx, cancel := timeout.WithTimeout(ctx)
	defer cancel()

	list, err := holiday.SourceFor(location, holidayClient(timeout)).Fetch(ctx)
	if err != nil {
		return err
	}
	if err := store.ReplaceHolidays(ctx, list); err != nil {
		return err
	}
	log.Printf("Seeded %d holidays from %s", len(list), location)
	return nil
}

// holidayClient returns the HTTP client for holiday documents. A
// non-positive timeout means no client timeout.
func holidayClient(timeout config.Duration) *http.Client {
	if timeout.Duration <= 0 {
		return &http.Client{}
	}
	return &http.Client{Timeout: timeout.Duration}
}
