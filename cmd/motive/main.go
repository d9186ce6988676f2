// Motive Core - real-time controller orchestration service.
//
// Motive Core runs pluggable, stateful controllers inside a fixed-rate
// update loop. Operators load, configure, activate, and atomically swap
// controllers through the HTTP API or MQTT command topics without
// stalling the loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/motive-automation/motive-core/migrations"

	"github.com/motive-automation/motive-core/internal/api"
	"github.com/motive-automation/motive-core/internal/commands"
	"github.com/motive-automation/motive-core/internal/controller"
	"github.com/motive-automation/motive-core/internal/controllers"
	"github.com/motive-automation/motive-core/internal/history"
	"github.com/motive-automation/motive-core/internal/infrastructure/config"
	"github.com/motive-automation/motive-core/internal/infrastructure/database"
	"github.com/motive-automation/motive-core/internal/infrastructure/influxdb"
	"github.com/motive-automation/motive-core/internal/infrastructure/logging"
	"github.com/motive-automation/motive-core/internal/infrastructure/mqtt"
	"github.com/motive-automation/motive-core/internal/manager"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// bootSwitchTimeout bounds activation of boot-declared controllers.
const bootSwitchTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	// The logger already carries a version field; log only the rest.
	log.Info("starting Motive Core",
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	historyRepo := history.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Controller factory with built-in types
	factory := controller.NewFactory()
	controllers.RegisterBuiltins(factory)
	log.Info("controller types registered", "types", factory.Types())

	// WebSocket hub is created before the manager so it can be wired as
	// an event sink; the API server reuses it.
	hub := api.NewHub(cfg.WebSocket, log)

	// Event fan-out: hub (WebSocket), MQTT consumer, and InfluxDB are
	// all appended before the manager starts.
	sink := &eventFanout{}
	sink.add(hub)
	if influxClient != nil {
		sink.add(&influxEvents{client: influxClient})
	}

	var telemetry manager.Telemetry
	if influxClient != nil {
		telemetry = &influxTelemetry{client: influxClient}
	}

	mgr, err := manager.New(manager.Config{UpdateRate: cfg.Loop.RateHz}, manager.Deps{
		Factory:   factory,
		Logger:    log,
		Sink:      sink,
		Recorder:  historyRepo,
		Telemetry: telemetry,
	})
	if err != nil {
		return fmt.Errorf("creating controller manager: %w", err)
	}

	// MQTT command consumer (requires broker)
	if mqttClient != nil {
		consumer, consumerErr := commands.NewConsumer(commands.Options{
			Broker:  mqttClient,
			Manager: mgr,
			Logger:  log,
			QoS:     byte(cfg.MQTT.QoS),
		})
		if consumerErr != nil {
			return fmt.Errorf("creating command consumer: %w", consumerErr)
		}
		sink.add(consumer)
		if startErr := consumer.Start(); startErr != nil {
			return fmt.Errorf("starting command consumer: %w", startErr)
		}
		defer func() {
			log.Info("stopping command consumer")
			consumer.Close()
		}()
	}

	// Load boot-declared controllers before the loop starts.
	activate, err := loadBootControllers(ctx, cfg, mgr, log)
	if err != nil {
		return err
	}

	// Start the update loop
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("starting update loop: %w", err)
	}
	defer func() {
		log.Info("stopping update loop")
		mgr.Stop()
	}()
	log.Info("update loop started", "rate_hz", mgr.LoopRate())

	// Activate boot-declared controllers now the loop is running.
	if len(activate) > 0 {
		switchErr := mgr.SwitchControllers(ctx, manager.SwitchRequest{
			Start:      activate,
			Strictness: manager.StrictnessBestEffort,
			Timeout:    bootSwitchTimeout,
		})
		if switchErr != nil {
			log.Error("boot activation failed", "controllers", activate, "error", switchErr)
		} else {
			log.Info("boot controllers activated", "controllers", activate)
		}
	}

	// Run the hub for WebSocket clients, then start the API server.
	go hub.Run(ctx)

	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Manager:  mgr,
		History:  historyRepo,
		Hub:      hub,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Verify infrastructure is healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, update loop, command consumer, InfluxDB, MQTT, database.

	log.Info("Motive Core stopped")
	return nil
}

// loadBootControllers loads and optionally configures the controllers
// declared in the config. Returns the names to activate once the loop
// runs. A failing declaration aborts startup; operators should not
// discover a half-loaded system after a restart.
func loadBootControllers(ctx context.Context, cfg *config.Config, mgr *manager.Manager, log *logging.Logger) ([]string, error) {
	var activate []string
	for _, decl := range cfg.Controllers {
		opts := controller.Options(decl.Options)
		if err := mgr.LoadController(ctx, decl.Name, decl.Type, opts); err != nil {
			return nil, fmt.Errorf("loading controller %q (%s): %w", decl.Name, decl.Type, err)
		}

		if decl.Configure || decl.Activate {
			if err := mgr.ConfigureController(ctx, decl.Name); err != nil {
				return nil, fmt.Errorf("configuring controller %q: %w", decl.Name, err)
			}
		}
		if decl.Activate {
			activate = append(activate, decl.Name)
		}

		log.Info("controller loaded",
			"name", decl.Name,
			"type", decl.Type,
			"configure", decl.Configure,
			"activate", decl.Activate,
		)
	}
	return activate, nil
}

// getConfigPath returns the configuration file path.
// Uses MOTIVE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MOTIVE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// eventFanout forwards manager events to every registered sink. The
// sink list is assembled before the manager starts and never mutated
// afterwards, so no locking is needed.
type eventFanout struct {
	sinks []manager.EventSink
}

func (f *eventFanout) add(s manager.EventSink) {
	f.sinks = append(f.sinks, s)
}

// ControllerTransition implements manager.EventSink.
func (f *eventFanout) ControllerTransition(ev manager.TransitionEvent) {
	for _, s := range f.sinks {
		s.ControllerTransition(ev)
	}
}

// SwitchApplied implements manager.EventSink.
func (f *eventFanout) SwitchApplied(ev manager.SwitchEvent) {
	for _, s := range f.sinks {
		s.SwitchApplied(ev)
	}
}

// influxTelemetry adapts the InfluxDB client to manager.Telemetry.
type influxTelemetry struct {
	client *influxdb.Client
}

func (t *influxTelemetry) TickDuration(tick uint64, d time.Duration) {
	t.client.WriteTickDuration(tick, d)
}

func (t *influxTelemetry) UpdateError(tick uint64, name string) {
	t.client.WriteUpdateError(tick, name)
}

// influxEvents records lifecycle events as InfluxDB points.
type influxEvents struct {
	client *influxdb.Client
}

func (e *influxEvents) ControllerTransition(ev manager.TransitionEvent) {
	e.client.WriteTransition(ev.Controller, ev.From.String(), ev.To.String(), ev.Reason)
}

func (e *influxEvents) SwitchApplied(ev manager.SwitchEvent) {
	e.client.WriteSwitchExecution(len(ev.Started), len(ev.Stopped), ev.Error != "", ev.Duration)
}
