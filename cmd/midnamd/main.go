// MIDNAM Core daemon.
//
// midnamd serves the MIDNAM editor API: local device records in SQLite,
// device selection from the local store or the remote catalog, new device
// creation, and live MIDI preview over MQTT.
//
// Configuration is read from configs/config.yaml or the file named by
// MIDNAM_CONFIG. MQTT, InfluxDB and the remote catalog are optional; the
// daemon runs fully offline without them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/midnam-core/internal/api"
	"github.com/nerrad567/midnam-core/internal/editor"
	"github.com/nerrad567/midnam-core/internal/infrastructure/config"
	"github.com/nerrad567/midnam-core/internal/infrastructure/database"
	"github.com/nerrad567/midnam-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/midnam-core/internal/infrastructure/logging"
	"github.com/nerrad567/midnam-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/midnam-core/internal/localstore"
	"github.com/nerrad567/midnam-core/internal/preview"
	"github.com/nerrad567/midnam-core/internal/remote"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// statsInterval is how often store totals are written to InfluxDB.
const statsInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit // Startup wiring: one optional client after another
	log := logging.Default()
	log.Info("starting MIDNAM Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The store opens lazily on first use. A broken database leaves the API
	// up and answering store_unavailable.
	store := localstore.New(
		localstore.SQLiteOpener(database.ConfigFrom(cfg.Database)),
		localstore.WithQuota(cfg.Database.QuotaBytes),
		localstore.WithLogger(log),
	)
	defer func() {
		log.Info("closing local store")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing local store", "error", closeErr)
		}
	}()
	if err := store.HealthCheck(ctx); err != nil {
		log.Warn("local store unavailable at startup", "path", cfg.Database.Path, "error", err)
	} else {
		log.Info("local store ready", "path", cfg.Database.Path)
	}

	hub := api.NewHub(cfg.WebSocket, log)
	opts := []editor.Option{
		editor.WithLogger(log),
		editor.WithNotifier(hub),
		editor.WithSessionTTL(cfg.GetSessionTTL()),
	}

	remoteClient := remote.New(cfg.Remote.BaseURL, remote.WithTimeout(cfg.GetRemoteTimeout()))
	if remoteClient.Enabled() {
		opts = append(opts, editor.WithRemote(remoteClient))
		log.Info("remote catalog configured", "base_url", cfg.Remote.BaseURL)
	} else {
		log.Info("remote catalog disabled, running offline")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			log.Warn("InfluxDB unavailable, activity metrics disabled", "error", err)
			influxClient = nil
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			opts = append(opts, editor.WithActivityRecorder(influxClient))
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, preview disabled", "error", err)
			mqttClient = nil
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			mqttClient.SetLogger(log)
			mqttClient.SetOnConnect(func() {
				log.Info("MQTT reconnected")
			})
			mqttClient.SetOnDisconnect(func(err error) {
				log.Warn("MQTT disconnected", "error", err)
			})
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)

			opts = append(opts,
				editor.WithNotifier(editor.NewMQTTNotifier(mqttClient, mqttClient.Topics(), log)),
				editor.WithPlayer(newPlayer(cfg, mqttClient, influxClient, log)),
			)
		}
	} else {
		log.Info("MQTT disabled, preview unavailable")
	}

	svc := editor.NewService(store, opts...)

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Editor:  svc,
		Store:   store,
		Remote:  remoteClient.Enabled(),
		Hub:     hub,
		Version: version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.Influx = influxClient
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if influxClient != nil {
		go writeStoreStatsLoop(ctx, svc, influxClient, log)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
func getConfigPath() string {
	if path := os.Getenv("MIDNAM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newPlayer builds the preview player publishing through mqttClient.
func newPlayer(cfg *config.Config, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) *preview.Player {
	opts := []preview.Option{
		preview.WithVelocity(cfg.Preview.Velocity),
		preview.WithNoteDuration(cfg.GetNoteDuration()),
		preview.WithLogger(log),
	}
	if influxClient != nil {
		opts = append(opts, preview.WithRecorder(influxClient))
	}
	return preview.NewPlayer(mqttClient, mqttClient.Topics(), opts...)
}

// writeStoreStatsLoop writes store totals to InfluxDB until ctx is cancelled.
// An unavailable store skips the sample.
func writeStoreStatsLoop(ctx context.Context, svc *editor.Service, influxClient *influxdb.Client, log *logging.Logger) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stats, err := svc.Stats(ctx)
			if err != nil {
				log.Debug("store stats skipped", "error", err)
				continue
			}
			influxClient.WriteStoreStats(int64(stats.Count), stats.TotalSizeBytes, stats.DistinctManufacturers, now)
		}
	}
}
