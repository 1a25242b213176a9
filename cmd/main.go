package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart_heating/internal/config"
	"smart_heating/internal/handlers"
	"smart_heating/internal/hass"
	"smart_heating/internal/logger"
	"smart_heating/internal/mqtt"
	"smart_heating/internal/repository"
	"smart_heating/internal/server"
	"smart_heating/internal/service"
)

func main() {
	// load config.yml first: it carries the log level
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	// open DB
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)
	host := hass.NewClient(cfg.Hass.BaseURL, cfg.Hass.Token, cfg.Hass.Timeout)
	pub := buildPublisher(cfg, log)
	services := service.NewService(cfg, repos, host, pub, log)
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the decision loop (via composed service)
	go services.Runner.Run(ctx, cfg.UpdateInterval())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// buildPublisher connects the optional MQTT telemetry sink. A broker that is
// down at startup is not fatal: the engine runs without telemetry.
func buildPublisher(cfg *config.Config, log *logger.Logger) service.SnapshotPublisher {
	if !cfg.MQTT.Enabled {
		return nil
	}
	pub, err := mqtt.NewPublisher(cfg.MQTT)
	if err != nil {
		log.Warnw("mqtt disabled: broker unreachable", "broker", cfg.MQTT.Broker, "err", err)
		return nil
	}
	log.Infow("mqtt telemetry enabled", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	return pub
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
