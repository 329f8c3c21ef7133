package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"water_pump_monitor/internal/client"
	"water_pump_monitor/internal/config"
	"water_pump_monitor/internal/display"
	"water_pump_monitor/internal/handlers"
	"water_pump_monitor/internal/logger"
	"water_pump_monitor/internal/repository"
	"water_pump_monitor/internal/server"
	"water_pump_monitor/internal/service"

	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

// @title        Water Pump Monitor panel API
// @version      1.0
// @description  Local panel for a water tank controller: live display, pump and mode controls, connection journal.
// @BasePath     /
func main() {
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()
	cfgPath, _ := pflag.CommandLine.GetString("config")

	cfg, cfgErr := config.Load(cfgPath, pflag.CommandLine)

	// init logger; an invalid config still gets the default level so the
	// failure can be reported.
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	db, err := repository.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(db)

	board := display.NewBoard()
	surface := display.Multi{board}
	if cfg.Terminal.Enabled {
		surface = append(surface, display.NewTerminal(os.Stdout))
	}

	ctrl, err := client.New(client.Options{
		PageURL:          cfg.Upstream.URL,
		ReloadDelay:      cfg.Upstream.ReloadDelay,
		HandshakeTimeout: cfg.Upstream.HandshakeTimeout,
		WriteTimeout:     cfg.Upstream.WriteTimeout,
		Surface:          surface,
		Labels:           display.Labels{PumpOn: cfg.Labels.PumpOn, PumpOff: cfg.Labels.PumpOff},
		Journal:          repos.EventRepo,
		Log:              log.Named("client"),
	})
	if err != nil {
		log.Fatalw("invalid upstream", "err", err, "url", cfg.Upstream.URL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Init(ctx); err != nil {
		log.Fatalw("failed to start telemetry client", "err", err)
	}
	log.Infow("telemetry client started", "upstream", ctrl.URL(), "reload_delay", cfg.Upstream.ReloadDelay)

	services := service.NewService(repos, ctrl, board, cfg.DB.Retention, log.Named("journal"))
	go services.Retention.Run(ctx, cfg.DB.PruneInterval)

	var srv *server.Server
	if cfg.Panel.Enabled {
		apiHandler := handlers.NewHandler(services, log.Named("http"))
		srv = &server.Server{}
		runHTTPServer(srv, cfg.Panel.Port, apiHandler, log)
	}

	waitForShutdown(cancel, ctrl, srv, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("panel listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM, then tears the client down and
// drains the panel.
func waitForShutdown(cancel context.CancelFunc, ctrl *client.Controller, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	ctrl.Teardown()
	cancel()

	if srv == nil {
		return
	}
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
