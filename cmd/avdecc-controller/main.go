package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/config"
	"github.com/vronchetti/avdecc-lib/internal/controller"
	"github.com/vronchetti/avdecc-lib/internal/metrics"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/network"
	"github.com/vronchetti/avdecc-lib/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "avdecc-controller"
	serviceVersion    = "1.0.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)
	logger.Info("Configuration loaded",
		slog.String("interface_mode", cfg.Interface.Mode),
		slog.String("entity_id", fmt.Sprintf("%016X", cfg.Entity.EntityID)),
		slog.Int("max_inflight_read_descriptor", cfg.Enumeration.MaxInflightReadDescriptor),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	collab, err := newCollaborator(cfg.Interface, cfg.Entity.EntityID, logger)
	if err != nil {
		logger.Error("Failed to create network collaborator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctrlCfg := controller.Config{
		ControllerEntityID: model.EntityID(cfg.Entity.EntityID),
		CapabilityFilters: controller.CapabilityFilters{
			RequiredEntityCapabilities:   model.EntityCapabilityFlags(cfg.Capabilities.RequiredEntityCapabilities),
			RequiredTalkerCapabilities:   model.TalkerCapabilityFlags(cfg.Capabilities.RequiredTalkerCapabilities),
			RequiredListenerCapabilities: model.ListenerCapabilityFlags(cfg.Capabilities.RequiredListenerCapabilities),
		},
		MaxInflightReadDescriptor: cfg.Enumeration.MaxInflightReadDescriptor,
		AECPCommandTimeout:        cfg.Timeouts.AECPCommand,
		DiscoveryProbeInterval:    cfg.Timeouts.DiscoveryProbe,
	}
	ctrl := controller.New(ctrlCfg, clock.System{}, collab, logger)
	ctrl.AttachMetrics(appMetrics)
	logger.Info("Controller initialized")

	var httpServer *server.HTTPServer
	if cfg.Metrics.Enabled {
		httpCfg := server.HTTPServerConfig{
			Port:    cfg.Metrics.Port,
			Address: cfg.Metrics.Address,
			Enabled: cfg.Metrics.Enabled,
		}
		httpServer = server.NewHTTPServer(httpCfg, logger, cfg, ctrl, appMetrics)
		logger.Info("HTTP status server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.Metrics.Address, cfg.Metrics.Port)))
	}

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- ctrl.Run(ctx) }()

	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-runErrCh:
		logger.Warn("Controller event loop stopped", slog.String("reason", fmt.Sprint(err)))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")
	cancel()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	<-runErrCh
	if err := collab.Close(); err != nil {
		logger.Error("Error closing network collaborator", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped", slog.Uint64("events_missed", ctrl.EventsMissed()))
}

// newCollaborator builds the network.Collaborator named by ifaceCfg.Mode.
// loopback mode derives a synthetic MAC from entityID, for local demos and
// the controller-to-controller test harness; udp_multicast tunnels AVTP
// over the configured multicast group (spec section 6).
func newCollaborator(ifaceCfg config.InterfaceConfig, entityID uint64, logger *slog.Logger) (network.Collaborator, error) {
	switch ifaceCfg.Mode {
	case "loopback":
		capacity := ifaceCfg.BufferSize
		if capacity <= 0 {
			capacity = 64
		}
		return network.NewLoopback(macFromEntityID(entityID), capacity), nil
	case "udp_multicast":
		return network.NewUDPMulticast(network.UDPMulticastConfig{
			GroupAddress: ifaceCfg.GroupAddress,
			Interface:    ifaceCfg.Name,
			LocalMAC:     macFromEntityID(entityID),
			BufferSize:   ifaceCfg.BufferSize,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported interface mode %q", ifaceCfg.Mode)
	}
}

func macFromEntityID(entityID uint64) [6]byte {
	return model.MAC(entityID).Bytes()
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
