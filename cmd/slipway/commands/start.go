package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slipway-sh/slipway/internal/logger"
	"github.com/slipway-sh/slipway/internal/telemetry"
	"github.com/slipway-sh/slipway/pkg/api"
	"github.com/slipway-sh/slipway/pkg/artifact"
	"github.com/slipway-sh/slipway/pkg/config"
	"github.com/slipway-sh/slipway/pkg/deploy"
	"github.com/slipway-sh/slipway/pkg/ledger"
	"github.com/slipway-sh/slipway/pkg/metrics"
	"github.com/slipway-sh/slipway/pkg/supervisor"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the slipway host",
	Long: `Start the slipway host with the specified configuration.

The host restarts the most recent deployment (if any), then serves the
control plane for uploads and status queries until interrupted.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/slipway/config.yaml.

Examples:
  # Start with default config location
  slipway start

  # Start with custom config file
  slipway start --config /etc/slipway/config.yaml

  # Start with environment variable overrides
  SLIPWAY_LOGGING_LEVEL=DEBUG slipway start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "slipway",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "slipway",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("Slipway - single-application deployment host")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics FIRST (before creating components that use metrics).
	// deployMetrics stays a nil interface when metrics are disabled.
	var deployMetrics deploy.Metrics
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		deployMetrics = metrics.NewDeployMetrics()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
	}

	// Assemble the deployment pipeline: artifact store, state ledger,
	// instance supervisor, and the manager that drives them.
	store, err := artifact.NewStore(cfg.Deployments.Root)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	led, err := ledger.New(cfg.Deployments.StateFile)
	if err != nil {
		return fmt.Errorf("failed to initialize deployment ledger: %w", err)
	}

	sup := supervisor.New(cfg.Deployments.Root, supervisor.Config{
		ReadyTimeout:    cfg.Supervisor.ReadyTimeout,
		StopGracePeriod: cfg.Supervisor.StopGracePeriod,
		SocketDir:       cfg.Supervisor.SocketDir,
	})

	mgr := deploy.NewManager(store, led, sup, deployMetrics)

	logger.Info("Deployment pipeline initialized",
		"root", cfg.Deployments.Root,
		"state_file", cfg.Deployments.StateFile)

	// Restart the most recent deployment. Runs concurrently with the
	// control plane; Recover and Deploy serialize inside the manager.
	go func() {
		mgr.Recover(ctx)
		if d := mgr.Current(); d != nil {
			logger.Info("Recovered deployment", "hash", d.Version, "port", d.Port)
		} else {
			logger.Info("No previous deployment to recover")
		}
	}()

	// Start metrics server if enabled
	if metricsServer != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Start the control plane in background
	apiServer := api.NewServer(cfg.Server, mgr)
	logger.Info("Control plane configured", "port", cfg.Server.Port)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Host is running. Press Ctrl+C to stop.")

	var serverErr error
	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for the control plane to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			serverErr = err
		}

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			serverErr = err
		}
	}

	// Stop the running instance; the ledger keeps the record so the
	// deployment is restarted on the next host start.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := mgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("Instance shutdown error", "error", err)
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", "error", err)
		}
	}

	if serverErr != nil {
		return serverErr
	}
	logger.Info("Host stopped gracefully")
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
