package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/tether/pkg/agent"
	"github.com/cuemby/tether/pkg/config"
	"github.com/cuemby/tether/pkg/log"
	"github.com/cuemby/tether/pkg/metrics"
	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the node agent",
	Long: `Run the node agent in the foreground until interrupted.

The agent publishes node info and health check results, restarts failed
workers with exponential backoff and serves /metrics, /health, /ready and
/live on the metrics address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log.Init(log.Config{
			Level:      log.ParseLevel(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})
		metrics.SetVersion(Version)

		a := agent.New(agent.WithRestart(cfg.Restart.Initial, cfg.Restart.Max))
		handles, err := agent.Configure(a, cfg, Version)
		if err != nil {
			return fmt.Errorf("failed to configure agent: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		var server *http.Server
		if cfg.Metrics.Addr != "" {
			server = &http.Server{
				Addr:         cfg.Metrics.Addr,
				Handler:      metrics.NewServeMux(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("metrics server error: %w", err)
				}
			}()
		}

		log.Logger.Info().
			Str("version", Version).
			Str("metrics_addr", cfg.Metrics.Addr).
			Int("checks", len(handles.Checks)).
			Msg("Starting agent")

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case err := <-errCh:
				log.Logger.Error().Err(err).Msg("Shutting down")
				cancel()
			case <-runCtx.Done():
			}
		}()

		if err := a.Run(runCtx); err != nil {
			return err
		}

		if server != nil {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop metrics server: %w", err)
			}
		}

		log.Logger.Info().Msg("Shutdown complete")
		return nil
	},
}

func init() {
	agentCmd.Flags().String("config", "", "Path to the agent config file")
	agentCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	agentCmd.Flags().Bool("json", false, "Log in JSON format")
	agentCmd.Flags().String("metrics-addr", "", "Listen address for metrics and health endpoints")
}

// loadConfig reads --config, or the defaults when unset, and applies flag
// overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("json") {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("json")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = cmd.Flags().GetString("metrics-addr")
	}
	return cfg, nil
}
