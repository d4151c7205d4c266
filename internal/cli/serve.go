package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/hirebot-dev/hirebot/internal/httpapi"
	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	"github.com/hirebot-dev/hirebot/pkg/chat/coordinator"
	"github.com/hirebot-dev/hirebot/pkg/chat/providers"
	"github.com/hirebot-dev/hirebot/pkg/chat/store"
	"github.com/hirebot-dev/hirebot/pkg/chat/tools"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "hirebot.yaml", "path to the configuration file")

	return cmd
}

func runServe(configPath string) error {
	zapLog, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer zapLog.Sync() //nolint:errcheck
	log := zapr.NewLogger(zapLog)

	if _, err := maxprocs.Set(maxprocs.Logger(zapLog.Sugar().Infof)); err != nil {
		log.Error(err, "failed to set GOMAXPROCS")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Database)
	if err != nil {
		return err
	}

	registry, err := providers.NewRegistryFromConfig(cfg)
	if err != nil {
		return err
	}
	creds := config.NewCredentials(cfg)

	dispatcher, err := tools.NewDispatcherFromConfig(cfg)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	coord := coordinator.New(st, registry, creds, dispatcher,
		log.WithName("coordinator"), coordinator.NewMetrics(promReg))

	api := httpapi.NewServer(cfg.Server, st, coord, registry, creds, promReg, log.WithName("http"))
	server := api.Build()

	log.Info("starting server",
		"addr", server.Addr,
		"database", cfg.Database.Driver,
		"providers", creds.Configured())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "graceful shutdown failed")
		return err
	}

	log.Info("shutdown complete")
	return nil
}
