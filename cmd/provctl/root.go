package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/server24/provisiond/internal/infra/config"
	"github.com/server24/provisiond/internal/infra/persistence"
	"github.com/server24/provisiond/internal/infra/xray"
	"github.com/server24/provisiond/internal/metrics"
	"github.com/server24/provisiond/internal/service"
)

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "provctl",
		Short:         "Operator tool for the Server24 provisioning engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PROVISIOND_CONFIG_PATH"), "path to config file")

	cmd.AddCommand(
		newRegisterCommand(&configPath),
		newIssueCommand(&configPath),
		newPurchaseCommand(&configPath),
		newGetCommand(&configPath),
		newRenewCommand(&configPath),
		newRevokeCommand(&configPath),
		newListCommand(&configPath),
		newSubscribersCommand(&configPath),
		newSyncCommand(&configPath),
	)
	return cmd
}

// newEngine builds a fully wired engine for one CLI invocation. The
// returned close func releases the connection pool.
func newEngine(ctx context.Context, configPath string) (service.Provisioner, func(), error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	pool, err := persistence.NewConnectionPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	reloader, err := xray.NewCommandReloader(cfg.Xray.ReloadCommand, cfg.Xray.ReloadTimeout, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	engine := service.NewProvisioner(cfg,
		persistence.NewSubscriberRepository(pool, logger),
		persistence.NewCredentialRepository(pool, logger),
		xray.NewFileStore(cfg.Xray.ConfigPath, logger),
		reloader,
		metrics.NewUnregistered(),
		logger,
	)
	return engine, pool.Close, nil
}
