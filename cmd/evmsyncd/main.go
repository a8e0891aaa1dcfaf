package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/nyx-chain/evmsync/internal/chain"
	"github.com/nyx-chain/evmsync/internal/common"
	loader "github.com/nyx-chain/evmsync/internal/config"
	"github.com/nyx-chain/evmsync/internal/db"
	"github.com/nyx-chain/evmsync/internal/integrity"
	"github.com/nyx-chain/evmsync/internal/logger"
	"github.com/nyx-chain/evmsync/internal/metrics"
	"github.com/nyx-chain/evmsync/internal/migrations"
	"github.com/nyx-chain/evmsync/internal/prefetch"
	"github.com/nyx-chain/evmsync/internal/repository"
	"github.com/nyx-chain/evmsync/internal/sync"
	"github.com/nyx-chain/evmsync/pkg/api"
	"github.com/nyx-chain/evmsync/pkg/config"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "evmsyncd",
	Short:   "evmsyncd - EVM chain sync and indexing daemon",
	Long:    `evmsyncd follows an EVM-compatible chain's canonical head, persisting blocks, transactions, and logs while detecting and rolling back reorganizations.`,
	Version: version,
	RunE:    runDaemon,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration shape as a JSON Schema document",
	RunE:  runConfigSchema,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration file",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := &jsonschema.Reflector{}
	schema := reflector.Reflect(&config.Config{})

	encoded, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	fmt.Println(string(encoded))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loader.LoadFromFileWithEnvOverlay(configPath)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Printf("configuration at %s is valid\n", configPath)
	fmt.Printf("  rpc_url: %s\n", cfg.RPCURL)
	fmt.Printf("  db.path: %s\n", cfg.DB.Path)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loader.LoadFromFileWithEnvOverlay(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := migrations.RunMigrations(cfg.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loader.LoadFromFileWithEnvOverlay(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Close()

	log.Infof("connecting to %s", cfg.RPCURL)
	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, &cfg.Retry)
	if err != nil {
		return fmt.Errorf("failed to create chain client: %w", err)
	}
	defer chainClient.Close()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(&cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(ctx); err != nil {
				log.Warnf("failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	log.Info("running database migrations")
	if err := migrations.RunMigrations(cfg.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	dbMaintenance := db.NewMaintenanceCoordinator(cfg.DB.Path, database, &cfg.Maintenance, log.WithComponent(common.ComponentMaintenance))
	if err := dbMaintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}
	defer func() {
		if err := dbMaintenance.Stop(); err != nil {
			log.Warnf("failed to stop database maintenance: %v", err)
		}
	}()

	repo := repository.New(log)
	guard := integrity.New(repo)
	buffer := prefetch.New(cfg.Sync.BufferSize)

	engine := sync.New(chainClient, database, repo, guard, buffer, dbMaintenance, cfg.Sync, log)

	if cfg.API.Enabled {
		apiServer := api.NewServer(&cfg.API, database, repo, chainClient, log.WithComponent(common.ComponentAPI))
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				log.Errorf("API server error: %v", err)
			}
		}()
	}

	log.Info("starting sync engine")
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("sync engine failed: %w", err)
	}

	log.Info("evmsyncd stopped")
	return nil
}
