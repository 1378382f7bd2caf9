package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearthboard/core/internal/adapters/remote"
	"github.com/hearthboard/core/internal/adapters/repository"
	"github.com/hearthboard/core/internal/application/services"
	"github.com/hearthboard/core/internal/infrastructure/config"
	"github.com/hearthboard/core/internal/infrastructure/database"
	"github.com/hearthboard/core/internal/infrastructure/database/migrations"
	"github.com/hearthboard/core/internal/infrastructure/logger"
	"github.com/hearthboard/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Hearthboard server",
		Long:  "Start the Hearthboard calendar server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			withDatabase(func(db *database.DB) {
				if err := migrations.Up(db.DB.DB); err != nil {
					log.Fatalf("Migration failed: %v", err)
				}
				fmt.Println("Migration up completed successfully")
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Run: func(cmd *cobra.Command, args []string) {
			withDatabase(func(db *database.DB) {
				if err := migrations.Down(db.DB.DB); err != nil {
					log.Fatalf("Migration failed: %v", err)
				}
				fmt.Println("Migration down completed successfully")
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			withDatabase(func(db *database.DB) {
				version, dirty, err := migrations.Version(db.DB.DB)
				if err != nil {
					log.Fatalf("Failed to get migration version: %v", err)
				}
				fmt.Printf("Current migration version: %d\n", version)
				fmt.Printf("Dirty: %t\n", dirty)
			})
		},
	})

	return migrateCmd
}

// NewSyncCommand creates the one-shot sync command
func NewSyncCommand() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass in the foreground",
		Long:  "Fetch the remote snapshot for a month and the chores list and reconcile both into the local store",
		Run: func(cmd *cobra.Command, args []string) {
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			runSync(year, month)
		},
	}

	now := time.Now().UTC()
	syncCmd.Flags().Int("year", now.Year(), "Year to sync")
	syncCmd.Flags().Int("month", int(now.Month()), "Month to sync (1-12)")

	return syncCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Hearthboard version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Hearthboard Core v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	// The store lives on the appliance; keep its schema current on boot.
	if err := migrations.Up(db.DB.DB); err != nil {
		appLogger.Fatal("Failed to run migrations", "error", err)
	}

	srv, err := server.New(cfg, db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	appLogger.Info("Starting Hearthboard server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
			appLogger.Info("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Graceful shutdown failed", "error", err)
	}
}

func runSync(year, month int) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migrations.Up(db.DB.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	remoteSource, err := remote.NewClient(cfg.Google, appLogger)
	if err != nil {
		log.Fatalf("Failed to create remote client: %v", err)
	}

	registry := services.NewSyncRegistry(cfg.Google.SyncInterval(), appLogger)
	syncService := services.NewSyncService(
		repository.NewCalendarRepository(db.DB),
		repository.NewMonthRepository(db.DB),
		repository.NewEventRepository(db.DB),
		repository.NewChoreRepository(db.DB),
		remoteSource, registry, cfg.Google.CalendarAliases, appLogger, nil,
	)

	ctx := context.Background()

	monthOutcome, err := syncService.SyncMonth(ctx, year, month)
	if err != nil {
		log.Fatalf("Month sync failed: %v", err)
	}
	fmt.Printf("Month %d/%d synced, events changed: %t\n", month, year, monthOutcome.EventsChanged)

	choresOutcome, err := syncService.SyncChores(ctx)
	if err != nil {
		log.Fatalf("Chores sync failed: %v", err)
	}
	fmt.Printf("Chores synced, changed: %t\n", choresOutcome.ChoresChanged)
}

func withDatabase(fn func(*database.DB)) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	fn(db)
}
