// Package main provides the template governance server entry point.
// It hosts the version registry and change-request workflow API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/docuflow/template-governance/pkg/governance"
)

func main() {
	var (
		listenAddr   string
		configPath   string
		databaseType string
		databaseDSN  string
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&configPath, "config", "", "Path to governance config YAML")
	flag.StringVar(&databaseType, "db-type", "postgres", "Database type (postgres, mysql, or sqlite)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string")
	flag.Parse()

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	// Set up structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting governance server",
		"listen", listenAddr,
		"config", configPath,
		"dbType", databaseType,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := governance.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("loaded config",
		"stakeholders", len(cfg.Stakeholders),
		"auditRetentionDays", cfg.AuditRetention.Days,
		"initialDefaults", len(cfg.InitialDefaults),
	)

	gormDB, err := setupDatabase(databaseType, databaseDSN)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	// Stores and migrations.
	registry := governance.NewVersionRegistry(gormDB)
	requests := governance.NewRequestStore(gormDB)
	history := governance.NewHistoryStore(gormDB)
	auditStore := governance.NewAuditStore(gormDB)
	for name, migrate := range map[string]func() error{
		"registry": registry.AutoMigrate,
		"requests": requests.AutoMigrate,
		"history":  history.AutoMigrate,
		"audit":    auditStore.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			glog.Fatalf("Failed to migrate %s schema: %v", name, err)
		}
	}

	// Seed initial default pointers for categories that have none yet.
	for category, versionID := range cfg.InitialDefaults {
		seeded, err := registry.SetInitialDefault(category, versionID, "system")
		if err != nil {
			glog.Fatalf("Failed to seed default for %s: %v", category, err)
		}
		if seeded {
			logger.Info("seeded initial default", "category", category, "versionId", versionID)
		}
	}

	audit := governance.NewAuditTrail(auditStore, logger)
	directory := governance.NewStaticDirectory(cfg.Stakeholders)
	validator := governance.NewMetadataValidationService(registry)
	safety := governance.NewSafetyRunner(registry, validator, cfg.MinPerformanceScore)
	assessor := governance.NewImpactAssessor(registry)
	notifier := governance.NewLogNotifier(logger)

	orch := governance.NewOrchestrator(registry, requests, history, assessor, directory, safety, audit, notifier, logger)
	orch.SetEmergencyContact(cfg.EmergencyContact)

	// Periodic audit retention sweep.
	if cfg.AuditRetention.Days > 0 {
		go runRetentionSweep(ctx, auditStore, cfg.AuditRetention.Days, logger)
	}

	router := chi.NewRouter()
	router.Use(requestIDMiddleware)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Mount("/api/governance/v1alpha1", governance.NewRouter(orch, registry, auditStore, audit))

	logger.Info("governance server ready", "listen", listenAddr)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("governance server stopped")
}

// runRetentionSweep deletes audit events older than the retention window,
// once at startup and then daily.
func runRetentionSweep(ctx context.Context, store *governance.AuditStore, days int, logger *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	sweep := func() {
		cutoff := time.Now().AddDate(0, 0, -days)
		deleted, err := store.DeleteOlderThan(cutoff)
		if err != nil {
			logger.Error("audit retention sweep failed", "error", err)
			return
		}
		if deleted > 0 {
			logger.Info("audit retention sweep", "deleted", deleted, "cutoff", cutoff)
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// requestIDMiddleware tags each request with a correlation id header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func setupDatabase(dbType, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is required (use -db-dsn flag or DATABASE_DSN environment variable)")
		}
	}

	if dbType == "" {
		dbType = os.Getenv("DATABASE_TYPE")
		if dbType == "" {
			dbType = "postgres"
		}
	}

	var dialector gorm.Dialector
	switch dbType {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (expected postgres, mysql, or sqlite)", dbType)
	}

	// TranslateError is required so unique-constraint violations surface as
	// gorm.ErrDuplicatedKey across all three drivers.
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return gormDB, nil
}
