// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"oikos-server/internal/api"
	"oikos-server/internal/auth"
	"oikos-server/internal/common/aws"
	"oikos-server/internal/common/config"
	"oikos-server/internal/common/database"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/common/observability"
	"oikos-server/internal/flows"
	"oikos-server/internal/property"
	"oikos-server/internal/search"
	"oikos-server/internal/vendor"
	"oikos-server/internal/verification"
	"oikos-server/internal/wizard"
	"oikos-server/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting oikos server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("oikos-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	// Declared as the interface so a disabled indexer stays a nil check
	// away in the property service.
	var indexer property.TextIndex
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = search.NewIndexer(esClient, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init delivery channels (optional) ---
	var emailSender auth.EmailSender
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = sesClient
		zapLog.Info("SES client initialized")
	}

	var smsSender auth.SMSSender
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		smsSender = snsClient
		zapLog.Info("SNS client initialized")
	}

	// --- Load wizard flow registry ---
	registryPath := cfg.Flows.RegistryPath
	if !filepath.IsAbs(registryPath) {
		registryPath = filepath.Join(".", registryPath)
	}
	flowRegistry, err := registry.LoadRegistry(registryPath)
	if err != nil {
		zapLog.Fatal("flow registry load failed", zap.Error(err))
	}
	zapLog.Info("Flow registry loaded", zap.Strings("flows", flowRegistry.Names()))

	// --- Wire services ---
	tokens := auth.NewTokenIssuer(cfg.Auth)
	verifier := auth.NewCodeVerifier(rdb, auth.CodeVerifierOptions{
		Email:      emailSender,
		SMS:        smsSender,
		FromEmail:  cfg.Integrations.AWS.SES.FromEmail,
		CodeLength: cfg.Verification.CodeLength,
		CodeTTL:    time.Duration(cfg.Verification.CodeTTL) * time.Second,
		ResendGap:  time.Duration(cfg.Verification.ResendGap) * time.Second,
		AcceptAny:  cfg.Verification.DebugAcceptAny,
	}, log)

	authSvc := auth.NewService(auth.NewUserRepository(pg.DB), tokens, verifier, rdb, cfg.Auth.MinPasswordLen, log)
	propertySvc := property.NewService(property.NewRepository(pg.DB), rdb, indexer, log)
	vendorSvc := vendor.NewService(pg.DB, verifier, log)
	verificationSvc := verification.NewService(pg.DB, log)

	sessionStore := wizard.NewSessionStore(rdb, time.Duration(cfg.Wizard.SessionTTL)*time.Second)
	services := flows.Services{
		Auth:         authSvc,
		Property:     propertySvc,
		Vendor:       vendorSvc,
		Verification: verificationSvc,
	}
	submitters := flows.Submitters(services, log)
	hooks := flows.EnterHooks(services, log)
	manager := flows.NewManager(flowRegistry, sessionStore, submitters, hooks, nil, log)

	handler := api.NewRouter(api.Handlers{
		Auth:     api.NewAuthHandler(authSvc, log),
		Property: api.NewPropertyHandler(propertySvc, float64(cfg.Search.DefaultMaxPrice), log),
		Wizard:   api.NewWizardHandler(manager, log),
	}, tokens, cfg.Server, log)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}
