package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/mutasi/backend/internal/application/catalog"
	mutationapp "github.com/mutasi/backend/internal/application/mutation"
	"github.com/mutasi/backend/internal/domain/esb"
	"github.com/mutasi/backend/internal/domain/shared"
	"github.com/mutasi/backend/internal/infrastructure/auth"
	"github.com/mutasi/backend/internal/infrastructure/cache"
	"github.com/mutasi/backend/internal/infrastructure/config"
	"github.com/mutasi/backend/internal/infrastructure/erp"
	"github.com/mutasi/backend/internal/infrastructure/esbclient"
	"github.com/mutasi/backend/internal/infrastructure/logger"
	"github.com/mutasi/backend/internal/infrastructure/persistence"
	"github.com/mutasi/backend/internal/infrastructure/printing"
	"github.com/mutasi/backend/internal/infrastructure/sheets"
	"github.com/mutasi/backend/internal/infrastructure/storage"
	"github.com/mutasi/backend/internal/interfaces/http/handler"
	"github.com/mutasi/backend/internal/interfaces/http/middleware"
	"github.com/mutasi/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Mutasi Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	mutationRepo := persistence.NewGormMutationRepository(db.DB, log)

	// Idempotency store: Redis when configured, in-process otherwise
	var idempotency shared.IdempotencyStore
	if cfg.Redis.Host != "" {
		redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisStore.Close()
		}()
		idempotency = redisStore
		log.Info("Redis idempotency store connected")
	} else {
		memStore := cache.NewInMemoryIdempotencyStore()
		defer memStore.Close()
		idempotency = memStore
		log.Warn("Redis not configured, duplicate-submission guard is per process only")
	}

	// ESB client with the sheet-backed credential store
	var store, fallback esb.CredentialBackend
	sheetCfg := sheets.Config{
		GasURL:    cfg.Sheets.GasURL,
		APISecret: cfg.Sheets.APISecret,
		SheetName: cfg.Sheets.SheetName,
		GID:       cfg.Sheets.GID,
		Timeout:   cfg.Sheets.Timeout,
	}
	if sheetCfg.Configured() {
		store = sheets.NewCredentialStore(sheets.NewClient(sheetCfg))
	} else {
		log.Warn("Credential sheet not configured, ESB login relies on config credentials")
	}

	// The runtime config sheet can live behind its own endpoint; without
	// one it shares the credential endpoint.
	configCfg := sheets.Config{
		GasURL:    cfg.Sheets.ConfigGasURL,
		APISecret: cfg.Sheets.ConfigAPISecret,
		SheetName: cfg.Sheets.ConfigSheetName,
		GID:       cfg.Sheets.ConfigGID,
		Timeout:   cfg.Sheets.Timeout,
	}
	if !configCfg.Configured() {
		configCfg = sheetCfg
	}
	if configCfg.Configured() {
		fallback = sheets.NewConfigManager(sheets.NewClient(configCfg))
	}

	flagActive := cfg.Esb.FlagActive
	esbClient := esbclient.NewClient(esbclient.Config{
		BaseURL:          cfg.Esb.BaseURL,
		Username:         cfg.Esb.Username,
		Password:         cfg.Esb.Password,
		Timeout:          cfg.Esb.Timeout,
		LoginTimeout:     cfg.Esb.LoginTimeout,
		DetailTimeout:    cfg.Esb.DetailTimeout,
		TokenTTL:         cfg.Esb.TokenTTL,
		TokenBuffer:      cfg.Esb.TokenBuffer,
		RefreshTTL:       cfg.Esb.RefreshTTL,
		ProductDetailTTL: cfg.Esb.ProductDetailTTL,
		ProductListTTL:   cfg.Esb.ProductListTTL,
		DetailRetryDelay: cfg.Esb.DetailRetryDelay,
		ListLimit:        cfg.Esb.ListLimit,
		FlagActive:       &flagActive,
	}, store, fallback, log)

	// Odoo ERP client
	odooClient := erp.NewClient(erp.Config{
		URL:       cfg.Odoo.URL,
		DB:        cfg.Odoo.DB,
		Username:  cfg.Odoo.Username,
		Password:  cfg.Odoo.Password,
		CompanyID: cfg.Odoo.CompanyID,
		Timeout:   cfg.Odoo.Timeout,
	}, log)

	catalogService := catalogapp.NewService(catalogapp.Config{
		OutletTTL:  cfg.Catalog.OutletTTL,
		ProductTTL: cfg.Catalog.ProductTTL,
	}, odooClient, odooClient, esbClient, log)

	// Attachment storage
	var attachments mutationapp.AttachmentStore
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3AttachmentStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize attachment storage", zap.Error(err))
		}
		attachments = s3Store
		log.Info("Attachment storage ready", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		log.Warn("Attachment storage disabled, submissions cannot carry files")
	}

	// PDF printer
	var printer mutationapp.FormPrinter
	if cfg.Printing.Enabled {
		renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
			Timeout: cfg.Printing.Timeout,
			Logger:  log,
		})
		defer func() {
			_ = renderer.Close()
		}()
		printer = renderer
		log.Info("PDF renderer ready")
	} else {
		log.Warn("PDF rendering disabled, form previews are unavailable")
	}

	mutationService := mutationapp.NewService(mutationRepo, catalogService,
		idempotency, attachments, printer, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog(log))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORS(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	// Health probes stay outside the auth wall, everything else behind JWT
	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAuth(middleware.JWTAuth(jwtService, log)),
	).
		Register(handler.NewSystemHandler(cfg.App.Name, version, db)).
		RegisterProtected(handler.NewMutationHandler(mutationService)).
		RegisterProtected(handler.NewCatalogHandler(catalogService)).
		RegisterProtected(handler.NewEsbHandler(esbClient)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
