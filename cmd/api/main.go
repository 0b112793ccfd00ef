package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/pantry-backend/internal/config"
	"github.com/georgemunganga/pantry-backend/internal/logger"
	"github.com/georgemunganga/pantry-backend/internal/modules/auth"
	"github.com/georgemunganga/pantry-backend/internal/modules/inventory"
	"github.com/georgemunganga/pantry-backend/internal/modules/ocr"
	"github.com/georgemunganga/pantry-backend/internal/modules/receipt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := config.LoadEnv()
	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if err := cfg.Validate(); err != nil {
		zlog.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// ── Store ───────────────────────────────────────────────
	repo, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		zlog.Fatal("failed to open product store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()
	zlog.Info("product store ready", zap.String("driver", cfg.Store.Driver))

	level, err := inventory.ParseStockLevel(cfg.Inventory.DefaultStockLevel)
	if err != nil {
		zlog.Fatal("invalid default stock level", zap.Error(err))
	}
	inventoryService := inventory.NewService(repo, zlog.Named("inventory"), level)

	// ── OCR ─────────────────────────────────────────────────
	providers := ocr.Registry{
		ocr.ProviderMock: ocr.NewMockProvider(),
	}
	if cfg.OCR.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.OCR.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			zlog.Fatal("failed to create gemini client", zap.Error(err))
		}
		providers[ocr.ProviderGemini] = ocr.NewGeminiProvider(client, cfg.OCR.GeminiModel)
	}
	checkCtx, cancelCheck := context.WithTimeout(ctx, 15*time.Second)
	provider, err := providers.Select(checkCtx, cfg.OCR.Provider)
	cancelCheck()
	if err != nil {
		zlog.Fatal("ocr provider unavailable", zap.String("provider", cfg.OCR.Provider), zap.Error(err))
	}
	zlog.Info("ocr provider selected", zap.String("provider", cfg.OCR.Provider))

	// ── Receipt capture ─────────────────────────────────────
	camera := receipt.NewDeviceCamera(cfg.Camera.Device)
	sessions := receipt.NewManager(camera, provider, zlog.Named("receipt"))
	defer sessions.Close()

	// ── Router ──────────────────────────────────────────────
	authService := auth.NewService(cfg.Auth, zlog.Named("auth"))
	if !authService.Enabled() {
		zlog.Warn("household passcode not set, API is unauthenticated")
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	auth.NewHandler(authService, zlog.Named("auth")).RegisterRoutes(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authService))
		inventory.NewHandler(inventoryService, zlog.Named("inventory")).RegisterRoutes(r)
		receipt.NewHandler(sessions, inventoryService, zlog.Named("receipt")).RegisterRoutes(r)
	})

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// OCR calls can take a while.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("pantry API server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-quit:
		zlog.Info("shutdown signal received", zap.String("signal", s.String()))
	case err := <-serveErr:
		// Returning through the shutdown path still releases the camera and the store.
		zlog.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http shutdown error", zap.Error(err))
	}
	zlog.Info("server stopped")
}

// openStore opens the configured product repository and returns a function releasing it.
func openStore(ctx context.Context, cfg config.StoreConfig) (inventory.Repository, func(), error) {
	if cfg.Driver != config.StoreDriverPostgres {
		repo, err := inventory.NewFileRepository(cfg.Path)
		return repo, func() {}, err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := inventory.EnsureSchema(pingCtx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return inventory.NewPostgresRepository(db), func() { db.Close() }, nil
}
