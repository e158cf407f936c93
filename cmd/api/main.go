package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"snackswap/internal/adapter/api"
	"snackswap/internal/adapter/api/handler"
	apimiddleware "snackswap/internal/adapter/api/middleware"
	"snackswap/internal/adapter/api/router"
	"snackswap/internal/adapter/repository"
	"snackswap/internal/infrastructure/cache"
	"snackswap/internal/infrastructure/firebase"
	"snackswap/internal/infrastructure/jwtauth"
	"snackswap/internal/infrastructure/ratelimit"
	"snackswap/internal/usecase"
	"snackswap/pkg/config"
	"snackswap/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, verifier, tokens := setupBackends(ctx, cfg)
	defer repos.Close()

	limiter := ratelimit.NewRateLimiter()
	go limiter.StartCleanupRoutine(ctx)

	settings := usecase.Settings{
		StoreTimeout:       cfg.StoreTimeout,
		RateLimiter:        limiter,
		TransitionAttempts: cfg.OfferTransitionAttempts,
	}

	var cachePinger handler.Pinger
	if cfg.RedisURL != "" {
		unreadCache, err := cache.NewRedisUnreadCache(cfg.RedisURL, cfg.UnreadCacheTTL)
		if err != nil {
			// Unread counts still work without the cache, only slower.
			logger.Warn("Redis unavailable, unread cache disabled: %v", err)
		} else {
			defer unreadCache.Close()
			settings.Cache = unreadCache
			cachePinger = unreadCache
			logger.Info("Unread cache enabled (ttl %v)", cfg.UnreadCacheTTL)
		}
	}

	threadUseCase := usecase.NewThreadUseCase(repos.Threads, repos.Listings, repos.Users, settings)
	messageUseCase := usecase.NewMessageUseCase(threadUseCase, repos.Threads, repos.Messages, settings)
	unreadUseCase := usecase.NewUnreadUseCase(repos.Threads, repos.Messages, repos.Offers, settings)
	offerUseCase := usecase.NewOfferUseCase(repos.Offers, repos.Listings, repos.Users, settings)
	listingUseCase := usecase.NewListingUseCase(repos.Listings, settings)
	reviewUseCase := usecase.NewReviewUseCase(repos.Reviews, repos.Users, repos.Offers, settings)
	userUseCase := usecase.NewUserUseCase(repos.Users, settings)

	handler.Setup(threadUseCase, messageUseCase, unreadUseCase, offerUseCase, listingUseCase, reviewUseCase, userUseCase)
	handler.SetupHealthHandler(repos.Driver, repos, cachePinger)
	if tokens != nil {
		handler.SetupDevTokenHandler(tokens, userUseCase)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	}))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	router.Setup(e, authMiddleware, limiter, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s (storage=%s, auth=%s)...", cfg.ServerPort, repos.Driver, cfg.AuthProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

// setupBackends opens the configured storage driver and picks the token
// verifier. The jwt service is returned only when AUTH_PROVIDER=jwt.
func setupBackends(ctx context.Context, cfg *config.Config) (*repository.Repositories, usecase.TokenVerifier, *jwtauth.Service) {
	var (
		repos    *repository.Repositories
		verifier usecase.TokenVerifier
		tokens   *jwtauth.Service
	)

	needsFirebase := cfg.StorageDriver == "firestore" || cfg.AuthProvider == "firebase"
	var opts []option.ClientOption
	if needsFirebase {
		opts = firebaseOptions(cfg)
	}

	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart")
		repos = repository.NewMemoryRepositories(repository.NewMemoryStore())
	case "postgres":
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to Postgres: %v", err)
		}
		if err := repository.ApplyMigrations(ctx, db); err != nil {
			logger.Fatal("Failed to apply migrations: %v", err)
		}
		repos = repository.NewPostgresRepositories(db)
	case "firestore":
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			logger.Fatal("Failed to create Firestore client: %v", err)
		}
		repos = repository.NewFirestoreRepositories(firestoreClient)
	default:
		logger.Fatal("Unknown STORAGE_DRIVER %q (want firestore, postgres or memory)", cfg.StorageDriver)
	}

	switch cfg.AuthProvider {
	case "firebase":
		firebaseApp, err := firebase.NewApp(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase: %v", err)
		}
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)
	case "jwt":
		tokens = jwtauth.NewService(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
		verifier = tokens
	default:
		logger.Fatal("Unknown AUTH_PROVIDER %q (want firebase or jwt)", cfg.AuthProvider)
	}

	return repos, verifier, tokens
}

func firebaseOptions(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseCredsJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseCredsJSON))}
	}
	if cfg.FirebaseCredentials != "" {
		if _, err := os.Stat(cfg.FirebaseCredentials); os.IsNotExist(err) {
			logger.Fatal("Service account file does not exist: %s", cfg.FirebaseCredentials)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseCredentials)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseCredentials)}
	}
	logger.Info("Using application default credentials for Firebase")
	return nil
}
