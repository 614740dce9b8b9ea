package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"tunechat/internal/adapter/api"
	"tunechat/internal/adapter/api/handler"
	apimiddleware "tunechat/internal/adapter/api/middleware"
	"tunechat/internal/adapter/api/router"
	"tunechat/internal/adapter/repository"
	"tunechat/internal/domain/service"
	"tunechat/internal/infrastructure/firebase"
	"tunechat/internal/infrastructure/memstore"
	"tunechat/internal/infrastructure/ratelimit"
	"tunechat/internal/infrastructure/storage"
	"tunechat/internal/infrastructure/websocket"
	"tunechat/internal/usecase"
	"tunechat/pkg/config"
	"tunechat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := usecase.SessionDeps{
		ConversationID: cfg.ConversationID,
		Options: usecase.Options{
			TypingIdle:     cfg.TypingIdle,
			TypingTTL:      cfg.TypingTTL,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
	}

	var verifier service.TokenVerifier
	if cfg.DevMode {
		logger.Warn("DEV_MODE enabled: using in-memory storage and dev:<uid> tokens")
		store := memstore.New()
		directory := memstore.NewDirectory()
		deps.Identities = directory
		deps.Messages = store
		deps.Presence = store.Presence()
		deps.Groups = store.Groups()
		deps.Blobs = memstore.NewBlobs()
		verifier = directory
	} else {
		opt := credentials(cfg)

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, "chat-media", opt)
		if err != nil {
			log.Fatalf("Failed to initialize Cloud Storage: %v", err)
		}
		defer storageClient.Close()

		firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient)
		deps.Identities = firebaseAuthClient
		deps.Messages = repository.NewFirestoreMessageRepository(firestoreClient)
		deps.Presence = repository.NewFirestorePresenceRepository(firestoreClient)
		deps.Groups = repository.NewFirestoreGroupRepository(firestoreClient)
		deps.Blobs = storageClient
		verifier = firebaseAuthClient
	}

	wsManager := websocket.NewManager()
	deps.Notices = func(userID string, n usecase.Notice) {
		if err := wsManager.SendJSON(userID, websocket.MessageTypeNotice, n); err != nil {
			logger.Error("Failed to push notice to %s: %v", userID, err)
		}
	}

	sessions := usecase.NewSessionManager(ctx, deps)
	wsManager.SetCommandHandler(sessions)
	wsManager.Start(ctx)

	if cfg.UserID != "" {
		if _, err := sessions.Get(ctx, cfg.UserID); err != nil {
			logger.Error("Failed to start session for %s: %v", cfg.UserID, err)
		}
	}

	rateLimiter := ratelimit.NewRateLimiter(ratelimit.DefaultLimits(cfg.SendRatePerMinute))
	rateLimiter.StartCleanupRoutine(ctx.Done())

	handler.Setup(ctx, sessions, wsManager, handler.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		DevMode:        cfg.DevMode,
	})

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	router.Setup(e, authMiddleware, rateLimiter)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
	// Engines flush their last presence delete before the clients close.
	sessions.Wait()
	<-wsManager.Done()
}

func credentials(cfg *config.Config) option.ClientOption {
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))
	}

	path := cfg.ServiceAccountPath
	if path == "" {
		path = "./serviceAccountKey.json"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Fatalf("Service account file does not exist: %s", path)
	}
	logger.Info("Using Firebase service account from file: %s", path)
	return option.WithCredentialsFile(path)
}
