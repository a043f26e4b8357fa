package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/novelvoice-team/novelvoice/pkg/validator"

	"github.com/novelvoice-team/novelvoice/internal/adapter/handler"
	"github.com/novelvoice-team/novelvoice/internal/adapter/repository"
	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/cache"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/database"
	httpmw "github.com/novelvoice-team/novelvoice/internal/infrastructure/http/middleware"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/storage"
	audiouse "github.com/novelvoice-team/novelvoice/internal/usecase/audio"
	authuse "github.com/novelvoice-team/novelvoice/internal/usecase/auth"
	hlsuse "github.com/novelvoice-team/novelvoice/internal/usecase/hls"
	noveluse "github.com/novelvoice-team/novelvoice/internal/usecase/novel"
	"github.com/novelvoice-team/novelvoice/pkg/config"
	"github.com/novelvoice-team/novelvoice/pkg/jwt"
	"github.com/novelvoice-team/novelvoice/pkg/llm"
	"github.com/novelvoice-team/novelvoice/pkg/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	validator := pkgvalidator.New()
	e.Validator = validator

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     append([]string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}, handler.StreamRequestHeaders...),
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run GORM AutoMigrate only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running GORM AutoMigrate (development only) ...")
		if err := database.AutoMigrateDev(db); err != nil {
			log.Fatalf("Failed to run AutoMigrate: %v", err)
		}
	} else {
		log.Println("🔄 Applying sql-migrate migrations...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Redis; playback sessions degrade to in-memory without it
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Printf("⚠️  Redis unavailable, playback sessions will not survive restarts: %v", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	userRepo := repository.NewUserRepository(db)
	novelRepo := repository.NewNovelRepository(db)
	chapterRepo := repository.NewChapterRepository(db)
	characterRepo := repository.NewCharacterRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	// Initialize object storage for completed-audio archival and source mirroring
	var (
		archiver    audiouse.Archiver
		minioClient *storage.MinIOClient
	)
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		minioClient, err = storage.NewMinIOClient(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		archiver = minioClient
	} else {
		log.Println("🗄️  Object storage disabled, finished audio stays on local disk")
	}

	// Initialize JWT manager
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	// Initialize TTS backend
	log.Println("🗣️  Initializing TTS backend...")
	ttsBackend, err := tts.NewBackend(&cfg.TTS)
	if err != nil {
		log.Fatalf("Failed to initialize TTS backend: %v", err)
	}
	log.Printf("✅ TTS backend: %s", ttsBackend.Name())

	// Initialize voice table
	voiceTable, err := audiouse.LoadVoiceTable(cfg.Audio.VoiceTablePath, cfg.Audio.NarratorVoice)
	if err != nil {
		log.Fatalf("Failed to load voice table: %v", err)
	}

	// Script LLM factory honoring per-novel overrides
	newLLM := func(novel *entities.Novel) audiouse.ScriptLLM {
		return llm.NewClient(&cfg.LLM, llm.Options{
			APIKey:  novel.LLMAPIKey,
			BaseURL: novel.LLMBaseURL,
			Model:   novel.LLMModel,
		})
	}

	// Initialize audio generation services
	log.Println("🎙️  Initializing audio generation pipeline...")
	if err := os.MkdirAll(cfg.Audio.Folder, 0o755); err != nil {
		log.Fatalf("Failed to create audio folder: %v", err)
	}
	scriptGen := audiouse.NewScriptGenerator(cfg, characterRepo, voiceTable, newLLM, logger)
	checkpoints := audiouse.NewCheckpointStore(cfg.Audio.VerifyCheckpoint, logger)
	admission := audiouse.NewAdmissionManager()
	sessions := audiouse.NewSessionStore(redisClient, logger)
	pipeline := audiouse.NewPipeline(cfg, scriptGen, ttsBackend, checkpoints, chapterRepo, admission, archiver, logger)

	novelService := noveluse.NewService(novelRepo, chapterRepo, filepath.Join(cfg.Audio.Folder, "novels"), logger)
	audioService := audiouse.NewService(cfg, novelRepo, chapterRepo, progressRepo, novelService, scriptGen, pipeline, admission, sessions, logger)
	if minioClient != nil {
		novelService.SetSourceStore(minioClient)
		audioService.SetArchiveLinker(minioClient)
	}

	// Initialize HLS transcoder
	log.Println("🎬 Initializing HLS transcoder...")
	transcoder := hlsuse.NewTranscoder(&cfg.HLS, nil, logger)

	// Initialize auth service
	authService := authuse.NewService(userRepo, jwtManager)

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	authMW := httpmw.NewAuthMiddleware(jwtManager)
	authHandler := handler.NewAuth(authService, jwtManager, validator, logger)
	novelHandler := handler.NewNovel(novelService, validator, logger)
	audioHandler := handler.NewAudio(audioService, validator, logger)
	hlsHandler := handler.NewHLS(audioService, transcoder, cfg, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, authMW, authHandler, novelHandler, audioHandler, hlsHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
