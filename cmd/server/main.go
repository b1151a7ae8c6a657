package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"dreamshare/internal/dream"
	handlers "dreamshare/internal/handler"
	"dreamshare/internal/models"
	"dreamshare/pkg/ai"
	"dreamshare/pkg/backup"
	"dreamshare/pkg/cache"
	"dreamshare/pkg/config"
	"dreamshare/pkg/i18n"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/metrics"
	"dreamshare/pkg/middleware"
	"dreamshare/pkg/scheduler"
	"dreamshare/pkg/search"
	"dreamshare/pkg/storage"
	"dreamshare/pkg/util"
	"dreamshare/pkg/ws"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.GlobalConfig

	logger.Init(cfg.Log)
	defer logger.Sync()

	db, err := util.ConnectDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		os.Exit(1)
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}

	appCache, err := cache.NewCache(cache.Config{
		Type: cfg.CacheType,
		Redis: cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		},
	})
	if err != nil {
		logger.Error("cache init failed", zap.Error(err))
		os.Exit(1)
	}
	defer appCache.Close()

	translator, err := i18n.NewI18nSupport(cfg.DefaultLanguage)
	if err != nil {
		logger.Error("i18n init failed", zap.Error(err))
		os.Exit(1)
	}

	var searchEngine *search.Engine
	if cfg.SearchEnabled {
		searchEngine, err = search.NewEngine(cfg.SearchPath)
		if err != nil {
			logger.Error("search init failed", zap.Error(err))
			os.Exit(1)
		}
		defer searchEngine.Close()
	}

	var store storage.Store
	switch cfg.StorageType {
	case "minio":
		store = storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		store = storage.NewLocalStore(cfg.StoragePath)
	}

	pipeline, classifier := buildPipeline(cfg)
	hub := ws.NewHub()
	defer hub.Close()

	h := handlers.NewHandlers(handlers.Options{
		DB:         db,
		Pipeline:   pipeline,
		Classifier: classifier,
		Exporter:   dream.NewExporter(translator),
		Cache:      appCache,
		Search:     searchEngine,
		Store:      store,
		Hub:        hub,
		I18n:       translator,
	})

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.Middleware())

	limiter, err := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:      cfg.RateLimit,
		SkipPaths: []string{"/metrics", "/api/system/health"},
	}, nil)
	if err != nil {
		logger.Error("rate limiter init failed", zap.Error(err))
		os.Exit(1)
	}
	engine.Use(limiter.Middleware())

	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		logger.Warn("SESSION_SECRET not set, using an insecure default")
		sessionSecret = "dreamshare-dev-secret"
	}
	engine.Use(sessions.Sessions("dreamshare", cookie.NewStore([]byte(sessionSecret))))

	h.Register(engine)

	cron := scheduler.NewCron(time.Local)
	if cfg.BackupEnabled {
		if err := backup.Start(cron, backup.Config{
			Driver:   cfg.DBDriver,
			DSN:      cfg.DSN,
			Path:     cfg.BackupPath,
			Schedule: cfg.BackupSchedule,
		}); err != nil {
			logger.Error("backup scheduling failed", zap.Error(err))
			os.Exit(1)
		}
	}
	cron.Start()
	defer cron.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

// buildPipeline wires the AI capabilities that have credentials
// configured. Missing providers leave the corresponding fallback in
// charge.
// imageProviders assembles the image fallback chain. The free endpoint
// is always tried first; a configured paid provider slots in after it,
// ahead of the local SVG placeholder.
func imageProviders(cfg *config.Config, log *logrus.Logger) []ai.ImageGenerator {
	providers := []ai.ImageGenerator{ai.NewPollinationsHandler("", log)}
	if cfg.ImageAPIKey != "" {
		providers = append(providers, ai.NewOpenAIImageHandler(cfg.ImageAPIKey, log))
	}
	return providers
}

func buildPipeline(cfg *config.Config) (*dream.Pipeline, *dream.EmotionClassifier) {
	aiLog := logrus.New()

	var stt ai.SpeechToText
	var llm ai.TextGenerator
	if cfg.AIApiKey != "" {
		openAI := ai.NewOpenAIHandler(ai.OpenAIConfig{
			APIKey:       cfg.AIApiKey,
			BaseURL:      cfg.AIBaseURL,
			WhisperModel: cfg.WhisperModel,
			ChatModel:    cfg.ChatModel,
		}, aiLog)
		stt = openAI
		llm = openAI
	}

	providers := imageProviders(cfg, aiLog)

	var sentiment ai.SentimentClassifier
	if cfg.SentimentAPIKey != "" {
		sentiment = ai.NewHuggingFaceHandler(cfg.SentimentAPIKey, cfg.SentimentURL, aiLog)
	}

	classifier := dream.NewEmotionClassifier(llm, sentiment)
	pipeline := dream.NewPipeline(
		dream.NewAudioValidator(int(cfg.AudioMaxMB)),
		dream.NewTranscriber(stt),
		dream.NewPromptReformer(llm),
		dream.NewImageSynthesizer(providers...),
		classifier,
	)
	return pipeline, classifier
}
