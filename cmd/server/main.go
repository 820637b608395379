package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/menuscan/menu-layout-service/api"
	"github.com/menuscan/menu-layout-service/internal/ai"
	"github.com/menuscan/menu-layout-service/internal/auth"
	"github.com/menuscan/menu-layout-service/internal/models"
	"github.com/menuscan/menu-layout-service/internal/observability"
	"github.com/menuscan/menu-layout-service/internal/ocr"
	"github.com/menuscan/menu-layout-service/internal/services"
	"github.com/menuscan/menu-layout-service/internal/session"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := loadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(config.Log.Level, config.Log.Format, os.Stderr)
	reporter := observability.NewLogReporter(logger)
	ctx := context.Background()

	// Classification chain: pre-tagged words, then the remote model, then the heuristic
	provider, err := ai.NewProvider(ctx, config.AI)
	if err != nil {
		logger.Error("failed to create AI provider", "provider", config.AI.DefaultProvider, "error", err)
		os.Exit(1)
	}
	classifiers := []ai.Classifier{ai.PretaggedClassifier{}}
	if provider != nil {
		if closer, ok := provider.(io.Closer); ok {
			defer closer.Close()
		}
		classifiers = append(classifiers, ai.NewRemoteClassifier(provider, config.AITimeout(), logger))
	} else {
		logger.Warn("no AI provider configured, using heuristic classification")
	}
	chain := ai.NewFallbackChain(logger, reporter, classifiers...)

	source, err := ocr.NewWordSource(config.OCR, logger)
	if err != nil {
		logger.Error("failed to create word source", "engine", config.OCR.Engine, "error", err)
		os.Exit(1)
	}
	if source == nil {
		logger.Warn("no OCR engine configured, only pre-recognized words are accepted")
	} else if source.Name() == "tesseract" && !ocr.Enabled {
		logger.Warn("tesseract selected but binary built without -tags ocr; image scans will fail")
	}

	analyzer := services.NewAnalyzer(chain, source, ocr.NewPreprocessor(config.OCR.MaxSide), config.Layout, reporter, logger)

	store := session.NewStore(config.Layout.FramePadding, config.DebounceDelay(), logger)
	defer store.Close()
	go sweepSessions(store, config.SweepInterval(), config.SessionIdle())

	authenticator := auth.NewAuthenticator(config.Auth.JWTSecret, config.TokenTTL())
	if !authenticator.Enabled() {
		logger.Warn("JWT_SECRET not set, sessions are selected by the " + auth.SessionHeader + " header")
	}

	handler := api.NewHandler(config, analyzer, store, authenticator, reporter, logger)
	router := handler.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	logger.Info("starting menu layout service",
		"version", api.Version,
		"addr", addr,
		"ocr_engine", analyzer.WordSourceName(),
		"ai_provider", config.AI.DefaultProvider,
		"classifiers", chain.Names(),
		"auth", authenticator.Enabled())
	logger.Info("endpoints",
		"session", "POST /api/session",
		"scan", "POST /api/scan",
		"words", "POST /api/scan/words",
		"current", "GET|DELETE /api/scan",
		"viewport", "PUT /api/scan/viewport",
		"highlights", "GET /api/scan/highlights",
		"overlay", "GET /api/scan/overlay.png",
		"tap", "POST /api/scan/tap",
		"health", "GET /health")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func sweepSessions(store *session.Store, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		store.Sweep(maxIdle)
	}
}

func loadConfig(path string) (*models.Config, error) {
	var config models.Config

	// Read config file; a missing file means defaults and environment only
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&config)
	config.ApplyDefaults()
	return &config, nil
}

// applyEnv overrides config values with environment variables if present
func applyEnv(config *models.Config) {
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.AI.Ollama.BaseURL = baseURL
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}
	if engine := os.Getenv("OCR_ENGINE"); engine != "" {
		config.OCR.Engine = engine
	}
	if apiKey := os.Getenv("YANDEX_VISION_API_KEY"); apiKey != "" {
		config.OCR.Vision.APIKey = apiKey
	}
	if folder := os.Getenv("YANDEX_FOLDER_ID"); folder != "" {
		config.OCR.Vision.FolderID = folder
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
