package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"productstudio/internal/adapter/repo"
	"productstudio/internal/domain"
	"productstudio/internal/http/handlers"
	"productstudio/internal/http/httpapi"
	"productstudio/internal/infra"
	imageprovider "productstudio/internal/providers/image"
	"productstudio/internal/providers/vision"
	"productstudio/internal/service"
	"productstudio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	productRepo := repo.NewProductRepository(pool)
	referenceRepo := repo.NewReferenceImageRepository(pool)
	specRepo := repo.NewSpecificationRepository(pool)
	generationRepo := repo.NewGenerationRepository(pool)

	products := service.NewProducts(productRepo, logger)
	references := service.NewReferences(productRepo, referenceRepo, fileStore, logger)
	specs := service.NewSpecifications(productRepo, specRepo, fileStore, logger)
	analysis := service.NewAnalysis(productRepo, referenceRepo, specs, fileStore, newAnalyzer(cfg, logger), logger)
	orchestrator := service.NewOrchestrator(
		productRepo, referenceRepo, specRepo, generationRepo,
		fileStore, newGenerator(cfg, logger), cfg.GenerationTimeout, logger,
	)

	var dispatcher service.Dispatcher = service.NoopDispatcher{}
	if cfg.InlineDispatch {
		dispatcher = service.NewGoDispatcher(orchestrator, logger)
		logger.Info().Msg("inline dispatch enabled, requests process in-process")
	}

	app := &handlers.App{
		Config:     cfg,
		Logger:     logger,
		Products:   products,
		References: references,
		Specs:      specs,
		Analysis:   analysis,
		Generation: orchestrator,
		Dispatcher: dispatcher,
		Files:      fileStore,
	}
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// newAnalyzer falls back to a disabled stand-in when no API key is set, so
// the rest of the API keeps working.
func newAnalyzer(cfg *infra.Config, logger infra.Logger) vision.Analyzer {
	analyzer, err := vision.NewOpenAIAnalyzer(vision.OpenAIOptions{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("vision analyzer not configured")
		return disabledAnalyzer{}
	}
	return analyzer
}

func newGenerator(cfg *infra.Config, logger infra.Logger) imageprovider.Generator {
	generator, err := imageprovider.NewGeminiGenerator(imageprovider.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("image generator not configured")
		return disabledGenerator{}
	}
	return generator
}

type disabledAnalyzer struct{}

func (disabledAnalyzer) Analyze(context.Context, vision.AnalyzeRequest) (*vision.Analysis, error) {
	return nil, fmt.Errorf("%w: vision model not configured", domain.ErrAdapterFailure)
}

type disabledGenerator struct{}

func (disabledGenerator) Generate(context.Context, imageprovider.GenerateRequest) (*imageprovider.Result, error) {
	return nil, fmt.Errorf("%w: image model not configured", domain.ErrAdapterFailure)
}
