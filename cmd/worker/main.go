package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"productstudio/internal/adapter/repo"
	"productstudio/internal/domain"
	"productstudio/internal/infra"
	imageprovider "productstudio/internal/providers/image"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	generator, err := imageprovider.NewGeminiGenerator(imageprovider.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("worker: image generator not configured, requests will fail")
	}

	productRepo := repo.NewProductRepository(pool)
	referenceRepo := repo.NewReferenceImageRepository(pool)
	specRepo := repo.NewSpecificationRepository(pool)
	generationRepo := repo.NewGenerationRepository(pool)

	var gen imageprovider.Generator = failingGenerator{}
	if generator != nil {
		gen = generator
	}
	orchestrator := service.NewOrchestrator(
		productRepo, referenceRepo, specRepo, generationRepo,
		fileStore, gen, cfg.GenerationTimeout, logger,
	)

	w := &worker{
		requests:     generationRepo,
		orchestrator: orchestrator,
		pollEvery:    cfg.WorkerPollEvery,
		concurrency:  cfg.WorkerConcurrency,
		logger:       logger,
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

type worker struct {
	requests     domain.GenerationRepository
	orchestrator *service.Orchestrator
	pollEvery    time.Duration
	concurrency  int
	logger       infra.Logger
}

// Run claims pending requests and processes them with bounded concurrency.
// Each claimed request is already flipped to processing by the claim query,
// so two workers never race on the same row.
func (w *worker) Run(ctx context.Context) error {
	w.logger.Info().Int("concurrency", w.concurrency).Msg("worker: started")

	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)

	for {
		if err := ctx.Err(); err != nil {
			break
		}

		req, err := w.requests.ClaimNextPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.Error().Err(err).Msg("worker: claim failed")
			w.sleep(ctx)
			continue
		}
		if req == nil {
			w.sleep(ctx)
			continue
		}

		id := req.ID
		w.logger.Info().Str("request_id", id).Msg("worker: claimed request")
		g.Go(func() error {
			if err := w.orchestrator.Process(ctx, id); err != nil {
				w.logger.Error().Err(err).Str("request_id", id).Msg("worker: processing failed")
			}
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}

func (w *worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollEvery):
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, imageprovider.GenerateRequest) (*imageprovider.Result, error) {
	return nil, fmt.Errorf("%w: image model not configured", domain.ErrAdapterFailure)
}
