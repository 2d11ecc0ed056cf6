package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"

	"padim-inspector/config"
	telegram "padim-inspector/internal/api"
	app "padim-inspector/internal/application"
	"padim-inspector/internal/container"
	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/padim"
	"padim-inspector/internal/infrastructure/imaging"
	"padim-inspector/internal/infrastructure/storage"
	"padim-inspector/internal/infrastructure/vision"
)

func runTrain(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Data.TrainDir == "" {
		return errors.New("PADIM_TRAIN_DIR is required")
	}
	env, err := openEnv(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	src, err := imaging.NewDirSource(cfg.Data.TrainDir, cfg.Model.BatchSize, env.pre)
	if err != nil {
		return err
	}
	logger.Info("training", "key", env.key.String(), "images", src.Len(), "dim", cfg.EmbeddingDim(env.arch))

	_, err = env.app.TrainingService.Train(ctx, src, app.TrainingConfig{
		Key:           env.key,
		Ridge:         cfg.PaDiM.Ridge,
		TotalChannels: env.arch.TotalChannels(),
		Dim:           cfg.EmbeddingDim(env.arch),
		Seed:          cfg.PaDiM.Seed,
	})
	return err
}

func runEval(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Data.TestDir == "" {
		return errors.New("PADIM_TEST_DIR is required")
	}
	env, err := openEnv(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	src, err := imaging.NewDirSource(cfg.Data.TestDir, cfg.Model.BatchSize, env.pre)
	if err != nil {
		return err
	}
	post, err := postProcessor(cfg)
	if err != nil {
		return err
	}

	eval, err := env.app.EvaluationService.Evaluate(ctx, env.key, src, post)
	if err != nil {
		return err
	}
	for i, name := range eval.Names {
		logger.Info("scored", "image", name, "score", eval.Scores[i])
	}
	return nil
}

func runBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	env, err := openEnv(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	inspection := app.InspectionConfig{
		Preprocessor: env.pre,
		Renderer:     imaging.NewHeatmapRenderer(cfg.PaDiM.Threshold),
		Quality:      vision.NewQualityGate(),
		Threshold:    cfg.PaDiM.Threshold,
		Logger:       logger,
	}
	post, err := postProcessor(cfg)
	if err != nil {
		return err
	}
	// Без обученного распределения бот запускается, но проверка недоступна.
	detector, err := app.LoadDetector(ctx, env.artifacts, env.key, env.extractor, post)
	switch {
	case err == nil:
		inspection.Detector = detector
	case errors.Is(err, storage.ErrArtifactNotFound):
		logger.Warn("distribution is not trained yet", "key", env.key.String())
	default:
		return err
	}

	appContainer := container.New(env.deps(), inspection)

	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, logger)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	logger.Info("bot is running")
	return bot.Run(ctx)
}

// runList печатает сохранённые распределения модальности из конфига,
// с флагом -all по всем модальностям.
func runList(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	all := fs.Bool("all", false, "list artifacts of every modality")
	if err := fs.Parse(args); err != nil {
		return err
	}
	artifacts, err := openArtifacts(ctx, cfg.Store)
	if err != nil {
		return err
	}
	modality := cfg.Data.Modality
	if *all {
		modality = ""
	}
	names, err := artifacts.List(ctx, modality)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// runDelete удаляет распределение текущего ключа и результаты его прохода.
func runDelete(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	arch, err := cfg.Arch()
	if err != nil {
		return err
	}
	artifacts, err := openArtifacts(ctx, cfg.Store)
	if err != nil {
		return err
	}
	key := entity.ArtifactKey{Arch: arch.Name, Experiment: cfg.Data.Experiment, Modality: cfg.Data.Modality}
	if err := artifacts.Delete(ctx, key); err != nil {
		return err
	}
	logger.Info("artifacts deleted", "key", key.String())
	return nil
}

// env — инфраструктура, общая для всех команд.
type env struct {
	arch      vision.Arch
	key       entity.ArtifactKey
	pre       *imaging.Preprocessor
	extractor *vision.DNNExtractor
	artifacts *storage.ArtifactRepository
	results   *storage.SQLiteResultRepository
	logger    *slog.Logger
	app       *container.Container
}

func openEnv(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*env, error) {
	arch, err := cfg.Arch()
	if err != nil {
		return nil, err
	}
	e := &env{
		arch:   arch,
		key:    entity.ArtifactKey{Arch: arch.Name, Experiment: cfg.Data.Experiment, Modality: cfg.Data.Modality},
		pre:    imaging.NewPreprocessor(cfg.Model.ImageSize),
		logger: logger,
	}

	e.extractor, err = vision.NewDNNExtractor(cfg.Model.Path, arch, cfg.Model.Backend, cfg.Model.Target)
	if err != nil {
		return nil, fmt.Errorf("load backbone: %w", err)
	}

	e.artifacts, err = openArtifacts(ctx, cfg.Store)
	if err != nil {
		e.Close()
		return nil, err
	}

	if cfg.Store.ResultsDB != "" {
		e.results, err = storage.OpenSQLiteResults(ctx, cfg.Store.ResultsDB)
		if err != nil {
			e.Close()
			return nil, err
		}
	}

	e.app = container.New(e.deps(), app.InspectionConfig{})
	return e, nil
}

func (e *env) deps() container.Deps {
	deps := container.Deps{
		Users:     storage.NewMemoryUserRepository(),
		Extractor: e.extractor,
		Artifacts: e.artifacts,
		Logger:    e.logger,
	}
	// Типизированный nil в интерфейсе не равен nil.
	if e.results != nil {
		deps.Results = e.results
	}
	return deps
}

func (e *env) Close() {
	if e.extractor != nil {
		_ = e.extractor.Close()
	}
	if e.results != nil {
		_ = e.results.Close()
	}
}

// openArtifacts открывает только хранилище артефактов, без модели.
func openArtifacts(ctx context.Context, cfg config.StoreConfig) (*storage.ArtifactRepository, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	compression, err := storage.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return storage.NewArtifactRepository(store, storage.Codec{Compression: compression}), nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (storage.BlobStore, error) {
	switch cfg.Kind {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Secure)
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return storage.NewMinioStore(client, cfg.Bucket, cfg.Prefix), nil
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return storage.NewS3Store(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return storage.NewLocalStore(cfg.Dir), nil
	}
}

func postProcessor(cfg *config.Config) (*padim.PostProcessor, error) {
	mask, err := cfg.MaskPolicy()
	if err != nil {
		return nil, err
	}
	return padim.NewPostProcessor(cfg.PaDiM.Sigma, mask)
}
