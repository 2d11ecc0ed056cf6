package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"padim-inspector/internal/domain/padim"
	"padim-inspector/internal/infrastructure/storage"
	"padim-inspector/internal/infrastructure/vision"
)

type Config struct {
	TelegramToken string      `yaml:"telegram_token"`
	Model         ModelConfig `yaml:"model"`
	PaDiM         PaDiMConfig `yaml:"padim"`
	Data          DataConfig  `yaml:"data"`
	Store         StoreConfig `yaml:"store"`
	Log           LogConfig   `yaml:"log"`
}

// ModelConfig — бэкбон и вход сети.
type ModelConfig struct {
	Arch      string   `yaml:"arch"`
	Path      string   `yaml:"path"`
	Layers    []string `yaml:"layers"`  // имена выходов layer1..layer3; пусто: по пресету
	Backend   string   `yaml:"backend"` // бэкенд OpenCV DNN
	Target    string   `yaml:"target"`  // устройство: cpu, cuda, opencl...
	ImageSize int      `yaml:"image_size"`
	BatchSize int      `yaml:"batch_size"`
}

// PaDiMConfig — параметры распределения и постобработки.
type PaDiMConfig struct {
	Dim       int     `yaml:"dim"` // 0: размерность по пресету архитектуры
	Seed      uint64  `yaml:"seed"`
	Ridge     float64 `yaml:"ridge"`
	Sigma     float64 `yaml:"sigma"`
	Mask      string  `yaml:"mask"` // none, min; пусто: по модальности
	Threshold float64 `yaml:"threshold"`
}

type DataConfig struct {
	Modality   string `yaml:"modality"`
	Experiment string `yaml:"experiment"`
	TrainDir   string `yaml:"train_dir"`
	TestDir    string `yaml:"test_dir"`
}

// StoreConfig — где лежат артефакты и журнал оценок.
type StoreConfig struct {
	Kind        string `yaml:"kind"` // local, minio, s3
	Dir         string `yaml:"dir"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Endpoint    string `yaml:"endpoint"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	Secure      bool   `yaml:"secure"`
	Region      string `yaml:"region"`
	Compression string `yaml:"compression"`
	ResultsDB   string `yaml:"results_db"` // пусто: журнал не ведётся
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Arch:      "resnet18",
			Backend:   "default",
			Target:    "cpu",
			ImageSize: 224,
			BatchSize: 32,
		},
		PaDiM: PaDiMConfig{
			Seed:  42,
			Ridge: padim.DefaultRidge,
			Sigma: padim.DefaultSigma,
		},
		Data: DataConfig{
			Modality:   "MVTec",
			Experiment: "default",
		},
		Store: StoreConfig{
			Kind:        "local",
			Dir:         "artifacts",
			Compression: "zstd",
			ResultsDB:   "padim_results.db",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("PADIM_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile накладывает значения из YAML-файла поверх текущих.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv перекрывает значения переменными окружения.
func (c *Config) applyEnv() error {
	e := &envReader{}
	e.stringVar("TELEGRAM_TOKEN", &c.TelegramToken)

	e.stringVar("PADIM_ARCH", &c.Model.Arch)
	e.stringVar("PADIM_MODEL_PATH", &c.Model.Path)
	e.listVar("PADIM_LAYERS", &c.Model.Layers)
	e.stringVar("PADIM_BACKEND", &c.Model.Backend)
	e.stringVar("PADIM_TARGET", &c.Model.Target)
	e.intVar("PADIM_IMAGE_SIZE", &c.Model.ImageSize)
	e.intVar("PADIM_BATCH_SIZE", &c.Model.BatchSize)

	e.intVar("PADIM_DIM", &c.PaDiM.Dim)
	e.uint64Var("PADIM_SEED", &c.PaDiM.Seed)
	e.floatVar("PADIM_RIDGE", &c.PaDiM.Ridge)
	e.floatVar("PADIM_SIGMA", &c.PaDiM.Sigma)
	e.stringVar("PADIM_MASK", &c.PaDiM.Mask)
	e.floatVar("PADIM_THRESHOLD", &c.PaDiM.Threshold)

	e.stringVar("PADIM_MODALITY", &c.Data.Modality)
	e.stringVar("PADIM_EXPERIMENT", &c.Data.Experiment)
	e.stringVar("PADIM_TRAIN_DIR", &c.Data.TrainDir)
	e.stringVar("PADIM_TEST_DIR", &c.Data.TestDir)

	e.stringVar("PADIM_STORE", &c.Store.Kind)
	e.stringVar("PADIM_STORE_DIR", &c.Store.Dir)
	e.stringVar("PADIM_BUCKET", &c.Store.Bucket)
	e.stringVar("PADIM_PREFIX", &c.Store.Prefix)
	e.stringVar("MINIO_ENDPOINT", &c.Store.Endpoint)
	e.stringVar("MINIO_ACCESS_KEY", &c.Store.AccessKey)
	e.stringVar("MINIO_SECRET_KEY", &c.Store.SecretKey)
	e.boolVar("MINIO_SECURE", &c.Store.Secure)
	e.stringVar("AWS_REGION", &c.Store.Region)
	e.stringVar("PADIM_COMPRESSION", &c.Store.Compression)
	e.stringVar("PADIM_RESULTS_DB", &c.Store.ResultsDB)

	e.stringVar("LOG_LEVEL", &c.Log.Level)
	e.stringVar("LOG_FORMAT", &c.Log.Format)
	return e.err
}

// Validate возвращает первую найденную ошибку конфигурации.
func (c *Config) Validate() error {
	if _, err := c.Arch(); err != nil {
		return err
	}
	if c.Model.ImageSize < 4 {
		return fmt.Errorf("image size must be at least 4, got %d", c.Model.ImageSize)
	}
	if c.Model.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Model.BatchSize)
	}
	if c.PaDiM.Dim < 0 {
		return fmt.Errorf("embedding dim must be non-negative, got %d", c.PaDiM.Dim)
	}
	if !(c.PaDiM.Ridge > 0) {
		return fmt.Errorf("%w: got %v", padim.ErrInvalidRidge, c.PaDiM.Ridge)
	}
	if c.PaDiM.Sigma < 0 {
		return fmt.Errorf("%w: got %v", padim.ErrInvalidSigma, c.PaDiM.Sigma)
	}
	if _, err := c.MaskPolicy(); err != nil {
		return err
	}
	if c.Data.Modality == "" || c.Data.Experiment == "" {
		return errors.New("modality and experiment are required")
	}
	if _, err := storage.ParseCompression(c.Store.Compression); err != nil {
		return err
	}
	switch c.Store.Kind {
	case "local":
		if c.Store.Dir == "" {
			return errors.New("local store requires PADIM_STORE_DIR")
		}
	case "minio":
		if c.Store.Endpoint == "" || c.Store.Bucket == "" {
			return errors.New("minio store requires MINIO_ENDPOINT and PADIM_BUCKET")
		}
	case "s3":
		if c.Store.Bucket == "" {
			return errors.New("s3 store requires PADIM_BUCKET")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store.Kind)
	}
	return nil
}

// Arch возвращает пресет архитектуры с учётом переопределённых имён слоёв.
func (c *Config) Arch() (vision.Arch, error) {
	arch, err := vision.LookupArch(c.Model.Arch)
	if err != nil {
		return vision.Arch{}, err
	}
	return arch.WithLayers(c.Model.Layers)
}

// EmbeddingDim возвращает число отбираемых каналов: явное или по пресету.
func (c *Config) EmbeddingDim(arch vision.Arch) int {
	if c.PaDiM.Dim > 0 {
		return c.PaDiM.Dim
	}
	return arch.Dim
}

// MaskPolicy возвращает политику маски; без явного значения она выводится из модальности.
func (c *Config) MaskPolicy() (padim.MaskPolicy, error) {
	if c.PaDiM.Mask == "" {
		return padim.MaskPolicyForModality(c.Data.Modality), nil
	}
	return padim.ParseMaskPolicy(c.PaDiM.Mask)
}

type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(key, value string, err error) {
	e.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) listVar(key string, dst *[]string) {
	if v, ok := e.lookup(key); ok {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func (e *envReader) intVar(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) uint64Var(key string, dst *uint64) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) floatVar(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) boolVar(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}
