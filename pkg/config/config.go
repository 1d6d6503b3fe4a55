package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Execution modes for a model family.
const (
	ModeInProcess = "inprocess"
	ModeDelegated = "delegated"
)

// FamilyConfig describes how one model family is trained.
// In-process families are fitted by the queue worker; delegated families are
// submitted to the managed training service using Image.
type FamilyConfig struct {
	Mode       string `yaml:"mode"`
	Image      string `yaml:"image"`
	OutputPath string `yaml:"output_path"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		RatePerMinute   int           `yaml:"rate_per_minute" default:"120"`
		DisableCORS     bool          `yaml:"disable_cors"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
		// Collect enables the error digest collector, published to Topic.
		Collect       bool          `yaml:"collect"`
		CollectTopic  string        `yaml:"collect_topic" default:"logs"`
		FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
	} `yaml:"log"`
	Polygon struct {
		BaseURL           string        `yaml:"base_url" default:"https://api.polygon.io"`
		APIKey            string        `yaml:"api_key"`
		Timeout           time.Duration `yaml:"timeout" default:"30s"`
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"5"`
	} `yaml:"polygon"`
	Features struct {
		Window       int `yaml:"window" default:"14"`
		WindowLength int `yaml:"window_length" default:"30"`
	} `yaml:"features"`
	Storage struct {
		Backend    string        `yaml:"backend" default:"fs"`
		Bucket     string        `yaml:"bucket"`
		Region     string        `yaml:"region" default:"us-east-1"`
		Endpoint   string        `yaml:"endpoint"`
		Root       string        `yaml:"root" default:"./data"`
		PresignTTL time.Duration `yaml:"presign_ttl" default:"1h"`
	} `yaml:"storage"`
	Catalog struct {
		Backend    string `yaml:"backend" default:"sqlite"`
		SQLitePath string `yaml:"sqlite_path" default:"./data/catalog.db"`
	} `yaml:"catalog"`
	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"stockcast"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		DatasetTopic string        `yaml:"dataset_topic" default:"stockcast.datasets.processed"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Consumer     struct {
			GroupID    string        `yaml:"group_id" default:"stockcast-trainer"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"stockcast.datasets.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"stockcast:cache"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"2"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		KeyPrefix  string        `yaml:"key_prefix" default:"stockcast:train"`
	} `yaml:"queue"`
	Training struct {
		RoleARN         string                  `yaml:"role_arn"`
		InstanceType    string                  `yaml:"instance_type" default:"ml.m5.large"`
		InstanceCount   int32                   `yaml:"instance_count" default:"1"`
		VolumeSizeGB    int32                   `yaml:"volume_size_gb" default:"10"`
		MaxRuntime      time.Duration           `yaml:"max_runtime" default:"1h"`
		TestFraction    float64                 `yaml:"test_fraction" default:"0.2"`
		Seed            uint64                  `yaml:"seed" default:"42"`
		TreeMaxDepth    int                     `yaml:"tree_max_depth" default:"10"`
		DefaultFamilies []string                `yaml:"default_families"`
		Families        map[string]FamilyConfig `yaml:"families"`
	} `yaml:"training"`
	Predict struct {
		CacheTTL  time.Duration `yaml:"cache_ttl" default:"10m"`
		CacheSize int           `yaml:"cache_size" default:"32"`
	} `yaml:"predict"`
	Schedule struct {
		Enabled  bool          `yaml:"enabled"`
		Cron     string        `yaml:"cron" default:"0 30 22 * * 1-5"`
		Symbols  []string      `yaml:"symbols"`
		Lookback int           `yaml:"lookback_days" default:"180"`
		Market   string        `yaml:"market" default:"xnys"`
		Train    bool          `yaml:"train"`
		LockTTL  time.Duration `yaml:"lock_ttl" default:"20h"`
	} `yaml:"schedule"`
}

// familyImageEnv maps a family to the environment variable carrying its
// training image.
var familyImageEnv = map[string]string{
	"linear_regression": "LINEAR_REGRESSION_SAGEMAKER_IMAGE_URI",
	"decision_tree":     "DECISION_TREE_REGRESSION_SAGEMAKER_IMAGE_URI",
	"random_forest":     "RANDOM_FOREST_REGRESSION_SAGEMAKER_IMAGE_URI",
	"lstm":              "LSTM_SAGEMAKER_IMAGE_URI",
	"gru":               "GRU_SAGEMAKER_IMAGE_URI",
}

// DefaultFamilies is the family table used when the file declares none.
func DefaultFamilies() map[string]FamilyConfig {
	return map[string]FamilyConfig{
		"linear_regression": {Mode: ModeInProcess},
		"decision_tree":     {Mode: ModeInProcess},
		"random_forest":     {Mode: ModeDelegated, OutputPath: "model_output/random_forest/"},
		"lstm":              {Mode: ModeDelegated, OutputPath: "model_output/lstm/"},
		"gru":               {Mode: ModeDelegated, OutputPath: "model_output/gru/"},
	}
}

// Load reads and parses a YAML configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Training.Families) == 0 {
		c.Training.Families = DefaultFamilies()
	}
	if len(c.Training.DefaultFamilies) == 0 {
		for name, fc := range c.Training.Families {
			if fc.Mode == ModeInProcess {
				c.Training.DefaultFamilies = append(c.Training.DefaultFamilies, name)
			}
		}
		sort.Strings(c.Training.DefaultFamilies)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		c.Polygon.APIKey = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("CATALOG_BACKEND"); v != "" {
		c.Catalog.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("SAGEMAKER_ROLE_ARN"); v != "" {
		c.Training.RoleARN = v
	}
	if v := os.Getenv("SCHEDULE_SYMBOLS"); v != "" {
		c.Schedule.Symbols = strings.Split(v, ",")
	}

	for family, env := range familyImageEnv {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		fc, ok := c.Training.Families[family]
		if !ok {
			continue
		}
		fc.Image = v
		c.Training.Families[family] = fc
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case "fs":
		if c.Storage.Root == "" {
			return fmt.Errorf("storage.root is required for the fs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 's3' or 'fs', got '%s'", c.Storage.Backend)
	}
	if c.Catalog.Backend != "clickhouse" && c.Catalog.Backend != "sqlite" {
		return fmt.Errorf("catalog.backend must be 'clickhouse' or 'sqlite', got '%s'", c.Catalog.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Features.Window < 2 {
		return fmt.Errorf("features.window must be at least 2")
	}
	if c.Features.WindowLength < 1 {
		return fmt.Errorf("features.window_length must be positive")
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1)")
	}
	for name, fc := range c.Training.Families {
		if fc.Mode != ModeInProcess && fc.Mode != ModeDelegated {
			return fmt.Errorf("training.families.%s.mode must be '%s' or '%s'", name, ModeInProcess, ModeDelegated)
		}
	}
	for _, name := range c.Training.DefaultFamilies {
		if _, ok := c.Training.Families[name]; !ok {
			return fmt.Errorf("training.default_families: unknown family '%s'", name)
		}
	}
	return nil
}
