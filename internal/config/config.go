package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultShardSize is the number of items per full shard.
	DefaultShardSize = 49152
	// DefaultConcurrency bounds how many shards are written at once.
	DefaultConcurrency = 8
	// DefaultImageExt selects which files count as dataset items.
	DefaultImageExt = "webp"
)

// Config carries one conversion run's settings. Environment variables fill
// it first; the CLI layers flag overrides on top before Validate.
type Config struct {
	InputRoot   string
	OutputRoot  string
	DatasetName string
	Splits      []string
	ImageExt    string
	ShardSize   int
	Concurrency int
	Verify      bool
	Publish     PublishConfig
}

// PublishConfig configures the optional upload of converted splits to
// S3-compatible storage. It is enabled by setting an endpoint.
type PublishConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string
}

// Load resolves the configuration from the environment, reading a .env
// file first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		InputRoot:   strings.TrimSpace(os.Getenv("SHARDIFY_INPUT_ROOT")),
		OutputRoot:  strings.TrimSpace(os.Getenv("SHARDIFY_OUTPUT_ROOT")),
		DatasetName: strings.TrimSpace(os.Getenv("SHARDIFY_DATASET_NAME")),
		Splits:      SplitList(firstNonEmpty(os.Getenv("SHARDIFY_SPLITS"), "train,validation")),
		ImageExt:    firstNonEmpty(strings.TrimSpace(os.Getenv("SHARDIFY_IMAGE_EXT")), DefaultImageExt),
		ShardSize:   intEnv("SHARDIFY_SHARD_SIZE", DefaultShardSize),
		Concurrency: intEnv("SHARDIFY_CONCURRENCY", DefaultConcurrency),
		Verify:      boolEnv("SHARDIFY_VERIFY", false),
		Publish:     loadPublishConfig(),
	}, nil
}

func loadPublishConfig() PublishConfig {
	endpoint := strings.TrimSpace(os.Getenv("SHARDIFY_S3_ENDPOINT"))
	return PublishConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("SHARDIFY_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SHARDIFY_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("SHARDIFY_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("SHARDIFY_S3_BUCKET")), "shardify-datasets"),
		UseSSL:    boolEnv("SHARDIFY_S3_USE_SSL", false),
		Prefix:    strings.TrimSpace(os.Getenv("SHARDIFY_S3_PREFIX")),
	}
}

// Validate checks the fields a run cannot proceed without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputRoot) == "" {
		return errors.New("config: input root is required")
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		return errors.New("config: output root is required")
	}
	if strings.TrimSpace(c.DatasetName) == "" {
		return errors.New("config: dataset name is required")
	}
	if c.ShardSize <= 0 {
		return fmt.Errorf("config: shard size must be positive, got %d", c.ShardSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("config: concurrency must be positive, got %d", c.Concurrency)
	}
	if len(c.Splits) == 0 {
		return errors.New("config: at least one split is required")
	}
	if strings.Trim(strings.TrimSpace(c.ImageExt), ".") == "" {
		return errors.New("config: image extension is required")
	}
	if c.Publish.Enabled && (c.Publish.AccessKey == "" || c.Publish.SecretKey == "") {
		return errors.New("config: publishing enabled but S3 credentials are missing")
	}
	return nil
}

// SplitDatasetName returns the per-split dataset name, e.g.
// "tiny-imagenet" and "train" become "tiny-imagenet-train".
func (c *Config) SplitDatasetName(split string) string {
	return c.DatasetName + "-" + split
}

// SplitList parses a comma-separated split list, trimming whitespace and
// dropping empty entries.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func boolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
