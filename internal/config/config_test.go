package config

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SHARDIFY_INPUT_ROOT", "SHARDIFY_OUTPUT_ROOT", "SHARDIFY_DATASET_NAME",
		"SHARDIFY_SPLITS", "SHARDIFY_IMAGE_EXT", "SHARDIFY_SHARD_SIZE",
		"SHARDIFY_CONCURRENCY", "SHARDIFY_VERIFY", "SHARDIFY_S3_ENDPOINT",
		"SHARDIFY_S3_ACCESS_KEY", "SHARDIFY_S3_SECRET_KEY", "SHARDIFY_S3_BUCKET",
		"MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	return &Config{
		InputRoot:   "/data/in",
		OutputRoot:  "/data/out",
		DatasetName: "tiny-imagenet",
		Splits:      []string{"train", "validation"},
		ImageExt:    "webp",
		ShardSize:   4,
		Concurrency: 2,
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ShardSize != DefaultShardSize {
		t.Errorf("ShardSize = %d, want %d", cfg.ShardSize, DefaultShardSize)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.ImageExt != "webp" {
		t.Errorf("ImageExt = %q, want webp", cfg.ImageExt)
	}
	if got := strings.Join(cfg.Splits, ","); got != "train,validation" {
		t.Errorf("Splits = %q, want train,validation", got)
	}
	if cfg.Verify {
		t.Error("Verify defaults to true, want false")
	}
	if cfg.Publish.Enabled {
		t.Error("Publish enabled without an endpoint")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHARDIFY_INPUT_ROOT", "/srv/raw")
	t.Setenv("SHARDIFY_DATASET_NAME", "birds")
	t.Setenv("SHARDIFY_SPLITS", " train , ,test ")
	t.Setenv("SHARDIFY_IMAGE_EXT", "png")
	t.Setenv("SHARDIFY_SHARD_SIZE", "1024")
	t.Setenv("SHARDIFY_CONCURRENCY", "3")
	t.Setenv("SHARDIFY_VERIFY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InputRoot != "/srv/raw" || cfg.DatasetName != "birds" {
		t.Errorf("roots/name not taken from env: %+v", cfg)
	}
	if got := strings.Join(cfg.Splits, ","); got != "train,test" {
		t.Errorf("Splits = %q, want train,test (trimmed, empties dropped)", got)
	}
	if cfg.ImageExt != "png" || cfg.ShardSize != 1024 || cfg.Concurrency != 3 || !cfg.Verify {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadBadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHARDIFY_SHARD_SIZE", "a lot")
	t.Setenv("SHARDIFY_VERIFY", "sure")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ShardSize != DefaultShardSize {
		t.Errorf("ShardSize = %d, want default on unparsable value", cfg.ShardSize)
	}
	if cfg.Verify {
		t.Error("Verify = true, want default on unparsable value")
	}
}

func TestLoadPublishMinioFallbackCreds(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHARDIFY_S3_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ROOT_USER", "minioadmin")
	t.Setenv("MINIO_ROOT_PASSWORD", "minioadmin")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Publish.Enabled {
		t.Fatal("Publish not enabled by endpoint")
	}
	if cfg.Publish.AccessKey != "minioadmin" || cfg.Publish.SecretKey != "minioadmin" {
		t.Errorf("credentials not taken from MINIO_ROOT_*: %+v", cfg.Publish)
	}
	if cfg.Publish.Bucket != "shardify-datasets" {
		t.Errorf("Bucket = %q, want default", cfg.Publish.Bucket)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing input root", func(c *Config) { c.InputRoot = " " }},
		{"missing output root", func(c *Config) { c.OutputRoot = "" }},
		{"missing dataset name", func(c *Config) { c.DatasetName = "" }},
		{"zero shard size", func(c *Config) { c.ShardSize = 0 }},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }},
		{"no splits", func(c *Config) { c.Splits = nil }},
		{"dot-only extension", func(c *Config) { c.ImageExt = "." }},
		{"publish without creds", func(c *Config) {
			c.Publish = PublishConfig{Enabled: true, Endpoint: "minio:9000"}
		}},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted the config", tc.name)
		}
	}
}

func TestSplitDatasetName(t *testing.T) {
	cfg := validConfig()
	if got := cfg.SplitDatasetName("train"); got != "tiny-imagenet-train" {
		t.Fatalf("SplitDatasetName = %q", got)
	}
}
