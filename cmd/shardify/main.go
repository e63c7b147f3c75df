package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"shardify/internal/config"
	"shardify/internal/executor"
	"shardify/internal/pipeline"
	"shardify/internal/publish"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	input := flag.String("input", cfg.InputRoot, "root of the source imagefolder tree (one subdirectory per split)")
	output := flag.String("output", cfg.OutputRoot, "root directory for converted splits")
	name := flag.String("name", cfg.DatasetName, "dataset name; defaults to the input root's base name")
	splits := flag.String("splits", strings.Join(cfg.Splits, ","), "comma-separated split directories to convert")
	ext := flag.String("ext", cfg.ImageExt, "image file extension to collect")
	shardSize := flag.Int("shard-size", cfg.ShardSize, "items per shard container")
	concurrency := flag.Int("concurrency", cfg.Concurrency, "max shard writes in flight")
	verify := flag.Bool("verify", cfg.Verify, "re-read committed containers and check their row counts")
	verbose := flag.Bool("verbose", false, "log per-item drops and per-shard commits")
	flag.Parse()

	cfg.InputRoot = *input
	cfg.OutputRoot = *output
	cfg.DatasetName = *name
	cfg.Splits = config.SplitList(*splits)
	cfg.ImageExt = *ext
	cfg.ShardSize = *shardSize
	cfg.Concurrency = *concurrency
	cfg.Verify = *verify
	if cfg.DatasetName == "" && cfg.InputRoot != "" {
		cfg.DatasetName = filepath.Base(filepath.Clean(cfg.InputRoot))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	runID := uuid.NewString()
	logger := newLogger(*verbose).With(zap.String("run_id", runID))
	defer logger.Sync()

	conv := &pipeline.SplitConverter{
		ShardSize: cfg.ShardSize,
		ImageExt:  cfg.ImageExt,
		Pool:      executor.New(cfg.Concurrency),
		Verify:    cfg.Verify,
		Log:       logger,
	}

	var pub *publish.Publisher
	if cfg.Publish.Enabled {
		prefix := cfg.Publish.Prefix
		if prefix == "" {
			prefix = runID
		}
		pub, err = publish.New(publish.Config{
			Endpoint:  cfg.Publish.Endpoint,
			Region:    cfg.Publish.Region,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			Bucket:    cfg.Publish.Bucket,
			UseSSL:    cfg.Publish.UseSSL,
			Prefix:    prefix,
		})
		if err != nil {
			logger.Fatal("publisher init failed", zap.Error(err))
		}
	}

	ctx := context.Background()
	for _, split := range cfg.Splits {
		res, err := conv.Run(ctx, cfg.SplitDatasetName(split),
			filepath.Join(cfg.InputRoot, split),
			filepath.Join(cfg.OutputRoot, split))
		if err != nil {
			logger.Fatal("split conversion failed", zap.String("split", split), zap.Error(err))
		}
		logger.Info("split converted",
			zap.String("split", split),
			zap.Int("items", res.Items),
			zap.Int("dropped", res.Dropped),
			zap.Int("shards", res.Shards),
			zap.String("output", res.OutputDir))

		if pub != nil {
			n, err := pub.UploadSplit(ctx, split, res.OutputDir)
			if err != nil {
				logger.Fatal("split publish failed", zap.String("split", split), zap.Error(err))
			}
			logger.Info("split published", zap.String("split", split), zap.Int("objects", n))
		}
	}
	logger.Info("conversion completed", zap.String("output", cfg.OutputRoot))
}

func newLogger(verbose bool) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	return logger
}
