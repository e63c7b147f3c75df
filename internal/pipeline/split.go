// Package pipeline converts split directories into sharded Arrow datasets.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shardify/internal/arrowio"
	"shardify/internal/collect"
	"shardify/internal/executor"
	"shardify/internal/manifest"
	"shardify/internal/shard"
)

// SplitConverter writes one split at a time: collect, shuffle, partition,
// write shards under the pool's budget, then manifest. A converter is
// configured once and reused across splits.
type SplitConverter struct {
	// ShardSize is the item capacity of every shard but the last.
	ShardSize int
	// ImageExt selects which files are collected.
	ImageExt string
	// Pool bounds how many shard writes run at once.
	Pool *executor.Pool
	// Verify re-reads committed containers and checks their row counts.
	Verify bool
	// Log defaults to a no-op logger.
	Log *zap.Logger
}

// Result summarizes one converted split.
type Result struct {
	// Items is the collected sample count, as recorded in the dataset
	// descriptor. Dropped items are still included here.
	Items int
	// Dropped counts items whose bytes could not be read back at write
	// time; they are absent from the containers.
	Dropped int
	// Shards is the number of containers committed.
	Shards int
	// OutputDir holds the containers and manifests.
	OutputDir string
}

// Run converts the split rooted at inputDir into outputDir under the given
// dataset name. Manifests are written only once every shard container has
// committed; on any shard error the split fails without a manifest and
// already committed containers stay behind as inert files.
func (c *SplitConverter) Run(ctx context.Context, datasetName, inputDir, outputDir string) (*Result, error) {
	if c.ShardSize <= 0 {
		return nil, fmt.Errorf("pipeline: shard size must be positive, got %d", c.ShardSize)
	}
	if c.Pool == nil {
		return nil, fmt.Errorf("pipeline: pool is required")
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	items, err := collect.Collect(inputDir, c.ImageExt)
	if err != nil {
		return nil, fmt.Errorf("pipeline: collect %s: %w", inputDir, err)
	}
	shard.Shuffle(items)
	shards := shard.Partition(items, c.ShardSize)
	log.Info("split collected",
		zap.String("dataset", datasetName),
		zap.Int("items", len(items)),
		zap.Int("shards", len(shards)))

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create output dir: %w", err)
	}

	// Each task owns one shard and one slot of rows, so the slice needs
	// no locking.
	rows := make([]int, len(shards))
	err = c.Pool.Run(ctx, len(shards), func(_ context.Context, i int) error {
		n, err := c.writeShard(outputDir, shards[i], log)
		if err != nil {
			return err
		}
		rows[i] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", datasetName, err)
	}

	if c.Verify {
		if err := c.verifyShards(outputDir, shards, rows); err != nil {
			return nil, err
		}
	}

	info := manifest.NewDatasetInfo(datasetName, len(items))
	if err := manifest.Write(outputDir, info, manifest.NewState(len(shards))); err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", datasetName, err)
	}

	written := 0
	for _, n := range rows {
		written += n
	}
	res := &Result{
		Items:     len(items),
		Dropped:   len(items) - written,
		Shards:    len(shards),
		OutputDir: outputDir,
	}
	log.Info("split committed",
		zap.String("dataset", datasetName),
		zap.Int("items", res.Items),
		zap.Int("dropped", res.Dropped),
		zap.Int("shards", res.Shards))
	return res, nil
}

// writeShard reads each item's bytes and commits the shard container,
// returning how many rows it holds. Items that vanished since collection
// are dropped from the batch; the shard still commits with the survivors.
func (c *SplitConverter) writeShard(dir string, s shard.Shard, log *zap.Logger) (int, error) {
	images := make([][]byte, 0, len(s.Items))
	labels := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		b, err := os.ReadFile(it.Path)
		if err != nil {
			log.Debug("dropping unreadable item", zap.String("path", it.Path), zap.Error(err))
			continue
		}
		images = append(images, b)
		labels = append(labels, it.Label)
	}
	name := shard.FileName(s.Index, s.Total)
	if err := arrowio.WriteFile(filepath.Join(dir, name), images, labels); err != nil {
		return 0, err
	}
	log.Info("shard committed", zap.String("file", name), zap.Int("rows", len(labels)))
	return len(labels), nil
}

// verifyShards re-opens every committed container and checks it holds
// exactly the rows its writer reported.
func (c *SplitConverter) verifyShards(dir string, shards []shard.Shard, rows []int) error {
	var g errgroup.Group
	g.SetLimit(c.Pool.Limit())
	for _, s := range shards {
		g.Go(func() error {
			name := shard.FileName(s.Index, s.Total)
			images, labels, err := arrowio.ReadColumns(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("pipeline: verify %s: %w", name, err)
			}
			if len(images) != rows[s.Index] || len(labels) != rows[s.Index] {
				return fmt.Errorf("pipeline: verify %s: %d rows on disk, wrote %d", name, len(images), rows[s.Index])
			}
			return nil
		})
	}
	return g.Wait()
}
