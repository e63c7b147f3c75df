package shard

import (
	"fmt"
	"math/rand/v2"

	"shardify/internal/collect"
)

// Shard is one fixed-size slice of the shuffled dataset, tagged with its
// position in the split.
type Shard struct {
	// Zero-based position of this shard.
	Index int
	// Total number of shards in the split.
	Total int
	// Items assigned to this shard, in shuffled order.
	Items []collect.Item
}

// Shuffle permutes items in place with a uniform Fisher–Yates pass over the
// process-seeded global source. Order is intentionally not reproducible
// across runs.
func Shuffle(items []collect.Item) {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// Partition cuts items into ceil(len(items)/size) shards holding exactly
// size items each except the last, which holds the remainder. Shards
// reference subslices of items and concatenate back to the input in index
// order. Zero items yields zero shards. size must be positive; callers
// validate it at configuration time.
func Partition(items []collect.Item, size int) []Shard {
	if len(items) == 0 {
		return nil
	}
	total := (len(items) + size - 1) / size
	shards := make([]Shard, 0, total)
	for i := 0; i < total; i++ {
		lo := i * size
		hi := min(lo+size, len(items))
		shards = append(shards, Shard{Index: i, Total: total, Items: items[lo:hi]})
	}
	return shards
}

// FileName renders the canonical container name for a shard position,
// e.g. FileName(0, 12) == "data-00000-of-00012.arrow". Writer and manifest
// both go through here so the listed names always match the files on disk.
func FileName(index, total int) string {
	return fmt.Sprintf("data-%05d-of-%05d.arrow", index, total)
}
