// Package manifest emits the dataset descriptor and shard listing that make
// a converted split discoverable.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"shardify/internal/shard"
)

const (
	datasetType = "imagefolder"
	format      = "arrow"
)

// DatasetInfo describes one converted split.
type DatasetInfo struct {
	DatasetName string `json:"dataset_name"`
	DatasetType string `json:"dataset_type"`
	NumSamples  int    `json:"num_samples"`
	Format      string `json:"format"`
}

// NewDatasetInfo fills the fixed descriptor fields around the split name
// and its collected sample count. NumSamples counts items as collected,
// before any unreadable items were dropped from the containers.
func NewDatasetInfo(name string, numSamples int) DatasetInfo {
	return DatasetInfo{DatasetName: name, DatasetType: datasetType, NumSamples: numSamples, Format: format}
}

// DataFile is one shard entry in the state listing.
type DataFile struct {
	Filename string `json:"filename"`
}

// State lists the split's shard containers in index order.
type State struct {
	DataFiles []DataFile `json:"_data_files"`
	Type      string     `json:"_type"`
}

// NewState builds the listing for a split of total containers, named
// through the same helper the writer uses. Zero shards yields an empty,
// non-null listing.
func NewState(total int) State {
	files := make([]DataFile, 0, total)
	for i := 0; i < total; i++ {
		files = append(files, DataFile{Filename: shard.FileName(i, total)})
	}
	return State{DataFiles: files, Type: format}
}

// Write emits dataset_info.json and state.json into dir. Callers invoke it
// only once every shard container of the split has been committed; the
// state file is what makes the shards discoverable to readers.
func Write(dir string, info DatasetInfo, st State) error {
	if err := writeJSON(dir, "dataset_info.json", info); err != nil {
		return err
	}
	return writeJSON(dir, "state.json", st)
}

// writeJSON stages v as indented JSON next to the target and renames it
// into place, so readers never observe a partial manifest.
func writeJSON(dir, name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("manifest: stage %s: %w", name, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("manifest: write %s: %w", name, err)
	}
	// CreateTemp opens the staging file 0600.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("manifest: chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("manifest: flush %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("manifest: commit %s: %w", name, err)
	}
	return nil
}
