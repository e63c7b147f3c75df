// Package arrowio serializes shard columns into Arrow IPC container files.
package arrowio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Schema returns the two-column layout shared by every shard container:
// image bytes and the item's label, both non-nullable.
func Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "image", Type: arrow.BinaryTypes.Binary, Nullable: false},
		{Name: "label", Type: arrow.BinaryTypes.String, Nullable: false},
	}, nil)
}

// WriteFile builds a single record batch from the positionally aligned
// images and labels and writes it as an Arrow IPC file at path. The
// container is staged as a temp file in the target directory and renamed
// into place only after the writer closes cleanly, so path never holds a
// partially written container. Zero rows still produce a valid container.
func WriteFile(path string, images [][]byte, labels []string) error {
	if len(images) != len(labels) {
		return fmt.Errorf("arrowio: %d images for %d labels", len(images), len(labels))
	}

	mem := memory.NewGoAllocator()
	bldr := array.NewRecordBuilder(mem, Schema())
	defer bldr.Release()

	imgs := bldr.Field(0).(*array.BinaryBuilder)
	lbls := bldr.Field(1).(*array.StringBuilder)
	for i := range images {
		imgs.Append(images[i])
		lbls.Append(labels[i])
	}
	rec := bldr.NewRecord()
	defer rec.Release()

	dir, base := filepath.Dir(path), filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("arrowio: stage %s: %w", base, err)
	}
	if err := writeContainer(tmp, mem, rec); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("arrowio: write %s: %w", base, err)
	}
	// CreateTemp opens the staging file 0600.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("arrowio: chmod %s: %w", base, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("arrowio: flush %s: %w", base, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("arrowio: commit %s: %w", base, err)
	}
	return nil
}

func writeContainer(w io.WriteSeeker, mem memory.Allocator, rec arrow.Record) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

// ReadColumns reads every record batch of the container at path back into
// positionally aligned image and label slices. The returned slices are
// detached copies and stay valid after the reader is gone.
func ReadColumns(path string) ([][]byte, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("arrowio: open container: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, nil, fmt.Errorf("arrowio: read %s: %w", base, err)
	}
	defer r.Close()

	if !Schema().Equal(r.Schema()) {
		return nil, nil, fmt.Errorf("arrowio: %s: schema %s, want %s", base, r.Schema(), Schema())
	}

	var images [][]byte
	var labels []string
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, nil, fmt.Errorf("arrowio: %s: batch %d: %w", base, i, err)
		}
		imgs := rec.Column(0).(*array.Binary)
		lbls := rec.Column(1).(*array.String)
		for row := 0; row < int(rec.NumRows()); row++ {
			images = append(images, bytes.Clone(imgs.Value(row)))
			labels = append(labels, strings.Clone(lbls.Value(row)))
		}
	}
	return images, labels, nil
}
