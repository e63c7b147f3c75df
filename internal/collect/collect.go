package collect

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Item is one labeled sample discovered under a dataset root.
type Item struct {
	// Filesystem path to the image file, as walked.
	Path string
	// Name of the file's immediate parent directory.
	Label string
}

// Collect walks root and returns one Item per file whose extension
// matches ext (case-insensitive; the leading dot is optional). Each item is
// labeled with the base name of its parent directory, so
// root/cat/001.webp yields Label "cat".
//
// Entries that cannot be read are skipped and the walk continues; a root
// that cannot be read at all yields an empty slice. Emission order is
// traversal order and carries no meaning for callers.
func Collect(root, ext string) ([]Item, error) {
	want := "." + strings.TrimPrefix(strings.ToLower(ext), ".")

	var items []Item
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != want {
			return nil
		}
		items = append(items, Item{
			Path:  path,
			Label: filepath.Base(filepath.Dir(path)),
		})
		return nil
	})
	return items, err
}
