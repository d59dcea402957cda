package export

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
)

// Bundle writes the files into a deflate-compressed ZIP archive, entries
// sorted by name.
func Bundle(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("add %s to bundle: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return fmt.Errorf("write %s to bundle: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}
	return nil
}
