// Package fsutil provides small filesystem helpers for locating FITS
// frames on disk: a WalkDir plus extension-set scan, narrowed to the one
// format the pipeline's Source reads.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

var fitsExts = map[string]struct{}{
	".fits": {},
	".fit":  {},
	".fts":  {},
}

// ListFITSFiles returns every FITS file under root, in lexical order
// (WalkDir's natural traversal order), for internal/loader.DirSource to
// group into exposures.
func ListFITSFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsFITSFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// FirstExisting returns the first path that exists.
func FirstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// IsFITSFile reports whether path has a recognized FITS extension.
func IsFITSFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := fitsExts[ext]
	return ok
}
