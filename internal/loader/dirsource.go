package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"huntmover/internal/fsutil"
)

// DirSource scans a root directory for three subdirectories (one per
// group) of FITS files. It validates directory/group structure before
// a real parser is even available, then always returns ErrNoParser:
// turning the listed file paths into pixel data is a FITS-decoding
// boundary this package leaves to an external collaborator.
type DirSource struct {
	Root        string
	GroupDirs   [3]string // subdirectory names under Root, one per group
	PixelScale  float64   // arcsec/pixel, since FITS headers aren't parsed
}

// NewDirSource builds a DirSource rooted at root, with groups read from
// its three named subdirectories.
func NewDirSource(root string, groupDirs [3]string, pixelScale float64) *DirSource {
	return &DirSource{Root: root, GroupDirs: groupDirs, PixelScale: pixelScale}
}

// LoadGroups validates the directory structure and file counts, then
// returns ErrNoParser: every group must resolve to at least one FITS
// file or the run aborts on a group-structure violation, same as an
// empty group discovered after parsing would.
func (d *DirSource) LoadGroups(ctx context.Context) ([3]RawGroup, float64, error) {
	var groups [3]RawGroup
	for i, sub := range d.GroupDirs {
		dir := filepath.Join(d.Root, sub)
		files, err := fsutil.ListFITSFiles(dir)
		if err != nil {
			return groups, 0, fmt.Errorf("group %d (%s): %w", i, dir, err)
		}
		if len(files) == 0 {
			return groups, 0, fmt.Errorf("group %d (%s): zero FITS files, group-structure violation", i, dir)
		}
		sort.Strings(files)
		groups[i] = RawGroup{Frames: make([]RawFrame, len(files))}
	}
	return groups, 0, ErrNoParser
}
