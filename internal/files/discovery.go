// Package files discovers input spreadsheets and prepares the directories
// the pipeline writes to.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// lockPrefix marks temporary owner files Excel leaves beside an open
// workbook. They are never valid input.
const lockPrefix = "~$"

// FileInfo describes a discovered input file.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds pipeline input files.
type Discovery struct {
	dir string
	ext string
}

// NewDiscovery creates a discovery for one input directory and extension.
// The extension is matched case-insensitively.
func NewDiscovery(dir, ext string) *Discovery {
	return &Discovery{dir: dir, ext: strings.ToLower(ext)}
}

// Find lists the candidate input files: regular files carrying the
// configured extension, excluding Excel lock files, sorted by name so runs
// are deterministic regardless of filesystem order.
func (d *Discovery) Find() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", d.dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, lockPrefix) {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), d.ext) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(d.dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// EnsureDir creates a directory (and parents) when missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
