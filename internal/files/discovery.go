package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"kpidash/internal/validation"
)

// ErrNoKPIFiles is returned when a directory holds no loadable KPI file
var ErrNoKPIFiles = errors.New("no KPI files found")

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds KPI files relative to a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindKPIFiles lists the loadable KPI files in dir, newest first. Office
// lock files and unsupported types are skipped. Subdirectories are not
// searched.
func (d *Discovery) FindKPIFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !validation.IsKPIName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// GetLatestFile returns the most recently modified KPI file in dir
func (d *Discovery) GetLatestFile(dir string) (FileInfo, error) {
	files, err := d.FindKPIFiles(dir)
	if err != nil {
		return FileInfo{}, err
	}
	if len(files) == 0 {
		return FileInfo{}, fmt.Errorf("%w in %s", ErrNoKPIFiles, d.resolve(dir))
	}
	return files[0], nil
}

// Resolve turns path into a KPI file path. A directory resolves to its
// newest KPI file; anything else is returned unchanged.
func (d *Discovery) Resolve(path string) (string, error) {
	full := d.resolve(path)
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return full, nil
	}
	latest, err := d.GetLatestFile(full)
	if err != nil {
		return "", err
	}
	return latest.Path, nil
}
