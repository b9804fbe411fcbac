package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved application paths
type Paths struct {
	BaseDir    string
	DataDir    string
	ExportsDir string
	LogsDir    string
	LogFile    string
}

// ResolvePaths turns the configured paths into absolute ones. An empty
// BaseDir means the current working directory.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base dir: %w", err)
	}

	p := &Paths{
		BaseDir:    base,
		DataDir:    resolve(base, c.Paths.DataDir),
		ExportsDir: resolve(base, c.Paths.ExportsDir),
		LogsDir:    resolve(base, c.Paths.LogsDir),
	}
	if c.Logging.FilePath != "" {
		p.LogFile = resolve(base, c.Logging.FilePath)
	}
	return p, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FindDataset locates a dataset file. Absolute names are used as they are;
// relative names are looked up in the base directory, then the data
// directory. The second result is false when no such file exists.
func (p *Paths) FindDataset(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = []string{filepath.Join(p.BaseDir, name), filepath.Join(p.DataDir, name)}
	}
	for _, c := range candidates {
		if FileExists(c) {
			return c, true
		}
	}
	return "", false
}

// ExportPath returns the path of an export file
func (p *Paths) ExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// FileExists reports whether path names a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// LogPathResolution logs the resolved paths
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("exports_dir", p.ExportsDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("log_file", p.LogFile))
}
