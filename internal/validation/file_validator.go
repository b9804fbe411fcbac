package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Validation failures callers can test for with errors.Is
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTemporaryFile   = errors.New("office lock file")
	ErrNotFound        = errors.New("file does not exist")
	ErrNotWritable     = errors.New("directory is not writable")
)

// kpiExtensions lists the file types the loader understands
var kpiExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".txt":  true,
	".xlsx": true,
	".xlsm": true,
}

// Extensions returns the accepted KPI file extensions
func Extensions() []string {
	return []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm"}
}

// IsKPIName reports whether name looks like a loadable KPI file
func IsKPIName(name string) bool {
	return CheckName(name) == nil
}

// CheckName validates a file name without touching the file system.
// Excel lock files ("~$report.xlsx") are rejected.
func CheckName(name string) error {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("%w: %s", ErrTemporaryFile, base)
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !kpiExtensions[ext] {
		if ext == "" {
			ext = "none"
		}
		return fmt.Errorf("%w: %q (extension %s)", ErrUnsupportedType, base, ext)
	}
	return nil
}

// FileValidator checks KPI files and output directories before they are used
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateKPIFile checks that path names a readable KPI file
func (v *FileValidator) ValidateKPIFile(path string) error {
	if err := CheckName(path); err != nil {
		v.logger.Warn("Rejected KPI file", slog.String("file", path), slog.String("error", err.Error()))
		return err
	}
	return v.ValidateFile(path)
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Warn("File does not exist", slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Warn("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory creates dir if needed and verifies it is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}
