// Package paths validates filesystem paths used by export and import.
// Files must live directly in ~/.jot/exports or a configured allowed
// directory, with no traversal components and no symlinks anywhere on
// the final hop. The "no subdirectories" rule keeps the check free of
// TOCTOU races on intermediate components.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hanwin/jot/internal/config"
	"github.com/hanwin/jot/internal/errors"
)

// CheckMode indicates whether the path check is for reading or writing.
type CheckMode int

const (
	CheckRead  CheckMode = iota // import: the file must exist
	CheckWrite                  // export: the file will be created
)

// Validate checks a user-supplied export or import file path.
func Validate(path string, mode CheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}

	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if ext := filepath.Ext(cleaned); ext != ".json" {
		return errors.NewInvalidRequest("path must have .json extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	// Unsafe mode skips the directory restriction but never the symlink
	// checks.
	if cfg != nil && cfg.AllowUnsafePaths {
		if mode == CheckRead {
			if _, err := os.Stat(absPath); os.IsNotExist(err) {
				return errors.NewInvalidRequest(fmt.Sprintf("file not found: %s", path))
			}
		}
		return rejectSymlink(absPath)
	}

	allowedDirs, err := allowedDirs(cfg)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(absPath)
	if !isDirectlyInAllowedDir(parentDir, allowedDirs) {
		return errors.NewInvalidRequest(
			fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v",
				allowedDirs))
	}

	if info, err := os.Lstat(parentDir); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == CheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewInvalidRequest(fmt.Sprintf("file not found: %s", path))
		}
	}

	return rejectSymlink(absPath)
}

// ExportsDir returns the default exports directory (~/.jot/exports).
func ExportsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, ".jot", "exports"), nil
}

// allowedDirs returns the allowed directories, absolute and cleaned.
// Symlinked allowed_paths entries are resolved so matching happens
// against the real target.
func allowedDirs(cfg *config.Config) ([]string, error) {
	defaultDir, err := ExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{defaultDir}

	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}

		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}

	return result, nil
}

// isDirectlyInAllowedDir checks if parentDir exactly matches one of the
// allowed directories. Stricter than "is under": the file must sit
// directly in the allowed dir.
func isDirectlyInAllowedDir(parentDir string, allowedDirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range allowedDirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

func rejectSymlink(absPath string) error {
	if info, err := os.Lstat(absPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("path must not be a symlink")
		}
	}
	return nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check forward slashes on all platforms (e.g., user input).
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
