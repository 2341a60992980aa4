package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathValidator restricts PDF access to a single directory tree
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir. The directory does not
// have to exist yet; an empty dir is rejected.
func NewPathValidator(dir string) (*PathValidator, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("allowed directory cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve allowed directory: %w", err)
	}

	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute allowed directory
func (v *PathValidator) Root() string {
	return v.root
}

// ValidatePath returns an error when path, after resolving symlinks, lies
// outside the allowed directory
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	within, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return fmt.Errorf("path is outside the allowed directory %s", v.root)
	}
	return nil
}

// IsPathWithinDirectory checks both the literal and the symlink-resolved path
// against both the literal and the resolved root
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	realPath := resolve(abs)
	roots := []string{v.root, resolve(v.root)}

	return containedIn(abs, roots) && containedIn(realPath, roots), nil
}

func resolve(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}

func containedIn(p string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
