package pdf

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-processor/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-processor/internal/pdf/security"
)

// Validator checks a caller-supplied path before any utility is started
type Validator struct {
	maxFileSize   int64
	pathValidator *security.PathValidator // nil when no directory restriction is configured
}

// NewValidator creates a validator. maxFileSize <= 0 disables the size limit and
// an empty allowedDirectory disables the directory restriction.
func NewValidator(maxFileSize int64, allowedDirectory string) (*Validator, error) {
	v := &Validator{maxFileSize: maxFileSize}

	if allowedDirectory != "" {
		pv, err := security.NewPathValidator(allowedDirectory)
		if err != nil {
			return nil, err
		}
		v.pathValidator = pv
	}

	return v, nil
}

// ValidatePath resolves path and returns the absolute path of a readable PDF file.
// Every failure is a FileError.
func (v *Validator) ValidatePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", pdferrors.New(pdferrors.KindFile, "path cannot be empty")
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.KindFile, "cannot resolve path", err).WithPath(path)
	}

	if v.pathValidator != nil {
		if err := v.pathValidator.ValidatePath(resolved); err != nil {
			return "", pdferrors.Wrap(pdferrors.KindFile, "access denied: "+err.Error(), err).WithPath(path)
		}
	}

	fileInfo, err := os.Stat(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return "", pdferrors.Newf(pdferrors.KindFile, "file does not exist: %s", path).WithPath(path)
	}
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.KindFile, "cannot access file", err).WithPath(path)
	}

	if !fileInfo.Mode().IsRegular() {
		return "", pdferrors.Newf(pdferrors.KindFile, "path is not a regular file: %s", path).WithPath(path)
	}

	if !strings.EqualFold(filepath.Ext(resolved), ".pdf") {
		return "", pdferrors.Newf(pdferrors.KindFile, "file must have a .pdf extension: %s", path).WithPath(path)
	}

	if v.maxFileSize > 0 && fileInfo.Size() > v.maxFileSize {
		return "", pdferrors.Newf(pdferrors.KindFile, "file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize).WithPath(path)
	}

	return resolved, nil
}

// resolvePath expands a leading "~" and makes the path absolute
func resolvePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
