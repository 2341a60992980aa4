package pdf

import (
	"fmt"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-processor/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-processor/internal/runner"
)

// DefaultFormatErrorPatterns are the poppler stderr fragments that mean the
// file is not a parseable PDF. Matching is case-insensitive.
var DefaultFormatErrorPatterns = []string{
	"may not be a pdf file",
	"couldn't find trailer dictionary",
	"couldn't read xref table",
	"incorrect password",
	"pdf file is damaged",
}

// Classifier turns a failed utility run into a classified error. It is the only
// place that knows the wording of the external tools' diagnostics.
type Classifier struct {
	patterns []string
}

// NewClassifier creates a classifier; nil or empty patterns select the defaults
func NewClassifier(patterns []string) *Classifier {
	if len(patterns) == 0 {
		patterns = DefaultFormatErrorPatterns
	}

	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Classifier{patterns: normalized}
}

// IsFormatError reports whether stderr matches one of the "not a valid PDF" patterns
func (c *Classifier) IsFormatError(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, p := range c.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Classify maps a completed run to an error. It returns nil for a successful run.
func (c *Classifier) Classify(tool string, result *runner.Result, timeout string) *pdferrors.Error {
	switch {
	case result.TimedOut:
		return pdferrors.Newf(pdferrors.KindTimeout,
			"%s did not finish within %s; no partial output is returned", tool, timeout)
	case result.ExitCode == 0:
		return nil
	}

	stderr := strings.TrimSpace(result.Stderr)
	if c.IsFormatError(stderr) {
		return pdferrors.New(pdferrors.KindFormat,
			"file is not a readable PDF (corrupt, encrypted or wrong format)").WithDetail(stderr)
	}

	return pdferrors.New(pdferrors.KindExtraction,
		fmt.Sprintf("%s exited with code %d", tool, result.ExitCode)).WithDetail(stderr)
}
