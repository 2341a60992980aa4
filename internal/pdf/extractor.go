package pdf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	pdferrors "github.com/a3tai/mcp-pdf-processor/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-processor/internal/runner"
)

const (
	DefaultPdftotextPath   = "pdftotext"
	DefaultPdfinfoPath     = "pdfinfo"
	DefaultTextTimeout     = 60 * time.Second
	DefaultMetadataTimeout = 30 * time.Second

	installHint = "Install with: brew install poppler (macOS) or apt-get install poppler-utils (Linux)"
)

// Options configures an Extractor
type Options struct {
	PdftotextPath       string
	PdfinfoPath         string
	TextTimeout         time.Duration
	MetadataTimeout     time.Duration
	ExtraTextArgs       []string // appended to every pdftotext invocation before the file path
	FormatErrorPatterns []string // nil selects DefaultFormatErrorPatterns
	MaxFileSize         int64
	AllowedDirectory    string
}

// Extractor implements the three extraction operations on top of poppler's
// pdftotext and pdfinfo. It holds no per-call state and is safe for
// concurrent use.
type Extractor struct {
	runner     runner.Runner
	validator  *Validator
	classifier *Classifier
	opts       Options
	logger     *logrus.Logger
}

// NewExtractor creates an extractor, filling unset options with defaults
func NewExtractor(r runner.Runner, opts Options, logger *logrus.Logger) (*Extractor, error) {
	if r == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if opts.PdftotextPath == "" {
		opts.PdftotextPath = DefaultPdftotextPath
	}
	if opts.PdfinfoPath == "" {
		opts.PdfinfoPath = DefaultPdfinfoPath
	}
	if opts.TextTimeout <= 0 {
		opts.TextTimeout = DefaultTextTimeout
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = DefaultMetadataTimeout
	}

	validator, err := NewValidator(opts.MaxFileSize, opts.AllowedDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Extractor{
		runner:     r,
		validator:  validator,
		classifier: NewClassifier(opts.FormatErrorPatterns),
		opts:       opts,
		logger:     logger,
	}, nil
}

// ExtractFullText extracts the whole document with layout preservation,
// optionally capped at req.MaxLines lines
func (e *Extractor) ExtractFullText(ctx context.Context, req TextRequest) (*ExtractedText, error) {
	path, err := e.validator.ValidatePath(req.Path)
	if err != nil {
		return nil, err
	}

	if req.MaxLines < 0 {
		return nil, pdferrors.New(pdferrors.KindValidation, "max_lines must be a positive integer")
	}

	text, err := e.pdftotext(ctx, path, 0, 0)
	if err != nil {
		return nil, err
	}

	content, lineCount, truncated := limitLines(text, req.MaxLines)
	return &ExtractedText{
		Content:   content,
		LineCount: lineCount,
		Truncated: truncated,
		Path:      path,
	}, nil
}

// ExtractMetadata reads the document information reported by pdfinfo
func (e *Extractor) ExtractMetadata(ctx context.Context, req MetadataRequest) (*MetadataResult, error) {
	path, err := e.validator.ValidatePath(req.Path)
	if err != nil {
		return nil, err
	}

	md, err := e.pdfinfo(ctx, path)
	if err != nil {
		return nil, err
	}

	return &MetadataResult{Path: path, Metadata: md}, nil
}

// ExtractSection extracts an inclusive page range. An end page past the last
// page is clamped and reported; a start page past the last page is rejected.
func (e *Extractor) ExtractSection(ctx context.Context, req SectionRequest) (*SectionText, error) {
	path, err := e.validator.ValidatePath(req.Path)
	if err != nil {
		return nil, err
	}

	if req.StartPage < 1 {
		return nil, pdferrors.Newf(pdferrors.KindValidation, "start_page must be >= 1, got %d", req.StartPage)
	}
	if req.EndPage < req.StartPage {
		return nil, pdferrors.Newf(pdferrors.KindValidation,
			"end_page (%d) must be >= start_page (%d)", req.EndPage, req.StartPage)
	}

	md, err := e.pdfinfo(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &SectionText{
		StartPage:        req.StartPage,
		EndPage:          req.EndPage,
		RequestedEndPage: req.EndPage,
	}

	if total, ok := md.Pages(); ok {
		result.TotalPages = total
		if req.StartPage > total {
			return nil, pdferrors.Newf(pdferrors.KindValidation,
				"start_page %d is beyond the last page; document has %d page(s)", req.StartPage, total).WithPath(path)
		}
		if req.EndPage > total {
			result.EndPage = total
			result.Clamped = true
			result.Note = fmt.Sprintf("end_page %d exceeds the document's %d page(s); returned pages %d-%d",
				req.EndPage, total, req.StartPage, total)
		}
	} else {
		e.logger.WithField("file_path", path).Debug("pdfinfo reported no page count; using the requested range as-is")
	}

	text, err := e.pdftotext(ctx, path, result.StartPage, result.EndPage)
	if err != nil {
		return nil, err
	}

	content, lineCount, _ := limitLines(text, 0)
	result.ExtractedText = ExtractedText{
		Content:   content,
		LineCount: lineCount,
		Path:      path,
	}
	result.Pages = fmt.Sprintf("%d-%d", result.StartPage, result.EndPage)

	return result, nil
}

// pdftotext runs the text utility; first/last of 0 mean the whole document
func (e *Extractor) pdftotext(ctx context.Context, path string, first, last int) (string, error) {
	args := []string{"-layout"}
	if first > 0 {
		args = append(args, "-f", strconv.Itoa(first))
	}
	if last > 0 {
		args = append(args, "-l", strconv.Itoa(last))
	}
	args = append(args, e.opts.ExtraTextArgs...)
	args = append(args, path, "-")

	result, err := e.run(ctx, e.opts.PdftotextPath, args, e.opts.TextTimeout)
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

func (e *Extractor) pdfinfo(ctx context.Context, path string) (Metadata, error) {
	result, err := e.run(ctx, e.opts.PdfinfoPath, []string{path}, e.opts.MetadataTimeout)
	if err != nil {
		return nil, err
	}
	return ParseMetadata(result.Stdout), nil
}

// run invokes a utility exactly once and classifies every failure
func (e *Extractor) run(ctx context.Context, executable string, args []string, timeout time.Duration) (*runner.Result, error) {
	result, err := e.runner.Run(ctx, executable, args, timeout)
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrExecutableNotFound):
			return nil, pdferrors.Wrap(pdferrors.KindDependencyMissing,
				fmt.Sprintf("%s not found. %s", executable, installHint), err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, pdferrors.Wrap(pdferrors.KindTimeout,
				fmt.Sprintf("%s did not finish before the request deadline", executable), err)
		default:
			return nil, pdferrors.Wrap(pdferrors.KindInternal, "failed to run "+executable, err)
		}
	}

	if cerr := e.classifier.Classify(executable, result, timeout.String()); cerr != nil {
		e.logger.WithFields(logrus.Fields{
			"executable": executable,
			"exit_code":  result.ExitCode,
			"timed_out":  result.TimedOut,
			"kind":       cerr.Kind.String(),
		}).Debug("PDF utility failed")
		return nil, cerr
	}

	return result, nil
}
