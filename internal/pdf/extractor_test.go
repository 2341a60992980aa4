package pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-processor/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-processor/internal/runner"
)

type runnerCall struct {
	executable string
	args       []string
	timeout    time.Duration
}

// fakeRunner records every invocation and answers through respond
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runnerCall
	respond func(executable string, args []string) (*runner.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, executable string, args []string, timeout time.Duration) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runnerCall{executable: executable, args: args, timeout: timeout})
	f.mu.Unlock()
	return f.respond(executable, args)
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const fixturePages = 5

// fivePageDocument mimics pdftotext/pdfinfo on a 5-page document, honouring -f/-l
func fivePageDocument(executable string, args []string) (*runner.Result, error) {
	if executable == DefaultPdfinfoPath {
		return &runner.Result{Stdout: "Title:          Fixture\nPages:          5\nPDF version:    1.4\n"}, nil
	}

	first, last := 1, fixturePages
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-f":
			first, _ = strconv.Atoi(args[i+1])
		case "-l":
			last, _ = strconv.Atoi(args[i+1])
		}
	}
	if last > fixturePages {
		last = fixturePages
	}

	var b strings.Builder
	for p := first; p <= last; p++ {
		fmt.Fprintf(&b, "Page %d heading\nPage %d body\n\f", p, p)
	}
	return &runner.Result{Stdout: b.String()}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestExtractor(t *testing.T, respond func(string, []string) (*runner.Result, error), opts Options) (*Extractor, *fakeRunner) {
	t.Helper()
	fake := &fakeRunner{respond: respond}
	extractor, err := NewExtractor(fake, opts, quietLogger())
	require.NoError(t, err)
	return extractor, fake
}

func writeFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%fixture\n"), 0o644))
	return path
}

func TestExtractor_InvalidPathsNeverSpawn(t *testing.T) {
	tempDir := t.TempDir()
	txt := filepath.Join(tempDir, "notes.txt")
	docx := filepath.Join(tempDir, "report.docx")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(docx, []byte("hello"), 0o644))
	dirWithPDFName := filepath.Join(tempDir, "folder.pdf")
	require.NoError(t, os.Mkdir(dirWithPDFName, 0o755))

	paths := map[string]string{
		"non-existent":        filepath.Join(tempDir, "missing.pdf"),
		"txt extension":       txt,
		"docx extension":      docx,
		"directory":           dirWithPDFName,
		"empty path":          "",
		"non-existent nested": "/definitely/not/here/file.pdf",
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			extractor, fake := newTestExtractor(t, fivePageDocument, Options{})
			ctx := context.Background()

			_, err := extractor.ExtractFullText(ctx, TextRequest{Path: path})
			assert.True(t, pdferrors.Is(err, pdferrors.KindFile), "full text: %v", err)

			_, err = extractor.ExtractMetadata(ctx, MetadataRequest{Path: path})
			assert.True(t, pdferrors.Is(err, pdferrors.KindFile), "metadata: %v", err)

			_, err = extractor.ExtractSection(ctx, SectionRequest{Path: path, StartPage: 1, EndPage: 2})
			assert.True(t, pdferrors.Is(err, pdferrors.KindFile), "section: %v", err)

			assert.Zero(t, fake.callCount(), "no subprocess may be started for an invalid path")
		})
	}
}

func TestExtractor_UppercaseExtensionAccepted(t *testing.T) {
	path := writeFixture(t, "SCAN.PDF")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{})

	_, err := extractor.ExtractFullText(context.Background(), TextRequest{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.callCount())
}

func TestExtractor_FileTooLarge(t *testing.T) {
	path := writeFixture(t, "big.pdf")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{MaxFileSize: 4})

	_, err := extractor.ExtractFullText(context.Background(), TextRequest{Path: path})
	assert.True(t, pdferrors.Is(err, pdferrors.KindFile))
	assert.Zero(t, fake.callCount())
}

func TestExtractor_AllowedDirectory(t *testing.T) {
	path := writeFixture(t, "outside.pdf")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{AllowedDirectory: t.TempDir()})

	_, err := extractor.ExtractMetadata(context.Background(), MetadataRequest{Path: path})
	assert.True(t, pdferrors.Is(err, pdferrors.KindFile))
	assert.Zero(t, fake.callCount())
}

func TestExtractor_ExtractFullText(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	const output = "one\ntwo\nthree\nfour\nfive\n"

	tests := []struct {
		name          string
		maxLines      int
		wantContent   string
		wantLineCount int
		wantTruncated bool
	}{
		{name: "no cap", maxLines: 0, wantContent: output, wantLineCount: 5},
		{name: "cap below line count", maxLines: 3, wantContent: "one\ntwo\nthree", wantLineCount: 3, wantTruncated: true},
		{name: "cap equal to line count", maxLines: 5, wantContent: output, wantLineCount: 5},
		{name: "cap above line count", maxLines: 50, wantContent: output, wantLineCount: 5},
		{name: "cap of one", maxLines: 1, wantContent: "one", wantLineCount: 1, wantTruncated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, fake := newTestExtractor(t, func(string, []string) (*runner.Result, error) {
				return &runner.Result{Stdout: output}, nil
			}, Options{})

			result, err := extractor.ExtractFullText(context.Background(), TextRequest{Path: path, MaxLines: tt.maxLines})
			require.NoError(t, err)

			assert.Equal(t, tt.wantContent, result.Content)
			assert.Equal(t, tt.wantLineCount, result.LineCount)
			assert.Equal(t, tt.wantTruncated, result.Truncated)
			assert.Equal(t, path, result.Path)

			require.Equal(t, 1, fake.callCount(), "exactly one attempt, no retries")
			call := fake.calls[0]
			assert.Equal(t, DefaultPdftotextPath, call.executable)
			assert.Equal(t, []string{"-layout", path, "-"}, call.args)
			assert.Equal(t, DefaultTextTimeout, call.timeout)
		})
	}
}

func TestExtractor_ExtractFullText_NegativeMaxLines(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{})

	_, err := extractor.ExtractFullText(context.Background(), TextRequest{Path: path, MaxLines: -1})
	assert.True(t, pdferrors.Is(err, pdferrors.KindValidation))
	assert.Zero(t, fake.callCount())
}

func TestExtractor_ExtraTextArgsAndPaths(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{
		PdftotextPath: "/opt/poppler/bin/pdftotext",
		ExtraTextArgs: []string{"-enc", "UTF-8"},
		TextTimeout:   5 * time.Second,
	})

	_, err := extractor.ExtractFullText(context.Background(), TextRequest{Path: path})
	require.NoError(t, err)

	require.Equal(t, 1, fake.callCount())
	assert.Equal(t, "/opt/poppler/bin/pdftotext", fake.calls[0].executable)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", path, "-"}, fake.calls[0].args)
	assert.Equal(t, 5*time.Second, fake.calls[0].timeout)
}

func TestExtractor_ErrorClassification(t *testing.T) {
	path := writeFixture(t, "doc.pdf")

	tests := []struct {
		name       string
		result     *runner.Result
		runErr     error
		wantKind   pdferrors.Kind
		wantDetail string
	}{
		{
			name:     "not a pdf",
			result:   &runner.Result{ExitCode: 1, Stderr: "Syntax Warning: May not be a PDF file (continuing anyway)\nSyntax Error: Couldn't find trailer dictionary\n"},
			wantKind: pdferrors.KindFormat,
		},
		{
			name:     "encrypted",
			result:   &runner.Result{ExitCode: 1, Stderr: "Command Line Error: Incorrect password\n"},
			wantKind: pdferrors.KindFormat,
		},
		{
			name:       "generic failure keeps stderr verbatim",
			result:     &runner.Result{ExitCode: 1, Stderr: "I/O Error: Couldn't open file 'doc.pdf': Permission denied."},
			wantKind:   pdferrors.KindExtraction,
			wantDetail: "I/O Error: Couldn't open file 'doc.pdf': Permission denied.",
		},
		{
			name:     "timeout",
			result:   &runner.Result{ExitCode: -1, TimedOut: true, Stdout: "partial text"},
			wantKind: pdferrors.KindTimeout,
		},
		{
			name:     "executable missing",
			runErr:   fmt.Errorf("%w: pdftotext", runner.ErrExecutableNotFound),
			wantKind: pdferrors.KindDependencyMissing,
		},
		{
			name:     "parent deadline",
			runErr:   fmt.Errorf("running pdftotext: %w", context.DeadlineExceeded),
			wantKind: pdferrors.KindTimeout,
		},
		{
			name:     "unexpected start failure",
			runErr:   fmt.Errorf("running pdftotext: permission denied"),
			wantKind: pdferrors.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, fake := newTestExtractor(t, func(string, []string) (*runner.Result, error) {
				return tt.result, tt.runErr
			}, Options{})

			result, err := extractor.ExtractFullText(context.Background(), TextRequest{Path: path})
			require.Error(t, err)
			assert.Nil(t, result, "no partial result on failure")
			assert.Equal(t, tt.wantKind, pdferrors.KindOf(err), "got %v", err)
			assert.Equal(t, 1, fake.callCount(), "failures are never retried")

			if tt.wantDetail != "" {
				var perr *pdferrors.Error
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantDetail, perr.Detail)
			}
		})
	}
}

func TestExtractor_DependencyMissingMentionsInstall(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, _ := newTestExtractor(t, func(string, []string) (*runner.Result, error) {
		return nil, fmt.Errorf("%w: pdfinfo", runner.ErrExecutableNotFound)
	}, Options{})

	_, err := extractor.ExtractMetadata(context.Background(), MetadataRequest{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poppler")
	assert.Contains(t, err.Error(), "pdfinfo not found")
}

func TestExtractor_CustomFormatPatterns(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, _ := newTestExtractor(t, func(string, []string) (*runner.Result, error) {
		return &runner.Result{ExitCode: 2, Stderr: "Fehler: keine gültige PDF-Datei"}, nil
	}, Options{FormatErrorPatterns: []string{"Keine Gültige PDF"}})

	_, err := extractor.ExtractFullText(context.Background(), TextRequest{Path: path})
	assert.Equal(t, pdferrors.KindFormat, pdferrors.KindOf(err))
}

func TestExtractor_ExtractMetadata(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{})

	result, err := extractor.ExtractMetadata(context.Background(), MetadataRequest{Path: path})
	require.NoError(t, err)

	assert.Equal(t, path, result.Path)
	assert.Equal(t, "Fixture", result.Metadata["Title"])
	assert.Equal(t, 5, result.Metadata["Pages"])
	assert.Equal(t, "1.4", result.Metadata["PDF version"])
	assert.NotContains(t, result.Metadata, "Author", "absent keys are omitted, never defaulted")

	require.Equal(t, 1, fake.callCount())
	assert.Equal(t, DefaultPdfinfoPath, fake.calls[0].executable)
	assert.Equal(t, []string{path}, fake.calls[0].args)
	assert.Equal(t, DefaultMetadataTimeout, fake.calls[0].timeout)
}

func TestExtractor_ExtractSection_Validation(t *testing.T) {
	path := writeFixture(t, "doc.pdf")

	tests := []struct {
		name       string
		start, end int
	}{
		{name: "end before start", start: 3, end: 2},
		{name: "zero start", start: 0, end: 2},
		{name: "negative start", start: -1, end: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, fake := newTestExtractor(t, fivePageDocument, Options{})

			_, err := extractor.ExtractSection(context.Background(), SectionRequest{Path: path, StartPage: tt.start, EndPage: tt.end})
			assert.True(t, pdferrors.Is(err, pdferrors.KindValidation), "got %v", err)
			assert.Zero(t, fake.callCount())
		})
	}
}

func TestExtractor_ExtractSection_ClampsEndPage(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{})
	ctx := context.Background()

	exact, err := extractor.ExtractSection(ctx, SectionRequest{Path: path, StartPage: 1, EndPage: 5})
	require.NoError(t, err)
	assert.False(t, exact.Clamped)
	assert.Empty(t, exact.Note)

	clamped, err := extractor.ExtractSection(ctx, SectionRequest{Path: path, StartPage: 1, EndPage: 999})
	require.NoError(t, err)

	assert.Equal(t, exact.Content, clamped.Content)
	assert.NotEmpty(t, clamped.Content)
	assert.True(t, clamped.Clamped)
	assert.NotEmpty(t, clamped.Note)
	assert.Equal(t, 5, clamped.EndPage)
	assert.Equal(t, 999, clamped.RequestedEndPage)
	assert.Equal(t, 5, clamped.TotalPages)
	assert.Equal(t, "1-5", clamped.Pages)
	assert.False(t, clamped.Truncated)

	// pdfinfo + pdftotext per call
	require.Equal(t, 4, fake.callCount())
	assert.Equal(t, []string{"-layout", "-f", "1", "-l", "5", path, "-"}, fake.calls[3].args)
}

func TestExtractor_ExtractSection_Range(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, _ := newTestExtractor(t, fivePageDocument, Options{})

	result, err := extractor.ExtractSection(context.Background(), SectionRequest{Path: path, StartPage: 2, EndPage: 3})
	require.NoError(t, err)

	assert.Equal(t, "Page 2 heading\nPage 2 body\n\fPage 3 heading\nPage 3 body\n\f", result.Content)
	assert.Equal(t, "2-3", result.Pages)
	assert.False(t, result.Clamped)
}

func TestExtractor_ExtractSection_StartBeyondLastPage(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, fake := newTestExtractor(t, fivePageDocument, Options{})

	_, err := extractor.ExtractSection(context.Background(), SectionRequest{Path: path, StartPage: 7, EndPage: 9})
	assert.True(t, pdferrors.Is(err, pdferrors.KindValidation), "got %v", err)
	assert.Equal(t, 1, fake.callCount(), "only the page count lookup runs")
}

func TestExtractor_ExtractSection_UnknownPageCount(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, _ := newTestExtractor(t, func(executable string, args []string) (*runner.Result, error) {
		if executable == DefaultPdfinfoPath {
			return &runner.Result{Stdout: "Title: No page count\n"}, nil
		}
		return fivePageDocument(executable, args)
	}, Options{})

	result, err := extractor.ExtractSection(context.Background(), SectionRequest{Path: path, StartPage: 4, EndPage: 8})
	require.NoError(t, err)
	assert.False(t, result.Clamped)
	assert.Zero(t, result.TotalPages)
	assert.Equal(t, "4-8", result.Pages)
	assert.Contains(t, result.Content, "Page 5 body")
}

func TestExtractor_ExtractSection_MetadataFailure(t *testing.T) {
	path := writeFixture(t, "doc.pdf")
	extractor, fake := newTestExtractor(t, func(string, []string) (*runner.Result, error) {
		return &runner.Result{ExitCode: 1, Stderr: "Syntax Error: Couldn't read xref table"}, nil
	}, Options{})

	_, err := extractor.ExtractSection(context.Background(), SectionRequest{Path: path, StartPage: 1, EndPage: 2})
	assert.Equal(t, pdferrors.KindFormat, pdferrors.KindOf(err))
	assert.Equal(t, 1, fake.callCount())
}

func TestNewExtractor_NilRunner(t *testing.T) {
	_, err := NewExtractor(nil, Options{}, nil)
	assert.Error(t, err)
}
