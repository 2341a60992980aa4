package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-processor/internal/config"
	"github.com/a3tai/mcp-pdf-processor/internal/descriptions"
	"github.com/a3tai/mcp-pdf-processor/internal/pdf"
	pdferrors "github.com/a3tai/mcp-pdf-processor/internal/pdf/errors"
)

// Tool names exposed to the agent
const (
	ToolExtractText     = "extract_pdf_text"
	ToolExtractMetadata = "extract_pdf_metadata"
	ToolExtractSection  = "extract_pdf_section"
)

var internalKind = pdferrors.KindInternal.String()

const internalMessage = "an unexpected error occurred while processing the request"

// Extractor is the PDF functionality the tool handlers depend on
type Extractor interface {
	ExtractFullText(ctx context.Context, req pdf.TextRequest) (*pdf.ExtractedText, error)
	ExtractMetadata(ctx context.Context, req pdf.MetadataRequest) (*pdf.MetadataResult, error)
	ExtractSection(ctx context.Context, req pdf.SectionRequest) (*pdf.SectionText, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	extractor Extractor
	mcpServer *server.MCPServer
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance with the PDF tools registered
func NewServer(cfg *config.Config, extractor Extractor, logger *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool list never changes at runtime
	)

	s := &Server{
		config:    cfg,
		extractor: extractor,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// Tools returns the declared tool definitions
func (s *Server) Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(
			ToolExtractText,
			mcp.WithDescription(descriptions.ExtractPDFTextDescription+descriptions.ErrorKindsGuide),
			mcp.WithString("file_path",
				mcp.Required(),
				mcp.Description("Absolute path to the PDF file"),
			),
			mcp.WithNumber("max_lines",
				mcp.Description("Maximum lines to return (optional positive integer, default: all)"),
				mcp.Min(1),
			),
		),
		mcp.NewTool(
			ToolExtractMetadata,
			mcp.WithDescription(descriptions.ExtractPDFMetadataDescription+descriptions.ErrorKindsGuide),
			mcp.WithString("file_path",
				mcp.Required(),
				mcp.Description("Absolute path to the PDF file"),
			),
		),
		mcp.NewTool(
			ToolExtractSection,
			mcp.WithDescription(descriptions.ExtractPDFSectionDescription+descriptions.ErrorKindsGuide),
			mcp.WithString("file_path",
				mcp.Required(),
				mcp.Description("Absolute path to the PDF file"),
			),
			mcp.WithNumber("start_page",
				mcp.Required(),
				mcp.Description("Starting page number (1-indexed)"),
				mcp.Min(1),
			),
			mcp.WithNumber("end_page",
				mcp.Required(),
				mcp.Description("Ending page number (1-indexed, inclusive)"),
				mcp.Min(1),
			),
		),
	}
}

// registerTools registers every tool with a handler bound to its name
func (s *Server) registerTools() {
	for _, tool := range s.Tools() {
		s.mcpServer.AddTool(tool, s.handlerFor(tool.Name))
	}
}

func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(s.Call(ctx, name, request.GetArguments())), nil
	}
}

// Call validates the arguments, runs the named tool and wraps the outcome in
// the response envelope. It never panics and never returns an unclassified error.
func (s *Server) Call(ctx context.Context, toolName string, args map[string]any) (resp Response) {
	entry := s.logger.WithFields(logrus.Fields{
		"tool":       toolName,
		"request_id": uuid.NewString(),
	})

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("Tool handler panicked")
			resp = Failure(internalKind, internalMessage)
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	entry.Debug("Handling tool call")

	data, err := s.dispatch(ctx, toolName, args)
	if err != nil {
		return s.failure(entry, err)
	}

	entry.Debug("Tool call succeeded")
	return Success(data)
}

func (s *Server) dispatch(ctx context.Context, toolName string, args map[string]any) (any, error) {
	switch toolName {
	case ToolExtractText:
		return s.extractText(ctx, args)
	case ToolExtractMetadata:
		return s.extractMetadata(ctx, args)
	case ToolExtractSection:
		return s.extractSection(ctx, args)
	default:
		return nil, pdferrors.Newf(pdferrors.KindValidation, "unknown tool: %s", toolName)
	}
}

func (s *Server) extractText(ctx context.Context, args map[string]any) (any, error) {
	path, err := requireString(args, "file_path")
	if err != nil {
		return nil, err
	}
	maxLines, _, err := optionalPositiveInt(args, "max_lines")
	if err != nil {
		return nil, err
	}

	return s.extractor.ExtractFullText(ctx, pdf.TextRequest{Path: path, MaxLines: maxLines})
}

func (s *Server) extractMetadata(ctx context.Context, args map[string]any) (any, error) {
	path, err := requireString(args, "file_path")
	if err != nil {
		return nil, err
	}

	return s.extractor.ExtractMetadata(ctx, pdf.MetadataRequest{Path: path})
}

func (s *Server) extractSection(ctx context.Context, args map[string]any) (any, error) {
	path, err := requireString(args, "file_path")
	if err != nil {
		return nil, err
	}
	startPage, err := requirePositiveInt(args, "start_page")
	if err != nil {
		return nil, err
	}
	endPage, err := requirePositiveInt(args, "end_page")
	if err != nil {
		return nil, err
	}
	if endPage < startPage {
		return nil, pdferrors.Newf(pdferrors.KindValidation,
			"end_page (%d) must be >= start_page (%d)", endPage, startPage)
	}

	return s.extractor.ExtractSection(ctx, pdf.SectionRequest{Path: path, StartPage: startPage, EndPage: endPage})
}

// failure converts an error into the envelope; unclassified errors are logged
// and reported with a generic message
func (s *Server) failure(entry *logrus.Entry, err error) Response {
	var perr *pdferrors.Error
	if !errors.As(err, &perr) || perr.Kind == pdferrors.KindInternal {
		entry.WithError(err).Error("Tool call failed with an internal error")
		return Failure(internalKind, internalMessage)
	}

	message := perr.Message
	if perr.Detail != "" {
		message += ": " + perr.Detail
	}

	entry.WithFields(logrus.Fields{
		"kind":      perr.Kind.String(),
		"file_path": perr.Path,
	}).Info(message)

	return Failure(perr.Kind.String(), message)
}

// Run serves the MCP protocol over stdio until the client disconnects
func (s *Server) Run(_ context.Context) error {
	s.logger.WithField("server", s.config.ServerName).Debug("Starting PDF MCP server in stdio mode")

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
