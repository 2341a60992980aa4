package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-processor/internal/config"
	"github.com/a3tai/mcp-pdf-processor/internal/mcp"
	"github.com/a3tai/mcp-pdf-processor/internal/pdf"
	"github.com/a3tai/mcp-pdf-processor/internal/runner"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the logger. Stdout carries the MCP protocol, so logs
// go to stderr or to the configured file. The returned closer is nil when
// logging to stderr.
func setupLogging(cfg *config.Config) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	if cfg.LogFile == "" {
		return logger, nil, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
	}
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(f)
	return logger, f, nil
}

// newServer wires the subprocess runner, the extractor and the MCP server
func newServer(cfg *config.Config, logger *logrus.Logger) (*mcp.Server, error) {
	extraArgs, err := cfg.ExtraTextArgs()
	if err != nil {
		return nil, err
	}

	r := runner.NewExecRunner(cfg.TextTimeout, runner.WithLogger(logger))

	extractor, err := pdf.NewExtractor(r, pdf.Options{
		PdftotextPath:       cfg.PdftotextPath,
		PdfinfoPath:         cfg.PdfinfoPath,
		TextTimeout:         cfg.TextTimeout,
		MetadataTimeout:     cfg.MetadataTimeout,
		ExtraTextArgs:       extraArgs,
		FormatErrorPatterns: cfg.FormatErrorPatterns,
		MaxFileSize:         cfg.MaxFileSize,
		AllowedDirectory:    cfg.AllowedDirectory,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF extractor: %w", err)
	}

	return mcp.NewServer(cfg, extractor, logger)
}

// run serves until the client disconnects or a termination signal arrives
func run(ctx context.Context, server *mcp.Server, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
		return nil
	case err := <-errCh:
		return err
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, closer, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	logger.WithField("config", cfg.String()).Debug("Starting with configuration")

	server, err := newServer(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create MCP server")
		os.Exit(1)
	}

	if err := run(context.Background(), server, logger); err != nil {
		logger.WithError(err).Error("Server error")
		if closer != nil {
			closer.Close()
		}
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Processor\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
