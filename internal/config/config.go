package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultLogLevel        = "info"
	DefaultMaxFileSize     = 100 * 1024 * 1024 // 100MB
	DefaultPdftotextPath   = "pdftotext"
	DefaultPdfinfoPath     = "pdfinfo"
	DefaultTextTimeout     = 60 * time.Second
	DefaultMetadataTimeout = 30 * time.Second

	// EnvPrefix is prepended to every environment variable, e.g. MCP_PDF_LOGLEVEL
	EnvPrefix = "MCP_PDF"

	// DotEnvFile is loaded from the working directory when present
	DotEnvFile = ".env"
)

// Config holds all configuration for the PDF MCP server
type Config struct {
	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	LogFile    string // empty logs to stderr

	// File access
	AllowedDirectory string // empty allows any path
	MaxFileSize      int64  // Maximum PDF file size in bytes

	// External utilities
	PdftotextPath       string
	PdfinfoPath         string
	TextTimeout         time.Duration
	MetadataTimeout     time.Duration
	PdftotextArgs       string   // extra pdftotext flags, split like a shell word list
	FormatErrorPatterns []string // stderr fragments classified as FormatError; empty uses built-in defaults
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version:         "1.0.0",
		ServerName:      "mcp-pdf-processor",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
		PdftotextPath:   DefaultPdftotextPath,
		PdfinfoPath:     DefaultPdfinfoPath,
		TextTimeout:     DefaultTextTimeout,
		MetadataTimeout: DefaultMetadataTimeout,
	}
}

// LoadFromFlags parses command line flags, environment variables and an
// optional .env file and returns a validated configuration. Precedence is
// flags, then environment, then .env, then defaults.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.AllowedDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.AllowedDirectory); err == nil {
			cfg.AllowedDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding variables already set
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logfile", cfg.LogFile)
	viper.SetDefault("dir", cfg.AllowedDirectory)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("pdftotext", cfg.PdftotextPath)
	viper.SetDefault("pdfinfo", cfg.PdfinfoPath)
	viper.SetDefault("text-timeout", cfg.TextTimeout)
	viper.SetDefault("metadata-timeout", cfg.MetadataTimeout)
	viper.SetDefault("pdftotext-args", cfg.PdftotextArgs)
	viper.SetDefault("format-patterns", cfg.FormatErrorPatterns)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logfile", cfg.LogFile, "Write logs to this file instead of stderr")
	pflag.String("dir", cfg.AllowedDirectory, "Only allow PDFs inside this directory (default: any path)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("pdftotext", cfg.PdftotextPath, "pdftotext executable name or path")
	pflag.String("pdfinfo", cfg.PdfinfoPath, "pdfinfo executable name or path")
	pflag.Duration("text-timeout", cfg.TextTimeout, "Time limit for a pdftotext run")
	pflag.Duration("metadata-timeout", cfg.MetadataTimeout, "Time limit for a pdfinfo run")
	pflag.String("pdftotext-args", cfg.PdftotextArgs, "Extra pdftotext flags, e.g. \"-enc UTF-8 -nopgbrk\"")
	pflag.StringSlice("format-patterns", cfg.FormatErrorPatterns,
		"Comma-separated stderr fragments that mark a file as not a valid PDF")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"loglevel", "logfile", "dir", "maxfilesize", "pdftotext", "pdfinfo",
		"text-timeout", "metadata-timeout", "pdftotext-args", "format-patterns",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Processor - PDF text and metadata extraction tools over the Model Context Protocol\n\n")
		fmt.Fprintf(os.Stderr, "Requires poppler-utils (pdftotext, pdfinfo).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # stdio mode, any path allowed\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs              # restrict access to one directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --text-timeout=2m --loglevel=debug\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from %s):\n", DotEnvFile)
		fmt.Fprintf(os.Stderr, "  MCP_PDF_LOGLEVEL          Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_LOGFILE           Log file\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_DIR               Allowed directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MAXFILESIZE       Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_PDFTOTEXT         pdftotext executable\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_PDFINFO           pdfinfo executable\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_TEXT_TIMEOUT      pdftotext time limit\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_METADATA_TIMEOUT  pdfinfo time limit\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_PDFTOTEXT_ARGS    Extra pdftotext flags\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORMAT_PATTERNS   Format error stderr fragments\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFile = viper.GetString("logfile")
	cfg.AllowedDirectory = viper.GetString("dir")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.PdftotextPath = viper.GetString("pdftotext")
	cfg.PdfinfoPath = viper.GetString("pdfinfo")
	cfg.TextTimeout = viper.GetDuration("text-timeout")
	cfg.MetadataTimeout = viper.GetDuration("metadata-timeout")
	cfg.PdftotextArgs = viper.GetString("pdftotext-args")
	cfg.FormatErrorPatterns = stringList("format-patterns")
}

// stringList reads a list that arrives either as a parsed flag slice or as a
// comma-separated environment value. Patterns may contain spaces, so
// viper's whitespace splitting is not used for strings.
func stringList(key string) []string {
	var items []string
	switch v := viper.Get(key).(type) {
	case []string:
		items = v
	case string:
		items = strings.Split(v, ",")
	default:
		items = viper.GetStringSlice(key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.TextTimeout <= 0 || c.MetadataTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}

	if strings.TrimSpace(c.PdftotextPath) == "" || strings.TrimSpace(c.PdfinfoPath) == "" {
		return errors.New("pdftotext and pdfinfo executables cannot be empty")
	}

	if _, err := c.ExtraTextArgs(); err != nil {
		return err
	}

	if c.AllowedDirectory != "" {
		info, err := os.Stat(c.AllowedDirectory)
		if err != nil {
			return fmt.Errorf("cannot access allowed directory %s: %w", c.AllowedDirectory, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("allowed directory is not a directory: %s", c.AllowedDirectory)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ExtraTextArgs splits PdftotextArgs into an argument vector. Quoting follows
// shell word rules but nothing is ever run through a shell.
func (c *Config) ExtraTextArgs() ([]string, error) {
	if strings.TrimSpace(c.PdftotextArgs) == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.PdftotextArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid pdftotext args %q: %w", c.PdftotextArgs, err)
	}
	return args, nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{AllowedDirectory: %q, LogLevel: %s, MaxFileSize: %d, Pdftotext: %s, Pdfinfo: %s, "+
		"TextTimeout: %s, MetadataTimeout: %s, PdftotextArgs: %q}",
		c.AllowedDirectory, c.LogLevel, c.MaxFileSize, c.PdftotextPath, c.PdfinfoPath,
		c.TextTimeout, c.MetadataTimeout, c.PdftotextArgs)
}
