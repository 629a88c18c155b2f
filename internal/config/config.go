// Package config loads the YAML configuration shared by the ctph tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"ctph/internal/index"
	"ctph/internal/scan"
	"ctph/internal/source"
)

const (
	DefaultPort           = 7304
	DefaultThreshold      = 0
	DefaultMaxUploadBytes = index.DefaultMaxUploadBytes
)

// Config represents the configuration in the YAML file.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Scan   ScanConfig   `yaml:"scan"`
	S3     S3Config     `yaml:"s3"`
}

// LogConfig selects the level and output format of the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// ServerConfig configures the index daemon.
type ServerConfig struct {
	Port             int    `yaml:"port"`
	IndexDir         string `yaml:"indexDir"` // empty keeps the index in memory
	DefaultThreshold int    `yaml:"defaultThreshold"`
	MaxUploadBytes   int64  `yaml:"maxUploadBytes"`
}

// ScanConfig configures how inputs are hashed.
type ScanConfig struct {
	Workers      int   `yaml:"workers"`
	MaxFileBytes int64 `yaml:"maxFileBytes"`
	Recursive    bool  `yaml:"recursive"`
}

// S3Config configures the client used for S3 sources.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"pathStyle"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port:             DefaultPort,
			DefaultThreshold: DefaultThreshold,
			MaxUploadBytes:   DefaultMaxUploadBytes,
		},
	}
}

// Load reads and parses a YAML configuration file over the defaults. An
// empty path yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to process config file '%s': %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for config file '%s': %w", path, err)
	}
	baseDir := filepath.Dir(absPath)

	// Apply substitutions
	config.Server.IndexDir = SubstituteString(config.Server.IndexDir, baseDir)
	config.S3.Region = SubstituteString(config.S3.Region, baseDir)
	config.S3.Endpoint = SubstituteString(config.S3.Endpoint, baseDir)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file '%s': %w", path, err)
	}
	return config, nil
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format '%s'", c.Log.Format)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	if c.Server.DefaultThreshold < 0 || c.Server.DefaultThreshold > 100 {
		return fmt.Errorf("default threshold %d out of range 0-100", c.Server.DefaultThreshold)
	}
	if c.Server.MaxUploadBytes < 0 || c.Scan.MaxFileBytes < 0 {
		return fmt.Errorf("size limits must not be negative")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// NewLogger builds a logger writing to stderr at the configured level and
// format.
func (l LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// Options converts the section into scan options logging to logger.
func (s ScanConfig) Options(logger logrus.FieldLogger) scan.Options {
	return scan.Options{
		Workers:      s.Workers,
		MaxFileBytes: s.MaxFileBytes,
		Logger:       logger,
	}
}

// Options converts the section into S3 client options.
func (s S3Config) Options() source.S3Options {
	return source.S3Options{
		Region:    s.Region,
		Endpoint:  s.Endpoint,
		PathStyle: s.PathStyle,
	}
}

// substitutionRegex matches environment variables ($VAR_NAME), tilde (~),
// asterisk (*) and the escapes \$, \~, \* and \\.
var substitutionRegex = regexp.MustCompile(`\\([~$*])|\\(\\)|(~)|(\*)|(\$[a-zA-Z0-9_]+)`)

// SubstituteString replaces $NAME with the environment variable NAME, '~'
// with the user's home directory and '*' with baseDir, the directory of the
// config file. A backslash in front of '$', '~', '*' or '\' escapes it.
func SubstituteString(in string, baseDir string) string {
	homeDir, _ := os.UserHomeDir()

	return substitutionRegex.ReplaceAllStringFunc(in, func(match string) string {
		switch {
		case strings.HasPrefix(match, `\`):
			return match[1:]
		case match == "~":
			if homeDir != "" {
				return homeDir
			}
			return match
		case match == "*":
			return baseDir
		default:
			return os.Getenv(match[1:])
		}
	})
}
