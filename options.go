package sitransfer

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/opd-ai/sitransfer/interfaces"
	"github.com/opd-ai/sitransfer/limits"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidOptions is returned when options fail validation.
var ErrInvalidOptions = errors.New("invalid options")

// Options contains configuration for a Client.
type Options struct {
	// Enabled switches SI file transfer on. A disabled client neither
	// advertises the feature nor handles protocol events.
	Enabled bool `yaml:"enabled"`
	// BlockSize is the in-band bytestream block size requested when sending.
	BlockSize int `yaml:"block_size"`
	// MaxFileSize rejects larger offers and sends. Zero means unlimited.
	MaxFileSize int64 `yaml:"max_file_size"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
}

// NewOptions creates a new default options.
func NewOptions() *Options {
	return &Options{
		Enabled:     true,
		BlockSize:   limits.DefaultBlockSize,
		MaxFileSize: limits.DefaultMaxFileSize,
		LogLevel:    "info",
	}
}

// Environment variables read by ApplyEnvironment.
const (
	EnvEnabled     = "SITRANSFER_ENABLED"
	EnvBlockSize   = "SITRANSFER_BLOCK_SIZE"
	EnvMaxFileSize = "SITRANSFER_MAX_FILE_SIZE"
	EnvLogLevel    = "SITRANSFER_LOG_LEVEL"
)

// LoadOptions reads YAML options from path on top of the defaults, then
// applies environment overrides.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}

	options := NewOptions()
	if err := yaml.Unmarshal(data, options); err != nil {
		return nil, fmt.Errorf("parse options %s: %w", path, err)
	}
	options.ApplyEnvironment()
	if err := options.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":      "LoadOptions",
		"path":          path,
		"enabled":       options.Enabled,
		"block_size":    options.BlockSize,
		"max_file_size": options.MaxFileSize,
		"log_level":     options.LogLevel,
	}).Debug("Options loaded")
	return options, nil
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if err := limits.ValidateBlockSize(o.BlockSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.MaxFileSize < 0 {
		return fmt.Errorf("%w: max file size %d is negative", ErrInvalidOptions, o.MaxFileSize)
	}
	if _, err := o.level(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

func (o *Options) level() (logrus.Level, error) {
	if o.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(o.LogLevel)
}

func (o *Options) transferConfig() interfaces.TransferConfig {
	return interfaces.TransferConfig{
		BlockSize:   o.BlockSize,
		MaxFileSize: o.MaxFileSize,
	}
}

// ApplyEnvironment overrides options from SITRANSFER_* environment variables.
// Values that fail to parse or are out of range are logged and ignored.
func (o *Options) ApplyEnvironment() {
	if v := os.Getenv(EnvEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			warnEnv(EnvEnabled, v, err, o.Enabled)
		} else {
			o.Enabled = enabled
		}
	}

	if v := os.Getenv(EnvBlockSize); v != "" {
		blockSize, err := strconv.Atoi(v)
		if err == nil {
			err = limits.ValidateBlockSize(blockSize)
		}
		if err != nil {
			warnEnv(EnvBlockSize, v, err, o.BlockSize)
		} else {
			o.BlockSize = blockSize
		}
	}

	if v := os.Getenv(EnvMaxFileSize); v != "" {
		maxSize, err := limits.ParseDeclaredSize(v)
		if err != nil {
			warnEnv(EnvMaxFileSize, v, err, o.MaxFileSize)
		} else {
			o.MaxFileSize = maxSize
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		if _, err := logrus.ParseLevel(v); err != nil {
			warnEnv(EnvLogLevel, v, err, o.LogLevel)
		} else {
			o.LogLevel = v
		}
	}
}

func warnEnv(name, value string, err error, using interface{}) {
	logrus.WithFields(logrus.Fields{
		"function":    "ApplyEnvironment",
		"env_var":     name,
		"value":       value,
		"error":       err.Error(),
		"using_value": using,
	}).Warn("Ignoring invalid environment override")
}
