// Package config provides configuration management for tabprep transformers
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/validation"
)

// Accepted configuration tokens.
const (
	HashingFast   = "fast"
	HashingMurmur = "murmur"

	MissingError      = "error"
	MissingZeroImpute = "zero_impute"

	FailureRaise = "raise"
	FailureWarn  = "warn"
	FailurePass  = "pass"

	ResolutionNone = "none"
)

var (
	// HashingChoices lists the supported hash families.
	HashingChoices = []string{HashingFast, HashingMurmur}
	// MissingChoices lists the supported missing-value policies.
	MissingChoices = []string{MissingError, MissingZeroImpute}
	// FailureChoices lists the supported estimator failure policies.
	FailureChoices = []string{FailureRaise, FailureWarn, FailurePass}
	// ResolutionChoices lists the supported datetime resolutions, coarsest first.
	ResolutionChoices = []string{"year", "month", "day", "hour", "minute", "second", ResolutionNone}
)

// Config represents the global configuration for tabprep transformers
type Config struct {
	// Min-hash encoder configuration
	NComponents   int    `json:"n_components" yaml:"n_components"`     // Output width per encoded column
	NGramMin      int    `json:"ngram_min" yaml:"ngram_min"`           // Smallest n-gram length
	NGramMax      int    `json:"ngram_max" yaml:"ngram_max"`           // Largest n-gram length
	Hashing       string `json:"hashing" yaml:"hashing"`               // Hash family: fast or murmur
	MinMaxHash    bool   `json:"minmax_hash" yaml:"minmax_hash"`       // Emit minima and maxima
	HandleMissing string `json:"handle_missing" yaml:"handle_missing"` // error or zero_impute
	Seed          uint64 `json:"seed" yaml:"seed"`                     // Hash family seed

	// Parallelism and caching
	NJobs         int `json:"n_jobs" yaml:"n_jobs"`                 // Worker count; negative counts back from the CPU count
	CacheCapacity int `json:"cache_capacity" yaml:"cache_capacity"` // Max cached vectors per column

	// Interpolation join configuration
	JoinSuffix         string `json:"join_suffix" yaml:"join_suffix"`                   // Appended on column name collision
	OnEstimatorFailure string `json:"on_estimator_failure" yaml:"on_estimator_failure"` // raise, warn or pass
	NNeighbors         int    `json:"n_neighbors" yaml:"n_neighbors"`                   // k for the default KNN estimators
	DatetimeResolution string `json:"datetime_resolution" yaml:"datetime_resolution"`   // Finest calendar part for date keys

	// Debugging Configuration
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"`
}

// SystemInfo contains system information for configuration validation
type SystemInfo struct {
	CPUCount     int
	Architecture string
	OSType       string
}

// ConfigValidator validates and provides recommendations for configuration
type ConfigValidator struct {
	systemInfo SystemInfo
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultNComponents   = 30
	DefaultNGramMin      = 2
	DefaultNGramMax      = 4
	DefaultNJobs         = 1
	DefaultCacheCapacity = 1024
	DefaultNNeighbors    = 5
	DefaultResolution    = "hour"
)

// Initialize global configuration with defaults
func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		NComponents:   DefaultNComponents,
		NGramMin:      DefaultNGramMin,
		NGramMax:      DefaultNGramMax,
		Hashing:       HashingFast,
		MinMaxHash:    false,
		HandleMissing: MissingZeroImpute,

		NJobs:         DefaultNJobs,
		CacheCapacity: DefaultCacheCapacity,

		JoinSuffix:         "",
		OnEstimatorFailure: FailureRaise,
		NNeighbors:         DefaultNNeighbors,
		DatetimeResolution: DefaultResolution,

		VerboseLogging: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c.NComponents <= 0 {
		return errors.NewConfigurationError(op, fmt.Sprintf("n_components must be positive, got %d", c.NComponents))
	}

	if c.NGramMin <= 0 || c.NGramMax < c.NGramMin {
		return errors.NewConfigurationError(op,
			fmt.Sprintf("ngram range must satisfy 0 < min <= max, got (%d, %d)", c.NGramMin, c.NGramMax))
	}

	if c.NJobs == 0 {
		return errors.NewConfigurationError(op, "n_jobs must be non-zero")
	}

	if c.CacheCapacity <= 0 {
		return errors.NewConfigurationError(op, fmt.Sprintf("cache_capacity must be positive, got %d", c.CacheCapacity))
	}

	if c.NNeighbors <= 0 {
		return errors.NewConfigurationError(op, fmt.Sprintf("n_neighbors must be positive, got %d", c.NNeighbors))
	}

	if err := validation.NewCompoundValidator(
		validation.NewChoiceValidator(op, "hashing", c.Hashing, HashingChoices...),
		validation.NewChoiceValidator(op, "handle_missing", c.HandleMissing, MissingChoices...),
		validation.NewChoiceValidator(op, "on_estimator_failure", c.OnEstimatorFailure, FailureChoices...),
		validation.NewChoiceValidator(op, "datetime_resolution", c.DatetimeResolution, ResolutionChoices...),
	).Validate(); err != nil {
		return err
	}

	if c.MinMaxHash {
		if c.Hashing == HashingMurmur {
			return errors.NewConfigurationError(op,
				"minmax_hash encoding is not supported with the murmur hashing function")
		}
		if c.NComponents%2 != 0 {
			return errors.NewConfigurationError(op,
				fmt.Sprintf("n_components should be even when using minmax_hash encoding, got %d", c.NComponents))
		}
	}
	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.NComponents == 0 {
		c.NComponents = defaults.NComponents
	}
	if c.NGramMin == 0 {
		c.NGramMin = defaults.NGramMin
	}
	if c.NGramMax == 0 {
		c.NGramMax = defaults.NGramMax
	}
	if c.Hashing == "" {
		c.Hashing = defaults.Hashing
	}
	if c.HandleMissing == "" {
		c.HandleMissing = defaults.HandleMissing
	}
	if c.NJobs == 0 {
		c.NJobs = defaults.NJobs
	}
	if c.CacheCapacity == 0 {
		c.CacheCapacity = defaults.CacheCapacity
	}
	if c.OnEstimatorFailure == "" {
		c.OnEstimatorFailure = defaults.OnEstimatorFailure
	}
	if c.NNeighbors == 0 {
		c.NNeighbors = defaults.NNeighbors
	}
	if c.DatetimeResolution == "" {
		c.DatetimeResolution = defaults.DatetimeResolution
	}

	// Note: Boolean fields, Seed and JoinSuffix keep their zero values;
	// use NewConfig() directly if you need those defaults

	return c
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, loadError("LoadFromJSON", "parsing JSON configuration", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, loadError("LoadFromFile", "reading config file "+filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, loadError("LoadFromFile", "unsupported config file format: "+ext, nil)
	}

	if err != nil {
		return Config{}, loadError("LoadFromFile", "parsing config file "+filename, err)
	}

	return config.WithDefaults(), nil
}

func loadError(op, message string, cause error) error {
	return &errors.PrepError{Kind: errors.KindConfiguration, Op: op, Message: message, Cause: cause}
}

// ApplyEnv overrides fields of config with the TABPREP_* variables that are
// set. Unparseable values leave the field unchanged.
func ApplyEnv(config Config) Config {

	envInt("TABPREP_N_COMPONENTS", &config.NComponents)
	envInt("TABPREP_NGRAM_MIN", &config.NGramMin)
	envInt("TABPREP_NGRAM_MAX", &config.NGramMax)
	envInt("TABPREP_N_JOBS", &config.NJobs)
	envInt("TABPREP_CACHE_CAPACITY", &config.CacheCapacity)
	envInt("TABPREP_N_NEIGHBORS", &config.NNeighbors)

	envString("TABPREP_HASHING", &config.Hashing)
	envString("TABPREP_HANDLE_MISSING", &config.HandleMissing)
	envString("TABPREP_JOIN_SUFFIX", &config.JoinSuffix)
	envString("TABPREP_ON_ESTIMATOR_FAILURE", &config.OnEstimatorFailure)
	envString("TABPREP_DATETIME_RESOLUTION", &config.DatetimeResolution)

	envBool("TABPREP_MINMAX_HASH", &config.MinMaxHash)
	envBool("TABPREP_VERBOSE_LOGGING", &config.VerboseLogging)

	if val := os.Getenv("TABPREP_SEED"); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			config.Seed = parsed
		}
	}

	return config
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			*dst = parsed
		}
	}
}

func envString(key string, dst *string) {
	if _, ok := os.LookupEnv(key); ok {
		*dst = os.Getenv(key)
	}
}

// GetSystemInfo returns system information for configuration validation
func GetSystemInfo() SystemInfo {
	return SystemInfo{
		CPUCount:     runtime.NumCPU(),
		Architecture: runtime.GOARCH,
		OSType:       runtime.GOOS,
	}
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		systemInfo: GetSystemInfo(),
	}
}

// Validate validates a configuration and provides recommendations
func (cv *ConfigValidator) Validate(config Config) (Config, []string, error) {
	var warnings []string
	validated := config

	if err := config.Validate(); err != nil {
		return Config{}, warnings, err
	}

	if config.NJobs > cv.systemInfo.CPUCount*2 {
		warnings = append(warnings,
			fmt.Sprintf("n_jobs (%d) exceeds 2x CPU count (%d), may cause contention",
				config.NJobs, cv.systemInfo.CPUCount))
	}

	if config.NJobs < 0 {
		validated.NJobs = max(1, cv.systemInfo.CPUCount+1+config.NJobs)
		warnings = append(warnings,
			fmt.Sprintf("Resolving n_jobs=%d to %d workers", config.NJobs, validated.NJobs))
	}

	return validated, warnings, nil
}
