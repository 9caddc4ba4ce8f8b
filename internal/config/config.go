package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/Tubbz-alt/ripples/domain/core"
	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/graph"
	"github.com/Tubbz-alt/ripples/internal/mapping"
)

// Config represents the complete generator configuration
type Config struct {
	Workers   WorkersConfig
	Tuning    Tuning
	Device    DeviceConfig
	Sampling  SamplingConfig
	Profiling ProfilingConfig
}

// WorkersConfig holds the worker topology
type WorkersConfig struct {
	CPU int
	GPU int
	// Mapping is the comma-separated list of GPU ranks; empty selects the default.
	Mapping string
}

// Total returns the number of workers of both kinds.
func (w WorkersConfig) Total() int {
	return w.CPU + w.GPU
}

// Tuning holds the batch and kernel constants of the engine
type Tuning struct {
	// CPUBatch is the number of samples a CPU worker claims at once.
	CPUBatch int
	// ICBatch is the number of samples a GPU IC worker claims at once.
	ICBatch int
	// BlockSize is the LT kernel block size.
	BlockSize int
	// GPUThreads is the LT device-thread budget, and the LT batch size.
	GPUThreads int
	// MaskWords is the per-thread LT result width.
	MaskWords int
}

// DefaultTuning returns the engine defaults.
func DefaultTuning() Tuning {
	return Tuning{
		CPUBatch:   32,
		ICBatch:    32,
		BlockSize:  256,
		GPUThreads: 1 << 15,
		MaskWords:  8,
	}
}

// Validate checks the tuning for internal consistency.
func (t Tuning) Validate() error {
	switch {
	case t.CPUBatch <= 0 || t.ICBatch <= 0:
		return invalidTuning("batch sizes must be positive (cpu=%d ic=%d)", t.CPUBatch, t.ICBatch)
	case t.BlockSize <= 0 || t.GPUThreads <= 0:
		return invalidTuning("block size %d and thread budget %d must be positive", t.BlockSize, t.GPUThreads)
	case t.GPUThreads%t.BlockSize != 0:
		return invalidTuning("thread budget %d is not a multiple of block size %d", t.GPUThreads, t.BlockSize)
	case t.MaskWords < 2:
		return invalidTuning("mask width %d, need at least 2 words", t.MaskWords)
	}
	return nil
}

func invalidTuning(format string, args ...interface{}) error {
	return errors.WithCode(errors.CodeConfigInvalid,
		fmt.Errorf("%w: "+format, append([]interface{}{core.ErrInvalidTuning}, args...)...))
}

// DeviceConfig holds the emulated device settings
type DeviceConfig struct {
	MaxBlocks    int
	BFSBlockSize int
	// MemoryLimit caps device allocations in bytes; zero means unlimited.
	MemoryLimit int64
	MaxStreams  int
}

// SamplingConfig holds what to sample and how often
type SamplingConfig struct {
	Model       rrr.DiffusionModel
	Seed        uint64
	GraphPath   string
	GraphFormat string
	Weights     graph.WeightScheme
	Probability float64
	Theta       int
	Rounds      int
}

// ProfilingConfig holds diagnostics settings
type ProfilingConfig struct {
	Enabled     bool
	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Workers:   loadWorkersConfig(),
		Tuning:    loadTuning(),
		Device:    loadDeviceConfig(),
		Profiling: loadProfilingConfig(),
	}

	sampling, err := loadSamplingConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sampling configuration")
	}
	config.Sampling = *sampling

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks the whole configuration. It is run again by callers
// that override loaded values.
func (c *Config) Validate() error {
	if _, err := mapping.ParseGPUMapping(c.Workers.Total(), c.Workers.GPU, c.Workers.Mapping); err != nil {
		return err
	}
	if err := c.Tuning.Validate(); err != nil {
		return err
	}
	if c.Device.MaxBlocks <= 0 || c.Device.BFSBlockSize <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("device blocks %d and BFS block size %d must be positive",
			c.Device.MaxBlocks, c.Device.BFSBlockSize))
	}
	if c.Device.MemoryLimit < 0 || c.Device.MaxStreams < 0 {
		return errors.ConfigInvalid("device limits must not be negative")
	}
	if c.Sampling.Theta < 0 {
		return errors.WithCode(errors.CodeConfigInvalid, core.ErrNegativeTheta)
	}
	if c.Sampling.Rounds <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("rounds must be positive, got %d", c.Sampling.Rounds))
	}
	if c.Sampling.Probability < 0 || c.Sampling.Probability > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("edge probability %v outside [0, 1]", c.Sampling.Probability))
	}
	switch c.Sampling.GraphFormat {
	case "edgelist", "binary":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown graph format %q", c.Sampling.GraphFormat))
	}
	return nil
}

// GPUMapping returns the validated GPU ranks, nil for the default mapping.
func (c *Config) GPUMapping() (mapping.Ranks, error) {
	return mapping.ParseGPUMapping(c.Workers.Total(), c.Workers.GPU, c.Workers.Mapping)
}

func loadWorkersConfig() WorkersConfig {
	return WorkersConfig{
		CPU:     getEnvIntOrDefault("RRR_CPU_WORKERS", runtime.NumCPU()),
		GPU:     getEnvIntOrDefault("RRR_GPU_WORKERS", 0),
		Mapping: getEnvOrDefault("RRR_GPU_MAPPING", ""),
	}
}

func loadTuning() Tuning {
	def := DefaultTuning()
	return Tuning{
		CPUBatch:   getEnvIntOrDefault("RRR_CPU_BATCH", def.CPUBatch),
		ICBatch:    getEnvIntOrDefault("RRR_IC_BATCH", def.ICBatch),
		BlockSize:  getEnvIntOrDefault("RRR_BLOCK_SIZE", def.BlockSize),
		GPUThreads: getEnvIntOrDefault("RRR_GPU_THREADS", def.GPUThreads),
		MaskWords:  getEnvIntOrDefault("RRR_MASK_WORDS", def.MaskWords),
	}
}

func loadDeviceConfig() DeviceConfig {
	return DeviceConfig{
		MaxBlocks:    getEnvIntOrDefault("RRR_DEVICE_MAX_BLOCKS", 1024),
		BFSBlockSize: getEnvIntOrDefault("RRR_BFS_BLOCK_SIZE", 256),
		MemoryLimit:  int64(getEnvIntOrDefault("RRR_DEVICE_MEMORY_LIMIT", 0)),
		MaxStreams:   getEnvIntOrDefault("RRR_DEVICE_MAX_STREAMS", 0),
	}
}

func loadSamplingConfig() (*SamplingConfig, error) {
	model, err := rrr.ParseDiffusionModel(getEnvOrDefault("RRR_MODEL", "ic"))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	weights, err := graph.ParseWeightScheme(getEnvOrDefault("RRR_WEIGHTS", "uniform"))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	return &SamplingConfig{
		Model:       model,
		Seed:        getEnvUint64OrDefault("RRR_SEED", 0),
		GraphPath:   getEnvOrDefault("RRR_GRAPH", ""),
		GraphFormat: getEnvOrDefault("RRR_GRAPH_FORMAT", "edgelist"),
		Weights:     weights,
		Probability: getEnvFloatOrDefault("RRR_EDGE_PROBABILITY", 0.1),
		Theta:       getEnvIntOrDefault("RRR_THETA", 1000),
		Rounds:      getEnvIntOrDefault("RRR_ROUNDS", 1),
	}, nil
}

func loadProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:     getEnvBoolOrDefault("RRR_PROFILE", false),
		MetricsAddr: getEnvOrDefault("RRR_METRICS_ADDR", ""),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64OrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
