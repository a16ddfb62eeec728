// Package config centralizes process configuration, read once at startup
// from the environment with hardcoded fallback defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Scheduler holds the Job Scheduler's tunables (spec §4.1).
type Scheduler struct {
	MaxConcurrent int
	MaxQueueSize  int
	TaskTimeout   time.Duration
	ReapInterval  time.Duration
}

// Cache holds the Result Cache's tunables (spec §4.2).
type Cache struct {
	MaxSize      int
	TTL          time.Duration
	SweepInterval time.Duration
}

// Diarize holds segmentation model configuration (spec §4.4).
type Diarize struct {
	Backend             string // "frame" or "pyannote"
	SegmentationModel   string
	EmbeddingModel      string
	Threshold           float32
	MinDurationOn       float32
	MinDurationOff      float32
	ClusterThreshold    float32
	NumClusters         int
	NumThreads          int
}

// Separate holds the separation pipeline's external tool configuration
// (spec §4.5).
type Separate struct {
	ScriptPath      string
	PythonBin       string
	SubprocessTimeout time.Duration
	MaxOutputBytes  int64
}

// Config is the process-wide configuration snapshot.
type Config struct {
	Port           string
	MaxUploadBytes int64
	FFmpegBin      string
	Scheduler      Scheduler
	Cache          Cache
	Diarize        Diarize
	Separate       Separate
}

// Load reads configuration from the environment, applying the defaults
// enumerated in spec.md where a variable is unset. Values are captured
// once; later changes to the environment are ignored by callers that hold
// onto the returned Config (see internal/scheduler and internal/cache
// singletons).
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 100*1024*1024),
		FFmpegBin:      getEnv("FFMPEG_BIN", "ffmpeg"),
		Scheduler: Scheduler{
			MaxConcurrent: getEnvInt("SCHEDULER_MAX_CONCURRENT", 2),
			MaxQueueSize:  getEnvInt("SCHEDULER_MAX_QUEUE", 10),
			TaskTimeout:   getEnvDuration("SCHEDULER_TASK_TIMEOUT", 300*time.Second),
			ReapInterval:  getEnvDuration("SCHEDULER_REAP_INTERVAL", 60*time.Second),
		},
		Cache: Cache{
			MaxSize:       getEnvInt("CACHE_MAX_SIZE", 50),
			TTL:           getEnvDuration("CACHE_TTL", time.Hour),
			SweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", 10*time.Minute),
		},
		Diarize: Diarize{
			Backend:           getEnv("DIARIZE_BACKEND", "pyannote"),
			SegmentationModel: getEnv("DIARIZE_SEGMENTATION_MODEL", "models/segmentation/pyannote-segmentation-3.0.onnx"),
			EmbeddingModel:    getEnv("DIARIZE_EMBEDDING_MODEL", "models/embedding/3dspeaker-embedding.onnx"),
			Threshold:         float32(getEnvFloat("DIARIZE_THRESHOLD", 0.3)),
			MinDurationOn:     float32(getEnvFloat("DIARIZE_MIN_DURATION_ON", 0.2)),
			MinDurationOff:    float32(getEnvFloat("DIARIZE_MIN_DURATION_OFF", 0.5)),
			ClusterThreshold:  float32(getEnvFloat("DIARIZE_CLUSTER_THRESHOLD", 0.5)),
			NumClusters:       getEnvInt("DIARIZE_NUM_CLUSTERS", -1),
			NumThreads:        getEnvInt("DIARIZE_NUM_THREADS", 2),
		},
		Separate: Separate{
			ScriptPath:        getEnv("SEPARATE_SCRIPT", "scripts/sepformer-python-service.py"),
			PythonBin:         getEnv("SEPARATE_PYTHON_BIN", "python3"),
			SubprocessTimeout: getEnvDuration("SEPARATE_SUBPROCESS_TIMEOUT", 120*time.Second),
			MaxOutputBytes:    getEnvInt64("SEPARATE_MAX_OUTPUT_BYTES", 50*1024*1024),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
