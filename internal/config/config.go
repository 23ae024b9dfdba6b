package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Backend names accepted by INFERENCE_BACKEND.
const (
	BackendGoCV = "gocv"
	BackendONNX = "onnx"
)

type Config struct {
	Port     int
	Password string

	InferenceBackend string
	ONNXRuntimeLib   string

	DetectionModelPath  string
	DetectionConfigPath string
	DetectionLabelsPath string
	DetectionInputSize  int
	DetectionThreshold  float64
	DetectionIoU        float64

	ClassificationModelPath  string
	ClassificationLabelsPath string
	ClassificationInputSize  int

	MaxUploadMB        int64
	ModelUploadEnabled bool
	TempDirectory      string

	HistoryDBPath        string
	HistoryDirectory     string
	HistoryFlushInterval int // seconds

	SessionTTLMinutes int
	LogDirectory      string

	Title  string
	Accent string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvAsInt("PORT", 8080),
		Password: getEnv("DASHBOARD_PASSWORD", ""),

		InferenceBackend: getEnv("INFERENCE_BACKEND", BackendGoCV),
		ONNXRuntimeLib:   getEnv("ONNXRUNTIME_LIB", ""),

		DetectionModelPath:  getEnv("DETECTION_MODEL_PATH", filepath.Join("models", "detector.onnx")),
		DetectionConfigPath: getEnv("DETECTION_CONFIG_PATH", ""),
		DetectionLabelsPath: getEnv("DETECTION_LABELS_PATH", ""),
		DetectionInputSize:  getEnvAsInt("DETECTION_INPUT_SIZE", 640),
		DetectionThreshold:  getEnvAsFloat("DETECTION_THRESHOLD", 0.25),
		DetectionIoU:        getEnvAsFloat("DETECTION_IOU", 0.45),

		ClassificationModelPath:  getEnv("CLASSIFICATION_MODEL_PATH", filepath.Join("models", "classifier.onnx")),
		ClassificationLabelsPath: getEnv("CLASSIFICATION_LABELS_PATH", ""),
		ClassificationInputSize:  getEnvAsInt("CLASSIFICATION_INPUT_SIZE", 224),

		MaxUploadMB:        getEnvAsInt64("MAX_UPLOAD_MB", 20),
		ModelUploadEnabled: getEnvAsBool("MODEL_UPLOAD_ENABLED", true),
		TempDirectory:      getEnv("TEMP_DIR", os.TempDir()),

		HistoryDBPath:        getEnv("HISTORY_DB_PATH", ""),
		HistoryDirectory:     getEnv("HISTORY_DIR", filepath.Join("data", "runs")),
		HistoryFlushInterval: getEnvAsInt("HISTORY_FLUSH_INTERVAL", 30),

		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 60),
		LogDirectory:      getEnv("LOG_DIR", "logs"),

		Title:  getEnv("DASHBOARD_TITLE", "Vision Dashboard"),
		Accent: getEnv("DASHBOARD_ACCENT", "#f5b301"),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.InferenceBackend {
	case BackendGoCV, BackendONNX:
	default:
		return fmt.Errorf("unknown inference backend %q", c.InferenceBackend)
	}
	if c.DetectionThreshold < 0 || c.DetectionThreshold > 1 {
		return fmt.Errorf("detection threshold must be in [0,1], got %v", c.DetectionThreshold)
	}
	if c.DetectionIoU <= 0 || c.DetectionIoU > 1 {
		return fmt.Errorf("detection IoU must be in (0,1], got %v", c.DetectionIoU)
	}
	if c.DetectionInputSize <= 0 || c.ClassificationInputSize <= 0 {
		return fmt.Errorf("model input sizes must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

// HistoryEnabled reports whether completed runs are recorded to sqlite.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDBPath != ""
}

// AuthEnabled reports whether the dashboard requires a password.
func (c *Config) AuthEnabled() bool {
	return c.Password != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
