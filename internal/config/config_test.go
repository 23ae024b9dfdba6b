package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DETECTION_THRESHOLD", "")
	t.Setenv("INFERENCE_BACKEND", "")
	t.Setenv("HISTORY_DB_PATH", "")

	cfg := Load()
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, BackendGoCV, cfg.InferenceBackend)
	require.InDelta(t, 0.25, cfg.DetectionThreshold, 1e-9)
	require.Equal(t, 224, cfg.ClassificationInputSize)
	require.False(t, cfg.HistoryEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DETECTION_THRESHOLD", "0.3")
	t.Setenv("INFERENCE_BACKEND", BackendONNX)
	t.Setenv("HISTORY_DB_PATH", "runs.db")
	t.Setenv("MODEL_UPLOAD_ENABLED", "false")
	t.Setenv("DASHBOARD_PASSWORD", "secret")

	cfg := Load()
	require.Equal(t, 9090, cfg.Port)
	require.InDelta(t, 0.3, cfg.DetectionThreshold, 1e-9)
	require.Equal(t, BackendONNX, cfg.InferenceBackend)
	require.True(t, cfg.HistoryEnabled())
	require.False(t, cfg.ModelUploadEnabled)
	require.True(t, cfg.AuthEnabled())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("DETECTION_THRESHOLD", "high")
	t.Setenv("MODEL_UPLOAD_ENABLED", "maybe")

	cfg := Load()
	require.Equal(t, 8080, cfg.Port)
	require.InDelta(t, 0.25, cfg.DetectionThreshold, 1e-9)
	require.True(t, cfg.ModelUploadEnabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.InferenceBackend = "tflite" }},
		{"threshold above one", func(c *Config) { c.DetectionThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.DetectionThreshold = -0.1 }},
		{"zero iou", func(c *Config) { c.DetectionIoU = 0 }},
		{"zero input size", func(c *Config) { c.ClassificationInputSize = 0 }},
		{"zero upload size", func(c *Config) { c.MaxUploadMB = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			cfg.InferenceBackend = BackendGoCV
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
