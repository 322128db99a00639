package config

import (
	"fmt"
	"os"
	"strconv"

	"PanoGuard/pkg/pipeline"
)

// AppConfig is the process configuration read from the environment.
type AppConfig struct {
	Port           string
	Env            string
	ModelRegistry  string
	ModelName      string
	OnnxRuntimeLib string
	InferenceMode  pipeline.Mode
	StorageDir     string
	DicomWorkDir   string
	MaxUploadSize  int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func LoadAppConfig() (AppConfig, error) {
	mode, err := pipeline.ParseMode(os.Getenv("INFERENCE_MODE"))
	if err != nil {
		return AppConfig{}, err
	}

	rps, err := floatEnv("RATE_LIMIT_RPS", 5)
	if err != nil {
		return AppConfig{}, err
	}
	burst, err := intEnv("RATE_LIMIT_BURST", 10)
	if err != nil {
		return AppConfig{}, err
	}
	maxMB, err := intEnv("MAX_UPLOAD_MB", 50)
	if err != nil {
		return AppConfig{}, err
	}

	return AppConfig{
		Port:           stringEnv("APP_PORT", "3000"),
		Env:            stringEnv("APP_ENV", "development"),
		ModelRegistry:  stringEnv("MODEL_REGISTRY", "./config/models.yaml"),
		ModelName:      os.Getenv("MODEL_NAME"),
		OnnxRuntimeLib: os.Getenv("ONNXRUNTIME_LIB"),
		InferenceMode:  mode,
		StorageDir:     stringEnv("STORAGE_DIR", "./storage/images"),
		DicomWorkDir:   os.Getenv("DICOM_WORK_DIR"),
		MaxUploadSize:  int64(maxMB) * 1024 * 1024,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, v)
	}
	return f, nil
}
