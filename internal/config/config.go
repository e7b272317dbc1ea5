package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	FaceAPI    FaceAPIConfig
	Database   DatabaseConfig
	Web        WebConfig
	Thresholds ThresholdsConfig
}

type FaceAPIConfig struct {
	URL       string  // base URL of the face embedding service (e.g. http://localhost:8000)
	Model     string  // detector model name, used to pick the default match tolerance
	Tolerance float64 // explicit match tolerance; 0 means use the model default
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Port int
	Host string
}

type ThresholdsConfig struct {
	Models map[string]ModelThreshold `yaml:"models"`
}

type ModelThreshold struct {
	// Tolerance is the maximum cosine distance between a probe encoding and
	// its nearest trained encoding that still counts as a match.
	Tolerance float64 `yaml:"tolerance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	return &Config{
		FaceAPI: FaceAPIConfig{
			URL:       os.Getenv("FACE_API_URL"),
			Model:     os.Getenv("FACE_MODEL"),
			Tolerance: envFloat("MATCH_TOLERANCE", 0),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Port: envInt("WEB_PORT", 8080),
			Host: envStr("WEB_HOST", "0.0.0.0"),
		},
		Thresholds: thresholds,
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// MatchTolerance resolves the effective match tolerance: explicit env override
// first, then the per-model default from thresholds.yaml, then a safe fallback.
func (c *Config) MatchTolerance() float64 {
	if c.FaceAPI.Tolerance > 0 {
		return c.FaceAPI.Tolerance
	}
	if t, ok := c.Thresholds.Models[c.FaceAPI.Model]; ok && t.Tolerance > 0 {
		return t.Tolerance
	}
	return defaultTolerance
}

// defaultTolerance matches the buffalo_l cosine distance threshold.
const defaultTolerance = 0.6
