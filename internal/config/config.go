// Package config assembles runtime settings from an optional .env file, the
// process environment and an optional YAML project file, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"specforge/internal/mockgen"
	"specforge/internal/testgen"
)

// Config is everything the CLI and server need.
type Config struct {
	Port     string          `yaml:"port"`
	Env      string          `yaml:"env"`
	OutDir   string          `yaml:"out_dir"`
	StoreDB  string          `yaml:"store_db"`
	LogLevel string          `yaml:"log_level"`
	Gemini   GeminiConfig    `yaml:"gemini"`
	Artifact ArtifactConfig  `yaml:"artifact"`
	Tests    testgen.Options `yaml:"tests"`
	Mock     mockgen.Config  `yaml:"mock"`
}

type GeminiConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

type ArtifactConfig struct {
	S3Enabled bool   `yaml:"s3_enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Load reads .env (when present), then the environment, then the YAML file at
// path (when non-empty).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     ":8080",
		Env:      "local",
		OutDir:   "out",
		StoreDB:  "data/runs.db",
		LogLevel: "info",
	}
	applyEnv(cfg)

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("SPECFORGE_OUT_DIR")); v != "" {
		cfg.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv("SPECFORGE_STORE_DB")); v != "" {
		cfg.StoreDB = v
	}
	if v := strings.TrimSpace(os.Getenv("SPECFORGE_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		cfg.Gemini.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		cfg.Gemini.Model = v
	}
	cfg.Artifact = artifactFromEnv(cfg.Env)
}

func artifactFromEnv(env string) ArtifactConfig {
	endpoint := strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
	if endpoint == "" && strings.EqualFold(env, "local") {
		endpoint = strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return ArtifactConfig{
		S3Enabled: endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(os.Getenv("ARTIFACT_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(os.Getenv("ARTIFACT_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(os.Getenv("ARTIFACT_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(os.Getenv("ARTIFACT_S3_BUCKET"), "specforge-artifacts"),
		UseSSL:    parseBool(os.Getenv("ARTIFACT_S3_USE_SSL"), !strings.EqualFold(env, "local")),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseBool(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
