package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != ":8080" {
		t.Fatalf("default port = %q", cfg.Port)
	}
	if cfg.OutDir != "out" || cfg.StoreDB != "data/runs.db" {
		t.Fatalf("default paths wrong: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level = %q", cfg.LogLevel)
	}
	if cfg.Gemini.Enabled {
		t.Fatalf("gemini must be disabled without an api key")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SPECFORGE_OUT_DIR", "/tmp/artifacts")
	t.Setenv("SPECFORGE_LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != ":9999" {
		t.Fatalf("port not normalized with colon prefix: %q", cfg.Port)
	}
	if cfg.OutDir != "/tmp/artifacts" {
		t.Fatalf("out dir override lost: %q", cfg.OutDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level override lost: %q", cfg.LogLevel)
	}
	if !cfg.Gemini.Enabled {
		t.Fatalf("api key must enable the analyzer")
	}
}

func TestLoadYAMLOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	dir := t.TempDir()
	path := filepath.Join(dir, "specforge.yaml")
	yaml := `port: "7777"
out_dir: custom-out
tests:
  frameworks: [pytest]
  include_negative: true
mock:
  port: 5001
  error_rate_percent: 25
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != ":7777" {
		t.Fatalf("yaml must outrank env: %q", cfg.Port)
	}
	if cfg.OutDir != "custom-out" {
		t.Fatalf("out dir = %q", cfg.OutDir)
	}
	if len(cfg.Tests.Frameworks) != 1 || cfg.Tests.Frameworks[0] != "pytest" {
		t.Fatalf("test options lost: %+v", cfg.Tests)
	}
	if !cfg.Tests.IncludeNegative {
		t.Fatalf("include_negative lost")
	}
	if cfg.Mock.Port != 5001 || cfg.Mock.ErrorRatePercent != 25 {
		t.Fatalf("mock config lost: %+v", cfg.Mock)
	}
}

func TestLoadMissingYAMLFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestArtifactS3FromEnv(t *testing.T) {
	t.Setenv("ARTIFACT_S3_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ROOT_USER", "admin")
	t.Setenv("MINIO_ROOT_PASSWORD", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Artifact.S3Enabled {
		t.Fatalf("endpoint must enable s3 mirroring")
	}
	if cfg.Artifact.AccessKey != "admin" || cfg.Artifact.SecretKey != "secret" {
		t.Fatalf("minio credential fallback lost: %+v", cfg.Artifact)
	}
	if cfg.Artifact.Bucket != "specforge-artifacts" {
		t.Fatalf("default bucket = %q", cfg.Artifact.Bucket)
	}
}
