package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"OVAI_API_ADDR",
	"OVAI_CORS_ALLOWED_ORIGINS",
	"OVAI_IDP_PROVIDER",
	"OVAI_FIREBASE_CREDENTIALS",
	"OVAI_FIREBASE_PROJECT_ID",
	"OVAI_FIREBASE_TENANT_ID",
	"OVAI_IDP_TIMEOUT",
	"OVAI_VERIFY_CHECK_REVOKED",
	"OVAI_LOCAL_SIGNING_KEY",
	"OVAI_LOG_LEVEL",
	"OVAI_LOG_FORMAT",
}

// clearEnv blanks every OVAI_* variable so the host environment cannot leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OVAI_API_ADDR", ":9898")
	t.Setenv("OVAI_FIREBASE_CREDENTIALS", "/secrets/sa.json")
	t.Setenv("OVAI_FIREBASE_PROJECT_ID", "myovai")
	t.Setenv("OVAI_FIREBASE_TENANT_ID", "tenant-1")
	t.Setenv("OVAI_IDP_TIMEOUT", "2s")
	t.Setenv("OVAI_VERIFY_CHECK_REVOKED", "true")
	t.Setenv("OVAI_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("OVAI_LOG_FORMAT", "json")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if cfg.API.Addr != ":9898" {
		t.Errorf("API.Addr = %q, want %q", cfg.API.Addr, ":9898")
	}
	if cfg.IdP.Provider != ProviderFirebase {
		t.Errorf("IdP.Provider = %q, want %q", cfg.IdP.Provider, ProviderFirebase)
	}
	if cfg.IdP.Credentials != "/secrets/sa.json" {
		t.Errorf("IdP.Credentials = %q", cfg.IdP.Credentials)
	}
	if cfg.IdP.ProjectID != "myovai" || cfg.IdP.TenantID != "tenant-1" {
		t.Errorf("IdP project/tenant = %q/%q", cfg.IdP.ProjectID, cfg.IdP.TenantID)
	}
	if cfg.IdP.Timeout != 2*time.Second {
		t.Errorf("IdP.Timeout = %v, want 2s", cfg.IdP.Timeout)
	}
	if !cfg.IdP.CheckRevoked {
		t.Error("IdP.CheckRevoked = false, want true")
	}
	origins := cfg.API.GetCORSAllowedOrigins()
	if len(origins) != 2 || origins[1] != "https://b.example.com" {
		t.Errorf("CORS origins = %v", origins)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OVAI_FIREBASE_CREDENTIALS", "/secrets/sa.json")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if cfg.API.Addr != DefaultAddr {
		t.Errorf("API.Addr = %q, want %q", cfg.API.Addr, DefaultAddr)
	}
	if cfg.IdP.Timeout != DefaultTimeout {
		t.Errorf("IdP.Timeout = %v, want %v", cfg.IdP.Timeout, DefaultTimeout)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if got := cfg.API.GetCORSAllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("GetCORSAllowedOrigins() = %v, want [*]", got)
	}
}

func TestLoadFromEnv_MissingCredentials(t *testing.T) {
	clearEnv(t)

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("LoadFromEnv() should fail when credentials are not set")
	}
	if !strings.Contains(err.Error(), "OVAI_FIREBASE_CREDENTIALS") {
		t.Errorf("error %q should name the missing variable", err.Error())
	}
}

func TestLoadFromEnv_LocalProviderNeedsNoCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("OVAI_IDP_PROVIDER", "local")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if cfg.IdP.Provider != ProviderLocal {
		t.Errorf("IdP.Provider = %q, want local", cfg.IdP.Provider)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad timeout", key: "OVAI_IDP_TIMEOUT", val: "soon"},
		{name: "bad bool", key: "OVAI_VERIFY_CHECK_REVOKED", val: "maybe"},
		{name: "bad provider", key: "OVAI_IDP_PROVIDER", val: "auth0"},
		{name: "bad log format", key: "OVAI_LOG_FORMAT", val: "xml"},
		{name: "negative timeout", key: "OVAI_IDP_TIMEOUT", val: "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OVAI_FIREBASE_CREDENTIALS", "/secrets/sa.json")
			t.Setenv(tt.key, tt.val)

			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("LoadFromEnv() with %s=%q should fail", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  addr: ":7000"
  cors_allowed_origins:
    - https://app.myovai.example
idp:
  provider: firebase
  credentials: ./sa.json
  project_id: myovai
  timeout: 3s
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.API.Addr != ":7000" {
		t.Errorf("API.Addr = %q, want :7000", cfg.API.Addr)
	}
	if cfg.IdP.Credentials != "./sa.json" {
		t.Errorf("IdP.Credentials = %q", cfg.IdP.Credentials)
	}
	if cfg.IdP.Timeout != 3*time.Second {
		t.Errorf("IdP.Timeout = %v, want 3s", cfg.IdP.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OVAI_API_ADDR", ":9999")
	t.Setenv("OVAI_FIREBASE_CREDENTIALS", "/override/sa.json")
	path := writeConfig(t, `
api:
  addr: ":7000"
idp:
  credentials: ./sa.json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.API.Addr != ":9999" {
		t.Errorf("API.Addr = %q, want :9999", cfg.API.Addr)
	}
	if cfg.IdP.Credentials != "/override/sa.json" {
		t.Errorf("IdP.Credentials = %q, want /override/sa.json", cfg.IdP.Credentials)
	}
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OVAI_IDP_PROVIDER", "local")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v, want nil", err)
	}
	if cfg.IdP.Provider != ProviderLocal {
		t.Errorf("IdP.Provider = %q, want local", cfg.IdP.Provider)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}

	path := writeConfig(t, "api: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}

	path = writeConfig(t, "api:\n  addr: \":7000\"\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail when firebase credentials are missing")
	}
}
