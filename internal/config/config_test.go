// ABOUTME: Tests for configuration loading, env expansion, and validation.
// ABOUTME: Verifies defaults, duration parsing, and required-field errors.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:9090"

servicenow:
  instance_url: "https://example.service-now.com"
  username: "admin"
  password: "secret"
  timeout: "10s"

auth:
  api_key: "s3cr3t"
  require_auth_on_stream: true

sessions:
  max_entries: 64
  ttl: "1h"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:9090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:9090")
	}
	if cfg.ServiceNow.InstanceURL != "https://example.service-now.com" {
		t.Errorf("ServiceNow.InstanceURL = %q", cfg.ServiceNow.InstanceURL)
	}
	if cfg.ServiceNow.Timeout != 10*time.Second {
		t.Errorf("ServiceNow.Timeout = %v, want 10s", cfg.ServiceNow.Timeout)
	}
	if cfg.Auth.APIKey != "s3cr3t" {
		t.Errorf("Auth.APIKey = %q, want %q", cfg.Auth.APIKey, "s3cr3t")
	}
	if !cfg.Auth.RequireAuthOnStream {
		t.Error("Auth.RequireAuthOnStream = false, want true")
	}
	if cfg.Sessions.MaxEntries != 64 {
		t.Errorf("Sessions.MaxEntries = %d, want 64", cfg.Sessions.MaxEntries)
	}
	if cfg.Sessions.TTL != time.Hour {
		t.Errorf("Sessions.TTL = %v, want 1h", cfg.Sessions.TTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
servicenow:
  instance_url: "https://example.service-now.com"
  token: "abc123"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("Server.HTTPAddr = %q, want default %q", cfg.Server.HTTPAddr, DefaultHTTPAddr)
	}
	if cfg.Sessions.MaxEntries != DefaultSessionMaxEntries {
		t.Errorf("Sessions.MaxEntries = %d, want default %d", cfg.Sessions.MaxEntries, DefaultSessionMaxEntries)
	}
	if cfg.Sessions.TTL != DefaultSessionTTL {
		t.Errorf("Sessions.TTL = %v, want default %v", cfg.Sessions.TTL, DefaultSessionTTL)
	}
	if cfg.ServiceNow.Timeout != DefaultBackendTimeout {
		t.Errorf("ServiceNow.Timeout = %v, want default %v", cfg.ServiceNow.Timeout, DefaultBackendTimeout)
	}
	if cfg.Auth.APIKey != "" {
		t.Errorf("Auth.APIKey = %q, want empty (unauthenticated mode)", cfg.Auth.APIKey)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("SNOWGATE_TEST_INSTANCE", "https://env.service-now.com")
	t.Setenv("SNOWGATE_TEST_KEY", "from-env")

	path := writeConfig(t, `
servicenow:
  instance_url: "${SNOWGATE_TEST_INSTANCE}"
  token: "tok"

auth:
  api_key: "${SNOWGATE_TEST_KEY}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ServiceNow.InstanceURL != "https://env.service-now.com" {
		t.Errorf("InstanceURL = %q, env var not expanded", cfg.ServiceNow.InstanceURL)
	}
	if cfg.Auth.APIKey != "from-env" {
		t.Errorf("APIKey = %q, env var not expanded", cfg.Auth.APIKey)
	}
}

func TestLoadMissingInstanceURL(t *testing.T) {
	path := writeConfig(t, `
servicenow:
  username: "admin"
  password: "secret"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want instance_url validation error")
	}
	if !strings.Contains(err.Error(), "instance_url") {
		t.Errorf("error = %v, want mention of instance_url", err)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	path := writeConfig(t, `
servicenow:
  instance_url: "https://example.service-now.com"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want credentials validation error")
	}
	if !strings.Contains(err.Error(), "credentials") {
		t.Errorf("error = %v, want mention of credentials", err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := writeConfig(t, `
servicenow:
  instance_url: "https://example.service-now.com"
  token: "tok"

sessions:
  ttl: "not-a-duration"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want duration parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want file read error")
	}
}
