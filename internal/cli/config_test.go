package cli

import (
	"path/filepath"
	"testing"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvAPIKey, "")
	return path
}

func TestLoadConfig_MissingFile(t *testing.T) {
	useTempConfig(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultEnv != "dev" {
		t.Errorf("DefaultEnv = %q, want dev", cfg.DefaultEnv)
	}
	if cfg.Environments == nil {
		t.Error("Environments should be non-nil")
	}
}

func TestInitConfig_RoundTrip(t *testing.T) {
	useTempConfig(t)

	if err := InitConfig(); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Environments["dev"].BaseURL != "http://localhost:8080" {
		t.Errorf("dev base_url = %q", cfg.Environments["dev"].BaseURL)
	}
	if cfg.Environments["prod"].APIKey != "" {
		t.Errorf("prod api_key should be empty, got %q", cfg.Environments["prod"].APIKey)
	}
}

func TestGetEnvConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		flagURL string
		flagKey string
		envURL  string
		envKey  string
		wantURL string
		wantKey string
		wantErr bool
	}{
		{name: "config default env", wantURL: "http://localhost:8080", wantKey: "admin-123"},
		{name: "config named env", env: "prod", wantURL: "https://rules.example.com"},
		{name: "unknown env", env: "staging", wantErr: true},
		{name: "flags only", flagURL: "http://flag", flagKey: "k", wantURL: "http://flag", wantKey: "k"},
		{name: "env vars only", envURL: "http://envvar", envKey: "ek", wantURL: "http://envvar", wantKey: "ek"},
		{name: "flag beats env var", flagURL: "http://flag", envURL: "http://envvar", wantURL: "http://flag"},
		{name: "key override on config env", env: "dev", flagKey: "override", wantURL: "http://localhost:8080", wantKey: "override"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTempConfig(t)
			if err := InitConfig(); err != nil {
				t.Fatalf("InitConfig: %v", err)
			}
			t.Setenv(EnvBaseURL, tt.envURL)
			t.Setenv(EnvAPIKey, tt.envKey)

			got, err := GetEnvConfig(tt.env, tt.flagURL, tt.flagKey)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.BaseURL != tt.wantURL || got.APIKey != tt.wantKey {
				t.Errorf("got %+v, want base_url=%q api_key=%q", got, tt.wantURL, tt.wantKey)
			}
		})
	}
}
