package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "Replit" {
		t.Errorf("default App.Name = %s, want Replit", cfg.App.Name)
	}
	if cfg.App.Scheme != "replit" {
		t.Errorf("default App.Scheme = %s, want replit", cfg.App.Scheme)
	}
	if cfg.App.BaseURL != "https://replit.com" {
		t.Errorf("default App.BaseURL = %s, want https://replit.com", cfg.App.BaseURL)
	}
	if cfg.App.HomePage != "/desktopApp/home" {
		t.Errorf("default App.HomePage = %s, want /desktopApp/home", cfg.App.HomePage)
	}
	if cfg.App.AuthPage != "/desktopApp/login" {
		t.Errorf("default App.AuthPage = %s, want /desktopApp/login", cfg.App.AuthPage)
	}
	if cfg.Update.Server != "https://desktop.replit.com" {
		t.Errorf("default Update.Server = %s, want https://desktop.replit.com", cfg.Update.Server)
	}
	if cfg.Update.BaseIntervalSec != 300 {
		t.Errorf("default BaseIntervalSec = %d, want 300", cfg.Update.BaseIntervalSec)
	}
	if cfg.Update.MaxIntervalSec != 21600 {
		t.Errorf("default MaxIntervalSec = %d, want 21600", cfg.Update.MaxIntervalSec)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
app:
  base_url: "https://staging.replit.com"
  home_page: "/desktopApp/home"

update:
  server: "https://desktop.staging.replit.com"
  base_interval_sec: 60
  max_interval_sec: 600

logging:
  level: debug
  format: json
`
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.BaseURL != "https://staging.replit.com" {
		t.Errorf("BaseURL = %s, want https://staging.replit.com", cfg.App.BaseURL)
	}
	if cfg.Update.Server != "https://desktop.staging.replit.com" {
		t.Errorf("Update.Server = %s, want https://desktop.staging.replit.com", cfg.Update.Server)
	}
	if cfg.Update.BaseIntervalSec != 60 {
		t.Errorf("BaseIntervalSec = %d, want 60", cfg.Update.BaseIntervalSec)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults
	if cfg.App.Scheme != "replit" {
		t.Errorf("App.Scheme = %s, want replit", cfg.App.Scheme)
	}
}

func TestLoad_EnvOverrides_BaseURL(t *testing.T) {
	t.Setenv("REPLIT_DESKTOP_APP_BASE_URL", "http://localhost:3000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %s, want http://localhost:3000", cfg.App.BaseURL)
	}
}

func TestValidate_RejectsBadBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{"empty", ""},
		{"no scheme", "replit.com"},
		{"bad scheme", "ftp://replit.com"},
		{"no host", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			cfg.App.BaseURL = tt.baseURL
			if err := Validate(cfg); err == nil {
				t.Errorf("Validate() accepted base URL %q", tt.baseURL)
			}
		})
	}
}

func TestValidate_RejectsBadIntervals(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.Update.BaseIntervalSec = 0
	if err := Validate(cfg); err == nil {
		t.Error("Validate() accepted zero base interval")
	}

	cfg.Update.BaseIntervalSec = 600
	cfg.Update.MaxIntervalSec = 60
	if err := Validate(cfg); err == nil {
		t.Error("Validate() accepted max interval below base interval")
	}
}
