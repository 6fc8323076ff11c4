package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hideandseek.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.PollInterval != want.PollInterval || cfg.GracePeriod != want.GracePeriod || !cfg.GraceHidersOnly {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeFile(t, `
api_base_url: https://game.example.com
poll_interval: 5
grace_period: 30s
grace_hiders_only: false
location:
  source: static
  lat: 47.3769
  lng: 8.5417
`)
	t.Setenv("POLL_INTERVAL", "1s")
	t.Setenv(TokenEnv, "tok")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"base url from file", cfg.APIBaseURL, "https://game.example.com"},
		{"poll interval from env", cfg.PollInterval.Std(), time.Second},
		{"grace period from file", cfg.GracePeriod.Std(), 30 * time.Second},
		{"hiders only from file", cfg.GraceHidersOnly, false},
		{"token from env", cfg.Token, "tok"},
		{"latitude", cfg.Location.Latitude, 47.3769},
		{"untouched default", cfg.NotFoundDelay.Std(), 3 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad duration", "poll_interval: soon\n"},
		{"unknown source", "location:\n  source: gps\n"},
		{"track without file", "location:\n  source: track\n"},
		{"grace too short", "grace_period: 500ms\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
