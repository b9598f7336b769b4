package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", "")
	os.Setenv("STT_MODEL", "")
	os.Setenv("HEYGEN_BASE_URL", "")
	os.Setenv("VOISS_BASE_URL", "")
	cfg := Load()
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.STTModel == "" {
		t.Fatalf("expected default stt model")
	}
	if cfg.HeyGenBase == "" {
		t.Fatalf("expected default heygen base url")
	}
	if cfg.VoissBaseURL == "" {
		t.Fatalf("expected default voiss base url")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", ":9999")
	os.Setenv("STT_MODEL", "whisper-1")
	defer os.Unsetenv("HTTP_ADDRESS")
	defer os.Unsetenv("STT_MODEL")
	cfg := Load()
	if cfg.HTTPAddress != ":9999" {
		t.Fatalf("expected :9999, got %s", cfg.HTTPAddress)
	}
	if cfg.STTModel != "whisper-1" {
		t.Fatalf("expected whisper-1, got %s", cfg.STTModel)
	}
}
