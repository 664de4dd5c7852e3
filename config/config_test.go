package config

import (
	"strings"
	"testing"
	"time"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func fullEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":              "postgres://localhost/tamagotree",
		"JWT_SECRET":                "secret",
		"SERVICE_TOKEN":             "svc",
		"STORAGE_ENDPOINT":          "https://storage.example.com",
		"STORAGE_ACCESS_KEY_ID":     "key",
		"STORAGE_SECRET_ACCESS_KEY": "shh",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(fullEnv()))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "5200" {
		t.Errorf("Port = %q, want 5200", cfg.Port)
	}
	if cfg.Storage.Bucket != "tree-photos" {
		t.Errorf("Bucket = %q, want tree-photos", cfg.Storage.Bucket)
	}
	if cfg.Storage.Region != "auto" {
		t.Errorf("Region = %q, want auto", cfg.Storage.Region)
	}
	if cfg.ResetSweepInterval != 15*time.Minute {
		t.Errorf("ResetSweepInterval = %v, want 15m", cfg.ResetSweepInterval)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestFromEnv_ParsesOriginsAndInterval(t *testing.T) {
	env := fullEnv()
	env["ALLOWED_ORIGINS"] = " https://a.example , https://b.example,"
	env["RESET_SWEEP_INTERVAL"] = "5m"
	cfg, err := FromEnv(envOf(env))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.ResetSweepInterval != 5*time.Minute {
		t.Errorf("ResetSweepInterval = %v, want 5m", cfg.ResetSweepInterval)
	}
}

func TestFromEnv_MissingRequired(t *testing.T) {
	env := fullEnv()
	delete(env, "JWT_SECRET")
	delete(env, "DATABASE_URL")
	_, err := FromEnv(envOf(env))
	if err == nil {
		t.Fatal("expected error for missing variables")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error %q should name both missing variables", err)
	}
}

func TestFromEnv_BadInterval(t *testing.T) {
	env := fullEnv()
	env["RESET_SWEEP_INTERVAL"] = "soon"
	if _, err := FromEnv(envOf(env)); err == nil {
		t.Fatal("expected error for bad interval")
	}
}
