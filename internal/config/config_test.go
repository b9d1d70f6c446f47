package config

import (
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("env: got %q", cfg.Env)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("addr: got %q", cfg.Addr)
	}
	if cfg.SessionTTL != 14*24*time.Hour {
		t.Fatalf("session ttl: got %s", cfg.SessionTTL)
	}
	if cfg.SMTP.Port != 587 {
		t.Fatalf("smtp port: got %d", cfg.SMTP.Port)
	}
	if cfg.SMTP.Configured() {
		t.Fatal("smtp should not be configured by default")
	}
}

func TestSessionTTLParsing(t *testing.T) {
	cfg, err := LoadFromEnv(env(map[string]string{"APP_SESSION_TTL": "48h"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL != 48*time.Hour {
		t.Fatalf("session ttl: got %s", cfg.SessionTTL)
	}

	if _, err := LoadFromEnv(env(map[string]string{"APP_SESSION_TTL": "-1h"})); err == nil {
		t.Fatal("negative ttl accepted")
	}
	if _, err := LoadFromEnv(env(map[string]string{"APP_SESSION_TTL": "soon"})); err == nil {
		t.Fatal("malformed ttl accepted")
	}
}

func TestProdValidation(t *testing.T) {
	base := map[string]string{
		"APP_ENV":           "prod",
		"APP_DB_DSN":        "postgres://localhost/planloom",
		"APP_COOKIE_SECRET": strings.Repeat("s", 32),
		"APP_ID_SALT":       "prod-salt",
	}

	if _, err := LoadFromEnv(env(base)); err != nil {
		t.Fatalf("valid prod config rejected: %v", err)
	}

	for _, missing := range []string{"APP_DB_DSN", "APP_COOKIE_SECRET", "APP_ID_SALT"} {
		vars := make(map[string]string, len(base))
		for k, v := range base {
			vars[k] = v
		}
		delete(vars, missing)
		if _, err := LoadFromEnv(env(vars)); err == nil {
			t.Fatalf("prod config without %s accepted", missing)
		}
	}
}

func TestFCMRequiresCredentials(t *testing.T) {
	if _, err := LoadFromEnv(env(map[string]string{"APP_FCM_PROJECT_ID": "proj"})); err == nil {
		t.Fatal("fcm project without credentials accepted")
	}
}

func TestBadSMTPValues(t *testing.T) {
	if _, err := LoadFromEnv(env(map[string]string{"APP_SMTP_PORT": "notaport"})); err == nil {
		t.Fatal("bad smtp port accepted")
	}
	if _, err := LoadFromEnv(env(map[string]string{"APP_SMTP_TLS": "maybe"})); err == nil {
		t.Fatal("bad smtp tls mode accepted")
	}
}
