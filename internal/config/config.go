package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type SMTP struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSMode   string
	FromEmail string
	FromName  string
}

func (s SMTP) Configured() bool { return s.Host != "" && s.FromEmail != "" }

type Config struct {
	Env          string
	Addr         string
	DBDSN        string
	LogLevel     string
	CookieSecret string
	IDSalt       string
	SessionTTL   time.Duration

	SMTP SMTP

	FCMProjectID   string
	FCMCredentials string

	GoogleWebClientID string
	AppleServiceID    string
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:          getenv("APP_ENV"),
		Addr:         getenv("APP_ADDR"),
		DBDSN:        getenv("APP_DB_DSN"),
		LogLevel:     getenv("APP_LOG_LEVEL"),
		CookieSecret: getenv("APP_COOKIE_SECRET"),
		IDSalt:       getenv("APP_ID_SALT"),
		SMTP: SMTP{
			Host:      getenv("APP_SMTP_HOST"),
			Username:  getenv("APP_SMTP_USERNAME"),
			Password:  getenv("APP_SMTP_PASSWORD"),
			TLSMode:   getenv("APP_SMTP_TLS"),
			FromEmail: getenv("APP_SMTP_FROM_EMAIL"),
			FromName:  getenv("APP_SMTP_FROM_NAME"),
		},
		FCMProjectID:      getenv("APP_FCM_PROJECT_ID"),
		FCMCredentials:    getenv("APP_FCM_CREDENTIALS"),
		GoogleWebClientID: getenv("APP_GOOGLE_CLIENT_ID"),
		AppleServiceID:    getenv("APP_APPLE_SERVICE_ID"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.IDSalt == "" {
		cfg.IDSalt = "planloom-dev"
	}
	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = "Planloom"
	}

	portRaw := getenv("APP_SMTP_PORT")
	if portRaw == "" {
		cfg.SMTP.Port = 587
	} else {
		port, err := strconv.Atoi(portRaw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, errors.New("APP_SMTP_PORT: must be a valid port number")
		}
		cfg.SMTP.Port = port
	}

	ttlRaw := getenv("APP_SESSION_TTL")
	if ttlRaw == "" {
		cfg.SessionTTL = 14 * 24 * time.Hour
	} else {
		ttl, err := time.ParseDuration(ttlRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("APP_SESSION_TTL: must be > 0")
		}
		cfg.SessionTTL = ttl
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	switch cfg.SMTP.TLSMode {
	case "", "starttls", "tls", "none":
	default:
		return Config{}, errors.New("APP_SMTP_TLS: must be one of starttls, tls, none")
	}

	if cfg.FCMProjectID != "" && cfg.FCMCredentials == "" {
		return Config{}, errors.New("APP_FCM_CREDENTIALS: required when APP_FCM_PROJECT_ID is set")
	}

	if cfg.IsProd() {
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
		if cfg.IDSalt == "planloom-dev" {
			return Config{}, errors.New("APP_ID_SALT: required in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool { return c.IsProd() }
