package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

type Config struct {
	ProfilePath string
	Cycles      int

	// browser
	Driver       string // rod | playwright
	Headless     bool
	RemoteURL    string
	UserAgent    string
	ArtifactsDir string

	InitialRetries int
	InitialBackoff time.Duration
	PortalURL      string

	// journal and notifications
	DatabaseURL   string
	JournalSQLite string
	NATSURL       string
	NATSSubject   string

	AntiCaptchaURL string
	WebhookURL     string

	LogLevel  string
	LogFormat string // text | json
}

func FromEnv() (Config, error) {
	cfg := Config{
		ProfilePath:    getenv("CITA_PROFILE", "profile.yaml"),
		Driver:         strings.ToLower(getenv("CITA_DRIVER", "rod")),
		RemoteURL:      os.Getenv("CITA_REMOTE_URL"),
		UserAgent:      os.Getenv("CITA_USER_AGENT"),
		ArtifactsDir:   getenv("CITA_ARTIFACTS_DIR", "."),
		PortalURL:      getenv("CITA_PORTAL_URL", cita.DefaultPortalURL),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JournalSQLite:  os.Getenv("CITA_JOURNAL_SQLITE"),
		NATSURL:        os.Getenv("NATS_URL"),
		NATSSubject:    getenv("NATS_SUBJECT", "cita.outcomes"),
		AntiCaptchaURL: getenv("ANTICAPTCHA_URL", "https://api.anti-captcha.com"),
		WebhookURL:     getenv("WEBHOOK_URL", "https://webhook.site"),
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getenv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.Cycles, err = positive("CITA_CYCLES", "144"); err != nil {
		return Config{}, err
	}
	if cfg.InitialRetries, err = positive("CITA_INITIAL_RETRIES", "10"); err != nil {
		return Config{}, err
	}
	backoff, err := positive("CITA_INITIAL_BACKOFF_SECONDS", "350")
	if err != nil {
		return Config{}, err
	}
	cfg.InitialBackoff = time.Duration(backoff) * time.Second

	if cfg.Headless, err = strconv.ParseBool(getenv("CITA_HEADLESS", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid CITA_HEADLESS")
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Driver {
	case "rod", "playwright":
	default:
		return fmt.Errorf("CITA_DRIVER must be rod or playwright (got %q)", c.Driver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json (got %q)", c.LogFormat)
	}
	if c.Cycles < 1 {
		return fmt.Errorf("cycles must be at least 1")
	}
	return nil
}

func positive(k, def string) (int, error) {
	n, err := strconv.Atoi(getenv(k, def))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return n, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
