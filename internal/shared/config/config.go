package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSaltKey is the development salt. Production refuses to start with it.
const DefaultSaltKey = "CHANGE_ME_IN_PRODUCTION_abc123xyz"

// DefaultAllowedSigners lists the issuing authorities trusted out of the box.
var DefaultAllowedSigners = []string{
	"Hellenic Republic",
	"HELLENIC REPUBLIC",
	"Ministry of Digital Governance",
	"MINISTRY OF DIGITAL GOVERNANCE",
	"Ελληνική Δημοκρατία",
	"Υπουργείο Ψηφιακής Διακυβέρνησης",
	"APOSTILLE",
}

// Config holds application configuration.
type Config struct {
	Port             string
	Env              string
	APIPrefix        string
	CORSAllowOrigin  []string
	DatabaseURL      string
	SaltKey          string
	AllowedSigners   []string
	AllowVoteUpdate  bool
	Debug            bool
	TrustRootsFile   string
	MaxUploadBytes   int64
	RedisURL         string
	PollTokenTTL     time.Duration
	UploadsPerMinute int
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:             "8001",
		Env:              "dev",
		APIPrefix:        "/api/ballot",
		CORSAllowOrigin:  []string{"http://localhost:5173"},
		SaltKey:          DefaultSaltKey,
		AllowedSigners:   append([]string(nil), DefaultAllowedSigners...),
		MaxUploadBytes:   10 << 20,
		PollTokenTTL:     24 * time.Hour,
		UploadsPerMinute: 30,
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// environment variables, which take precedence.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			log.Printf("config file %s ignored: %v", path, err)
		}
	}
	applyEnv(&cfg)

	if cfg.Env == "production" && cfg.Debug {
		log.Printf("DEBUG token bypass is not allowed in production; disabling")
		cfg.Debug = false
	}
	return cfg
}

// Validate reports settings that must not reach a production deployment.
func (c Config) Validate() error {
	var errs []error
	if len(c.AllowedSigners) == 0 {
		errs = append(errs, errors.New("ALLOWED_SIGNERS must not be empty"))
	}
	if strings.TrimSpace(c.SaltKey) == "" {
		errs = append(errs, errors.New("SALT_KEY must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	if c.Env == "production" {
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
		if c.SaltKey == DefaultSaltKey {
			errs = append(errs, errors.New("SALT_KEY must be changed in production"))
		}
		if c.Debug {
			errs = append(errs, errors.New("DEBUG must be off in production"))
		}
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) {
	if v, ok := lookupEnv("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := lookupEnv("ENV"); ok {
		cfg.Env = v
	}
	cfg.Env = normalizeEnv(cfg.Env)
	if v, ok := lookupEnv("API_PREFIX"); ok {
		cfg.APIPrefix = v
	}
	if v, ok := lookupEnv("CORS_ALLOW_ORIGINS"); ok {
		cfg.CORSAllowOrigin = splitAndTrim(v)
	}
	if v, ok := lookupEnv("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookupEnv("SALT_KEY"); ok {
		cfg.SaltKey = v
	}
	if v, ok := lookupEnv("ALLOWED_SIGNERS"); ok {
		cfg.AllowedSigners = splitAndTrim(v)
	}
	if v, ok := lookupEnv("ALLOW_VOTE_UPDATE"); ok {
		cfg.AllowVoteUpdate = parseBool("ALLOW_VOTE_UPDATE", v, cfg.AllowVoteUpdate)
	}
	if v, ok := lookupEnv("DEBUG"); ok {
		cfg.Debug = parseBool("DEBUG", v, cfg.Debug)
	}
	if v, ok := lookupEnv("TRUST_ROOTS_FILE"); ok {
		cfg.TrustRootsFile = v
	}
	if v, ok := lookupEnv("MAX_UPLOAD_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		} else {
			log.Printf("config env MAX_UPLOAD_BYTES invalid int: %v", err)
		}
	}
	if v, ok := lookupEnv("REDIS_URL"); ok {
		cfg.RedisURL = v
	}
	if v, ok := lookupEnv("POLL_TOKEN_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollTokenTTL = d
		} else {
			log.Printf("config env POLL_TOKEN_TTL invalid duration: %v", err)
		}
	}
	if v, ok := lookupEnv("RATE_LIMIT_UPLOADS_PER_MIN"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UploadsPerMinute = n
		} else {
			log.Printf("config env RATE_LIMIT_UPLOADS_PER_MIN invalid int: %v", err)
		}
	}
}

func lookupEnv(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}

func parseBool(key, raw string, def bool) bool {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config env %s invalid bool: %v", key, err)
		return def
	}
	return b
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

// IsDevLike reports whether env permits in-memory fallbacks.
func IsDevLike(env string) bool {
	switch normalizeEnv(env) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
