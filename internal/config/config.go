package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PanelOverlapPolicy decides what happens when a panel claims an evaluator
// or project that another panel already holds.
type PanelOverlapPolicy string

const (
	OverlapWarn  PanelOverlapPolicy = "warn"
	OverlapBlock PanelOverlapPolicy = "block"
)

type Config struct {
	HTTPAddr string

	DBDriver string // sqlite|postgres
	DBDSN    string

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins []string

	BlobBasePath string // pre-reset backups land here
	BcryptCost   int

	PanelOverlap       PanelOverlapPolicy
	MinPanelEvaluators int
	MinPanelProjects   int
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing default
// ".env" is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) && path == ".env" {
			return nil
		}
		return err
	}
	slog.Info("loaded environment file", "path", path)
	return nil
}

func FromEnv() Config {
	policy := PanelOverlapPolicy(strings.ToLower(envOr("PANEL_OVERLAP_POLICY", string(OverlapWarn))))
	if policy != OverlapBlock {
		policy = OverlapWarn
	}
	return Config{
		HTTPAddr:           envOr("HTTP_ADDR", ":3001"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		JWTSecret:          envOr("JWT_SECRET", "supersecretkey"),
		TokenTTL:           envDuration("TOKEN_TTL", 24*time.Hour),
		CORSOrigins:        csvOr("CORS_ORIGINS", "*"),
		BlobBasePath:       envOr("BLOB_BASE_PATH", "./data"),
		BcryptCost:         envInt("BCRYPT_COST", 12),
		PanelOverlap:       policy,
		MinPanelEvaluators: envInt("MIN_PANEL_EVALUATORS", 3),
		MinPanelProjects:   envInt("MIN_PANEL_PROJECTS", 2),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
