package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	DatasetSource   string
	TripsPath       string
	PassengersPath  string
	DatabaseURL     string
	RunID           string
	RefreshInterval time.Duration

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	TickInterval    time.Duration
	IncrementUnit   float64 // minutes per tick at speed 1
	SpeedMultiplier float64
	StartMinutes    float64 // clock domain lower bound, minutes of day

	PickupToleranceMeters float64

	MetricsAddr string
	ControlAddr string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.DatasetSource = strings.ToLower(getenvDefault("DATASET_SOURCE", SourceFile))
	switch cfg.DatasetSource {
	case SourceFile:
		cfg.TripsPath = getenvDefault("TRIPS_PATH", "data/trips.json")
		cfg.PassengersPath = getenvDefault("PASSENGERS_PATH", "data/passengers.json")
	case SourcePostgres:
		dsn, err := databaseURL()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
		cfg.RunID = strings.TrimSpace(os.Getenv("DATASET_RUN"))
	default:
		return nil, fmt.Errorf("invalid DATASET_SOURCE: %q (want %q or %q)", cfg.DatasetSource, SourceFile, SourcePostgres)
	}

	// Dataset refresh interval (seconds); 0 disables polling
	if v := os.Getenv("DATASET_REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid DATASET_REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.RefreshInterval = time.Duration(sec) * time.Second
	} else {
		cfg.RefreshInterval = 60 * time.Second
	}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "replay")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Tick interval; ~60 Hz matches a display refresh
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = 16 * time.Millisecond
	}

	var err error
	if cfg.IncrementUnit, err = positiveFloat("INCREMENT_MINUTES", 0.1); err != nil {
		return nil, err
	}
	if cfg.SpeedMultiplier, err = positiveFloat("SPEED_MULTIPLIER", 1.0); err != nil {
		return nil, err
	}

	if v := os.Getenv("SIM_START_MINUTES"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f >= 24*60 {
			return nil, fmt.Errorf("invalid SIM_START_MINUTES: %q", v)
		}
		cfg.StartMinutes = f
	}

	// Pickup match tolerance in meters; 0 keeps exact coordinate equality
	if v := os.Getenv("PICKUP_MATCH_TOLERANCE_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid PICKUP_MATCH_TOLERANCE_M: %q", v)
		}
		cfg.PickupToleranceMeters = f
	}

	// Listen addresses (e.g., ":9102"). Empty METRICS_ADDR disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.ControlAddr = getenvDefault("CONTROL_ADDR", ":8088")

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from PG* vars.
func databaseURL() (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set when DATASET_SOURCE=postgres")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func positiveFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
