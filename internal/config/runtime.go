package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultAddr          = ":8080"
	defaultDatabaseURL   = "mediastore.db"
	defaultStorageRoot   = "./uploads"
	defaultStorageScheme = "flat"
	defaultURLBase       = "/static/uploads"
	defaultTable         = "uploads"
	defaultSequence      = "upload_id_seq"
)

// RuntimeConfig holds everything the service reads from the
// environment.
type RuntimeConfig struct {
	Addr          string
	DatabaseURL   string
	StorageRoot   string
	StorageScheme string
	URLBase       string
	TempDir       string
	Table         string
	Sequence      string
	SpecPath      string
	StrictMime    bool
	ExtraColumns  []string          // extra logical columns accepted by inserts
	ColumnMap     map[string]string // logical:physical column overrides
}

func LoadRuntimeConfig() (*RuntimeConfig, error) {
	cfg := &RuntimeConfig{
		Addr:          getEnv("ADDR", defaultAddr),
		DatabaseURL:   getEnv("DATABASE_URL", defaultDatabaseURL),
		StorageRoot:   getEnv("STORAGE_ROOT", defaultStorageRoot),
		StorageScheme: getEnv("STORAGE_SCHEME", defaultStorageScheme),
		URLBase:       getEnv("URL_BASE", defaultURLBase),
		TempDir:       getEnv("TEMP_DIR", ""),
		Table:         getEnv("UPLOADS_TABLE", defaultTable),
		Sequence:      getEnv("UPLOADS_SEQUENCE", defaultSequence),
		SpecPath:      strings.TrimSpace(os.Getenv("UPLOAD_SPEC")),
	}

	strict, err := parseBoolEnv("STRICT_MIME", "false")
	if err != nil {
		return nil, err
	}
	cfg.StrictMime = strict

	if raw := strings.TrimSpace(os.Getenv("UPLOADS_EXTRA_COLUMNS")); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.ExtraColumns = append(cfg.ExtraColumns, c)
			}
		}
	}

	if raw := strings.TrimSpace(os.Getenv("UPLOADS_COLUMN_MAP")); raw != "" {
		cfg.ColumnMap = make(map[string]string)
		for _, pair := range strings.Split(raw, ",") {
			logical, physical, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if !ok || logical == "" || physical == "" {
				return nil, fmt.Errorf("UPLOADS_COLUMN_MAP: malformed pair %q", pair)
			}
			cfg.ColumnMap[logical] = physical
		}
	}

	if cfg.SpecPath == "" {
		return nil, fmt.Errorf("UPLOAD_SPEC is empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key, fallback string) (bool, error) {
	v, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
