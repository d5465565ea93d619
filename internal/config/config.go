package config

import (
	"errors"
	"os"
	"time"
)

// ErrMissingDatabaseURL is returned when postgres storage is selected but
// DATABASE_URL is not set.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for postgres storage")

// ErrMissingOwnerPassword is returned when ICETV_PASSWORD is not set; the
// owner password also keys the auth cookie signatures.
var ErrMissingOwnerPassword = errors.New("ICETV_PASSWORD is required")

// Storage modes. Memory keeps the document in process and supports no
// persistent accounts.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	StorageType string
	DatabaseURL string
	RedisURL    string
	ServerPort  string

	OwnerUsername string
	OwnerPassword string

	ConfigFilePath string // optional subscription JSON used to seed config sources

	UserAgent       string        // sent on source probes unless the source overrides it
	ProbeTimeout    time.Duration // per-source probe timeout
	ValidateCeiling time.Duration // wall-clock ceiling for a whole validation run
}

// Load builds config from environment variables. If ICETV_PASSWORD is not
// set, Load tries .env.local and .env from the working directory first.
// Defaults: storage postgres, port 8080, probe timeout 10s, ceiling 60s.
func Load() (*Config, error) {
	if os.Getenv("ICETV_PASSWORD") == "" {
		loadEnvFiles()
	}

	c := &Config{
		StorageType:     os.Getenv("ICETV_STORAGE_TYPE"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ServerPort:      os.Getenv("PORT"),
		OwnerUsername:   os.Getenv("ICETV_USERNAME"),
		OwnerPassword:   os.Getenv("ICETV_PASSWORD"),
		ConfigFilePath:  os.Getenv("ICETV_CONFIG_FILE"),
		UserAgent:       os.Getenv("ICETV_USER_AGENT"),
		ProbeTimeout:    10 * time.Second,
		ValidateCeiling: 60 * time.Second,
	}
	if s := os.Getenv("ICETV_PROBE_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.ProbeTimeout = d
		}
	}
	if s := os.Getenv("ICETV_VALIDATE_CEILING"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.ValidateCeiling = d
		}
	}
	c.applyDefaults()
	return c, c.validate()
}

func (c *Config) applyDefaults() {
	if c.StorageType == "" {
		c.StorageType = StoragePostgres
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.OwnerUsername == "" {
		c.OwnerUsername = "admin"
	}
	if c.UserAgent == "" {
		c.UserAgent = "IceTV/1.0"
	}
}

func (c *Config) validate() error {
	if c.OwnerPassword == "" {
		return ErrMissingOwnerPassword
	}
	if c.StorageType == StoragePostgres && c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}
