package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	StorageType     string `yaml:"storage_type"`
	DatabaseURL     string `yaml:"database_url"`
	RedisURL        string `yaml:"redis_url"`
	ServerPort      string `yaml:"server_port"`
	OwnerUsername   string `yaml:"owner_username"`
	OwnerPassword   string `yaml:"owner_password"`
	ConfigFilePath  string `yaml:"config_file"`
	UserAgent       string `yaml:"user_agent"`
	ProbeTimeout    string `yaml:"probe_timeout"`
	ValidateCeiling string `yaml:"validate_ceiling"`
}

// LoadFromFile loads config from a YAML file. owner_password is required;
// database_url is required unless storage_type is "memory".
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := &Config{
		StorageType:     f.StorageType,
		DatabaseURL:     f.DatabaseURL,
		RedisURL:        f.RedisURL,
		ServerPort:      f.ServerPort,
		OwnerUsername:   f.OwnerUsername,
		OwnerPassword:   f.OwnerPassword,
		ConfigFilePath:  f.ConfigFilePath,
		UserAgent:       f.UserAgent,
		ProbeTimeout:    10 * time.Second,
		ValidateCeiling: 60 * time.Second,
	}
	if f.ProbeTimeout != "" {
		if d, err := time.ParseDuration(f.ProbeTimeout); err == nil {
			c.ProbeTimeout = d
		}
	}
	if f.ValidateCeiling != "" {
		if d, err := time.ParseDuration(f.ValidateCeiling); err == nil {
			c.ValidateCeiling = d
		}
	}
	c.applyDefaults()
	return c, c.validate()
}
