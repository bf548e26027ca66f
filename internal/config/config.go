package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the layered configuration for every bgpcrunch subcommand:
// a YAML file overlaid with BGPCRUNCH_-prefixed environment variables.
type Config struct {
	Service   ServiceConfig   `koanf:"service"`
	Data      DataConfig      `koanf:"data"`
	BGP       BGPConfig       `koanf:"bgp"`
	Retention RetentionConfig `koanf:"retention"`
	Reporting ReportingConfig `koanf:"reporting"`
}

type ServiceConfig struct {
	InstanceID             string `koanf:"instance_id"`
	HTTPListen             string `koanf:"http_listen"`
	LogLevel               string `koanf:"log_level"`
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`
	Workers                int    `koanf:"workers"`
}

// DataConfig locates the two flat-file roots every phase reads from or
// writes to: the incoming BGP/RIPE snapshot archives, and the per-day
// persisted artifact/report tree.
type DataConfig struct {
	DataRoot   string `koanf:"data_root"`
	ResultRoot string `koanf:"result_root"`
}

// BGPConfig names which router hosts' snapshots to process and the
// observer's own ASN, used as the path checker's implicit final-export
// neighbour when an AS-path's leftmost hop has no successor.
type BGPConfig struct {
	Hosts       []string `koanf:"hosts"`
	ObserverASN uint32   `koanf:"observer_asn"`
}

type RetentionConfig struct {
	Days     int    `koanf:"days"`
	Timezone string `koanf:"timezone"`
}

// ReportingConfig controls the optional Postgres rollup sink. The
// flat-file reports are always written regardless of this section;
// a non-empty DSN only adds the SQL-queryable history on top.
type ReportingConfig struct {
	PostgresDSN string `koanf:"postgres_dsn"`
	MaxConns    int32  `koanf:"max_conns"`
	MinConns    int32  `koanf:"min_conns"`
}

// Load reads path (if non-empty) as YAML, overlays BGPCRUNCH_-prefixed
// environment variables (BGPCRUNCH_BGP__OBSERVER_ASN -> bgp.observer_asn),
// applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("BGPCRUNCH_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "BGPCRUNCH_")
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "__", ".")
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("config: loading env: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			InstanceID:             "bgpcrunch-1",
			HTTPListen:             ":8080",
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 30,
			Workers:                4,
		},
		Retention: RetentionConfig{
			Days:     90,
			Timezone: "UTC",
		},
		Reporting: ReportingConfig{
			MaxConns: 10,
			MinConns: 1,
		},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if len(cfg.BGP.Hosts) == 1 && strings.Contains(cfg.BGP.Hosts[0], ",") {
		cfg.BGP.Hosts = strings.Split(cfg.BGP.Hosts[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Data.DataRoot == "" {
		return fmt.Errorf("config: data.data_root is required")
	}
	if c.Data.ResultRoot == "" {
		return fmt.Errorf("config: data.result_root is required")
	}
	if len(c.BGP.Hosts) == 0 {
		return fmt.Errorf("config: bgp.hosts is required")
	}
	if c.BGP.ObserverASN == 0 {
		return fmt.Errorf("config: bgp.observer_asn is required")
	}
	if c.Service.Workers <= 0 {
		return fmt.Errorf("config: service.workers must be > 0 (got %d)", c.Service.Workers)
	}
	if c.Service.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("config: service.shutdown_timeout_seconds must be > 0 (got %d)", c.Service.ShutdownTimeoutSeconds)
	}
	if c.Retention.Days <= 0 {
		return fmt.Errorf("config: retention.days must be > 0 (got %d)", c.Retention.Days)
	}
	if _, err := time.LoadLocation(c.Retention.Timezone); err != nil {
		return fmt.Errorf("config: retention.timezone is invalid: %w", err)
	}
	if c.Reporting.PostgresDSN != "" {
		if c.Reporting.MaxConns <= 0 {
			return fmt.Errorf("config: reporting.max_conns must be > 0 (got %d)", c.Reporting.MaxConns)
		}
		if c.Reporting.MinConns < 0 {
			return fmt.Errorf("config: reporting.min_conns must be >= 0 (got %d)", c.Reporting.MinConns)
		}
	}
	return nil
}
