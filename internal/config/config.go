// Package config defines the configuration structures for a ReactEA run.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Experiment inputs
// ─────────────────────────────────────────────────────────────────────────────

// ExperimentConfig names the run and where its outputs go.
type ExperimentConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	// Seed for the root random source. 0 means time-based.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// CompoundsConfig points at the initial population and coreactant files.
type CompoundsConfig struct {
	InitPopPath     string `mapstructure:"init_pop_path" yaml:"init_pop_path"`
	InitPopSize     int    `mapstructure:"init_pop_size" yaml:"init_pop_size"`
	CoreactantsPath string `mapstructure:"coreactants_path" yaml:"coreactants_path"`
}

// RulesConfig points at the reaction rules file.
type RulesConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	MaxRulesByIter int    `mapstructure:"max_rules_by_iter" yaml:"max_rules_by_iter"`
	UseCoreactants bool   `mapstructure:"use_coreactants" yaml:"use_coreactants"`
}

// EAConfig holds the evolutionary engine parameters.
type EAConfig struct {
	Algorithm            string  `mapstructure:"algorithm" yaml:"algorithm"` // "GA" | "NSGAII"
	PopulationSize       int     `mapstructure:"population_size" yaml:"population_size"`
	OffspringSize        int     `mapstructure:"offspring_size" yaml:"offspring_size"`
	MaxGenerations       int     `mapstructure:"max_generations" yaml:"max_generations"`
	MutationProbability  float64 `mapstructure:"mutation_probability" yaml:"mutation_probability"`
	CrossoverProbability float64 `mapstructure:"crossover_probability" yaml:"crossover_probability"`
	Multiprocessing      bool    `mapstructure:"multiprocessing" yaml:"multiprocessing"`
	Workers              int     `mapstructure:"workers" yaml:"workers"`
	Replacement          string  `mapstructure:"replacement" yaml:"replacement"` // "clamp" | "parity"
}

// CaseStudyConfig selects the objective functions.
type CaseStudyConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Target string `mapstructure:"target" yaml:"target"`
}

// ReactorConfig selects the reaction engine.
type ReactorConfig struct {
	Kind     string        `mapstructure:"kind" yaml:"kind"` // "template" | "rdkit"
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Cache enables the Redis-backed product cache in front of the reactor.
	Cache    bool          `mapstructure:"cache" yaml:"cache"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Password     string        `mapstructure:"password" yaml:"-"`
	DB           int           `mapstructure:"db" yaml:"db"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// KafkaConfig configures the transformation event stream.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Brokers      []string      `mapstructure:"brokers" yaml:"brokers"`
	Topic        string        `mapstructure:"topic" yaml:"topic"`
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	Buffer       int           `mapstructure:"buffer" yaml:"buffer"`
	// Compression is one of "", "gzip", "snappy", "lz4", "zstd".
	Compression   string `mapstructure:"compression" yaml:"compression"`
	SASLMechanism string `mapstructure:"sasl_mechanism" yaml:"sasl_mechanism"` // "" | PLAIN | SCRAM-SHA-256 | SCRAM-SHA-512
	SASLUsername  string `mapstructure:"sasl_username" yaml:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password" yaml:"-"`
	TLSCertPath   string `mapstructure:"tls_cert_path" yaml:"tls_cert_path"`
	// EnsureTopic creates the topic on startup when it does not exist.
	EnsureTopic bool `mapstructure:"ensure_topic" yaml:"ensure_topic"`
	Partitions  int  `mapstructure:"partitions" yaml:"partitions"`
	Replication int  `mapstructure:"replication" yaml:"replication"`
}

// MinIOConfig configures artifact upload of the run folder.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"-"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Region    string `mapstructure:"region" yaml:"region"`
	// Prefix is prepended to every object key, e.g. "runs/".
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	// RetentionDays installs an expiration rule on the bucket when > 0.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`
}

// DatabaseConfig holds PostgreSQL parameters for the run store.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"-"`
	DBName          string        `mapstructure:"db_name" yaml:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// Neo4jConfig holds lineage graph connection parameters.
type Neo4jConfig struct {
	Enabled               bool          `mapstructure:"enabled" yaml:"enabled"`
	URI                   string        `mapstructure:"uri" yaml:"uri"`
	User                  string        `mapstructure:"user" yaml:"user"`
	Password              string        `mapstructure:"password" yaml:"-"`
	Database              string        `mapstructure:"database" yaml:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size" yaml:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
}

// MetricsConfig configures the Prometheus registry and the status server.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level" yaml:"level"`   // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format" yaml:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration of a run.
type Config struct {
	Experiment ExperimentConfig `mapstructure:"experiment" yaml:"experiment"`
	Compounds  CompoundsConfig  `mapstructure:"compounds" yaml:"compounds"`
	Rules      RulesConfig      `mapstructure:"rules" yaml:"rules"`
	EA         EAConfig         `mapstructure:"ea" yaml:"ea"`
	CaseStudy  CaseStudyConfig  `mapstructure:"case_study" yaml:"case_study"`
	Reactor    ReactorConfig    `mapstructure:"reactor" yaml:"reactor"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka" yaml:"kafka"`
	MinIO      MinIOConfig      `mapstructure:"minio" yaml:"minio"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j" yaml:"neo4j"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Experiment.Name == "" {
		return fmt.Errorf("config: experiment.name is required")
	}
	if c.Compounds.InitPopPath == "" {
		return fmt.Errorf("config: compounds.init_pop_path is required")
	}
	if c.Compounds.InitPopSize < 1 {
		return fmt.Errorf("config: compounds.init_pop_size must be ≥ 1, got %d", c.Compounds.InitPopSize)
	}
	if c.Rules.Path == "" {
		return fmt.Errorf("config: rules.path is required")
	}
	if c.Rules.MaxRulesByIter < 1 {
		return fmt.Errorf("config: rules.max_rules_by_iter must be ≥ 1, got %d", c.Rules.MaxRulesByIter)
	}
	if c.Rules.UseCoreactants && c.Compounds.CoreactantsPath == "" {
		return fmt.Errorf("config: compounds.coreactants_path is required when rules.use_coreactants is set")
	}

	switch c.EA.Algorithm {
	case "GA", "NSGAII":
	default:
		return fmt.Errorf("config: ea.algorithm %q is invalid; expected GA|NSGAII", c.EA.Algorithm)
	}
	if c.EA.PopulationSize < 1 {
		return fmt.Errorf("config: ea.population_size must be ≥ 1, got %d", c.EA.PopulationSize)
	}
	if c.EA.OffspringSize < 1 {
		return fmt.Errorf("config: ea.offspring_size must be ≥ 1, got %d", c.EA.OffspringSize)
	}
	if c.EA.MaxGenerations < 0 {
		return fmt.Errorf("config: ea.max_generations must be ≥ 0, got %d", c.EA.MaxGenerations)
	}
	if c.EA.MutationProbability < 0 || c.EA.MutationProbability > 1 {
		return fmt.Errorf("config: ea.mutation_probability %v is out of range [0, 1]", c.EA.MutationProbability)
	}
	if c.EA.CrossoverProbability < 0 || c.EA.CrossoverProbability > 1 {
		return fmt.Errorf("config: ea.crossover_probability %v is out of range [0, 1]", c.EA.CrossoverProbability)
	}
	if c.EA.Workers < 1 {
		return fmt.Errorf("config: ea.workers must be ≥ 1, got %d", c.EA.Workers)
	}
	switch c.EA.Replacement {
	case "clamp", "parity":
	default:
		return fmt.Errorf("config: ea.replacement %q is invalid; expected clamp|parity", c.EA.Replacement)
	}

	if c.CaseStudy.Name == "" {
		return fmt.Errorf("config: case_study.name is required")
	}

	switch c.Reactor.Kind {
	case "template":
	case "rdkit":
		if c.Reactor.Endpoint == "" {
			return fmt.Errorf("config: reactor.endpoint is required for the rdkit reactor")
		}
	default:
		return fmt.Errorf("config: reactor.kind %q is invalid; expected template|rdkit", c.Reactor.Kind)
	}
	if c.Reactor.Cache && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when reactor.cache is set")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		return fmt.Errorf("config: minio.endpoint and minio.bucket are required")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
	}
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
