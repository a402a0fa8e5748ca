package config

import "time"

const (
	DefaultExperimentName = "reactea"
	DefaultOutputDir      = "outputs"

	DefaultInitPopSize    = 10
	DefaultMaxRulesByIter = 1000

	DefaultAlgorithm            = "GA"
	DefaultPopulationSize       = 10
	DefaultMaxGenerations       = 100
	DefaultMutationProbability  = 1.0
	DefaultCrossoverProbability = 1.0
	DefaultReplacement          = "clamp"

	DefaultCaseStudy = "compound_quality"

	DefaultReactorKind    = "template"
	DefaultReactorTimeout = 10 * time.Second
	DefaultReactorTTL     = 24 * time.Hour

	DefaultRedisKeyPrefix = "reactea:"

	DefaultKafkaTopic        = "reactea.transformations"
	DefaultKafkaBatchSize    = 100
	DefaultKafkaBatchTimeout = 200 * time.Millisecond
	DefaultKafkaBuffer       = 1024
	DefaultKafkaPartitions   = 6
	DefaultKafkaReplication  = 1

	DefaultMinIOBucket = "reactea-runs"

	DefaultDBPort     = 5432
	DefaultDBName     = "reactea"
	DefaultDBMaxConns = 10

	DefaultNeo4jDatabase = "neo4j"

	DefaultMetricsNamespace = "reactea"
	DefaultMetricsAddr      = ":9090"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills zero-value fields in cfg. Explicit values always win.
// Probabilities cannot distinguish "unset" from 0, so they are defaulted only
// by the loader (see newViper) and never here.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Experiment ────────────────────────────────────────────────────────────
	if cfg.Experiment.Name == "" {
		cfg.Experiment.Name = DefaultExperimentName
	}
	if cfg.Experiment.OutputDir == "" {
		cfg.Experiment.OutputDir = DefaultOutputDir
	}

	// ── Inputs ────────────────────────────────────────────────────────────────
	if cfg.Compounds.InitPopSize == 0 {
		cfg.Compounds.InitPopSize = DefaultInitPopSize
	}
	if cfg.Rules.MaxRulesByIter == 0 {
		cfg.Rules.MaxRulesByIter = DefaultMaxRulesByIter
	}

	// ── EA ────────────────────────────────────────────────────────────────────
	if cfg.EA.Algorithm == "" {
		cfg.EA.Algorithm = DefaultAlgorithm
	}
	if cfg.EA.PopulationSize == 0 {
		cfg.EA.PopulationSize = cfg.Compounds.InitPopSize
	}
	if cfg.EA.OffspringSize == 0 {
		cfg.EA.OffspringSize = cfg.EA.PopulationSize
	}
	if cfg.EA.Workers == 0 {
		cfg.EA.Workers = 1
	}
	if cfg.EA.Replacement == "" {
		cfg.EA.Replacement = DefaultReplacement
	}

	if cfg.CaseStudy.Name == "" {
		cfg.CaseStudy.Name = DefaultCaseStudy
	}

	// ── Reactor ───────────────────────────────────────────────────────────────
	if cfg.Reactor.Kind == "" {
		cfg.Reactor.Kind = DefaultReactorKind
	}
	if cfg.Reactor.Timeout == 0 {
		cfg.Reactor.Timeout = DefaultReactorTimeout
	}
	if cfg.Reactor.CacheTTL == 0 {
		cfg.Reactor.CacheTTL = DefaultReactorTTL
	}

	// ── Sinks ─────────────────────────────────────────────────────────────────
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.Buffer == 0 {
		cfg.Kafka.Buffer = DefaultKafkaBuffer
	}
	if cfg.Kafka.Partitions == 0 {
		cfg.Kafka.Partitions = DefaultKafkaPartitions
	}
	if cfg.Kafka.Replication == 0 {
		cfg.Kafka.Replication = DefaultKafkaReplication
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
