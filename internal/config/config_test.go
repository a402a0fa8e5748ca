package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/internal/config"
)

// validConfig returns a Config that passes Validate() with all required fields set.
func validConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Compounds.InitPopPath = "data/compounds.tsv"
	cfg.Rules.Path = "data/rules.tsv.bz2"
	cfg.EA.MutationProbability = 1
	cfg.EA.CrossoverProbability = 1
	config.ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing init pop", func(c *config.Config) { c.Compounds.InitPopPath = "" }, "compounds.init_pop_path"},
		{"missing rules", func(c *config.Config) { c.Rules.Path = "" }, "rules.path"},
		{"negative tries", func(c *config.Config) { c.Rules.MaxRulesByIter = -1 }, "rules.max_rules_by_iter"},
		{"coreactants without file", func(c *config.Config) { c.Rules.UseCoreactants = true }, "coreactants_path"},
		{"bad algorithm", func(c *config.Config) { c.EA.Algorithm = "SPEA2" }, "ea.algorithm"},
		{"mutation probability", func(c *config.Config) { c.EA.MutationProbability = 1.5 }, "ea.mutation_probability"},
		{"crossover probability", func(c *config.Config) { c.EA.CrossoverProbability = -0.1 }, "ea.crossover_probability"},
		{"replacement", func(c *config.Config) { c.EA.Replacement = "random" }, "ea.replacement"},
		{"rdkit endpoint", func(c *config.Config) { c.Reactor.Kind = "rdkit" }, "reactor.endpoint"},
		{"reactor kind", func(c *config.Config) { c.Reactor.Kind = "quantum" }, "reactor.kind"},
		{"cache without redis", func(c *config.Config) { c.Reactor.Cache = true }, "redis.addr"},
		{"kafka brokers", func(c *config.Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"database host", func(c *config.Config) { c.Database.Enabled = true }, "database.host"},
		{"neo4j uri", func(c *config.Config) { c.Neo4j.Enabled = true }, "neo4j.uri"},
		{"log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_ZeroProbabilitiesAreValid(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.EA.MutationProbability = 0
	cfg.EA.CrossoverProbability = 0
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RDKitWithEndpoint(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Reactor.Kind = "rdkit"
	cfg.Reactor.Endpoint = "http://localhost:8000"
	assert.NoError(t, cfg.Validate())
}
