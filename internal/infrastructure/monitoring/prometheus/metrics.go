package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/turtacn/ReactEA/internal/optimization"
)

var (
	DefaultRuleTriesBuckets          = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	DefaultGenerationDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	DefaultReactionDurationBuckets   = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}
)

// EvolutionMetrics holds the metrics of an evolutionary run. It records
// mutation outcomes and generation reports and is safe for concurrent use.
type EvolutionMetrics struct {
	GenerationsTotal     CounterVec
	CurrentGeneration    GaugeVec
	EvaluationsTotal     CounterVec
	GenerationDuration   HistogramVec
	BestObjective        GaugeVec
	MeanPrimaryObjective GaugeVec
	UniqueStructures     GaugeVec
	DuplicateStructures  GaugeVec

	MutationsTotal   CounterVec
	RuleTries        HistogramVec
	ReactionsTotal   CounterVec
	ReactionDuration HistogramVec

	ReactionCacheTotal       CounterVec
	TransformationsPublished CounterVec

	mu              sync.Mutex
	objectiveNames  []string
	lastEvaluations int
	lastElapsed     time.Duration
}

// NewEvolutionMetrics registers every metric on collector.
func NewEvolutionMetrics(collector MetricsCollector) *EvolutionMetrics {
	return &EvolutionMetrics{
		GenerationsTotal:     collector.RegisterCounter("generations_total", "Completed generations"),
		CurrentGeneration:    collector.RegisterGauge("current_generation", "Last completed generation"),
		EvaluationsTotal:     collector.RegisterCounter("evaluations_total", "Objective function evaluations"),
		GenerationDuration:   collector.RegisterHistogram("generation_duration_seconds", "Wall time per generation", DefaultGenerationDurationBuckets),
		BestObjective:        collector.RegisterGauge("best_objective", "Objective values of the best solution (minimized)", "objective"),
		MeanPrimaryObjective: collector.RegisterGauge("mean_primary_objective", "Mean of the first objective over the population"),
		UniqueStructures:     collector.RegisterGauge("population_unique_structures", "Distinct SMILES in the population"),
		DuplicateStructures:  collector.RegisterGauge("population_duplicate_structures", "Population slots holding a repeated SMILES"),

		MutationsTotal:   collector.RegisterCounter("mutations_total", "Mutation attempts by outcome", "outcome"),
		RuleTries:        collector.RegisterHistogram("mutation_rule_tries", "Rules sampled per attempted mutation", DefaultRuleTriesBuckets),
		ReactionsTotal:   collector.RegisterCounter("reactions_total", "Reactor calls by result", "reactor", "result"),
		ReactionDuration: collector.RegisterHistogram("reaction_duration_seconds", "Reactor call latency", DefaultReactionDurationBuckets, "reactor"),

		ReactionCacheTotal:       collector.RegisterCounter("reaction_cache_total", "Reaction cache lookups by result", "result"),
		TransformationsPublished: collector.RegisterCounter("transformations_published_total", "Transformation events handed to the broker by status", "status"),
	}
}

// SetObjectiveNames labels BestObjective by name instead of by index.
func (m *EvolutionMetrics) SetObjectiveNames(names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objectiveNames = append([]string(nil), names...)
}

// RecordMutation implements optimization.MutationRecorder.
func (m *EvolutionMetrics) RecordMutation(outcome string, tries int) {
	m.MutationsTotal.WithLabelValues(outcome).Inc()
	if tries > 0 {
		m.RuleTries.WithLabelValues().Observe(float64(tries))
	}
}

// RecordReaction counts a reactor call; result is "products", "empty" or
// "error".
func (m *EvolutionMetrics) RecordReaction(reactor, result string, d time.Duration) {
	m.ReactionsTotal.WithLabelValues(reactor, result).Inc()
	m.ReactionDuration.WithLabelValues(reactor).Observe(d.Seconds())
}

func (m *EvolutionMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ReactionCacheTotal.WithLabelValues(result).Inc()
}

func (m *EvolutionMetrics) RecordPublish(status string) {
	m.TransformationsPublished.WithLabelValues(status).Inc()
}

// OnGeneration implements optimization.Observer.
func (m *EvolutionMetrics) OnGeneration(r optimization.GenerationReport) {
	m.mu.Lock()
	evaluated := r.Evaluations - m.lastEvaluations
	elapsed := r.Elapsed - m.lastElapsed
	m.lastEvaluations, m.lastElapsed = r.Evaluations, r.Elapsed
	names := m.objectiveNames
	m.mu.Unlock()

	if r.Generation > 0 {
		m.GenerationsTotal.WithLabelValues().Inc()
		m.GenerationDuration.WithLabelValues().Observe(elapsed.Seconds())
	}
	m.CurrentGeneration.WithLabelValues().Set(float64(r.Generation))
	if evaluated > 0 {
		m.EvaluationsTotal.WithLabelValues().Add(float64(evaluated))
	}
	for i, v := range r.Best {
		label := strconv.Itoa(i)
		if i < len(names) {
			label = names[i]
		}
		m.BestObjective.WithLabelValues(label).Set(v)
	}
	m.MeanPrimaryObjective.WithLabelValues().Set(r.MeanPrimary)
	m.UniqueStructures.WithLabelValues().Set(float64(r.UniqueStructures))
	m.DuplicateStructures.WithLabelValues().Set(float64(r.Duplicates))
}

var (
	_ optimization.MutationRecorder = (*EvolutionMetrics)(nil)
	_ optimization.Observer         = (*EvolutionMetrics)(nil)
)
