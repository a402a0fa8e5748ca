// Package casestudy provides the objective functions ReactEA optimizes.
// All objectives are minimized, so quantities to maximize are negated.
package casestudy

import (
	"sort"
	"strings"

	"github.com/turtacn/ReactEA/internal/optimization"
	"github.com/turtacn/ReactEA/pkg/errors"
)

const (
	NameCompoundQuality      = "compound_quality"
	NameSimilarityToTarget   = "similarity_to_target"
	NameQualityAndSimilarity = "quality_and_similarity"
)

// Options carries the case study parameters from the configuration.
type Options struct {
	// Target is the reference SMILES of the similarity case studies.
	Target string
	// FingerprintRadius and FingerprintBits default to the chem package
	// values when zero.
	FingerprintRadius int
	FingerprintBits   int
}

type factory func(Options) (optimization.Problem, error)

var registry = map[string]factory{
	NameCompoundQuality: func(Options) (optimization.Problem, error) {
		return NewCompoundQuality(), nil
	},
	NameSimilarityToTarget: func(o Options) (optimization.Problem, error) {
		return NewSimilarityToTarget(o.Target, o.FingerprintRadius, o.FingerprintBits)
	},
	NameQualityAndSimilarity: func(o Options) (optimization.Problem, error) {
		return NewQualityAndSimilarity(o.Target, o.FingerprintRadius, o.FingerprintBits)
	},
}

// New builds the case study registered under name. Names are matched
// case-insensitively.
func New(name string, opts Options) (optimization.Problem, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownCaseStudy, "unknown case study %q", name).
			WithDetail("available: " + strings.Join(Names(), ", "))
	}
	return f(opts)
}

// Names lists the registered case studies in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
