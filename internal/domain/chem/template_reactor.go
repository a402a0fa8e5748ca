package chem

import (
	"context"
	"strings"
	"sync"

	"github.com/turtacn/ReactEA/pkg/errors"
)

// TemplateReactor is a Go-native Reactor that treats reaction templates as
// fragment rewrites on the SMILES string. Reactant fragment i must occur in
// reactant i; every occurrence of the first fragment in the first reactant
// yields one product where it is replaced by the first product fragment.
// Further product fragments are appended as separate components.
//
// It does not implement SMARTS semantics. Use the RDKit sidecar for that.
//
// Parsed templates are cached by rule template and never evicted, so memory
// grows with the number of distinct rules. Rule pools are fixed for a run.
type TemplateReactor struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateReactor returns a reactor with an empty template cache.
func NewTemplateReactor() *TemplateReactor {
	return &TemplateReactor{templates: make(map[string]*Template)}
}

func (r *TemplateReactor) template(rule *ReactionRule) (*Template, error) {
	r.mu.RLock()
	t, ok := r.templates[rule.SMARTS]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := ParseTemplate(rule.SMARTS)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.templates[rule.SMARTS] = t
	r.mu.Unlock()
	return t, nil
}

func (r *TemplateReactor) React(ctx context.Context, reactants []*Compound, rule *ReactionRule) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, errors.InvalidParam("reaction rule is nil")
	}
	t, err := r.template(rule)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "rule "+rule.ID)
	}
	if len(reactants) != len(t.Reactants) {
		return nil, nil
	}
	for i := 1; i < len(reactants); i++ {
		if !strings.Contains(reactants[i].SMILES, t.Reactants[i]) {
			return nil, nil
		}
	}

	host, pattern := reactants[0].SMILES, t.Reactants[0]
	byproducts := ""
	if len(t.Products) > 1 {
		byproducts = "." + strings.Join(t.Products[1:], ".")
	}

	var products []string
	seen := make(map[string]struct{})
	for offset := 0; offset < len(host); {
		idx := strings.Index(host[offset:], pattern)
		if idx < 0 {
			break
		}
		at := offset + idx
		product := host[:at] + t.Products[0] + host[at+len(pattern):] + byproducts
		offset = at + 1

		if _, dup := seen[product]; dup {
			continue
		}
		seen[product] = struct{}{}
		if ValidateSMILES(product) != nil || len(Tokenize(LargestFragment(product))) == 0 {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

var _ Reactor = (*TemplateReactor)(nil)
