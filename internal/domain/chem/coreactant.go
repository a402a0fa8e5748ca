package chem

// ReactantSet is the outcome of resolving a rule's reactant list against the
// evolving compound and the coreactant pool. OK is false when any coreactant
// is missing from the pool.
type ReactantSet struct {
	Compounds []*Compound
	OK        bool
}

// CoreactantPool is an ordered, read-only set of compounds keyed by ID.
// The zero value and a nil pool are both empty.
type CoreactantPool struct {
	ordered []*Compound
	byID    map[string]*Compound
}

// NewCoreactantPool indexes compounds by ID. When IDs repeat the first
// occurrence wins.
func NewCoreactantPool(compounds []*Compound) *CoreactantPool {
	p := &CoreactantPool{
		ordered: make([]*Compound, 0, len(compounds)),
		byID:    make(map[string]*Compound, len(compounds)),
	}
	for _, c := range compounds {
		if c == nil {
			continue
		}
		p.ordered = append(p.ordered, c)
		if _, seen := p.byID[c.ID]; !seen {
			p.byID[c.ID] = c
		}
	}
	return p
}

func (p *CoreactantPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.ordered)
}

// Get looks a coreactant up by exact ID.
func (p *CoreactantPool) Get(id string) (*Compound, bool) {
	if p == nil {
		return nil, false
	}
	c, ok := p.byID[id]
	return c, ok
}

// Compounds returns the pool in load order.
func (p *CoreactantPool) Compounds() []*Compound {
	if p == nil {
		return nil
	}
	out := make([]*Compound, len(p.ordered))
	copy(out, p.ordered)
	return out
}

// Resolve builds the ordered reactant list for a rule.
//
// A nil pool or a single reactant token yields just the compound. With several
// tokens every "Any" becomes the compound and every other token must match a
// pool ID exactly, otherwise the set is not OK.
func (p *CoreactantPool) Resolve(reactants string, compound *Compound) ReactantSet {
	if p == nil {
		return ReactantSet{Compounds: []*Compound{compound}, OK: true}
	}
	tokens := (&ReactionRule{CoreactantsIDs: reactants}).ReactantTokens()
	if len(tokens) <= 1 {
		return ReactantSet{Compounds: []*Compound{compound}, OK: true}
	}

	set := make([]*Compound, 0, len(tokens))
	for _, tok := range tokens {
		if tok == AnyReactant {
			set = append(set, compound)
			continue
		}
		co, ok := p.byID[tok]
		if !ok {
			return ReactantSet{}
		}
		set = append(set, co)
	}
	return ReactantSet{Compounds: set, OK: true}
}
