// Package chem holds the chemistry domain model of ReactEA: compounds,
// reaction rules, coreactant pools and the collaborator interfaces for
// reaction engines and standardizers.
package chem

import (
	"fmt"
	"strings"
)

// lineageSeparator joins a parent compound ID and the rule that produced a
// child, e.g. "C00031--R0042_".
const lineageSeparator = "--"

// Compound is an immutable structure record. Once standardized it is never
// modified in place; mutation produces a new Compound.
type Compound struct {
	ID       string `json:"id"`
	SMILES   string `json:"smiles"`
	InChIKey string `json:"inchikey,omitempty"`
}

// NewCompound builds an unstandardized compound.
func NewCompound(id, smiles string) *Compound {
	return &Compound{ID: id, SMILES: strings.TrimSpace(smiles)}
}

// Clone returns an independent copy. A nil receiver yields nil.
func (c *Compound) Clone() *Compound {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// DerivedID returns the identifier of a product of c obtained with ruleID.
func (c *Compound) DerivedID(ruleID string) string {
	return fmt.Sprintf("%s%s%s_", c.ID, lineageSeparator, ruleID)
}

// RootID strips any lineage suffix from the compound ID.
func (c *Compound) RootID() string {
	if i := strings.Index(c.ID, lineageSeparator); i >= 0 {
		return c.ID[:i]
	}
	return c.ID
}

// Generation counts how many rule applications the ID records.
func (c *Compound) Generation() int {
	return strings.Count(c.ID, lineageSeparator)
}

func (c *Compound) String() string {
	return fmt.Sprintf("%s(%s)", c.ID, c.SMILES)
}
