package chem

import (
	"regexp"
	"strings"

	"github.com/turtacn/ReactEA/pkg/errors"
)

// AnyReactant marks the evolving compound's slot in a rule's reactant list.
const AnyReactant = "Any"

// ReactionRule is a read-only transformation template.
type ReactionRule struct {
	ID     string `json:"rule_id"`
	SMARTS string `json:"smarts"`
	// CoreactantsIDs is the semicolon-separated reactant list, e.g. "Any;WATER".
	CoreactantsIDs string `json:"reactants"`
}

// ReactantTokens splits CoreactantsIDs into its trimmed tokens.
func (r *ReactionRule) ReactantTokens() []string {
	if strings.TrimSpace(r.CoreactantsIDs) == "" {
		return nil
	}
	parts := strings.Split(r.CoreactantsIDs, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Template is the parsed form of a "r1.r2>>p1.p2" reaction string with atom
// maps removed.
type Template struct {
	Reactants []string
	Products  []string
}

var (
	atomMapPattern   = regexp.MustCompile(`:\d+\]`)
	plainAtomPattern = regexp.MustCompile(`\[(Cl|Br|[BCNOPSFI]|[bcnops])\]`)
)

// ParseTemplate splits a transformation string into reactant and product
// fragments.
func ParseTemplate(smarts string) (*Template, error) {
	sides := strings.Split(strings.TrimSpace(smarts), ">>")
	if len(sides) != 2 {
		return nil, errors.New(errors.CodeInvalidReactionRule, "reaction template must contain exactly one '>>'").
			WithDetail(smarts)
	}
	reactants := splitFragments(sides[0])
	products := splitFragments(sides[1])
	if len(reactants) == 0 || len(products) == 0 {
		return nil, errors.New(errors.CodeInvalidReactionRule, "reaction template has an empty side").
			WithDetail(smarts)
	}
	return &Template{Reactants: reactants, Products: products}, nil
}

func splitFragments(side string) []string {
	var out []string
	for _, frag := range strings.Split(side, ".") {
		frag = stripAtomMaps(strings.TrimSpace(frag))
		if frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

// stripAtomMaps turns "[C:1](=[O:2])" into "C(=O)".
func stripAtomMaps(s string) string {
	s = atomMapPattern.ReplaceAllString(s, "]")
	return plainAtomPattern.ReplaceAllString(s, "$1")
}
