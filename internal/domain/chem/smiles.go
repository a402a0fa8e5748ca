package chem

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/turtacn/ReactEA/pkg/errors"
)

// validSMILESChars is a character-set check only; structure is not parsed.
var validSMILESChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$/\\%.*:~]+$`)

// ValidateSMILES checks the character set and bracket balance of s.
func ValidateSMILES(s string) error {
	if s == "" {
		return errors.New(errors.CodeInvalidSMILES, "SMILES string cannot be empty")
	}
	if !validSMILESChars.MatchString(s) {
		return errors.New(errors.CodeInvalidSMILES, "SMILES contains invalid characters").
			WithDetail(fmt.Sprintf("smiles=%s", s))
	}
	return validateBrackets(s)
}

func validateBrackets(smiles string) error {
	closers := map[rune]rune{')': '(', ']': '['}

	var stack []rune
	for _, ch := range smiles {
		switch ch {
		case '(', '[':
			stack = append(stack, ch)
		case ')', ']':
			if len(stack) == 0 || stack[len(stack)-1] != closers[ch] {
				return errors.New(errors.CodeInvalidSMILES, "unmatched brackets in SMILES").
					WithDetail(fmt.Sprintf("smiles=%s", smiles))
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 0 {
		return errors.New(errors.CodeInvalidSMILES, "unclosed brackets in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}
	return nil
}

// Atom is one heavy-atom token of a SMILES string.
type Atom struct {
	Symbol   string // element symbol, capitalized
	Aromatic bool
	Bracket  string // full bracket text for bracket atoms, else empty
	Ring     bool   // followed by at least one ring-closure digit
}

// Tokenize extracts heavy atoms from a SMILES string in order of appearance.
// Explicit hydrogens written as bracket atoms ("[H]") are skipped.
func Tokenize(smiles string) []Atom {
	var atoms []Atom
	for i := 0; i < len(smiles); {
		ch := smiles[i]
		switch {
		case ch == '[':
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				return atoms
			}
			body := smiles[i+1 : i+end]
			if sym, arom := bracketElement(body); sym != "" && sym != "H" {
				atoms = append(atoms, Atom{Symbol: sym, Aromatic: arom, Bracket: smiles[i : i+end+1]})
			}
			i += end + 1
		case ch == 'C' && i+1 < len(smiles) && smiles[i+1] == 'l':
			atoms = append(atoms, Atom{Symbol: "Cl"})
			i += 2
		case ch == 'B' && i+1 < len(smiles) && smiles[i+1] == 'r':
			atoms = append(atoms, Atom{Symbol: "Br"})
			i += 2
		case strings.IndexByte("BCNOPSFI", ch) >= 0:
			atoms = append(atoms, Atom{Symbol: string(ch)})
			i++
		case strings.IndexByte("bcnops", ch) >= 0:
			atoms = append(atoms, Atom{Symbol: strings.ToUpper(string(ch)), Aromatic: true})
			i++
		case ch >= '0' && ch <= '9' || ch == '%':
			if len(atoms) > 0 {
				atoms[len(atoms)-1].Ring = true
			}
			i++
		default:
			i++
		}
	}
	return atoms
}

// bracketElement reads the element symbol of a bracket atom body such as
// "13CH3+", "nH" or "Fe+2".
func bracketElement(body string) (string, bool) {
	j := 0
	for j < len(body) && body[j] >= '0' && body[j] <= '9' {
		j++
	}
	if j >= len(body) {
		return "", false
	}
	first := body[j]
	if first >= 'a' && first <= 'z' {
		if j+1 < len(body) && body[j:j+2] == "se" || j+1 < len(body) && body[j:j+2] == "as" {
			return strings.ToUpper(body[j:j+1]) + body[j+1:j+2], true
		}
		return strings.ToUpper(string(first)), true
	}
	if first < 'A' || first > 'Z' {
		return "", false
	}
	sym := string(first)
	if j+1 < len(body) && body[j+1] >= 'a' && body[j+1] <= 'z' && isTwoLetterElement(sym+string(body[j+1])) {
		sym += string(body[j+1])
	}
	return sym, false
}

func isTwoLetterElement(s string) bool {
	switch s {
	case "Cl", "Br", "Si", "Se", "As", "Na", "Li", "Mg", "Al", "Ca", "Fe", "Zn", "Cu", "Co", "Mn", "Ni", "Sn", "Hg", "Pt", "Ag", "Au", "Ba", "Sr", "Cs", "Rb", "Cd", "Pb", "Ti", "Cr", "Mo":
		return true
	}
	return false
}

// generateInChIKey derives a 27-character InChIKey-shaped identifier from a
// canonical string. It is a stable hash, not an IUPAC InChIKey.
func generateInChIKey(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:14] + "-" + h[14:24] + "-" + h[24:25]
}
