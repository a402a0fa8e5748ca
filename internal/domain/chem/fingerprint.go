package chem

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
	"strings"

	"github.com/turtacn/ReactEA/pkg/errors"
)

const (
	DefaultFingerprintRadius = 2
	DefaultFingerprintBits   = 2048
)

// Fingerprint is a fixed-length bit vector.
type Fingerprint struct {
	Bits   []byte
	Length int
}

func newFingerprint(length int) *Fingerprint {
	return &Fingerprint{Bits: make([]byte, (length+7)/8), Length: length}
}

func (fp *Fingerprint) setBit(index int) {
	fp.Bits[index/8] |= 1 << uint(index%8)
}

// GetBit reports whether bit index is set. Out-of-range indices are unset.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// NumOnBits counts set bits.
func (fp *Fingerprint) NumOnBits() int {
	n := 0
	for _, b := range fp.Bits {
		n += bits.OnesCount8(b)
	}
	return n
}

// CircularFingerprint hashes, for each heavy atom, the sequence of atoms
// within radius positions of it along the SMILES token order. It is a
// Morgan-style approximation that needs no molecular graph.
func CircularFingerprint(smiles string, radius, nBits int) (*Fingerprint, error) {
	if radius < 0 {
		radius = DefaultFingerprintRadius
	}
	if nBits <= 0 {
		nBits = DefaultFingerprintBits
	}
	atoms := Tokenize(smiles)
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintFailed, "no atoms found in SMILES").WithDetail(smiles)
	}

	labels := make([]string, len(atoms))
	for i, a := range atoms {
		labels[i] = atomLabel(a)
	}

	fp := newFingerprint(nBits)
	for i := range atoms {
		for r := 0; r <= radius; r++ {
			lo, hi := i-r, i+r
			if lo < 0 {
				lo = 0
			}
			if hi >= len(labels) {
				hi = len(labels) - 1
			}
			env := strings.Join(labels[lo:hi+1], "|")
			fp.setBit(int(hashEnvironment(env, r) % uint64(nBits)))
		}
	}
	return fp, nil
}

func atomLabel(a Atom) string {
	label := a.Symbol
	if a.Aromatic {
		label = strings.ToLower(label)
	}
	if a.Ring {
		label += "R"
	}
	return label
}

func hashEnvironment(env string, radius int) uint64 {
	sum := sha256.Sum256([]byte(env + "#" + string(rune('0'+radius))))
	return binary.BigEndian.Uint64(sum[:8])
}

// Tanimoto returns |a∧b| / |a∨b|, or 0 when both are empty.
func Tanimoto(a, b *Fingerprint) (float64, error) {
	if a == nil || b == nil || a.Length != b.Length {
		return 0, errors.New(errors.CodeInvalidParam, "fingerprints must have the same length")
	}
	inter, union := 0, 0
	for i := range a.Bits {
		inter += bits.OnesCount8(a.Bits[i] & b.Bits[i])
		union += bits.OnesCount8(a.Bits[i] | b.Bits[i])
	}
	if union == 0 {
		return 0, nil
	}
	return float64(inter) / float64(union), nil
}
