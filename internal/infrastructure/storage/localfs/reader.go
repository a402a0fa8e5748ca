// Package localfs reads the experiment inputs and writes the run outputs on
// the local filesystem.
package localfs

import (
	"compress/bzip2"
	"encoding/csv"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// Column names of the input tables.
const (
	ColumnCompoundID = "compound_id"
	ColumnSMILES     = "smiles"
	ColumnRuleID     = "InternalID"
	ColumnSMARTS     = "SMARTS"
	ColumnReactants  = "Reactants"
)

// table is a header-indexed TSV file held in memory.
type table struct {
	path   string
	header map[string]int
	rows   [][]string
}

func (t *table) column(name string) (int, error) {
	i, ok := t.header[name]
	if !ok {
		return 0, errors.Newf(errors.CodeIOFailure, "%s: missing column %q", t.path, name)
	}
	return i, nil
}

// readTable parses a tab-separated file with a header row. Files ending in
// .bz2 are decompressed on the fly.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIOFailure, "open "+path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".bz2") {
		r = bzip2.NewReader(f)
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIOFailure, "parse "+path)
	}
	if len(records) == 0 {
		return nil, errors.Newf(errors.CodeIOFailure, "%s: missing header row", path)
	}

	t := &table{path: path, header: make(map[string]int, len(records[0]))}
	for i, name := range records[0] {
		t.header[strings.TrimSpace(name)] = i
	}
	for _, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadCompounds loads a compound_id/smiles table.
func ReadCompounds(path string) ([]*chem.Compound, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	idCol, err := t.column(ColumnCompoundID)
	if err != nil {
		return nil, err
	}
	smilesCol, err := t.column(ColumnSMILES)
	if err != nil {
		return nil, err
	}

	compounds := make([]*chem.Compound, 0, len(t.rows))
	for n, rec := range t.rows {
		id, smiles := field(rec, idCol), field(rec, smilesCol)
		if id == "" || smiles == "" {
			return nil, errors.Newf(errors.CodeIOFailure, "%s: row %d has an empty %s or %s", path, n+2, ColumnCompoundID, ColumnSMILES)
		}
		compounds = append(compounds, chem.NewCompound(id, smiles))
	}
	return compounds, nil
}

// ReadCoreactants loads the coreactant pool.
func ReadCoreactants(path string) (*chem.CoreactantPool, error) {
	compounds, err := ReadCompounds(path)
	if err != nil {
		return nil, err
	}
	return chem.NewCoreactantPool(compounds), nil
}

// ReadRules loads an InternalID/SMARTS/Reactants table. Extra columns are
// ignored.
func ReadRules(path string) ([]*chem.ReactionRule, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	cols := make([]int, 3)
	for i, name := range []string{ColumnRuleID, ColumnSMARTS, ColumnReactants} {
		if cols[i], err = t.column(name); err != nil {
			return nil, err
		}
	}

	rules := make([]*chem.ReactionRule, 0, len(t.rows))
	for n, rec := range t.rows {
		rule := &chem.ReactionRule{
			ID:             field(rec, cols[0]),
			SMARTS:         field(rec, cols[1]),
			CoreactantsIDs: field(rec, cols[2]),
		}
		if rule.ID == "" || rule.SMARTS == "" {
			return nil, errors.Newf(errors.CodeInvalidReactionRule, "%s: row %d has an empty %s or %s", path, n+2, ColumnRuleID, ColumnSMARTS)
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptyRulePool, "%s: no reaction rules", path)
	}
	return rules, nil
}

// Sample draws n distinct compounds uniformly without replacement. n ≤ 0
// keeps every compound in shuffled order.
func Sample(compounds []*chem.Compound, n int, rng *rand.Rand) ([]*chem.Compound, error) {
	if rng == nil {
		return nil, errors.New(errors.ErrCodeRandomSourceRequired, "random source is required")
	}
	if n > len(compounds) {
		return nil, errors.Newf(errors.CodeInvalidParam, "cannot sample %d compounds from %d", n, len(compounds))
	}
	if n <= 0 {
		n = len(compounds)
	}
	out := make([]*chem.Compound, n)
	for i, j := range rng.Perm(len(compounds))[:n] {
		out[i] = compounds[j]
	}
	return out, nil
}

// LoadInitialPopulation reads, samples and standardizes the starting
// compounds. A size larger than the file yields every compound.
func LoadInitialPopulation(path string, size int, rng *rand.Rand, std chem.Standardizer) ([]*chem.Compound, error) {
	all, err := ReadCompounds(path)
	if err != nil {
		return nil, err
	}
	if size > len(all) {
		size = len(all)
	}
	picked, err := Sample(all, size, rng)
	if err != nil {
		return nil, err
	}
	out := make([]*chem.Compound, len(picked))
	for i, c := range picked {
		if out[i], err = std.Standardize(c); err != nil {
			return nil, errors.Wrap(err, errors.CodeStandardizationFailed, "standardize initial compound "+c.ID)
		}
	}
	return out, nil
}
