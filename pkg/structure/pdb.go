// Package structure reads PDB coordinate files and writes residue subsets of
// them.
package structure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNoAtoms  = errors.New("structure: no ATOM records")
	ErrRecord   = errors.New("structure: malformed ATOM record")
	ErrPosition = errors.New("structure: residue position out of range")
)

// Atom is one ATOM record. Columns follow the wwPDB format 3.3 layout.
type Atom struct {
	Serial    int
	Name      string
	AltLoc    string
	ResName   string
	Chain     string
	ResSeq    int
	ICode     string
	X, Y, Z   float64
	Occupancy float64
	BFactor   float64
	Element   string

	line string // original record, written back unchanged
}

// Residue groups the atoms sharing chain, number and insertion code.
type Residue struct {
	Name   string
	Chain  string
	Number int
	ICode  string
	Atoms  []*Atom
}

// Model is the first model of a PDB file. Only ATOM records are kept.
type Model struct {
	Name     string
	Residues []*Residue
}

// Open reads the PDB file at path.
func Open(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open structure: %w", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := Read(file, name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// Read parses ATOM records up to the end of the first model.
func Read(r io.Reader, name string) (*Model, error) {
	m := &Model{Name: name}
	scanner := bufio.NewScanner(r)

	var last *Residue
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, "ENDMDL") {
			break
		}
		if !strings.HasPrefix(line, "ATOM  ") {
			continue
		}

		atom, err := parseAtom(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		if last == nil || last.Chain != atom.Chain || last.Number != atom.ResSeq || last.ICode != atom.ICode {
			last = &Residue{Name: atom.ResName, Chain: atom.Chain, Number: atom.ResSeq, ICode: atom.ICode}
			m.Residues = append(m.Residues, last)
		}
		last.Atoms = append(last.Atoms, atom)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read structure: %w", err)
	}
	if len(m.Residues) == 0 {
		return nil, ErrNoAtoms
	}

	return m, nil
}

func parseAtom(line string) (*Atom, error) {
	if len(line) < 54 {
		return nil, fmt.Errorf("%w: %d columns", ErrRecord, len(line))
	}
	padded := line
	if len(padded) < 80 {
		padded += strings.Repeat(" ", 80-len(padded))
	}

	atom := &Atom{
		Name:    strings.TrimSpace(padded[12:16]),
		AltLoc:  strings.TrimSpace(padded[16:17]),
		ResName: strings.TrimSpace(padded[17:20]),
		Chain:   padded[21:22],
		ICode:   strings.TrimSpace(padded[26:27]),
		Element: strings.TrimSpace(padded[76:78]),
		line:    line,
	}

	var err error
	if atom.Serial, err = strconv.Atoi(strings.TrimSpace(padded[6:11])); err != nil {
		return nil, fmt.Errorf("%w: serial %q", ErrRecord, padded[6:11])
	}
	if atom.ResSeq, err = strconv.Atoi(strings.TrimSpace(padded[22:26])); err != nil {
		return nil, fmt.Errorf("%w: residue number %q", ErrRecord, padded[22:26])
	}
	coords := []*float64{&atom.X, &atom.Y, &atom.Z}
	for i, c := range coords {
		start := 30 + 8*i
		if *c, err = strconv.ParseFloat(strings.TrimSpace(padded[start:start+8]), 64); err != nil {
			return nil, fmt.Errorf("%w: coordinate %q", ErrRecord, padded[start:start+8])
		}
	}
	// Occupancy and B-factor are optional
	atom.Occupancy, _ = strconv.ParseFloat(strings.TrimSpace(padded[54:60]), 64)
	atom.BFactor, _ = strconv.ParseFloat(strings.TrimSpace(padded[60:66]), 64)

	return atom, nil
}

// ResidueCount returns the number of residues in the model.
func (m *Model) ResidueCount() int { return len(m.Residues) }

// PLDDT returns the B-factor of the first atom of every residue. Predicted
// models store per-residue confidence there.
func (m *Model) PLDDT() []float64 {
	out := make([]float64, len(m.Residues))
	for i, r := range m.Residues {
		out[i] = r.Atoms[0].BFactor
	}
	return out
}

// Sequence returns the one letter sequence of the model. Unknown residues
// are written as X.
func (m *Model) Sequence() string {
	var b strings.Builder
	for _, r := range m.Residues {
		code, ok := oneLetter[r.Name]
		if !ok {
			code = 'X'
		}
		b.WriteByte(code)
	}
	return b.String()
}

var oneLetter = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"SEC": 'U', "PYL": 'O', "MSE": 'M',
}

// ExtractSubset writes the residues at positions to a new PDB file at path.
func (m *Model) ExtractSubset(positions []int, oneIndexed bool, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := m.WriteSubset(file, positions, oneIndexed); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// WriteSubset writes the ATOM records of the selected residues in model
// order, a TER after each chain and a final END.
func (m *Model) WriteSubset(w io.Writer, positions []int, oneIndexed bool) error {
	offset := 0
	if oneIndexed {
		offset = 1
	}

	selected := make([]int, 0, len(positions))
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		i := p - offset
		if i < 0 || i >= len(m.Residues) {
			return fmt.Errorf("%w: %d of %d", ErrPosition, p, len(m.Residues))
		}
		if !seen[i] {
			seen[i] = true
			selected = append(selected, i)
		}
	}
	sort.Ints(selected)

	bw := bufio.NewWriter(w)
	for k, i := range selected {
		r := m.Residues[i]
		for _, atom := range r.Atoms {
			bw.WriteString(atom.line)
			bw.WriteByte('\n')
		}
		if k == len(selected)-1 || m.Residues[selected[k+1]].Chain != r.Chain {
			bw.WriteString("TER\n")
		}
	}
	bw.WriteString("END\n")
	return bw.Flush()
}
