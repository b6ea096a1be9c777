package taxonomy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// FieldTaxID names the taxon id column, both in lineage tables and alignments.
const FieldTaxID = "taxid"

// Table is a Service backed by an in-memory lineage table.
type Table struct {
	Levels   []string
	lineages map[string]Lineage
}

// LoadTable reads a lineage table file. See ReadTable.
func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lineage table: %w", err)
	}
	defer file.Close()

	t, err := ReadTable(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

// ReadTable reads a tab separated lineage table. The header is
// "taxid\t<level>\t<level>..." and each row holds one taxon, root level first.
// Empty cells mean the taxon has no name at that level.
func ReadTable(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty lineage table")
	}

	header := strings.Split(scanner.Text(), "\t")
	if header[0] != FieldTaxID || len(header) < 2 {
		return nil, fmt.Errorf("lineage table header must be %s followed by levels, got %q", FieldTaxID, scanner.Text())
	}

	t := &Table{
		Levels:   header[1:],
		lineages: make(map[string]Lineage),
	}

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		if len(cells) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", lineNum, len(header), len(cells))
		}
		t.Add(cells[0], cells[1:]...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lineage table: %w", err)
	}

	return t, nil
}

// NewTable creates an empty table with the given level columns.
func NewTable(levels ...string) *Table {
	return &Table{
		Levels:   levels,
		lineages: make(map[string]Lineage),
	}
}

// Add stores the lineage of taxID. Names line up with t.Levels.
func (t *Table) Add(taxID string, names ...string) {
	lineage := make(Lineage, 0, len(names))
	for i, name := range names {
		if i >= len(t.Levels) {
			break
		}
		if name != "" {
			lineage = append(lineage, Rank{Level: t.Levels[i], Name: name})
		}
	}
	t.lineages[taxID] = lineage
}

// Len returns the number of taxa in the table.
func (t *Table) Len() int { return len(t.lineages) }

// Lineage implements Service.
func (t *Table) Lineage(ctx context.Context, taxID string) (Lineage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lineage, ok := t.lineages[taxID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaxon, taxID)
	}
	return lineage, nil
}
