package alignments

import (
	"errors"
	"fmt"
	"strconv"
)

// Column names of Foldseek's default tabular output
const (
	FieldQuery      = "query"
	FieldTarget     = "target"
	FieldFIdent     = "fident"
	FieldAlnLen     = "alnlen"
	FieldMismatch   = "mismatch"
	FieldGapOpen    = "gapopen"
	FieldQStart     = "qstart"
	FieldQEnd       = "qend"
	FieldTStart     = "tstart"
	FieldTEnd       = "tend"
	FieldEValue     = "evalue"
	FieldBits       = "bits"
	FieldAlnTMScore = "alntmscore"
)

// CoreFields lists the typed columns in Foldseek order.
var CoreFields = []string{
	FieldQuery, FieldTarget, FieldFIdent, FieldAlnLen, FieldMismatch, FieldGapOpen,
	FieldQStart, FieldQEnd, FieldTStart, FieldTEnd, FieldEValue, FieldBits, FieldAlnTMScore,
}

var (
	ErrFieldCount   = errors.New("alignments: field count mismatch")
	ErrMissingField = errors.New("alignments: required field missing")
	ErrFieldFormat  = errors.New("alignments: malformed field value")
	ErrNoField      = errors.New("alignments: field not present")
)

// Alignment is one row of an alignment file. Core Foldseek columns are typed;
// any other column is kept as text in Extra.
type Alignment struct {
	Query      string
	Target     string
	FIdent     float64
	AlnLen     int
	Mismatch   int
	GapOpen    int
	QStart     int
	QEnd       int
	TStart     int
	TEnd       int
	EValue     float64
	Bits       float64
	AlnTMScore float64

	Extra map[string]string

	// text holds the original text of every core numeric column read
	text map[string]string
}

// NewAlignment builds an alignment from parallel field names and values.
func NewAlignment(fields, values []string) (*Alignment, error) {
	if len(fields) != len(values) {
		return nil, fmt.Errorf("%w: %d fields, %d values", ErrFieldCount, len(fields), len(values))
	}

	a := &Alignment{}
	for i, field := range fields {
		if err := a.set(field, values[i]); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Alignment) set(field, value string) error {
	var err error
	switch field {
	case FieldQuery:
		a.Query = value
		return nil
	case FieldTarget:
		a.Target = value
		return nil
	case FieldFIdent:
		a.FIdent, err = strconv.ParseFloat(value, 64)
	case FieldAlnLen:
		a.AlnLen, err = strconv.Atoi(value)
	case FieldMismatch:
		a.Mismatch, err = strconv.Atoi(value)
	case FieldGapOpen:
		a.GapOpen, err = strconv.Atoi(value)
	case FieldQStart:
		a.QStart, err = strconv.Atoi(value)
	case FieldQEnd:
		a.QEnd, err = strconv.Atoi(value)
	case FieldTStart:
		a.TStart, err = strconv.Atoi(value)
	case FieldTEnd:
		a.TEnd, err = strconv.Atoi(value)
	case FieldEValue:
		a.EValue, err = strconv.ParseFloat(value, 64)
	case FieldBits:
		a.Bits, err = strconv.ParseFloat(value, 64)
	case FieldAlnTMScore:
		a.AlnTMScore, err = strconv.ParseFloat(value, 64)
	default:
		a.SetExtra(field, value)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrFieldFormat, field, value)
	}

	if a.text == nil {
		a.text = make(map[string]string, len(CoreFields))
	}
	a.text[field] = value
	return nil
}

// SetExtra sets a pass-through column.
func (a *Alignment) SetExtra(field, value string) {
	if a.Extra == nil {
		a.Extra = make(map[string]string)
	}
	a.Extra[field] = value
}

// Field returns the text of a column as it would be written out.
func (a *Alignment) Field(field string) (string, bool) {
	switch field {
	case FieldQuery:
		return a.Query, true
	case FieldTarget:
		return a.Target, true
	}
	if v, ok := a.text[field]; ok {
		return v, true
	}
	v, ok := a.Extra[field]
	return v, ok
}

// Number returns a column parsed as a float.
func (a *Alignment) Number(field string) (float64, error) {
	v, ok := a.Field(field)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoField, field)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrFieldFormat, field, v)
	}
	return f, nil
}

// IsSelf reports whether the alignment is of a structure against itself.
func (a *Alignment) IsSelf() bool { return a.Query == a.Target }
