package pae

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMissingKey is returned when a scores file lacks the pae or plddt array.
var ErrMissingKey = errors.New("pae: missing required key")

// Scores holds the per-structure confidence estimates of a prediction.
type Scores struct {
	PAE   *Matrix
	PLDDT []float64
}

// Size returns the number of residues covered by the scores.
func (s *Scores) Size() int { return len(s.PLDDT) }

// ReadScores loads a ColabFold style scores JSON file.
func ReadScores(path string) (*Scores, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scores file: %w", err)
	}
	defer file.Close()

	scores, err := DecodeScores(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return scores, nil
}

// DecodeScores reads a JSON object carrying "pae" (N x N) and "plddt" (N).
// Any other keys are ignored.
func DecodeScores(r io.Reader) (*Scores, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	paeRaw, ok := raw["pae"]
	if !ok {
		return nil, fmt.Errorf("%w: pae", ErrMissingKey)
	}
	plddtRaw, ok := raw["plddt"]
	if !ok {
		return nil, fmt.Errorf("%w: plddt", ErrMissingKey)
	}

	var rows [][]float64
	if err := json.Unmarshal(paeRaw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode pae: %w", err)
	}
	var plddt []float64
	if err := json.Unmarshal(plddtRaw, &plddt); err != nil {
		return nil, fmt.Errorf("failed to decode plddt: %w", err)
	}

	matrix, err := NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	if matrix.Size() != len(plddt) {
		return nil, fmt.Errorf("%w: pae is %dx%d but plddt has %d values",
			ErrShape, matrix.Size(), matrix.Size(), len(plddt))
	}

	return &Scores{PAE: matrix, PLDDT: plddt}, nil
}
