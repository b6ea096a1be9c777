package pae

import "gonum.org/v1/gonum/mat"

// SmoothOptions controls PAE smoothing.
type SmoothOptions struct {
	// Threshold separates good (value < Threshold) from bad positions.
	Threshold float64
	// MinRun is the shortest bad run that survives between two good runs.
	// Zero disables matrix smoothing.
	MinRun int
	// BlockReplace is written over every good position.
	BlockReplace float64
}

// DefaultSmoothOptions returns the defaults used by the domain finder.
func DefaultSmoothOptions() SmoothOptions {
	return SmoothOptions{
		Threshold:    5,
		MinRun:       20,
		BlockReplace: 1,
	}
}

// run is a maximal stretch of positions sharing the same good/bad status.
type run struct {
	start, end int // half open
	good       bool
}

func groupRuns(values []float64, threshold float64) []run {
	var runs []run
	for i, v := range values {
		good := v < threshold
		if len(runs) > 0 && runs[len(runs)-1].good == good {
			runs[len(runs)-1].end = i + 1
			continue
		}
		runs = append(runs, run{start: i, end: i + 1, good: good})
	}
	return runs
}

// SmoothArray returns a copy of values in which every good run, and every bad
// run shorter than opts.MinRun that does not touch either end of the array, is
// overwritten with opts.BlockReplace. Other positions keep their value.
func SmoothArray(values []float64, opts SmoothOptions) []float64 {
	out := make([]float64, len(values))
	copy(out, values)

	for _, r := range groupRuns(values, opts.Threshold) {
		if !r.good {
			// Bad stretches at either end are never filled in
			if r.start == 0 || r.end == len(values) {
				continue
			}
			if r.end-r.start >= opts.MinRun {
				continue
			}
		}
		for i := r.start; i < r.end; i++ {
			out[i] = opts.BlockReplace
		}
	}

	return out
}

// SmoothMatrix smooths every column of m, then every row of that result, and
// returns the new matrix. m is not modified. A zero opts.MinRun returns m
// itself.
func SmoothMatrix(m *Matrix, opts SmoothOptions) *Matrix {
	if opts.MinRun == 0 {
		return m
	}

	out := m.Clone()

	// Axis 0 must be finished before axis 1 reads the partially smoothed matrix
	for j := 0; j < out.n; j++ {
		out.dense.SetCol(j, SmoothArray(mat.Col(nil, j, out.dense), opts))
	}
	for i := 0; i < out.n; i++ {
		out.dense.SetRow(i, SmoothArray(mat.Row(nil, i, out.dense), opts))
	}

	return out
}
