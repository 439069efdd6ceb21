// Package sensitivity computes global sensitivity indices (Morris elementary
// effects, Sobol' first/total order, RBD Fourier variance ratios) over
// black-box evaluations of sample units.
package sensitivity

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// UnitID identifies one evaluation unit (e.g. a replicate group). Identical
// parameter vectors share a unit, so memoization dedups their evaluation.
type UnitID int64

// Scheme is the rectangular table joining a sampling design to its estimator:
// one row per sample point, one named column per structural role ("base",
// "A", "B", or a perturbed dimension's name).
type Scheme struct {
	columns []string
	index   map[string]int
	units   [][]UnitID // rows = sample points
}

// NewScheme allocates a scheme with n rows and the given column roles.
func NewScheme(columns []string, n int) *Scheme {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	units := make([][]UnitID, n)
	for i := range units {
		units[i] = make([]UnitID, len(columns))
	}
	return &Scheme{columns: columns, index: index, units: units}
}

// Columns returns the column roles in order.
func (s *Scheme) Columns() []string { return s.columns }

// Rows returns the number of sample points.
func (s *Scheme) Rows() int { return len(s.units) }

// Set stores the unit for one (row, role) cell.
func (s *Scheme) Set(row int, column string, id UnitID) error {
	ci, ok := s.index[column]
	if !ok {
		return fmt.Errorf("scheme has no column %q", column)
	}
	s.units[row][ci] = id
	return nil
}

// Column returns the units of one role across all sample points.
func (s *Scheme) Column(column string) ([]UnitID, error) {
	ci, ok := s.index[column]
	if !ok {
		return nil, fmt.Errorf("scheme has no column %q", column)
	}
	out := make([]UnitID, len(s.units))
	for i, row := range s.units {
		out[i] = row[ci]
	}
	return out, nil
}

// Units returns every distinct unit referenced by the table.
func (s *Scheme) Units() []UnitID {
	seen := make(map[UnitID]struct{})
	var out []UnitID
	for _, row := range s.units {
		for _, id := range row {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// WriteCSV writes the table with a header row, for the persisted audit
// artifact.
func (s *Scheme) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.columns); err != nil {
		return err
	}
	record := make([]string, len(s.columns))
	for _, row := range s.units {
		for i, id := range row {
			record[i] = strconv.FormatInt(int64(id), 10)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
