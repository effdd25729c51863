package factors

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/timeseries"
)

// BalanceMode selects how a ragged panel is trimmed.
type BalanceMode string

const (
	// BalanceNone keeps every row.
	BalanceNone BalanceMode = "none"
	// BalanceInitial drops leading rows until every column has started.
	BalanceInitial BalanceMode = "initial"
	// BalanceAll also drops any remaining row with a missing cell.
	BalanceAll BalanceMode = "all"
)

// ParseBalanceMode parses none, initial or all.
func ParseBalanceMode(s string) (BalanceMode, error) {
	switch BalanceMode(s) {
	case BalanceNone, BalanceInitial, BalanceAll:
		return BalanceMode(s), nil
	}
	return "", fmt.Errorf("factors: balance must be one of none, initial, all; got %q", s)
}

// Matrix is a T x N panel: rows are timestamps, columns are series.
// Missing cells hold NaN and are false in the mask.
type Matrix struct {
	Data    *mat.Dense
	Index   []time.Time
	Columns []string
	// ColumnGroups holds the group of each column.
	ColumnGroups []string

	// DroppedRows and DroppedColumns record what Balance removed.
	DroppedRows    []time.Time
	DroppedColumns []string

	mask []bool
}

// Assemble builds the matrix of p with columns in grouping order.
func Assemble(p *timeseries.Panel, g *Grouping) (*Matrix, error) {
	cols := g.Columns()
	if p.Len() == 0 || p.Rows() == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("factors: assemble: %w", errs.ErrEmptyPanel)
	}

	rows := p.Rows()
	data := mat.NewDense(rows, len(cols), nil)
	mask := make([]bool, rows*len(cols))
	groups := make([]string, len(cols))
	for j, name := range cols {
		s, ok := p.Get(name)
		if !ok {
			return nil, fmt.Errorf("factors: assemble: %w", errs.NewUnknownSeries(name))
		}
		groups[j], _ = g.GroupOf(name)
		for i, v := range s.Values {
			data.Set(i, j, v.OrNaN())
			mask[i*len(cols)+j] = v.Valid
		}
	}

	return &Matrix{
		Data:         data,
		Index:        append([]time.Time(nil), p.Index...),
		Columns:      cols,
		ColumnGroups: groups,
		mask:         mask,
	}, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (int, int) {
	return len(m.Index), len(m.Columns)
}

// Observed reports whether cell (i, j) holds a value.
func (m *Matrix) Observed(i, j int) bool {
	return m.mask[i*len(m.Columns)+j]
}

// At returns cell (i, j) and whether it is observed.
func (m *Matrix) At(i, j int) (float64, bool) {
	return m.Data.At(i, j), m.Observed(i, j)
}

// MissingCount returns the number of missing cells.
func (m *Matrix) MissingCount() int {
	n := 0
	for _, ok := range m.mask {
		if !ok {
			n++
		}
	}
	return n
}

// Balance returns a trimmed copy of m. Columns with no observation are
// dropped first. An empty result is an error.
func (m *Matrix) Balance(mode BalanceMode) (*Matrix, error) {
	if mode == "" {
		mode = BalanceNone
	}
	if _, err := ParseBalanceMode(string(mode)); err != nil {
		return nil, err
	}
	rows, cols := m.Dims()

	var keepCols []int
	var droppedCols []string
	firstRow := 0
	for j := 0; j < cols; j++ {
		first := -1
		for i := 0; i < rows; i++ {
			if m.Observed(i, j) {
				first = i
				break
			}
		}
		if first < 0 {
			droppedCols = append(droppedCols, m.Columns[j])
			continue
		}
		keepCols = append(keepCols, j)
		firstRow = max(firstRow, first)
	}
	if len(keepCols) == 0 {
		return nil, fmt.Errorf("factors: balance: %w", errs.ErrEmptyPanel)
	}
	if mode == BalanceNone {
		firstRow = 0
	}

	var keepRows []int
	var droppedRows []time.Time
	for i := 0; i < rows; i++ {
		keep := i >= firstRow
		if keep && mode == BalanceAll {
			for _, j := range keepCols {
				if !m.Observed(i, j) {
					keep = false
					break
				}
			}
		}
		if keep {
			keepRows = append(keepRows, i)
		} else {
			droppedRows = append(droppedRows, m.Index[i])
		}
	}
	if len(keepRows) == 0 {
		return nil, fmt.Errorf("factors: balance %s left no rows: %w", mode, errs.ErrEmptyPanel)
	}

	out := &Matrix{
		Data:           mat.NewDense(len(keepRows), len(keepCols), nil),
		Index:          make([]time.Time, len(keepRows)),
		Columns:        make([]string, len(keepCols)),
		ColumnGroups:   make([]string, len(keepCols)),
		DroppedRows:    append(append([]time.Time(nil), m.DroppedRows...), droppedRows...),
		DroppedColumns: append(append([]string(nil), m.DroppedColumns...), droppedCols...),
		mask:           make([]bool, len(keepRows)*len(keepCols)),
	}
	for jj, j := range keepCols {
		out.Columns[jj] = m.Columns[j]
		out.ColumnGroups[jj] = m.ColumnGroups[j]
	}
	for ii, i := range keepRows {
		out.Index[ii] = m.Index[i]
		for jj, j := range keepCols {
			v, ok := m.At(i, j)
			if !ok {
				v = math.NaN()
			}
			out.Data.Set(ii, jj, v)
			out.mask[ii*len(keepCols)+jj] = ok
		}
	}
	return out, nil
}

// Panel converts the matrix back to a panel with columns in matrix order.
func (m *Matrix) Panel(freq timeseries.Frequency) (*timeseries.Panel, error) {
	p := timeseries.NewPanel(m.Index, freq)
	rows, _ := m.Dims()
	for j, name := range m.Columns {
		values := make([]timeseries.Value, rows)
		for i := 0; i < rows; i++ {
			if v, ok := m.At(i, j); ok {
				values[i] = timeseries.Some(v)
			}
		}
		s, err := timeseries.NewWithTimestamps(name, m.Index, values)
		if err != nil {
			return nil, err
		}
		s.Frequency = freq
		if err := p.Add(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}
