package tcode

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sartorproj/gofredmd/errs"
)

// Map assigns a transformation code to each series. It may hold invalid
// codes; Lookup reports them.
type Map map[string]Code

// ParseMap converts raw integer codes, such as the ones embedded in a
// FRED-MD file, to a Map.
func ParseMap(raw map[string]int) Map {
	m := make(Map, len(raw))
	for name, v := range raw {
		m[name] = Code(v)
	}
	return m
}

// LoadMap reads a JSON object mapping series names to codes. Codes may be
// numbers or numeric strings.
func LoadMap(r io.Reader) (Map, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tcode: decode map: %w", err)
	}

	m := make(Map, len(raw))
	for name, v := range raw {
		var s string
		switch t := v.(type) {
		case json.Number:
			s = t.String()
		case string:
			s = strings.TrimSpace(t)
		default:
			return nil, fmt.Errorf("tcode: series %q: code must be a number, got %T", name, v)
		}
		code, err := strconv.ParseFloat(s, 64)
		if err != nil || code != float64(int(code)) {
			return nil, fmt.Errorf("tcode: series %q: code %q is not an integer", name, s)
		}
		m[name] = Code(int(code))
	}
	return m, nil
}

// Lookup returns the code for a series, or an *errs.CodeError when the series
// has no code or an invalid one.
func (m Map) Lookup(series string) (Code, error) {
	code, ok := m[series]
	if !ok {
		return 0, errs.NewMissingCode(series)
	}
	if !code.Valid() {
		return 0, errs.NewInvalidCode(series, int(code))
	}
	return code, nil
}

// Names returns the series names in sorted order.
func (m Map) Names() []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ints returns the map as plain integers.
func (m Map) Ints() map[string]int {
	out := make(map[string]int, len(m))
	for name, code := range m {
		out[name] = int(code)
	}
	return out
}

// Coverage describes how a Map lines up with a set of columns.
type Coverage struct {
	// Missing lists columns without a valid code, in column order.
	Missing []string `json:"missing_in_tcodes"`
	// Extra lists mapped series that are not columns, sorted.
	Extra []string `json:"extra_in_tcodes"`
	// Invalid lists columns whose code is outside 1-7, in column order.
	Invalid []string `json:"invalid_tcodes"`
}

// Complete reports whether every column has a valid code.
func (c Coverage) Complete() bool {
	return len(c.Missing) == 0
}

// Check compares the map against columns.
func (m Map) Check(columns []string) Coverage {
	cov := Coverage{Missing: []string{}, Extra: []string{}, Invalid: []string{}}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
		code, ok := m[c]
		if !ok || !code.Valid() {
			cov.Missing = append(cov.Missing, c)
		}
		if ok && !code.Valid() {
			cov.Invalid = append(cov.Invalid, c)
		}
	}
	for _, name := range m.Names() {
		if !present[name] {
			cov.Extra = append(cov.Extra, name)
		}
	}
	return cov
}
