package timeseries

import (
	"fmt"
	"sort"
	"time"
)

// Panel is an ordered set of series aligned on a common timestamp index.
// Series are reindexed onto the index on insertion; positions with no
// observation are missing.
type Panel struct {
	Index     []time.Time
	Frequency Frequency

	names  []string
	series map[string]*Series
}

// NewPanel creates an empty panel over the given index.
func NewPanel(index []time.Time, freq Frequency) *Panel {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Panel{
		Index:     idx,
		Frequency: freq,
		series:    make(map[string]*Series),
	}
}

// NewPanelFromSeries builds a panel whose index is the union of all series
// timestamps (outer join). Series keep their argument order.
func NewPanelFromSeries(freq Frequency, series ...*Series) (*Panel, error) {
	p := NewPanel(UnionIndex(series...), freq)
	for _, s := range series {
		if err := p.Add(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// UnionIndex returns the sorted union of the timestamps of all series.
func UnionIndex(series ...*Series) []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, ts := range s.Timestamps {
			seen[ts.UnixNano()] = ts
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Add reindexes s onto the panel index and appends it. A series with a
// timestamp outside the index, or a duplicate name, is rejected.
func (p *Panel) Add(s *Series) error {
	if s.Name == "" {
		return fmt.Errorf("panel: series has no name")
	}
	if _, ok := p.series[s.Name]; ok {
		return fmt.Errorf("panel: duplicate series %q", s.Name)
	}
	aligned, err := p.Align(s)
	if err != nil {
		return err
	}
	p.names = append(p.names, s.Name)
	p.series[s.Name] = aligned
	return nil
}

// Align returns a copy of s reindexed onto the panel index.
func (p *Panel) Align(s *Series) (*Series, error) {
	pos := make(map[int64]int, len(p.Index))
	for i, ts := range p.Index {
		pos[ts.UnixNano()] = i
	}
	values := make([]Value, len(p.Index))
	for i, ts := range s.Timestamps {
		j, ok := pos[ts.UnixNano()]
		if !ok {
			return nil, fmt.Errorf("panel: series %q has timestamp %s outside the panel index",
				s.Name, ts.Format("2006-01-02"))
		}
		values[j] = s.Values[i]
	}
	timestamps := make([]time.Time, len(p.Index))
	copy(timestamps, p.Index)

	out := s.Copy()
	out.Timestamps = timestamps
	out.Values = values
	if out.Frequency == FrequencyUnknown {
		out.Frequency = p.Frequency
	}
	return out, nil
}

// Get returns the named series.
func (p *Panel) Get(name string) (*Series, bool) {
	s, ok := p.series[name]
	return s, ok
}

// Names returns the series names in insertion order.
func (p *Panel) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Series returns the series in insertion order.
func (p *Panel) Series() []*Series {
	out := make([]*Series, len(p.names))
	for i, n := range p.names {
		out[i] = p.series[n]
	}
	return out
}

// Len returns the number of series.
func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Rows returns the length of the index.
func (p *Panel) Rows() int {
	return len(p.Index)
}

// Select returns a new panel holding only the named series, in the given order.
func (p *Panel) Select(names []string) (*Panel, error) {
	out := NewPanel(p.Index, p.Frequency)
	for _, n := range names {
		s, ok := p.series[n]
		if !ok {
			return nil, fmt.Errorf("panel: unknown series %q", n)
		}
		out.names = append(out.names, n)
		out.series[n] = s.Copy()
	}
	return out, nil
}

// SliceRows returns a new panel restricted to index rows [start, end).
func (p *Panel) SliceRows(start, end int) *Panel {
	if start < 0 {
		start = 0
	}
	if end > len(p.Index) {
		end = len(p.Index)
	}
	if start > end {
		start = end
	}
	out := NewPanel(p.Index[start:end], p.Frequency)
	for _, n := range p.names {
		out.names = append(out.names, n)
		out.series[n] = p.series[n].Slice(start, end)
	}
	return out
}
