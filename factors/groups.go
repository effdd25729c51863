package factors

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/timeseries"
)

//go:embed default_groups.yaml
var defaultGroupsYAML []byte

// Assignment places one series in a group.
type Assignment struct {
	Series string `json:"series" yaml:"series"`
	Group  string `json:"group" yaml:"group"`
}

// GroupMap is an ordered assignment of series to groups. Groups are ordered
// by first appearance and series keep map order within their group.
type GroupMap struct {
	assignments []Assignment
	index       map[string]int
}

// NewGroupMap builds a GroupMap. Repeating a series with the same group is
// allowed; assigning it to two groups is an error.
func NewGroupMap(assignments []Assignment) (*GroupMap, error) {
	gm := &GroupMap{index: make(map[string]int, len(assignments))}
	for _, a := range assignments {
		if a.Series == "" || a.Group == "" {
			return nil, fmt.Errorf("%w: empty series or group name", errs.ErrInvalidGroupMap)
		}
		if i, ok := gm.index[a.Series]; ok {
			if gm.assignments[i].Group != a.Group {
				return nil, fmt.Errorf("%w: series %q assigned to %q and %q",
					errs.ErrInvalidGroupMap, a.Series, gm.assignments[i].Group, a.Group)
			}
			continue
		}
		gm.index[a.Series] = len(gm.assignments)
		gm.assignments = append(gm.assignments, a)
	}
	return gm, nil
}

// LoadGroupMap reads a YAML (or JSON) object. Either form is accepted:
//
//	INDPRO: Output and Income       # series: group
//	Prices: [CPIAUCSL, PCEPI]       # group: [series...]
//
// Document order is preserved.
func LoadGroupMap(r io.Reader) (*GroupMap, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidGroupMap, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", errs.ErrInvalidGroupMap)
	}

	root := doc.Content[0]
	var assignments []Assignment
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch value.Kind {
		case yaml.ScalarNode:
			assignments = append(assignments, Assignment{Series: key.Value, Group: value.Value})
		case yaml.SequenceNode:
			for _, item := range value.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("%w: group %q: line %d: expected a series name",
						errs.ErrInvalidGroupMap, key.Value, item.Line)
				}
				assignments = append(assignments, Assignment{Series: item.Value, Group: key.Value})
			}
		default:
			return nil, fmt.Errorf("%w: line %d: %q must map to a group or a list of series",
				errs.ErrInvalidGroupMap, key.Line, key.Value)
		}
	}
	return NewGroupMap(assignments)
}

// DefaultGroupMap returns the eight FRED-MD categories of McCracken & Ng.
func DefaultGroupMap() *GroupMap {
	gm, err := LoadGroupMap(bytes.NewReader(defaultGroupsYAML))
	if err != nil {
		panic("factors: embedded group map: " + err.Error())
	}
	return gm
}

// Len returns the number of series in the map.
func (g *GroupMap) Len() int {
	if g == nil {
		return 0
	}
	return len(g.assignments)
}

// Group returns the group of a series.
func (g *GroupMap) Group(series string) (string, bool) {
	i, ok := g.index[series]
	if !ok {
		return "", false
	}
	return g.assignments[i].Group, true
}

// Assignments returns the assignments in map order.
func (g *GroupMap) Assignments() []Assignment {
	return append([]Assignment(nil), g.assignments...)
}

// Groups returns the group names in order of first appearance.
func (g *GroupMap) Groups() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range g.assignments {
		if !seen[a.Group] {
			seen[a.Group] = true
			out = append(out, a.Group)
		}
	}
	return out
}

// Members returns the series of a group in map order.
func (g *GroupMap) Members(group string) []string {
	var out []string
	for _, a := range g.assignments {
		if a.Group == group {
			out = append(out, a.Series)
		}
	}
	return out
}

// Group is one economic category with its series in column order.
type Group struct {
	Name   string   `json:"name"`
	Series []string `json:"series"`
}

// Grouping partitions the series of a panel.
type Grouping struct {
	Groups []Group `json:"groups"`
	// Unmatched lists map entries absent from the panel, in map order.
	Unmatched []string `json:"unmatched"`
}

// Columns returns all series in group order.
func (g *Grouping) Columns() []string {
	var out []string
	for _, grp := range g.Groups {
		out = append(out, grp.Series...)
	}
	return out
}

// GroupOf returns the group of a grouped series.
func (g *Grouping) GroupOf(series string) (string, bool) {
	for _, grp := range g.Groups {
		for _, s := range grp.Series {
			if s == series {
				return grp.Name, true
			}
		}
	}
	return "", false
}

// GroupBy partitions the series of p by gm. Groups and series follow map
// order, groups without panel series are omitted, and map entries missing
// from the panel are reported in Unmatched. Panel series that the map does
// not know are *errs.UnknownSeriesError values, joined.
func GroupBy(p *timeseries.Panel, gm *GroupMap) (*Grouping, error) {
	if gm == nil {
		return nil, errs.ErrInvalidGroupMap
	}

	var unknown []error
	for _, name := range p.Names() {
		if _, ok := gm.index[name]; !ok {
			unknown = append(unknown, errs.NewUnknownSeries(name))
		}
	}
	if len(unknown) > 0 {
		return nil, errors.Join(unknown...)
	}

	names := gm.Groups()
	members := make(map[string][]string, len(names))
	g := &Grouping{Unmatched: []string{}}
	for _, a := range gm.assignments {
		if _, ok := p.Get(a.Series); !ok {
			g.Unmatched = append(g.Unmatched, a.Series)
			continue
		}
		members[a.Group] = append(members[a.Group], a.Series)
	}
	for _, name := range names {
		if len(members[name]) > 0 {
			g.Groups = append(g.Groups, Group{Name: name, Series: members[name]})
		}
	}
	return g, nil
}
