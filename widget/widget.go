// Package widget turns resolved names into ephemeral dashboard widget specs.
//
// Widgets produced here are never persisted. A dynamic section stores only its
// pattern and regenerates widgets whenever the pattern or run set changes.
package widget

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/hayeah/runlens/names"
)

// DefaultCap bounds the number of widgets a single pattern may produce.
const DefaultCap = 100

// Kind is the widget type.
type Kind string

const (
	KindChart     Kind = "chart"
	KindFileGroup Kind = "file-group"
)

// Chart defaults for synthesized metric widgets.
const (
	DefaultXAxis       = "step"
	DefaultScale       = "linear"
	DefaultAggregation = "LAST"
)

// Grid geometry. Widgets are placed left to right, two per row.
const (
	gridColumns  = 2
	widgetWidth  = 6
	widgetHeight = 4
)

type ChartConfig struct {
	Metrics     []string `json:"metrics"`
	XAxis       string   `json:"xAxis"`
	XScale      string   `json:"xScale"`
	YScale      string   `json:"yScale"`
	Aggregation string   `json:"aggregation"`
}

type FileGroupConfig struct {
	Files   []string      `json:"files"`
	LogType names.LogType `json:"logType,omitempty"`
}

type Layout struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Spec describes one widget. Exactly one of Chart and File is set, matching
// Kind.
type Spec struct {
	ID     string           `json:"id"`
	Kind   Kind             `json:"kind"`
	Names  []string         `json:"names"`
	Chart  *ChartConfig     `json:"chart,omitempty"`
	File   *FileGroupConfig `json:"file,omitempty"`
	Layout Layout           `json:"layout"`
}

// ErrSectionID is returned for section IDs that would make widget IDs
// ambiguous.
var ErrSectionID = errors.New("section ID must not contain a \"metric\" or \"file\" segment")

// CheckSectionID reports whether sectionID can be used in widget IDs. The
// ID format is dynamic-<section>-<kind>-<name>, so a dash-separated segment of
// the section ID equal to a kind would let two sections share a widget ID.
// Generated UUIDs always pass.
func CheckSectionID(sectionID string) error {
	if sectionID == "" {
		return errors.New("section ID is empty")
	}
	for _, seg := range strings.Split(sectionID, "-") {
		if seg == string(names.KindMetric) || seg == string(names.KindFile) {
			return fmt.Errorf("%w: %q", ErrSectionID, sectionID)
		}
	}
	return nil
}

// ID returns the stable widget ID for a name within a section. The same
// section, kind and name always give the same ID, and IDs of sections that
// pass CheckSectionID never collide.
func ID(sectionID string, kind names.Kind, name string) string {
	return fmt.Sprintf("dynamic-%s-%s-%s", sectionID, kind, name)
}

// FromName builds the unplaced widget for a single name.
func FromName(sectionID string, n names.Name) Spec {
	spec := Spec{
		ID:    ID(sectionID, n.Kind, n.Name),
		Names: []string{n.Name},
	}
	if n.Kind == names.KindFile {
		spec.Kind = KindFileGroup
		spec.File = &FileGroupConfig{Files: []string{n.Name}, LogType: n.LogType}
		return spec
	}
	spec.Kind = KindChart
	spec.Chart = &ChartConfig{
		Metrics:     []string{n.Name},
		XAxis:       DefaultXAxis,
		XScale:      DefaultScale,
		YScale:      DefaultScale,
		Aggregation: DefaultAggregation,
	}
	return spec
}

// Synthesize builds one widget per match, sorted by ID and truncated to
// limit (DefaultCap when limit <= 0). Sorting happens before truncation, so
// the surviving widgets do not depend on the order of matches.
func Synthesize(sectionID string, matches []names.Name, limit int) []Spec {
	if limit <= 0 {
		limit = DefaultCap
	}

	specs := lo.UniqBy(
		lo.Map(matches, func(n names.Name, _ int) Spec { return FromName(sectionID, n) }),
		func(s Spec) string { return s.ID },
	)
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	if len(specs) > limit {
		specs = specs[:limit]
	}

	for i := range specs {
		specs[i].Layout = Layout{
			X: (i % gridColumns) * widgetWidth,
			Y: (i / gridColumns) * widgetHeight,
			W: widgetWidth,
			H: widgetHeight,
		}
	}
	return specs
}

// Truncated reports whether synthesizing matches under limit drops any.
func Truncated(matches []names.Name, limit int) bool {
	if limit <= 0 {
		limit = DefaultCap
	}
	return len(matches) > limit
}
