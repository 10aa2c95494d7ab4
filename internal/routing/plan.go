package routing

import (
	"sort"

	"emoroute/internal/emotion"
	"emoroute/internal/labels"
)

// Decision is the routing outcome for one source file.
type Decision struct {
	Dataset      string               `json:"dataset" yaml:"dataset"`
	Source       string               `json:"source" yaml:"source"`
	Status       labels.Status        `json:"status" yaml:"status"`
	Category     emotion.Category     `json:"category,omitempty" yaml:"category,omitempty"`
	Intermediate emotion.Intermediate `json:"intermediate,omitempty" yaml:"intermediate,omitempty"`
	Detail       string               `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Summary aggregates the decisions of one dataset.
type Summary struct {
	Discovered    int                      `json:"discovered" yaml:"discovered"`
	Resolved      int                      `json:"resolved" yaml:"resolved"`
	Excluded      int                      `json:"excluded" yaml:"excluded"`
	Unresolved    int                      `json:"unresolved" yaml:"unresolved"`
	ConfigErrors  int                      `json:"config_errors" yaml:"config_errors"`
	Expected      int                      `json:"expected" yaml:"expected"`
	Categories    map[emotion.Category]int `json:"categories" yaml:"categories"`
	CountMismatch bool                     `json:"count_mismatch" yaml:"count_mismatch"`
}

func newSummary(expected int) Summary {
	return Summary{Expected: expected, Categories: make(map[emotion.Category]int, len(emotion.Categories()))}
}

func (s *Summary) add(d Decision) {
	switch d.Status {
	case labels.StatusResolved:
		s.Resolved++
		s.Categories[d.Category]++
	case labels.StatusExcluded:
		s.Excluded++
	case labels.StatusUnresolved:
		s.Unresolved++
	case labels.StatusConfigError:
		s.ConfigErrors++
	}
}

// mismatch reports whether resolved deviates from expected by more than the
// tolerance fraction. An expected count of zero disables the check.
func mismatch(resolved, expected int, tolerance float64) bool {
	if expected <= 0 {
		return false
	}
	diff := float64(resolved - expected)
	if diff < 0 {
		diff = -diff
	}
	return diff > tolerance*float64(expected)
}

// DatasetPlan holds the decisions for one dataset in source path order.
type DatasetPlan struct {
	Dataset   string     `json:"dataset" yaml:"dataset"`
	Name      string     `json:"name" yaml:"name"`
	Root      string     `json:"root" yaml:"root"`
	Decisions []Decision `json:"decisions" yaml:"decisions"`
	Summary   Summary    `json:"summary" yaml:"summary"`
}

// InvalidDataset records a dataset skipped because its descriptor is malformed.
type InvalidDataset struct {
	Dataset string `json:"dataset" yaml:"dataset"`
	Reason  string `json:"reason" yaml:"reason"`
}

// Plan is the full routing result of one run.
type Plan struct {
	Datasets []DatasetPlan    `json:"datasets" yaml:"datasets"`
	Invalid  []InvalidDataset `json:"invalid,omitempty" yaml:"invalid,omitempty"`
}

// Totals sums the per-dataset summaries. CountMismatch is set when any
// dataset mismatched.
func (p *Plan) Totals() Summary {
	total := newSummary(0)
	for _, ds := range p.Datasets {
		total.Discovered += ds.Summary.Discovered
		total.Resolved += ds.Summary.Resolved
		total.Excluded += ds.Summary.Excluded
		total.Unresolved += ds.Summary.Unresolved
		total.ConfigErrors += ds.Summary.ConfigErrors
		total.Expected += ds.Summary.Expected
		total.CountMismatch = total.CountMismatch || ds.Summary.CountMismatch
		for category, count := range ds.Summary.Categories {
			total.Categories[category] += count
		}
	}
	return total
}

// Resolved returns every resolved decision in plan order.
func (p *Plan) Resolved() []Decision {
	var out []Decision
	for _, ds := range p.Datasets {
		for _, d := range ds.Decisions {
			if d.Status == labels.StatusResolved {
				out = append(out, d)
			}
		}
	}
	return out
}

// Dataset returns the plan for key.
func (p *Plan) Dataset(key string) (DatasetPlan, bool) {
	for _, ds := range p.Datasets {
		if ds.Dataset == key {
			return ds, true
		}
	}
	return DatasetPlan{}, false
}

// HasProblems reports whether the run should be flagged to the operator.
func (p *Plan) HasProblems() bool {
	if len(p.Invalid) > 0 {
		return true
	}
	totals := p.Totals()
	return totals.ConfigErrors > 0 || totals.CountMismatch
}

func sortedUnique(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	j := 0
	for i, path := range out {
		if i > 0 && path == out[j-1] {
			continue
		}
		out[j] = path
		j++
	}
	return out[:j]
}
