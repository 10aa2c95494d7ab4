package dataset

import (
	"fmt"

	"emoroute/internal/emotion"
	"emoroute/internal/language"
)

// IssueKind classifies a static completeness problem.
type IssueKind string

const (
	// IssueUnknownIntermediate: a vocabulary value outside the closed set.
	IssueUnknownIntermediate IssueKind = "unknown_intermediate"
	// IssueUnmappedIntermediate: a vocabulary value with no final map entry.
	// Files carrying that token would resolve to a config error.
	IssueUnmappedIntermediate IssueKind = "unmapped_intermediate"
	// IssueFinalMapIncomplete: the final map is not total over the closed set.
	IssueFinalMapIncomplete IssueKind = "final_map_incomplete"
	// IssueFinalMapUnknownKey: the final map names something outside the set.
	IssueFinalMapUnknownKey IssueKind = "final_map_unknown_key"
	// IssueUnknownLanguage: a language filter that names no known language.
	// The filter still matches directory names exactly; this is advisory.
	IssueUnknownLanguage IssueKind = "unknown_language"
)

// Advisory reports whether the finding leaves routing unaffected.
func (k IssueKind) Advisory() bool { return k == IssueUnknownLanguage }

// Issue is one finding of Check.
type Issue struct {
	Dataset string
	Kind    IssueKind
	Detail  string
}

func (i Issue) String() string {
	if i.Dataset == "" {
		return fmt.Sprintf("%s: %s", i.Kind, i.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", i.Dataset, i.Kind, i.Detail)
}

// Check verifies that every raw token of every descriptor resolves without a
// config error and that the final map is total over the intermediate set.
// Results are ordered: final map findings first, then datasets in the order
// given, tokens sorted.
func Check(descriptors []*Descriptor, final emotion.FinalMap) []Issue {
	var issues []Issue
	for _, missing := range final.Missing() {
		issues = append(issues, Issue{
			Kind:   IssueFinalMapIncomplete,
			Detail: fmt.Sprintf("intermediate %q has no final mapping", missing),
		})
	}
	for _, key := range final.Keys() {
		if !key.IsKnown() {
			issues = append(issues, Issue{
				Kind:   IssueFinalMapUnknownKey,
				Detail: fmt.Sprintf("final map entry %q is not an intermediate emotion", key),
			})
		}
	}
	for _, d := range descriptors {
		if filter := languageFilter(d.Convention); filter != "" && language.ToISO2(filter) == "" {
			issues = append(issues, Issue{
				Dataset: d.Key,
				Kind:    IssueUnknownLanguage,
				Detail:  fmt.Sprintf("language filter %q is not a recognized language", filter),
			})
		}
		for _, raw := range d.VocabularyKeys() {
			intermediate, _ := d.Lookup(raw)
			if !intermediate.IsKnown() {
				issues = append(issues, Issue{
					Dataset: d.Key,
					Kind:    IssueUnknownIntermediate,
					Detail:  fmt.Sprintf("token %q maps to unknown intermediate %q", raw, intermediate),
				})
			}
			if _, ok := final.Lookup(intermediate); !ok {
				issues = append(issues, Issue{
					Dataset: d.Key,
					Kind:    IssueUnmappedIntermediate,
					Detail:  fmt.Sprintf("token %q maps to %q which has no final mapping", raw, intermediate),
				})
			}
		}
	}
	return issues
}

func languageFilter(c Convention) string {
	switch c := c.(type) {
	case DirectoryConvention:
		return c.LanguageFilter
	case UnconstrainedConvention:
		return c.LanguageFilter
	}
	return ""
}
