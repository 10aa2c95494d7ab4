package labels

import (
	"fmt"

	"emoroute/internal/dataset"
	"emoroute/internal/emotion"
)

// Status classifies a routing decision.
type Status string

const (
	StatusResolved    Status = "resolved"
	StatusExcluded    Status = "excluded"
	StatusUnresolved  Status = "unresolved"
	StatusConfigError Status = "config_error"
)

// Resolution is the result of mapping a raw label to a category.
type Resolution struct {
	Status       Status
	Intermediate emotion.Intermediate
	Category     emotion.Category
	Detail       string
}

// Resolve maps a raw label through the dataset vocabulary and the final map.
// A token the vocabulary does not know, or an intermediate the final map does
// not cover, is a configuration error rather than an unresolved file.
func Resolve(raw string, d *dataset.Descriptor, final emotion.FinalMap) Resolution {
	intermediate, ok := d.Lookup(raw)
	if !ok {
		return Resolution{
			Status: StatusConfigError,
			Detail: fmt.Sprintf("raw label %q not in %s vocabulary", raw, d.Key),
		}
	}
	outcome, ok := final.Lookup(intermediate)
	if !ok {
		return Resolution{
			Status:       StatusConfigError,
			Intermediate: intermediate,
			Detail:       fmt.Sprintf("intermediate %q has no final mapping", intermediate),
		}
	}
	if outcome.Excluded {
		return Resolution{Status: StatusExcluded, Intermediate: intermediate}
	}
	return Resolution{Status: StatusResolved, Intermediate: intermediate, Category: outcome.Category}
}

// Label runs Extract and Resolve for one path.
func Label(path string, d *dataset.Descriptor, final emotion.FinalMap) Resolution {
	extraction := Extract(path, d)
	if !extraction.OK() {
		return Resolution{Status: StatusUnresolved, Detail: extraction.Reason}
	}
	return Resolve(extraction.Raw, d, final)
}
