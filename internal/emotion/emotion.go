package emotion

import (
	"fmt"
	"sort"
	"strings"
)

// Intermediate is a dataset-agnostic emotion name.
type Intermediate string

const (
	Neutral   Intermediate = "neutral"
	Calm      Intermediate = "calm"
	Happy     Intermediate = "happy"
	Sad       Intermediate = "sad"
	Angry     Intermediate = "angry"
	Fearful   Intermediate = "fearful"
	Fear      Intermediate = "fear"
	Disgust   Intermediate = "disgust"
	Surprised Intermediate = "surprised"
	Surprise  Intermediate = "surprise"
	Disgusted Intermediate = "disgusted"
)

// Intermediates returns the closed intermediate set in declaration order.
func Intermediates() []Intermediate {
	return []Intermediate{Neutral, Calm, Happy, Sad, Angry, Fearful, Fear, Disgust, Surprised, Surprise, Disgusted}
}

// IsKnown reports whether value belongs to the closed intermediate set.
func (i Intermediate) IsKnown() bool {
	for _, known := range Intermediates() {
		if known == i {
			return true
		}
	}
	return false
}

// Category is one of the five output folders.
type Category string

const (
	CategoryHappy Category = "happy"
	CategorySad   Category = "sad"
	CategoryAngry Category = "angry"
	CategoryCalm  Category = "calm"
	CategoryFear  Category = "fear"
)

// Categories returns the output categories in folder order.
func Categories() []Category {
	return []Category{CategoryHappy, CategorySad, CategoryAngry, CategoryCalm, CategoryFear}
}

// ParseCategory validates a category name. Matching is exact.
func ParseCategory(value string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == value {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q (want one of %s)", value, joinCategories())
}

func joinCategories() string {
	names := make([]string, 0, len(Categories()))
	for _, c := range Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// Outcome is the image of an intermediate emotion in the final map.
type Outcome struct {
	Category Category
	Excluded bool
}

// Include returns an outcome routing to category.
func Include(c Category) Outcome { return Outcome{Category: c} }

// Exclude returns the explicit "no category" outcome.
func Exclude() Outcome { return Outcome{Excluded: true} }

func (o Outcome) String() string {
	if o.Excluded {
		return "excluded"
	}
	return string(o.Category)
}

// FinalMap maps intermediate emotions to outcomes.
type FinalMap struct {
	entries map[Intermediate]Outcome
}

// NewFinalMap copies entries into an immutable map. Included outcomes must name
// a known category.
func NewFinalMap(entries map[Intermediate]Outcome) (FinalMap, error) {
	out := make(map[Intermediate]Outcome, len(entries))
	for key, outcome := range entries {
		if !outcome.Excluded {
			if _, err := ParseCategory(string(outcome.Category)); err != nil {
				return FinalMap{}, fmt.Errorf("final map %s: %w", key, err)
			}
		}
		out[key] = outcome
	}
	return FinalMap{entries: out}, nil
}

// DefaultFinalMap returns the stock collapsing map: neutral folds into calm,
// fearful/fear into fear, and every disgust/surprise spelling is excluded.
func DefaultFinalMap() FinalMap {
	return FinalMap{entries: map[Intermediate]Outcome{
		Neutral:   Include(CategoryCalm),
		Calm:      Include(CategoryCalm),
		Happy:     Include(CategoryHappy),
		Sad:       Include(CategorySad),
		Angry:     Include(CategoryAngry),
		Fearful:   Include(CategoryFear),
		Fear:      Include(CategoryFear),
		Disgust:   Exclude(),
		Surprised: Exclude(),
		Surprise:  Exclude(),
		Disgusted: Exclude(),
	}}
}

// Lookup returns the outcome for value and whether the map has an entry.
func (m FinalMap) Lookup(value Intermediate) (Outcome, bool) {
	outcome, ok := m.entries[value]
	return outcome, ok
}

// Missing lists members of the closed intermediate set that have no entry.
func (m FinalMap) Missing() []Intermediate {
	var missing []Intermediate
	for _, value := range Intermediates() {
		if _, ok := m.entries[value]; !ok {
			missing = append(missing, value)
		}
	}
	return missing
}

// Keys returns the mapped intermediates sorted by name.
func (m FinalMap) Keys() []Intermediate {
	keys := make([]Intermediate, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of entries.
func (m FinalMap) Len() int { return len(m.entries) }
