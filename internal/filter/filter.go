package filter

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/tl-its-umich-edu/m-voice/internal/menu"
	"github.com/tl-its-umich-edu/m-voice/internal/textutil"
)

// excludedMarkers: placeholder item names the menu API uses for closed stations.
var excludedMarkers = []string{"No Service at this Time"}

var markerMatcher = newMarkerMatcher(excludedMarkers)

func newMarkerMatcher(markers []string) *ahocorasick.Matcher {
	patterns := make([][]byte, 0, len(markers))
	for _, marker := range markers {
		patterns = append(patterns, []byte(marker))
	}
	return ahocorasick.NewMatcher(patterns)
}

// Excluded: reports whether an item name is a placeholder rather than a dish.
func Excluded(name string) bool {
	return len(markerMatcher.MatchThreadSafe([]byte(name))) > 0
}

// Satisfies: reports whether item meets req. A forbidden allergen always fails; when traits
// are required each must be declared, so an item without traits fails.
func Satisfies(item menu.Item, req Requisites) bool {
	expanded := req.Expand()
	for _, allergen := range expanded.Allergens {
		if item.Allergens.Has(allergen) {
			return false
		}
	}
	if len(expanded.Traits) == 0 {
		return true
	}
	if len(item.Traits) == 0 {
		return false
	}
	for _, trait := range expanded.Traits {
		if !item.Traits.Has(trait) {
			return false
		}
	}
	return true
}

// ListMode: selects how ListItems renders names.
type ListMode int

const (
	// Inline renders "a, b, c".
	Inline ListMode = iota
	// Formatted renders one tab-indented name per line.
	Formatted
)

// ListItems: renders every item of meal that satisfies req.
func ListItems(meal menu.Meal, req Requisites, mode ListMode) string {
	prefix, suffix := "", ", "
	if mode == Formatted {
		prefix, suffix = "\t", "\n"
	}

	var b strings.Builder
	for _, course := range meal.Courses {
		for _, item := range course.Items {
			if Excluded(item.Name) || !Satisfies(item, req) {
				continue
			}
			b.WriteString(prefix)
			b.WriteString(strings.TrimRight(item.Name, ", "))
			b.WriteString(suffix)
		}
	}
	return strings.TrimSuffix(b.String(), suffix)
}

// Candidate: an item name matched by FindMatches together with the meal serving it.
type Candidate struct {
	Item string
	Meal string
}

// String: renders "<item> during <meal>" with the meal lower-cased.
func (c Candidate) String() string {
	return c.Item + " during " + strings.ToLower(c.Meal)
}

// FindMatches: collects items whose name contains query, ignoring case. When meal is empty
// every meal that has courses is searched.
func FindMatches(tree *menu.Tree, query, meal string, req Requisites) []Candidate {
	query = strings.TrimSpace(query)
	if tree == nil || query == "" {
		return nil
	}

	var matches []Candidate
	for _, m := range tree.Menu.Meals {
		if meal != "" && !textutil.EqualFold(m.Name, meal) {
			continue
		}
		for _, course := range m.Courses {
			for _, item := range course.Items {
				if Excluded(item.Name) || !Satisfies(item, req) {
					continue
				}
				if !textutil.ContainsFold(item.Name, query) {
					continue
				}
				matches = append(matches, Candidate{Item: strings.TrimSuffix(item.Name, " "), Meal: m.Name})
			}
		}
	}
	return matches
}

// Strings: renders each candidate.
func Strings(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.String())
	}
	return out
}
