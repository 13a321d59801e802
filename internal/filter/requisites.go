package filter

import "slices"

// genericAllergens: expands umbrella codes into the codes the menu API uses.
var genericAllergens = map[string][]string{
	"nuts": {"tree-nuts", "peanuts"},
}

// Requisites: the traits an item must declare and the allergens it must not declare.
type Requisites struct {
	Traits    []string
	Allergens []string
}

// IsEmpty: reports whether no requisite was requested.
func (r Requisites) IsEmpty() bool {
	return len(r.Traits) == 0 && len(r.Allergens) == 0
}

// Merge: prefers each field of turn and falls back to carried when the turn left it empty.
func Merge(turn, carried Requisites) Requisites {
	merged := turn
	if len(merged.Traits) == 0 {
		merged.Traits = carried.Traits
	}
	if len(merged.Allergens) == 0 {
		merged.Allergens = carried.Allergens
	}
	return Requisites{
		Traits:    slices.Clone(merged.Traits),
		Allergens: slices.Clone(merged.Allergens),
	}
}

// Expand: replaces generic allergen codes with their specific codes, keeping order and
// dropping duplicates.
func (r Requisites) Expand() Requisites {
	allergens := make([]string, 0, len(r.Allergens)+1)
	for _, code := range r.Allergens {
		codes, ok := genericAllergens[code]
		if !ok {
			codes = []string{code}
		}
		for _, c := range codes {
			if !slices.Contains(allergens, c) {
				allergens = append(allergens, c)
			}
		}
	}
	return Requisites{Traits: slices.Clone(r.Traits), Allergens: allergens}
}
