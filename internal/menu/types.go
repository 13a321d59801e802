package menu

import (
	"bytes"
	"slices"

	"github.com/goccy/go-json"
)

// OneOrMany: decodes a JSON value that the menu API sends either as a single object or as an
// array of objects. It always holds a slice.
type OneOrMany[T any] []T

// UnmarshalJSON: accepts null, an object or an array.
func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*o = nil
		return nil
	case trimmed[0] == '[':
		var many []T
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*o = many
		return nil
	default:
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*o = OneOrMany[T]{one}
		return nil
	}
}

// StringSet: holds trait or allergen codes. The API sends them as object keys
// ({"vegan": {}, "mhealthy": {}}), as a string array, or as a single string.
type StringSet []string

// UnmarshalJSON: accepts all three shapes. Object keys are sorted.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	switch trimmed[0] {
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return err
		}
		codes := make([]string, 0, len(keyed))
		for code := range keyed {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		*s = codes
	case '[':
		var raw []any
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		codes := make([]string, 0, len(raw))
		for _, v := range raw {
			if code, ok := v.(string); ok {
				codes = append(codes, code)
			}
		}
		*s = codes
	case '"':
		var code string
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return err
		}
		*s = StringSet{code}
	default:
		*s = nil
	}
	return nil
}

// Has: reports whether code is in the set. Codes are compared exactly.
func (s StringSet) Has(code string) bool {
	return slices.Contains(s, code)
}

// Tree: the decoded menu payload for one location and date.
type Tree struct {
	Menu Menu `json:"menu"`
}

// Menu: lists the meals served.
type Menu struct {
	Meals OneOrMany[Meal] `json:"meal"`
}

// Meal: a meal period. A meal without courses carries a message instead.
type Meal struct {
	Name    string            `json:"name"`
	Courses OneOrMany[Course] `json:"course"`
	Message Message           `json:"message"`
}

// Message: explains why a meal has no courses, e.g. "Closed".
type Message struct {
	Content string `json:"content"`
}

// Course: groups menu items within a meal.
type Course struct {
	Name  string          `json:"name"`
	Items OneOrMany[Item] `json:"menuitem"`
}

// Item: a single dish.
type Item struct {
	Name      string    `json:"name"`
	Traits    StringSet `json:"trait"`
	Allergens StringSet `json:"allergens"`
}
