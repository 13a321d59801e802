package compose

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed phrases.yaml
var phrasesYAML []byte

type phraseTable struct {
	Traits    map[string]string `yaml:"traits"`
	Allergens map[string]string `yaml:"allergens"`
	Dates     struct {
		Words      []string `yaml:"words"`
		Qualifiers []string `yaml:"qualifiers"`
		Weekdays   []string `yaml:"weekdays"`
	} `yaml:"dates"`
	Templates map[string]string `yaml:"templates"`
}

// templateKeys: lists every required template with the placeholders it may use.
var templateKeys = map[string][]string{
	"meal_available":       {"items", "location", "meal"},
	"meal_available_dated": {"prefix", "items", "location", "meal"},
	"not_available":        {"reason", "location", "when"},
	"item_found":           {"items"},
}

func parsePhrases(data []byte) (*phraseTable, error) {
	var table phraseTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse phrases: %w", err)
	}
	for name, keys := range templateKeys {
		tmpl := table.Templates[name]
		if strings.TrimSpace(tmpl) == "" {
			return nil, fmt.Errorf("phrases: missing template %q", name)
		}
		if err := checkPlaceholders(tmpl, keys); err != nil {
			return nil, fmt.Errorf("phrases: %s: %w", name, err)
		}
	}
	return &table, nil
}

func (p *phraseTable) trait(code string) string {
	if name, ok := p.Traits[code]; ok {
		return name
	}
	return code
}

func (p *phraseTable) allergen(code string) string {
	if name, ok := p.Allergens[code]; ok {
		return name
	}
	return code
}

// informal: reports whether phrase is a relative date such as "tomorrow" or "next tuesday".
func (p *phraseTable) informal(phrase string) bool {
	words := strings.Fields(strings.ToLower(phrase))
	switch len(words) {
	case 1:
		return slices.Contains(p.Dates.Words, words[0]) || slices.Contains(p.Dates.Weekdays, words[0])
	case 2:
		return slices.Contains(p.Dates.Qualifiers, words[0]) && slices.Contains(p.Dates.Weekdays, words[1])
	default:
		return false
	}
}
