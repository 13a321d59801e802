package compose

import (
	"fmt"
	"strings"

	"github.com/tl-its-umich-edu/m-voice/internal/filter"
	"github.com/tl-its-umich-edu/m-voice/internal/textutil"
)

const (
	// NotAvailable is the fixed negative sentence.
	NotAvailable = "Sorry, that is not available"
	// MealPlaceholder marks where the caller splices the meal or item name.
	MealPlaceholder = "[meal]"

	mealJoiner = " during "
)

// FormatPlural: inserts "and " after the last comma: "a, b, c" -> "a, b, and c".
func FormatPlural(text string) string {
	idx := strings.LastIndex(text, ",")
	if idx < 0 {
		return text
	}
	idx = min(idx+2, len(text))
	return text[:idx] + "and " + text[idx:]
}

// CollapseRedundantSuffix: drops the " during <meal>" suffix of an entry when the next entry
// names the same meal: ["X during lunch", "Y during lunch"] -> ["X", "Y during lunch"].
// Meals may span several words ("late night"). The input is not modified.
func CollapseRedundantSuffix(matches []string) []string {
	out := make([]string, len(matches))
	copy(out, matches)
	for i := 1; i < len(matches); i++ {
		suffix := mealSuffix(matches[i])
		if suffix != "" && suffix == mealSuffix(matches[i-1]) {
			out[i-1] = strings.TrimSuffix(out[i-1], suffix)
		}
	}
	return out
}

// mealSuffix: returns the trailing " during <meal>" of entry, or "" when it has none.
func mealSuffix(entry string) string {
	idx := strings.LastIndex(entry, mealJoiner)
	if idx < 0 || idx+len(mealJoiner) == len(entry) {
		return ""
	}
	return entry[idx:]
}

// DateRef: the requested date: Date is YYYY-MM-DD and Original is what the user said.
type DateRef struct {
	Date     string
	Original string
}

// Composer: renders reply sentences from the embedded phrase table.
type Composer struct {
	phrases *phraseTable
}

// New: loads the embedded phrase table.
func New() (*Composer, error) {
	table, err := parsePhrases(phrasesYAML)
	if err != nil {
		return nil, err
	}
	return &Composer{phrases: table}, nil
}

// ApplyRequisites: adds trait and allergen clauses to text. When text contains NotAvailable
// the sentence is rebuilt as "Sorry, {traits} [meal]{allergens} is not available" and the
// caller substitutes MealPlaceholder.
func (c *Composer) ApplyRequisites(text string, req filter.Requisites) string {
	traits := c.joinCodes(req.Traits, c.phrases.trait)
	allergens := strings.ReplaceAll(c.joinCodes(req.Allergens, c.phrases.allergen), ", and ", ", or ")

	allergenClause := ""
	if allergens != "" {
		allergenClause = " without " + allergens
	}

	if (traits != "" || allergens != "") && strings.Contains(text, NotAvailable) {
		subject := strings.TrimSpace(traits + " " + MealPlaceholder)
		return strings.Replace(text, NotAvailable, "Sorry, "+subject+allergenClause+" is not available", 1)
	}

	traitClause := ""
	if traits != "" {
		traitClause = " that is " + traits
	}
	return text + traitClause + allergenClause
}

func (c *Composer) joinCodes(codes []string, name func(string) string) string {
	names := make([]string, 0, len(codes))
	for _, code := range codes {
		if code = strings.TrimSpace(code); code != "" {
			names = append(names, name(code))
		}
	}
	return FormatPlural(strings.Join(names, ", "))
}

// DatePrefix: returns the capitalised informal reference ("Tomorrow"), "On <date>", or "" when
// neither is known.
func (c *Composer) DatePrefix(ref DateRef) string {
	if original := strings.TrimSpace(ref.Original); original != "" && c.phrases.informal(original) {
		return textutil.UpperFirst(original)
	}
	if ref.Date != "" {
		return "On " + ref.Date
	}
	return ""
}

// dateSuffix: the lower-cased form of DatePrefix with a leading space, for negative sentences.
func (c *Composer) dateSuffix(ref DateRef) string {
	prefix := c.DatePrefix(ref)
	if prefix == "" {
		return ""
	}
	return " " + strings.ToLower(prefix)
}

// notAvailable: renders the negative opening with requisites spliced in and the placeholder
// replaced by subject.
func (c *Composer) notAvailable(subject string, req filter.Requisites) string {
	template := "Sorry, " + MealPlaceholder + " is not available"
	if !req.IsEmpty() {
		template = c.ApplyRequisites(NotAvailable, req)
	}
	return strings.Replace(template, MealPlaceholder, subject, 1)
}

// MealSentence: answers a location and meal request. items is the inline item list; an empty
// list yields the negative sentence.
func (c *Composer) MealSentence(items, location, meal string, date DateRef, req filter.Requisites) (string, error) {
	meal = strings.ToLower(meal)
	if strings.TrimSpace(items) == "" {
		return fill(c.phrases.Templates["not_available"], map[string]string{
			"reason":   c.notAvailable(meal, req),
			"location": location,
			"when":     c.dateSuffix(date),
		})
	}

	values := map[string]string{
		"items":    c.ApplyRequisites(FormatPlural(items), req),
		"location": location,
		"meal":     meal,
	}
	prefix := c.DatePrefix(date)
	if prefix == "" {
		return fill(c.phrases.Templates["meal_available"], values)
	}
	values["prefix"] = prefix
	return fill(c.phrases.Templates["meal_available_dated"], values)
}

// ItemSentence: answers an item request from the matched candidates.
func (c *Composer) ItemSentence(matches []filter.Candidate, item, location, meal string, date DateRef, req filter.Requisites) (string, error) {
	if len(matches) == 0 {
		where := location
		if meal != "" {
			where += " during " + strings.ToLower(meal)
		}
		return fill(c.phrases.Templates["not_available"], map[string]string{
			"reason":   c.notAvailable(item, req),
			"location": where,
			"when":     c.dateSuffix(date),
		})
	}

	list := strings.Join(CollapseRedundantSuffix(filter.Strings(matches)), ", ")
	sentence, err := fill(c.phrases.Templates["item_found"], map[string]string{
		"items": c.ApplyRequisites(FormatPlural(list), req),
	})
	if err != nil {
		return "", fmt.Errorf("compose item sentence: %w", err)
	}
	return sentence, nil
}
