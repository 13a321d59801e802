package matcher

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tl-its-umich-edu/m-voice/internal/textutil"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

// Vocabulary: the read side of the reference lists.
type Vocabulary interface {
	Main(category vocabulary.Category) ([]string, error)
	Extras(category vocabulary.Category) ([]string, error)
}

// Result: outcome of resolving one slot value.
type Result struct {
	// Found is true when the term needs no disambiguation.
	Found bool
	// Suggestions lists the main entries containing a flagged partial term.
	Suggestions []string
	// Suggestion is the reply to surface when Found is false.
	Suggestion string
}

// Matcher: resolves free text against the vocabulary.
type Matcher struct {
	vocab  Vocabulary
	logger *slog.Logger
}

// New: creates a Matcher.
func New(vocab Vocabulary, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Matcher{vocab: vocab, logger: logger}
}

// Resolve: checks term against category.
//
// A term that is not listed in the category's extras is accepted as-is without consulting the
// main list. A listed partial term is answered with every main entry containing it.
func (m *Matcher) Resolve(term string, category vocabulary.Category) (Result, error) {
	extras, err := m.vocab.Extras(category)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", term, err)
	}
	if textutil.IndexFold(extras, term) < 0 {
		return Result{Found: true}, nil
	}

	main, err := m.vocab.Main(category)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", term, err)
	}

	suggestions := make([]string, 0, 4)
	needle := strings.TrimSpace(term)
	for _, entry := range main {
		if textutil.ContainsFold(entry, needle) {
			suggestions = append(suggestions, entry)
		}
	}

	if len(suggestions) == 0 {
		m.logger.Debug("partial_term_without_match", "term", term, "category", category)
		return Result{Suggestion: NotFoundText(category, needle)}, nil
	}
	return Result{Suggestions: suggestions, Suggestion: SuggestionText(suggestions)}, nil
}

// SuggestionText: renders "Did you mean X or Y?".
func SuggestionText(suggestions []string) string {
	return "Did you mean " + strings.Join(suggestions, " or ") + "?"
}

// NotFoundText: used when a partial term matches nothing in the main list.
func NotFoundText(category vocabulary.Category, term string) string {
	return fmt.Sprintf("Sorry, I couldn't find a %s called %s.", strings.ToLower(string(category)), term)
}
