package textutil

import (
	"strings"
	"unicode"

	"github.com/forPelevin/gomoji"
	"github.com/mtibben/confusables"
	"golang.org/x/text/unicode/norm"
)

// CleanInput: normalises a free-text slot value typed or spoken by a user: emoji are dropped,
// look-alike letters are mapped to their ASCII skeleton and whitespace is collapsed.
func CleanInput(text string) string {
	if text == "" {
		return ""
	}
	if gomoji.ContainsEmoji(text) {
		text = gomoji.RemoveEmojis(text)
	}
	if !isASCIIOnly(text) {
		text = skeletonNonASCII(norm.NFC.String(text))
	}
	return strings.Join(strings.Fields(text), " ")
}

func isASCIIOnly(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// skeletonNonASCII: only rewrites non-ASCII runes; plain ASCII sequences such as "rn" stay intact.
func skeletonNonASCII(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if r <= unicode.MaxASCII {
			builder.WriteRune(r)
			continue
		}
		folded := norm.NFKC.String(string(r))
		if isASCIIOnly(folded) {
			builder.WriteString(folded)
			continue
		}
		builder.WriteString(confusables.Skeleton(folded))
	}
	return builder.String()
}
