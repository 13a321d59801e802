package compose

import (
	"fmt"
	"slices"
	"strings"
)

// segment: either literal text or, when key is set, a {key} placeholder.
type segment struct {
	text string
	key  string
}

// parseTemplate: splits template into literal and placeholder segments.
// "{{" and "}}" are literal braces.
func parseTemplate(template string) ([]segment, error) {
	var (
		segments []segment
		literal  strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{text: literal.String()})
			literal.Reset()
		}
	}

	rest := template
	for rest != "" {
		i := strings.IndexAny(rest, "{}")
		if i < 0 {
			literal.WriteString(rest)
			break
		}
		literal.WriteString(rest[:i])
		brace, tail := rest[i], rest[i+1:]
		if tail != "" && tail[0] == brace {
			literal.WriteByte(brace)
			rest = tail[1:]
			continue
		}
		if brace == '}' {
			return nil, fmt.Errorf("template %q: unexpected '}'", template)
		}
		key, after, ok := strings.Cut(tail, "}")
		if !ok || key == "" {
			return nil, fmt.Errorf("template %q: unterminated placeholder", template)
		}
		flush()
		segments = append(segments, segment{key: key})
		rest = after
	}
	flush()
	return segments, nil
}

// fill: substitutes {key} placeholders in template with values.
func fill(template string, values map[string]string) (string, error) {
	segments, err := parseTemplate(template)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, seg := range segments {
		if seg.key == "" {
			out.WriteString(seg.text)
			continue
		}
		value, ok := values[seg.key]
		if !ok {
			return "", fmt.Errorf("template %q: no value for {%s}", template, seg.key)
		}
		out.WriteString(value)
	}
	return out.String(), nil
}

// checkPlaceholders: rejects a template that names a key outside allowed.
func checkPlaceholders(template string, allowed []string) error {
	segments, err := parseTemplate(template)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		if seg.key == "" {
			continue
		}
		if !slices.Contains(allowed, seg.key) {
			return fmt.Errorf("template %q: unknown placeholder {%s}", template, seg.key)
		}
	}
	return nil
}
