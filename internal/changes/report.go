package changes

import (
	"strings"
	"time"

	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

const (
	upToDateText = "Location and meal vocabularies are up to date."
	changedText  = "The dining vocabularies changed upstream. Update the reference lists and the agent entities."
)

// CategoryDiff: the drift of one category.
type CategoryDiff struct {
	Category vocabulary.Category `json:"category"`
	Added    []string            `json:"added"`
	Removed  []string            `json:"removed"`
}

// Report: the result of one change-detection run.
type Report struct {
	CheckedAt time.Time      `json:"checked_at"`
	Diffs     []CategoryDiff `json:"diffs"`
	Notified  bool           `json:"notified"`
}

// HasChanges: reports whether any category drifted.
func (r Report) HasChanges() bool {
	for _, d := range r.Diffs {
		if len(d.Added) > 0 || len(d.Removed) > 0 {
			return true
		}
	}
	return false
}

// Text: summarises the report in one sentence.
func (r Report) Text() string {
	if r.HasChanges() {
		return changedText
	}
	return upToDateText
}

// Attachment: one titled section of a notification.
type Attachment struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Attachments: lists the non-empty added and removed sections, location before meal.
func (r Report) Attachments() []Attachment {
	out := make([]Attachment, 0, len(r.Diffs)*2)
	for _, d := range r.Diffs {
		if len(d.Added) > 0 {
			out = append(out, Attachment{Title: "New " + string(d.Category) + " entries", Text: strings.Join(d.Added, "\n")})
		}
		if len(d.Removed) > 0 {
			out = append(out, Attachment{Title: "Removed " + string(d.Category) + " entries", Text: strings.Join(d.Removed, "\n")})
		}
	}
	return out
}
