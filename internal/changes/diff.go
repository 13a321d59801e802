package changes

import (
	"github.com/tl-its-umich-edu/m-voice/internal/textutil"
)

// RemoveIgnored: returns list without the entries named in ignored, compared case-insensitively.
func RemoveIgnored(list, ignored []string) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if textutil.IndexFold(ignored, entry) >= 0 {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Diff: returns the live entries missing from stored and the stored entries missing from live,
// each in its source order and original spelling. Entries are compared case-insensitively.
func Diff(stored, live []string) (added, removed []string) {
	storedSet := foldSet(stored)
	liveSet := foldSet(live)

	added = []string{}
	for _, l := range live {
		if _, ok := storedSet[textutil.Fold(l)]; !ok {
			added = append(added, l)
		}
	}
	removed = []string{}
	for _, s := range stored {
		if _, ok := liveSet[textutil.Fold(s)]; !ok {
			removed = append(removed, s)
		}
	}
	return added, removed
}

func foldSet(entries []string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[textutil.Fold(e)] = struct{}{}
	}
	return set
}
