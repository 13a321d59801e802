package vocabulary

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tl-its-umich-edu/m-voice/internal/textutil"
)

// Category: names a vocabulary whose values the NLU platform extracts as a slot.
type Category string

const (
	// Location is a dining hall or cafe.
	Location Category = "Location"
	// Meal is a meal period such as lunch.
	Meal Category = "Meal"
)

// ErrUnknownCategory: returned for any category other than Location or Meal.
var ErrUnknownCategory = errors.New("unknown vocabulary category")

// Categories: lists every category in a fixed order.
func Categories() []Category {
	return []Category{Location, Meal}
}

// ParseCategory: matches a category name case-insensitively.
func ParseCategory(name string) (Category, error) {
	for _, category := range Categories() {
		if textutil.EqualFold(name, string(category)) {
			return category, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

const ignoreFileName = "ignore.json"

// fileNames: maps a category to its main and extras reference files.
var fileNames = map[Category][2]string{
	Location: {"LocationMain.txt", "LocationExtra.txt"},
	Meal:     {"MealMain.txt", "MealExtra.txt"},
}

// Lists: holds the reference data of one category.
type Lists struct {
	// Main is the full canonical vocabulary.
	Main []string
	// Extras flags fragments that need disambiguation, e.g. "Quad".
	Extras []string
	// Ignored terms are skipped by change detection.
	Ignored []string
}

// Store: the immutable reference vocabulary. Safe for concurrent readers.
type Store struct {
	lists map[Category]Lists
}

// NewStore: builds a Store from in-memory lists.
func NewStore(lists map[Category]Lists) *Store {
	copied := make(map[Category]Lists, len(lists))
	for category, l := range lists {
		copied[category] = Lists{
			Main:    append([]string(nil), l.Main...),
			Extras:  append([]string(nil), l.Extras...),
			Ignored: append([]string(nil), l.Ignored...),
		}
	}
	return &Store{lists: copied}
}

// Load: reads the reference files from dir.
func Load(dir string) (*Store, error) {
	return LoadFS(os.DirFS(dir))
}

// LoadFS: reads the reference files from fsys.
func LoadFS(fsys fs.FS) (*Store, error) {
	ignored, err := loadIgnoreList(fsys)
	if err != nil {
		return nil, err
	}

	lists := make(map[Category]Lists, len(fileNames))
	for _, category := range Categories() {
		names := fileNames[category]
		main, err := readLines(fsys, names[0])
		if err != nil {
			return nil, fmt.Errorf("load %s main list: %w", category, err)
		}
		extras, err := readLines(fsys, names[1])
		if err != nil {
			return nil, fmt.Errorf("load %s extras list: %w", category, err)
		}
		lists[category] = Lists{Main: main, Extras: extras, Ignored: ignored[string(category)]}
	}
	return &Store{lists: lists}, nil
}

// Main: returns the canonical list of a category.
func (s *Store) Main(category Category) ([]string, error) {
	l, err := s.get(category)
	if err != nil {
		return nil, err
	}
	return l.Main, nil
}

// Extras: returns the partial-term list of a category.
func (s *Store) Extras(category Category) ([]string, error) {
	l, err := s.get(category)
	if err != nil {
		return nil, err
	}
	return l.Extras, nil
}

// Ignored: returns the change-detection ignore list of a category.
func (s *Store) Ignored(category Category) []string {
	l, err := s.get(category)
	if err != nil {
		return nil
	}
	return l.Ignored
}

// Size: reports the number of main entries per category.
func (s *Store) Size() map[Category]int {
	sizes := make(map[Category]int, len(s.lists))
	for category, l := range s.lists {
		sizes[category] = len(l.Main)
	}
	return sizes
}

func (s *Store) get(category Category) (Lists, error) {
	if s == nil {
		return Lists{}, errors.New("vocabulary store is nil")
	}
	l, ok := s.lists[category]
	if !ok {
		return Lists{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return l, nil
}

func readLines(fsys fs.FS, name string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	lines := make([]string, 0, bytes.Count(data, []byte("\n"))+1)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	return lines, nil
}

// loadIgnoreList: reads ignore.json ({"Location": [...], "Meal": [...]}). A missing file means
// nothing is ignored.
func loadIgnoreList(fsys fs.FS) (map[string][]string, error) {
	data, err := fs.ReadFile(fsys, ignoreFileName)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ignore list: %w", err)
	}

	var ignored map[string][]string
	if err := json.Unmarshal(data, &ignored); err != nil {
		return nil, fmt.Errorf("unmarshal ignore list: %w", err)
	}
	return ignored, nil
}
