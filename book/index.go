// Package book maps flat spine positions onto named books of the edition.
//
// The whole book table lives in one embedded YAML document and is parsed
// exactly once. No other package is allowed to keep its own copy of the
// range numbers - historically scattered copies of this table drifting out
// of sync were the single biggest source of wrong-book bugs.
package book

import (
	"bytes"
	_ "embed"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

//go:embed books.yaml
var booksTable []byte

// Range describes a contiguous run of spine positions belonging to one book.
type Range struct {
	Title        string `yaml:"title"`
	StartIndex   int    `yaml:"start_index"`
	ChapterCount int    `yaml:"chapter_count"`
}

func (r Range) contains(chapterIndex int) bool {
	return chapterIndex >= r.StartIndex && chapterIndex < r.StartIndex+r.ChapterCount
}

// Location ties a resolved book to the spine position it was resolved from.
// ChapterInBook is always derived and never stored on its own.
type Location struct {
	Book          Range
	ChapterIndex  int
	ChapterInBook int
}

// Index is an immutable ordered book table, safe for concurrent use.
type Index struct {
	ranges []Range
}

type tableFile struct {
	Books []Range `yaml:"books"`
}

// Load parses the embedded book table and validates its shape.
func Load() (*Index, error) {
	dec := yaml.NewDecoder(bytes.NewReader(booksTable))
	dec.KnownFields(true)

	var tf tableFile
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("unable to decode book table: %w", err)
	}
	if len(tf.Books) == 0 {
		return nil, fmt.Errorf("book table is empty")
	}

	for i, r := range tf.Books {
		if len(r.Title) == 0 {
			return nil, fmt.Errorf("book %d has no title", i)
		}
		if r.StartIndex < 0 {
			return nil, fmt.Errorf("book %q has negative start index %d", r.Title, r.StartIndex)
		}
		if r.ChapterCount < 1 {
			return nil, fmt.Errorf("book %q has non-positive chapter count %d", r.Title, r.ChapterCount)
		}
		if i > 0 {
			prev := tf.Books[i-1]
			if r.StartIndex < prev.StartIndex+prev.ChapterCount {
				return nil, fmt.Errorf("book %q (start %d) overlaps %q", r.Title, r.StartIndex, prev.Title)
			}
		}
	}
	return &Index{ranges: tf.Books}, nil
}

// FindBook resolves a flat chapter index to the book containing it. The
// second return is false for front matter positions which belong to no book -
// callers must branch on it, there is no default book.
func (x *Index) FindBook(chapterIndex int) (Location, bool) {
	for _, r := range x.ranges {
		if r.contains(chapterIndex) {
			return Location{
				Book:          r,
				ChapterIndex:  chapterIndex,
				ChapterInBook: chapterIndex - r.StartIndex + 1,
			}, true
		}
	}
	return Location{}, false
}

// ByOrdinal returns the book at a 1-based table-of-contents position.
// Ordinal 0 is reserved for front matter and is reported as not found here,
// use ByOrdinalOrFront when defaulting is actually wanted.
func (x *Index) ByOrdinal(ordinal int) (Range, bool) {
	if ordinal < 1 || ordinal > len(x.ranges) {
		return Range{}, false
	}
	return x.ranges[ordinal-1], true
}

// ByOrdinalOrFront is the explicit opt-in for callers that want the supplied
// front-matter stand-in when the ordinal does not name a book.
func (x *Index) ByOrdinalOrFront(ordinal int, front Range) Range {
	if r, ok := x.ByOrdinal(ordinal); ok {
		return r
	}
	return front
}

// FirstChapterOf returns the spine position of the first chapter of the book
// at the given 1-based ordinal.
func (x *Index) FirstChapterOf(ordinal int) (int, bool) {
	r, ok := x.ByOrdinal(ordinal)
	if !ok {
		return 0, false
	}
	return r.StartIndex, true
}

// Books returns a copy of the table in display order.
func (x *Index) Books() []Range {
	return append([]Range(nil), x.ranges...)
}

// Count returns the number of books in the table.
func (x *Index) Count() int {
	return len(x.ranges)
}
