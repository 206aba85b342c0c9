// Package paginate produces bounded views over a parsed chapter: previews,
// sliding verse windows, single verses and numbered button layouts.
//
// Everything outward-facing here is 1-based ("verse 3" is the third verse);
// zero-based slice positions never leave this package.
package paginate

import (
	"errors"
	"fmt"
	"strings"

	"zavit/text"
)

// WindowSize is the number of verses sent per navigation step. Button texts
// hard-code the same number, it is not configuration.
const WindowSize = 3

// ErrVerseOutOfRange is returned for verse numbers outside [1, VerseCount].
var ErrVerseOutOfRange = errors.New("verse number out of range")

// Preview is a chapter opening: title plus the first WindowSize verses.
type Preview struct {
	Title      string
	Content    string
	HasMore    bool
	VerseCount int
}

// MakePreview builds the fixed chapter preview.
func MakePreview(ch text.Chapter) Preview {
	return Preview{
		Title:      ch.FullTitle(),
		Content:    strings.Join(firstN(ch.Verses, WindowSize), "\n"),
		HasMore:    ch.VerseCount() > WindowSize,
		VerseCount: ch.VerseCount(),
	}
}

// Window is a contiguous WindowSize slice of a chapter's verses.
type Window struct {
	Verses      []string
	StartOffset int
	HasMore     bool
}

// MakeWindow slices WindowSize verses starting at offset. Offsets are the
// router's to keep legal - this function does not clamp and panics on a
// negative offset, that is a caller bug.
func MakeWindow(ch text.Chapter, offset int) Window {
	if offset < 0 {
		panic(fmt.Sprintf("paginate: negative window offset %d", offset))
	}
	var verses []string
	if offset < ch.VerseCount() {
		verses = firstN(ch.Verses[offset:], WindowSize)
	}
	return Window{
		Verses:      verses,
		StartOffset: offset,
		HasMore:     offset+WindowSize < ch.VerseCount(),
	}
}

// Content joins window verses for display.
func (w Window) Content() string {
	return strings.Join(w.Verses, "\n")
}

// VerseAt returns verse number n (1-based).
func VerseAt(ch text.Chapter, n int) (string, error) {
	if n < 1 || n > ch.VerseCount() {
		return "", fmt.Errorf("verse %d of %d: %w", n, ch.VerseCount(), ErrVerseOutOfRange)
	}
	return ch.Verses[n-1], nil
}

// LayoutButtons groups 1..count into rows: 5 per row for short chapters, 6
// above ten, 7 above twenty, so the keyboard stays a bounded number of rows
// however long the chapter is. count of 0 yields no rows at all - an empty
// row must never reach the chat transport.
func LayoutButtons(count int) [][]int {
	if count <= 0 {
		return nil
	}

	perRow := 5
	switch {
	case count > 20:
		perRow = 7
	case count > 10:
		perRow = 6
	}

	var rows [][]int
	row := make([]int, 0, perRow)
	for n := 1; n <= count; n++ {
		row = append(row, n)
		if len(row) == perRow {
			rows = append(rows, row)
			row = make([]int, 0, perRow)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func firstN(verses []string, n int) []string {
	if len(verses) < n {
		n = len(verses)
	}
	return verses[:n]
}
