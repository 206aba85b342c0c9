// Package text turns raw chapter HTML of the edition into structured verse
// records and separates trailing reference blocks from the body.
package text

import (
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

// chapterMarker is the localized word opening every chapter title line.
const chapterMarker = "Розділ"

// Chapter is a parsed chapter: title, optional subtitle and ordered verses.
// Verse N is Verses[N-1]; the leading verse number stays part of the verse
// text. HasContent is the only signal that parsing produced anything - an
// empty chapter is not an error.
type Chapter struct {
	Title      string
	Subtitle   string
	Verses     []string
	HasContent bool
}

var collapseNewlines = regexp.MustCompile(`\n\s*\n\s*\n+`)

// HTMLToText converts chapter HTML to plain text keeping paragraph and line
// breaks: <br> and closing </p> become newlines, every other tag is dropped,
// runs of three and more newlines collapse to two.
func HTMLToText(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	l := html.NewLexer(parse.NewInputString(raw))
	for {
		tt, data := l.Next()
		switch tt {
		case html.ErrorToken:
			// lexer recovers from any malformed markup, ErrorToken means EOF;
			// keep whatever text was produced either way
			return strings.TrimSpace(collapseNewlines.ReplaceAllString(b.String(), "\n\n"))
		case html.StartTagToken, html.StartTagVoidToken:
			if strings.EqualFold(string(l.Text()), "br") {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			if strings.EqualFold(string(l.Text()), "p") {
				b.WriteByte('\n')
			}
		case html.TextToken:
			b.Write(data)
		}
	}
}

// ParseHTML is the full extraction pipeline for one chapter.
func ParseHTML(raw string) Chapter {
	return ParseChapter(HTMLToText(raw))
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

// ParseChapter splits normalized chapter text into title, subtitle and
// verses. A line containing the chapter marker is the title; the next line
// is the subtitle when it is neither a verse nor another marker. From there
// every digit-prefixed line opens a verse and following plain lines are
// glued to it - that is how verses wrapped over several source lines are
// reassembled.
func ParseChapter(plain string) Chapter {
	var lines []string
	for _, ln := range strings.Split(plain, "\n") {
		if ln = strings.TrimSpace(ln); len(ln) > 0 {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return Chapter{}
	}

	var (
		title, subtitle string
		contentStart    int
	)
	for i, line := range lines {
		if strings.Contains(line, chapterMarker) {
			title = line
			contentStart = i + 1
			if i+1 < len(lines) {
				next := lines[i+1]
				if !startsWithDigit(next) && !strings.Contains(next, chapterMarker) {
					subtitle = next
					contentStart = i + 2
				}
			}
			break
		} else if i == 0 && len(title) == 0 {
			// no marker seen yet - provisionally use the first line,
			// a marker later in the chapter still takes over
			title = line
			contentStart = 1
		}
	}

	var (
		verses  []string
		current string
	)
	for _, line := range lines[contentStart:] {
		switch {
		case startsWithDigit(line):
			if len(current) > 0 {
				verses = append(verses, current)
			}
			current = line
		case len(current) > 0:
			current += " " + line
		}
	}
	if len(current) > 0 {
		verses = append(verses, current)
	}

	return Chapter{
		Title:      title,
		Subtitle:   subtitle,
		Verses:     verses,
		HasContent: len(verses) > 0,
	}
}

// FullTitle joins title and subtitle the way views render chapter headers.
func (c Chapter) FullTitle() string {
	if len(c.Subtitle) > 0 {
		return c.Title + "\n" + c.Subtitle
	}
	return c.Title
}

// VerseCount returns the number of parsed verses.
func (c Chapter) VerseCount() int {
	return len(c.Verses)
}
