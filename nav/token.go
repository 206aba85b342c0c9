package nav

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates navigation actions a button can carry.
type Kind int

const (
	KindHome Kind = iota
	KindBookList
	KindSelectBook
	KindSelectChapter
	KindFullChapter
	KindReferences
	KindNextVerses
	KindPrevVerses
	KindSelectVerse
	KindCommentary
)

func (k Kind) String() string {
	switch k {
	case KindHome:
		return "home"
	case KindBookList:
		return "book-list"
	case KindSelectBook:
		return "select-book"
	case KindSelectChapter:
		return "select-chapter"
	case KindFullChapter:
		return "full-chapter"
	case KindReferences:
		return "references"
	case KindNextVerses:
		return "next-verses"
	case KindPrevVerses:
		return "prev-verses"
	case KindSelectVerse:
		return "select-verse"
	case KindCommentary:
		return "commentary"
	}
	return "unknown"
}

// Token is the decoded form of a callback payload. The wire format keeps
// the historical underscore shape ("chapter_12", "next_verses_12_6", ...)
// so keyboards in old chats keep working; this codec is the only place the
// format is known.
type Token struct {
	Kind         Kind
	ChapterIndex int
	Offset       int // current window start for verse paging
	VerseNumber  int // 1-based
	VerseCount   int // commentary only: how many verses starting at Offset
	BookOrdinal  int // position in the displayed table of contents, 0 is front matter
}

// wire payload prefixes
const (
	wireHome       = "main_menu"
	wireBookList   = "back_to_toc"
	wireBook       = "book_"
	wireChapter    = "chapter_"
	wireFull       = "full_"
	wireReferences = "references_"
	wireNextVerses = "next_verses_"
	wirePrevVerses = "prev_verses_"
	wireVerse      = "verse_"
	// the historical commentary prefix carried only a chapter; the verse
	// range travels in the payload now because nothing else remembers which
	// verses the reader was looking at
	wireCommentary = "barclay_comments_"
)

// Encode renders the token in wire form.
func (t Token) Encode() string {
	switch t.Kind {
	case KindHome:
		return wireHome
	case KindBookList:
		return wireBookList
	case KindSelectBook:
		return wireBook + strconv.Itoa(t.BookOrdinal)
	case KindSelectChapter:
		return wireChapter + strconv.Itoa(t.ChapterIndex)
	case KindFullChapter:
		return wireFull + strconv.Itoa(t.ChapterIndex)
	case KindReferences:
		return wireReferences + strconv.Itoa(t.ChapterIndex)
	case KindNextVerses:
		return wireNextVerses + strconv.Itoa(t.ChapterIndex) + "_" + strconv.Itoa(t.Offset)
	case KindPrevVerses:
		return wirePrevVerses + strconv.Itoa(t.ChapterIndex) + "_" + strconv.Itoa(t.Offset)
	case KindSelectVerse:
		return wireVerse + strconv.Itoa(t.ChapterIndex) + "_" + strconv.Itoa(t.VerseNumber)
	case KindCommentary:
		return wireCommentary + strconv.Itoa(t.ChapterIndex) + "_" + strconv.Itoa(t.Offset) + "_" + strconv.Itoa(t.VerseCount)
	}
	return ""
}

// ParseToken decodes a wire payload. Unknown or malformed payloads are
// errors - they can only come from a caller bug or a foreign keyboard.
func ParseToken(data string) (Token, error) {
	switch {
	case data == wireHome:
		return Token{Kind: KindHome}, nil
	case data == wireBookList:
		return Token{Kind: KindBookList}, nil
	case strings.HasPrefix(data, wireBook):
		ord, err := parseInts(data, wireBook, 1)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindSelectBook, BookOrdinal: ord[0]}, nil
	case strings.HasPrefix(data, wireChapter):
		ci, err := parseInts(data, wireChapter, 1)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindSelectChapter, ChapterIndex: ci[0]}, nil
	case strings.HasPrefix(data, wireFull):
		ci, err := parseInts(data, wireFull, 1)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindFullChapter, ChapterIndex: ci[0]}, nil
	case strings.HasPrefix(data, wireReferences):
		ci, err := parseInts(data, wireReferences, 1)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindReferences, ChapterIndex: ci[0]}, nil
	case strings.HasPrefix(data, wireNextVerses):
		args, err := parseInts(data, wireNextVerses, 2)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindNextVerses, ChapterIndex: args[0], Offset: args[1]}, nil
	case strings.HasPrefix(data, wirePrevVerses):
		args, err := parseInts(data, wirePrevVerses, 2)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindPrevVerses, ChapterIndex: args[0], Offset: args[1]}, nil
	case strings.HasPrefix(data, wireVerse):
		args, err := parseInts(data, wireVerse, 2)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindSelectVerse, ChapterIndex: args[0], VerseNumber: args[1]}, nil
	case strings.HasPrefix(data, wireCommentary):
		args, err := parseInts(data, wireCommentary, 3)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindCommentary, ChapterIndex: args[0], Offset: args[1], VerseCount: args[2]}, nil
	}
	return Token{}, fmt.Errorf("unknown action payload %q", data)
}

func parseInts(data, prefix string, want int) ([]int, error) {
	parts := strings.Split(strings.TrimPrefix(data, prefix), "_")
	if len(parts) != want {
		return nil, fmt.Errorf("malformed action payload %q: want %d arguments", data, want)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("malformed action payload %q: %w", data, err)
		}
		out[i] = n
	}
	return out, nil
}
