package nav

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	tests := []Token{
		{Kind: KindHome},
		{Kind: KindBookList},
		{Kind: KindSelectBook, BookOrdinal: 0},
		{Kind: KindSelectBook, BookOrdinal: 7},
		{Kind: KindSelectChapter, ChapterIndex: 5},
		{Kind: KindFullChapter, ChapterIndex: 12},
		{Kind: KindReferences, ChapterIndex: 266},
		{Kind: KindNextVerses, ChapterIndex: 12, Offset: 6},
		{Kind: KindPrevVerses, ChapterIndex: 12, Offset: 3},
		{Kind: KindSelectVerse, ChapterIndex: 30, VerseNumber: 17},
		{Kind: KindCommentary, ChapterIndex: 30, Offset: 6, VerseCount: 3},
	}
	for _, want := range tests {
		wire := want.Encode()
		got, err := ParseToken(wire)
		if err != nil {
			t.Fatalf("ParseToken(%q): %v", wire, err)
		}
		if got != want {
			t.Errorf("round trip via %q: got %+v, want %+v", wire, got, want)
		}
	}
}

func TestTokenWireFormat(t *testing.T) {
	tests := []struct {
		tok  Token
		wire string
	}{
		{Token{Kind: KindHome}, "main_menu"},
		{Token{Kind: KindBookList}, "back_to_toc"},
		{Token{Kind: KindSelectBook, BookOrdinal: 3}, "book_3"},
		{Token{Kind: KindSelectChapter, ChapterIndex: 12}, "chapter_12"},
		{Token{Kind: KindFullChapter, ChapterIndex: 12}, "full_12"},
		{Token{Kind: KindReferences, ChapterIndex: 12}, "references_12"},
		{Token{Kind: KindNextVerses, ChapterIndex: 12, Offset: 6}, "next_verses_12_6"},
		{Token{Kind: KindPrevVerses, ChapterIndex: 12, Offset: 6}, "prev_verses_12_6"},
		{Token{Kind: KindSelectVerse, ChapterIndex: 12, VerseNumber: 4}, "verse_12_4"},
		{Token{Kind: KindCommentary, ChapterIndex: 12, Offset: 3, VerseCount: 3}, "barclay_comments_12_3_3"},
	}
	for _, tc := range tests {
		if got := tc.tok.Encode(); got != tc.wire {
			t.Errorf("%v: got %q, want %q", tc.tok.Kind, got, tc.wire)
		}
	}
}

func TestParseTokenMalformed(t *testing.T) {
	for _, data := range []string{
		"",
		"bogus",
		"chapter_",
		"chapter_xyz",
		"chapter_1_2",
		"next_verses_5",
		"next_verses_5_x",
		"verse_12",
		"book_one",
		"barclay_comments_12",
		"barclay_comments_12_3",
	} {
		if _, err := ParseToken(data); err == nil {
			t.Errorf("ParseToken(%q): expected error", data)
		}
	}
}
