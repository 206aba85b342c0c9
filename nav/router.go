// Package nav is the navigation core: a pure state-transition router from
// (state, action) to (view, state). It owns the menu graph and the action
// payload codec; parsing and pagination are delegated, wording lives in
// messages.go.
package nav

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"zavit/book"
	"zavit/epub"
	"zavit/paginate"
	"zavit/text"
)

// ChapterSource produces raw chapter HTML by flat spine position. It must
// be idempotent - the router never retries, a deterministic source cannot
// produce a different answer the second time.
type ChapterSource interface {
	ChapterHTML(index int) (string, error)
	TotalChapters() int
}

// ContentsSource supplies top-level titles for the "choose a book" menu.
// It is display-only: range arithmetic always comes from the book table,
// the two are reconciled solely at the point of user selection.
type ContentsSource interface {
	TopLevelTitles() []string
}

// Router encodes the menu graph. It holds no per-user state - State is
// passed in and returned on every call.
type Router struct {
	src   ChapterSource
	toc   ContentsSource
	books *book.Index
	log   *zap.Logger
}

func NewRouter(src ChapterSource, toc ContentsSource, books *book.Index, log *zap.Logger) *Router {
	return &Router{src: src, toc: toc, books: books, log: log}
}

// Route computes the next view for a user action. Domain failures (missing
// content, out-of-range numbers, extraction errors) come back as renderable
// views, never as errors; an error here means a caller bug.
func (r *Router) Route(st State, tok Token) (View, State, error) {
	switch tok.Kind {
	case KindHome:
		return r.Home(), st, nil
	case KindBookList:
		return r.BookList(), st, nil
	case KindSelectBook:
		return r.chapterList(tok.BookOrdinal), st, nil
	case KindSelectChapter:
		v, ok := r.chapterPreview(tok.ChapterIndex)
		return v, advance(st, tok.ChapterIndex, ok), nil
	case KindNextVerses:
		// payloads come straight from the wire, a forged offset must not
		// reach the paginator
		v, ok := r.verseWindow(tok.ChapterIndex, max(0, tok.Offset)+paginate.WindowSize)
		return v, advance(st, tok.ChapterIndex, ok), nil
	case KindPrevVerses:
		v, ok := r.verseWindow(tok.ChapterIndex, max(0, max(0, tok.Offset)-paginate.WindowSize))
		return v, advance(st, tok.ChapterIndex, ok), nil
	case KindSelectVerse:
		v, ok := r.singleVerse(tok.ChapterIndex, tok.VerseNumber)
		return v, advance(st, tok.ChapterIndex, ok), nil
	case KindFullChapter:
		v, ok := r.fullChapter(tok.ChapterIndex)
		return v, advance(st, tok.ChapterIndex, ok), nil
	case KindReferences:
		v, ok := r.references(tok.ChapterIndex)
		return v, advance(st, tok.ChapterIndex, ok), nil
	}
	return View{}, st, fmt.Errorf("unroutable action kind %v", tok.Kind)
}

// advance moves the reading position only when the chapter actually loaded,
// so a forged index never gets persisted as the current chapter.
func advance(st State, chapterIndex int, loaded bool) State {
	if !loaded {
		return st
	}
	return st.WithChapter(chapterIndex)
}

// Home is the entry view, also used for /start.
func (r *Router) Home() View {
	rows := [][]Button{}
	if first, ok := r.books.FirstChapterOf(1); ok {
		label := lblStartReading
		if b, ok := r.books.ByOrdinal(1); ok {
			label = "📖 " + b.Title + " - Розділ 1"
		}
		rows = appendRow(rows, []Button{btn(label, Token{Kind: KindSelectChapter, ChapterIndex: first})})
	}
	rows = appendRow(rows, []Button{btn(lblContents, Token{Kind: KindBookList})})
	return View{Text: msgHome, ButtonRows: rows}
}

// BookList renders the "choose a book" menu from the table of contents,
// two titles per row. Button ordinals are positions in the displayed list -
// resolving them against the range table happens on selection.
func (r *Router) BookList() View {
	titles := r.toc.TopLevelTitles()
	startOrdinal := 0 // TOC enumerations begin with front matter
	if len(titles) == 0 {
		// no navigation document - the book table itself is the display list
		for _, b := range r.books.Books() {
			titles = append(titles, b.Title)
		}
		startOrdinal = 1
	}

	var rows [][]Button
	var row []Button
	for i, title := range titles {
		row = append(row, btn(title, Token{Kind: KindSelectBook, BookOrdinal: startOrdinal + i}))
		if len(row) == 2 {
			rows = appendRow(rows, row)
			row = nil
		}
	}
	rows = appendRow(rows, row)
	rows = appendRow(rows, []Button{btn(lblMainMenu, Token{Kind: KindHome})})
	return View{Text: msgChooseBook, ButtonRows: rows}
}

// chapterList renders numbered chapter buttons for one book.
func (r *Router) chapterList(ordinal int) View {
	b, ok := r.books.ByOrdinal(ordinal)
	if !ok {
		// front matter or a stale keyboard - an explicit view, never a
		// silent fallback to the first book
		return View{Text: msgNoBook, ButtonRows: r.globalRows()}
	}

	var rows [][]Button
	for _, nums := range paginate.LayoutButtons(b.ChapterCount) {
		row := make([]Button, 0, len(nums))
		for _, n := range nums {
			row = append(row, btn(strconv.Itoa(n), Token{Kind: KindSelectChapter, ChapterIndex: b.StartIndex + n - 1}))
		}
		rows = appendRow(rows, row)
	}
	rows = appendRow(rows, []Button{btn(lblBackToToc, Token{Kind: KindBookList})})
	return View{Text: "📖 " + b.Title + ":", ButtonRows: rows}
}

// chapterData is one chapter put through the full extraction pipeline:
// references separated first, verses parsed from the main text only.
type chapterData struct {
	chapter   text.Chapter
	processed text.Processed
}

func (r *Router) loadChapter(chapterIndex int) (chapterData, View, bool) {
	raw, err := r.src.ChapterHTML(chapterIndex)
	if err != nil {
		if errors.Is(err, epub.ErrChapterIndexOutOfRange) {
			return chapterData{}, View{Text: msgChapterNotFound, ButtonRows: r.globalRows()}, false
		}
		r.log.Error("Chapter extraction failed", zap.Int("chapter", chapterIndex), zap.Error(err))
		return chapterData{}, View{Text: msgLoadFailed, ButtonRows: r.globalRows()}, false
	}

	processed := text.ProcessContent(text.HTMLToText(raw), text.Options{IncludeReferences: true, CleanInline: false})
	return chapterData{
		chapter:   text.ParseChapter(processed.MainText),
		processed: processed,
	}, View{}, true
}

func (r *Router) chapterPreview(chapterIndex int) (View, bool) {
	cd, errView, ok := r.loadChapter(chapterIndex)
	if !ok {
		return errView, false
	}
	if !cd.chapter.HasContent {
		return r.noContentView(chapterIndex), true
	}

	p := paginate.MakePreview(cd.chapter)

	var rows [][]Button
	if p.HasMore {
		rows = appendRow(rows, []Button{btn(lblNextVerses, Token{Kind: KindNextVerses, ChapterIndex: chapterIndex, Offset: 0})})
	}
	rows = appendRow(rows, r.actionRow(chapterIndex, p.HasMore, cd.processed.HasReferences))
	rows = appendRow(rows, r.chapterNavRow(chapterIndex))
	for _, nums := range paginate.LayoutButtons(p.VerseCount) {
		row := make([]Button, 0, len(nums))
		for _, n := range nums {
			row = append(row, btn(strconv.Itoa(n), Token{Kind: KindSelectVerse, ChapterIndex: chapterIndex, VerseNumber: n}))
		}
		rows = appendRow(rows, row)
	}
	rows = append(rows, r.globalRows()...)

	return View{Text: "*" + p.Title + "*\n\n" + p.Content, Markdown: true, ButtonRows: rows}, true
}

func (r *Router) verseWindow(chapterIndex, offset int) (View, bool) {
	cd, errView, ok := r.loadChapter(chapterIndex)
	if !ok {
		return errView, false
	}
	if !cd.chapter.HasContent {
		return r.noContentView(chapterIndex), true
	}

	// legal offsets are [0, verseCount); the paginator itself never clamps
	if count := cd.chapter.VerseCount(); offset >= count {
		offset = max(0, count-1)
	}

	w := paginate.MakeWindow(cd.chapter, offset)

	var verseNav []Button
	if offset > 0 {
		verseNav = append(verseNav, btn(lblPrevVerses, Token{Kind: KindPrevVerses, ChapterIndex: chapterIndex, Offset: offset}))
	}
	if w.HasMore {
		verseNav = append(verseNav, btn(lblNextVerses, Token{Kind: KindNextVerses, ChapterIndex: chapterIndex, Offset: offset}))
	}

	var rows [][]Button
	rows = appendRow(rows, r.commentaryRow(chapterIndex, offset, len(w.Verses)))
	rows = appendRow(rows, verseNav)
	rows = appendRow(rows, r.actionRow(chapterIndex, w.HasMore, cd.processed.HasReferences))
	rows = appendRow(rows, r.chapterNavRow(chapterIndex))
	rows = append(rows, r.globalRows()...)

	return View{Text: "*" + cd.chapter.FullTitle() + "*\n\n" + w.Content(), Markdown: true, ButtonRows: rows}, true
}

func (r *Router) singleVerse(chapterIndex, verseNumber int) (View, bool) {
	cd, errView, ok := r.loadChapter(chapterIndex)
	if !ok {
		return errView, false
	}
	if !cd.chapter.HasContent {
		return r.noContentView(chapterIndex), true
	}

	verse, err := paginate.VerseAt(cd.chapter, verseNumber)
	if err != nil {
		return View{Text: fmt.Sprintf(msgVerseNotFound, verseNumber), ButtonRows: r.globalRows()}, true
	}

	// verse paging from a single verse starts at the verse's own offset
	offset := verseNumber - 1

	var verseNav []Button
	if offset > 0 {
		verseNav = append(verseNav, btn(lblPrevVerses, Token{Kind: KindPrevVerses, ChapterIndex: chapterIndex, Offset: offset}))
	}
	if offset+paginate.WindowSize < cd.chapter.VerseCount() {
		verseNav = append(verseNav, btn(lblNextVerses, Token{Kind: KindNextVerses, ChapterIndex: chapterIndex, Offset: offset}))
	}

	var rows [][]Button
	rows = appendRow(rows, r.commentaryRow(chapterIndex, offset, 1))
	rows = appendRow(rows, []Button{btn(lblFullChapter, Token{Kind: KindSelectChapter, ChapterIndex: chapterIndex})})
	rows = appendRow(rows, verseNav)
	rows = appendRow(rows, r.chapterNavRow(chapterIndex))
	rows = append(rows, r.globalRows()...)

	return View{
		Text:       "*" + lblVersePrefix + " " + strconv.Itoa(verseNumber) + "*\n\n" + verse,
		Markdown:   true,
		ButtonRows: rows,
	}, true
}

func (r *Router) fullChapter(chapterIndex int) (View, bool) {
	cd, errView, ok := r.loadChapter(chapterIndex)
	if !ok {
		return errView, false
	}
	if !cd.chapter.HasContent {
		return r.noContentView(chapterIndex), true
	}

	var rows [][]Button
	rows = appendRow(rows, r.chapterNavRow(chapterIndex))
	rows = append(rows, r.globalRows()...)

	return View{Text: cd.processed.FullText, ButtonRows: rows}, true
}

func (r *Router) references(chapterIndex int) (View, bool) {
	cd, errView, ok := r.loadChapter(chapterIndex)
	if !ok {
		return errView, false
	}
	if !cd.processed.HasReferences {
		return View{Text: msgNoReferences, ButtonRows: r.globalRows()}, true
	}

	rows := [][]Button{{btn(lblBackToChapter, Token{Kind: KindSelectChapter, ChapterIndex: chapterIndex})}}
	rows = append(rows, r.globalRows()...)

	return View{Text: msgReferencesHdr + "\n\n" + cd.processed.References, Markdown: true, ButtonRows: rows}, true
}

func (r *Router) noContentView(chapterIndex int) View {
	var rows [][]Button
	rows = appendRow(rows, r.chapterNavRow(chapterIndex))
	rows = append(rows, r.globalRows()...)
	return View{Text: msgNoContent, ButtonRows: rows}
}

// chapterNavRow builds prev/next chapter buttons, omitting edges - there is
// no wraparound.
func (r *Router) chapterNavRow(chapterIndex int) []Button {
	var row []Button
	if chapterIndex > 0 {
		row = append(row, btn(lblPrevChapter, Token{Kind: KindSelectChapter, ChapterIndex: chapterIndex - 1}))
	}
	if chapterIndex < r.src.TotalChapters()-1 {
		row = append(row, btn(lblNextChapter, Token{Kind: KindSelectChapter, ChapterIndex: chapterIndex + 1}))
	}
	return row
}

// VerseContext is the excerpt a commentary request is anchored to.
type VerseContext struct {
	BookTitle     string
	ChapterInBook int
	VerseStart    int // 1-based
	Verses        []string
}

// CommentaryContext resolves a commentary token back into the verse excerpt
// it points at. Offsets and counts are clamped the same way verse paging
// clamps them; the fallback View explains the failure to the reader.
func (r *Router) CommentaryContext(tok Token) (VerseContext, View, bool) {
	cd, errView, ok := r.loadChapter(tok.ChapterIndex)
	if !ok {
		return VerseContext{}, errView, false
	}
	count := cd.chapter.VerseCount()
	if !cd.chapter.HasContent || count == 0 {
		return VerseContext{}, r.noContentView(tok.ChapterIndex), false
	}

	start := max(0, tok.Offset)
	if start >= count {
		start = count - 1
	}
	n := max(1, tok.VerseCount)
	if start+n > count {
		n = count - start
	}

	vc := VerseContext{
		BookTitle:     msgUnknownBookName,
		ChapterInBook: 1,
		VerseStart:    start + 1,
		Verses:        cd.chapter.Verses[start : start+n],
	}
	if loc, found := r.books.FindBook(tok.ChapterIndex); found {
		vc.BookTitle = loc.Book.Title
		vc.ChapterInBook = loc.ChapterInBook
	}
	return vc, View{}, true
}

// commentaryRow goes first, right under the verse text. The payload pins
// the exact verse range on display so the commentary request is anchored to
// what the reader sees.
func (r *Router) commentaryRow(chapterIndex, offset, count int) []Button {
	if count <= 0 {
		return nil
	}
	return []Button{btn(lblCommentary, Token{
		Kind:         KindCommentary,
		ChapterIndex: chapterIndex,
		Offset:       offset,
		VerseCount:   count,
	})}
}

func (r *Router) actionRow(chapterIndex int, hasMore, hasReferences bool) []Button {
	var row []Button
	if hasMore {
		row = append(row, btn(lblReadFull, Token{Kind: KindFullChapter, ChapterIndex: chapterIndex}))
	}
	if hasReferences {
		row = append(row, btn(lblReferences, Token{Kind: KindReferences, ChapterIndex: chapterIndex}))
	}
	return row
}

func (r *Router) globalRows() [][]Button {
	return [][]Button{{
		btn(lblContents, Token{Kind: KindBookList}),
		btn(lblMainMenu, Token{Kind: KindHome}),
	}}
}
