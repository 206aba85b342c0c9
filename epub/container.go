// Package epub gives read access to the fixed EPUB edition: the ordered
// chapter flow from the OPF spine, chapter HTML by flat index, the
// navigation tree from toc.ncx and the cover image.
package epub

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

const mimetypeContent = "application/epub+zip"

// ErrChapterIndexOutOfRange is returned for flat chapter positions outside
// [0, TotalChapters).
var ErrChapterIndexOutOfRange = errors.New("chapter index out of range")

type spineItem struct {
	ID   string
	Href string
}

// Book is an opened EPUB container. Safe for concurrent readers - zip entry
// access is serialized and chapter HTML is cached after first read.
type Book struct {
	path    string
	reader  *fixzip.ReadCloser
	entries map[string]*fixzip.File

	spine     []spineItem
	nav       []NavPoint
	coverHref string

	mu    sync.Mutex
	cache map[int]string

	log *zap.Logger
}

// Open reads container structure once: mimetype check, container.xml, OPF
// manifest and spine, toc.ncx. The zip stays open for chapter reads until
// Close.
func Open(bookPath string, log *zap.Logger) (*Book, error) {
	r, err := fixzip.OpenReader(bookPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open book container (%s): %w", bookPath, err)
	}

	b := &Book{
		path:    bookPath,
		reader:  r,
		entries: make(map[string]*fixzip.File, len(r.File)),
		cache:   make(map[int]string),
		log:     log,
	}

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			r.Close()
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() {
			b.entries[path.Clean(name)] = f
		}
	}

	if err := b.checkMimetype(); err != nil {
		r.Close()
		return nil, err
	}

	opfPath, err := b.rootfilePath()
	if err != nil {
		r.Close()
		return nil, err
	}
	if err := b.readPackage(opfPath); err != nil {
		r.Close()
		return nil, err
	}

	log.Info("Book container opened",
		zap.String("path", bookPath),
		zap.Int("chapters", len(b.spine)),
		zap.Int("nav_points", len(b.nav)))
	return b, nil
}

// Close releases the underlying archive.
func (b *Book) Close() error {
	return b.reader.Close()
}

// TotalChapters returns the number of spine positions.
func (b *Book) TotalChapters() int {
	return len(b.spine)
}

// ChapterHTML returns raw HTML of the chapter at the given flat spine
// position. Reads are idempotent against the static container, results are
// cached.
func (b *Book) ChapterHTML(index int) (string, error) {
	if index < 0 || index >= len(b.spine) {
		return "", fmt.Errorf("chapter %d of %d: %w", index, len(b.spine), ErrChapterIndexOutOfRange)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if html, ok := b.cache[index]; ok {
		return html, nil
	}

	data, err := b.readEntry(b.spine[index].Href)
	if err != nil {
		return "", fmt.Errorf("unable to read chapter %d (%s): %w", index, b.spine[index].Href, err)
	}
	html := string(data)
	b.cache[index] = html
	return html, nil
}

// NavPoints returns the top-level navigation tree (the book list).
func (b *Book) NavPoints() []NavPoint {
	return b.nav
}

// TopLevelTitles returns titles of top-level navigation entries in document
// order. Empty when the book carries no navigation document.
func (b *Book) TopLevelTitles() []string {
	out := make([]string, 0, len(b.nav))
	for _, np := range b.nav {
		out = append(out, np.Title)
	}
	return out
}

// Cover returns the cover image bytes when the manifest declares one.
func (b *Book) Cover() ([]byte, bool) {
	if len(b.coverHref) == 0 {
		return nil, false
	}
	data, err := b.readEntry(b.coverHref)
	if err != nil {
		b.log.Warn("Unable to read declared cover image", zap.String("href", b.coverHref), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (b *Book) readEntry(name string) ([]byte, error) {
	f, ok := b.entries[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("no such entry in container: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// checkMimetype accepts a proper mimetype entry and falls back to content
// sniffing - some editions ship without the entry but are zips of the right
// shape anyway.
func (b *Book) checkMimetype() error {
	if data, err := b.readEntry("mimetype"); err == nil {
		if got := strings.TrimSpace(string(data)); got != mimetypeContent {
			return fmt.Errorf("unexpected container mimetype %q", got)
		}
		return nil
	}

	// no mimetype entry - sniff the container head instead; a conforming
	// EPUB stores mimetype first and uncompressed, anything else must at
	// least look like a zip and carry container.xml
	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("unable to sniff container type: %w", err)
	}
	defer f.Close()

	head := make([]byte, 262)
	n, _ := io.ReadFull(f, head)
	kind, err := filetype.Match(head[:n])
	if err != nil || (kind.MIME.Value != mimetypeContent && kind.Extension != "zip") {
		return fmt.Errorf("container is not an EPUB (detected %q)", kind.MIME.Value)
	}
	if _, ok := b.entries["META-INF/container.xml"]; !ok {
		return fmt.Errorf("container has neither mimetype entry nor container.xml")
	}
	b.log.Warn("Container has no mimetype entry, proceeding by content type", zap.String("detected", kind.MIME.Value))
	return nil
}

// fallbackSpine collects content documents in natural name order when the
// package document cannot be used.
func (b *Book) fallbackSpine() []spineItem {
	var hrefs []string
	for name := range b.entries {
		switch strings.ToLower(path.Ext(name)) {
		case ".xhtml", ".html", ".htm":
			hrefs = append(hrefs, name)
		}
	}
	sort.Sort(natural.StringSlice(hrefs))

	items := make([]spineItem, 0, len(hrefs))
	for _, h := range hrefs {
		items = append(items, spineItem{ID: h, Href: h})
	}
	return items
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
