package epub

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const testOPF = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Новий Заповіт</dc:title>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg"/>
    <item id="ch0" href="text/preface.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="text/chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/chapter2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch0"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="utf-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1"><navLabel><text>Передмова</text></navLabel><content src="text/preface.xhtml"/></navPoint>
    <navPoint id="n2" playOrder="2"><navLabel><text>ЄВАНГЕЛІЄ ВІД МАТФЕЯ</text></navLabel><content src="text/chapter1.xhtml"/>
      <navPoint id="n3" playOrder="3"><navLabel><text>Розділ 1</text></navLabel><content src="text/chapter1.xhtml"/></navPoint>
    </navPoint>
  </navMap>
</ncx>`

func writeTestBook(t *testing.T, withMimetype bool) string {
	t.Helper()

	bookPath := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(bookPath)
	if err != nil {
		t.Fatalf("unable to create fixture: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	files := []struct {
		name    string
		content string
	}{
		{"META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`},
		{"OEBPS/content.opf", testOPF},
		{"OEBPS/toc.ncx", testNCX},
		{"OEBPS/images/cover.jpg", "not really a jpeg"},
		{"OEBPS/text/preface.xhtml", "<html><body><p>ПЕРЕДМОВА</p></body></html>"},
		{"OEBPS/text/chapter1.xhtml", "<html><body><p>Розділ 1</p><p>1 Перший вірш.</p></body></html>"},
		{"OEBPS/text/chapter2.xhtml", "<html><body><p>Розділ 2</p><p>1 Інший вірш.</p></body></html>"},
	}
	if withMimetype {
		files = append([]struct {
			name    string
			content string
		}{{"mimetype", "application/epub+zip"}}, files...)
	}

	for _, tf := range files {
		fw, err := w.Create(tf.name)
		if err != nil {
			t.Fatalf("unable to add %s: %v", tf.name, err)
		}
		if _, err := fw.Write([]byte(tf.content)); err != nil {
			t.Fatalf("unable to write %s: %v", tf.name, err)
		}
	}
	return bookPath
}

func TestOpen(t *testing.T) {
	b, err := Open(writeTestBook(t, true), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	if b.TotalChapters() != 3 {
		t.Errorf("TotalChapters() = %d, want 3", b.TotalChapters())
	}

	html, err := b.ChapterHTML(1)
	if err != nil {
		t.Fatalf("ChapterHTML(1) error = %v", err)
	}
	if !strings.Contains(html, "Перший вірш") {
		t.Errorf("ChapterHTML(1) = %q", html)
	}

	// cached read returns the same content
	again, err := b.ChapterHTML(1)
	if err != nil || again != html {
		t.Errorf("cached ChapterHTML(1) = %q, %v", again, err)
	}

	nav := b.NavPoints()
	if len(nav) != 2 {
		t.Fatalf("NavPoints() = %d entries, want 2", len(nav))
	}
	if nav[1].Title != "ЄВАНГЕЛІЄ ВІД МАТФЕЯ" || len(nav[1].Children) != 1 {
		t.Errorf("NavPoints()[1] = %+v", nav[1])
	}

	cover, ok := b.Cover()
	if !ok || string(cover) != "not really a jpeg" {
		t.Errorf("Cover() = %q, %v", cover, ok)
	}
}

func TestOpen_NoMimetypeEntry(t *testing.T) {
	b, err := Open(writeTestBook(t, false), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() without mimetype entry error = %v", err)
	}
	defer b.Close()

	if b.TotalChapters() != 3 {
		t.Errorf("TotalChapters() = %d, want 3", b.TotalChapters())
	}
}

func TestChapterHTML_OutOfRange(t *testing.T) {
	b, err := Open(writeTestBook(t, true), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	for _, idx := range []int{-1, 3, 100} {
		if _, err := b.ChapterHTML(idx); !errors.Is(err, ErrChapterIndexOutOfRange) {
			t.Errorf("ChapterHTML(%d) error = %v, want ErrChapterIndexOutOfRange", idx, err)
		}
	}
}
