package epub

import (
	"bytes"
	"fmt"
	"path"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// NavPoint is one node of the toc.ncx navigation tree. The top level of the
// tree is the "choose a book" menu; range arithmetic never comes from here.
type NavPoint struct {
	Title    string
	Children []NavPoint
}

func (b *Book) readXML(name string) (*etree.Document, error) {
	data, err := b.readEntry(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, err)
	}
	return doc, nil
}

// rootfilePath locates the package document through META-INF/container.xml.
func (b *Book) rootfilePath() (string, error) {
	doc, err := b.readXML("META-INF/container.xml")
	if err != nil {
		return "", fmt.Errorf("unable to read container descriptor: %w", err)
	}
	for _, rf := range doc.FindElements("//rootfile") {
		if fullPath := rf.SelectAttrValue("full-path", ""); len(fullPath) > 0 {
			return path.Clean(fullPath), nil
		}
	}
	return "", fmt.Errorf("container descriptor names no rootfile")
}

// readPackage parses the OPF manifest and spine into the flat chapter flow,
// finds the cover image and the NCX navigation document.
func (b *Book) readPackage(opfPath string) error {
	doc, err := b.readXML(opfPath)
	if err != nil {
		return fmt.Errorf("unable to read package document: %w", err)
	}
	opfDir := path.Dir(opfPath)

	type manifestItem struct {
		href       string
		mediaType  string
		properties string
	}
	manifest := make(map[string]manifestItem)
	for _, item := range doc.FindElements("//manifest/item") {
		id := item.SelectAttrValue("id", "")
		href := item.SelectAttrValue("href", "")
		if len(id) == 0 || len(href) == 0 {
			continue
		}
		manifest[id] = manifestItem{
			href:       resolveHref(opfDir, href),
			mediaType:  item.SelectAttrValue("media-type", ""),
			properties: item.SelectAttrValue("properties", ""),
		}
	}

	for _, ref := range doc.FindElements("//spine/itemref") {
		idref := ref.SelectAttrValue("idref", "")
		item, ok := manifest[idref]
		if !ok {
			b.log.Warn("Spine references unknown manifest item", zap.String("idref", idref))
			continue
		}
		b.spine = append(b.spine, spineItem{ID: idref, Href: item.href})
	}
	if len(b.spine) == 0 {
		b.log.Warn("Package document has unusable spine, falling back to natural entry order")
		b.spine = b.fallbackSpine()
	}

	// cover: epub3 property first, then the epub2 meta convention
	for _, item := range manifest {
		if item.properties == "cover-image" {
			b.coverHref = item.href
			break
		}
	}
	if len(b.coverHref) == 0 {
		for _, meta := range doc.FindElements("//metadata/meta") {
			if meta.SelectAttrValue("name", "") != "cover" {
				continue
			}
			if item, ok := manifest[meta.SelectAttrValue("content", "")]; ok {
				b.coverHref = item.href
			}
			break
		}
	}

	// NCX: spine toc attribute, the dtbncx media type, or the usual name
	ncxPath := ""
	if spine := doc.FindElement("//spine"); spine != nil {
		if item, ok := manifest[spine.SelectAttrValue("toc", "")]; ok {
			ncxPath = item.href
		}
	}
	if len(ncxPath) == 0 {
		for _, item := range manifest {
			if item.mediaType == "application/x-dtbncx+xml" {
				ncxPath = item.href
				break
			}
		}
	}
	if len(ncxPath) == 0 {
		if _, ok := b.entries["toc.ncx"]; ok {
			ncxPath = "toc.ncx"
		}
	}
	if len(ncxPath) == 0 {
		b.log.Warn("Container has no navigation document, book list will be empty")
		return nil
	}
	if err := b.readNCX(ncxPath); err != nil {
		return fmt.Errorf("unable to read navigation document: %w", err)
	}
	return nil
}

func (b *Book) readNCX(ncxPath string) error {
	doc, err := b.readXML(ncxPath)
	if err != nil {
		return err
	}
	navMap := doc.FindElement("//navMap")
	if navMap == nil {
		return fmt.Errorf("%s has no navMap", ncxPath)
	}
	b.nav = buildNavPoints(navMap)
	return nil
}

func buildNavPoints(parent *etree.Element) []NavPoint {
	var points []NavPoint
	for _, np := range parent.SelectElements("navPoint") {
		p := NavPoint{Children: buildNavPoints(np)}
		if label := np.FindElement("navLabel/text"); label != nil {
			p.Title = label.Text()
		}
		points = append(points, p)
	}
	return points
}

func resolveHref(opfDir, href string) string {
	if opfDir == "." || len(opfDir) == 0 {
		return path.Clean(href)
	}
	return path.Clean(path.Join(opfDir, href))
}
