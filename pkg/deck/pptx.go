package deck

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Slide geometry in EMU (914400 per inch), 16:9 widescreen.
const (
	slideWidth  = 12192000 // 13.333 in
	slideHeight = 6858000  // 7.5 in

	titleX, titleY = 457200, 274320 // 0.5 in, 0.3 in
	titleW, titleH = 11247120, 731520
	linkY, linkH   = 1097280, 457200 // 1.2 in, 0.5 in

	imageBoxX, imageBoxY = 914400, 1737360  // 1.0 in, 1.9 in
	imageBoxW, imageBoxH = 10332720, 4663440 // 11.3 in, 5.1 in

	logoW, logoY = 1371600, 182880 // 1.5 in wide, 0.2 in from the top
	logoX        = slideWidth - 1554480

	titleFontSize = 2800 // 28 pt
	linkFontSize  = 1400 // 14 pt
)

// BuildOptions tune one deck assembly.
type BuildOptions struct {
	// FirstImage/LastImage are local paths to full-bleed intro and
	// closing slides; empty paths are skipped.
	IncludeFirstLast      bool
	FirstImage, LastImage string
}

// Builder assembles staged slides into a PPTX document. Image
// references are localized through the Fetcher; a single unreachable
// image drops that slide's picture, never the deck.
type Builder struct {
	fetcher   *Fetcher
	staticDir string
	logger    *slog.Logger
}

// NewBuilder creates a Builder. staticDir is the root holding company
// logos ("" disables logo placement).
func NewBuilder(fetcher *Fetcher, staticDir string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{fetcher: fetcher, staticDir: staticDir, logger: logger}
}

// Build writes the assembled PPTX to w: one slide per staged selection,
// title in bold, link as a live hyperlink, company logo top-right and
// the product picture contain-fitted into the image box.
func (b *Builder) Build(ctx context.Context, w io.Writer, slides []Slide, opts BuildOptions) error {
	doc := newDocument()
	var temps []string
	defer func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}()

	if opts.IncludeFirstLast && opts.FirstImage != "" {
		doc.addImageSlide(opts.FirstImage)
	}

	for _, sl := range slides {
		s := doc.newSlide()
		s.addTitle(firstNonEmpty(sl.Title, "Product"))
		if sl.Link != "" {
			s.addLink(sl.Link)
		}
		if logo, ok := LogoPath(b.staticDir, sl.Company); ok {
			s.addPicture(logo, fitBox(logo, logoX, logoY, logoW, 0))
		}
		if sl.ImageURL != "" {
			local, err := b.fetcher.Fetch(ctx, sl.ImageURL)
			if err != nil {
				// One bad image never aborts the batch.
				b.logger.Warn("slide image skipped", "url", sl.ImageURL, "error", err)
			} else {
				if local != sl.ImageURL {
					temps = append(temps, local)
				}
				s.addPicture(local, fitBox(local, imageBoxX, imageBoxY, imageBoxW, imageBoxH))
			}
		}
	}

	if opts.IncludeFirstLast && opts.LastImage != "" {
		doc.addImageSlide(opts.LastImage)
	}

	return doc.write(w)
}

// box is a placement rectangle in EMU.
type box struct{ x, y, w, h int64 }

// fitBox contain-fits the image at path into the given area, centered.
// A zero height scales proportionally from the width (logo placement).
// When the image cannot be decoded the full box is used.
func fitBox(path string, x, y, w, h int64) box {
	iw, ih := imageSize(path)
	if iw <= 0 || ih <= 0 {
		if h == 0 {
			h = w
		}
		return box{x, y, w, h}
	}
	if h == 0 {
		return box{x, y, w, w * int64(ih) / int64(iw)}
	}

	scaledW := w
	scaledH := w * int64(ih) / int64(iw)
	if scaledH > h {
		scaledH = h
		scaledW = h * int64(iw) / int64(ih)
	}
	return box{x + (w-scaledW)/2, y + (h-scaledH)/2, scaledW, scaledH}
}

func imageSize(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// --- document assembly ---

type mediaFile struct {
	name string // media part name, e.g. image3.png
	path string // local source path
}

type document struct {
	slides []*slideBuilder
	media  []mediaFile
}

type slideBuilder struct {
	doc    *document
	shapes bytes.Buffer
	rels   bytes.Buffer
	nextID int // shape ids; 1 is the group shape
	relID  int // rId1 is the layout relationship
}

func newDocument() *document {
	return &document{}
}

func (d *document) newSlide() *slideBuilder {
	s := &slideBuilder{doc: d, nextID: 2, relID: 1}
	d.slides = append(d.slides, s)
	return s
}

// addImageSlide appends a slide holding a single contain-fitted image.
func (d *document) addImageSlide(path string) {
	s := d.newSlide()
	s.addPicture(path, fitBox(path, imageBoxX, imageBoxY, imageBoxW, imageBoxH))
}

// addMedia registers a local file as a media part and returns its name.
func (d *document) addMedia(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		ext = "jpg"
	}
	name := fmt.Sprintf("image%d.%s", len(d.media)+1, ext)
	d.media = append(d.media, mediaFile{name: name, path: path})
	return name
}

func (s *slideBuilder) newShapeID() int {
	s.nextID++
	return s.nextID
}

func (s *slideBuilder) newRelID() string {
	s.relID++
	return fmt.Sprintf("rId%d", s.relID)
}

func (s *slideBuilder) addTitle(text string) {
	fmt.Fprintf(&s.shapes, textboxXML, s.newShapeID(), "Title",
		titleX, titleY, titleW, titleH,
		titleFontSize, ` b="1"`, "", escapeXML(text))
}

func (s *slideBuilder) addLink(url string) {
	rid := s.newRelID()
	fmt.Fprintf(&s.rels,
		`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="%s" TargetMode="External"/>`,
		rid, escapeXML(url))
	hlink := fmt.Sprintf(`<a:hlinkClick xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" r:id="%s"/>`, rid)
	fmt.Fprintf(&s.shapes, textboxXML, s.newShapeID(), "Link",
		titleX, linkY, titleW, linkH,
		linkFontSize, "", hlink, escapeXML(url))
}

func (s *slideBuilder) addPicture(path string, b box) {
	name := s.doc.addMedia(path)
	rid := s.newRelID()
	fmt.Fprintf(&s.rels,
		`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/%s"/>`,
		rid, name)
	fmt.Fprintf(&s.shapes, pictureXML, s.newShapeID(), "Picture", rid, b.x, b.y, b.w, b.h)
}

// write lays out the zip: package plumbing, presentation skeleton, one
// blank master/layout/theme, then the slides and their media.
func (d *document) write(w io.Writer) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", d.contentTypes()},
		{"_rels/.rels", rootRelsXML},
		{"ppt/presentation.xml", d.presentation()},
		{"ppt/_rels/presentation.xml.rels", d.presentationRels()},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML},
		{"ppt/theme/theme1.xml", themeXML},
	}
	for i, s := range d.slides {
		n := i + 1
		parts = append(parts,
			struct{ name, data string }{fmt.Sprintf("ppt/slides/slide%d.xml", n), s.render()},
			struct{ name, data string }{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), s.renderRels()},
		)
	}

	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", p.name, err)
		}
		if _, err := f.Write([]byte(p.data)); err != nil {
			return fmt.Errorf("write part %s: %w", p.name, err)
		}
	}

	for _, m := range d.media {
		f, err := zw.Create("ppt/media/" + m.name)
		if err != nil {
			return fmt.Errorf("create media %s: %w", m.name, err)
		}
		src, err := os.Open(m.path)
		if err != nil {
			return fmt.Errorf("open media source %s: %w", m.path, err)
		}
		_, err = io.Copy(f, src)
		src.Close()
		if err != nil {
			return fmt.Errorf("write media %s: %w", m.name, err)
		}
	}

	return zw.Close()
}

func (d *document) contentTypes() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Default Extension="jpg" ContentType="image/jpeg"/>`)
	b.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	b.WriteString(`<Default Extension="webp" ContentType="image/webp"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := range d.slides {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

func (d *document) presentation() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := range d.slides {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, slideWidth, slideHeight)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func (d *document) presentationRels() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := range d.slides {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+2, i+1)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func (s *slideBuilder) render() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	b.WriteString(`<p:cSld><p:spTree>`)
	b.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	b.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)
	b.WriteString(s.shapes.String())
	b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return b.String()
}

func (s *slideBuilder) renderRels() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`)
	b.WriteString(s.rels.String())
	b.WriteString(`</Relationships>`)
	return b.String()
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\r\n"

// textboxXML: id, name, x, y, cx, cy, font size, extra run props (bold),
// hyperlink element, escaped text.
const textboxXML = `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>` +
	`<p:txBody><a:bodyPr wrap="square"/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US" sz="%d"%s dirty="0">%s</a:rPr><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`

// pictureXML: id, name, embed rel id, x, y, cx, cy.
const pictureXML = `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>` +
	`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>` +
	`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
	`</Relationships>`

const slideMasterXML = xmlHeader +
	`<p:sldMaster xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
	`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr></p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const slideMasterRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayoutXML = xmlHeader +
	`<p:sldLayout xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" type="blank" preserve="1">` +
	`<p:cSld name="Blank"><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr></p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sldLayout>`

const slideLayoutRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

const themeXML = xmlHeader +
	`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office"><a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements></a:theme>`
