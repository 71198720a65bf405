package deck

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, encodePNG(t, w, h), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func buildDeck(t *testing.T, slides []Slide, opts BuildOptions) *zip.Reader {
	t.Helper()
	b := NewBuilder(NewFetcher(t.TempDir(), 100), "", nil)
	var buf bytes.Buffer
	if err := b.Build(context.Background(), &buf, slides, opts); err != nil {
		t.Fatalf("Build: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("reopen pptx: %v", err)
	}
	return zr
}

func readPart(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	f, err := zr.Open(name)
	if err != nil {
		t.Fatalf("part %s missing: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read part %s: %v", name, err)
	}
	return string(data)
}

func TestBuildProducesPackageParts(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "sofa.png", 40, 20)

	zr := buildDeck(t, []Slide{
		{Title: "Alta Sofa", Link: "https://example.com/p/alta", ImageURL: img},
	}, BuildOptions{})

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/_rels/slide1.xml.rels",
		"ppt/media/image1.png",
	} {
		if _, err := zr.Open(name); err != nil {
			t.Errorf("part %s missing: %v", name, err)
		}
	}

	slide := readPart(t, zr, "ppt/slides/slide1.xml")
	if !strings.Contains(slide, "<a:t>Alta Sofa</a:t>") {
		t.Error("title text missing from slide")
	}
	if !strings.Contains(slide, "a:hlinkClick") {
		t.Error("hyperlink run missing from slide")
	}
	rels := readPart(t, zr, "ppt/slides/_rels/slide1.xml.rels")
	if !strings.Contains(rels, `TargetMode="External"`) {
		t.Error("hyperlink relationship not external")
	}
	if !strings.Contains(rels, "../media/image1.png") {
		t.Error("image relationship missing")
	}
}

func TestBuildOneSlidePerSelection(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "p.png", 10, 10)

	zr := buildDeck(t, []Slide{
		{Title: "A", ImageURL: img},
		{Title: "B", ImageURL: img},
		{Title: "C", ImageURL: img},
	}, BuildOptions{})

	ct := readPart(t, zr, "[Content_Types].xml")
	for _, part := range []string{"/ppt/slides/slide1.xml", "/ppt/slides/slide2.xml", "/ppt/slides/slide3.xml"} {
		if !strings.Contains(ct, part) {
			t.Errorf("content types missing %s", part)
		}
	}
	pres := readPart(t, zr, "ppt/presentation.xml")
	if got := strings.Count(pres, "<p:sldId "); got != 3 {
		t.Fatalf("presentation lists %d slides, want 3", got)
	}
}

func TestBuildFirstLastSlides(t *testing.T) {
	dir := t.TempDir()
	first := writePNG(t, dir, "first.png", 20, 10)
	last := writePNG(t, dir, "last.png", 20, 10)
	img := writePNG(t, dir, "p.png", 10, 10)

	zr := buildDeck(t, []Slide{{Title: "A", ImageURL: img}}, BuildOptions{
		IncludeFirstLast: true,
		FirstImage:       first,
		LastImage:        last,
	})

	pres := readPart(t, zr, "ppt/presentation.xml")
	if got := strings.Count(pres, "<p:sldId "); got != 3 {
		t.Fatalf("presentation lists %d slides, want 3 (first + content + last)", got)
	}
	// First slide is a bare picture, no title run.
	slide1 := readPart(t, zr, "ppt/slides/slide1.xml")
	if strings.Contains(slide1, "<a:t>") {
		t.Error("first slide should carry no text")
	}
	if !strings.Contains(slide1, "p:pic") {
		t.Error("first slide should carry a picture")
	}
}

func TestBuildSkipsUnreachableImage(t *testing.T) {
	zr := buildDeck(t, []Slide{
		{Title: "Ghost", ImageURL: "http://127.0.0.1:1/nope.jpg"},
	}, BuildOptions{})

	slide := readPart(t, zr, "ppt/slides/slide1.xml")
	if !strings.Contains(slide, "<a:t>Ghost</a:t>") {
		t.Error("title missing from degraded slide")
	}
	if strings.Contains(slide, "p:pic") {
		t.Error("unreachable image should be dropped, not embedded")
	}
}

func TestBuildEscapesText(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "p.png", 10, 10)

	zr := buildDeck(t, []Slide{
		{Title: `Sofa <XL> & "Co"`, ImageURL: img},
	}, BuildOptions{})

	slide := readPart(t, zr, "ppt/slides/slide1.xml")
	if strings.Contains(slide, "<XL>") {
		t.Fatal("title not XML-escaped")
	}
	if !strings.Contains(slide, "&lt;XL&gt; &amp;") {
		t.Fatalf("escaped title missing: %s", slide)
	}
}

func TestFitBox(t *testing.T) {
	dir := t.TempDir()
	wide := writePNG(t, dir, "wide.png", 400, 100) // 4:1
	tall := writePNG(t, dir, "tall.png", 100, 400) // 1:4

	// Wide image in a 2:1 box is width-bound: full width, half height,
	// vertically centered.
	got := fitBox(wide, 0, 0, 4000, 2000)
	want := box{0, 500, 4000, 1000}
	if got != want {
		t.Errorf("wide fit = %+v, want %+v", got, want)
	}

	// Tall image is height-bound and horizontally centered.
	got = fitBox(tall, 0, 0, 4000, 2000)
	want = box{1750, 0, 500, 2000}
	if got != want {
		t.Errorf("tall fit = %+v, want %+v", got, want)
	}

	// Zero height scales from width (logo placement).
	got = fitBox(wide, 100, 200, 800, 0)
	want = box{100, 200, 800, 200}
	if got != want {
		t.Errorf("logo fit = %+v, want %+v", got, want)
	}

	// Undecodable file falls back to the full box.
	bad := filepath.Join(dir, "bad.png")
	os.WriteFile(bad, []byte("junk"), 0o644)
	got = fitBox(bad, 1, 2, 30, 40)
	want = box{1, 2, 30, 40}
	if got != want {
		t.Errorf("fallback fit = %+v, want %+v", got, want)
	}
}
