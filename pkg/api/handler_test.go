package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/altossa/deckgen/pkg/catalog"
	"github.com/altossa/deckgen/pkg/deck"
	"github.com/altossa/deckgen/pkg/manifest"
)

const testManifest = `Company,Product,Type,ImageURLs
Ditre Italia,sofa,Alta Sofa,https://img/u1.jpg|https://img/u2.jpg
Ditre Italia,sofa,Kanaha,https://img/k1.jpg
Moroso,armchair,Pipe,https://img/p1.jpg
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "manifest.csv")
	if err := os.WriteFile(csvPath, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	lib := catalog.NewLibrary(&manifest.Source{Name: "test", Path: csvPath}, "", quietLogger())
	if err := lib.Load(context.Background()); err != nil {
		t.Fatalf("load library: %v", err)
	}

	st, err := deck.OpenStore(filepath.Join(dir, "slides.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fetcher := deck.NewFetcher(dir, 100)
	return NewRouter(Config{
		Library: lib,
		Store:   st,
		Builder: deck.NewBuilder(fetcher, "", quietLogger()),
		Fetcher: fetcher,
		Logger:  quietLogger(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestResolveEndpoint(t *testing.T) {
	h := newTestRouter(t)

	w := doJSON(t, h, http.MethodGet, "/v1/resolve?company=Ditre+Italia&product=sofa&type=Alta+Sofa", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var res catalog.Resolution
	decodeBody(t, w, &res)
	if res.Tier != catalog.TierExact {
		t.Fatalf("tier = %s", res.Tier)
	}
	if len(res.Images) != 2 || res.Images[0] != "https://img/u1.jpg" {
		t.Fatalf("images = %v", res.Images)
	}

	// Swapped product/type still resolves.
	w = doJSON(t, h, http.MethodGet, "/v1/resolve?company=Ditre+Italia&product=Alta+Sofa&type=sofa", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	decodeBody(t, w, &res)
	if res.Tier == catalog.TierNone {
		t.Fatal("swapped query did not resolve")
	}

	// No match is 200 with an empty list, not an error.
	w = doJSON(t, h, http.MethodGet, "/v1/resolve?company=Nobody&product=x&type=y", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	decodeBody(t, w, &res)
	if res.Tier != catalog.TierNone || res.Images == nil || len(res.Images) != 0 {
		t.Fatalf("miss = %+v", res)
	}

	// Missing parameters are a client error.
	w = doJSON(t, h, http.MethodGet, "/v1/resolve?company=Ditre+Italia", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	h := newTestRouter(t)

	var res catalogResponse
	w := doJSON(t, h, http.MethodGet, "/v1/catalog", nil)
	decodeBody(t, w, &res)
	if len(res.Companies) != 2 {
		t.Fatalf("companies = %v", res.Companies)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/catalog?company=Ditre+Italia", nil)
	res = catalogResponse{}
	decodeBody(t, w, &res)
	if len(res.Products) != 1 || res.Products[0] != "sofa" {
		t.Fatalf("products = %v", res.Products)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/catalog?company=Ditre+Italia&product=sofa", nil)
	res = catalogResponse{}
	decodeBody(t, w, &res)
	if len(res.Types) != 2 {
		t.Fatalf("types = %v", res.Types)
	}
}

func TestSlidesLifecycle(t *testing.T) {
	h := newTestRouter(t)

	// Missing image_url is rejected.
	w := doJSON(t, h, http.MethodPost, "/v1/slides", deck.Slide{Title: "no image"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/slides", deck.Slide{Title: "Alta", ImageURL: "u1.jpg"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var staged stageResponse
	decodeBody(t, w, &staged)
	if staged.Staged != 1 {
		t.Fatalf("staged = %d", staged.Staged)
	}

	doJSON(t, h, http.MethodPost, "/v1/slides", deck.Slide{Title: "Kanaha", ImageURL: "u2.jpg"})

	var list slidesResponse
	w = doJSON(t, h, http.MethodGet, "/v1/slides", nil)
	decodeBody(t, w, &list)
	if len(list.Slides) != 2 {
		t.Fatalf("slides = %v", list.Slides)
	}

	w = doJSON(t, h, http.MethodDelete, "/v1/slides/"+strconv.FormatInt(staged.ID, 10), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, h, http.MethodDelete, "/v1/slides/99999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d", w.Code)
	}

	w = doJSON(t, h, http.MethodDelete, "/v1/slides", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", w.Code)
	}
	list = slidesResponse{}
	w = doJSON(t, h, http.MethodGet, "/v1/slides", nil)
	decodeBody(t, w, &list)
	if len(list.Slides) != 0 {
		t.Fatalf("slides after clear = %v", list.Slides)
	}
}

func TestBuildDeckEndpoint(t *testing.T) {
	h := newTestRouter(t)

	// Nothing staged yet.
	w := doJSON(t, h, http.MethodPost, "/v1/deck", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}

	img := writeTestPNG(t)
	doJSON(t, h, http.MethodPost, "/v1/slides", deck.Slide{Title: "Alta", ImageURL: img})

	w = doJSON(t, h, http.MethodPost, "/v1/deck", buildDeckRequest{Name: "demo.pptx"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "presentationml") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "demo.pptx") {
		t.Fatalf("content disposition = %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Fatal("body is not a zip archive")
	}

	// Upload requested without a configured target.
	w = doJSON(t, h, http.MethodPost, "/v1/deck", buildDeckRequest{Upload: true})
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
}

func TestBuildDeckClearOnlyAfterDelivery(t *testing.T) {
	h := newTestRouter(t)
	img := writeTestPNG(t)
	doJSON(t, h, http.MethodPost, "/v1/slides", deck.Slide{Title: "Alta", ImageURL: img})

	// Failed delivery (upload requested, no target) keeps the queue.
	w := doJSON(t, h, http.MethodPost, "/v1/deck", buildDeckRequest{Upload: true, Clear: true})
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
	var list slidesResponse
	w = doJSON(t, h, http.MethodGet, "/v1/slides", nil)
	decodeBody(t, w, &list)
	if len(list.Slides) != 1 {
		t.Fatalf("staged slides after failed delivery = %d, want 1", len(list.Slides))
	}

	// A successful stream clears it.
	w = doJSON(t, h, http.MethodPost, "/v1/deck", buildDeckRequest{Clear: true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	list = slidesResponse{}
	w = doJSON(t, h, http.MethodGet, "/v1/slides", nil)
	decodeBody(t, w, &list)
	if len(list.Slides) != 0 {
		t.Fatalf("staged slides after delivery = %d, want 0", len(list.Slides))
	}
}

func TestThumbnailEndpoint(t *testing.T) {
	h := newTestRouter(t)

	w := doJSON(t, h, http.MethodGet, "/v1/thumbnail", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	img := writeTestPNG(t)
	w = doJSON(t, h, http.MethodGet, "/v1/thumbnail?width=50&url="+img, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("content type = %q", ct)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/thumbnail?width=nope&url="+img, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid width status = %d", w.Code)
	}
}

func TestReloadAndHealth(t *testing.T) {
	h := newTestRouter(t)

	w := doJSON(t, h, http.MethodPost, "/v1/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", w.Code, w.Body.String())
	}

	var health healthResponse
	w = doJSON(t, h, http.MethodGet, "/v1/health", nil)
	decodeBody(t, w, &health)
	if health.Status != "ok" || health.Entries != 3 {
		t.Fatalf("health = %+v", health)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t)
	w := doJSON(t, h, http.MethodOptions, "/v1/resolve", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("CORS header missing")
	}
}

func writeTestPNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 80, 40))); err != nil {
		t.Fatal(err)
	}
	return path
}
