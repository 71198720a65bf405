// Package api exposes the catalog resolver and the deck pipeline over
// HTTP and MCP. Both transports dispatch to the same kit.Endpoints.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/altossa/deckgen/pkg/catalog"
	"github.com/altossa/deckgen/pkg/deck"
	"github.com/altossa/deckgen/pkg/kit"
)

// Config wires the router to the application services. Uploader is
// optional; without it POST /v1/deck streams the file back instead.
type Config struct {
	Library  *catalog.Library
	Store    *deck.Store
	Builder  *deck.Builder
	Fetcher  *deck.Fetcher
	Uploader *deck.Uploader
	Deck     deck.BuildOptions
	Logger   *slog.Logger
}

// NewRouter returns an http.Handler with all API routes.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{
		resolve:    logging(logger, "resolve")(resolveEndpoint(cfg.Library)),
		catalog:    logging(logger, "catalog")(catalogEndpoint(cfg.Library)),
		stage:      logging(logger, "stage")(stageEndpoint(cfg.Store)),
		listSlides: logging(logger, "list_slides")(listSlidesEndpoint(cfg.Store)),
		cfg:        cfg,
		logger:     logger,
	}

	mux.HandleFunc("GET /v1/resolve", h.handleResolve)
	mux.HandleFunc("GET /v1/catalog", h.handleCatalog)
	mux.HandleFunc("GET /v1/thumbnail", h.handleThumbnail)
	mux.HandleFunc("GET /v1/slides", h.handleListSlides)
	mux.HandleFunc("POST /v1/slides", h.handleStageSlide)
	mux.HandleFunc("DELETE /v1/slides/{id}", h.handleRemoveSlide)
	mux.HandleFunc("DELETE /v1/slides", h.handleClearSlides)
	mux.HandleFunc("POST /v1/deck", h.handleBuildDeck)
	mux.HandleFunc("POST /v1/reload", h.handleReload)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(mux)
}

type handler struct {
	resolve    kit.Endpoint
	catalog    kit.Endpoint
	stage      kit.Endpoint
	listSlides kit.Endpoint
	cfg        Config
	logger     *slog.Logger
}

// --- resolve ---

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.resolve(r.Context(), &resolveReq{
		Company: q.Get("company"),
		Product: q.Get("product"),
		Type:    q.Get("type"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- catalog listings ---

func (h *handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.catalog(r.Context(), &catalogReq{
		Company: q.Get("company"),
		Product: q.Get("product"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- thumbnail ---

func (h *handler) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	width := 480
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 4096 {
			writeError(w, http.StatusBadRequest, "invalid width")
			return
		}
		width = n
	}

	local, err := h.cfg.Fetcher.Fetch(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if local != ref {
		defer os.Remove(local)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	thumb, err := deck.Thumbnail(data, width, 85)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(thumb)
}

// --- staged slides ---

func (h *handler) handleListSlides(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listSlides(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleStageSlide(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	var sl deck.Slide
	if err := json.NewDecoder(r.Body).Decode(&sl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.stage(r.Context(), &stageReq{Slide: sl})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *handler) handleRemoveSlide(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slide id")
		return
	}
	if err := h.cfg.Store.Remove(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleClearSlides(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Store.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- build deck ---

type buildDeckRequest struct {
	Name   string `json:"name,omitempty"`
	Upload bool   `json:"upload,omitempty"`
	Clear  bool   `json:"clear,omitempty"`
}

type buildDeckResponse struct {
	URL    string `json:"url"`
	Slides int    `json:"slides"`
}

func (h *handler) handleBuildDeck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req buildDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	slides, err := h.cfg.Store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(slides) == 0 {
		writeError(w, http.StatusConflict, "no slides staged")
		return
	}

	var buf bytes.Buffer
	if err := h.cfg.Builder.Build(r.Context(), &buf, slides, h.cfg.Deck); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("deck-%s.pptx", time.Now().Format("20060102-150405"))
	}

	// Only after the deck has actually been delivered; a failed upload
	// must not lose the selection.
	clearStaged := func() {
		if !req.Clear {
			return
		}
		if err := h.cfg.Store.Clear(); err != nil {
			h.logger.Warn("clearing staged slides failed", "error", err)
		}
	}

	if req.Upload {
		if h.cfg.Uploader == nil {
			writeError(w, http.StatusNotImplemented, "no upload target configured")
			return
		}
		url, err := h.cfg.Uploader.Upload(r.Context(), name, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		clearStaged()
		writeJSON(w, http.StatusOK, buildDeckResponse{URL: url, Slides: len(slides)})
		return
	}

	clearStaged()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.presentationml.presentation")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(buf.Bytes())
}

// --- reload ---

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Library.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reloaded",
		"entries": h.cfg.Library.Index().Len(),
	})
}

// --- health ---

type healthResponse struct {
	Status  string `json:"status"`
	Entries int    `json:"catalog_entries"`
	Staged  int    `json:"staged_slides"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	staged, err := h.cfg.Store.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Entries: h.cfg.Library.Index().Len(),
		Staged:  staged,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
