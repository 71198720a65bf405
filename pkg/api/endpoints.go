package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/altossa/deckgen/pkg/catalog"
	"github.com/altossa/deckgen/pkg/deck"
	"github.com/altossa/deckgen/pkg/kit"
)

// Shared request/response types used by both HTTP and MCP transports.

type resolveReq struct {
	Company string
	Product string
	Type    string
}

type catalogReq struct {
	Company string
	Product string
}

type catalogResponse struct {
	Companies []string `json:"companies,omitempty"`
	Products  []string `json:"products,omitempty"`
	Types     []string `json:"types,omitempty"`
}

type stageReq struct {
	Slide deck.Slide
}

type stageResponse struct {
	ID     int64 `json:"id"`
	Staged int   `json:"staged"`
}

type slidesResponse struct {
	Slides []deck.Slide `json:"slides"`
}

// Endpoints return the core kit.Endpoints backed by the catalog library
// and the staging store.

func resolveEndpoint(lib *catalog.Library) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		if req.Company == "" || req.Product == "" || req.Type == "" {
			return nil, fmt.Errorf("company, product and type are all required")
		}
		return lib.Resolve(req.Company, req.Product, req.Type), nil
	}
}

func catalogEndpoint(lib *catalog.Library) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*catalogReq)
		idx := lib.Index()
		switch {
		case req.Company == "":
			return catalogResponse{Companies: idx.Companies()}, nil
		case req.Product == "":
			return catalogResponse{Products: idx.ProductsFor(req.Company)}, nil
		default:
			return catalogResponse{Types: idx.TypesFor(req.Company, req.Product)}, nil
		}
	}
}

func stageEndpoint(st *deck.Store) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*stageReq)
		if req.Slide.ImageURL == "" {
			return nil, fmt.Errorf("image_url is required")
		}
		id, err := st.Add(req.Slide)
		if err != nil {
			return nil, err
		}
		n, err := st.Count()
		if err != nil {
			return nil, err
		}
		return stageResponse{ID: id, Staged: n}, nil
	}
}

func listSlidesEndpoint(st *deck.Store) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		slides, err := st.List()
		if err != nil {
			return nil, err
		}
		if slides == nil {
			slides = []deck.Slide{}
		}
		return slidesResponse{Slides: slides}, nil
	}
}

// logging reports endpoint failures with the transport that carried them.
func logging(logger *slog.Logger, name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			resp, err := next(ctx, request)
			if err != nil {
				logger.Warn("endpoint failed",
					"endpoint", name,
					"transport", kit.GetTransport(ctx),
					"error", err)
			}
			return resp, err
		}
	}
}
