package api

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/altossa/deckgen/pkg/catalog"
	"github.com/altossa/deckgen/pkg/deck"
	"github.com/altossa/deckgen/pkg/kit"
)

// RegisterMCPTools registers the deck MCP tools on the server. The
// tools share their endpoints with the HTTP routes.
func RegisterMCPTools(srv *server.MCPServer, lib *catalog.Library, st *deck.Store) {
	registerResolveImages(srv, lib)
	registerListCatalog(srv, lib)
	registerStageSlide(srv, st)
}

func mcpTransport(ctx context.Context) context.Context {
	return kit.WithTransport(ctx, "mcp")
}

func registerResolveImages(srv *server.MCPServer, lib *catalog.Library) {
	tool := mcp.NewTool("resolve_images",
		mcp.WithDescription("Resolve a (company, product, type) triple to its catalog images, reporting which match tier produced the result."),
		mcp.WithString("company", mcp.Required(), mcp.Description("Company name as it appears in the spreadsheet")),
		mcp.WithString("product", mcp.Required(), mcp.Description("Product type, e.g. sofa")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Product name, e.g. Alta Sofa")),
	)

	kit.RegisterMCPTool(srv, tool, resolveEndpoint(lib), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		company, _ := args["company"].(string)
		product, _ := args["product"].(string)
		ptype, _ := args["type"].(string)
		return &kit.MCPDecodeResult{
			Request:   &resolveReq{Company: company, Product: product, Type: ptype},
			EnrichCtx: mcpTransport,
		}, nil
	})
}

func registerListCatalog(srv *server.MCPServer, lib *catalog.Library) {
	tool := mcp.NewTool("list_catalog",
		mcp.WithDescription("List the catalog: companies when called bare, products for a company, product names for a company and product."),
		mcp.WithString("company", mcp.Description("Company to list products for")),
		mcp.WithString("product", mcp.Description("Product type to list names for (requires company)")),
	)

	kit.RegisterMCPTool(srv, tool, catalogEndpoint(lib), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		company, _ := args["company"].(string)
		product, _ := args["product"].(string)
		return &kit.MCPDecodeResult{
			Request:   &catalogReq{Company: company, Product: product},
			EnrichCtx: mcpTransport,
		}, nil
	})
}

func registerStageSlide(srv *server.MCPServer, st *deck.Store) {
	tool := mcp.NewTool("stage_slide",
		mcp.WithDescription("Stage one slide (title, link, image) in the deck queue for the next build."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Slide title")),
		mcp.WithString("image_url", mcp.Required(), mcp.Description("Image URL or local path for the slide")),
		mcp.WithString("link", mcp.Description("Product page hyperlink")),
		mcp.WithString("company", mcp.Description("Company name, used to pick the slide logo")),
	)

	kit.RegisterMCPTool(srv, tool, stageEndpoint(st), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		title, _ := args["title"].(string)
		imageURL, _ := args["image_url"].(string)
		link, _ := args["link"].(string)
		company, _ := args["company"].(string)
		return &kit.MCPDecodeResult{
			Request: &stageReq{Slide: deck.Slide{
				Title:    title,
				ImageURL: imageURL,
				Link:     link,
				Company:  company,
			}},
			EnrichCtx: mcpTransport,
		}, nil
	})
}
