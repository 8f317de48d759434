// MCP transport for the storefront using the official MCP Go SDK.
// Exposes catalog browsing and the shopping flow as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"

	"storefront/internal/catalog"
	"storefront/internal/client"
	"storefront/internal/commerce"
	"storefront/internal/model"
)

// === MCP Tool Input/Output Types ===
// MCP calls are not routed through the client middleware, so every tool
// acting on per-profile state names the profile (and optionally the tab)
// in its arguments.

// SearchCatalogInput is the input schema for search_catalog tool.
type SearchCatalogInput struct {
	Category string   `json:"category,omitempty" jsonschema:"exact category label; empty or All matches everything"`
	Keyword  string   `json:"keyword,omitempty" jsonschema:"case-insensitive substring of the title"`
	MaxPrice *float64 `json:"max_price,omitempty" jsonschema:"inclusive USD price bound; 0 disables"`
	Sort     string   `json:"sort,omitempty" jsonschema:"low-high, high-low or newest"`
}

// ProductListOutput is the output of search_catalog.
type ProductListOutput struct {
	Products []model.Product `json:"products"`
	Count    int             `json:"count"`
}

// GetProductInput is the input schema for get_product tool.
type GetProductInput struct {
	ID int64 `json:"id" jsonschema:"product id"`
}

// ProfileInput names the client profile a tool acts for.
type ProfileInput struct {
	Profile string `json:"profile" jsonschema:"client profile id"`
	Tab     string `json:"tab,omitempty" jsonschema:"tab id reported as the origin of changes"`
}

// ProductActionInput is the input schema for tools acting on one product.
type ProductActionInput struct {
	Profile   string `json:"profile" jsonschema:"client profile id"`
	Tab       string `json:"tab,omitempty" jsonschema:"tab id reported as the origin of changes"`
	ProductID int64  `json:"product_id" jsonschema:"product id"`
}

// ToggleWishlistOutput reports whether the product is saved afterwards.
type ToggleWishlistOutput struct {
	ProductID int64 `json:"product_id"`
	Saved     bool  `json:"saved"`
}

// CompletePaymentInput is the input schema for complete_payment tool.
type CompletePaymentInput struct {
	Profile string `json:"profile" jsonschema:"client profile id"`
	Tab     string `json:"tab,omitempty" jsonschema:"tab id reported as the origin of changes"`
	Method  string `json:"method,omitempty" jsonschema:"COD or Transfer; defaults to COD"`
}

// OrdersOutput is the output of list_orders.
type OrdersOutput struct {
	Orders []model.Order `json:"orders"`
	Count  int           `json:"count"`
}

// outputTypeSchemas overrides inference for types whose JSON form differs
// from their Go shape. decimal.Decimal is a struct that marshals as a string.
var outputTypeSchemas = map[reflect.Type]*jsonschema.Schema{
	reflect.TypeFor[decimal.Decimal](): {Type: "string", Description: "decimal amount"},
}

// outputSchema infers the output schema of T with outputTypeSchemas applied.
func outputSchema[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{TypeSchemas: outputTypeSchemas})
	if err != nil {
		panic(fmt.Sprintf("mcp output schema: %v", err))
	}
	return schema
}

// NewMCPServer creates an MCP server with storefront tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: client.ServerVersion,
		},
		&mcp.ServerOptions{
			Instructions: "Guitar storefront. Browse the catalog without a profile; " +
				"cart, wishlist, checkout and order tools need the profile id of a logged-in client.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "search_catalog",
		Description:  "Search the reconciled catalog by category, title keyword and maximum price, optionally sorted.",
		OutputSchema: outputSchema[ProductListOutput](),
	}, h.mcpSearchCatalog)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "get_product",
		Description:  "Get one product of the reconciled catalog by id.",
		OutputSchema: outputSchema[model.Product](),
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "get_cart",
		Description:  "Get the cart of a profile with item count and total.",
		OutputSchema: outputSchema[model.Cart](),
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "add_to_cart",
		Description:  "Add one unit of a product to the cart. Requires a logged-in profile.",
		OutputSchema: outputSchema[model.Cart](),
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "toggle_wishlist",
		Description:  "Save a product to the wishlist, or remove it if already saved. Requires a logged-in profile.",
		OutputSchema: outputSchema[ToggleWishlistOutput](),
	}, h.mcpToggleWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "begin_checkout",
		Description:  "Snapshot the cart into a pending order. Requires a session, an address and a non-empty cart.",
		OutputSchema: outputSchema[model.Draft](),
	}, h.mcpBeginCheckout)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "complete_payment",
		Description:  "Pay the pending order with COD or Transfer. Clears the cart.",
		OutputSchema: outputSchema[model.Order](),
	}, h.mcpCompletePayment)

	mcp.AddTool(server, &mcp.Tool{
		Name:         "list_orders",
		Description:  "List the completed orders of a profile, oldest first.",
		OutputSchema: outputSchema[OrdersOutput](),
	}, h.mcpListOrders)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpSearchCatalog(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchCatalogInput,
) (*mcp.CallToolResult, *ProductListOutput, error) {
	q := catalog.Query{
		Category: strings.TrimSpace(input.Category),
		Keyword:  strings.TrimSpace(input.Keyword),
		Sort:     strings.TrimSpace(input.Sort),
	}
	if input.MaxPrice != nil {
		if *input.MaxPrice < 0 {
			return nil, nil, h.mcpError(model.NewValidationError("max_price", "must be a non-negative number"))
		}
		max := decimal.NewFromFloat(*input.MaxPrice)
		q.MaxPrice = &max
	}

	products, err := h.catalog.Search(ctx, q)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, &ProductListOutput{Products: products, Count: len(products)}, nil
}

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetProductInput,
) (*mcp.CallToolResult, *model.Product, error) {
	if input.ID <= 0 {
		return nil, nil, fmt.Errorf("id is required")
	}

	product, err := h.catalog.Product(ctx, input.ID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, product, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProfileInput,
) (*mcp.CallToolResult, *model.Cart, error) {
	sh, err := h.mcpShopper(input.Profile, input.Tab)
	if err != nil {
		return nil, nil, err
	}

	cart, err := sh.Cart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, cart, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductActionInput,
) (*mcp.CallToolResult, *model.Cart, error) {
	sh, err := h.mcpShopper(input.Profile, input.Tab)
	if err != nil {
		return nil, nil, err
	}
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	cart, err := sh.AddToCart(ctx, input.ProductID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, cart, nil
}

func (h *Handler) mcpToggleWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductActionInput,
) (*mcp.CallToolResult, *ToggleWishlistOutput, error) {
	sh, err := h.mcpShopper(input.Profile, input.Tab)
	if err != nil {
		return nil, nil, err
	}
	if input.ProductID <= 0 {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	saved, err := sh.ToggleWishlist(ctx, input.ProductID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, &ToggleWishlistOutput{ProductID: input.ProductID, Saved: saved}, nil
}

func (h *Handler) mcpBeginCheckout(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProfileInput,
) (*mcp.CallToolResult, *model.Draft, error) {
	sh, err := h.mcpShopper(input.Profile, input.Tab)
	if err != nil {
		return nil, nil, err
	}

	draft, err := sh.BeginCheckout(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, draft, nil
}

func (h *Handler) mcpCompletePayment(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CompletePaymentInput,
) (*mcp.CallToolResult, *model.Order, error) {
	sh, err := h.mcpShopper(input.Profile, input.Tab)
	if err != nil {
		return nil, nil, err
	}

	order, err := sh.CompletePayment(ctx, model.PaymentMethod(input.Method))
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, order, nil
}

func (h *Handler) mcpListOrders(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProfileInput,
) (*mcp.CallToolResult, *OrdersOutput, error) {
	sh, err := h.mcpShopper(input.Profile, input.Tab)
	if err != nil {
		return nil, nil, err
	}

	orders, err := sh.Orders(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	return nil, &OrdersOutput{Orders: orders, Count: len(orders)}, nil
}

// mcpShopper validates the identity arguments and returns the profile's state object.
func (h *Handler) mcpShopper(profile, tab string) (*commerce.Shopper, error) {
	id := client.Identity{Profile: strings.TrimSpace(profile), Tab: strings.TrimSpace(tab)}
	if id.Profile == "" {
		return nil, fmt.Errorf("%s: profile is required", client.IdentityRequired)
	}
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", client.IdentityRequired, err)
	}
	return h.commerce.Shopper(id.Profile, id.Tab), nil
}

// mcpError converts service errors to MCP-friendly errors.
// Precondition failures keep their redirect so agents can tell the user where to go.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		if apiErr.Redirect != "" {
			return fmt.Errorf("%s: %s (redirect: %s)", apiErr.Code, apiErr.Message, apiErr.Redirect)
		}
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	if apiErr != nil && apiErr.Code == "CATALOG_UNAVAILABLE" {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
