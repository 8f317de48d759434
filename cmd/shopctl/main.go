// shopctl is a CLI tool for exercising a storefront server from scripts.
// Each command performs a single operation against the REST API, acting for
// one client profile.
//
// Commands:
//
//	shopctl profile -server URL
//	shopctl catalog -server URL [-category NAME] [-search TEXT] [-max PRICE] [-sort ORDER]
//	shopctl register -profile ID -user NAME -email ADDR -password PW
//	shopctl login -profile ID -email ADDR -password PW [-address TEXT]
//	shopctl cart -profile ID [-add ID] [-remove ID] [-clear]
//	shopctl wishlist -profile ID [-toggle ID]
//	shopctl checkout -profile ID
//	shopctl pay -profile ID [-method COD|Transfer]
//	shopctl orders -profile ID
//
// Examples:
//
//	P=$(shopctl profile -server http://localhost:8080 -q)
//	shopctl login -profile $P -email admin@shop.com -password admin123 -address "Jl. Merdeka 1"
//	shopctl cart -profile $P -add 3
//	shopctl checkout -profile $P
//	shopctl pay -profile $P -method Transfer
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"
	"github.com/shopspring/decimal"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	serverURL string
	profileID string
	tabID     string
	quiet     bool
	noColor   bool
	verbose   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorBlue, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "profile":
		runProfile(args)
	case "catalog":
		runCatalog(args)
	case "register":
		runRegister(args)
	case "login":
		runLogin(args)
	case "logout":
		runLogout(args)
	case "cart":
		runCart(args)
	case "wishlist":
		runWishlist(args)
	case "checkout":
		runCheckout(args)
	case "pay":
		runPay(args)
	case "orders":
		runOrders(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shopctl - storefront flow test tool

Usage:
  shopctl <command> [options]

Commands:
  profile   Create a new client profile
  catalog   Search the catalog
  register  Register a user account
  login     Log in (and optionally set the delivery address)
  logout    Log out, clearing cart and wishlist
  cart      Show or change the cart
  wishlist  Show the wishlist or toggle a product
  checkout  Snapshot the cart into a pending order
  pay       Pay the pending order
  orders    List completed orders

Examples:
  # Create a profile and capture its id
  P=$(shopctl profile -server http://localhost:8080 -q)

  # Log in and set an address so checkout is allowed
  shopctl login -profile "$P" -email admin@shop.com -password admin123 -address "Jl. Merdeka 1"

  # Fill the cart and pay
  shopctl cart -profile "$P" -add 3
  shopctl checkout -profile "$P"
  shopctl pay -profile "$P" -method Transfer

Run 'shopctl <command> -h' for command-specific options.
The profile may also be set with SHOPCTL_PROFILE.
`)
}

// newFlagSet returns a flag set carrying the global flags.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&serverURL, "server", envOr("SHOPCTL_SERVER", "http://localhost:8080"), "Storefront server base URL")
	fs.StringVar(&profileID, "profile", os.Getenv("SHOPCTL_PROFILE"), "Client profile id")
	fs.StringVar(&tabID, "tab", "shopctl", "Tab id reported as the origin of changes")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the key value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: shopctl %s %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and applies the global flags.
func parseFlags(fs *flag.FlagSet, args []string, needProfile bool) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
	serverURL = strings.TrimRight(serverURL, "/")
	if needProfile && profileID == "" {
		fs.Usage()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// =============================================================================
// PROFILE / CATALOG
// =============================================================================

func runProfile(args []string) {
	fs := newFlagSet("profile", "[options]")
	parseFlags(fs, args, false)

	resp, err := doRequest("POST", "/profiles", nil)
	if err != nil {
		fatal("Failed to create profile: %v", err)
	}

	id, _ := resp["profile"].(string)
	if quiet {
		fmt.Println(id)
		return
	}
	printSuccess("Profile created")
	fmt.Printf("  Profile: %s%s%s\n", colorCyan, id, colorReset)
	if version, ok := resp["version"].(string); ok {
		fmt.Printf("  Server:  %s\n", version)
	}
}

func runCatalog(args []string) {
	fs := newFlagSet("catalog", "[options]")
	var category, search, sortOrder, maxPrice string
	var productID int64
	fs.StringVar(&category, "category", "", "Category filter (e.g. Electric)")
	fs.StringVar(&search, "search", "", "Title keyword")
	fs.StringVar(&sortOrder, "sort", "", "Sort order: low-high, high-low, newest")
	fs.StringVar(&maxPrice, "max", "", "Maximum USD price")
	fs.Int64Var(&productID, "id", 0, "Show a single product")
	parseFlags(fs, args, false)

	if productID > 0 {
		resp, err := doRequest("GET", "/catalog/"+strconv.FormatInt(productID, 10), nil)
		if err != nil {
			fatal("Failed to get product: %v", err)
		}
		if quiet {
			fmt.Println(resp["title"])
			return
		}
		printSuccess("Product retrieved")
		printProduct(resp)
		return
	}

	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("q", search)
	}
	if sortOrder != "" {
		q.Set("sort", sortOrder)
	}
	if maxPrice != "" {
		q.Set("max_price", maxPrice)
	}
	path := "/catalog"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := doRequest("GET", path, nil)
	if err != nil {
		fatal("Failed to search catalog: %v", err)
	}

	products, _ := resp["products"].([]interface{})
	if quiet {
		for _, p := range products {
			if m, ok := p.(map[string]interface{}); ok {
				fmt.Println(formatID(m["id"]))
			}
		}
		return
	}
	printSuccess("%d products", len(products))
	for _, p := range products {
		if m, ok := p.(map[string]interface{}); ok {
			printProduct(m)
		}
	}
}

// =============================================================================
// ACCOUNT COMMANDS
// =============================================================================

func runRegister(args []string) {
	fs := newFlagSet("register", "-profile ID -user NAME -email ADDR -password PW [options]")
	var username, email, password string
	fs.StringVar(&username, "user", "", "Username (required)")
	fs.StringVar(&email, "email", "", "Email (required)")
	fs.StringVar(&password, "password", "", "Password (required)")
	parseFlags(fs, args, true)

	if username == "" || email == "" || password == "" {
		fs.Usage()
		os.Exit(1)
	}

	_, err := doRequest("POST", "/auth/register", map[string]interface{}{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		fatal("Failed to register: %v", err)
	}
	printSuccess("Registered %s", email)
}

func runLogin(args []string) {
	fs := newFlagSet("login", "-profile ID -email ADDR -password PW [options]")
	var email, password, address string
	fs.StringVar(&email, "email", "", "Email (required)")
	fs.StringVar(&password, "password", "", "Password (required)")
	fs.StringVar(&address, "address", "", "Delivery address to save after login")
	parseFlags(fs, args, true)

	if email == "" || password == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("POST", "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	})
	if err != nil {
		fatal("Failed to log in: %v", err)
	}

	session, _ := resp["session"].(map[string]interface{})
	if address != "" && session != nil {
		_, err := doRequest("PUT", "/profile", map[string]interface{}{
			"username": session["username"],
			"email":    session["email"],
			"address":  address,
		})
		if err != nil {
			fatal("Failed to save address: %v", err)
		}
	}

	if quiet {
		fmt.Println(resp["redirect"])
		return
	}
	printSuccess("Logged in")
	if session != nil {
		fmt.Printf("  User: %s%v%s (%v)\n", colorCyan, session["username"], colorReset, session["role"])
	}
	fmt.Printf("  Redirect: %s%v%s\n", colorBlue, resp["redirect"], colorReset)
}

func runLogout(args []string) {
	fs := newFlagSet("logout", "-profile ID [options]")
	parseFlags(fs, args, true)

	if _, err := doRequest("POST", "/auth/logout", nil); err != nil {
		fatal("Failed to log out: %v", err)
	}
	printSuccess("Logged out")
}

// =============================================================================
// CART / WISHLIST
// =============================================================================

func runCart(args []string) {
	fs := newFlagSet("cart", "-profile ID [options]")
	var addID, removeID, incID, decID int64
	var clearCart, buyNow bool
	fs.Int64Var(&addID, "add", 0, "Add one unit of a product")
	fs.BoolVar(&buyNow, "buy-now", false, "With -add, use the buy-now flow")
	fs.Int64Var(&removeID, "remove", 0, "Remove a line")
	fs.Int64Var(&incID, "inc", 0, "Increment a line")
	fs.Int64Var(&decID, "dec", 0, "Decrement a line")
	fs.BoolVar(&clearCart, "clear", false, "Empty the cart")
	parseFlags(fs, args, true)

	var resp map[string]interface{}
	var err error
	switch {
	case addID > 0 && buyNow:
		resp, err = doRequest("POST", "/cart/buy-now", map[string]interface{}{"product_id": addID})
		if err == nil {
			resp, _ = resp["cart"].(map[string]interface{})
		}
	case addID > 0:
		resp, err = doRequest("POST", "/cart/items", map[string]interface{}{"product_id": addID})
	case removeID > 0:
		resp, err = doRequest("DELETE", fmt.Sprintf("/cart/items/%d", removeID), nil)
	case incID > 0:
		resp, err = doRequest("POST", fmt.Sprintf("/cart/items/%d/increment", incID), nil)
	case decID > 0:
		resp, err = doRequest("POST", fmt.Sprintf("/cart/items/%d/decrement", decID), nil)
	case clearCart:
		resp, err = doRequest("DELETE", "/cart", nil)
	default:
		resp, err = doRequest("GET", "/cart", nil)
	}
	if err != nil {
		fatal("Cart request failed: %v", err)
	}

	if quiet {
		fmt.Println(resp["total"])
		return
	}
	printSuccess("Cart: %s items", formatID(resp["item_count"]))
	printLines(resp["lines"])
	fmt.Printf("  Total: %s%s%s\n", colorGreen, formatUSD(resp["total"]), colorReset)
}

func runWishlist(args []string) {
	fs := newFlagSet("wishlist", "-profile ID [options]")
	var toggleID, moveID int64
	fs.Int64Var(&toggleID, "toggle", 0, "Save or unsave a product")
	fs.Int64Var(&moveID, "move", 0, "Move a saved product into the cart")
	parseFlags(fs, args, true)

	switch {
	case toggleID > 0:
		resp, err := doRequest("POST", "/wishlist/toggle", map[string]interface{}{"product_id": toggleID})
		if err != nil {
			fatal("Failed to toggle wishlist: %v", err)
		}
		saved, _ := resp["saved"].(bool)
		if quiet {
			fmt.Println(saved)
		} else if saved {
			printSuccess("Saved product %d", toggleID)
		} else {
			printSuccess("Removed product %d", toggleID)
		}
		return
	case moveID > 0:
		if _, err := doRequest("POST", fmt.Sprintf("/wishlist/items/%d/move-to-cart", moveID), nil); err != nil {
			fatal("Failed to move product: %v", err)
		}
		printSuccess("Moved product %d to cart", moveID)
		return
	}

	resp, err := doRequest("GET", "/wishlist", nil)
	if err != nil {
		fatal("Failed to get wishlist: %v", err)
	}
	items, _ := resp["items"].([]interface{})
	if quiet {
		fmt.Println(len(items))
		return
	}
	printSuccess("Wishlist: %d items", len(items))
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			if p, ok := m["product"].(map[string]interface{}); ok {
				printProduct(p)
			}
		}
	}
}

// =============================================================================
// CHECKOUT / ORDERS
// =============================================================================

func runCheckout(args []string) {
	fs := newFlagSet("checkout", "-profile ID [options]")
	var abandon bool
	fs.BoolVar(&abandon, "abandon", false, "Discard the pending order")
	parseFlags(fs, args, true)

	if abandon {
		if _, err := doRequest("DELETE", "/checkout", nil); err != nil {
			fatal("Failed to abandon checkout: %v", err)
		}
		printSuccess("Checkout abandoned")
		return
	}

	resp, err := doRequest("POST", "/checkout", nil)
	if err != nil {
		fatal("Failed to begin checkout: %v", err)
	}

	id, _ := resp["id"].(string)
	if quiet {
		fmt.Println(id)
		return
	}
	printSuccess("Pending order created")
	fmt.Printf("  Draft: %s%s%s\n", colorCyan, id, colorReset)
	printLines(resp["items"])
	fmt.Printf("  Total: %s%s%s\n", colorGreen, formatUSD(resp["total"]), colorReset)

	options, err := doRequest("GET", "/checkout/payment-options", nil)
	if err != nil {
		return
	}
	if list, ok := options["options"].([]interface{}); ok {
		fmt.Printf("  %sPayment options:%s\n", colorYellow, colorReset)
		for _, opt := range list {
			if m, ok := opt.(map[string]interface{}); ok {
				fmt.Printf("    - %v: %v\n", m["method"], m["label"])
				if instr, ok := m["instructions"].(string); ok && instr != "" {
					fmt.Printf("      %s%s%s\n", colorGray, instr, colorReset)
				}
			}
		}
	}
}

func runPay(args []string) {
	fs := newFlagSet("pay", "-profile ID [-method COD|Transfer] [options]")
	var method string
	fs.StringVar(&method, "method", "COD", "Payment method: COD or Transfer")
	parseFlags(fs, args, true)

	resp, err := doRequest("POST", "/checkout/pay", map[string]interface{}{"method": method})
	if err != nil {
		fatal("Failed to pay: %v", err)
	}

	if quiet {
		fmt.Println(formatID(resp["id"]))
		return
	}
	printSuccess("Payment completed!")
	fmt.Printf("  Order ID: %s%s%s\n", colorGreen, formatID(resp["id"]), colorReset)
	fmt.Printf("  Method:   %v\n", resp["payment_method"])
	fmt.Printf("  Total:    %s%s%s\n", colorGreen, formatUSD(resp["total"]), colorReset)
}

func runOrders(args []string) {
	fs := newFlagSet("orders", "-profile ID [options]")
	parseFlags(fs, args, true)

	resp, err := doRequest("GET", "/orders", nil)
	if err != nil {
		fatal("Failed to list orders: %v", err)
	}

	orders, _ := resp["orders"].([]interface{})
	if quiet {
		for _, o := range orders {
			if m, ok := o.(map[string]interface{}); ok {
				fmt.Println(formatID(m["id"]))
			}
		}
		return
	}
	printSuccess("%d orders", len(orders))
	for _, o := range orders {
		m, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Printf("  %s#%s%s %v %v %s\n", colorCyan, formatID(m["id"]), colorReset,
			m["date"], m["payment_method"], formatUSD(m["total"]))
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

// identityHeader encodes the profile and tab as a Structured Field dictionary.
func identityHeader() (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("profile", httpsfv.NewItem(profileID))
	if tabID != "" {
		dict.Add("tab", httpsfv.NewItem(tabID))
	}
	return httpsfv.Marshal(dict)
}

func doRequest(method, path string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, serverURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if profileID != "" {
		header, err := identityHeader()
		if err != nil {
			return nil, fmt.Errorf("encoding identity: %w", err)
		}
		req.Header.Set("Storefront-Client", header)
	}

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if !quiet && len(respBody) > 0 {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return nil, responseError(resp.StatusCode, respBody)
	}

	result := map[string]interface{}{}
	if len(respBody) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return result, nil
}

// responseError renders the server's error envelope, including any redirect.
func responseError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Code     string `json:"code"`
			Message  string `json:"message"`
			Redirect string `json:"redirect"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return fmt.Errorf("HTTP %d: %s", status, string(body))
	}
	e := envelope.Error
	if e.Redirect != "" {
		return fmt.Errorf("HTTP %d %s: %s (go to %s)", status, e.Code, e.Message, e.Redirect)
	}
	return fmt.Errorf("HTTP %d %s: %s", status, e.Code, e.Message)
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

func printProduct(p map[string]interface{}) {
	fmt.Printf("  %s%4s%s  %-40v %-10v %s%s%s\n",
		colorCyan, formatID(p["id"]), colorReset,
		p["title"], p["category"],
		colorGreen, formatUSD(p["price_usd"]), colorReset)
}

func printLines(v interface{}) {
	lines, _ := v.([]interface{})
	for _, l := range lines {
		m, ok := l.(map[string]interface{})
		if !ok {
			continue
		}
		p, _ := m["product"].(map[string]interface{})
		if p == nil {
			continue
		}
		fmt.Printf("    %sx%s%s %v (%s)\n", colorBold, formatID(m["qty"]), colorReset, p["title"], formatUSD(p["price_usd"]))
	}
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

// formatUSD renders decimal strings and JSON numbers as dollars.
func formatUSD(v interface{}) string {
	var d decimal.Decimal
	switch val := v.(type) {
	case string:
		parsed, err := decimal.NewFromString(val)
		if err != nil {
			return val
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(val)
	default:
		return fmt.Sprintf("%v", v)
	}
	return "$" + d.StringFixed(2)
}

// formatID prints JSON numbers without exponent notation.
func formatID(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
