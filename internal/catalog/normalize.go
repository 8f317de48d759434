package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"storefront/internal/model"
)

// DecodeDocument parses the catalog document: a JSON array of loosely typed
// product objects. Entries that are not objects are skipped.
func DecodeDocument(body []byte) ([]model.RawProduct, error) {
	var entries []any
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}

	records := make([]model.RawProduct, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		raw, err := DecodeRecord(obj)
		if err != nil {
			continue
		}
		records = append(records, raw)
	}
	return records, nil
}

// DecodeRecord maps one catalog object onto RawProduct without interpreting values.
func DecodeRecord(obj map[string]any) (model.RawProduct, error) {
	var raw model.RawProduct
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &raw,
		TagName: "mapstructure",
	})
	if err != nil {
		return raw, err
	}
	if err := dec.Decode(obj); err != nil {
		return raw, fmt.Errorf("decode catalog record: %w", err)
	}
	return raw, nil
}

// Normalizer converts raw records into canonical products.
// Records whose id cannot be read as a positive integer get a generated
// time-based id from Node. A generated id is remembered by record content,
// so the same record keeps its id across fetches of the same document.
type Normalizer struct {
	Node *snowflake.Node

	mu        sync.Mutex
	generated map[string]int64 // content key -> id, for the last document
}

// NewNormalizer creates a normalizer generating ids from node.
func NewNormalizer(node *snowflake.Node) *Normalizer {
	return &Normalizer{Node: node}
}

// NormalizeAll normalizes every record, preserving order.
// Identical id-less records within one document get distinct ids.
// Generated ids of records absent from records are forgotten.
func (n *Normalizer) NormalizeAll(records []model.RawProduct) []model.Product {
	n.mu.Lock()
	defer n.mu.Unlock()

	kept := make(map[string]int64)
	seen := make(map[string]int)
	out := make([]model.Product, 0, len(records))
	for i := range records {
		p, ok := n.normalize(&records[i])
		if !ok {
			content := recordKey(&records[i])
			key := fmt.Sprintf("%d#%s", seen[content], content)
			seen[content]++
			p.ID = n.generatedID(key)
			kept[key] = p.ID
		}
		out = append(out, p)
	}
	n.generated = kept
	return out
}

// Normalize converts one raw record into a Product.
//
// Field rules:
//   - id: integer from number or numeric string, else generated
//   - title: default "Unknown Product"
//   - category: string, or {name|label} object, then category_name, default "Uncategorized"
//   - price_usd: price_usd then price, default 0, negatives clamp to 0
//   - price_idr: explicit value, else round(price_usd × 15500)
//   - images: images[] (strings or {url}), else image (string or {url}), else placeholder
func (n *Normalizer) Normalize(raw *model.RawProduct) model.Product {
	p, ok := n.normalize(raw)
	if !ok {
		n.mu.Lock()
		p.ID = n.generatedID("0#" + recordKey(raw))
		n.mu.Unlock()
	}
	return p
}

// normalize converts raw, reporting false when the id must be generated.
func (n *Normalizer) normalize(raw *model.RawProduct) (model.Product, bool) {
	p := model.Product{
		Title:       textOr(raw.Title, model.DefaultTitle),
		Category:    categoryLabel(raw),
		Images:      imageList(raw),
		Description: text(raw.Description),
		Weight:      text(raw.Weight),
		Dimensions:  text(raw.Dimensions),
		Model:       text(raw.Model),
		Strings:     text(raw.Strings),
		Color:       text(raw.Color),
		Materials:   materials(raw.Materials),
	}

	id, hasID := productID(raw.ID)
	p.ID = id

	p.PriceUSD = nonNegative(firstPrice(raw.PriceUSD, raw.Price))
	if idr, ok := model.ParsePrice(raw.PriceIDR); ok && !idr.IsNegative() {
		p.PriceIDR = idr
	} else {
		p.PriceIDR = model.USDToIDR(p.PriceUSD)
	}

	return p, hasID
}

// generatedID returns the id remembered for key, generating one if needed.
// Callers hold n.mu.
func (n *Normalizer) generatedID(key string) int64 {
	if id, ok := n.generated[key]; ok {
		return id
	}
	id := n.Node.Generate().Int64()
	if n.generated == nil {
		n.generated = make(map[string]int64)
	}
	n.generated[key] = id
	return id
}

// recordKey identifies a record by its content.
func recordKey(raw *model.RawProduct) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%#v", *raw)
	}
	return string(b)
}

// productID reads a positive integer id. Zero, fractional and non-numeric ids are rejected.
func productID(v any) (int64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case float64:
		if t <= 0 || t != math.Trunc(t) || t >= math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case string:
		v = strings.TrimSpace(t)
	}
	id, err := cast.ToInt64E(v)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func firstPrice(values ...any) decimal.Decimal {
	for _, v := range values {
		if v == nil {
			continue
		}
		// A present but unreadable value counts as 0 rather than falling through.
		d, _ := model.ParsePrice(v)
		return d
	}
	return decimal.Zero
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func categoryLabel(raw *model.RawProduct) string {
	v := raw.Category
	if v == nil {
		v = raw.CategoryName
	}
	if obj, ok := v.(map[string]any); ok {
		v = obj["name"]
		if v == nil {
			v = obj["label"]
		}
	}
	return textOr(v, model.DefaultCategory)
}

func imageList(raw *model.RawProduct) []string {
	var images []string
	if list, ok := raw.Images.([]any); ok {
		for _, entry := range list {
			if ref := imageRef(entry); ref != "" {
				images = append(images, ref)
			}
		}
	}
	if len(images) == 0 {
		if ref := imageRef(raw.Image); ref != "" {
			images = append(images, ref)
		}
	}
	if len(images) == 0 {
		images = []string{model.PlaceholderImage}
	}
	return images
}

// imageRef reads a string or an object carrying a url field.
func imageRef(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return text(t["url"])
	default:
		return ""
	}
}

// materials reads a parts object, or keeps a plain string as the summary.
func materials(v any) *model.Materials {
	var m model.Materials
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		m.Summary = strings.TrimSpace(t)
	case map[string]any:
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &m,
			WeaklyTypedInput: true,
		})
		if err != nil || dec.Decode(t) != nil {
			return nil
		}
	default:
		return nil
	}
	if m.IsZero() {
		return nil
	}
	return &m
}

// text renders scalars as strings; objects and arrays are not descriptive text.
func text(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any:
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func textOr(v any, fallback string) string {
	if s := text(v); s != "" {
		return s
	}
	return fallback
}
