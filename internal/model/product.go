package model

import (
	"github.com/shopspring/decimal"
)

// PlaceholderImage is the image reference used when a product carries none.
const PlaceholderImage = "/images/no-image.png"

// DefaultCategory labels products whose source record has no usable category.
const DefaultCategory = "Uncategorized"

// DefaultTitle names products whose source record has no title.
const DefaultTitle = "Unknown Product"

// Product is the canonical catalog entry.
// Everything downstream of normalization works with this type only.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	PriceUSD    decimal.Decimal `json:"price_usd"`
	PriceIDR    decimal.Decimal `json:"price_idr"`
	Images      []string        `json:"images"`
	Description string          `json:"description,omitempty"`
	Weight      string          `json:"weight,omitempty"`
	Dimensions  string          `json:"dimensions,omitempty"`
	Model       string          `json:"model,omitempty"`
	Strings     string          `json:"strings,omitempty"`
	Color       string          `json:"color,omitempty"`
	Materials   *Materials      `json:"materials,omitempty"`

	// IsCustom marks products added or edited through the admin overlay.
	IsCustom bool `json:"is_custom"`
}

// PrimaryImage returns the display image, falling back to the placeholder.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 || p.Images[0] == "" {
		return PlaceholderImage
	}
	return p.Images[0]
}

// Materials lists the materials of a guitar's named parts.
// Summary holds free-form text when the source only supplied a single string.
type Materials struct {
	Body      string `json:"body,omitempty" mapstructure:"body"`
	Back      string `json:"back,omitempty" mapstructure:"back"`
	Top       string `json:"top,omitempty" mapstructure:"top"`
	Fretboard string `json:"fretboard,omitempty" mapstructure:"fretboard"`
	Neck      string `json:"neck,omitempty" mapstructure:"neck"`
	Strings   string `json:"strings,omitempty" mapstructure:"strings"`
	Summary   string `json:"summary,omitempty" mapstructure:"summary"`
}

// IsZero reports whether no part has a value.
func (m *Materials) IsZero() bool {
	return m == nil || *m == Materials{}
}

// RawProduct is one record of the remote catalog document before normalization.
// Fields keep their loose shapes: ids may be strings or numbers, category may be a
// string or an object, images may be strings or {url} objects. Only the catalog
// normalizer reads these fields.
type RawProduct struct {
	ID           any `mapstructure:"id"`
	Title        any `mapstructure:"title"`
	Category     any `mapstructure:"category"`
	CategoryName any `mapstructure:"category_name"`
	Price        any `mapstructure:"price"`
	PriceUSD     any `mapstructure:"price_usd"`
	PriceIDR     any `mapstructure:"price_idr"`
	Image        any `mapstructure:"image"`
	Images       any `mapstructure:"images"`
	Description  any `mapstructure:"description"`
	Weight       any `mapstructure:"weight"`
	Dimensions   any `mapstructure:"dimensions"`
	Model        any `mapstructure:"model"`
	Strings      any `mapstructure:"strings"`
	Color        any `mapstructure:"color"`
	Materials    any `mapstructure:"materials"`

	// Extra keeps unrecognized fields so decoding never fails on them.
	Extra map[string]any `mapstructure:",remain"`
}

// ProductInput is the admin form payload for adding or editing a product.
type ProductInput struct {
	Title       string          `json:"title" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	PriceUSD    decimal.Decimal `json:"price_usd"`
	PriceIDR    decimal.Decimal `json:"price_idr"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Weight      string          `json:"weight"`
	Dimensions  string          `json:"dimensions"`
	Model       string          `json:"model"`
	Strings     string          `json:"strings"`
	Color       string          `json:"color"`
	Materials   *Materials      `json:"materials,omitempty"`
}

// Apply copies the input onto p. Identity and IsCustom are left to the caller.
func (in *ProductInput) Apply(p *Product) {
	p.Title = in.Title
	p.Category = in.Category
	p.PriceUSD = in.PriceUSD
	p.PriceIDR = in.PriceIDR
	if in.Image != "" {
		p.Images = []string{in.Image}
	} else if len(p.Images) == 0 {
		p.Images = []string{PlaceholderImage}
	}
	p.Description = in.Description
	p.Weight = in.Weight
	p.Dimensions = in.Dimensions
	p.Model = in.Model
	p.Strings = in.Strings
	p.Color = in.Color
	if !in.Materials.IsZero() {
		m := *in.Materials
		p.Materials = &m
	} else {
		p.Materials = nil
	}
}
