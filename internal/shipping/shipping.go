// Package shipping resolves a destination country to a shipping region and
// flat fee. It is a pure function consumed by both the checkout flow and the
// shipping-estimate endpoint; the two call sites must agree bit-for-bit.
package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Region classifies the destination for fee purposes.
type Region string

const (
	RegionLocal     Region = "local"
	RegionGCC       Region = "gcc"
	RegionWorldwide Region = "worldwide"
)

// Quote is the calculator output.
type Quote struct {
	Fee    decimal.Decimal `json:"fee"`
	Region Region          `json:"region"`
}

// rate holds the free-shipping threshold and flat fee for a region.
type rate struct {
	threshold decimal.Decimal
	fee       decimal.Decimal
}

// uaeAliases are the spellings accepted as the local region.
var uaeAliases = map[string]struct{}{
	"united arab emirates": {},
	"uae":                  {},
	"u.a.e":                {},
	"u.a.e.":               {},
	"emirates":             {},
	"ae":                   {},
}

// gccCountries is the fixed GCC membership list.
var gccCountries = map[string]struct{}{
	"saudi arabia": {},
	"ksa":          {},
	"kuwait":       {},
	"qatar":        {},
	"bahrain":      {},
	"oman":         {},
}

var rates = map[Region]rate{
	RegionLocal:     {threshold: decimal.NewFromInt(500), fee: decimal.NewFromInt(30)},
	RegionGCC:       {threshold: decimal.NewFromInt(1000), fee: decimal.NewFromInt(80)},
	RegionWorldwide: {threshold: decimal.NewFromInt(1500), fee: decimal.NewFromInt(150)},
}

// ResolveRegion maps a country name to its region. Unrecognized countries
// fall through to worldwide; there are no error conditions.
func ResolveRegion(country string) Region {
	normalized := strings.ToLower(strings.TrimSpace(country))
	if _, ok := uaeAliases[normalized]; ok {
		return RegionLocal
	}
	if _, ok := gccCountries[normalized]; ok {
		return RegionGCC
	}
	return RegionWorldwide
}

// Calculate returns the shipping quote for a destination and order subtotal.
// The fee is zero once the subtotal reaches the region's threshold.
func Calculate(country string, subtotal decimal.Decimal) Quote {
	region := ResolveRegion(country)
	r := rates[region]
	if subtotal.GreaterThanOrEqual(r.threshold) {
		return Quote{Fee: decimal.Zero, Region: region}
	}
	return Quote{Fee: r.fee, Region: region}
}
