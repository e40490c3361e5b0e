// Package schema defines the canonical procurement fields and the synonym
// registry that maps arbitrary source column names onto them.
package schema

import (
	"strings"
	"unicode"
)

// Field is a canonical column together with its known aliases.
// The canonical name carries its own display casing; aliases are
// matched after trimming and lowercasing.
type Field struct {
	Name    string
	Aliases []string
}

// Fields returns the fixed canonical field table.
// Alias sets must not overlap across fields.
func Fields() []Field {
	return []Field{
		{
			Name:    "Part Number",
			Aliases: []string{"p/n", "pn", "part no", "part no.", "part #", "part num", "item number", "item no", "item #", "sku"},
		},
		{
			Name:    "Description",
			Aliases: []string{"desc", "desc.", "item description", "part description", "details", "item name"},
		},
		{
			Name:    "Quantity",
			Aliases: []string{"qty", "qty.", "units", "count", "amount"},
		},
		{
			Name:    "Unit of Measure",
			Aliases: []string{"uom", "u/m", "unit", "measure", "unit measure"},
		},
		{
			Name:    "Unit Price",
			Aliases: []string{"price", "unit cost", "cost", "price/unit", "price per unit", "rate"},
		},
		{
			Name:    "Extended Price",
			Aliases: []string{"ext price", "ext. price", "extended", "total", "total price", "line total"},
		},
		{
			Name:    "Supplier",
			Aliases: []string{"vendor", "vendor name", "supplier name", "seller", "source"},
		},
		{
			Name:    "Manufacturer",
			Aliases: []string{"mfg", "mfg.", "mfr", "mfr.", "maker", "manufacturer name"},
		},
		{
			Name:    "Category",
			Aliases: []string{"cat", "cat.", "category name", "commodity", "group"},
		},
		{
			Name:    "Lead Time",
			Aliases: []string{"lead", "leadtime", "lead time (days)", "lt"},
		},
		{
			Name:    "Currency",
			Aliases: []string{"curr", "curr.", "currency code", "ccy"},
		},
	}
}

// Resolution is the outcome of resolving a raw header: either an
// explicit canonical field or a passthrough derived from the raw name.
type Resolution struct {
	Name    string
	Derived bool
}

// Registry resolves raw header names to canonical columns via a
// reverse alias index built once at construction.
type Registry struct {
	aliases map[string]string
}

// NewRegistry builds a registry from the fixed field table. Each
// canonical name resolves to itself, so "Part Number" in a source
// header maps without an explicit alias entry.
func NewRegistry() *Registry {
	r := &Registry{aliases: make(map[string]string)}
	for _, f := range Fields() {
		r.aliases[Normalize(f.Name)] = f.Name
		for _, a := range f.Aliases {
			r.aliases[Normalize(a)] = f.Name
		}
	}
	return r
}

// Resolve maps a raw header name to its canonical column. Unknown
// headers become their own title-cased passthrough column.
func (r *Registry) Resolve(raw string) Resolution {
	key := Normalize(raw)
	if name, ok := r.aliases[key]; ok {
		return Resolution{Name: name}
	}
	return Resolution{Name: TitleCase(key), Derived: true}
}

// Normalize prepares a header or alias for index lookup.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TitleCase capitalizes the first letter of each whitespace-separated
// token and lowercases the rest, joining tokens with single spaces.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
