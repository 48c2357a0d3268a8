package inventory

import "strings"

type Kind string

const (
	KindText    Kind = "text"
	KindNumeric Kind = "numeric"
)

const (
	FieldProductCode     = "ProductCode"
	FieldProduct         = "Product"
	FieldBranch          = "Branch"
	FieldSOH             = "SOH"
	FieldIncomingNotPaid = "IncomingNotPaid"
	FieldOpenSales       = "OpenSales"
	FieldGrandTotal      = "GrandTotal"
	FieldAvailable       = "Available"
)

// NotAvailable is written into text fields the source file does not provide.
const NotAvailable = "N/A"

// Field describes one column of the target sheet.
//
// Position is the fixed source column used by the positional strategy, or -1
// for fields that are computed. Keywords drive the positional precondition and
// Aliases drive name matching; both are compared as lower-case substrings.
type Field struct {
	Name     string
	Title    string
	Kind     Kind
	Position int
	Keywords []string
	Aliases  []string
	Derived  bool
}

func (f Field) IsNumeric() bool {
	return f.Kind == KindNumeric
}

var schema = []Field{
	{
		Name:     FieldProductCode,
		Title:    "ProductCode",
		Kind:     KindText,
		Position: 0,
		Keywords: []string{"productcode", "product code", "product_code", "sku", "code"},
		Aliases:  []string{"productcode", "product_code", "product code"},
	},
	{
		Name:     FieldProduct,
		Title:    "Product",
		Kind:     KindText,
		Position: 1,
		Keywords: []string{"product", "description", "name"},
		Aliases:  []string{"product", "description", "product description"},
	},
	{
		Name:     FieldBranch,
		Title:    "Branch",
		Kind:     KindText,
		Position: 2,
		Keywords: []string{"branch", "location", "loc", "warehouse"},
		Aliases:  []string{"branch", "location", "warehouse"},
	},
	{
		Name:     FieldSOH,
		Title:    "SOH",
		Kind:     KindNumeric,
		Position: 3,
		Keywords: []string{"soh", "stock on hand"},
		Aliases:  []string{"soh", "4 - soh", "stock on hand", "soh_stock qty"},
	},
	{
		Name:     FieldIncomingNotPaid,
		Title:    "Incoming NOT paid",
		Kind:     KindNumeric,
		Position: 4,
		Keywords: []string{"incoming", "5 -", "open po"},
		Aliases:  []string{"incoming", "5 -", "open po", "incoming not paid"},
	},
	{
		Name:     FieldOpenSales,
		Title:    "Open Sales",
		Kind:     KindNumeric,
		Position: 5,
		Keywords: []string{"open sales", "6 -", "open", "allocated"},
		Aliases:  []string{"open sales", "6 -", "allocated"},
	},
	{
		Name:     FieldGrandTotal,
		Title:    "Grand Total",
		Kind:     KindNumeric,
		Position: 6,
		Keywords: []string{"grand", "7 -", "total"},
		Aliases:  []string{"grand total", "7 -", "total"},
	},
	{
		Name:     FieldAvailable,
		Title:    "Available",
		Kind:     KindNumeric,
		Position: -1,
		Derived:  true,
	},
}

// Schema returns the target schema in column order.
func Schema() []Field {
	out := make([]Field, len(schema))
	copy(out, schema)
	return out
}

// SourceFields returns the schema fields that are read from the source file.
func SourceFields() []Field {
	out := make([]Field, 0, len(schema))
	for _, field := range schema {
		if !field.Derived {
			out = append(out, field)
		}
	}
	return out
}

func FieldByName(name string) (Field, bool) {
	for _, field := range schema {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Indicators are header fragments that mark a file as an inventory export.
var Indicators = []string{"productcode", "branch", "soh", "stock qty", "grand total"}

// NumericHints mark passthrough headers whose values are quantities.
var NumericHints = []string{"stock qty", "stock value", "qty", "total", "incoming", "sales"}

var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"none": {},
	"n/a":  {},
	"#n/a": {},
}

// IsNullLike reports whether value is one of the spreadsheet null spellings.
func IsNullLike(value string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// CountIndicators returns the headers that contain an inventory indicator.
func CountIndicators(headers []string) []string {
	found := make([]string, 0)
	for _, header := range headers {
		lower := strings.ToLower(header)
		for _, indicator := range Indicators {
			if strings.Contains(lower, indicator) {
				found = append(found, header)
				break
			}
		}
	}
	return found
}
