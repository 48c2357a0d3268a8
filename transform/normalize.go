package transform

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"sheetsync/inventory"
)

var (
	numberPattern  = regexp.MustCompile(`-?\d+(\.\d+)?`)
	symbolReplacer = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "¥", "", "₹", "")
	integerLimit   = decimal.New(1, 15)
)

// maxExponent bounds the decimal exponent of a parsed cell. Values outside
// the range are kept as text.
const maxExponent = 300

var zeroLike = map[string]struct{}{
	"0":    {},
	"-0":   {},
	"0.0":  {},
	"0.00": {},
}

// NormalizeNumber turns a spreadsheet cell into a canonical numeric string.
//
// Null spellings become "". Thousands separators, whitespace and currency
// symbols are removed and accounting negatives "(x)" become "-x". Integral
// values below 1e15 are rendered without a fraction, everything else is
// rounded to two places with trailing zeros trimmed. When the cleaned text is
// not a number the first embedded number is used; text without digits is
// returned as is, as are values whose exponent is beyond ±300.
func NormalizeNumber(raw string) string {
	if inventory.IsNullLike(raw) {
		return ""
	}

	cleaned := cleanNumber(raw)
	if cleaned == "" {
		return ""
	}
	if value, err := decimal.NewFromString(cleaned); err == nil {
		if !inRange(value) {
			return cleaned
		}
		return FormatNumber(value)
	}
	if match := numberPattern.FindString(cleaned); match != "" && match != cleaned {
		return NormalizeNumber(match)
	}
	if _, ok := zeroLike[cleaned]; ok {
		return ""
	}
	return cleaned
}

// ParseNumber parses a value produced by NormalizeNumber.
func ParseNumber(normalized string) (decimal.Decimal, bool) {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(normalized)
	if err != nil || !inRange(value) {
		return decimal.Zero, false
	}
	return value, true
}

func inRange(value decimal.Decimal) bool {
	exp := value.Exponent()
	return exp <= maxExponent && exp >= -maxExponent
}

// FormatNumber renders value with the same rules as NormalizeNumber.
func FormatNumber(value decimal.Decimal) string {
	whole := value.Truncate(0)
	if value.Equal(whole) && value.Abs().LessThan(integerLimit) {
		return whole.String()
	}

	rendered := value.Round(2).StringFixed(2)
	rendered = strings.TrimRight(rendered, "0")
	return strings.TrimSuffix(rendered, ".")
}

func cleanNumber(raw string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, symbolReplacer.Replace(raw))

	if len(stripped) >= 2 && strings.HasPrefix(stripped, "(") && strings.HasSuffix(stripped, ")") {
		stripped = "-" + stripped[1:len(stripped)-1]
	}
	return stripped
}
