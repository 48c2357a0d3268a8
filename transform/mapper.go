package transform

import (
	"fmt"
	"strings"

	"sheetsync/inventory"
)

type Strategy string

const (
	StrategyAuto       Strategy = "auto"
	StrategyPositional Strategy = "positional"
	StrategyName       Strategy = "name"
	StrategyNone       Strategy = "none"
)

// positionalMinimum is how many of the first seven headers must match their
// positional keywords before columns are bound by index.
const positionalMinimum = 5

func SupportedStrategies() []string {
	return []string{string(StrategyAuto), string(StrategyPositional), string(StrategyName), string(StrategyNone)}
}

func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return StrategyAuto, nil
	case "positional", "position":
		return StrategyPositional, nil
	case "name", "names", "pattern":
		return StrategyName, nil
	case "none", "off", "passthrough":
		return StrategyNone, nil
	default:
		return "", fmt.Errorf("unsupported mapping strategy: %s", name)
	}
}

// Binding ties a target field to a source column.
type Binding struct {
	Index   int
	Header  string
	Matched bool
}

// ColumnMapping is the resolved source-to-target binding for one table.
type ColumnMapping struct {
	Strategy  Strategy
	Fields    []inventory.Field
	Bindings  map[string]Binding
	Unmatched []string
	Derived   []string
	Warnings  []string
}

type MapOptions struct {
	Strategy        Strategy
	DeriveAvailable bool
}

// PositionalApplicable reports whether headers look like the fixed-order
// export layout.
func PositionalApplicable(headers []string) bool {
	fields := inventory.SourceFields()
	if len(headers) < len(fields) {
		return false
	}

	hits := 0
	for _, field := range fields {
		if containsAny(headers[field.Position], field.Keywords) {
			hits++
		}
	}
	return hits >= positionalMinimum
}

// ResolveMapping decides how each target field is read from headers. It never
// fails: fields that cannot be bound are listed in Unmatched and receive
// default values when applied.
func ResolveMapping(headers []string, options MapOptions) ColumnMapping {
	strategy := options.Strategy
	if strategy == "" {
		strategy = StrategyAuto
	}

	var mapping ColumnMapping
	switch strategy {
	case StrategyNone:
		return passthroughMapping(headers)
	case StrategyName:
		mapping = nameMapping(headers)
	case StrategyPositional:
		if PositionalApplicable(headers) {
			mapping = positionalMapping(headers)
		} else {
			mapping = nameMapping(headers)
			mapping.Warnings = append(mapping.Warnings, "headers do not match the positional layout; falling back to name matching")
		}
	default:
		if PositionalApplicable(headers) {
			mapping = positionalMapping(headers)
		} else {
			mapping = nameMapping(headers)
		}
	}

	for _, name := range mapping.Unmatched {
		mapping.Warnings = append(mapping.Warnings, fmt.Sprintf("no source column for %s; using default value", name))
	}

	soh := mapping.Bindings[inventory.FieldSOH]
	openSales := mapping.Bindings[inventory.FieldOpenSales]
	if options.DeriveAvailable && soh.Matched && openSales.Matched {
		available, _ := inventory.FieldByName(inventory.FieldAvailable)
		mapping.Fields = append(mapping.Fields, available)
		mapping.Derived = append(mapping.Derived, available.Name)
	}
	return mapping
}

// Apply builds cleaned rows from raw source rows.
func (m ColumnMapping) Apply(rows [][]string) []inventory.Row {
	out := make([]inventory.Row, 0, len(rows))
	for _, source := range rows {
		row := make(inventory.Row, len(m.Fields))
		for _, field := range m.Fields {
			if field.Derived {
				continue
			}
			binding, ok := m.Bindings[field.Name]
			if !ok || !binding.Matched {
				row[field.Name] = defaultValue(field)
				continue
			}
			raw := cellAt(source, binding.Index)
			if field.IsNumeric() {
				row[field.Name] = NormalizeNumber(raw)
			} else {
				row[field.Name] = strings.TrimSpace(raw)
			}
		}
		for _, name := range m.Derived {
			if name == inventory.FieldAvailable {
				row[name] = available(row[inventory.FieldSOH], row[inventory.FieldOpenSales])
			}
		}
		out = append(out, row)
	}
	return out
}

// MapColumns resolves the mapping for headers and applies it to rows.
func MapColumns(headers []string, rows [][]string, options MapOptions) (ColumnMapping, []inventory.Row) {
	mapping := ResolveMapping(headers, options)
	return mapping, mapping.Apply(rows)
}

func positionalMapping(headers []string) ColumnMapping {
	mapping := ColumnMapping{
		Strategy: StrategyPositional,
		Fields:   inventory.SourceFields(),
		Bindings: make(map[string]Binding),
	}
	for _, field := range mapping.Fields {
		mapping.Bindings[field.Name] = Binding{
			Index:   field.Position,
			Header:  headers[field.Position],
			Matched: true,
		}
	}
	return mapping
}

func nameMapping(headers []string) ColumnMapping {
	mapping := ColumnMapping{
		Strategy: StrategyName,
		Fields:   inventory.SourceFields(),
		Bindings: make(map[string]Binding),
	}

	claimed := make(map[int]struct{}, len(headers))
	for _, field := range mapping.Fields {
		bound := false
		for index, header := range headers {
			if _, taken := claimed[index]; taken {
				continue
			}
			if !containsAny(header, field.Aliases) {
				continue
			}
			claimed[index] = struct{}{}
			mapping.Bindings[field.Name] = Binding{Index: index, Header: header, Matched: true}
			bound = true
			break
		}
		if !bound {
			mapping.Bindings[field.Name] = Binding{Index: -1}
			mapping.Unmatched = append(mapping.Unmatched, field.Name)
		}
	}
	return mapping
}

// passthroughMapping keeps the source columns under their own titles.
func passthroughMapping(headers []string) ColumnMapping {
	mapping := ColumnMapping{
		Strategy: StrategyNone,
		Fields:   make([]inventory.Field, 0, len(headers)),
		Bindings: make(map[string]Binding, len(headers)),
	}

	for index, header := range headers {
		name := strings.TrimSpace(header)
		if name == "" {
			continue
		}
		if _, exists := mapping.Bindings[name]; exists {
			continue
		}

		kind := inventory.KindText
		if isNumericHeader(name) {
			kind = inventory.KindNumeric
		}
		mapping.Fields = append(mapping.Fields, inventory.Field{
			Name:     name,
			Title:    name,
			Kind:     kind,
			Position: index,
		})
		mapping.Bindings[name] = Binding{Index: index, Header: header, Matched: true}
	}
	return mapping
}

func isNumericHeader(header string) bool {
	if containsAny(header, inventory.NumericHints) {
		return true
	}
	for _, field := range inventory.Schema() {
		if field.IsNumeric() && strings.EqualFold(field.Title, header) {
			return true
		}
	}
	return false
}

func available(soh, openSales string) string {
	if soh == "" && openSales == "" {
		return ""
	}
	left, _ := ParseNumber(soh)
	right, _ := ParseNumber(openSales)
	return FormatNumber(left.Sub(right))
}

func defaultValue(field inventory.Field) string {
	if field.IsNumeric() {
		return ""
	}
	return inventory.NotAvailable
}

func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}

func containsAny(header string, fragments []string) bool {
	lower := strings.ToLower(strings.TrimSpace(header))
	if lower == "" {
		return false
	}
	for _, fragment := range fragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
