package session

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sheetsync/inventory"
	"sheetsync/transform"
)

// Summary is shown to the operator before any remote change is made.
type Summary struct {
	Rows           int
	DistinctKeys   int
	DistinctGroups int
	Columns        []string
	Sample         []string
	Strategy       string
	SheetName      string
	Overwrite      bool
	Verbatim       bool
}

func (s Summary) Mode() string {
	if s.Overwrite {
		return "OVERWRITE"
	}
	return "APPEND"
}

func buildSummary(table *inventory.Table, sheetName string, overwrite, verbatim bool) Summary {
	summary := Summary{
		Rows:           table.Len(),
		DistinctKeys:   table.DistinctCount(transform.KeyField(table.Fields)),
		DistinctGroups: table.DistinctCount(inventory.FieldBranch),
		Columns:        table.Titles(),
		Strategy:       table.Strategy,
		SheetName:      sheetName,
		Overwrite:      overwrite,
		Verbatim:       verbatim,
	}
	if table.Len() > 0 {
		summary.Sample = table.Values(table.Rows[0])
	}
	return summary
}

// WriteTo prints the summary in the layout used by the confirmation prompt.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Target sheet:     %s\n", s.SheetName)
	fmt.Fprintf(&b, "Mode:             %s\n", s.Mode())
	fmt.Fprintf(&b, "Rows to upload:   %d\n", s.Rows)
	fmt.Fprintf(&b, "Unique products:  %d\n", s.DistinctKeys)
	fmt.Fprintf(&b, "Unique branches:  %d\n", s.DistinctGroups)
	fmt.Fprintf(&b, "Mapping:          %s\n", s.Strategy)
	fmt.Fprintf(&b, "Verbatim:         %t\n", s.Verbatim)
	fmt.Fprintf(&b, "Columns:          %s\n", strings.Join(s.Columns, ", "))
	if len(s.Sample) > 0 {
		fmt.Fprintf(&b, "First row:        %s\n", strings.Join(s.Sample, " | "))
	}
	if s.Overwrite {
		b.WriteString("All existing rows in the sheet will be deleted first.\n")
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Confirmer asks the operator to approve an upload.
type Confirmer interface {
	Confirm(ctx context.Context, summary Summary) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, summary Summary) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, summary Summary) (bool, error) {
	return f(ctx, summary)
}

// AutoConfirm approves every upload.
var AutoConfirm = ConfirmFunc(func(context.Context, Summary) (bool, error) { return true, nil })
