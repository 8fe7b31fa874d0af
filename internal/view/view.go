// Package view renders loader state snapshots for a terminal.
package view

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ArtemZhigarev/woo-lister/pkg/pagination"
	"github.com/ArtemZhigarev/woo-lister/pkg/woo"
)

// LoadingMessage is shown while a fetch is in flight.
const LoadingMessage = "Loading…"

// Column is one table column.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Table renders items of one resource.
type Table[T any] struct {
	// Noun names the items in status lines ("orders").
	Noun string

	Columns []Column[T]

	// EmptyMessage is shown when a finished fetch produced no items.
	EmptyMessage string

	// MoreHint is shown after the rows while more pages are available.
	MoreHint string
}

// Render writes the whole list and its status.
func (t Table[T]) Render(w io.Writer, s pagination.State[T]) error {
	return t.RenderFrom(w, s, 0)
}

// RenderFrom writes items[from:] and the status. Used to print only the rows a
// load-more added.
func (t Table[T]) RenderFrom(w io.Writer, s pagination.State[T], from int) error {
	if from < 0 {
		from = 0
	}
	if from > len(s.Items) {
		from = len(s.Items)
	}

	var b strings.Builder

	if s.Err != "" {
		fmt.Fprintf(&b, "Error: %s\n", s.Err)
	}

	if rows := s.Items[from:]; len(rows) > 0 {
		if err := t.writeRows(&b, rows); err != nil {
			return err
		}
	}

	switch {
	case s.Loading:
		b.WriteString(LoadingMessage + "\n")
	case len(s.Items) == 0 && s.Err == "":
		if t.EmptyMessage != "" {
			b.WriteString(t.EmptyMessage + "\n")
		}
	case len(s.Items) > 0:
		fmt.Fprintf(&b, "Showing %d %s (page %d)\n", len(s.Items), t.Noun, s.Page)
		if s.HasMore && s.Err == "" && t.MoreHint != "" {
			b.WriteString(t.MoreHint + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (t Table[T]) writeRows(w io.Writer, rows []T) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	cells := make([]string, len(t.Columns))
	for _, row := range rows {
		for i, col := range t.Columns {
			cells[i] = sanitize(col.Value(row))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	return tw.Flush()
}

// sanitize keeps store-provided text from breaking the table layout.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}

// OrdersTable lists orders the way the store admin does.
func OrdersTable() Table[woo.Order] {
	return Table[woo.Order]{
		Noun: "orders",
		Columns: []Column[woo.Order]{
			{Header: "ORDER", Value: func(o woo.Order) string { return "#" + o.Number }},
			{Header: "STATUS", Value: func(o woo.Order) string { return o.Status }},
			{Header: "CUSTOMER ID", Value: func(o woo.Order) string { return strconv.FormatInt(o.CustomerID, 10) }},
			{Header: "TOTAL", Value: func(o woo.Order) string { return o.FormattedTotal() }},
			{Header: "DATE", Value: func(o woo.Order) string { return o.CreatedDate() }},
		},
		EmptyMessage: "No orders found.",
		MoreHint:     "More orders available.",
	}
}

// CustomersTable lists customers.
func CustomersTable() Table[woo.Customer] {
	return Table[woo.Customer]{
		Noun: "customers",
		Columns: []Column[woo.Customer]{
			{Header: "ID", Value: func(c woo.Customer) string { return strconv.FormatInt(c.ID, 10) }},
			{Header: "NAME", Value: func(c woo.Customer) string { return c.FullName() }},
			{Header: "EMAIL", Value: func(c woo.Customer) string { return c.Email }},
		},
		EmptyMessage: "No customers found. Try searching for a customer by email or check your WooCommerce settings.",
		MoreHint:     "More customers available.",
	}
}
