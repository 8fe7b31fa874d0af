// Package woo binds the list loader to the WooCommerce orders and customers
// collections.
package woo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the format of WooCommerce date fields (site-local, no zone).
const DateLayout = "2006-01-02T15:04:05"

// Order is one row of the orders collection.
type Order struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	Status      string          `json:"status"`
	DateCreated string          `json:"date_created"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	CustomerID  int64           `json:"customer_id"`

	// totalText keeps a total that is not a number so it can still be shown.
	totalText string
}

// UnmarshalJSON decodes an order leniently: a blank, null or non-numeric
// total does not fail the order (and with it the whole page).
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	aux := struct {
		*plain
		Total json.RawMessage `json:"total"`
	}{plain: (*plain)(o)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	o.Total, o.totalText = parseTotal(aux.Total)
	return nil
}

// parseTotal accepts the string form WooCommerce sends as well as a bare number.
func parseTotal(raw json.RawMessage) (decimal.Decimal, string) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, ""
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, text
	}
	return d, ""
}

// Created parses DateCreated.
func (o Order) Created() (time.Time, error) {
	t, err := time.Parse(DateLayout, o.DateCreated)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date_created %q: %w", o.DateCreated, err)
	}
	return t, nil
}

// CreatedDate formats DateCreated as a date, or returns it unchanged when it
// cannot be parsed.
func (o Order) CreatedDate() string {
	t, err := o.Created()
	if err != nil {
		return o.DateCreated
	}
	return t.Format("2006-01-02")
}

// FormattedTotal renders the total with two decimals and the currency code.
func (o Order) FormattedTotal() string {
	total := o.Total.StringFixed(2)
	if o.totalText != "" {
		total = o.totalText
	}
	if o.Currency == "" {
		return total
	}
	return total + " " + o.Currency
}

// Customer is one row of the customers collection.
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName joins first and last name, falling back to the username.
func (c Customer) FullName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Username
	}
	return name
}

// OrderID is the identity used to deduplicate orders.
func OrderID(o Order) int64 { return o.ID }

// CustomerID is the identity used to deduplicate customers.
func CustomerID(c Customer) int64 { return c.ID }
