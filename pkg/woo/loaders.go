package woo

import (
	"fmt"

	"github.com/ArtemZhigarev/woo-lister/pkg/client"
	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/ArtemZhigarev/woo-lister/pkg/pagination"
)

// Collection paths, relative to the store's endpoint URL.
const (
	OrdersPath    = "wp-json/wc/v3/orders"
	CustomersPath = "wp-json/wc/v3/customers"
)

// CustomerFilterParam is the query parameter the customers filter is sent as.
const CustomerFilterParam = "email"

// Resource names used for logs, metrics and the HTTP API.
const (
	ResourceOrders    = "orders"
	ResourceCustomers = "customers"
)

// NewOrdersLoader creates a loader over all orders. Orders take no filter.
func NewOrdersLoader(provider credentials.Provider, c *client.Client, cfg pagination.Config[Order]) (*pagination.Loader[Order, int64], error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Name == "" {
		cfg.Name = ResourceOrders
	}

	return pagination.New[Order, int64](provider, client.NewResource[Order](c, OrdersPath, ""), OrderID, cfg)
}

// NewCustomersLoader creates a loader over customers, filtered by email.
func NewCustomersLoader(provider credentials.Provider, c *client.Client, cfg pagination.Config[Customer]) (*pagination.Loader[Customer, int64], error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Name == "" {
		cfg.Name = ResourceCustomers
	}

	return pagination.New[Customer, int64](provider, client.NewResource[Customer](c, CustomersPath, CustomerFilterParam), CustomerID, cfg)
}
