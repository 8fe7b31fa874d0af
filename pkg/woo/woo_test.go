package woo

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ArtemZhigarev/woo-lister/internal/testutil"
	"github.com/ArtemZhigarev/woo-lister/pkg/client"
	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/ArtemZhigarev/woo-lister/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*testutil.MockStore, credentials.Provider, *client.Client) {
	t.Helper()

	store := testutil.NewMockStore("ck_test", "cs_test")
	t.Cleanup(store.Close)

	c, err := client.New(client.DefaultConfig("woo-lister-test/1.0.0"))
	require.NoError(t, err)

	provider := credentials.NewStoreProvider(credentials.NewMemoryStore(map[string]string{
		credentials.KeyEndpointURL: store.URL() + "/",
		credentials.KeyAPIKey:      "ck_test",
		credentials.KeyAPISecret:   "cs_test",
	}))

	return store, provider, c
}

func TestOrder_Decode(t *testing.T) {
	raw := `{"id":727,"number":"727","status":"processing","date_created":"2024-03-05T14:31:02",
		"total":"29.35","currency":"USD","customer_id":26,"line_items":[]}`

	var o Order
	require.NoError(t, json.Unmarshal([]byte(raw), &o))

	assert.Equal(t, int64(727), o.ID)
	assert.Equal(t, "727", o.Number)
	assert.Equal(t, "processing", o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("29.35")))
	assert.Equal(t, int64(26), o.CustomerID)
	assert.Equal(t, "29.35 USD", o.FormattedTotal())
	assert.Equal(t, "2024-03-05", o.CreatedDate())

	created, err := o.Created()
	require.NoError(t, err)
	assert.Equal(t, 14, created.Hour())
}

func TestOrder_DecodeLenientTotal(t *testing.T) {
	tests := []struct {
		name      string
		total     string
		formatted string
	}{
		{name: "blank", total: `""`, formatted: "0.00 EUR"},
		{name: "null", total: `null`, formatted: "0.00 EUR"},
		{name: "bare number", total: `12.5`, formatted: "12.50 EUR"},
		{name: "padded string", total: `" 7.1 "`, formatted: "7.10 EUR"},
		{name: "not a number", total: `"n/a"`, formatted: "n/a EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"id":1,"number":"1","currency":"EUR","total":` + tt.total + `}`

			var o Order
			require.NoError(t, json.Unmarshal([]byte(raw), &o))
			assert.Equal(t, int64(1), o.ID)
			assert.Equal(t, tt.formatted, o.FormattedTotal())
		})
	}
}

func TestOrdersLoader_BlankTotalDoesNotFailPage(t *testing.T) {
	store, provider, c := setup(t)
	records := testutil.Orders(1, 3)
	records[1]["total"] = ""
	store.SetOrders(records)

	loader, err := NewOrdersLoader(provider, c, pagination.Config[Order]{})
	require.NoError(t, err)

	loader.Init(context.Background())

	s := loader.State()
	require.Empty(t, s.Err)
	require.Len(t, s.Items, 3)
	assert.True(t, s.Items[1].Total.IsZero())
	assert.Equal(t, "11.90 EUR", s.Items[0].FormattedTotal())
}

func TestOrder_DateFallback(t *testing.T) {
	o := Order{DateCreated: "yesterday"}

	_, err := o.Created()
	assert.Error(t, err)
	assert.Equal(t, "yesterday", o.CreatedDate())
}

func TestOrder_FormattedTotal(t *testing.T) {
	tests := []struct {
		name     string
		order    Order
		expected string
	}{
		{name: "pads decimals", order: Order{Total: decimal.RequireFromString("5"), Currency: "EUR"}, expected: "5.00 EUR"},
		{name: "no currency", order: Order{Total: decimal.RequireFromString("12.5")}, expected: "12.50"},
		{name: "zero", order: Order{}, expected: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.order.FormattedTotal())
		})
	}
}

func TestCustomer_FullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", Customer{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", Customer{FirstName: "Jane"}.FullName())
	assert.Equal(t, "jdoe", Customer{Username: "jdoe"}.FullName())
}

func TestNewLoaders_RequireClient(t *testing.T) {
	provider := credentials.StaticProvider{BaseURL: "https://shop.example.com", Username: "ck", Password: "cs"}

	_, err := NewOrdersLoader(provider, nil, pagination.Config[Order]{})
	assert.Error(t, err)

	_, err = NewCustomersLoader(provider, nil, pagination.Config[Customer]{})
	assert.Error(t, err)
}

func TestOrdersLoader_LoadsAllPages(t *testing.T) {
	store, provider, c := setup(t)
	store.SetOrders(testutil.Orders(1, 45))

	loader, err := NewOrdersLoader(provider, c, pagination.Config[Order]{})
	require.NoError(t, err)
	assert.Equal(t, ResourceOrders, loader.Name())

	ctx := context.Background()
	loader.Init(ctx)
	for loader.LoadMore(ctx) {
	}

	s := loader.State()
	require.Empty(t, s.Err)
	assert.Len(t, s.Items, 45)
	assert.Equal(t, 3, s.Page)
	assert.False(t, s.HasMore)
	assert.Equal(t, int64(1), s.Items[0].ID)
	assert.Equal(t, int64(45), s.Items[44].ID)

	for _, q := range store.Queries() {
		assert.Equal(t, "20", q.Get("per_page"))
		assert.False(t, q.Has("email"))
	}
}

func TestOrdersLoader_ExactMultipleNeedsExtraRequest(t *testing.T) {
	store, provider, c := setup(t)
	store.SetOrders(testutil.Orders(1, 40))

	loader, err := NewOrdersLoader(provider, c, pagination.Config[Order]{})
	require.NoError(t, err)

	ctx := context.Background()
	loader.Init(ctx)
	require.True(t, loader.LoadMore(ctx))
	assert.True(t, loader.State().HasMore, "a full page cannot tell that it is the last one")

	require.True(t, loader.LoadMore(ctx))
	s := loader.State()
	assert.False(t, s.HasMore)
	assert.Len(t, s.Items, 40)
	assert.Equal(t, 3, store.GetRequestCount())
}

func TestCustomersLoader_EmailFilter(t *testing.T) {
	store, provider, c := setup(t)
	store.SetCustomers(testutil.Customers(1, 30))

	loader, err := NewCustomersLoader(provider, c, pagination.Config[Customer]{})
	require.NoError(t, err)
	ctx := context.Background()

	loader.Reset(ctx, "customer7@example.com")

	s := loader.State()
	require.Empty(t, s.Err)
	require.Len(t, s.Items, 1)
	assert.Equal(t, int64(7), s.Items[0].ID)
	assert.Equal(t, "Customer 7", s.Items[0].FullName())
	assert.False(t, s.HasMore)

	queries := store.Queries()
	assert.Equal(t, "customer7@example.com", queries[len(queries)-1].Get("email"))

	loader.Reset(ctx, "")
	s = loader.State()
	assert.Len(t, s.Items, 20)
	assert.True(t, s.HasMore)
}

func TestCustomersLoader_NoMatches(t *testing.T) {
	store, provider, c := setup(t)
	store.SetCustomers(testutil.Customers(1, 5))

	loader, err := NewCustomersLoader(provider, c, pagination.Config[Customer]{})
	require.NoError(t, err)

	loader.Reset(context.Background(), "nobody@example.com")

	s := loader.State()
	assert.Empty(t, s.Err)
	assert.Empty(t, s.Items)
	assert.False(t, s.HasMore)
}

func TestLoader_WrongKeys(t *testing.T) {
	store := testutil.NewMockStore("ck_real", "cs_real")
	defer store.Close()
	store.SetOrders(testutil.Orders(1, 5))

	c, err := client.New(client.DefaultConfig("woo-lister-test/1.0.0"))
	require.NoError(t, err)
	provider := credentials.StaticProvider{BaseURL: store.URL(), Username: "ck_wrong", Password: "cs_wrong"}

	loader, err := NewOrdersLoader(provider, c, pagination.Config[Order]{})
	require.NoError(t, err)

	loader.Init(context.Background())

	s := loader.State()
	assert.Equal(t, "Sorry, you cannot list resources.", s.Err)
	assert.Empty(t, s.Items)
	assert.True(t, s.HasMore)
}

func TestLoader_ServerErrorThenRetry(t *testing.T) {
	store, provider, c := setup(t)
	store.SetOrders(testutil.Orders(1, 25))

	loader, err := NewOrdersLoader(provider, c, pagination.Config[Order]{})
	require.NoError(t, err)
	ctx := context.Background()

	loader.Init(ctx)
	require.Len(t, loader.State().Items, 20)

	store.SetResponse(testutil.OrdersPath, testutil.NewHTMLErrorResponse())
	require.True(t, loader.LoadMore(ctx))

	s := loader.State()
	assert.Equal(t, "Request failed with status code 502", s.Err)
	assert.Len(t, s.Items, 20)
	assert.Equal(t, 2, s.Page)

	store.ClearHandler(testutil.OrdersPath)
	require.True(t, loader.Retry(ctx))

	s = loader.State()
	assert.Empty(t, s.Err)
	assert.Len(t, s.Items, 25)
	assert.False(t, s.HasMore)
}

func TestLoader_MissingSettingsMakesNoRequest(t *testing.T) {
	store, _, c := setup(t)
	store.SetOrders(testutil.Orders(1, 5))

	provider := credentials.NewStoreProvider(credentials.NewMemoryStore(map[string]string{
		credentials.KeyEndpointURL: store.URL(),
		credentials.KeyAPIKey:      "ck_test",
	}))

	loader, err := NewOrdersLoader(provider, c, pagination.Config[Order]{})
	require.NoError(t, err)

	loader.Init(context.Background())

	assert.Equal(t, credentials.NotConfiguredMessage, loader.State().Err)
	assert.Equal(t, 0, store.GetRequestCount())
}
