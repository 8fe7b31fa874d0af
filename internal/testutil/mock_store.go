// Package testutil provides testing utilities for the WooCommerce list loader.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Collection paths served by default, matching the real store layout.
const (
	OrdersPath       = "/wp-json/wc/v3/orders"
	CustomersPath    = "/wp-json/wc/v3/customers"
	SystemStatusPath = "/wp-json/wc/v3/system_status"
)

// Record is one JSON object in a mock collection.
type Record map[string]any

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

type collection struct {
	records []Record
	filters []string
}

// MockStore is a configurable fake WooCommerce REST server for testing.
// Collections are paged with page/per_page exactly like the real API.
type MockStore struct {
	server      *httptest.Server
	mu          sync.RWMutex
	handlers    map[string]http.HandlerFunc
	collections map[string]collection
	username    string
	password    string

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	queries           []url.Values
}

// NewMockStore creates a mock store that accepts the given consumer key and
// secret. Empty credentials disable the auth check.
func NewMockStore(username, password string) *MockStore {
	mock := &MockStore{
		handlers:    make(map[string]http.HandlerFunc),
		collections: make(map[string]collection),
		username:    username,
		password:    password,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.queries = append(mock.queries, r.URL.Query())
		handler, hasHandler := mock.handlers[r.URL.Path]
		coll, hasCollection := mock.collections[r.URL.Path]
		mock.mu.Unlock()

		if !mock.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"code":    "woocommerce_rest_cannot_view",
				"message": "Sorry, you cannot list resources.",
				"data":    map[string]int{"status": http.StatusUnauthorized},
			})
			return
		}

		switch {
		case hasHandler:
			handler(w, r)
		case hasCollection:
			serveCollection(w, r, coll)
		case r.URL.Path == SystemStatusPath:
			writeJSON(w, http.StatusOK, map[string]any{"environment": map[string]string{"version": "8.0.0"}})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{
				"code":    "rest_no_route",
				"message": "No route was found matching the URL and request method.",
				"data":    map[string]int{"status": http.StatusNotFound},
			})
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockStore) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockStore) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.queries = nil
}

// SetHandler sets a custom handler for a specific path. It takes precedence
// over collections.
func (m *MockStore) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockStore) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// ClearHandler removes a handler set with SetHandler or SetResponse.
func (m *MockStore) ClearHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, path)
}

// SetCollection serves records at path. Each name in filters is accepted as a
// query parameter that keeps only records whose field of the same name matches
// (case-insensitive).
func (m *MockStore) SetCollection(path string, records []Record, filters ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[path] = collection{records: records, filters: filters}
}

// SetOrders serves records as the orders collection.
func (m *MockStore) SetOrders(records []Record) {
	m.SetCollection(OrdersPath, records)
}

// SetCustomers serves records as the customers collection, filterable by email.
func (m *MockStore) SetCustomers(records []Record) {
	m.SetCollection(CustomersPath, records, "email")
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockStore) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Queries returns the query parameters of every request so far, in order.
func (m *MockStore) Queries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.queries))
	copy(out, m.queries)
	return out
}

func (m *MockStore) authorized(r *http.Request) bool {
	if m.username == "" && m.password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	return ok && user == m.username && pass == m.password
}

func serveCollection(w http.ResponseWriter, r *http.Request, coll collection) {
	query := r.URL.Query()

	records := coll.records
	for _, field := range coll.filters {
		want := query.Get(field)
		if want == "" {
			continue
		}
		filtered := make([]Record, 0, len(records))
		for _, rec := range records {
			if strings.EqualFold(fmt.Sprint(rec[field]), want) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	page := intParam(query, "page", 1)
	perPage := intParam(query, "per_page", 10)
	if page < 1 || perPage < 1 || perPage > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    "rest_invalid_param",
			"message": "Invalid parameter(s): page, per_page",
			"data":    map[string]int{"status": http.StatusBadRequest},
		})
		return
	}

	start := (page - 1) * perPage
	if start > len(records) {
		start = len(records)
	}
	end := start + perPage
	if end > len(records) {
		end = len(records)
	}

	totalPages := (len(records) + perPage - 1) / perPage
	w.Header().Set("X-WP-Total", strconv.Itoa(len(records)))
	w.Header().Set("X-WP-TotalPages", strconv.Itoa(totalPages))
	body := records[start:end]
	if body == nil {
		body = []Record{}
	}
	writeJSON(w, http.StatusOK, body)
}

func intParam(query url.Values, name string, def int) int {
	raw := query.Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Orders generates order records with ids from..to inclusive.
func Orders(from, to int) []Record {
	records := make([]Record, 0, to-from+1)
	for id := from; id <= to; id++ {
		records = append(records, Record{
			"id":           id,
			"number":       strconv.Itoa(id),
			"status":       "processing",
			"date_created": fmt.Sprintf("2024-03-%02dT10:15:00", id%28+1),
			"total":        fmt.Sprintf("%d.90", 10+id),
			"currency":     "EUR",
			"customer_id":  id%5 + 1,
		})
	}
	return records
}

// Customers generates customer records with ids from..to inclusive.
func Customers(from, to int) []Record {
	records := make([]Record, 0, to-from+1)
	for id := from; id <= to; id++ {
		records = append(records, Record{
			"id":         id,
			"email":      fmt.Sprintf("customer%d@example.com", id),
			"username":   fmt.Sprintf("customer%d", id),
			"first_name": "Customer",
			"last_name":  strconv.Itoa(id),
		})
	}
	return records
}

// NewServerErrorResponse creates a 500 response with a WooCommerce error body.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"code":"internal_server_error","message":"There has been a critical error on this website.","data":{"status":500}}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=UTF-8"},
	}
}

// NewHTMLErrorResponse creates a 502 with a non-JSON body, as a proxy would send.
func NewHTMLErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       "<html><body>Bad Gateway</body></html>",
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}
