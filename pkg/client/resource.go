package client

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/ArtemZhigarev/woo-lister/pkg/credentials"
	"github.com/ArtemZhigarev/woo-lister/pkg/pagination"
)

// Resource is a typed pagination.Source over one collection path.
type Resource[T any] struct {
	client      *Client
	path        string
	filterParam string
}

// NewResource binds a collection path. filterParam names the query parameter
// that carries the loader's filter; empty means the resource is not filterable.
func NewResource[T any](c *Client, resourcePath, filterParam string) *Resource[T] {
	return &Resource[T]{
		client:      c,
		path:        resourcePath,
		filterParam: filterParam,
	}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

// FetchPage implements pagination.Source.
func (r *Resource[T]) FetchPage(ctx context.Context, creds credentials.Credentials, req pagination.PageRequest) ([]T, error) {
	raw, err := r.client.FetchPage(ctx, creds, r.path, req, r.filterParam)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(raw))
	for i, msg := range raw {
		var item T
		if err := json.Unmarshal(msg, &item); err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return nil, &FetchError{
				StatusCode: 200,
				Class:      ErrorClassDecode,
				Message:    fmt.Sprintf("Unexpected %s record at position %d: %v", path.Base(r.path), i, err),
				Err:        err,
			}
		}
		items = append(items, item)
	}

	return items, nil
}
