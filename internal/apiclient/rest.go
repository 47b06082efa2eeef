package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListParams are the query parameters accepted by collection endpoints.
type ListParams struct {
	Limit   int
	Offset  int
	Sort    string
	Order   string // "asc" or "desc"
	Filters map[string]string
}

// Values encodes the parameters, omitting zero values.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	for key, value := range p.Filters {
		v.Set(key, value)
	}
	return v
}

// List fetches GET /{resource} with pagination, sorting and filters.
func (c *Client) List(ctx context.Context, resource string, params ListParams, out any) error {
	return c.Do(ctx, http.MethodGet, resource, nil, out, WithQuery(params.Values()))
}

// Get fetches GET /{resource}/{id}.
func (c *Client) Get(ctx context.Context, resource, id string, out any) error {
	return c.Do(ctx, http.MethodGet, itemPath(resource, id), nil, out)
}

// Create sends POST /{resource}.
func (c *Client) Create(ctx context.Context, resource string, body, out any) error {
	return c.Do(ctx, http.MethodPost, resource, body, out)
}

// Update sends PATCH /{resource}/{id}.
func (c *Client) Update(ctx context.Context, resource, id string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, itemPath(resource, id), body, out)
}

// Delete sends DELETE /{resource}/{id}.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.Do(ctx, http.MethodDelete, itemPath(resource, id), nil, nil)
}

// Action sends POST /{resource}/{id}/{action}.
func (c *Client) Action(ctx context.Context, resource, id, action string, body, out any) error {
	return c.Do(ctx, http.MethodPost, itemPath(resource, id)+"/"+url.PathEscape(action), body, out)
}

func itemPath(resource, id string) string {
	return resource + "/" + url.PathEscape(id)
}
