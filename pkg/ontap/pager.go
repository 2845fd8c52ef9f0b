package ontap

import (
	"context"
	"encoding/json"
	"fmt"
)

// Page is one page of a paginated collection.
type Page struct {
	Records    []json.RawMessage `json:"records"`
	NumRecords int               `json:"num_records"`
	Links      struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

// Pager walks a paginated collection lazily, one page per Next call. A
// non-200 page or transport failure stops the walk; callers must treat the
// whole collection as unusable when Err returns non-nil.
type Pager struct {
	client  *Client
	next    string
	done    bool
	current *Page
	err     error
}

// Pages starts a walk at path.
func (c *Client) Pages(path string) *Pager {
	return &Pager{client: c, next: path}
}

// Next fetches the next page. It returns false when the collection is
// exhausted or an error occurred.
func (p *Pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	res, err := p.client.Get(ctx, p.next, 0)
	if err != nil {
		p.err = err
		return false
	}
	if !res.OK() {
		p.err = &StatusError{Path: p.next, Status: res.Status}
		return false
	}
	var page Page
	if err := json.Unmarshal(res.Body, &page); err != nil {
		p.err = fmt.Errorf("failed to decode page %s: %w", p.next, err)
		return false
	}
	p.current = &page
	if page.Links.Next.Href == "" {
		p.done = true
	} else {
		p.next = page.Links.Next.Href
	}
	return true
}

// Page returns the page fetched by the last successful Next call.
func (p *Pager) Page() *Page {
	return p.current
}

// Err returns the error that stopped the walk, if any.
func (p *Pager) Err() error {
	return p.err
}

// Collect walks every page of a paginated collection and decodes each record
// into T. Any failed page fails the whole collection.
func Collect[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	p := c.Pages(path)
	for p.Next(ctx) {
		for _, raw := range p.Page().Records {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("failed to decode record from %s: %w", path, err)
			}
			out = append(out, v)
		}
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
