package veracode

import (
	"context"
	"iter"
	"maps"
	"net/url"
	"strconv"
)

// pageInfo is the HAL page block.
type pageInfo struct {
	Number        int `json:"number"`
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
	TotalPages    int `json:"total_pages"`
}

// envelope is one HAL list page. The platform omits _embedded when a
// page is empty.
type envelope[T any] struct {
	Embedded map[string][]T `json:"_embedded"`
	Page     *pageInfo      `json:"page"`
}

// Pager walks a paginated list resource. It holds no cursor: every call
// to All starts again from the first page.
type Pager[T any] struct {
	c        *Client
	resource string
	path     string
	query    url.Values
	key      string
	check    func(*T) error
}

func newPager[T any](c *Client, resource, path string, query url.Values, key string, check func(*T) error) *Pager[T] {
	return &Pager[T]{c: c, resource: resource, path: path, query: query, key: key, check: check}
}

// All yields every record across pages. Iteration stops at the first
// error, which is yielded with a zero record.
func (p *Pager[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for page := 0; ; page++ {
			q := maps.Clone(p.query)
			if q == nil {
				q = url.Values{}
			}
			q.Set("page", strconv.Itoa(page))
			q.Set("size", strconv.Itoa(p.c.pageSize))

			var env envelope[T]
			if err := p.c.getJSON(ctx, p.resource, p.path, q, &env); err != nil {
				yield(zero, err)
				return
			}
			items := env.Embedded[p.key]
			for i := range items {
				if p.check != nil {
					if err := p.check(&items[i]); err != nil {
						yield(zero, err)
						return
					}
				}
				if !yield(items[i], nil) {
					return
				}
			}
			if env.Page == nil || len(items) == 0 || page+1 >= env.Page.TotalPages {
				return
			}
		}
	}
}

// Collect drains a pager.
func Collect[T any](ctx context.Context, p *Pager[T]) ([]T, error) {
	var out []T
	for item, err := range p.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
