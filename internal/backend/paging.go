package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

// DefaultPageSize is the page limit used for full snapshot fetches.
const DefaultPageSize = 500

// maxPages bounds a runaway backend that keeps sending full pages.
const maxPages = 10000

// FetchAll collects every item behind a paged collection endpoint. Each page
// is requested as path?limit=<limit>&page=<n>. Paging stops on an explicit
// hasNext=false or on a page shorter than limit; a full page without hasNext
// is taken to mean more pages follow.
func FetchAll[T any](ctx context.Context, c *Client, path string, limit int) ([]T, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	var all []T
	for page := 1; page <= maxPages; page++ {
		var raw json.RawMessage
		if err := c.Do(ctx, http.MethodGet, pageURL(path, limit, page), nil, &raw); err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", path, page, err)
		}
		c.metrics.SnapshotPages.Inc()

		items, hasNext, err := decodePage[T](raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", path, page, err)
		}
		all = append(all, items...)

		if len(items) == 0 {
			break
		}
		if hasNext != nil {
			if !*hasNext {
				break
			}
			continue
		}
		if len(items) < limit {
			break
		}
	}
	return all, nil
}

func pageURL(path string, limit, page int) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}, "page": {strconv.Itoa(page)}}
	return path + sep + q.Encode()
}

// decodePage accepts a bare array or a Page envelope. hasNext is nil when
// the response does not say.
func decodePage[T any](raw json.RawMessage) ([]T, *bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil, nil
	}
	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, nil, err
		}
		return items, nil, nil
	}
	var page domain.Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, nil, err
	}
	if page.Pagination == nil {
		return page.Data, nil, nil
	}
	return page.Data, page.Pagination.HasNext, nil
}

// decodeList accepts a bare array or a {data: [...]} envelope.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	items, _, err := decodePage[T](raw)
	return items, err
}
