// Package share builds and parses wheel share links. The item list travels
// in the "items" query parameter as a '|'-joined, URI-component-encoded
// string, which the query encoder then escapes a second time. Links made
// by the browser app decode the same way.
package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/randomtoy/wheel-go/internal/domain"
)

const (
	Param     = "items"
	separator = "|"
)

var (
	ErrNoItems         = errors.New("share link carries no items")
	ErrSeparatorInItem = errors.New("item contains the '|' separator")
)

// Encode returns base with the items parameter set, or removed when items
// is empty. Other query parameters are preserved.
func Encode(base string, items []string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	for _, it := range items {
		if strings.Contains(it, separator) {
			return "", fmt.Errorf("%w: %q", ErrSeparatorInItem, it)
		}
	}
	q := u.Query()
	if len(items) == 0 {
		q.Del(Param)
	} else {
		q.Set(Param, url.PathEscape(strings.Join(items, separator)))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Decode extracts the item list from a share link.
func Decode(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse share url: %w", err)
	}
	raw := u.Query().Get(Param)
	if raw == "" {
		return nil, ErrNoItems
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoItems, err)
	}
	items := domain.NormalizeItems(strings.Split(decoded, separator))
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}
