// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// PageIterator lazily fetches pages of results from a paginated GitHub
// API endpoint. Each call to Next fetches one page. Returns nil, nil
// once every page has been consumed.
//
// The iterator is not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
	done    bool
}

// Next fetches the next page of results.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.done || iterator.nextURL == "" {
		return nil, nil
	}

	response, err := iterator.client.doRaw(ctx, http.MethodGet, iterator.nextURL, nil)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, parseAPIError(response)
	}

	var items []T
	if err := json.NewDecoder(response.Body).Decode(&items); err != nil {
		return nil, err
	}

	iterator.nextURL = parseLinkNext(response.Header.Get("Link"))
	if iterator.nextURL == "" {
		iterator.done = true
	}
	return items, nil
}

// CollectFunc fetches pages until limit items satisfying keep have been
// gathered (limit <= 0 means no limit) or the pages run out. Items for
// which keep returns false are dropped and do not count toward limit.
// No further page is requested once the limit is reached.
func (iterator *PageIterator[T]) CollectFunc(ctx context.Context, limit int, keep func(T) bool) ([]T, error) {
	var all []T
	for {
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		if items == nil {
			return all, nil
		}
		for _, item := range items {
			if !keep(item) {
				continue
			}
			all = append(all, item)
			if limit > 0 && len(all) == limit {
				return all, nil
			}
		}
	}
}

// parseLinkNext extracts the URL with rel="next" from an RFC 5988 Link
// header, or "" if there is none.
//
// Format: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	for _, part := range strings.Split(header, ",") {
		urlPart, relPart, found := strings.Cut(strings.TrimSpace(part), ";")
		if !found || !strings.Contains(relPart, `rel="next"`) {
			continue
		}
		urlPart = strings.TrimSpace(urlPart)
		if strings.HasPrefix(urlPart, "<") && strings.HasSuffix(urlPart, ">") {
			return urlPart[1 : len(urlPart)-1]
		}
	}
	return ""
}
