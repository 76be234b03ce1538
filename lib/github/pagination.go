// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import gh "github.com/google/go-github/v57/github"

// collect fetches every page and returns all items concatenated. On
// error the items fetched so far are returned alongside it.
func collect[T any](fetch func(options *gh.ListOptions) ([]T, *gh.Response, error)) ([]T, error) {
	var all []T
	_, _, err := walk(fetch, func(item T) bool {
		all = append(all, item)
		return false
	})
	return all, err
}

// find fetches pages until match returns true for an item, and returns
// that item. Pages after the match are never requested.
func find[T any](fetch func(options *gh.ListOptions) ([]T, *gh.Response, error), match func(T) bool) (T, bool, error) {
	return walk(fetch, match)
}

// walk pages through a paginated endpoint until visit returns true.
// go-github parses the Link header into Response.NextPage, which is
// zero on the last page.
func walk[T any](fetch func(options *gh.ListOptions) ([]T, *gh.Response, error), visit func(T) bool) (T, bool, error) {
	var zero T
	options := &gh.ListOptions{PerPage: listPageSize}
	for {
		items, response, err := fetch(options)
		if err != nil {
			return zero, false, convertError(err)
		}
		for _, item := range items {
			if visit(item) {
				return item, true, nil
			}
		}
		if response == nil || response.NextPage == 0 {
			return zero, false, nil
		}
		options.Page = response.NextPage
	}
}
