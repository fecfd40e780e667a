// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination cuts pages out of in-memory result lists.
//
// # Overview
//
// List endpoints such as the schema listing load the full result set from
// storage and return one window of it. Page bounds are always clamped to the
// slice, so any positive page number is safe to request.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLimit is the upper bound for items per page.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// Params holds the parsed page and limit from a request's query string.
type Params struct {
	Page  int
	Limit int
}

// Window returns the half-open bounds [start, end) of the requested page
// within a list of total items. A page past the end yields the empty window
// [total, total).
func (p Params) Window(total int) (start, end int) {
	if total <= 0 {
		return 0, 0
	}

	limit := p.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if p.Page <= 1 {
		return 0, min(limit, total)
	}

	// Comparing page counts keeps (Page-1)*limit below total+limit.
	if p.Page-1 >= pageCount(total, limit) {
		return total, total
	}

	start = (p.Page - 1) * limit
	return start, min(start+limit, total)
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// NewMeta constructs pagination metadata for a response.
func NewMeta(page, limit, total int) Meta {
	totalPages := pageCount(total, limit)

	return Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page >= 1 && page < totalPages,
	}
}

// Slice returns the page of items selected by params together with its metadata.
func Slice[T any](items []T, params Params) ([]T, Meta) {
	start, end := params.Window(len(items))
	return items[start:end], NewMeta(params.Page, params.Limit, len(items))
}

// FromRequest parses "page" and "limit" query parameters from an HTTP request.
//
// # Clamping
//
// Invalid, negative, or excessive values fall back to [DefaultPage] and
// [DefaultLimit].
func FromRequest(r *http.Request) Params {
	page := parseIntParam(r, "page", DefaultPage)
	limit := parseIntParam(r, "limit", DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}

	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}

	return Params{Page: page, Limit: limit}
}

func pageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}

	return n
}
