/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Page is one window of a query result. Total counts every match of the
// query irrespective of the window.
type Page[T any] struct {
	Content []T
	Total   int64
	Offset  int64
	Size    int64
}

// EmptyPage returns a page without content for the given window.
func EmptyPage[T any](offset, size int64) Page[T] {
	return Page[T]{Content: []T{}, Offset: offset, Size: size}
}

// Number returns the zero-based page index.
func (p Page[T]) Number() int64 {
	if p.Size <= 0 {
		return 0
	}
	return p.Offset / p.Size
}

// TotalPages returns how many pages of Size cover Total.
func (p Page[T]) TotalPages() int64 {
	if p.Size <= 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool {
	return p.Number()+1 < p.TotalPages()
}

// PageRequest is a caller-facing page selector.
type PageRequest struct {
	// Current is the requested page index, counted from FirstPage.
	Current int64 `json:"current" yaml:"current"`
	// Size is the page size; non-positive sizes fall back to DefaultPageSize.
	Size int64 `json:"size" yaml:"size"`
	// OneBased marks Current as counted from 1.
	OneBased bool `json:"oneBasedPage" yaml:"one_based_page"`
	// Sort orders the page content.
	Sort []SortField `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// DefaultPageSize is used when a request carries no usable size.
const DefaultPageSize int64 = 10

// Window converts the request into offset/limit find options, treating
// Current as counted from firstPage unless OneBased says otherwise.
func (r PageRequest) Window(firstPage int) FindOptions {
	if r.OneBased {
		firstPage = 1
	}
	return PageWindow(r.Current, r.Size, firstPage, r.Sort)
}

// PageWindow converts a page number into offset/limit find options. Page
// numbers below firstPage select the first page.
func PageWindow(pageNo, pageSize int64, firstPage int, sort []SortField) FindOptions {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	index := pageNo - int64(firstPage)
	if index < 0 {
		index = 0
	}
	return FindOptions{Sort: sort, Offset: index * pageSize, Limit: pageSize}
}
