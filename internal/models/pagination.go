package models

import (
	"errors"
	"fmt"
)

// ErrInvalidPage is returned when a page window is malformed.
var ErrInvalidPage = errors.New("invalid page window")

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Page is one window of an ordered result set plus the size of the whole set.
type Page[T any] struct {
	Items        []T `json:"items"`
	TotalRecords int `json:"total_records"`
	PageNumber   int `json:"page_number"`
	PageSize     int `json:"page_size"`
}

// NewPage validates the window and builds the envelope.
func NewPage[T any](items []T, totalRecords, pageNumber, pageSize int) (*Page[T], error) {
	if pageNumber < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page %d size %d", ErrInvalidPage, pageNumber, pageSize)
	}
	if len(items) > pageSize {
		return nil, fmt.Errorf("%w: %d items exceed page size %d", ErrInvalidPage, len(items), pageSize)
	}
	if totalRecords < len(items) {
		return nil, fmt.Errorf("%w: total %d below item count %d", ErrInvalidPage, totalRecords, len(items))
	}
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, TotalRecords: totalRecords, PageNumber: pageNumber, PageSize: pageSize}, nil
}

// TotalPages returns ceil(TotalRecords / PageSize).
func (p *Page[T]) TotalPages() int {
	if p == nil || p.PageSize < 1 {
		return 0
	}
	return (p.TotalRecords + p.PageSize - 1) / p.PageSize
}

// Pagination converts the envelope into response metadata.
func (p *Page[T]) Pagination() *Pagination {
	if p == nil {
		return nil
	}
	return &Pagination{Page: p.PageNumber, PageSize: p.PageSize, TotalCount: p.TotalRecords, TotalPages: p.TotalPages()}
}
