package model

import (
	"math"
	"strings"
)

// Pagination limits
const (
	DefaultPageSize = 10
	MaxPageSize     = 50

	// MaxOffset bounds (page-1)*size; pages past it are empty.
	MaxOffset = math.MaxInt32
)

// PageRequest is a validated page/limit pair. Build it once at the boundary with
// NewPageRequest; code deeper in the pipeline never sees raw values.
type PageRequest struct {
	page int
	size int
}

// NewPageRequest clamps page to [1, MaxOffset/size+1] and size to [1, MaxPageSize].
// A non-positive size falls back to DefaultPageSize.
func NewPageRequest(page, size int) PageRequest {
	return NewPageRequestWithCap(page, size, MaxPageSize)
}

// NewPageRequestWithCap is NewPageRequest with a configurable upper bound.
func NewPageRequestWithCap(page, size, maxSize int) PageRequest {
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > maxSize {
		size = maxSize
	}
	if lastPage := MaxOffset/size + 1; page > lastPage {
		page = lastPage
	}
	return PageRequest{page: page, size: size}
}

func (p PageRequest) Page() int { return max(p.page, 1) }

func (p PageRequest) Size() int {
	if p.size <= 0 {
		return DefaultPageSize
	}
	return p.size
}

// Offset is the number of rows to skip.
func (p PageRequest) Offset() int { return (p.Page() - 1) * p.Size() }

// Page is one page of a paginated result. Items is never nil.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasMore  bool  `json:"has_more"`
}

// NewPage assembles a page from its items and the total row count.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Page:     req.Page(),
		PageSize: req.Size(),
		Total:    total,
		HasMore:  int64(req.Offset()+len(items)) < total,
	}
}

// SortOrder is the creation-time ordering of a listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder accepts asc/desc (any case); anything else means newest first.
func ParseSortOrder(raw string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}
