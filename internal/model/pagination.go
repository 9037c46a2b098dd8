package model

import "math"

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
	// MaxPage keeps (page-1)*per_page within range for any per_page.
	MaxPage = math.MaxInt32

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultSortBy = "created_at"
)

// SortableColumns are the user columns accepted by sort_by.
var SortableColumns = map[string]bool{
	"first_name": true,
	"last_name":  true,
	"email":      true,
	"role":       true,
	"created_at": true,
	"updated_at": true,
}

// UserFilters contains filter parameters for user listing
type UserFilters struct {
	Role   *Role
	Search *string
}

// ListParams is a user listing request after normalization.
type ListParams struct {
	Filters   UserFilters
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// Normalize applies defaults and clamps: unknown sort_by falls back to
// created_at desc, per_page is kept within [1, MaxPerPage] and page within
// [1, MaxPage].
func (p ListParams) Normalize() ListParams {
	if !SortableColumns[p.SortBy] {
		p.SortBy = DefaultSortBy
		p.SortOrder = SortDesc
	}
	if p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		p.SortOrder = SortDesc
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	return p
}

// Offset is the number of rows skipped before the current page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination is the metadata returned with a page of users.
// From and To are nil when the page is empty.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

// NewPagination computes page metadata for count items on the page.
func NewPagination(p ListParams, total int64, count int) Pagination {
	lastPage := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if lastPage < 1 {
		lastPage = 1
	}
	pg := Pagination{
		CurrentPage: p.Page,
		LastPage:    lastPage,
		PerPage:     p.PerPage,
		Total:       total,
	}
	if count > 0 {
		from := p.Offset() + 1
		to := p.Offset() + count
		pg.From = &from
		pg.To = &to
	}
	return pg
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users      []User
	Pagination Pagination
}
