package domain

import "math"

const (
	DefaultPerPage = 20
	MaxPerPage     = 200

	// MaxPage keeps (Page-1)*PerPage within int.
	MaxPage = math.MaxInt / MaxPerPage
)

// PageRequest selects a 1-based page of a listing.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize clamps page values to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalItems int
	TotalPages int
}

// NewPage builds a page descriptor from items and the total count.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + req.PerPage - 1) / req.PerPage
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
