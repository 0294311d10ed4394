package core

import (
	"math"
	"time"
)

// DateRange is an inclusive [From, To] filter window. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (dr DateRange) IsZero() bool {
	return dr.From.IsZero() && dr.To.IsZero()
}

// Contains reports whether t falls within the range bounds.
func (dr DateRange) Contains(t time.Time) bool {
	if !dr.From.IsZero() && t.Before(dr.From) {
		return false
	}
	if !dr.To.IsZero() && t.After(dr.To) {
		return false
	}
	return true
}

// Pagination describes one page of a result set.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) Pagination {
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// PageQuery is a page/limit pair bound from query params.
type PageQuery struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

func (pq *PageQuery) Clean() {
	if pq.Page < 1 {
		pq.Page = 1
	}
	if pq.Limit < 1 {
		pq.Limit = 20
	}
}

func (pq PageQuery) Offset() int {
	return (pq.Page - 1) * pq.Limit
}
