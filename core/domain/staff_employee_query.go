package domain

import (
	"math"
	"time"
)

// FilterOp is a comparison understood by the employee store.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGt  FilterOp = "gt"
	OpGte FilterOp = "gte"
	OpLt  FilterOp = "lt"
	OpLte FilterOp = "lte"
	OpIn  FilterOp = "in"
)

// Condition restricts one field. Value holds a string, float64 or time.Time,
// or a slice of those for OpIn.
type Condition struct {
	Field string
	Op    FilterOp
	Value any
}

type SortField struct {
	Field string
	Desc  bool
}

// EmployeeQuery is a validated list query ready for the store.
type EmployeeQuery struct {
	Conditions []Condition
	Projection []string
	Sort       []SortField
	Page       int
	Limit      int
}

// Skip is the number of records before the requested page. It saturates
// instead of overflowing.
func (q *EmployeeQuery) Skip() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// SearchQuery is a free-text search across name, email and employee id.
type SearchQuery struct {
	Text       string
	Department Department
	Status     EmployeeStatus
	Limit      int
}

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination links to the neighbouring pages that exist.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// TimeLayouts are the accepted encodings for date filters.
var TimeLayouts = []string{time.RFC3339, "2006-01-02"}
