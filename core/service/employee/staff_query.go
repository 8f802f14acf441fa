package employee

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"staff_server/core/domain"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps page*MaxLimit well inside a 32-bit int.
	MaxPage = 1 << 20

	// SearchLimit caps the number of search hits returned.
	SearchLimit = 100
	DefaultSort = "-createdAt"
)

// =============================================================================
// Field allow-list
// =============================================================================

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindDate
)

// filterableFields may appear in filters and sort keys.
var filterableFields = map[string]fieldKind{
	"employeeId":             kindString,
	"firstName":              kindString,
	"lastName":               kindString,
	"email":                  kindString,
	"phone":                  kindString,
	"department":             kindString,
	"position":               kindString,
	"status":                 kindString,
	"salary":                 kindNumber,
	"hireDate":               kindDate,
	"createdAt":              kindDate,
	"updatedAt":              kindDate,
	"address.city":           kindString,
	"address.state":          kindString,
	"address.country":        kindString,
	"address.zipCode":        kindString,
	"emergencyContact.name":  kindString,
	"emergencyContact.phone": kindString,
}

// selectableFields extends the filterable set with whole sub-documents.
var selectableFields = func() map[string]bool {
	m := map[string]bool{
		"id":               true,
		"fullName":         true,
		"photo":            true,
		"address":          true,
		"emergencyContact": true,
		"createdBy":        true,
		"updatedBy":        true,
	}
	for f := range filterableFields {
		m[f] = true
	}
	return m
}()

// reservedParams control the query shape and are never filters.
var reservedParams = map[string]bool{
	"select": true,
	"sort":   true,
	"page":   true,
	"limit":  true,
}

var operators = map[string]domain.FilterOp{
	"gt":  domain.OpGt,
	"gte": domain.OpGte,
	"lt":  domain.OpLt,
	"lte": domain.OpLte,
	"in":  domain.OpIn,
}

// bracketKey matches field[op].
var bracketKey = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9.]*)\[([A-Za-z]+)\]$`)

// =============================================================================
// List queries
// =============================================================================

// TranslateList turns request parameters into a store query. Unknown fields,
// unknown operators and values that do not fit the field type are dropped.
func TranslateList(params url.Values) *domain.EmployeeQuery {
	q := &domain.EmployeeQuery{
		Page:  positiveInt(params.Get("page"), DefaultPage),
		Limit: positiveInt(params.Get("limit"), DefaultLimit),
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}

	q.Conditions = translateConditions(params)
	q.Projection = translateSelect(params.Get("select"))
	q.Sort = translateSort(params.Get("sort"))
	return q
}

func translateConditions(params url.Values) []domain.Condition {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []domain.Condition
	for _, key := range keys {
		if reservedParams[key] || strings.Contains(key, "$") {
			continue
		}

		field, op := key, domain.OpEq
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			var ok bool
			if op, ok = operators[strings.ToLower(m[2])]; !ok {
				continue
			}
			field = m[1]
		} else if strings.ContainsAny(key, "[]") {
			continue
		}

		kind, ok := filterableFields[field]
		if !ok {
			continue
		}

		values := params[key]
		if op == domain.OpEq && len(values) > 1 {
			op = domain.OpIn
		}

		if cond, ok := buildCondition(field, op, kind, values); ok {
			conds = append(conds, cond)
		}
	}
	return conds
}

func buildCondition(field string, op domain.FilterOp, kind fieldKind, values []string) (domain.Condition, bool) {
	if op == domain.OpIn {
		var items []any
		for _, raw := range values {
			for _, part := range strings.Split(raw, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if v, ok := coerce(kind, part); ok {
					items = append(items, v)
				}
			}
		}
		if len(items) == 0 {
			return domain.Condition{}, false
		}
		return domain.Condition{Field: field, Op: op, Value: items}, true
	}

	if len(values) == 0 {
		return domain.Condition{}, false
	}
	v, ok := coerce(kind, strings.TrimSpace(values[len(values)-1]))
	if !ok {
		return domain.Condition{}, false
	}
	return domain.Condition{Field: field, Op: op, Value: v}, true
}

func coerce(kind fieldKind, raw string) (any, bool) {
	switch kind {
	case kindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case kindDate:
		for _, layout := range domain.TimeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), true
			}
		}
		return nil, false
	default:
		if raw == "" {
			return nil, false
		}
		return raw, true
	}
}

func translateSelect(raw string) []string {
	if raw == "" {
		return nil
	}
	var fields []string
	seen := map[string]bool{}
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if !selectableFields[f] || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields
}

func translateSort(raw string) []domain.SortField {
	var out []domain.SortField
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		desc := strings.HasPrefix(f, "-")
		f = strings.TrimPrefix(f, "-")
		if _, ok := filterableFields[f]; !ok {
			continue
		}
		out = append(out, domain.SortField{Field: f, Desc: desc})
	}
	if len(out) == 0 {
		return translateSort(DefaultSort)
	}
	return out
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Paginate returns links to the neighbouring pages that hold records.
// page*limit < total is evaluated as page < ceil(total/limit) so large pages
// cannot overflow.
func Paginate(page, limit int, total int64) domain.Pagination {
	var p domain.Pagination
	if limit > 0 && total > 0 && int64(page) < (total+int64(limit)-1)/int64(limit) {
		p.Next = &domain.PageRef{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		p.Prev = &domain.PageRef{Page: page - 1, Limit: limit}
	}
	return p
}

// =============================================================================
// Search
// =============================================================================

// TranslateSearch reads the free-text term and the optional exact filters.
func TranslateSearch(params url.Values) *domain.SearchQuery {
	return &domain.SearchQuery{
		Text:       strings.TrimSpace(params.Get("q")),
		Department: domain.Department(strings.TrimSpace(params.Get("department"))),
		Status:     domain.EmployeeStatus(strings.TrimSpace(params.Get("status"))),
		Limit:      SearchLimit,
	}
}
