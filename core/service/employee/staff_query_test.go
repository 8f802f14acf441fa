package employee

import (
	"math"
	"net/url"
	"reflect"
	"testing"
	"time"

	"staff_server/core/domain"
)

func TestTranslateList_Defaults(t *testing.T) {
	q := TranslateList(url.Values{})

	if q.Page != 1 || q.Limit != 10 {
		t.Errorf("page/limit = %d/%d, want 1/10", q.Page, q.Limit)
	}
	want := []domain.SortField{{Field: "createdAt", Desc: true}}
	if !reflect.DeepEqual(q.Sort, want) {
		t.Errorf("Sort = %+v, want %+v", q.Sort, want)
	}
	if len(q.Conditions) != 0 || q.Projection != nil {
		t.Errorf("unexpected conditions %+v / projection %v", q.Conditions, q.Projection)
	}
}

func TestTranslateList_PageAndLimit(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
	}{
		{"explicit", "3", "25", 3, 25},
		{"limit capped", "1", "500", 1, MaxLimit},
		{"zero falls back", "0", "0", DefaultPage, DefaultLimit},
		{"negative falls back", "-2", "-5", DefaultPage, DefaultLimit},
		{"garbage falls back", "two", "ten", DefaultPage, DefaultLimit},
		{"huge page clamped", "92233720368547759", "100", MaxPage, MaxLimit},
		{"page beyond int falls back", "99999999999999999999", "10", DefaultPage, DefaultLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := TranslateList(url.Values{"page": {tt.page}, "limit": {tt.limit}})
			if q.Page != tt.wantPage || q.Limit != tt.wantLimit {
				t.Errorf("page/limit = %d/%d, want %d/%d", q.Page, q.Limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestTranslateList_Conditions(t *testing.T) {
	hired := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		params url.Values
		want   []domain.Condition
	}{
		{
			name:   "numeric range",
			params: url.Values{"salary[gte]": {"50000"}, "salary[lt]": {"90000"}},
			want: []domain.Condition{
				{Field: "salary", Op: domain.OpGte, Value: 50000.0},
				{Field: "salary", Op: domain.OpLt, Value: 90000.0},
			},
		},
		{
			name:   "plain equality",
			params: url.Values{"department": {"IT"}},
			want:   []domain.Condition{{Field: "department", Op: domain.OpEq, Value: "IT"}},
		},
		{
			name:   "in list",
			params: url.Values{"department[in]": {"IT,HR"}},
			want:   []domain.Condition{{Field: "department", Op: domain.OpIn, Value: []any{"IT", "HR"}}},
		},
		{
			name:   "repeated equality becomes in",
			params: url.Values{"status": {"active", "inactive"}},
			want:   []domain.Condition{{Field: "status", Op: domain.OpIn, Value: []any{"active", "inactive"}}},
		},
		{
			name:   "date bound",
			params: url.Values{"hireDate[gte]": {"2023-01-15"}},
			want:   []domain.Condition{{Field: "hireDate", Op: domain.OpGte, Value: hired}},
		},
		{
			name:   "nested field",
			params: url.Values{"address.city": {"Austin"}},
			want:   []domain.Condition{{Field: "address.city", Op: domain.OpEq, Value: "Austin"}},
		},
		{
			name: "dropped keys",
			params: url.Values{
				"salary[regex]":  {".*"},
				"password":       {"x"},
				"$where":         {"1"},
				"email[$ne]":     {"a"},
				"salary[gt]":     {"lots"},
				"hireDate[lt]":   {"yesterday"},
				"department[in]": {" , "},
				"select":         {"firstName"},
				"sort":           {"salary"},
				"page":           {"2"},
				"limit":          {"5"},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateList(tt.params).Conditions
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Conditions = %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestTranslateList_SelectAndSort(t *testing.T) {
	q := TranslateList(url.Values{
		"select": {"firstName, lastName,password,firstName,address.city"},
		"sort":   {"-salary,lastName,$natural"},
	})

	if want := []string{"firstName", "lastName", "address.city"}; !reflect.DeepEqual(q.Projection, want) {
		t.Errorf("Projection = %v, want %v", q.Projection, want)
	}
	wantSort := []domain.SortField{{Field: "salary", Desc: true}, {Field: "lastName"}}
	if !reflect.DeepEqual(q.Sort, wantSort) {
		t.Errorf("Sort = %+v, want %+v", q.Sort, wantSort)
	}
}

func TestTranslateList_UnknownSortFallsBack(t *testing.T) {
	q := TranslateList(url.Values{"sort": {"password"}})
	want := []domain.SortField{{Field: "createdAt", Desc: true}}
	if !reflect.DeepEqual(q.Sort, want) {
		t.Errorf("Sort = %+v, want %+v", q.Sort, want)
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name              string
		page, limit       int
		total             int64
		wantNext, wantPrv *domain.PageRef
	}{
		{"single page", 1, 10, 5, nil, nil},
		{"first of three", 1, 10, 25, &domain.PageRef{Page: 2, Limit: 10}, nil},
		{"middle", 2, 10, 25, &domain.PageRef{Page: 3, Limit: 10}, &domain.PageRef{Page: 1, Limit: 10}},
		{"last", 3, 10, 25, nil, &domain.PageRef{Page: 2, Limit: 10}},
		{"exact boundary", 2, 10, 20, nil, &domain.PageRef{Page: 1, Limit: 10}},
		{"empty", 1, 10, 0, nil, nil},
		{"past the end", 4, 10, 25, nil, &domain.PageRef{Page: 3, Limit: 10}},
		{"huge page does not wrap", math.MaxInt / 10, 100, 25, nil, &domain.PageRef{Page: math.MaxInt/10 - 1, Limit: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(tt.page, tt.limit, tt.total)
			if !reflect.DeepEqual(p.Next, tt.wantNext) || !reflect.DeepEqual(p.Prev, tt.wantPrv) {
				t.Errorf("Paginate() = next %+v prev %+v, want next %+v prev %+v", p.Next, p.Prev, tt.wantNext, tt.wantPrv)
			}
		})
	}
}

func TestTranslateList_HugePageStaysPastTheEnd(t *testing.T) {
	q := TranslateList(url.Values{"page": {"92233720368547759"}, "limit": {"100"}})
	if q.Skip() < 0 {
		t.Fatalf("Skip() = %d, want non-negative", q.Skip())
	}
	if p := Paginate(q.Page, q.Limit, 25); p.Next != nil {
		t.Errorf("Next = %+v on a page past the end", p.Next)
	}
}

func TestTranslateSearch(t *testing.T) {
	q := TranslateSearch(url.Values{"q": {"  jane "}, "department": {"IT"}})

	if q.Text != "jane" || q.Department != domain.DepartmentIT || q.Status != "" {
		t.Errorf("TranslateSearch() = %+v", q)
	}
	if q.Limit != SearchLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, SearchLimit)
	}
}
