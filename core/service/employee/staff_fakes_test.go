package employee

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"staff_server/core/domain"
	"staff_server/core/port/out"
)

// memoryRepo is an in-memory EmployeeRepository enforcing unique employeeId and email.
type memoryRepo struct {
	mu      sync.Mutex
	records map[string]*domain.Employee
	nextID  int
	failing error
	// maxReads counts FindMaxEmployeeID calls.
	maxReads int
}

var _ out.EmployeeRepository = (*memoryRepo)(nil)

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]*domain.Employee)}
}

func clone(e *domain.Employee) *domain.Employee {
	c := *e
	if e.CreatedBy != nil {
		ref := *e.CreatedBy
		c.CreatedBy = &ref
	}
	if e.UpdatedBy != nil {
		ref := *e.UpdatedBy
		c.UpdatedBy = &ref
	}
	return &c
}

func (r *memoryRepo) conflict(e *domain.Employee) error {
	for id, other := range r.records {
		if id == e.ID {
			continue
		}
		if e.EmployeeID != "" && other.EmployeeID == e.EmployeeID {
			return &out.DuplicateKeyError{Field: "employeeId"}
		}
		if other.Email == e.Email {
			return &out.DuplicateKeyError{Field: "email"}
		}
	}
	return nil
}

func (r *memoryRepo) Insert(ctx context.Context, e *domain.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing != nil {
		return r.failing
	}
	if err := r.conflict(e); err != nil {
		return err
	}
	r.nextID++
	e.ID = fmt.Sprintf("%024d", r.nextID)
	r.records[e.ID] = clone(e)
	return nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing != nil {
		return nil, r.failing
	}
	e, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	return clone(e), nil
}

func (r *memoryRepo) Update(ctx context.Context, id string, patch *domain.EmployeePatch) (*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	c := clone(stored)
	patch.Apply(c)
	if err := r.conflict(c); err != nil {
		return nil, err
	}
	r.records[id] = c
	return clone(c), nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *memoryRepo) FindMaxEmployeeID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxReads++
	if r.failing != nil {
		return "", r.failing
	}
	var best *domain.Employee
	for _, e := range r.records {
		if e.EmployeeID == "" {
			continue
		}
		if best == nil || e.EmployeeSeq > best.EmployeeSeq {
			best = e
		}
	}
	if best == nil {
		return "", nil
	}
	return best.EmployeeID, nil
}

func (r *memoryRepo) matching(conds []domain.Condition) []*domain.Employee {
	var res []*domain.Employee
	for _, e := range r.records {
		if matchesAll(e, conds) {
			res = append(res, clone(e))
		}
	}
	return res
}

func (r *memoryRepo) Find(ctx context.Context, q *domain.EmployeeQuery) ([]*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing != nil {
		return nil, r.failing
	}
	res := r.matching(q.Conditions)
	sort.SliceStable(res, func(i, j int) bool {
		for _, s := range q.Sort {
			a, b := fieldValue(res[i], s.Field), fieldValue(res[j], s.Field)
			if c := compare(a, b); c != 0 {
				return (c < 0) != s.Desc
			}
		}
		return false
	})
	skip := q.Skip()
	if skip >= len(res) {
		return []*domain.Employee{}, nil
	}
	res = res[skip:]
	if len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

func (r *memoryRepo) Count(ctx context.Context, conds []domain.Condition) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing != nil {
		return 0, r.failing
	}
	return int64(len(r.matching(conds))), nil
}

func (r *memoryRepo) searchHits(q *domain.SearchQuery) []*domain.Employee {
	text := strings.ToLower(q.Text)
	var res []*domain.Employee
	for _, e := range r.records {
		if q.Department != "" && e.Department != q.Department {
			continue
		}
		if q.Status != "" && e.Status != q.Status {
			continue
		}
		hit := false
		for _, f := range []string{e.FirstName, e.LastName, e.Email, e.EmployeeID} {
			if strings.Contains(strings.ToLower(f), text) {
				hit = true
			}
		}
		if hit {
			res = append(res, clone(e))
		}
	}
	return res
}

func (r *memoryRepo) Search(ctx context.Context, q *domain.SearchQuery) ([]*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.searchHits(q)
	if len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

func (r *memoryRepo) CountSearch(ctx context.Context, q *domain.SearchQuery) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.searchHits(q))), nil
}

func (r *memoryRepo) DepartmentStats(ctx context.Context) ([]domain.DepartmentStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDept := map[string]*domain.DepartmentStat{}
	for _, e := range r.records {
		st, ok := byDept[string(e.Department)]
		if !ok {
			st = &domain.DepartmentStat{Department: string(e.Department)}
			byDept[string(e.Department)] = st
		}
		st.Count++
		st.TotalSalary += e.Salary
	}
	var res []domain.DepartmentStat
	for _, st := range byDept {
		st.AvgSalary = st.TotalSalary / float64(st.Count)
		res = append(res, *st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Count > res[j].Count })
	return res, nil
}

func (r *memoryRepo) StatusStats(ctx context.Context) ([]domain.StatusStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byStatus := map[string]int64{}
	for _, e := range r.records {
		byStatus[string(e.Status)]++
	}
	var res []domain.StatusStat
	for s, n := range byStatus {
		res = append(res, domain.StatusStat{Status: s, Count: n})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Status < res[j].Status })
	return res, nil
}

func (r *memoryRepo) FindWithoutEmployeeID(ctx context.Context) ([]*domain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Employee
	for _, e := range r.records {
		if e.EmployeeID == "" {
			res = append(res, clone(e))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (r *memoryRepo) AssignEmployeeID(ctx context.Context, id, employeeID string, seq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.records {
		if other.EmployeeID == employeeID {
			return &out.DuplicateKeyError{Field: "employeeId"}
		}
	}
	e, ok := r.records[id]
	if !ok {
		return fmt.Errorf("employee %s not found", id)
	}
	e.EmployeeID, e.EmployeeSeq = employeeID, seq
	return nil
}

func (r *memoryRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.records))
	r.records = make(map[string]*domain.Employee)
	return n, nil
}

// put stores e as is, bypassing allocation.
func (r *memoryRepo) put(e *domain.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = fmt.Sprintf("%024d", r.nextID)
	e.EmployeeSeq, _ = domain.ParseEmployeeID(e.EmployeeID)
	r.records[e.ID] = clone(e)
}

func fieldValue(e *domain.Employee, field string) any {
	switch field {
	case "employeeId":
		return e.EmployeeID
	case "firstName":
		return e.FirstName
	case "lastName":
		return e.LastName
	case "email":
		return e.Email
	case "department":
		return string(e.Department)
	case "status":
		return string(e.Status)
	case "position":
		return e.Position
	case "salary":
		return e.Salary
	case "hireDate":
		return e.HireDate
	case "createdAt":
		return e.CreatedAt
	}
	return nil
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}

func matchesAll(e *domain.Employee, conds []domain.Condition) bool {
	for _, c := range conds {
		v := fieldValue(e, c.Field)
		switch c.Op {
		case domain.OpIn:
			hit := false
			for _, item := range c.Value.([]any) {
				if compare(v, item) == 0 {
					hit = true
				}
			}
			if !hit {
				return false
			}
		case domain.OpEq:
			if compare(v, c.Value) != 0 {
				return false
			}
		case domain.OpGt:
			if compare(v, c.Value) <= 0 {
				return false
			}
		case domain.OpGte:
			if compare(v, c.Value) < 0 {
				return false
			}
		case domain.OpLt:
			if compare(v, c.Value) >= 0 {
				return false
			}
		case domain.OpLte:
			if compare(v, c.Value) > 0 {
				return false
			}
		}
	}
	return true
}

// =============================================================================
// Collaborators
// =============================================================================

type staticUsers map[string]*domain.User

func (u staticUsers) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	res := make(map[string]*domain.User)
	for _, id := range ids {
		if user, ok := u[id]; ok {
			res[id] = user
		}
	}
	return res, nil
}

func (u staticUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range u {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (u staticUsers) InsertMany(ctx context.Context, users []*domain.User) error { return nil }
func (u staticUsers) DeleteAll(ctx context.Context) (int64, error)               { return 0, nil }

// memoryStatsCache keeps one entry per generation, like the Redis cache.
type memoryStatsCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[int64]*domain.EmployeeStats
	invalidated int
}

func (c *memoryStatsCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *memoryStatsCache) GetStats(ctx context.Context, gen int64) (*domain.EmployeeStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.entries[gen]
	return stats, ok, nil
}

func (c *memoryStatsCache) SetStats(ctx context.Context, gen int64, stats *domain.EmployeeStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[int64]*domain.EmployeeStats)
	}
	c.entries[gen] = stats
	return nil
}

func (c *memoryStatsCache) InvalidateStats(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.gen)
	c.gen++
	c.invalidated++
	return nil
}

// current returns the entry readers would be served.
func (c *memoryStatsCache) current() *domain.EmployeeStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[c.gen]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*out.EmployeeEvent
}

func (p *recordingPublisher) PublishEmployeeEvent(ctx context.Context, event *out.EmployeeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
