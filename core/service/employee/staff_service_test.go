package employee

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"testing"
	"time"

	"staff_server/core/domain"
	"staff_server/core/port/in"
	"staff_server/core/port/out"
	"staff_server/pkg/apperr"
)

var (
	admin = domain.Actor{ID: "u-admin", Role: domain.RoleAdmin}
	hr    = domain.Actor{ID: "u-hr", Role: domain.RoleHR}
)

func ptr[T any](v T) *T { return &v }

func validRequest() *in.CreateEmployeeRequest {
	return &in.CreateEmployeeRequest{
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane.doe@example.com",
		Phone:      "+1 555-0100",
		Department: domain.DepartmentIT,
		Position:   "Engineer",
		Salary:     ptr(85000.0),
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	users := staticUsers{
		admin.ID: {ID: admin.ID, Name: "Ada Admin", Email: "admin@example.com", Role: domain.RoleAdmin},
		hr.ID:    {ID: hr.ID, Name: "Hal HR", Email: "hr@example.com", Role: domain.RoleHR},
	}
	return NewService(repo, users, opts...), repo
}

func wantStatus(t *testing.T, err error, status int) *apperr.AppError {
	t.Helper()
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want *apperr.AppError", err)
	}
	if appErr.Status != status {
		t.Fatalf("status = %d (%s), want %d", appErr.Status, appErr.Message, status)
	}
	return appErr
}

// =============================================================================
// Create
// =============================================================================

func TestCreate_AssignsIDAndStampsCreator(t *testing.T) {
	svc, _ := newTestService(t)

	e, err := svc.Create(context.Background(), admin, validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if e.EmployeeID != "EMP0001" {
		t.Errorf("EmployeeID = %s, want EMP0001", e.EmployeeID)
	}
	if e.CreatedBy == nil || e.CreatedBy.ID != admin.ID || e.CreatedBy.Name != "Ada Admin" {
		t.Errorf("CreatedBy = %+v", e.CreatedBy)
	}
	if e.Status != domain.StatusActive || e.Photo != domain.DefaultPhoto {
		t.Errorf("defaults not applied: status=%s photo=%s", e.Status, e.Photo)
	}
	if e.FullName != "Jane Doe" {
		t.Errorf("FullName = %q", e.FullName)
	}

	second := validRequest()
	second.Email = "john@example.com"
	e2, err := svc.Create(context.Background(), admin, second)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e2.EmployeeID != "EMP0002" {
		t.Errorf("second EmployeeID = %s, want EMP0002", e2.EmployeeID)
	}
}

func TestCreate_FollowsExistingMaximum(t *testing.T) {
	svc, repo := newTestService(t)
	repo.put(&domain.Employee{EmployeeID: "EMP0041", Email: "old@example.com"})

	e, err := svc.Create(context.Background(), admin, validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.EmployeeID != "EMP0042" {
		t.Errorf("EmployeeID = %s, want EMP0042", e.EmployeeID)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, repo := newTestService(t)

	req := validRequest()
	req.FirstName = ""
	req.Email = "not-an-email"
	req.Department = "Legal"
	req.Salary = nil

	_, err := svc.Create(context.Background(), admin, req)
	appErr := wantStatus(t, err, http.StatusBadRequest)

	fields, ok := appErr.Errors.(domain.ValidationErrors)
	if !ok {
		t.Fatalf("Errors = %T, want domain.ValidationErrors", appErr.Errors)
	}
	got := map[string]bool{}
	for _, f := range fields {
		got[f.Field] = true
	}
	for _, f := range []string{"firstName", "email", "department", "salary"} {
		if !got[f] {
			t.Errorf("missing validation error for %s in %+v", f, fields)
		}
	}
	if n, _ := repo.Count(context.Background(), nil); n != 0 {
		t.Errorf("stored %d records after failed validation", n)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), admin, validRequest()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := validRequest()
	req.Email = "JANE.DOE@example.com"
	_, err := svc.Create(context.Background(), admin, req)

	appErr := wantStatus(t, err, http.StatusConflict)
	if appErr.Message != "Duplicate field value entered: email" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestCreate_StoreUnavailable(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failing = fmt.Errorf("insert: %w", out.ErrUnavailable)

	_, err := svc.Create(context.Background(), admin, validRequest())
	wantStatus(t, err, http.StatusServiceUnavailable)
}

// =============================================================================
// Get / Update / Delete
// =============================================================================

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "64b7f0c2e4b0a1a2b3c4d5e6")
	appErr := wantStatus(t, err, http.StatusNotFound)
	if appErr.Message != "Employee not found with id of 64b7f0c2e4b0a1a2b3c4d5e6" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestUpdate_IgnoresImmutableFields(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time { return clock }))

	created, err := svc.Create(context.Background(), admin, validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	clock = clock.Add(time.Hour)
	updated, err := svc.Update(context.Background(), hr, created.ID, &in.UpdateEmployeeRequest{
		Position: ptr("Senior Engineer"),
		Salary:   ptr(95000.0),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.EmployeeID != created.EmployeeID {
		t.Errorf("EmployeeID changed: %s -> %s", created.EmployeeID, updated.EmployeeID)
	}
	if updated.CreatedBy.ID != admin.ID {
		t.Errorf("CreatedBy changed to %s", updated.CreatedBy.ID)
	}
	if updated.UpdatedBy == nil || updated.UpdatedBy.ID != hr.ID || updated.UpdatedBy.Email != "hr@example.com" {
		t.Errorf("UpdatedBy = %+v", updated.UpdatedBy)
	}
	if updated.Position != "Senior Engineer" || updated.Salary != 95000 {
		t.Errorf("fields not applied: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(clock) || !updated.CreatedAt.Equal(clock.Add(-time.Hour)) {
		t.Errorf("timestamps created=%s updated=%s", updated.CreatedAt, updated.UpdatedAt)
	}

	stored, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.EmployeeID != created.EmployeeID || stored.Position != "Senior Engineer" {
		t.Errorf("stored record = %+v", stored)
	}
}

func TestUpdate_ValidationAndNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(context.Background(), admin, validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Update(context.Background(), hr, created.ID, &in.UpdateEmployeeRequest{Salary: ptr(-1.0)})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = svc.Update(context.Background(), hr, "missing", &in.UpdateEmployeeRequest{Position: ptr("x")})
	wantStatus(t, err, http.StatusNotFound)
}

func TestDelete(t *testing.T) {
	events := &recordingPublisher{}
	svc, repo := newTestService(t, WithEventPublisher(events))

	created, err := svc.Create(context.Background(), admin, validRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Delete(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n, _ := repo.Count(context.Background(), nil); n != 0 {
		t.Errorf("records left = %d", n)
	}

	err = svc.Delete(context.Background(), admin, created.ID)
	wantStatus(t, err, http.StatusNotFound)

	if len(events.events) != 2 {
		t.Fatalf("published %d events, want 2", len(events.events))
	}
	last := events.events[1]
	if last.Type != out.EventEmployeeDeleted || last.EmployeeID != "EMP0001" || last.ActorID != admin.ID {
		t.Errorf("delete event = %+v", last)
	}
}

// =============================================================================
// List / Search / Stats
// =============================================================================

func seedEmployees(t *testing.T, svc *Service, n int, salary func(i int) float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		req := validRequest()
		req.FirstName = fmt.Sprintf("Worker%02d", i)
		req.Email = fmt.Sprintf("worker%02d@example.com", i)
		req.Salary = ptr(salary(i))
		if _, err := svc.Create(context.Background(), admin, req); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestList_Pagination(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	seedEmployees(t, svc, 25, func(i int) float64 { return 40000 })

	res, err := svc.List(context.Background(), url.Values{"page": {"2"}, "limit": {"10"}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(res.Employees) != 10 || res.Total != 25 {
		t.Fatalf("got %d records of %d, want 10 of 25", len(res.Employees), res.Total)
	}
	// newest first: page 2 starts at the 11th newest
	if res.Employees[0].FirstName != "Worker14" {
		t.Errorf("first record = %s, want Worker14", res.Employees[0].FirstName)
	}
	if res.Pagination.Next == nil || res.Pagination.Next.Page != 3 {
		t.Errorf("Next = %+v, want page 3", res.Pagination.Next)
	}
	if res.Pagination.Prev == nil || res.Pagination.Prev.Page != 1 {
		t.Errorf("Prev = %+v, want page 1", res.Pagination.Prev)
	}
}

func TestList_SalaryFilter(t *testing.T) {
	svc, _ := newTestService(t)
	seedEmployees(t, svc, 6, func(i int) float64 { return float64(30000 + i*10000) })

	res, err := svc.List(context.Background(), url.Values{"salary[gte]": {"50000"}, "sort": {"salary"}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 4 {
		t.Fatalf("Total = %d, want 4", res.Total)
	}
	for _, e := range res.Employees {
		if e.Salary < 50000 {
			t.Errorf("%s has salary %.0f", e.FirstName, e.Salary)
		}
	}
	if res.Employees[0].Salary != 50000 {
		t.Errorf("ascending sort: first salary = %.0f", res.Employees[0].Salary)
	}
	if res.Pagination.Next != nil || res.Pagination.Prev != nil {
		t.Errorf("Pagination = %+v, want none", res.Pagination)
	}
}

func TestSearch_MatchesNameCaseInsensitively(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), admin, validRequest()); err != nil {
		t.Fatal(err)
	}
	john := validRequest()
	john.FirstName, john.LastName, john.Email = "John", "Smith", "john.smith@example.com"
	if _, err := svc.Create(context.Background(), admin, john); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Search(context.Background(), url.Values{"q": {"jane"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Employees) != 1 || res.Employees[0].FirstName != "Jane" || res.Total != 1 {
		t.Fatalf("Search(jane) = %d hits, total %d", len(res.Employees), res.Total)
	}

	res, err = svc.Search(context.Background(), url.Values{"q": {"emp0002"}, "department": {"HR"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Employees) != 0 || res.Total != 0 {
		t.Errorf("department filter ignored: %d hits", len(res.Employees))
	}
}

func TestSearch_ReportsTotalBeyondCap(t *testing.T) {
	svc, _ := newTestService(t)
	seedEmployees(t, svc, SearchLimit+5, func(i int) float64 { return 50000 })

	res, err := svc.Search(context.Background(), url.Values{"q": {"worker"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Employees) != SearchLimit {
		t.Errorf("hits = %d, want %d", len(res.Employees), SearchLimit)
	}
	if res.Total != SearchLimit+5 {
		t.Errorf("Total = %d, want %d", res.Total, SearchLimit+5)
	}
}

func TestStats_CachedAndInvalidated(t *testing.T) {
	cache := &memoryStatsCache{}
	svc, _ := newTestService(t, WithStatsCache(cache))

	for i, dept := range []domain.Department{domain.DepartmentIT, domain.DepartmentIT, domain.DepartmentHR} {
		req := validRequest()
		req.Email = fmt.Sprintf("s%d@example.com", i)
		req.Department = dept
		req.Salary = ptr(float64(60000 + i*20000))
		if i == 2 {
			req.Status = domain.StatusInactive
		}
		if _, err := svc.Create(context.Background(), admin, req); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalEmployees != 3 || stats.ActiveEmployees != 2 {
		t.Errorf("total/active = %d/%d, want 3/2", stats.TotalEmployees, stats.ActiveEmployees)
	}
	it := stats.DepartmentStats[0]
	if it.Department != "IT" || it.Count != 2 || it.AvgSalary != 70000 || it.TotalSalary != 140000 {
		t.Errorf("IT stats = %+v", it)
	}
	if cache.current() == nil {
		t.Fatal("stats were not cached")
	}

	if _, err := svc.Create(context.Background(), admin, validRequest()); err != nil {
		t.Fatal(err)
	}
	if cache.current() != nil {
		t.Error("cache not invalidated after write")
	}
	stats, err = svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEmployees != 4 {
		t.Errorf("TotalEmployees = %d after insert, want 4", stats.TotalEmployees)
	}
}

func TestStats_DepartmentAverages(t *testing.T) {
	svc, _ := newTestService(t)
	staff := []struct {
		dept   domain.Department
		salary float64
	}{
		{domain.DepartmentIT, 50000},
		{domain.DepartmentIT, 60000},
		{domain.DepartmentIT, 70000},
		{domain.DepartmentHR, 40000},
		{domain.DepartmentHR, 45000},
	}
	for i, s := range staff {
		req := validRequest()
		req.Email = fmt.Sprintf("dept%d@example.com", i)
		req.Department = s.dept
		req.Salary = ptr(s.salary)
		if _, err := svc.Create(context.Background(), admin, req); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := []domain.DepartmentStat{
		{Department: "IT", Count: 3, AvgSalary: 60000, TotalSalary: 180000},
		{Department: "HR", Count: 2, AvgSalary: 42500, TotalSalary: 85000},
	}
	if !reflect.DeepEqual(stats.DepartmentStats, want) {
		t.Errorf("DepartmentStats = %+v, want %+v", stats.DepartmentStats, want)
	}
	if stats.TotalEmployees != 5 || stats.ActiveEmployees != 5 {
		t.Errorf("total/active = %d/%d, want 5/5", stats.TotalEmployees, stats.ActiveEmployees)
	}
}

// =============================================================================
// Maintenance
// =============================================================================

func TestBackfillEmployeeIDs(t *testing.T) {
	svc, repo := newTestService(t)
	repo.put(&domain.Employee{EmployeeID: "EMP0003", Email: "kept@example.com"})
	base := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		repo.put(&domain.Employee{
			FirstName: fmt.Sprintf("Legacy%d", i),
			Email:     fmt.Sprintf("legacy%d@example.com", i),
			CreatedAt: base.Add(time.Duration(2-i) * time.Hour),
		})
	}

	n, err := svc.BackfillEmployeeIDs(context.Background())
	if err != nil {
		t.Fatalf("BackfillEmployeeIDs() error = %v", err)
	}
	if n != 3 {
		t.Errorf("updated %d, want 3", n)
	}

	// oldest record gets the first new id
	hits, _ := repo.Search(context.Background(), &domain.SearchQuery{Text: "legacy2", Limit: 10})
	if len(hits) != 1 || hits[0].EmployeeID != "EMP0004" {
		t.Errorf("oldest legacy record = %+v", hits)
	}
	if again, _ := svc.BackfillEmployeeIDs(context.Background()); again != 0 {
		t.Errorf("second run updated %d", again)
	}
}

func TestImport_KeepsGivenIDs(t *testing.T) {
	svc, _ := newTestService(t)

	seed := []*domain.Employee{
		{FirstName: "A", LastName: "One", Email: "a@example.com", Phone: "555-0001", Department: domain.DepartmentSales, Position: "Rep", Salary: 1, EmployeeID: "EMP0010", CreatedBy: &domain.UserRef{ID: admin.ID}},
		{FirstName: "B", LastName: "Two", Email: "b@example.com", Phone: "555-0002", Department: domain.DepartmentSales, Position: "Rep", Salary: 1, CreatedBy: &domain.UserRef{ID: admin.ID}},
	}
	n, err := svc.Import(context.Background(), seed)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}
	if seed[0].EmployeeID != "EMP0010" || seed[1].EmployeeID != "EMP0011" {
		t.Errorf("ids = %s, %s", seed[0].EmployeeID, seed[1].EmployeeID)
	}

	deleted, err := svc.DeleteAll(context.Background())
	if err != nil || deleted != 2 {
		t.Errorf("DeleteAll() = %d, %v", deleted, err)
	}
}
