package employee

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"staff_server/core/domain"
	"staff_server/core/port/in"
	"staff_server/core/port/out"
	"staff_server/pkg/apperr"
	"staff_server/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Service implements in.EmployeeService and in.EmployeeMaintenance.
type Service struct {
	repo      out.EmployeeRepository
	users     out.UserRepository
	cache     out.StatsCache
	events    out.EventPublisher
	allocator *Allocator
	retries   int
	now       func() time.Time

	statsGroup singleflight.Group
}

var (
	_ in.EmployeeService     = (*Service)(nil)
	_ in.EmployeeMaintenance = (*Service)(nil)
)

// Option configures a Service.
type Option func(*Service)

// WithStatsCache serves stats from cache and drops the entry on every write.
func WithStatsCache(c out.StatsCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEventPublisher announces committed writes.
func WithEventPublisher(p out.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithAllocationRetries overrides DefaultAllocationRetries.
func WithAllocationRetries(n int) Option {
	return func(s *Service) { s.retries = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the employee service. users may be nil, in which case
// createdBy and updatedBy carry ids only.
func NewService(repo out.EmployeeRepository, users out.UserRepository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		users:   users,
		retries: DefaultAllocationRetries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.allocator = NewAllocator(repo, s.retries)
	return s
}

// =============================================================================
// CRUD
// =============================================================================

func (s *Service) Create(ctx context.Context, actor domain.Actor, req *in.CreateEmployeeRequest) (*domain.Employee, error) {
	if req == nil {
		return nil, apperr.BadRequest("Request body is required")
	}

	e := &domain.Employee{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		Department:       req.Department,
		Position:         req.Position,
		Status:           req.Status,
		Photo:            req.Photo,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		CreatedBy:        &domain.UserRef{ID: actor.ID},
	}
	if req.Salary != nil {
		e.Salary = *req.Salary
	}
	if req.HireDate != nil {
		e.HireDate = *req.HireDate
	}

	now := s.now().UTC()
	e.Normalize(now)
	e.CreatedAt, e.UpdatedAt = now, now

	errs := e.Validate()
	if req.Salary == nil {
		errs = append(errs, domain.FieldError{Field: "salary", Message: "Please add a salary"})
	}
	if len(errs) > 0 {
		return nil, validationError(errs)
	}

	if _, err := s.allocator.Assign(ctx, func(ctx context.Context, code string, seq int64) error {
		e.EmployeeID, e.EmployeeSeq = code, seq
		return s.repo.Insert(ctx, e)
	}); err != nil {
		return nil, s.storeError("create employee", err)
	}

	logger.WithContext(ctx).Info("[EmployeeService] created %s (%s)", e.EmployeeID, e.ID)
	s.resolveUsers(ctx, e)
	s.afterWrite(ctx, out.EventEmployeeCreated, e, actor.ID)
	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Employee, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveUsers(ctx, e)
	return e, nil
}

// Update applies the present fields of req. The identifier and creator are
// never taken from the request. The merged record is validated, but only the
// sent fields are written, so concurrent updates of different fields both land.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id string, req *in.UpdateEmployeeRequest) (*domain.Employee, error) {
	if req == nil {
		return nil, apperr.BadRequest("Request body is required")
	}

	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	applyUpdate(e, req)
	e.Normalize(now)
	if errs := e.Validate(); len(errs) > 0 {
		return nil, validationError(errs)
	}

	updated, err := s.repo.Update(ctx, id, buildPatch(e, req, actor.ID, now))
	if err != nil {
		return nil, s.storeError("update employee", err)
	}
	if updated == nil {
		return nil, notFound(id)
	}

	s.resolveUsers(ctx, updated)
	s.afterWrite(ctx, out.EventEmployeeUpdated, updated, actor.ID)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	e, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.storeError("delete employee", err)
	}
	if !deleted {
		return notFound(id)
	}

	logger.WithContext(ctx).Info("[EmployeeService] deleted %s (%s)", e.EmployeeID, e.ID)
	s.afterWrite(ctx, out.EventEmployeeDeleted, e, actor.ID)
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// List runs the translated query and its count side by side.
func (s *Service) List(ctx context.Context, params url.Values) (*in.EmployeeListResult, error) {
	q := TranslateList(params)

	var (
		employees []*domain.Employee
		total     int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employees, err = s.repo.Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, q.Conditions)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.storeError("list employees", err)
	}

	s.resolveUsers(ctx, employees...)
	return &in.EmployeeListResult{
		Employees:  employees,
		Total:      total,
		Pagination: Paginate(q.Page, q.Limit, total),
		Projection: q.Projection,
	}, nil
}

// Search returns up to SearchLimit hits together with the full match count.
func (s *Service) Search(ctx context.Context, params url.Values) (*in.EmployeeSearchResult, error) {
	q := TranslateSearch(params)

	var res in.EmployeeSearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Employees, err = s.repo.Search(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		res.Total, err = s.repo.CountSearch(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.storeError("search employees", err)
	}

	s.resolveUsers(ctx, res.Employees...)
	return &res, nil
}

// statsTimeout bounds a shared stats computation, which outlives any single caller.
const statsTimeout = 15 * time.Second

// Stats returns aggregate counts, from cache when available. Concurrent
// misses of one cache generation share one computation.
func (s *Service) Stats(ctx context.Context) (*domain.EmployeeStats, error) {
	gen, cacheable := int64(0), false
	if s.cache != nil {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			logger.WithError(err).Warn("[EmployeeService] stats generation read failed")
		} else if stats, ok, err := s.cache.GetStats(ctx, gen); err != nil {
			logger.WithError(err).Warn("[EmployeeService] stats cache read failed")
		} else if ok {
			return stats, nil
		} else {
			cacheable = true
		}
	}

	key := "stats:" + strconv.FormatInt(gen, 10)
	ch := s.statsGroup.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsTimeout)
		defer cancel()

		stats, err := s.computeStats(ctx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if err := s.cache.SetStats(ctx, gen, stats); err != nil {
				logger.WithError(err).Warn("[EmployeeService] stats cache write failed")
			}
		}
		return stats, nil
	})

	select {
	case <-ctx.Done():
		return nil, s.storeError("employee stats", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, s.storeError("employee stats", res.Err)
		}
		return res.Val.(*domain.EmployeeStats), nil
	}
}

func (s *Service) computeStats(ctx context.Context) (*domain.EmployeeStats, error) {
	stats := &domain.EmployeeStats{}
	active := []domain.Condition{{Field: "status", Op: domain.OpEq, Value: string(domain.StatusActive)}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.DepartmentStats, err = s.repo.DepartmentStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.StatusStats, err = s.repo.StatusStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalEmployees, err = s.repo.Count(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveEmployees, err = s.repo.Count(gctx, active)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.DepartmentStats == nil {
		stats.DepartmentStats = []domain.DepartmentStat{}
	}
	if stats.StatusStats == nil {
		stats.StatusStats = []domain.StatusStat{}
	}
	return stats, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Service) find(ctx context.Context, id string) (*domain.Employee, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get employee", err)
	}
	if e == nil {
		return nil, notFound(id)
	}
	return e, nil
}

func applyUpdate(e *domain.Employee, req *in.UpdateEmployeeRequest) {
	if req.FirstName != nil {
		e.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		e.LastName = *req.LastName
	}
	if req.Email != nil {
		e.Email = *req.Email
	}
	if req.Phone != nil {
		e.Phone = *req.Phone
	}
	if req.Department != nil {
		e.Department = *req.Department
	}
	if req.Position != nil {
		e.Position = *req.Position
	}
	if req.Salary != nil {
		e.Salary = *req.Salary
	}
	if req.HireDate != nil {
		e.HireDate = *req.HireDate
	}
	if req.Status != nil {
		e.Status = *req.Status
	}
	if req.Photo != nil {
		e.Photo = *req.Photo
	}
	if req.Address != nil {
		e.Address = req.Address
	}
	if req.EmergencyContact != nil {
		e.EmergencyContact = req.EmergencyContact
	}
}

// buildPatch takes the normalized values of the fields present in req from
// the merged record e.
func buildPatch(e *domain.Employee, req *in.UpdateEmployeeRequest, actorID string, now time.Time) *domain.EmployeePatch {
	p := &domain.EmployeePatch{UpdatedBy: actorID, UpdatedAt: now}
	if req.FirstName != nil {
		p.FirstName = &e.FirstName
	}
	if req.LastName != nil {
		p.LastName = &e.LastName
	}
	if req.Email != nil {
		p.Email = &e.Email
	}
	if req.Phone != nil {
		p.Phone = &e.Phone
	}
	if req.Department != nil {
		p.Department = &e.Department
	}
	if req.Position != nil {
		p.Position = &e.Position
	}
	if req.Salary != nil {
		p.Salary = &e.Salary
	}
	if req.HireDate != nil {
		p.HireDate = &e.HireDate
	}
	if req.Status != nil {
		p.Status = &e.Status
	}
	if req.Photo != nil {
		p.Photo = &e.Photo
	}
	if req.Address != nil {
		p.Address = e.Address
	}
	if req.EmergencyContact != nil {
		p.EmergencyContact = e.EmergencyContact
	}
	return p
}

// resolveUsers fills name and email on createdBy and updatedBy. Lookup
// failures leave the references as bare ids.
func (s *Service) resolveUsers(ctx context.Context, employees ...*domain.Employee) {
	if s.users == nil || len(employees) == 0 {
		return
	}

	seen := make(map[string]bool)
	var ids []string
	collect := func(ref *domain.UserRef) {
		if ref != nil && ref.ID != "" && !seen[ref.ID] {
			seen[ref.ID] = true
			ids = append(ids, ref.ID)
		}
	}
	for _, e := range employees {
		collect(e.CreatedBy)
		collect(e.UpdatedBy)
	}
	if len(ids) == 0 {
		return
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("[EmployeeService] user lookup failed")
		return
	}

	fill := func(ref *domain.UserRef) {
		if ref == nil {
			return
		}
		if u, ok := users[ref.ID]; ok {
			ref.Name, ref.Email = u.Name, u.Email
		}
	}
	for _, e := range employees {
		fill(e.CreatedBy)
		fill(e.UpdatedBy)
	}
}

// afterWrite drops cached stats and publishes the change. Both are best effort.
func (s *Service) afterWrite(ctx context.Context, eventType string, e *domain.Employee, actorID string) {
	s.dropStats(ctx)
	if s.events == nil {
		return
	}
	event := &out.EmployeeEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		RecordID:   e.ID,
		EmployeeID: e.EmployeeID,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishEmployeeEvent(ctx, event); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("[EmployeeService] publish %s failed", eventType)
	}
}

// storeError maps repository failures onto application errors.
func (s *Service) storeError(op string, err error) error {
	var dup *out.DuplicateKeyError
	switch {
	case err == nil:
		return nil
	case apperr.IsAppError(err):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable(op, err)
	case errors.Is(err, ErrAllocationExhausted):
		return apperr.Conflict("Could not allocate a unique employee id, please retry").WithError(err)
	case errors.As(err, &dup):
		return apperr.DuplicateField(dup.Field).WithError(err)
	case errors.Is(err, out.ErrUnavailable):
		return apperr.Unavailable(op, err)
	default:
		return apperr.DatabaseError(op, err)
	}
}

func validationError(errs domain.ValidationErrors) error {
	return apperr.ValidationFailed(errs.Error()).WithErrors(errs)
}

func notFound(id string) error {
	return apperr.NotFound(fmt.Sprintf("Employee not found with id of %s", id)).WithDetail("id", id)
}
