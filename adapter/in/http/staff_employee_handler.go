package http

import (
	"net/url"

	"staff_server/core/domain"
	"staff_server/core/port/in"
	"staff_server/infra/middleware"
	"staff_server/pkg/apperr"
	"staff_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// EmployeeHandler serves the employee record routes.
type EmployeeHandler struct {
	service in.EmployeeService
	// managers may create, change and delete records and read stats
	managers []domain.Role
}

// NewEmployeeHandler creates a new employee handler.
func NewEmployeeHandler(service in.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{
		service:  service,
		managers: []domain.Role{domain.RoleAdmin, domain.RoleHR},
	}
}

// Register registers employee routes. The router must already authenticate.
func (h *EmployeeHandler) Register(router fiber.Router) {
	employees := router.Group("/employees")
	manage := middleware.RequireRoles(h.managers...)

	// fixed paths before /:id
	employees.Get("/search", h.Search)
	employees.Get("/stats", manage, h.Stats)

	employees.Get("/", h.List)
	employees.Post("/", manage, h.Create)
	employees.Get("/:id", h.Get)
	employees.Put("/:id", manage, h.Update)
	employees.Delete("/:id", manage, h.Delete)
}

// =============================================================================
// Queries
// =============================================================================

// List returns a page of employees.
// @Summary List employees
// @Tags Employees
// @Produce json
// @Param select query string false "Comma separated fields to return"
// @Param sort query string false "Comma separated sort fields, '-' for descending (default -createdAt)"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param salary[gte] query number false "Comparison filters: field[gt|gte|lt|lte|in]=value"
// @Success 200 {object} response.Response
// @Router /api/v1/employees [get]
func (h *EmployeeHandler) List(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext(), queryValues(c))
	if err != nil {
		return err
	}

	total := result.Total
	data := response.SelectFields(result.Employees, result.Projection)
	return response.Collection(c, data, len(result.Employees), &total, result.Pagination)
}

// Search finds employees by free text. At most 100 hits are returned; total
// counts every match.
// @Summary Search employees
// @Tags Employees
// @Produce json
// @Param q query string false "Matches first name, last name, email or employee id"
// @Param department query string false "Exact department"
// @Param status query string false "Exact status"
// @Success 200 {object} response.Response
// @Router /api/v1/employees/search [get]
func (h *EmployeeHandler) Search(c *fiber.Ctx) error {
	result, err := h.service.Search(c.UserContext(), queryValues(c))
	if err != nil {
		return err
	}
	return response.Collection(c, result.Employees, len(result.Employees), &result.Total, nil)
}

// Stats returns headcount and salary aggregates.
// @Summary Employee statistics
// @Tags Employees
// @Produce json
// @Success 200 {object} response.Response
// @Failure 403 {object} middleware.ErrorResponse
// @Router /api/v1/employees/stats [get]
func (h *EmployeeHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return response.OK(c, stats)
}

// Get returns a single employee.
// @Summary Get an employee
// @Tags Employees
// @Produce json
// @Param id path string true "Employee storage id"
// @Success 200 {object} response.Response
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/employees/{id} [get]
func (h *EmployeeHandler) Get(c *fiber.Ctx) error {
	employee, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return response.OK(c, employee)
}

// =============================================================================
// Commands
// =============================================================================

// Create stores a new employee with an allocated employee id.
// @Summary Create an employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param request body in.CreateEmployeeRequest true "Employee data"
// @Success 201 {object} response.Response
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/v1/employees [post]
func (h *EmployeeHandler) Create(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req in.CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body").WithError(err)
	}

	employee, err := h.service.Create(c.UserContext(), actor, &req)
	if err != nil {
		return err
	}
	return response.Created(c, employee)
}

// Update changes an employee. employeeId and createdBy cannot be changed.
// @Summary Update an employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee storage id"
// @Param request body in.UpdateEmployeeRequest true "Fields to change"
// @Success 200 {object} response.Response
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/employees/{id} [put]
func (h *EmployeeHandler) Update(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req in.UpdateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body").WithError(err)
	}

	employee, err := h.service.Update(c.UserContext(), actor, c.Params("id"), &req)
	if err != nil {
		return err
	}
	return response.OK(c, employee)
}

// Delete removes an employee.
// @Summary Delete an employee
// @Tags Employees
// @Produce json
// @Param id path string true "Employee storage id"
// @Success 200 {object} response.Response
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/employees/{id} [delete]
func (h *EmployeeHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return response.Empty(c)
}

// =============================================================================
// Helpers
// =============================================================================

func actorOf(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return domain.Actor{}, apperr.Unauthorized("")
	}
	return actor, nil
}

// queryValues returns the raw query with repeated keys preserved. Malformed
// pairs are skipped.
func queryValues(c *fiber.Ctx) url.Values {
	values, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	return values
}
