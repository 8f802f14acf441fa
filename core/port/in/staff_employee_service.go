package in

import (
	"context"
	"net/url"
	"time"

	"staff_server/core/domain"
)

// EmployeeService defines the employee record operations.
type EmployeeService interface {
	Create(ctx context.Context, actor domain.Actor, req *CreateEmployeeRequest) (*domain.Employee, error)
	Get(ctx context.Context, id string) (*domain.Employee, error)
	Update(ctx context.Context, actor domain.Actor, id string, req *UpdateEmployeeRequest) (*domain.Employee, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
	List(ctx context.Context, params url.Values) (*EmployeeListResult, error)
	Search(ctx context.Context, params url.Values) (*EmployeeSearchResult, error)
	Stats(ctx context.Context) (*domain.EmployeeStats, error)
}

// EmployeeMaintenance covers the offline tasks run from the command line.
type EmployeeMaintenance interface {
	// Import stores records as given, allocating identifiers for those without one.
	Import(ctx context.Context, employees []*domain.Employee) (int, error)
	// BackfillEmployeeIDs assigns identifiers to stored records that lack one.
	BackfillEmployeeIDs(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// CreateEmployeeRequest is the payload of a create call.
type CreateEmployeeRequest struct {
	FirstName        string                   `json:"firstName"`
	LastName         string                   `json:"lastName"`
	Email            string                   `json:"email"`
	Phone            string                   `json:"phone"`
	Department       domain.Department        `json:"department"`
	Position         string                   `json:"position"`
	Salary           *float64                 `json:"salary"`
	HireDate         *time.Time               `json:"hireDate,omitempty"`
	Status           domain.EmployeeStatus    `json:"status,omitempty"`
	Photo            string                   `json:"photo,omitempty"`
	Address          *domain.Address          `json:"address,omitempty"`
	EmergencyContact *domain.EmergencyContact `json:"emergencyContact,omitempty"`
}

// UpdateEmployeeRequest carries only the fields being changed.
// employeeId and createdBy are not part of it and are ignored when sent.
type UpdateEmployeeRequest struct {
	FirstName        *string                  `json:"firstName,omitempty"`
	LastName         *string                  `json:"lastName,omitempty"`
	Email            *string                  `json:"email,omitempty"`
	Phone            *string                  `json:"phone,omitempty"`
	Department       *domain.Department       `json:"department,omitempty"`
	Position         *string                  `json:"position,omitempty"`
	Salary           *float64                 `json:"salary,omitempty"`
	HireDate         *time.Time               `json:"hireDate,omitempty"`
	Status           *domain.EmployeeStatus   `json:"status,omitempty"`
	Photo            *string                  `json:"photo,omitempty"`
	Address          *domain.Address          `json:"address,omitempty"`
	EmergencyContact *domain.EmergencyContact `json:"emergencyContact,omitempty"`
}

// EmployeeSearchResult holds at most SearchLimit hits. Total counts every match.
type EmployeeSearchResult struct {
	Employees []*domain.Employee
	Total     int64
}

// EmployeeListResult is one page of a list query.
type EmployeeListResult struct {
	Employees  []*domain.Employee
	Total      int64
	Pagination domain.Pagination
	// Projection echoes the selected fields so the transport can trim output.
	Projection []string
}
