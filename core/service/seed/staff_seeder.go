// Package seed loads and removes fixture data.
package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"staff_server/core/domain"
	"staff_server/core/port/in"
	"staff_server/core/port/out"
	"staff_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	UsersFile     = "users.json"
	EmployeesFile = "employees.json"
)

// userRecord is one entry of users.json.
type userRecord struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// employeeRecord is one entry of employees.json. createdBy holds a user id
// or a user email.
type employeeRecord struct {
	in.CreateEmployeeRequest
	EmployeeID string `json:"employeeId,omitempty"`
	CreatedBy  string `json:"createdBy"`
}

// Seeder imports users.json and employees.json from a directory.
type Seeder struct {
	users     out.UserRepository
	employees in.EmployeeMaintenance
	dir       string
}

func NewSeeder(users out.UserRepository, employees in.EmployeeMaintenance, dir string) *Seeder {
	return &Seeder{users: users, employees: employees, dir: dir}
}

// Import inserts users first so employees can reference them.
func (s *Seeder) Import(ctx context.Context) error {
	var rawUsers []userRecord
	if err := s.readJSON(UsersFile, &rawUsers); err != nil {
		return err
	}
	var rawEmployees []employeeRecord
	if err := s.readJSON(EmployeesFile, &rawEmployees); err != nil {
		return err
	}

	users := make([]*domain.User, 0, len(rawUsers))
	byEmail := make(map[string]*domain.User, len(rawUsers))
	for i, r := range rawUsers {
		u := &domain.User{
			ID:    r.ID,
			Name:  strings.TrimSpace(r.Name),
			Email: strings.ToLower(strings.TrimSpace(r.Email)),
			Role:  r.Role,
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Role == "" {
			u.Role = domain.RoleEmployee
		}
		if !u.Role.IsValid() {
			return fmt.Errorf("%s entry %d: unknown role %q", UsersFile, i, u.Role)
		}
		users = append(users, u)
		byEmail[u.Email] = u
	}

	if len(users) > 0 {
		if err := s.users.InsertMany(ctx, users); err != nil {
			return fmt.Errorf("insert users: %w", err)
		}
	}
	logger.Info("[Seeder] imported %d users", len(users))

	employees := make([]*domain.Employee, 0, len(rawEmployees))
	for i, r := range rawEmployees {
		creator, err := s.creatorID(ctx, r.CreatedBy, byEmail)
		if err != nil {
			return fmt.Errorf("%s entry %d: %w", EmployeesFile, i, err)
		}
		employees = append(employees, r.toEmployee(creator))
	}

	n, err := s.employees.Import(ctx, employees)
	if err != nil {
		return err
	}
	logger.Info("[Seeder] imported %d employees", n)
	return nil
}

// Destroy removes all employees and users.
func (s *Seeder) Destroy(ctx context.Context) error {
	n, err := s.employees.DeleteAll(ctx)
	if err != nil {
		return err
	}
	m, err := s.users.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	logger.Info("[Seeder] destroyed %d employees and %d users", n, m)
	return nil
}

func (s *Seeder) readJSON(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (s *Seeder) creatorID(ctx context.Context, ref string, seeded map[string]*domain.User) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "@") {
		if ref == "" {
			return "", fmt.Errorf("createdBy is required")
		}
		return ref, nil
	}

	email := strings.ToLower(ref)
	if u, ok := seeded[email]; ok {
		return u.ID, nil
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find user %s: %w", email, err)
	}
	if u == nil {
		return "", fmt.Errorf("no user with email %s", email)
	}
	return u.ID, nil
}

func (r *employeeRecord) toEmployee(creatorID string) *domain.Employee {
	e := &domain.Employee{
		EmployeeID:       strings.TrimSpace(r.EmployeeID),
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Phone:            r.Phone,
		Department:       r.Department,
		Position:         r.Position,
		Status:           r.Status,
		Photo:            r.Photo,
		Address:          r.Address,
		EmergencyContact: r.EmergencyContact,
		CreatedBy:        &domain.UserRef{ID: creatorID},
	}
	if r.Salary != nil {
		e.Salary = *r.Salary
	}
	if r.HireDate != nil {
		e.HireDate = *r.HireDate
	}
	return e
}
