package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Department is the organisational unit an employee belongs to.
type Department string

const (
	DepartmentIT         Department = "IT"
	DepartmentHR         Department = "HR"
	DepartmentFinance    Department = "Finance"
	DepartmentMarketing  Department = "Marketing"
	DepartmentOperations Department = "Operations"
	DepartmentSales      Department = "Sales"
)

// Departments lists every accepted department.
var Departments = []Department{
	DepartmentIT,
	DepartmentHR,
	DepartmentFinance,
	DepartmentMarketing,
	DepartmentOperations,
	DepartmentSales,
}

func (d Department) IsValid() bool {
	for _, v := range Departments {
		if d == v {
			return true
		}
	}
	return false
}

// EmployeeStatus is the employment state.
type EmployeeStatus string

const (
	StatusActive     EmployeeStatus = "active"
	StatusInactive   EmployeeStatus = "inactive"
	StatusTerminated EmployeeStatus = "terminated"
)

var EmployeeStatuses = []EmployeeStatus{StatusActive, StatusInactive, StatusTerminated}

func (s EmployeeStatus) IsValid() bool {
	for _, v := range EmployeeStatuses {
		if s == v {
			return true
		}
	}
	return false
}

const (
	EmployeeIDPrefix = "EMP"
	DefaultPhoto     = "no-photo.jpg"
	MaxNameLength    = 50
)

// FormatEmployeeID renders seq as EMP followed by at least four digits.
func FormatEmployeeID(seq int64) string {
	return fmt.Sprintf("%s%04d", EmployeeIDPrefix, seq)
}

// ParseEmployeeID extracts the numeric suffix of an EMP<digits> identifier.
func ParseEmployeeID(id string) (int64, bool) {
	digits, ok := strings.CutPrefix(id, EmployeeIDPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// UserRef points at the acting user. Name and Email are filled only once resolved.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Employee is the employee record.
type Employee struct {
	ID               string            `json:"id"`
	EmployeeID       string            `json:"employeeId"`
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	FullName         string            `json:"fullName,omitempty"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	Department       Department        `json:"department"`
	Position         string            `json:"position"`
	Salary           float64           `json:"salary"`
	HireDate         time.Time         `json:"hireDate"`
	Status           EmployeeStatus    `json:"status"`
	Photo            string            `json:"photo"`
	Address          *Address          `json:"address,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
	CreatedBy        *UserRef          `json:"createdBy,omitempty"`
	UpdatedBy        *UserRef          `json:"updatedBy,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`

	// EmployeeSeq is the numeric suffix of EmployeeID, stored for ordering.
	EmployeeSeq int64 `json:"-"`
}

// DisplayName joins first and last name.
func (e *Employee) DisplayName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Normalize trims free text, lowercases the email and applies defaults.
func (e *Employee) Normalize(now time.Time) {
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	e.Phone = strings.TrimSpace(e.Phone)
	e.Position = strings.TrimSpace(e.Position)

	if e.HireDate.IsZero() {
		e.HireDate = now
	}
	if e.Status == "" {
		e.Status = StatusActive
	}
	if e.Photo == "" {
		e.Photo = DefaultPhoto
	}
	e.FullName = e.DisplayName()
}

// EmployeePatch carries the fields an update writes. Nil fields keep their
// stored value.
type EmployeePatch struct {
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	Department       *Department
	Position         *string
	Salary           *float64
	HireDate         *time.Time
	Status           *EmployeeStatus
	Photo            *string
	Address          *Address
	EmergencyContact *EmergencyContact

	UpdatedBy string
	UpdatedAt time.Time
}

// Apply copies the present fields onto e and refreshes the full name.
func (p *EmployeePatch) Apply(e *Employee) {
	if p.FirstName != nil {
		e.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		e.LastName = *p.LastName
	}
	if p.Email != nil {
		e.Email = *p.Email
	}
	if p.Phone != nil {
		e.Phone = *p.Phone
	}
	if p.Department != nil {
		e.Department = *p.Department
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.Salary != nil {
		e.Salary = *p.Salary
	}
	if p.HireDate != nil {
		e.HireDate = *p.HireDate
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Photo != nil {
		e.Photo = *p.Photo
	}
	if p.Address != nil {
		e.Address = p.Address
	}
	if p.EmergencyContact != nil {
		e.EmergencyContact = p.EmergencyContact
	}
	e.UpdatedBy = &UserRef{ID: p.UpdatedBy}
	e.UpdatedAt = p.UpdatedAt
	e.FullName = e.DisplayName()
}

// =============================================================================
// Statistics
// =============================================================================

type DepartmentStat struct {
	Department  string  `json:"_id"`
	Count       int64   `json:"count"`
	AvgSalary   float64 `json:"avgSalary"`
	TotalSalary float64 `json:"totalSalary"`
}

type StatusStat struct {
	Status string `json:"_id"`
	Count  int64  `json:"count"`
}

type EmployeeStats struct {
	DepartmentStats []DepartmentStat `json:"departmentStats"`
	StatusStats     []StatusStat     `json:"statusStats"`
	TotalEmployees  int64            `json:"totalEmployees"`
	ActiveEmployees int64            `json:"activeEmployees"`
}
