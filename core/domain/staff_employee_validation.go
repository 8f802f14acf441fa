package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

// FieldError is a single failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every failed rule of a record.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, ", ")
}

// Validate checks the record against the employee rules. Call Normalize first.
func (e *Employee) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	validateName := func(field, label, value string) {
		switch {
		case value == "":
			add(field, fmt.Sprintf("Please add a %s", label))
		case len([]rune(value)) > MaxNameLength:
			add(field, fmt.Sprintf("%s cannot be more than %d characters", capitalize(label), MaxNameLength))
		}
	}
	validateName("firstName", "first name", e.FirstName)
	validateName("lastName", "last name", e.LastName)

	switch {
	case e.Email == "":
		add("email", "Please add an email")
	case !emailPattern.MatchString(e.Email):
		add("email", "Please add a valid email")
	}

	switch {
	case e.Phone == "":
		add("phone", "Please add a phone number")
	case !phonePattern.MatchString(e.Phone):
		add("phone", "Please add a valid phone number")
	}

	if e.Department == "" {
		add("department", "Please add a department")
	} else if !e.Department.IsValid() {
		add("department", fmt.Sprintf("Department must be one of %s", joinDepartments()))
	}

	if e.Position == "" {
		add("position", "Please add a position")
	}

	if e.Salary < 0 {
		add("salary", "Salary cannot be negative")
	}

	if !e.Status.IsValid() {
		add("status", "Status must be one of active, inactive, terminated")
	}

	if e.CreatedBy == nil || e.CreatedBy.ID == "" {
		add("createdBy", "Employee must have a creator")
	}

	return errs
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinDepartments() string {
	names := make([]string, len(Departments))
	for i, d := range Departments {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}
