// Package response provides the JSON envelopes returned by the API.
package response

import (
	"reflect"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// =============================================================================
// Standard API Response
// =============================================================================

// Response is the standard success envelope.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Total      *int64      `json:"total,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
	Data       interface{} `json:"data"`
}

// OK returns a successful response.
func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Data:    data,
	})
}

// Created returns a 201 created response.
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Data:    data,
	})
}

// Collection returns a list with its count and, when set, total and pagination.
func Collection(c *fiber.Ctx, data interface{}, count int, total *int64, pagination interface{}) error {
	return c.JSON(Response{
		Success:    true,
		Count:      &count,
		Total:      total,
		Pagination: pagination,
		Data:       data,
	})
}

// Empty returns `data: {}` for operations without a payload.
func Empty(c *fiber.Ctx) error {
	return c.JSON(Response{
		Success: true,
		Data:    fiber.Map{},
	})
}

// =============================================================================
// Field Selection (Sparse Fieldsets)
// =============================================================================

// SelectFields keeps only the requested JSON fields of a struct or slice of structs.
// The "id" field is always kept. A nil or empty field list returns data unchanged.
func SelectFields(data interface{}, fields []string) interface{} {
	if len(fields) == 0 || data == nil {
		return data
	}

	fieldSet := map[string]bool{"id": true}
	for _, f := range fields {
		// Nested selections ("address.city") keep the whole parent object.
		top := strings.SplitN(strings.TrimSpace(f), ".", 2)[0]
		fieldSet[top] = true
	}

	return filterFields(reflect.ValueOf(data), fieldSet)
}

func filterFields(v reflect.Value, fields map[string]bool) interface{} {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		result := make([]map[string]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			result[i] = filterStructFields(v.Index(i), fields)
		}
		return result

	case reflect.Struct:
		return filterStructFields(v, fields)

	default:
		return v.Interface()
	}
}

func filterStructFields(v reflect.Value, fields map[string]bool) map[string]interface{} {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	t := v.Type()
	result := make(map[string]interface{})

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		jsonName := strings.Split(jsonTag, ",")[0]
		if fields[jsonName] {
			result[jsonName] = v.Field(i).Interface()
		}
	}

	return result
}
