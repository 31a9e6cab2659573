// Package model defines the core domain types for the event platform.
package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
)

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse is returned by operations that have no resource to show.
type MessageResponse struct {
	Message string `json:"message"`
}

// ListMeta describes a paginated result.
type ListMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// List is a page of results together with its metadata.
type List[T any] struct {
	Meta ListMeta `json:"meta"`
	Data []T      `json:"data"`
}

// NewList builds a List, normalising a nil slice to an empty one.
func NewList[T any](page Page, total int, data []T) List[T] {
	if data == nil {
		data = []T{}
	}
	return List[T]{
		Meta: ListMeta{Page: page.Page, Limit: page.Limit, Total: total},
		Data: data,
	}
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page holds pagination and sort options for list queries.
type Page struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize applies defaults and bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	p.SortOrder = strings.ToLower(p.SortOrder)
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// SortColumn resolves SortBy against an allow-list of API field -> column,
// falling back to created_at.
func (p Page) SortColumn(allowed map[string]string) string {
	if col, ok := allowed[p.SortBy]; ok {
		return col
	}
	return "created_at"
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// Calendar dates are midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return ParseDateIn(s, time.UTC)
}

// ParseDateIn is ParseDate with calendar dates read as midnight in loc, so
// the day survives conversion back into loc.
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return t, nil
}

// isDate is an ozzo rule for ParseDate-compatible strings.
var isDate = validation.By(func(value any) error {
	v, isNil := validation.Indirect(value)
	s, _ := v.(string)
	if isNil || s == "" {
		return nil
	}
	_, err := ParseDate(s)
	return err
})

// validationError converts ozzo validation errors into an apperr validation
// error keyed by JSON field name.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		return apperr.Validation("invalid request", fields)
	}
	return apperr.Invalid(err.Error())
}
