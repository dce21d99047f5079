package types

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultPageSize is used when a search does not specify page_size.
	DefaultPageSize = 20
	// MaxPageSize is the largest page a search may request.
	MaxPageSize = 50
)

// SearchQuery is the filter set accepted by a job search.
type SearchQuery struct {
	What       string `json:"what,omitempty"`
	Where      string `json:"where,omitempty"`
	SalaryMin  *int   `json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryMax  *int   `json:"salary_max,omitempty" validate:"omitempty,gte=0"`
	MaxDaysOld *int   `json:"max_days_old,omitempty" validate:"omitempty,gte=0"`
	RemoteOnly bool   `json:"remote_only,omitempty"`
	FullTime   bool   `json:"full_time,omitempty"`
	Contract   bool   `json:"contract,omitempty"`
	SortBy     string `json:"sort_by,omitempty" validate:"omitempty,oneof=date relevance salary"`
	Page       int    `json:"page" validate:"gte=1"`
	PageSize   int    `json:"page_size" validate:"gte=1,lte=50"`
}

// WithDefaults fills zero page values with their defaults.
func (q SearchQuery) WithDefaults() SearchQuery {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	q.What = strings.TrimSpace(q.What)
	q.Where = strings.TrimSpace(q.Where)
	return q
}

// Validate checks the query bounds.
func (q *SearchQuery) Validate() error {
	if err := ValidateStruct(q); err != nil {
		return err
	}
	if q.SalaryMin != nil && q.SalaryMax != nil && *q.SalaryMax < *q.SalaryMin {
		return &ValidationError{Field: "salary_max", Message: "must be greater than or equal to salary_min"}
	}
	return nil
}

// SearchPage is the result of one search call.
type SearchPage struct {
	Items       []Job `json:"items"`
	Count       int   `json:"count"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	Unavailable bool  `json:"unavailable,omitempty"`
	Rejected    int   `json:"rejected,omitempty"`
}

// EmptyPage returns a valid page with no items.
func EmptyPage(q SearchQuery) SearchPage {
	return SearchPage{Items: []Job{}, Page: q.Page, PageSize: q.PageSize}
}

var validate = validator.New()

// ValidateStruct runs struct-tag validation and converts the first failure
// into a ValidationError carrying the JSON field name.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return &ValidationError{Field: toSnakeCase(fe.Field()), Message: "failed " + fe.Tag() + " check"}
	}
	return &ValidationError{Field: "(root)", Message: err.Error()}
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
