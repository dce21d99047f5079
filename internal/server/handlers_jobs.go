package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/job-matcher/internal/config"
	"github.com/jonathan/job-matcher/internal/types"
)

// SearchResponse is the body of GET /jobs/realtime.
type SearchResponse struct {
	Items       []types.Job `json:"items"`
	Count       int         `json:"count"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	Unavailable bool        `json:"unavailable"`
	Rejected    int         `json:"rejected,omitempty"`
}

func searchResponse(p types.SearchPage) SearchResponse {
	items := p.Items
	if items == nil {
		items = []types.Job{}
	}
	return SearchResponse{
		Items:       items,
		Count:       p.Count,
		Page:        p.Page,
		PageSize:    p.PageSize,
		Unavailable: p.Unavailable,
		Rejected:    p.Rejected,
	}
}

// handleRealtimeSearch runs one provider search. A provider outage answers
// 503 with an empty page marked unavailable.
func (s *Server) handleRealtimeSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r.URL.Query(), s.ingestion)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	page, err := s.deps.Search.Search(r.Context(), q)
	if err != nil {
		var unavailable *types.SourceUnavailableError
		if errors.As(err, &unavailable) {
			page.Unavailable = true
			if unavailable.Kind.Retryable() {
				w.Header().Set("Retry-After", "30")
			}
			s.jsonResponse(w, http.StatusServiceUnavailable, searchResponse(page))
			return
		}
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, searchResponse(page))
}

// handleGetJob returns a stored job, including expired jobs still within retention.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, &types.ValidationError{Field: "id", Message: "must be a UUID"})
		return
	}
	job, err := s.deps.Store.GetJob(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if job == nil {
		s.errorResponse(w, r, types.ErrNotFound)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// Location suggestion limits.
const (
	defaultLocationLimit = 10
	maxLocationLimit     = 50
)

// LocationsResponse is the body of GET /jobs/locations.
type LocationsResponse struct {
	Items []string `json:"items"`
}

// handleSuggestLocations completes a partial location from stored jobs.
func (s *Server) handleSuggestLocations(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	limit, err := optionalInt(v, "limit")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	n := defaultLocationLimit
	if limit != nil {
		if *limit < 1 || *limit > maxLocationLimit {
			s.errorResponse(w, r, &types.ValidationError{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(maxLocationLimit)})
			return
		}
		n = *limit
	}

	items, err := s.deps.Store.SuggestLocations(r.Context(), strings.TrimSpace(v.Get("q")), n)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, LocationsResponse{Items: items})
}

// parseSearchQuery reads the filter set from query parameters. Page size
// defaults from configuration and may not exceed its configured maximum.
func parseSearchQuery(v url.Values, cfg config.IngestionConfig) (types.SearchQuery, error) {
	q := types.SearchQuery{
		What:   v.Get("what"),
		Where:  v.Get("where"),
		SortBy: v.Get("sort_by"),
	}

	var err error
	if q.SalaryMin, err = optionalInt(v, "salary_min"); err != nil {
		return q, err
	}
	if q.SalaryMax, err = optionalInt(v, "salary_max"); err != nil {
		return q, err
	}
	if q.MaxDaysOld, err = optionalInt(v, "max_days_old"); err != nil {
		return q, err
	}
	for name, dst := range map[string]*bool{
		"remote_only": &q.RemoteOnly,
		"full_time":   &q.FullTime,
		"contract":    &q.Contract,
	} {
		if *dst, err = optionalBool(v, name); err != nil {
			return q, err
		}
	}

	page, err := optionalInt(v, "page")
	if err != nil {
		return q, err
	}
	if page != nil {
		q.Page = *page
	} else {
		q.Page = 1
	}

	size, err := optionalInt(v, "page_size")
	if err != nil {
		return q, err
	}
	switch {
	case size == nil:
		q.PageSize = cfg.DefaultPageSize
	case cfg.MaxPageSize > 0 && *size > cfg.MaxPageSize:
		return q, &types.ValidationError{Field: "page_size", Message: "must be at most " + strconv.Itoa(cfg.MaxPageSize)}
	default:
		q.PageSize = *size
	}
	if q.PageSize == 0 {
		q.PageSize = types.DefaultPageSize
	}
	return q, nil
}

func optionalInt(v url.Values, name string) (*int, error) {
	raw := v.Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &types.ValidationError{Field: name, Message: "must be an integer"}
	}
	return &n, nil
}

func optionalBool(v url.Values, name string) (bool, error) {
	raw := v.Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &types.ValidationError{Field: name, Message: "must be true or false"}
	}
	return b, nil
}
