package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/job-matcher/internal/server/middleware"
	"github.com/jonathan/job-matcher/internal/types"
)

// SavedJobsResponse is the body of GET /saved-jobs.
type SavedJobsResponse struct {
	Items []types.SavedJob `json:"items"`
	Count int              `json:"count"`
}

func (s *Server) handleSaveJob(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := s.savedJobTarget(w, r)
	if !ok {
		return
	}
	saved, err := s.deps.Store.SaveJob(r.Context(), userID, jobID, s.now().UTC())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, saved)
}

// handleListSavedJobs lists the caller's saved jobs, expired ones included
// until retention purges them.
func (s *Server) handleListSavedJobs(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, r, types.ErrUnauthorized)
		return
	}
	saved, err := s.deps.Store.ListSavedJobs(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SavedJobsResponse{Items: saved, Count: len(saved)})
}

func (s *Server) handleDeleteSavedJob(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := s.savedJobTarget(w, r)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteSavedJob(r.Context(), userID, jobID); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// savedJobTarget resolves the caller and the job id path value, writing the
// error response itself when either is missing.
func (s *Server) savedJobTarget(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, r, types.ErrUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, &types.ValidationError{Field: "id", Message: "must be a UUID"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, jobID, true
}
