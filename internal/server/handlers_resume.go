package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/job-matcher/internal/extract"
	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/server/middleware"
	"github.com/jonathan/job-matcher/internal/types"
)

const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = 10 << 20
)

// BatchFitResponse is the body of POST /resume/fit/batch.
type BatchFitResponse struct {
	Results []types.BatchFitResult `json:"results"`
	Count   int                    `json:"count"`
}

// validatable is a request body with struct-tag validation.
type validatable interface {
	Validate() error
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst validatable) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return maxBytes
		}
		return &ErrBadRequest{Message: "invalid request body", Cause: err}
	}
	return dst.Validate()
}

func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	var req types.ParseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.deps.Parser.Parse(req.ResumeText))
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	var req types.FitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	profile := s.deps.Parser.Parse(req.ResumeText)
	s.jsonResponse(w, http.StatusOK, s.deps.Scorer.Score(profile, req.JobDescription, req.RequiredSkills))
}

// handleBatchFit scores one resume against many descriptions in parallel.
func (s *Server) handleBatchFit(w http.ResponseWriter, r *http.Request) {
	var req types.BatchFitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	profile := s.deps.Parser.Parse(req.ResumeText)
	results, err := s.deps.Scorer.ScoreMany(r.Context(), profile, req.Jobs)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, BatchFitResponse{Results: results, Count: len(results)})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req types.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.review(w, r, req.ResumeText, req.JobDescription)
}

// handleReviewFile reviews an uploaded PDF, DOCX, RTF or text resume sent as
// the multipart field "file", with an optional "job_description" field.
func (s *Server) handleReviewFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.errorResponse(w, r, maxBytes)
			return
		}
		s.errorResponse(w, r, &ErrBadRequest{Message: "expected a multipart form", Cause: err})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, r, &types.ValidationError{Field: "file", Message: "is required"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, r, &ErrBadRequest{Message: "could not read upload", Cause: err})
		return
	}

	text, err := extract.Text(r.Context(), data, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		s.logger.Info("resume upload rejected",
			zap.String(logger.FieldRequestID, middleware.GetRequestID(r.Context())),
			zap.String("file", header.Filename),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		s.errorResponse(w, r, err)
		return
	}
	s.review(w, r, text, r.FormValue("job_description"))
}

func (s *Server) review(w http.ResponseWriter, r *http.Request, resumeText, jobDescription string) {
	profile := s.deps.Parser.Parse(resumeText)
	result, err := s.deps.Reviewer.Review(r.Context(), profile, jobDescription)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
