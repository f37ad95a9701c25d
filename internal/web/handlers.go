package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/domain"
	"github.com/spigell/labconnect/internal/interaction"
	"github.com/spigell/labconnect/internal/matching"
	"github.com/spigell/labconnect/internal/resume"
)

const (
	uploadField     = "resume"
	msgLabsFailed   = "Failed to load labs"
	msgUploadFailed = "Upload is too large or malformed"
)

type indexPage struct {
	interaction.View
	Hint string
}

type labsPage struct {
	Labs    []domain.LabRecord
	Message string
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.State(w, r)
	s.render(w, "index.html", indexPage{View: state.View(), Hint: interaction.EmptyHint})
}

// handleSearch runs one search for the browser session and redirects back
// to the page, which renders the outcome from the session state.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.State(w, r)
	defer http.Redirect(w, r, "/", http.StatusSeeOther)

	doc, err := s.readUpload(w, r)
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		s.logger.Warn("resume upload rejected", zap.Error(err))
		_ = state.Reject(matching.MsgImageRead)
		return
	default:
		if err := state.Select(doc); err != nil {
			return
		}
	}

	doc, err = state.Begin()
	if err != nil {
		return
	}

	results, err := s.searcher.Match(context.WithoutCancel(r.Context()), doc)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
	}
	_ = state.Finish(results, err)
}

func (s *Server) handleLabsPage(w http.ResponseWriter, r *http.Request) {
	records, err := s.source.All(r.Context())
	page := labsPage{Labs: records}
	if err != nil {
		s.logger.Error("failed to load labs", zap.Error(err))
		page.Message = msgLabsFailed
	}
	s.render(w, "labs.html", page)
}

func (s *Server) handleAPILabs(w http.ResponseWriter, r *http.Request) {
	records, err := s.source.All(r.Context())
	if err != nil {
		s.logger.Error("failed to load labs", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, apiError{Error: msgLabsFailed})
		return
	}
	if records == nil {
		records = []domain.LabRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAPIMatch(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		doc = nil
	case err != nil:
		writeJSON(w, http.StatusBadRequest, apiError{Error: matching.MsgImageRead, Kind: matching.KindImageRead.String()})
		return
	}

	results, err := s.searcher.Match(context.WithoutCancel(r.Context()), doc)
	if err != nil {
		kind := matching.KindOf(err)
		s.logger.Error("search failed", zap.Error(err), zap.Stringer("kind", kind))
		writeJSON(w, statusFor(kind), apiError{Error: matching.Message(err), Kind: kind.String()})
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*domain.ResumeDocument, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, http.ErrMissingFile
		}
		return nil, fmt.Errorf("%s: %w", msgUploadFailed, err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return resume.FromBytes(header.Filename, data, header.Header.Get("Content-Type"), resume.OnlyImages())
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
	}
}

func statusFor(kind matching.Kind) int {
	switch kind {
	case matching.KindValidation, matching.KindImageRead:
		return http.StatusBadRequest
	case matching.KindResponseShape:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
