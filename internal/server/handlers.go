package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/internal/prompts"
	"github.com/MrWong99/parla/internal/session"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type scoreRequest struct {
	Transcript string `json:"transcript"`
	Target     string `json:"target"`
}

type detectRequest struct {
	Transcript string `json:"transcript"`
}

type recordRequest struct {
	Phrases int    `json:"phrases"`
	Seconds int    `json:"seconds"`
	Mode    string `json:"mode"`
}

type progressResponse struct {
	Progress progress.UserProgress `json:"progress"`
	Status   progress.LevelStatus  `json:"status"`
	Today    *progress.DayRecord   `json:"today,omitempty"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Analyzer.Analyze(req.Transcript, req.Target))
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Detector.Detect(req.Transcript))
}

func (s *Server) handleModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, session.Describe(s.cfg.Modes))
}

func (s *Server) handlePromptKinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, prompts.Kinds())
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	kind := prompts.Kind(chi.URLParam(r, "kind"))
	items, err := prompts.Catalogue(kind)
	if errors.Is(err, prompts.ErrUnknownKind) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleBuilderSets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, prompts.BuilderSets())
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.cfg.Progress.Load(r.Context())
	if err != nil {
		s.log.Error("load progress", "err", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.progressBody(p))
}

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Mode == "" {
		writeError(w, http.StatusBadRequest, "mode is required")
		return
	}
	if req.Phrases < 0 || req.Seconds < 0 {
		writeError(w, http.StatusBadRequest, "phrases and seconds must not be negative")
		return
	}
	p, err := s.cfg.Progress.RecordSession(r.Context(), req.Phrases, req.Seconds, req.Mode)
	if err != nil {
		s.log.Error("record session", "err", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.progressBody(p))
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Progress.Reset(r.Context()); err != nil {
		s.log.Error("reset progress", "err", err)
		writeError(w, http.StatusInternalServerError, "progress unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Sessions.Sessions())
}

func (s *Server) progressBody(p progress.UserProgress) progressResponse {
	body := progressResponse{Progress: p, Status: progress.Status(p)}
	if today, ok := progress.TodayRecord(p, s.cfg.Progress.Ledger().CurrentDate()); ok {
		body.Today = &today
	}
	return body
}

// decode reads a JSON body into v and writes a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
