package daemon

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   Version,
		"provider":  s.provider,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// pathLevel resolves the {n} in /lv{n}/...
func pathLevel(r *http.Request) (level.Level, error) {
	return level.Parse(chi.URLParam(r, "n"))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	l, err := pathLevel(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := decodeObject(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sessionID, err := body.str("session_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Generate(r.Context(), l, sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	l, err := pathLevel(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := decodeGradeRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Grade(r.Context(), l, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeGradeRequest(w http.ResponseWriter, r *http.Request) (assessment.GradeRequest, error) {
	var req assessment.GradeRequest
	body, err := decodeObject(w, r)
	if err != nil {
		return req, err
	}
	if req.SessionID, err = body.str("session_id"); err != nil {
		return req, err
	}
	if req.Step, err = body.integer("step"); err != nil {
		return req, err
	}
	if req.Question, err = body.obj("question"); err != nil {
		return req, err
	}
	if req.Answer, err = body.str("answer"); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	l, err := pathLevel(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := decodeCompleteRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Complete(r.Context(), l, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeCompleteRequest(w http.ResponseWriter, r *http.Request) (assessment.CompleteRequest, error) {
	var req assessment.CompleteRequest
	body, err := decodeObject(w, r)
	if err != nil {
		return req, err
	}
	if req.SessionID, err = body.str("session_id"); err != nil {
		return req, err
	}
	if err := assessment.ValidateSessionID(req.SessionID); err != nil {
		return req, err
	}
	if req.Questions, err = body.list("questions"); err != nil {
		return req, err
	}
	if req.Answers, err = body.list("answers"); err != nil {
		return req, err
	}
	if req.Grades, err = body.list("grades"); err != nil {
		return req, err
	}
	if req.FinalPassed, err = body.boolean("final_passed"); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Status(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"thresholds": s.service.Thresholds()})
}
