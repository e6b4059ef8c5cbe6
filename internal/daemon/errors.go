package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/level"
)

type errorBody struct {
	Error string `json:"error"`
}

// messages are the caller-facing texts for server-side failures.
type messages struct {
	retry        string
	saveFailed   string
	unknownLevel string
	notFound     string
	rateLimited  string
}

var locales = map[string]messages{
	"en": {
		retry:        "Something went wrong on our side. Please try again in a moment.",
		saveFailed:   "Your result could not be saved. Please try again in a moment.",
		unknownLevel: "unknown level",
		notFound:     "not found",
		rateLimited:  "Too many requests. Please wait a minute and try again.",
	},
	"ja": {
		retry:        "サーバーでエラーが発生しました。しばらくしてから再度お試しください。",
		saveFailed:   "結果を保存できませんでした。しばらくしてから再度お試しください。",
		unknownLevel: "不明なレベルです",
		notFound:     "見つかりません",
		rateLimited:  "リクエストが多すぎます。1分ほど待ってから再度お試しください。",
	},
}

func messagesFor(locale string) messages {
	if m, ok := locales[locale]; ok {
		return m
	}
	return locales["ja"]
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps err onto a status code. Only input errors reach the
// caller verbatim; everything else is logged and replaced.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var input *assessment.InputError
	switch {
	case errors.As(err, &input):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: input.Message})
		return
	case errors.Is(err, level.ErrUnknownLevel):
		writeJSON(w, http.StatusNotFound, errorBody{Error: s.msgs.unknownLevel})
		return
	}

	msg := s.msgs.retry
	if errors.Is(err, assessment.ErrPersistence) {
		msg = s.msgs.saveFailed
	}
	s.logger.Error("request failed",
		"correlation_id", GetCorrelationID(r.Context()),
		"path", r.URL.Path,
		"contract_violation", assessment.IsContractViolation(err),
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
}

func badRequest(msg string) error {
	return &assessment.InputError{Message: msg}
}
