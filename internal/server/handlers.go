package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/quizcast/internal/extract"
	"github.com/hyperjump/quizcast/internal/gate"
	"github.com/hyperjump/quizcast/internal/processor"
	"github.com/hyperjump/quizcast/internal/storage"
	"go.uber.org/zap"
)

// RequesterHeader identifies the submitter for the per-requester gate.
const RequesterHeader = "X-Requester"

// multipartOverhead allows for form boundaries and headers on top of the file limit.
const multipartOverhead = 1 << 20

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := s.config.Intake.MaxFileSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	requester := r.Header.Get(RequesterHeader)
	if requester == "" {
		requester = r.FormValue("requester")
	}
	s.logger.Debug("upload request",
		zap.String("filename", header.Filename),
		zap.String("requester", requester),
		zap.Int("bytes", len(content)))

	prep, err := s.processor.Prepare(r.Context(), processor.Submission{
		Source:    filepath.Base(header.Filename),
		Requester: requester,
		Ext:       filepath.Ext(header.Filename),
		Content:   content,
	})
	if err != nil {
		s.respondPrepareError(w, err)
		return
	}

	snapshot := *prep.Run
	if !s.publishAsync(prep) {
		if _, err := s.processor.Cancel(r.Context(), prep); err != nil {
			s.logger.Error("cancel run", zap.String("run_id", prep.Run.ID), zap.Error(err))
		}
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":  "server shutting down",
			"run_id": prep.Run.ID,
		})
		return
	}
	s.respondJSON(w, http.StatusAccepted, snapshot)
}

func (s *Server) respondPrepareError(w http.ResponseWriter, err error) {
	var wait *gate.WaitError
	var empty *processor.EmptyError
	switch {
	case errors.As(err, &wait):
		w.Header().Set("Retry-After", strconv.Itoa(wait.Seconds()))
		s.respondJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":               wait.Error(),
			"retry_after_seconds": wait.Seconds(),
		})
	case errors.As(err, &empty):
		s.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   processor.ErrNoQuestions.Error(),
			"excerpt": empty.Excerpt,
			"skips":   empty.Skips,
		})
	case errors.Is(err, processor.ErrUpstreamUnavailable):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, extract.ErrUnsupportedFormat):
		s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, processor.ErrTooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		s.logger.Error("prepare failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	runs, err := s.storage.ListRuns(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":   runs,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run":     run,
		"summary": run.Summary(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sizer is implemented by stores that can report their on-disk size.
type sizer interface {
	SizeBytes() (int64, error)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.storage.CountRuns(r.Context())
	if err != nil {
		s.logger.Error("status: count runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"runs": count,
		"config": map[string]interface{}{
			"database_path":    s.config.Storage.DatabasePath,
			"chat_id":          s.config.Telegram.ChatID,
			"batch_size":       s.config.Dispatch.BatchSize,
			"min_interval":     s.config.Intake.MinInterval.String(),
			"max_file_size_mb": s.config.Intake.MaxFileSizeMB,
			"formats":          extract.SupportedExtensions(),
		},
	}
	if sz, ok := s.storage.(sizer); ok {
		if n, err := sz.SizeBytes(); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
