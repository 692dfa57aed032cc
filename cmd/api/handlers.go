package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/askdocs/askdocs/engine/domain"
	"github.com/askdocs/askdocs/engine/qa"
	"github.com/askdocs/askdocs/pkg/docstore"
	"github.com/askdocs/askdocs/pkg/extract"
	"github.com/askdocs/askdocs/pkg/mid"
)

type server struct {
	qa     *qa.Service
	store  *docstore.Store
	logger *slog.Logger
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DocumentResponse is the JSON response for an uploaded document.
type DocumentResponse struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	UploadedAt string `json:"uploaded_at"`
	Chunks     int    `json:"chunks"`
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tenant := mid.TenantID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, extract.MaxFileBytes+1)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading file: "+err.Error())
		return
	}

	res, err := extract.FromBytes(content)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrTooLarge):
			writeError(w, http.StatusBadRequest, "File size too large. Maximum size is 10MB.")
		case errors.Is(err, extract.ErrEmptyContent):
			writeError(w, http.StatusBadRequest, "File content is too short or empty.")
		case errors.Is(err, extract.ErrUnsupportedType):
			writeError(w, http.StatusBadRequest, "Unsupported file type. Only .txt and .pdf files are supported.")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	doc := docstore.Document{
		TenantID: tenant,
		Filename: header.Filename,
		FileType: res.FileType,
		Content:  res.Text,
	}
	id, err := s.store.SaveDocument(r.Context(), doc)
	if err != nil {
		s.logger.Error("saving document failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	chunkIDs, err := s.qa.Upload(r.Context(), tenant, strconv.FormatInt(id, 10), header.Filename, res.Text)
	if err != nil {
		s.logger.Error("indexing document failed", "err", err, "document_id", id)
		writeError(w, http.StatusInternalServerError, "failed to index document")
		return
	}

	saved, err := s.store.GetDocument(r.Context(), tenant, id)
	if err != nil {
		saved = doc
		saved.ID = id
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		ID:         saved.ID,
		Filename:   saved.Filename,
		FileType:   saved.FileType,
		UploadedAt: saved.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		Chunks:     len(chunkIDs),
	})
}

func (s *server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context(), mid.TenantID(r.Context()))
	if err != nil {
		s.logger.Error("listing documents failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// AskRequest is the JSON body for POST /api/qa/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the JSON response for POST /api/qa/ask.
type AskResponse struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	ResponseTime float64  `json:"response_time"`
	Sources      []string `json:"sources"`
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	tenant := mid.TenantID(r.Context())

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := domain.ValidateQuestion(req.Question); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ans, err := s.qa.Ask(r.Context(), tenant, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyQuestion), errors.Is(err, domain.ErrEmptyTenant):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("ask failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if _, err := s.store.SaveQueryLog(r.Context(), docstore.QueryLog{
		TenantID:        tenant,
		Question:        req.Question,
		Response:        ans.Text,
		ResponseSeconds: ans.ElapsedSeconds,
		Sources:         ans.Sources,
	}); err != nil {
		s.logger.Warn("saving query log failed", "err", err)
	}

	sources := ans.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, AskResponse{
		Question:     req.Question,
		Answer:       ans.Text,
		ResponseTime: ans.ElapsedSeconds,
		Sources:      sources,
	})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.History(r.Context(), mid.TenantID(r.Context()))
	if err != nil {
		s.logger.Error("listing history failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if logs == nil {
		logs = []docstore.QueryLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *server) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.qa.CollectionInfo(r.Context(), mid.TenantID(r.Context()))
	if err != nil {
		s.logger.Error("collection info failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *server) handleReload(w http.ResponseWriter, _ *http.Request) {
	s.qa.Reload()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
